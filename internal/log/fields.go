package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldBillID      = "bill_id"
	FieldOwner       = "owner"
	FieldBillName    = "bill_name"
	FieldCategory    = "category"
	FieldAmountCents = "amount_cents"
	FieldFrequency   = "frequency"
	FieldStatus      = "status"
	FieldDueDate     = "due_date"
	FieldVersion     = "version"
	FieldLedgerRef   = "ledger_ref"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentBill      = "bill"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentRollover  = "rollover"
	ComponentLedger    = "ledger"
	ComponentCache     = "cache"
	ComponentRateLimit = "rate_limit"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpRollover = "rollover"
	OpSweep    = "sweep"
	OpSync     = "sync"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)
