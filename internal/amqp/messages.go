package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types carried on the bill event bus.
const (
	TypeSync   = "sync"
	TypeDelete = "delete"
)

// BillEventMessage is a lightweight bus message. Sync events carry only the
// bill ID and version; the ledger worker fetches the full record from the
// store. Delete events carry the ID of a record that no longer exists.
type BillEventMessage struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	Version   int64     `json:"version,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBillSyncMessage(id string, version int64) *BillEventMessage {
	return &BillEventMessage{
		Type:      TypeSync,
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func NewBillDeleteMessage(id string) *BillEventMessage {
	return &BillEventMessage{
		Type:      TypeDelete,
		ID:        id,
		Timestamp: time.Now(),
	}
}

func (m *BillEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BillEventMessageFromJSON(data []byte) (*BillEventMessage, error) {
	var msg BillEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case TypeSync, TypeDelete:
	default:
		return nil, fmt.Errorf("unknown message type: %q", msg.Type)
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("message has no bill id")
	}
	return &msg, nil
}
