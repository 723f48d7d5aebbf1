package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
)

type apiErr struct {
	Status  int
	Message string
	Details any
}

func (e *apiErr) Error() string { return e.Message }

func badRequest(msg string, details any) *apiErr {
	return &apiErr{Status: http.StatusBadRequest, Message: msg, Details: details}
}

func unprocessable(msg string) *apiErr {
	return &apiErr{Status: http.StatusUnprocessableEntity, Message: msg}
}

func notFound(msg string) *apiErr {
	return &apiErr{Status: http.StatusNotFound, Message: msg}
}

func conflict(msg string) *apiErr {
	return &apiErr{Status: http.StatusConflict, Message: msg}
}

func serverError(msg string, err error) *apiErr {
	slog.Error(msg, "error", err)
	return &apiErr{Status: http.StatusInternalServerError, Message: msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{"ok": true, "data": data})
}

func writeErr(w http.ResponseWriter, err *apiErr) {
	payload := map[string]any{"ok": false, "error": err.Message}
	if err.Details != nil {
		payload["details"] = err.Details
	}
	writeJSON(w, err.Status, payload)
}

func readJSON(r *http.Request, dst any) *apiErr {
	b, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return badRequest("could not read body", nil)
	}
	if len(b) == 0 {
		b = []byte(`{}`)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return badRequest("invalid JSON", map[string]any{"error": err.Error()})
	}
	return nil
}
