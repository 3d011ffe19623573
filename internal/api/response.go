package api

import (
	"encoding/json"
	"net/http"
)

// writeJSON writes a JSON response with the given status code. The payload
// is marshalled before any byte hits the wire, so a marshal failure yields
// a clean 500 instead of a truncated body under a success status.
func writeJSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"encode_failed"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, err string, message string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: message})
}
