package middleware

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the JSON error envelope of every rejected request.
type ErrorBody struct {
	Error string `json:"error"`
}

// WriteJSON renders payload with status.
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteError renders message as an ErrorBody.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorBody{Error: message})
}
