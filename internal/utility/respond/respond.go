// Package respond centralizes the HTTP handlers' JSON envelope so every
// endpoint returns the same success and error shapes.
package respond

import (
	"encoding/json"
	"log"
	"net/http"
)

// ErrorBody is the JSON shape returned on a failed request.
type ErrorBody struct {
	Message string `json:"message"`
}

// JSON writes v as the response body with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("respond: encode response: %v", err)
	}
}

// Error writes err's message as an ErrorBody with the given status code.
func Error(w http.ResponseWriter, status int, err error) {
	JSON(w, status, ErrorBody{Message: err.Error()})
}
