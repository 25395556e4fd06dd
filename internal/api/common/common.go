// Package common provides shared HTTP utility functions for API handlers.
package common

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
}

// encodeFailure is sent when a response body cannot be encoded
const encodeFailure = `{"error":"failed to encode response"}` + "\n"

// WriteJSONResponse writes a JSON response with the given data. The body is
// encoded before the status is sent, so an unencodable value becomes a 500.
func WriteJSONResponse(w http.ResponseWriter, data any, statusCode int) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(encodeFailure))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

// WriteErrorResponse writes a standardized error response
func WriteErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	WriteJSONResponse(w, ErrorResponse{Error: message}, statusCode)
}
