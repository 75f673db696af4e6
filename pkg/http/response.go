package http

import (
	"encoding/json"
	"net/http"
)

// SuccessResponse wraps successful payloads in the API's standard envelope.
type SuccessResponse struct {
	Status string `json:"status"` // always "success"
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse is the standard error envelope. Message is the caller-facing
// contract; clients branch on it to drive UI.
type ErrorResponse struct {
	Status  string `json:"status"` // always "error"
	Message string `json:"message"`
}

// WriteData writes a success envelope with the given status code.
func WriteData(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(SuccessResponse{Status: "success", Data: data})
}

// WriteError writes an error envelope with the given status code.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Status: "error", Message: message})
}

// Common error writers for consistency
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message)
}

func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message)
}
