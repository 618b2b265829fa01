// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/moneytrail/moneytrail/internal/handler/dto"
	"github.com/moneytrail/moneytrail/internal/middleware"
)

// Handler serves the unauthenticated utility routes.
type Handler struct {
	version string
}

// New creates a new Handler instance.
func New(version string) *Handler {
	if version == "" {
		version = "dev"
	}
	return &Handler{version: version}
}

// Hello is a simple hello endpoint for testing.
// GET /
func (h *Handler) Hello(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"message": "Hello from Moneytrail!",
		"version": h.version,
	}
	writeJSON(w, http.StatusOK, response)
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already sent; nothing useful left to do
		_ = err
	}
}

// writeError writes a failure body with success=false.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, dto.ErrorResponse{Message: message, Success: false})
}

// writeValidationError writes a 400 naming the first violated rule.
func writeValidationError(w http.ResponseWriter, err error) {
	detail := err.Error()
	var verr *middleware.ValidationError
	if errors.As(err, &verr) {
		detail = verr.Message
	}
	writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
		Message: "bad request",
		Error:   detail,
		Success: false,
	})
}
