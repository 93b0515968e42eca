package errors

import (
	"encoding/json"
	"net/http"
)

// Kind classifies an error for the HTTP layer
type Kind string

const (
	KindInvalidInput Kind = "INVALID_INPUT"
	KindRateLimited  Kind = "RATE_LIMITED"
	KindNotFound     Kind = "NOT_FOUND"
	KindInternal     Kind = "INTERNAL_ERROR"
)

// AppError represents an application error with HTTP context
type AppError struct {
	Kind       Kind
	Message    string
	StatusCode int
	Err        error // underlying cause, never sent to the client
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// ErrorResponse is the JSON response format for errors
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteJSON writes the error as a JSON response
func (e *AppError) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: e.Message})
}

// WriteText writes the error as a plain-text response
func (e *AppError) WriteText(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(e.StatusCode)
	w.Write([]byte(e.Message))
}

// WithCause attaches the underlying error for logging
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// ============================================================
// ERROR CONSTRUCTORS
// ============================================================

// Validation Errors (400)
func InvalidURL() *AppError {
	return &AppError{
		Kind:       KindInvalidInput,
		Message:    "Invalid or missing URL (must start with http:// or https://)",
		StatusCode: http.StatusBadRequest,
	}
}

func InvalidJSON() *AppError {
	return &AppError{
		Kind:       KindInvalidInput,
		Message:    "Invalid JSON",
		StatusCode: http.StatusBadRequest,
	}
}

func MissingKey() *AppError {
	return &AppError{
		Kind:       KindInvalidInput,
		Message:    "Missing key",
		StatusCode: http.StatusBadRequest,
	}
}

// Not Found Errors (404)
func NotFound() *AppError {
	return &AppError{
		Kind:       KindNotFound,
		Message:    "Not found",
		StatusCode: http.StatusNotFound,
	}
}

func LinkNotFound() *AppError {
	return &AppError{
		Kind:       KindNotFound,
		Message:    "Short URL not found",
		StatusCode: http.StatusNotFound,
	}
}

// Rate Limit Error (429)
func RateLimitExceeded() *AppError {
	return &AppError{
		Kind:       KindRateLimited,
		Message:    "Rate limit exceeded. Please try again later.",
		StatusCode: http.StatusTooManyRequests,
	}
}

// Server Errors (500)
func Internal() *AppError {
	return &AppError{
		Kind:       KindInternal,
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}
}
