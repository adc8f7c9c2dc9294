package api

import (
	"time"

	"github.com/go-playground/validator/v10"
)

type APIResponse[T any] struct {
	Data      T             `json:"data,omitempty"`
	Error     ErrorResponse `json:"error"`
	Status    int           `json:"status,omitempty"`
	Timestamp string        `json:"timestamp"`
	Version   string        `json:"version"`
}

type ErrorResponse struct {
	Message          string `json:"message"`
	DetailedResponse string `json:"details,omitempty"`
}

const (
	MsgMissingAuthHeader = "Missing authorization header"
	MsgInvalidAuthHeader = "Invalid authorization header format"
	MsgUnauthorized      = "Unauthorized"
	MsgInternalError     = "An internal error occurred"
	MsgForbidden         = "Access denied"
)

func NewErrorResponse(message string) APIResponse[interface{}] {
	return APIResponse[interface{}]{
		Error: ErrorResponse{
			Message: message,
		},
		Timestamp: time.Now().Format(time.RFC3339),
		Version:   "1.0.0",
	}
}

func NewErrorResponseWithDetails(message, details string) APIResponse[interface{}] {
	return APIResponse[interface{}]{
		Error: ErrorResponse{
			Message:          message,
			DetailedResponse: details,
		},
		Timestamp: time.Now().Format(time.RFC3339),
		Version:   "1.0.0",
	}
}

func NewSuccessResponse[T any](code int, data T) APIResponse[T] {
	return APIResponse[T]{
		Status:    code,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
		Version:   "1.0.0",
	}
}

// RequestValidator adapts go-playground/validator to echo's Validator hook.
type RequestValidator struct {
	Validator *validator.Validate
}

func (v *RequestValidator) Validate(i interface{}) error {
	return v.Validator.Struct(i)
}
