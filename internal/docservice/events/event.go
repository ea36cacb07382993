package events

import (
	"time"

	"github.com/docfill/engine/pkg/types"
)

// RequestEvent contains all data for a single API operation event
type RequestEvent struct {
	// Identifiers
	RequestID string `json:"request_id"`
	Operation string `json:"operation"` // extract, generate

	// Outcome
	Status   string        `json:"status"` // success or an error type
	Duration time.Duration `json:"duration"`

	// Document metadata
	FileName     string `json:"file_name"`
	FileSize     int64  `json:"file_size"`
	TagCount     int    `json:"tag_count"`
	TemplateHash string `json:"template_hash"`

	// Error info (empty on success)
	ErrorType    string `json:"error_type"`
	ErrorMessage string `json:"error_message"`

	// Request metadata
	ClientIP  string    `json:"client_ip"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSuccessEvent builds an event for a completed operation.
func NewSuccessEvent(operation, requestID string) *RequestEvent {
	return &RequestEvent{
		RequestID: requestID,
		Operation: operation,
		Status:    types.StatusSuccess,
		CreatedAt: time.Now().UTC(),
	}
}

// NewErrorEvent builds an event for a failed operation.
func NewErrorEvent(operation, requestID, errorType, errorMessage string) *RequestEvent {
	return &RequestEvent{
		RequestID:    requestID,
		Operation:    operation,
		Status:       errorType,
		ErrorType:    errorType,
		ErrorMessage: errorMessage,
		CreatedAt:    time.Now().UTC(),
	}
}
