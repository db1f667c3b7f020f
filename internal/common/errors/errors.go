// Package errors provides the standardized error taxonomy for the
// notification pipeline.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeRecipientLookupFailed    ErrorCode = "RECIPIENT_LOOKUP_FAILED"
	ErrCodePreferenceLookupFailed   ErrorCode = "PREFERENCE_LOOKUP_FAILED"
	ErrCodeTemplateNotFound         ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodePayloadValidationFailed  ErrorCode = "PAYLOAD_VALIDATION_FAILED"
	ErrCodeDeliveryFailed           ErrorCode = "DELIVERY_FAILED"
	ErrCodeAuditWriteFailed         ErrorCode = "AUDIT_WRITE_FAILED"
	ErrCodeGuardUpdateFailed        ErrorCode = "GUARD_UPDATE_FAILED"
	ErrCodeRunAlreadyInProgress     ErrorCode = "RUN_ALREADY_IN_PROGRESS"
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewQueryExecutionFailedError creates a retryable datastore query error.
func NewQueryExecutionFailedError(queryName string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Datastore query execution error",
		Details:   fmt.Sprintf("query: %s, error: %s", queryName, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRecipientLookupFailedError creates a retryable recipient resolution error.
func NewRecipientLookupFailedError(organizationID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecipientLookupFailed,
		Message:   "Recipient resolution failed",
		Details:   fmt.Sprintf("organizationId: %s, error: %s", organizationID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPreferenceLookupFailedError creates a retryable preference load error.
func NewPreferenceLookupFailedError(recipientID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePreferenceLookupFailed,
		Message:   "Notification preference lookup failed",
		Details:   fmt.Sprintf("recipientId: %s, error: %s", recipientID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewTemplateNotFoundError creates a non-retryable template error. With a
// closed kind set this only fires for a kind missing from the registry.
func NewTemplateNotFoundError(kind string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateNotFound,
		Message:   "No template registered for notification kind",
		Details:   fmt.Sprintf("kind: %s", kind),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPayloadValidationFailedError creates a non-retryable payload error.
func NewPayloadValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePayloadValidationFailed,
		Message:   "Notification payload failed schema validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDeliveryFailedError creates a retryable transport error.
func NewDeliveryFailedError(kind string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDeliveryFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("kind: %s, error: %s", kind, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuditWriteFailedError creates a retryable audit append error.
func NewAuditWriteFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuditWriteFailed,
		Message:   "Delivery log append failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewGuardUpdateFailedError creates a retryable guard flag update error.
func NewGuardUpdateFailedError(assetID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeGuardUpdateFailed,
		Message:   "Guard flag update failed",
		Details:   fmt.Sprintf("assetId: %s, error: %s", assetID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRunAlreadyInProgressError creates a non-retryable lock contention error.
func NewRunAlreadyInProgressError(job string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRunAlreadyInProgress,
		Message:   "A run of this job is already in progress",
		Details:   fmt.Sprintf("job: %s", job),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// IsRetryable reports whether err carries a retryable StandardError. Plain
// errors default to non-retryable.
func IsRetryable(err error) bool {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr.Retryable
	}
	return false
}

// CodeOf extracts the error code, or INTERNAL_ERROR for plain errors.
func CodeOf(err error) ErrorCode {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr.Code
	}
	return "INTERNAL_ERROR"
}
