// Package errors provides the structured error taxonomy shared by the
// submission pipeline and the workflow job handlers.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// user-correctable, reported immediately
	ErrCodeValidationFailed      ErrorCode = "VALIDATION_FAILED"
	ErrCodeInputValidationFailed ErrorCode = "INPUT_VALIDATION_FAILED"

	// persistence
	ErrCodeRemoteUnavailable ErrorCode = "REMOTE_UNAVAILABLE"
	ErrCodeLedgerWriteFailed ErrorCode = "LEDGER_WRITE_FAILED"
	ErrCodeSubmissionFailed  ErrorCode = "SUBMISSION_FAILED"

	// notification relay
	ErrCodeNotificationInitFailed ErrorCode = "NOTIFICATION_INIT_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeNotificationTimeout    ErrorCode = "NOTIFICATION_TIMEOUT"

	// admin settings
	ErrCodeSettingsRejected   ErrorCode = "SETTINGS_REJECTED"
	ErrCodeSettingsSyncFailed ErrorCode = "SETTINGS_SYNC_FAILED"

	// workflow engine
	ErrCodeEngineUnavailable ErrorCode = "ENGINE_UNAVAILABLE"
	ErrCodeEngineRejected    ErrorCode = "ENGINE_REJECTED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause so sentinel checks keep working.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message string, cause error, retryable bool) *StandardError {
	se := &StandardError{
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
	if cause != nil {
		se.Details = cause.Error()
	}
	return se
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for job fail/throw variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewValidationError carries the user-facing message verbatim. Field names the
// failed form field.
func NewValidationError(field, message string) *StandardError {
	se := newError(ErrCodeValidationFailed, message, nil, false)
	se.Details = "field: " + field
	return se.WithMetadata("field", field)
}

// NewInputValidationError reports malformed job variables.
func NewInputValidationError(details string) *StandardError {
	se := newError(ErrCodeInputValidationFailed, "Input validation failed", nil, false)
	se.Details = details
	return se
}

func NewRemoteUnavailableError(operation string, err error) *StandardError {
	return newError(ErrCodeRemoteUnavailable, fmt.Sprintf("Remote store unavailable during %s", operation), err, true)
}

func NewLedgerWriteFailedError(err error) *StandardError {
	return newError(ErrCodeLedgerWriteFailed, "Local ledger write failed", err, false)
}

// NewSubmissionFailedError is the only persistence failure surfaced to a
// submitter. Message is shown as-is.
func NewSubmissionFailedError(message string, err error) *StandardError {
	return newError(ErrCodeSubmissionFailed, message, err, true)
}

func NewNotificationInitFailedError(attempts int, err error) *StandardError {
	return newError(ErrCodeNotificationInitFailed,
		fmt.Sprintf("Notification relay initialization failed after %d attempts", attempts), err, true).
		WithMetadata("attempts", attempts)
}

func NewNotificationSendFailedError(recipient string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification send failed", err, true).
		WithMetadata("recipient", recipient)
}

func NewNotificationTimeoutError(recipient string, timeout time.Duration, cause error) *StandardError {
	se := newError(ErrCodeNotificationTimeout, "Notification send timed out", cause, true)
	se.Details = fmt.Sprintf("recipient: %s, timeout: %s", recipient, timeout)
	return se.WithMetadata("recipient", recipient)
}

func NewSettingsRejectedError(details string, err error) *StandardError {
	se := newError(ErrCodeSettingsRejected, "Admin settings rejected", err, false)
	if details != "" {
		se.Details = details
	}
	return se
}

func NewSettingsSyncFailedError(err error) *StandardError {
	return newError(ErrCodeSettingsSyncFailed, "Admin settings sync failed", err, true)
}

// NewEngineUnavailableError reports a transient broker failure.
func NewEngineUnavailableError(operation string, err error) *StandardError {
	return newError(ErrCodeEngineUnavailable, fmt.Sprintf("Workflow engine unavailable during %s", operation), err, true).
		WithMetadata("operation", operation)
}

// NewEngineRejectedError reports a command the broker refused.
func NewEngineRejectedError(operation string, err error) *StandardError {
	return newError(ErrCodeEngineRejected, fmt.Sprintf("Workflow engine rejected %s", operation), err, false).
		WithMetadata("operation", operation)
}

// NewInternalError wraps anything that escaped classification.
func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err, false)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal codes to the error codes used by boundary
// events in the submission process model.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeValidationFailed:       "APPLICATION_REJECTED",
	ErrCodeInputValidationFailed:  "INPUT_VALIDATION_FAILED",
	ErrCodeSubmissionFailed:       "SUBMISSION_FAILED",
	ErrCodeSettingsRejected:       "SETTINGS_REJECTED",
	ErrCodeRemoteUnavailable:      "REMOTE_UNAVAILABLE",
	ErrCodeLedgerWriteFailed:      "LEDGER_WRITE_FAILED",
	ErrCodeNotificationInitFailed: "NOTIFICATION_INIT_FAILED",
	ErrCodeNotificationSendFailed: "NOTIFICATION_SEND_FAILED",
	ErrCodeNotificationTimeout:    "NOTIFICATION_TIMEOUT",
	ErrCodeSettingsSyncFailed:     "SETTINGS_SYNC_FAILED",
	ErrCodeEngineUnavailable:      "ENGINE_UNAVAILABLE",
	ErrCodeEngineRejected:         "ENGINE_REJECTED",
}

// GetRetryCount returns the job retry budget for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeSubmissionFailed,
		ErrCodeRemoteUnavailable,
		ErrCodeSettingsSyncFailed,
		ErrCodeEngineUnavailable:
		return 3

	case ErrCodeNotificationInitFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeNotificationTimeout:
		return 2

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, ok := BPMNErrorMapping[stdErr.Code]
	if !ok {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandard extracts a *StandardError from an error chain.
func AsStandard(err error) (*StandardError, bool) {
	var se *StandardError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// HasCode reports whether any StandardError in the chain carries code.
func HasCode(err error, code ErrorCode) bool {
	se, ok := AsStandard(err)
	return ok && se.Code == code
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory groups codes for log and metric labels.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	case strings.HasPrefix(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.HasPrefix(codeStr, "SETTINGS"):
		return "SETTINGS"
	case strings.HasPrefix(codeStr, "ENGINE"):
		return "ENGINE"
	case code == ErrCodeRemoteUnavailable || code == ErrCodeLedgerWriteFailed || code == ErrCodeSubmissionFailed:
		return "PERSISTENCE"
	default:
		return "OTHER"
	}
}
