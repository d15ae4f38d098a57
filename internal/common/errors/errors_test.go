package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardError_Error(t *testing.T) {
	se := NewRemoteUnavailableError("insert application", stderrors.New("connection refused"))
	assert.Equal(t,
		"StandardError[REMOTE_UNAVAILABLE]: Remote store unavailable during insert application (connection refused)",
		se.Error())

	bare := NewInternalError(nil)
	assert.Equal(t, "StandardError[INTERNAL_ERROR]: Unexpected error", bare.Error())
}

func TestStandardError_UnwrapKeepsSentinel(t *testing.T) {
	sentinel := stderrors.New("quota exhausted")
	wrapped := fmt.Errorf("send: %w", NewNotificationInitFailedError(3, sentinel))

	assert.True(t, stderrors.Is(wrapped, sentinel))

	se, ok := AsStandard(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeNotificationInitFailed, se.Code)
	assert.Equal(t, 3, se.Metadata["attempts"])
	assert.True(t, HasCode(wrapped, ErrCodeNotificationInitFailed))
	assert.False(t, HasCode(stderrors.New("plain"), ErrCodeNotificationInitFailed))
}

func TestNewValidationError_MessageIsVerbatim(t *testing.T) {
	se := NewValidationError("phone", "연락처를 입력해주세요.")
	assert.Equal(t, "연락처를 입력해주세요.", se.Message)
	assert.Equal(t, "field: phone", se.Details)
	assert.Equal(t, "phone", se.Metadata["field"])
	assert.False(t, se.Retryable)
}

func TestNewNotificationTimeoutError(t *testing.T) {
	se := NewNotificationTimeoutError("admin@example.com", 30*time.Second, nil)
	assert.Equal(t, "recipient: admin@example.com, timeout: 30s", se.Details)
	assert.True(t, se.Retryable)
}

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name        string
		err         *StandardError
		wantCode    string
		wantRetries int
	}{
		{"validation is thrown", NewValidationError("name", "required"), "APPLICATION_REJECTED", 0},
		{"remote outage retries", NewRemoteUnavailableError("insert", stderrors.New("x")), "REMOTE_UNAVAILABLE", 3},
		{"engine outage retries", NewEngineUnavailableError("start process", stderrors.New("x")), "ENGINE_UNAVAILABLE", 3},
		{"engine rejection is final", NewEngineRejectedError("start process", stderrors.New("x")), "ENGINE_REJECTED", 0},
		{"send failure retries twice", NewNotificationSendFailedError("a@b.kr", stderrors.New("x")), "NOTIFICATION_SEND_FAILED", 2},
		{"unmapped code passes through", NewInternalError(stderrors.New("x")), "INTERNAL_ERROR", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ConvertToBPMNError(tt.err)
			assert.Equal(t, tt.wantCode, b.Code)
			assert.Equal(t, tt.wantRetries, b.Retries)
			assert.Equal(t, string(tt.err.Code), b.ErrorVariables["originalErrorCode"])
		})
	}
}

func TestConvertToBPMNError_NonRetryableOverridesBudget(t *testing.T) {
	se := NewRemoteUnavailableError("insert", nil)
	se.Retryable = false
	assert.Equal(t, 0, ConvertToBPMNError(se).Retries)
}

func TestBPMNError_ToErrorVariablesMergesMetadata(t *testing.T) {
	b := ConvertToBPMNError(NewEngineUnavailableError("start process", stderrors.New("unavailable")).
		WithMetadata("attempts", 4))

	vars := b.ToErrorVariables()
	assert.Equal(t, "ENGINE_UNAVAILABLE", vars["errorCode"])
	assert.Equal(t, "unavailable", vars["errorDetails"])
	assert.Equal(t, true, vars["retryable"])
	assert.Equal(t, 4, vars["attempts"])
	assert.Equal(t, "start process", vars["operation"])
}

func TestGetErrorCategory(t *testing.T) {
	for code, want := range map[ErrorCode]string{
		ErrCodeValidationFailed:       "VALIDATION",
		ErrCodeInputValidationFailed:  "VALIDATION",
		ErrCodeNotificationTimeout:    "NOTIFICATION",
		ErrCodeSettingsRejected:       "SETTINGS",
		ErrCodeEngineRejected:         "ENGINE",
		ErrCodeLedgerWriteFailed:      "PERSISTENCE",
		ErrCodeSubmissionFailed:       "PERSISTENCE",
		ErrCodeInternal:               "OTHER",
	} {
		assert.Equal(t, want, GetErrorCategory(code), code)
	}
}

func TestIsRetryableErrorCode(t *testing.T) {
	assert.True(t, IsRetryableErrorCode(ErrCodeSettingsSyncFailed))
	assert.True(t, IsRetryableErrorCode(ErrCodeNotificationTimeout))
	assert.False(t, IsRetryableErrorCode(ErrCodeLedgerWriteFailed))
	assert.False(t, IsRetryableErrorCode(ErrCodeInputValidationFailed))
}

func TestNormalizeError(t *testing.T) {
	plain := stderrors.New("boom")
	se := normalizeError(plain)
	assert.Equal(t, ErrCodeInternal, se.Code)
	assert.Equal(t, "boom", se.Details)
	assert.True(t, stderrors.Is(se, plain))

	orig := NewSettingsSyncFailedError(plain)
	assert.Same(t, orig, normalizeError(fmt.Errorf("wrapped: %w", orig)))
}

func TestDecideOutcome(t *testing.T) {
	retryable := ConvertToBPMNError(NewSubmissionFailedError("failed", stderrors.New("x")))
	final := ConvertToBPMNError(NewValidationError("phone", "required"))

	tests := []struct {
		name        string
		bpmnErr     *BPMNError
		jobRetries  int32
		wantRetries int32
		wantOutcome JobOutcome
	}{
		{"retryable with retries left", retryable, 3, 2, OutcomeFailed},
		{"budget caps reported retries", retryable, 10, 3, OutcomeFailed},
		{"last retry fails to zero for an incident", retryable, 1, 0, OutcomeFailed},
		{"no retries left is thrown", retryable, 0, 0, OutcomeThrown},
		{"non-retryable is thrown", final, 3, 0, OutcomeThrown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retries, outcome := decideOutcome(tt.bpmnErr, tt.jobRetries)
			assert.Equal(t, tt.wantOutcome, outcome)
			assert.Equal(t, tt.wantRetries, retries)
		})
	}
}
