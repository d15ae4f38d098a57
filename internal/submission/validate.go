package submission

import (
	"strings"
	"time"

	apperrors "apply-desk/internal/common/errors"
	"apply-desk/internal/models"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// User-facing messages, shown verbatim.
const (
	MsgRequiredFields   = "필수 항목을 모두 입력해주세요.\n(공사요청, 연락처, 공사 희망일)"
	MsgPastStartDate    = "공사 희망일은 오늘 날짜 이후로 선택해주세요."
	MsgInvalidStartDate = "공사 희망일 형식이 올바르지 않습니다. (YYYY-MM-DD)"
	MsgConsentRequired  = "개인정보 수집 및 이용에 동의해주세요."
	MsgSubmissionFailed = "신청서 제출 중 오류가 발생했습니다.\n잠시 후 다시 시도해주세요."
)

const DateLayout = "2006-01-02"

// Validate checks a trimmed draft in order: required fields, start date not
// before today, consent. today is taken date-only in its own location. The
// first failure is returned as a VALIDATION_FAILED error.
func Validate(draft models.ApplicationDraft, today time.Time) error {
	required := []struct {
		field string
		value string
	}{
		{"name", draft.Name},
		{"phone", draft.Phone},
		{"startDate", draft.StartDate},
	}
	for _, f := range required {
		if err := validation.Validate(f.value, validation.Required.Error(MsgRequiredFields)); err != nil {
			return apperrors.NewValidationError(f.field, err.Error())
		}
	}

	// the date rule parses in UTC, so compare against today's calendar date in UTC
	minDate := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	if err := validation.Validate(draft.StartDate,
		validation.Date(DateLayout).Min(minDate).Error(MsgInvalidStartDate).RangeError(MsgPastStartDate),
	); err != nil {
		return apperrors.NewValidationError("startDate", err.Error())
	}

	if err := validation.Validate(draft.Privacy, validation.Required.Error(MsgConsentRequired)); err != nil {
		return apperrors.NewValidationError("privacy", err.Error())
	}
	return nil
}

// Clean trims every text field of the draft.
func Clean(draft models.ApplicationDraft) models.ApplicationDraft {
	draft.Name = strings.TrimSpace(draft.Name)
	draft.Phone = strings.TrimSpace(draft.Phone)
	draft.WorkType = strings.TrimSpace(draft.WorkType)
	draft.StartDate = strings.TrimSpace(draft.StartDate)
	draft.Description = strings.TrimSpace(draft.Description)
	return draft
}
