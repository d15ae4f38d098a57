package notification

import (
	"fmt"
	"time"

	"apply-desk/internal/models"
)

const (
	DefaultApartmentName   = "Speed 아파트"
	DefaultSubmissionLabel = "접수일시:"

	unknownWorkType    = "미상"
	unsetStartDate     = "미지정"
	defaultDescription = "특별한 요청사항 없음"
)

// TemplateParams is the fixed key set the relay template expects.
// SubmittedAt is sent under two keys for older template revisions.
type TemplateParams struct {
	ToEmail           string `json:"to_email"`
	ApartmentName     string `json:"apartment_name"`
	ApplicationNumber string `json:"application_number"`
	Name              string `json:"name"`
	Phone             string `json:"phone"`
	WorkTypeDisplay   string `json:"work_type_display"`
	StartDate         string `json:"start_date"`
	Description       string `json:"description"`
	SubmittedAt       string `json:"submittedAt"`
	SubmittedAtLegacy string `json:"submitted_at"`
	SubmissionLabel   string `json:"submission_label"`
}

// BuildTemplateParams fills the template for app. ToEmail is left empty; the
// dispatcher sets it per recipient.
func BuildTemplateParams(app *models.Application, displayName, label string, loc *time.Location) TemplateParams {
	if displayName == "" {
		displayName = DefaultApartmentName
	}
	if label == "" {
		label = DefaultSubmissionLabel
	}

	workType := app.WorkTypeDisplay
	if workType == "" {
		workType = models.WorkTypeLabel(app.WorkType)
	}
	if workType == "" {
		workType = unknownWorkType
	}

	number := app.ApplicationNumber
	if number == "" {
		number = app.ID
	}

	submitted := FormatKoreanTimestamp(app.SubmittedAt, loc)
	return TemplateParams{
		ApartmentName:     displayName,
		ApplicationNumber: number,
		Name:              app.Name,
		Phone:             app.Phone,
		WorkTypeDisplay:   workType,
		StartDate:         orDefault(app.StartDate, unsetStartDate),
		Description:       orDefault(app.Description, defaultDescription),
		SubmittedAt:       submitted,
		SubmittedAtLegacy: submitted,
		SubmissionLabel:   label,
	}
}

// WithRecipient returns a copy addressed to recipient.
func (p TemplateParams) WithRecipient(recipient string) TemplateParams {
	p.ToEmail = recipient
	return p
}

var koreanWeekdays = [...]string{"일요일", "월요일", "화요일", "수요일", "목요일", "금요일", "토요일"}

// FormatKoreanTimestamp renders t like "2025년 3월 1일 토요일 오후 02:30".
func FormatKoreanTimestamp(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	meridiem := "오전"
	hour := t.Hour()
	if hour >= 12 {
		meridiem = "오후"
	}
	hour %= 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d년 %d월 %d일 %s %s %02d:%02d",
		t.Year(), int(t.Month()), t.Day(), koreanWeekdays[t.Weekday()], meridiem, hour, t.Minute())
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
