package submitapplication

import "apply-desk/internal/models"

// Input is the form as collected by the process start form.
type Input struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	WorkType    string `json:"workType"`
	StartDate   string `json:"startDate"`
	Description string `json:"description"`
	Privacy     bool   `json:"privacy"`
}

func (in *Input) Draft() models.ApplicationDraft {
	return models.ApplicationDraft{
		Name:        in.Name,
		Phone:       in.Phone,
		WorkType:    in.WorkType,
		StartDate:   in.StartDate,
		Description: in.Description,
		Privacy:     in.Privacy,
	}
}

type Output struct {
	ApplicationID     string `json:"applicationId"`
	ApplicationNumber string `json:"applicationNumber"`
	ApplicationStatus string `json:"applicationStatus"`
	SubmissionPath    string `json:"submissionPath"`
	Notified          bool   `json:"notified"`
	SentCount         int    `json:"sentCount"`
	TotalAttempted    int    `json:"totalAttempted"`
	FallbackNotice    bool   `json:"fallbackNotice"`
	SubmittedAt       string `json:"submittedAt"` // ISO 8601
}
