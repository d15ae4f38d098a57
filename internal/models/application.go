package models

import (
	"fmt"
	"time"
)

// Persistence path an application ended up on.
const (
	StatusRemote      = "remote"
	StatusLocalBackup = "local_backup"
)

// ApplicationDraft is the raw form field set handed to the submission
// pipeline. Dates are YYYY-MM-DD strings as entered.
type ApplicationDraft struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	WorkType    string `json:"workType,omitempty"`
	StartDate   string `json:"startDate,omitempty"`
	Description string `json:"description,omitempty"`
	Privacy     bool   `json:"privacy"`
}

// Application is a persisted submission. ID is assigned by the remote store
// or synthesized as LOCAL-YYYYMMDD-NNNN by the fallback ledger;
// ApplicationNumber is the canonical number shown to the applicant and used
// in notifications.
type Application struct {
	ID                string    `json:"id"`
	ApplicationNumber string    `json:"application_number"`
	Name              string    `json:"name"`
	Phone             string    `json:"phone"`
	WorkType          string    `json:"workType,omitempty"`
	WorkTypeDisplay   string    `json:"work_type_display,omitempty"`
	StartDate         string    `json:"startDate,omitempty"`
	Description       string    `json:"description,omitempty"`
	Privacy           bool      `json:"privacy"`
	SubmittedAt       time.Time `json:"submitted_at"`
	Status            string    `json:"status"`
	EmailSent         bool      `json:"email_sent,omitempty"`
}

// IsLocal reports whether the record lives only in the fallback ledger.
func (a *Application) IsLocal() bool {
	return a.Status == StatusLocalBackup
}

// FormatNumber renders PREFIX-YYYYMMDD-NNNN with the date taken in t's
// location.
func FormatNumber(prefix string, t time.Time, suffix int) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, t.Format("20060102"), suffix)
}
