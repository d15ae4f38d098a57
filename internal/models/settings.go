package models

import "time"

// MaxRecipients caps every contact list.
const MaxRecipients = 3

// RecipientList is an ordered contact list. The first entry is the primary
// contact.
type RecipientList []string

// Primary returns the first entry or "".
func (l RecipientList) Primary() string {
	if len(l) == 0 {
		return ""
	}
	return l[0]
}

// AdminSettings is the single admin_settings row for one deployment.
type AdminSettings struct {
	ApartmentID   string        `json:"apartment_id"`
	Title         string        `json:"title"`
	Phones        RecipientList `json:"phones"`
	Emails        RecipientList `json:"emails"`
	ApartmentName string        `json:"apartment_name,omitempty"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
