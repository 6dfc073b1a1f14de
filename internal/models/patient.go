package models

// PatientStatus is the backend's coarse patient state.
type PatientStatus string

const (
	PatientCritical PatientStatus = "CRITICAL"
	PatientWarning  PatientStatus = "WARNING"
	PatientStable   PatientStatus = "STABLE"
)

// PatientSummary is one entry of a caregiver's patient list.
type PatientSummary struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	PhotoURL     string        `json:"photo_url,omitempty"`
	Status       PatientStatus `json:"status"`
	AlertMessage *string       `json:"alert_message,omitempty"`
	Adherence    int           `json:"adherence"` // percent
}
