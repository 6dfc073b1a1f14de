package models

// Appointment is a medical appointment for a patient.
type Appointment struct {
	ID        int64  `json:"id"`
	PatientID int64  `json:"patient_id"`
	Title     string `json:"title"`
	Place     string `json:"place,omitempty"`
	DateTime  string `json:"date_time"` // YYYY-MM-DDTHH:MM[:SS]
}
