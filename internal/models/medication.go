package models

// Medication is the backend's view of a prescribed medication (read-only here).
type Medication struct {
	ID             int64  `json:"id"`
	PatientID      int64  `json:"patient_id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	Dose           string `json:"dose,omitempty"`
	FrequencyHours int    `json:"frequency_hours"`
	StartTime      string `json:"start_time,omitempty"` // "HH:MM"
	PathologyID    *int64 `json:"pathology_id,omitempty"`
	NationalCode   string `json:"national_code,omitempty"`
	StockAlert     *int   `json:"stock_alert,omitempty"`
}

// Owned reports whether the medication is already assigned to a patient.
func (m Medication) Owned() bool {
	return m.PatientID != 0
}
