package models

import "strings"

// IntakeStatus is the backend intake record state.
type IntakeStatus string

const (
	IntakePending IntakeStatus = "PENDING"
	IntakeTaken   IntakeStatus = "TAKEN"
	IntakeOmitted IntakeStatus = "OMITTED"
)

// RemoteIntake is one backend intake record (backend-owned).
type RemoteIntake struct {
	ID             int64        `json:"id"`
	MedicationName string       `json:"medication_name"`
	ScheduledAt    string       `json:"scheduled_at"` // ISO date-time
	Status         IntakeStatus `json:"status"`
}

// ScheduledSlot returns the HH:MM part of ScheduledAt, or "" when it has none.
func (r RemoteIntake) ScheduledSlot() string {
	_, clock, ok := strings.Cut(r.ScheduledAt, "T")
	if !ok {
		_, clock, ok = strings.Cut(r.ScheduledAt, " ")
	}
	if !ok || len(clock) < 5 {
		return ""
	}
	return clock[:5]
}

// Backend verdicts returned by the intake verification endpoint.
const (
	VerdictOnSchedule = "ON_SCHEDULE"
	VerdictEarly      = "TOO_EARLY"
	VerdictUnknown    = "UNKNOWN"
)

// IntakeVerification is the backend's answer to a scanned code.
type IntakeVerification struct {
	Verdict    string      `json:"verdict"`
	Message    string      `json:"message"`
	Medication *Medication `json:"medication,omitempty"`
}
