package models

import "time"

// AlarmKind distinguishes medication reminders from appointment reminders.
type AlarmKind string

const (
	AlarmMedication  AlarmKind = "MEDICATION"
	AlarmAppointment AlarmKind = "APPOINTMENT"
)

// AlarmPayload travels with a trigger and is handed back when it fires.
type AlarmPayload struct {
	MedicationID int64     `json:"medication_id,omitempty"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Slot         string    `json:"slot"` // "HH:MM"
	Kind         AlarmKind `json:"kind"`
}

// FiredAlarm is published on the fired-alarm stream when a trigger is due.
type FiredAlarm struct {
	EventID   string       `json:"event_id"`
	TriggerID int64        `json:"trigger_id"`
	FireAt    time.Time    `json:"fire_at"`
	FiredAt   time.Time    `json:"fired_at"`
	Exact     bool         `json:"exact"`
	Payload   AlarmPayload `json:"payload"`
}
