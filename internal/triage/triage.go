// Package triage ranks caregiver patients by urgency.
package triage

import (
	"strings"

	"healthguard/internal/models"
)

type Level int

const (
	Stable Level = iota
	Warning
	Critical
)

func (l Level) String() string {
	switch l {
	case Critical:
		return "CRITICAL"
	case Warning:
		return "WARNING"
	case Stable:
		return "STABLE"
	}
	return "UNKNOWN"
}

const (
	ColorCritical = "#D32F2F"
	ColorWarning  = "#FFA000"
	ColorStable   = "#388E3C"

	highRiskAdherence = 30
	reviewAdherence   = 80
)

// Result is the triage of one patient.
type Result struct {
	Level Level  `json:"-"`
	Color string `json:"color"`
	Label string `json:"label"`
}

func hasSOS(p models.PatientSummary) bool {
	if p.AlertMessage == nil {
		return false
	}
	msg := strings.TrimSpace(*p.AlertMessage)
	return msg != "" && strings.Contains(strings.ToUpper(msg), "SOS")
}

// Analyze applies the rules in priority order: SOS message, critical
// status or adherence under 30, warning status or adherence under 80.
func Analyze(p models.PatientSummary) Result {
	switch {
	case hasSOS(p):
		return Result{Level: Critical, Color: ColorCritical, Label: "SOS ACTIVE"}
	case p.Status == models.PatientCritical || p.Adherence < highRiskAdherence:
		return Result{Level: Critical, Color: ColorCritical, Label: "HIGH RISK"}
	case p.Status == models.PatientWarning || p.Adherence < reviewAdherence:
		return Result{Level: Warning, Color: ColorWarning, Label: "REVIEW"}
	default:
		return Result{Level: Stable, Color: ColorStable, Label: "STABLE"}
	}
}

// IsEmergency selects patients the caregiver is pushed an alert for.
func IsEmergency(p models.PatientSummary) bool {
	return p.Status == models.PatientCritical || hasSOS(p)
}
