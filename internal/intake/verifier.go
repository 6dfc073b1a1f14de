// Package intake checks scanned medication packages against the schedule.
package intake

import (
	"time"

	"healthguard/internal/models"
	"healthguard/internal/schedule"
)

// DefaultToleranceMinutes is how far from a slot a scan still counts as on schedule.
const DefaultToleranceMinutes = 5

// OutcomeKind classifies a scanned code against the medication list.
type OutcomeKind int

const (
	NoMatch OutcomeKind = iota
	OffSchedule
	OnSchedule
)

func (k OutcomeKind) String() string {
	switch k {
	case OnSchedule:
		return "ON_SCHEDULE"
	case OffSchedule:
		return "OFF_SCHEDULE"
	}
	return "NO_MATCH"
}

// Outcome of a verification. Medication and Slot are set unless Kind is
// NoMatch; Distance is minutes from the nearest slot.
type Outcome struct {
	Kind       OutcomeKind
	Medication *models.Medication
	Slot       string
	Distance   int
}

// Verifier matches scanned codes to medications and their dose slots.
type Verifier struct {
	toleranceMinutes int
}

// NewVerifier returns a Verifier accepting scans within toleranceMinutes of
// a slot. A negative tolerance selects DefaultToleranceMinutes.
func NewVerifier(toleranceMinutes int) *Verifier {
	if toleranceMinutes < 0 {
		toleranceMinutes = DefaultToleranceMinutes
	}
	return &Verifier{toleranceMinutes: toleranceMinutes}
}

// Match returns the first medication whose national code equals code,
// ignoring surrounding whitespace and leading zeros.
func Match(code string, meds []models.Medication) *models.Medication {
	want := NormalizeCode(code)
	if want == "" {
		return nil
	}
	for i := range meds {
		if meds[i].NationalCode != "" && NormalizeCode(meds[i].NationalCode) == want {
			return &meds[i]
		}
	}
	return nil
}

// Verify matches code against meds and checks now against the matched
// medication's nearest slot.
func (v *Verifier) Verify(code string, meds []models.Medication, now time.Time) Outcome {
	med := Match(code, meds)
	if med == nil {
		return Outcome{Kind: NoMatch}
	}

	slot, distance, ok := schedule.Nearest(schedule.ForMedication(*med), schedule.At(now.Hour(), now.Minute()))
	if !ok {
		return Outcome{Kind: NoMatch}
	}

	out := Outcome{Kind: OffSchedule, Medication: med, Slot: slot.String(), Distance: distance}
	if distance <= v.toleranceMinutes {
		out.Kind = OnSchedule
	}
	return out
}
