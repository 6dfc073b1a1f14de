// Package schedule derives the daily dose slots of a medication.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"healthguard/internal/models"
)

const (
	minutesPerDay = 24 * 60

	// DefaultFrequencyHours replaces missing or non-positive frequencies.
	DefaultFrequencyHours = 24
)

// DefaultStart is used when a medication carries no usable start time.
var DefaultStart = TimeOfDay{Hour: 9}

// TimeOfDay is a wall-clock hour and minute.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// At builds a TimeOfDay, wrapping out-of-range values around the day.
func At(hour, minute int) TimeOfDay {
	return fromMinutes(hour*60 + minute)
}

func fromMinutes(m int) TimeOfDay {
	m %= minutesPerDay
	if m < 0 {
		m += minutesPerDay
	}
	return TimeOfDay{Hour: m / 60, Minute: m % 60}
}

// Minutes returns minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// String renders the zero-padded "HH:MM" slot label.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseTimeOfDay parses "H:MM" or "HH:MM". Seconds ("HH:MM:SS") are ignored.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid minute in %q", s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

// ParseTimeOfDayOr parses s and returns def when s is malformed.
func ParseTimeOfDayOr(s string, def TimeOfDay) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		return def
	}
	return t
}

// NormalizeFrequency clamps non-positive frequencies to once a day.
func NormalizeFrequency(hours int) int {
	if hours <= 0 {
		return DefaultFrequencyHours
	}
	return hours
}

// SlotCount is max(1, 24/frequencyHours). Frequencies that do not divide 24
// still produce floor(24/f) slots (7h gives 3).
func SlotCount(frequencyHours int) int {
	n := 24 / NormalizeFrequency(frequencyHours)
	if n < 1 {
		return 1
	}
	return n
}

// ComputeSlots returns the dose times of one day, starting at start and
// stepping frequencyHours each time, wrapping past midnight.
func ComputeSlots(start TimeOfDay, frequencyHours int) []TimeOfDay {
	f := NormalizeFrequency(frequencyHours)
	n := SlotCount(f)

	slots := make([]TimeOfDay, 0, n)
	cur := start.Minutes()
	for i := 0; i < n; i++ {
		slots = append(slots, fromMinutes(cur))
		cur += f * 60
	}
	return slots
}

// ForMedication applies the start-time and frequency defaults and computes
// the medication's slots.
func ForMedication(med models.Medication) []TimeOfDay {
	start := ParseTimeOfDayOr(med.StartTime, DefaultStart)
	return ComputeSlots(start, med.FrequencyHours)
}

// Labels renders slots as "HH:MM" strings.
func Labels(slots []TimeOfDay) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.String()
	}
	return out
}

// CircularDistance is the distance in minutes between two times on a
// 24-hour clock. It never exceeds 720.
func CircularDistance(a, b TimeOfDay) int {
	diff := a.Minutes() - b.Minutes()
	if diff < 0 {
		diff = -diff
	}
	if other := minutesPerDay - diff; other < diff {
		return other
	}
	return diff
}

// Nearest returns the slot closest to t and its distance. ok is false when
// slots is empty.
func Nearest(slots []TimeOfDay, t TimeOfDay) (slot TimeOfDay, distance int, ok bool) {
	distance = minutesPerDay
	for _, s := range slots {
		if d := CircularDistance(s, t); d < distance {
			slot, distance, ok = s, d, true
		}
	}
	return slot, distance, ok
}

// OccurrenceDay returns midnight of the day whose occurrence of slot lies
// closest to now. A 23:58 slot seen at 00:02 belongs to the previous day.
func OccurrenceDay(slot TimeOfDay, now time.Time) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	diff := slot.Minutes() - (now.Hour()*60 + now.Minute())
	switch {
	case diff > minutesPerDay/2:
		return day.AddDate(0, 0, -1)
	case diff < -minutesPerDay/2:
		return day.AddDate(0, 0, 1)
	}
	return day
}
