// Package alarm turns medications and appointments into registered triggers.
package alarm

import (
	"context"
	"errors"
	"time"

	"healthguard/internal/models"
)

// ErrExactNotPermitted is returned by ScheduleExact when the exact-alarm
// permission was revoked between the check and the registration.
var ErrExactNotPermitted = errors.New("exact alarms not permitted")

// Trigger is one registration with the alarm facility. Registering an
// existing ID replaces the previous registration.
type Trigger struct {
	ID      int64
	FireAt  time.Time
	Payload models.AlarmPayload
}

// Facility is the device alarm service.
type Facility interface {
	CanScheduleExact(ctx context.Context) bool
	ScheduleExact(ctx context.Context, t Trigger) error
	// ScheduleWindow fires somewhere in [t.FireAt, t.FireAt+window].
	ScheduleWindow(ctx context.Context, t Trigger, window time.Duration) error
	Cancel(ctx context.Context, id int64) error
}

// TriggerLister is implemented by facilities whose registrations outlive the
// process. The scheduler adopts the listed medication triggers on its first
// Sync so that triggers armed by an earlier run can still be cancelled.
type TriggerLister interface {
	MedicationTriggerIDs(ctx context.Context) ([]int64, error)
}
