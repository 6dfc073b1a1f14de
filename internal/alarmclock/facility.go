package alarmclock

import (
	"context"
	"sync/atomic"
	"time"

	"healthguard/internal/alarm"

	"go.uber.org/zap"
)

// Registry is the persistence the facility writes through.
type Registry interface {
	Upsert(ctx context.Context, t alarm.Trigger, exact bool, window time.Duration) error
	Delete(ctx context.Context, triggerID int64) error
	MedicationTriggerIDs(ctx context.Context) ([]int64, error)
}

// Facility implements alarm.Facility on top of a Registry. The exact-alarm
// permission can be toggled at runtime.
type Facility struct {
	registry Registry
	exact    atomic.Bool
	logger   *zap.Logger
}

// NewFacility creates a facility with the given initial permission.
func NewFacility(registry Registry, exactPermitted bool, logger *zap.Logger) *Facility {
	f := &Facility{registry: registry, logger: logger}
	f.exact.Store(exactPermitted)
	return f
}

// SetExactPermitted grants or revokes the exact-alarm permission.
func (f *Facility) SetExactPermitted(permitted bool) {
	f.exact.Store(permitted)
	f.logger.Info("Exact alarm permission changed", zap.Bool("permitted", permitted))
}

func (f *Facility) CanScheduleExact(ctx context.Context) bool {
	return f.exact.Load()
}

func (f *Facility) ScheduleExact(ctx context.Context, t alarm.Trigger) error {
	if !f.exact.Load() {
		return alarm.ErrExactNotPermitted
	}
	return f.registry.Upsert(ctx, t, true, 0)
}

func (f *Facility) ScheduleWindow(ctx context.Context, t alarm.Trigger, window time.Duration) error {
	return f.registry.Upsert(ctx, t, false, window)
}

func (f *Facility) Cancel(ctx context.Context, id int64) error {
	return f.registry.Delete(ctx, id)
}

func (f *Facility) MedicationTriggerIDs(ctx context.Context) ([]int64, error) {
	return f.registry.MedicationTriggerIDs(ctx)
}
