package alarm

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"healthguard/internal/models"
	"healthguard/internal/schedule"

	"go.uber.org/zap"
)

// ErrAppointmentInPast is returned when an appointment is not in the future.
var ErrAppointmentInPast = errors.New("appointment is not in the future")

// DefaultWindow is the inexact window used without the exact permission.
const DefaultWindow = 10 * time.Minute

// slotIDSpace bounds the slots per medication; 24 slots fit well inside it.
const slotIDSpace = 10000

// TriggerID is medicationID*10000 + slotIndex.
func TriggerID(medicationID int64, slotIndex int) int64 {
	return medicationID*slotIDSpace + int64(slotIndex)
}

// AppointmentTriggerID hashes title and date-time into the negative id
// space, which medication ids never use.
func AppointmentTriggerID(title, dateTime string) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(title))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(dateTime))
	return -(int64(h.Sum32()) + 1)
}

// Scheduler registers medication and appointment triggers with a Facility.
type Scheduler struct {
	facility Facility
	window   time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	known   map[int64]int // medication id -> registered slot count
	adopted bool
}

// NewScheduler creates a scheduler. window <= 0 uses DefaultWindow.
func NewScheduler(facility Facility, window time.Duration, logger *zap.Logger) *Scheduler {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Scheduler{
		facility: facility,
		window:   window,
		logger:   logger,
		now:      time.Now,
		known:    make(map[int64]int),
	}
}

// SetClock replaces the wall clock (tests).
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// NextOccurrence is today at slot when still ahead of now, else tomorrow.
func NextOccurrence(now time.Time, slot schedule.TimeOfDay) time.Time {
	t := time.Date(now.Year(), now.Month(), now.Day(), slot.Hour, slot.Minute, 0, 0, now.Location())
	if !t.After(now) {
		t = time.Date(now.Year(), now.Month(), now.Day()+1, slot.Hour, slot.Minute, 0, 0, now.Location())
	}
	return t
}

// ScheduleForMedication registers one trigger per daily slot, in slot order.
// Registration failures are logged and never returned.
func (s *Scheduler) ScheduleForMedication(ctx context.Context, med models.Medication) {
	slots := schedule.ForMedication(med)
	now := s.now()

	for i, slot := range slots {
		t := Trigger{
			ID:     TriggerID(med.ID, i),
			FireAt: NextOccurrence(now, slot),
			Payload: models.AlarmPayload{
				MedicationID: med.ID,
				Name:         med.Name,
				Description:  med.Description,
				Slot:         slot.String(),
				Kind:         models.AlarmMedication,
			},
		}
		if err := s.register(ctx, t); err != nil {
			s.logger.Error("Failed to register medication alarm",
				zap.Int64("medication_id", med.ID),
				zap.String("slot", t.Payload.Slot),
				zap.Int64("trigger_id", t.ID),
				zap.Error(err),
			)
		}
	}

	s.mu.Lock()
	prev := s.known[med.ID]
	s.known[med.ID] = len(slots)
	s.mu.Unlock()

	// fewer slots than last time: drop the leftover triggers
	for i := len(slots); i < prev; i++ {
		s.cancel(ctx, med.ID, TriggerID(med.ID, i))
	}
}

// ScheduleAppointment registers a one-shot reminder at dateTime
// (YYYY-MM-DDTHH:MM[:SS], local time) and returns its trigger id.
func (s *Scheduler) ScheduleAppointment(ctx context.Context, title, dateTime string) (int64, error) {
	now := s.now()
	target, err := parseLocalDateTime(dateTime, now.Location())
	if err != nil {
		return 0, err
	}
	if !target.After(now) {
		return 0, ErrAppointmentInPast
	}

	t := Trigger{
		ID:     AppointmentTriggerID(title, dateTime),
		FireAt: target,
		Payload: models.AlarmPayload{
			Name: title,
			Slot: schedule.At(target.Hour(), target.Minute()).String(),
			Kind: models.AlarmAppointment,
		},
	}
	if err := s.register(ctx, t); err != nil {
		return 0, fmt.Errorf("failed to register appointment alarm: %w", err)
	}

	s.logger.Info("Appointment alarm registered",
		zap.String("title", title),
		zap.Time("fire_at", target),
		zap.Int64("trigger_id", t.ID),
	)
	return t.ID, nil
}

// CancelMedication removes every trigger registered for the medication.
func (s *Scheduler) CancelMedication(ctx context.Context, med models.Medication) {
	s.mu.Lock()
	n, ok := s.known[med.ID]
	delete(s.known, med.ID)
	s.mu.Unlock()

	if !ok {
		n = schedule.SlotCount(med.FrequencyHours)
	}
	for i := 0; i < n; i++ {
		s.cancel(ctx, med.ID, TriggerID(med.ID, i))
	}
}

// Sync re-arms every medication in meds and cancels the triggers of
// medications seen by a previous call but missing now.
func (s *Scheduler) Sync(ctx context.Context, meds []models.Medication) {
	s.adopt(ctx)

	present := make(map[int64]struct{}, len(meds))
	for _, med := range meds {
		present[med.ID] = struct{}{}
		s.ScheduleForMedication(ctx, med)
	}

	s.mu.Lock()
	var gone []models.Medication
	for id := range s.known {
		if _, ok := present[id]; !ok {
			gone = append(gone, models.Medication{ID: id})
		}
	}
	s.mu.Unlock()

	for _, med := range gone {
		s.logger.Info("Medication removed, cancelling alarms", zap.Int64("medication_id", med.ID))
		s.CancelMedication(ctx, med)
	}
}

// adopt seeds known from the facility's persisted triggers once. A failed
// listing is retried on the next Sync.
func (s *Scheduler) adopt(ctx context.Context) {
	lister, ok := s.facility.(TriggerLister)
	if !ok {
		return
	}
	s.mu.Lock()
	done := s.adopted
	s.mu.Unlock()
	if done {
		return
	}

	ids, err := lister.MedicationTriggerIDs(ctx)
	if err != nil {
		s.logger.Warn("Failed to list registered alarms", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if id < 0 {
			continue
		}
		medID, n := id/slotIDSpace, int(id%slotIDSpace)+1
		if n > s.known[medID] {
			s.known[medID] = n
		}
	}
	s.adopted = true
	s.logger.Info("Adopted registered alarms", zap.Int("triggers", len(ids)))
}

// register uses an exact trigger when permitted, else a window trigger.
// A permission revoked mid-call falls back to the window as well.
func (s *Scheduler) register(ctx context.Context, t Trigger) error {
	if !s.facility.CanScheduleExact(ctx) {
		return s.facility.ScheduleWindow(ctx, t, s.window)
	}

	err := s.facility.ScheduleExact(ctx, t)
	if errors.Is(err, ErrExactNotPermitted) {
		s.logger.Warn("Exact alarm rejected, using window",
			zap.Int64("trigger_id", t.ID),
		)
		return s.facility.ScheduleWindow(ctx, t, s.window)
	}
	return err
}

func (s *Scheduler) cancel(ctx context.Context, medID, id int64) {
	if err := s.facility.Cancel(ctx, id); err != nil {
		s.logger.Error("Failed to cancel alarm",
			zap.Int64("medication_id", medID),
			zap.Int64("trigger_id", id),
			zap.Error(err),
		)
	}
}

func parseLocalDateTime(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid appointment date-time %q", s)
}
