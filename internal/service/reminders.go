package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"healthguard/internal/alarm"
	"healthguard/internal/models"
	"healthguard/internal/schedule"
	"healthguard/internal/session"

	"go.uber.org/zap"
)

// PatientBackend is the part of the backend the reload cycle reads.
type PatientBackend interface {
	ListMedicationsForPatient(ctx context.Context, patientID int64) ([]models.Medication, error)
	ListAppointments(ctx context.Context, patientID int64) ([]models.Appointment, error)
	CreateMedication(ctx context.Context, med models.Medication) (*models.Medication, error)
	DeleteMedication(ctx context.Context, medicationID int64) error
}

type AlarmScheduler interface {
	Sync(ctx context.Context, meds []models.Medication)
	ScheduleForMedication(ctx context.Context, med models.Medication)
	CancelMedication(ctx context.Context, med models.Medication)
	ScheduleAppointment(ctx context.Context, title, dateTime string) (int64, error)
}

// Reminders keeps the medication cache and the armed alarms in step with
// the backend.
type Reminders struct {
	sess      *session.Session
	backend   PatientBackend
	scheduler AlarmScheduler
	cache     *MedicationCache
	logger    *zap.Logger
}

func NewReminders(sess *session.Session, backend PatientBackend, scheduler AlarmScheduler, cache *MedicationCache, logger *zap.Logger) *Reminders {
	return &Reminders{
		sess:      sess,
		backend:   backend,
		scheduler: scheduler,
		cache:     cache,
		logger:    logger,
	}
}

// Reload refreshes the cache, re-arms every medication and schedules the
// upcoming appointments. A failed medication list keeps the previous cache.
func (r *Reminders) Reload(ctx context.Context) error {
	meds, err := r.backend.ListMedicationsForPatient(ctx, r.sess.PatientID)
	if err != nil {
		return fmt.Errorf("failed to list medications: %w", err)
	}
	r.cache.Replace(meds)

	if !r.sess.SchedulesReminders() {
		r.logger.Debug("Session does not schedule reminders",
			zap.String("role", r.sess.Role.String()),
			zap.Int("medications", len(meds)),
		)
		return nil
	}
	r.scheduler.Sync(ctx, meds)

	appointments, err := r.backend.ListAppointments(ctx, r.sess.PatientID)
	if err != nil {
		r.logger.Warn("Failed to list appointments", zap.Error(err))
		return nil
	}
	scheduled := 0
	for _, a := range appointments {
		if _, err := r.scheduler.ScheduleAppointment(ctx, a.Title, a.DateTime); err != nil {
			if !errors.Is(err, alarm.ErrAppointmentInPast) {
				r.logger.Warn("Failed to schedule appointment",
					zap.Int64("appointment_id", a.ID),
					zap.String("date_time", a.DateTime),
					zap.Error(err),
				)
			}
			continue
		}
		scheduled++
	}

	r.logger.Info("Reminders reloaded",
		zap.Int("medications", len(meds)),
		zap.Int("appointments", scheduled),
	)
	return nil
}

// AddMedication creates the medication for the session's patient and arms
// its alarms right away instead of waiting for the next reload.
func (r *Reminders) AddMedication(ctx context.Context, med models.Medication) (*models.Medication, error) {
	med.PatientID = r.sess.PatientID
	med.FrequencyHours = schedule.NormalizeFrequency(med.FrequencyHours)
	created, err := r.backend.CreateMedication(ctx, med)
	if err != nil {
		return nil, err
	}
	r.cache.Put(*created)

	if r.sess.SchedulesReminders() {
		r.scheduler.ScheduleForMedication(ctx, *created)
	}
	r.logger.Info("Medication created",
		zap.Int64("medication_id", created.ID),
		zap.String("name", created.Name),
	)
	return created, nil
}

// RemoveMedication deletes the medication at the backend and cancels its
// alarms.
func (r *Reminders) RemoveMedication(ctx context.Context, medicationID int64) error {
	if err := r.backend.DeleteMedication(ctx, medicationID); err != nil {
		return err
	}
	med, ok := r.cache.Remove(medicationID)
	if !ok {
		med = models.Medication{ID: medicationID}
	}
	r.scheduler.CancelMedication(ctx, med)
	r.logger.Info("Medication deleted", zap.Int64("medication_id", medicationID))
	return nil
}

// Run reloads once, then on every tick until ctx is cancelled.
func (r *Reminders) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := r.Reload(ctx); err != nil {
		r.logger.Error("Failed to load reminders on startup", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Reload(ctx); err != nil {
				r.logger.Error("Failed to reload reminders", zap.Error(err))
			}
		}
	}
}
