// Package ledger records taken doses locally and reconciles them with the
// backend in the background.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"healthguard/internal/models"
	"healthguard/internal/store"

	"go.uber.org/zap"
)

const (
	DefaultKeyPrefix = "intake:"
	takenValue       = "true"
)

// IntakeBackend is the part of the backend the reconciliation uses.
type IntakeBackend interface {
	GetIntakesForDate(ctx context.Context, patientID int64, day time.Time) ([]models.RemoteIntake, error)
	UpdateIntakeStatus(ctx context.Context, intakeID int64, status models.IntakeStatus) error
}

// Ledger is the local record of taken doses. Local flags are never cleared.
type Ledger struct {
	kv        store.KV
	backend   IntakeBackend
	patientID int64
	prefix    string
	timeout   time.Duration
	logger    *zap.Logger

	wg sync.WaitGroup
}

// New creates a ledger for one patient. timeout bounds each reconciliation.
func New(kv store.KV, backend IntakeBackend, patientID int64, prefix string, timeout time.Duration, logger *zap.Logger) *Ledger {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Ledger{
		kv:        kv,
		backend:   backend,
		patientID: patientID,
		prefix:    prefix,
		timeout:   timeout,
		logger:    logger,
	}
}

// Key is <prefix>YYYY-MM-DD_<medicationID>_<HH:MM>.
func (l *Ledger) Key(day time.Time, medicationID int64, slot string) string {
	return fmt.Sprintf("%s%s_%d_%s", l.prefix, day.Format("2006-01-02"), medicationID, slot)
}

// MarkTaken writes the local flag and starts a detached reconciliation.
// Only the local write can fail the call.
func (l *Ledger) MarkTaken(ctx context.Context, med models.Medication, slot string, day time.Time) error {
	key := l.Key(day, med.ID, slot)
	if err := l.kv.Set(ctx, key, takenValue, 0); err != nil {
		return fmt.Errorf("failed to record intake locally: %w", err)
	}

	l.logger.Info("Intake recorded locally",
		zap.Int64("medication_id", med.ID),
		zap.String("slot", slot),
	)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		rctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		defer cancel()

		if err := l.reconcile(rctx, med.Name, slot, day); err != nil {
			l.logger.Warn("Intake reconciliation failed",
				zap.Int64("medication_id", med.ID),
				zap.String("slot", slot),
				zap.Int64("patient_id", l.patientID),
				zap.Error(err),
			)
		}
	}()
	return nil
}

// IsTaken reads the local flag. Store errors read as not taken.
func (l *Ledger) IsTaken(ctx context.Context, medicationID int64, slot string, day time.Time) bool {
	v, err := l.kv.Get(ctx, l.Key(day, medicationID, slot))
	if err != nil {
		if !errors.Is(err, store.ErrMiss) {
			l.logger.Warn("Failed to read intake flag",
				zap.Int64("medication_id", medicationID),
				zap.String("slot", slot),
				zap.Error(err),
			)
		}
		return false
	}
	return v == takenValue
}

// Wait blocks until in-flight reconciliations finish.
func (l *Ledger) Wait() {
	l.wg.Wait()
}

// reconcile marks the matching PENDING backend record TAKEN. No match is a
// no-op.
func (l *Ledger) reconcile(ctx context.Context, name, slot string, day time.Time) error {
	intakes, err := l.backend.GetIntakesForDate(ctx, l.patientID, day)
	if err != nil {
		return fmt.Errorf("failed to fetch intakes: %w", err)
	}

	for _, in := range intakes {
		if in.MedicationName != name || in.ScheduledSlot() != slot || in.Status != models.IntakePending {
			continue
		}
		if err := l.backend.UpdateIntakeStatus(ctx, in.ID, models.IntakeTaken); err != nil {
			return fmt.Errorf("failed to update intake %d: %w", in.ID, err)
		}
		l.logger.Info("Intake reconciled",
			zap.Int64("intake_id", in.ID),
			zap.String("slot", slot),
		)
		return nil
	}

	l.logger.Debug("No pending intake to reconcile",
		zap.String("medication", name),
		zap.String("slot", slot),
	)
	return nil
}
