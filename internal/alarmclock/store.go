// Package alarmclock is the alarm facility of the reminder service: triggers
// are kept in Postgres and a dispatcher publishes them to a Redis stream
// when due.
package alarmclock

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"healthguard/internal/alarm"

	"go.uber.org/zap"
)

// ScheduledAlarm is one row of scheduled_alarms.
type ScheduledAlarm struct {
	Trigger alarm.Trigger
	Exact   bool
	Window  time.Duration
}

// PostgresStore persists triggers keyed by trigger id.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresStore creates the store.
func NewPostgresStore(db *sql.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: logger,
	}
}

// EnsureSchema creates the table on first start.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS scheduled_alarms (
			trigger_id     BIGINT PRIMARY KEY,
			fire_at        TIMESTAMPTZ NOT NULL,
			window_seconds INTEGER NOT NULL DEFAULT 0,
			exact          BOOLEAN NOT NULL,
			payload        JSONB NOT NULL,
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create scheduled_alarms: %w", err)
	}
	return nil
}

// Upsert registers t, replacing any previous registration with the same id.
// A registration that is already due is kept until the dispatcher fires it.
func (s *PostgresStore) Upsert(ctx context.Context, t alarm.Trigger, exact bool, window time.Duration) error {
	payload, err := json.Marshal(t.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO scheduled_alarms (trigger_id, fire_at, window_seconds, exact, payload, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (trigger_id) DO UPDATE SET
			fire_at = EXCLUDED.fire_at,
			window_seconds = EXCLUDED.window_seconds,
			exact = EXCLUDED.exact,
			payload = EXCLUDED.payload,
			updated_at = now()
		WHERE scheduled_alarms.fire_at > now()
	`
	_, err = s.db.ExecContext(ctx, query, t.ID, t.FireAt, int(window/time.Second), exact, payload)
	if err != nil {
		return fmt.Errorf("failed to upsert alarm %d: %w", t.ID, err)
	}
	return nil
}

// Delete removes a trigger. Deleting an unknown id is not an error.
func (s *PostgresStore) Delete(ctx context.Context, triggerID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM scheduled_alarms WHERE trigger_id = $1`, triggerID)
	if err != nil {
		return fmt.Errorf("failed to delete alarm %d: %w", triggerID, err)
	}
	return nil
}

// MedicationTriggerIDs lists the registered medication triggers.
// Appointment triggers use negative ids and are left out.
func (s *PostgresStore) MedicationTriggerIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT trigger_id FROM scheduled_alarms WHERE trigger_id >= 0 ORDER BY trigger_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query alarm ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan alarm id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alarm ids: %w", err)
	}
	return ids, nil
}

// Due returns triggers whose fire time is at or before now, oldest first.
// Rows with an unreadable payload can never be published and are deleted.
func (s *PostgresStore) Due(ctx context.Context, now time.Time, limit int) ([]ScheduledAlarm, error) {
	query := `
		SELECT trigger_id, fire_at, window_seconds, exact, payload
		FROM scheduled_alarms
		WHERE fire_at <= $1
		ORDER BY fire_at, trigger_id
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due alarms: %w", err)
	}
	defer rows.Close()

	var (
		out     []ScheduledAlarm
		corrupt []int64
	)
	for rows.Next() {
		var (
			a             ScheduledAlarm
			windowSeconds int
			payload       []byte
		)
		if err := rows.Scan(&a.Trigger.ID, &a.Trigger.FireAt, &windowSeconds, &a.Exact, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan alarm: %w", err)
		}
		if err := json.Unmarshal(payload, &a.Trigger.Payload); err != nil {
			s.logger.Warn("Skipping alarm with unreadable payload",
				zap.Int64("trigger_id", a.Trigger.ID),
				zap.Error(err),
			)
			corrupt = append(corrupt, a.Trigger.ID)
			continue
		}
		a.Window = time.Duration(windowSeconds) * time.Second
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alarms: %w", err)
	}
	rows.Close()

	for _, id := range corrupt {
		if err := s.Delete(ctx, id); err != nil {
			s.logger.Error("Failed to drop unreadable alarm", zap.Int64("trigger_id", id), zap.Error(err))
		}
	}
	return out, nil
}
