package alarmclock

import (
	"context"
	"fmt"
	"time"

	commonredis "healthguard/common/redis"
	"healthguard/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const dispatchBatchSize = 100

// DueSource lists and removes due triggers.
type DueSource interface {
	Due(ctx context.Context, now time.Time, limit int) ([]ScheduledAlarm, error)
	Delete(ctx context.Context, triggerID int64) error
}

// Dispatcher polls for due triggers and publishes them as FiredAlarm
// events. Triggers are one-shot: a published trigger is removed and the
// next reload re-arms it.
type Dispatcher struct {
	source   DueSource
	redis    *redis.Client
	stream   string
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(source DueSource, client *redis.Client, stream string, interval time.Duration, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		source:   source,
		redis:    client,
		stream:   stream,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Start runs the poll loop until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.logger.Info("Alarm dispatcher started",
		zap.String("stream", d.stream),
		zap.Duration("interval", d.interval),
	)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	if _, err := d.DispatchDue(ctx); err != nil {
		d.logger.Error("Failed to dispatch alarms on startup", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Alarm dispatcher stopped")
			return nil
		case <-ticker.C:
			if _, err := d.DispatchDue(ctx); err != nil {
				d.logger.Error("Failed to dispatch alarms", zap.Error(err))
			}
		}
	}
}

// DispatchDue publishes every due trigger and returns how many were published.
func (d *Dispatcher) DispatchDue(ctx context.Context) (int, error) {
	now := d.now()
	due, err := d.source.Due(ctx, now, dispatchBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list due alarms: %w", err)
	}

	published := 0
	for _, a := range due {
		event := models.FiredAlarm{
			EventID:   uuid.New().String(),
			TriggerID: a.Trigger.ID,
			FireAt:    a.Trigger.FireAt,
			FiredAt:   now,
			Exact:     a.Exact,
			Payload:   a.Trigger.Payload,
		}
		if _, err := commonredis.PublishJSONToStream(ctx, d.redis, d.stream, event); err != nil {
			// left in place, retried on the next tick
			d.logger.Error("Failed to publish fired alarm",
				zap.Int64("trigger_id", a.Trigger.ID),
				zap.Error(err),
			)
			continue
		}
		published++

		if err := d.source.Delete(ctx, a.Trigger.ID); err != nil {
			d.logger.Error("Failed to remove fired alarm",
				zap.Int64("trigger_id", a.Trigger.ID),
				zap.Error(err),
			)
		}

		d.logger.Debug("Alarm fired",
			zap.Int64("trigger_id", a.Trigger.ID),
			zap.String("slot", a.Trigger.Payload.Slot),
			zap.Bool("exact", a.Exact),
		)
	}
	return published, nil
}
