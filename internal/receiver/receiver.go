// Package receiver consumes fired alarms and presents the reminders.
package receiver

import (
	"context"
	"fmt"
	"time"

	commonredis "healthguard/common/redis"
	"healthguard/internal/models"
	"healthguard/internal/notify"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// TakenChecker reports whether a dose was already recorded.
type TakenChecker interface {
	IsTaken(ctx context.Context, medicationID int64, slot string, day time.Time) bool
}

// Receiver reads the fired-alarm stream through a consumer group.
type Receiver struct {
	redisClient  *redis.Client
	stream       string
	groupName    string
	consumerName string
	batchSize    int64
	block        time.Duration

	// entries delivered to this consumer but not acked are retried every
	// pendingEvery; hasPending starts true to drain a previous run's list
	pendingEvery     time.Duration
	hasPending       bool
	lastPendingCheck time.Time

	taken     TakenChecker
	presenter notify.Presenter
	patientID int64
	logger    *zap.Logger
}

func NewReceiver(
	redisClient *redis.Client,
	stream, groupName, consumerName string,
	taken TakenChecker,
	presenter notify.Presenter,
	patientID int64,
	logger *zap.Logger,
) *Receiver {
	return &Receiver{
		redisClient:  redisClient,
		stream:       stream,
		groupName:    groupName,
		consumerName: consumerName,
		batchSize:    10,
		block:        5 * time.Second,
		pendingEvery: 30 * time.Second,
		hasPending:   true,
		taken:        taken,
		presenter:    presenter,
		patientID:    patientID,
		logger:       logger,
	}
}

// Start consumes until ctx is cancelled, backing off on read errors.
func (r *Receiver) Start(ctx context.Context) error {
	if err := commonredis.CreateConsumerGroup(ctx, r.redisClient, r.stream, r.groupName); err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	r.logger.Info("Reminder receiver started",
		zap.String("stream", r.stream),
		zap.String("consumer_group", r.groupName),
		zap.String("consumer_name", r.consumerName),
	)

	backoff := time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := r.consume(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.logger.Error("Failed to consume fired alarms",
				zap.Error(err),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
			}
			continue
		}
		backoff = time.Second
	}
}

func (r *Receiver) consume(ctx context.Context) error {
	if r.hasPending && time.Since(r.lastPendingCheck) >= r.pendingEvery {
		messages, err := commonredis.ReadPendingFromStream(ctx, r.redisClient, r.stream, r.groupName, r.consumerName, r.batchSize)
		if err != nil {
			return fmt.Errorf("failed to read pending entries: %w", err)
		}
		if len(messages) > 0 {
			r.logger.Info("Retrying unacked fired alarms", zap.Int("count", len(messages)))
		}
		failed := r.process(ctx, messages)
		r.lastPendingCheck = time.Now()
		r.hasPending = failed > 0 || int64(len(messages)) == r.batchSize
	}

	messages, err := commonredis.ReadFromStream(ctx, r.redisClient, r.stream, r.groupName, r.consumerName, r.batchSize, r.block)
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}
	if r.process(ctx, messages) > 0 {
		r.hasPending = true
	}
	return nil
}

// process presents and acks each entry and returns how many stayed unacked.
func (r *Receiver) process(ctx context.Context, messages []commonredis.StreamMessage) int {
	failed := 0
	for _, msg := range messages {
		var fired models.FiredAlarm
		if err := commonredis.DecodeJSON(msg, &fired); err != nil {
			// unreadable entries are acked so they do not block the group
			r.logger.Warn("Dropping malformed fired alarm",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
			r.ack(ctx, msg.ID)
			continue
		}

		if err := r.Handle(ctx, fired); err != nil {
			r.logger.Error("Failed to present reminder",
				zap.String("message_id", msg.ID),
				zap.Int64("trigger_id", fired.TriggerID),
				zap.Error(err),
			)
			failed++
			continue
		}
		r.ack(ctx, msg.ID)
	}
	return failed
}

func (r *Receiver) ack(ctx context.Context, id string) {
	if err := commonredis.Ack(ctx, r.redisClient, r.stream, r.groupName, id); err != nil {
		r.logger.Warn("Failed to ack message",
			zap.String("message_id", id),
			zap.Error(err),
		)
	}
}

// Handle presents one fired alarm. Medication reminders for a dose already
// taken are skipped.
func (r *Receiver) Handle(ctx context.Context, fired models.FiredAlarm) error {
	p := fired.Payload
	switch p.Kind {
	case models.AlarmMedication:
		day := fired.FireAt.Local()
		if r.taken.IsTaken(ctx, p.MedicationID, p.Slot, day) {
			r.logger.Debug("Dose already taken, reminder skipped",
				zap.Int64("medication_id", p.MedicationID),
				zap.String("slot", p.Slot),
			)
			return nil
		}
		return r.presenter.Present(ctx, MedicationNotification(r.patientID, fired))
	case models.AlarmAppointment:
		return r.presenter.Present(ctx, AppointmentNotification(r.patientID, fired))
	default:
		r.logger.Warn("Unknown alarm kind", zap.String("kind", string(p.Kind)))
		return nil
	}
}

// MedicationNotification renders a dose reminder.
func MedicationNotification(patientID int64, fired models.FiredAlarm) notify.Notification {
	p := fired.Payload
	body := fmt.Sprintf("Dose of %s", p.Slot)
	if p.Description != "" {
		body += ": " + p.Description
	}
	return notify.Notification{
		Kind:         notify.KindMedication,
		Title:        "Time for " + p.Name,
		Body:         body,
		PatientID:    patientID,
		MedicationID: p.MedicationID,
		Slot:         p.Slot,
		CreatedAt:    fired.FiredAt,
	}
}

// AppointmentNotification renders an appointment reminder.
func AppointmentNotification(patientID int64, fired models.FiredAlarm) notify.Notification {
	p := fired.Payload
	return notify.Notification{
		Kind:      notify.KindAppointment,
		Title:     "Appointment: " + p.Slot,
		Body:      "You have an appointment: " + p.Name,
		PatientID: patientID,
		Slot:      p.Slot,
		CreatedAt: fired.FiredAt,
	}
}
