// Package notify presents reminders and caregiver alerts to the user.
package notify

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Kind of notification.
type Kind string

const (
	KindMedication  Kind = "medication"
	KindAppointment Kind = "appointment"
	KindEmergency   Kind = "emergency"
)

// Notification is one user-facing message.
type Notification struct {
	Kind         Kind      `json:"kind"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	PatientID    int64     `json:"patient_id"`
	MedicationID int64     `json:"medication_id,omitempty"`
	Slot         string    `json:"slot,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Presenter shows a notification.
type Presenter interface {
	Present(ctx context.Context, n Notification) error
}

// Multi presents to every presenter and joins their errors.
type Multi []Presenter

func (m Multi) Present(ctx context.Context, n Notification) error {
	var errs []error
	for _, p := range m {
		if err := p.Present(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogPresenter writes notifications to the log; used when no device
// channel is configured.
type LogPresenter struct {
	logger *zap.Logger
}

func NewLogPresenter(logger *zap.Logger) *LogPresenter {
	return &LogPresenter{logger: logger}
}

func (p *LogPresenter) Present(_ context.Context, n Notification) error {
	p.logger.Info("Notification",
		zap.String("kind", string(n.Kind)),
		zap.String("title", n.Title),
		zap.String("body", n.Body),
		zap.Int64("patient_id", n.PatientID),
	)
	return nil
}
