// Package caregiver watches a caregiver's patients and raises alerts.
package caregiver

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"healthguard/internal/models"
	"healthguard/internal/notify"
	"healthguard/internal/store"
	"healthguard/internal/triage"

	"go.uber.org/zap"
)

const defaultAlertMessage = "Critical alert"

// PatientLister is the backend call the watcher polls.
type PatientLister interface {
	ListPatientsForCaregiver(ctx context.Context, caregiverID int64) ([]models.PatientSummary, error)
}

// Watcher polls patient summaries and pushes one alert per patient and
// message until the dedupe key expires.
type Watcher struct {
	lister      PatientLister
	kv          store.KV
	presenter   notify.Presenter
	caregiverID int64
	interval    time.Duration
	alertTTL    time.Duration
	keyPrefix   string
	reportPath  string
	logger      *zap.Logger
	now         func() time.Time
}

type WatcherConfig struct {
	CaregiverID    int64
	PollInterval   time.Duration
	AlertTTL       time.Duration
	AlertKeyPrefix string
	ReportPath     string
}

func NewWatcher(lister PatientLister, kv store.KV, presenter notify.Presenter, cfg WatcherConfig, logger *zap.Logger) *Watcher {
	return &Watcher{
		lister:      lister,
		kv:          kv,
		presenter:   presenter,
		caregiverID: cfg.CaregiverID,
		interval:    cfg.PollInterval,
		alertTTL:    cfg.AlertTTL,
		keyPrefix:   cfg.AlertKeyPrefix,
		reportPath:  cfg.ReportPath,
		logger:      logger,
		now:         time.Now,
	}
}

// Start polls until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	w.logger.Info("Caregiver watcher started",
		zap.Int64("caregiver_id", w.caregiverID),
		zap.Duration("poll_interval", w.interval),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	if _, err := w.Poll(ctx); err != nil {
		w.logger.Error("Failed to poll patients on startup", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Caregiver watcher stopped")
			return nil
		case <-ticker.C:
			if _, err := w.Poll(ctx); err != nil {
				w.logger.Error("Failed to poll patients", zap.Error(err))
			}
		}
	}
}

// Poll runs one cycle and returns the number of alerts pushed.
func (w *Watcher) Poll(ctx context.Context) (int, error) {
	patients, err := w.lister.ListPatientsForCaregiver(ctx, w.caregiverID)
	if err != nil {
		return 0, fmt.Errorf("failed to list patients: %w", err)
	}

	pushed := 0
	for _, p := range patients {
		if !triage.IsEmergency(p) {
			continue
		}
		message := defaultAlertMessage
		if p.AlertMessage != nil && *p.AlertMessage != "" {
			message = *p.AlertMessage
		}

		if !w.firstAlert(ctx, p.ID, message) {
			continue
		}

		n := notify.Notification{
			Kind:      notify.KindEmergency,
			Title:     "SOS: " + p.Name,
			Body:      message,
			PatientID: p.ID,
			CreatedAt: w.now(),
		}
		if err := w.presenter.Present(ctx, n); err != nil {
			w.logger.Error("Failed to push caregiver alert",
				zap.Int64("patient_id", p.ID),
				zap.Error(err),
			)
			continue
		}
		pushed++
	}

	if w.reportPath != "" {
		if err := WriteTriageWorkbook(w.reportPath, patients, w.now()); err != nil {
			w.logger.Error("Failed to write triage workbook", zap.Error(err))
		}
	}
	return pushed, nil
}

// firstAlert claims the dedupe key. A store failure lets the alert through.
func (w *Watcher) firstAlert(ctx context.Context, patientID int64, message string) bool {
	h := fnv.New32a()
	_, _ = h.Write([]byte(message))
	key := fmt.Sprintf("%s%d:%08x", w.keyPrefix, patientID, h.Sum32())

	ok, err := w.kv.SetNX(ctx, key, "1", w.alertTTL)
	if err != nil {
		w.logger.Warn("Alert dedupe unavailable",
			zap.Int64("patient_id", patientID),
			zap.Error(err),
		)
		return true
	}
	return ok
}
