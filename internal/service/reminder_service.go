package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"healthguard/common/database"
	"healthguard/common/mqtt"
	commonredis "healthguard/common/redis"
	"healthguard/internal/alarm"
	"healthguard/internal/alarmclock"
	"healthguard/internal/backend"
	"healthguard/internal/config"
	"healthguard/internal/httpapi"
	"healthguard/internal/intake"
	"healthguard/internal/ledger"
	"healthguard/internal/receiver"
	"healthguard/internal/registry"
	"healthguard/internal/session"
	"healthguard/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ReminderService runs the patient side: alarm scheduling and dispatch,
// reminder presentation, and the local scan/intake HTTP surface.
type ReminderService struct {
	config      *config.Config
	sess        *session.Session
	db          *sql.DB
	redisClient *redis.Client
	mqttClient  *mqtt.Client
	logger      *zap.Logger

	reminders  *Reminders
	dispatcher *alarmclock.Dispatcher
	receiver   *receiver.Receiver
	server     *Server
}

// NewReminderService connects the stores and wires every component.
func NewReminderService(ctx context.Context, cfg *config.Config, sess *session.Session, logger *zap.Logger) (*ReminderService, error) {
	// 1. Postgres: alarm registry
	db, err := database.NewPostgresDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}
	alarmStore := alarmclock.NewPostgresStore(db, logger)
	if err := alarmStore.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	// 2. Redis: intake ledger and fired-alarm stream
	redisClient, err := commonredis.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	// 3. Presenters
	presenter, mqttClient, err := buildPresenter(cfg, logger)
	if err != nil {
		_ = redisClient.Close()
		_ = db.Close()
		return nil, err
	}

	// 4. Remote services
	backendClient := backend.NewClient(cfg.Backend, sess.Token, logger)
	registryClient := registry.NewClient(cfg.Registry, logger)

	// 5. Core components
	intakeLedger := ledger.New(
		store.NewRedisKV(redisClient),
		backendClient,
		sess.PatientID,
		cfg.Reminder.LedgerKeyPrefix,
		cfg.Reminder.SyncTimeout,
		logger,
	)
	facility := alarmclock.NewFacility(alarmStore, cfg.Reminder.ExactAlarmsPermitted, logger)
	scheduler := alarm.NewScheduler(facility, time.Duration(cfg.Reminder.WindowMinutes)*time.Minute, logger)
	cache := NewMedicationCache()
	reminders := NewReminders(sess, backendClient, scheduler, cache, logger)

	scanner := intake.NewScanner(
		intake.NewVerifier(cfg.Reminder.ToleranceMinutes),
		sess,
		cache,
		backendClient,
		registryClient,
		intakeLedger,
		time.Duration(cfg.Reminder.DebounceSeconds)*time.Second,
		logger,
	)

	// 6. Workers
	dispatcher := alarmclock.NewDispatcher(alarmStore, redisClient, cfg.Reminder.StreamName, cfg.Reminder.DispatchInterval, logger)
	recv := receiver.NewReceiver(
		redisClient,
		cfg.Reminder.StreamName,
		cfg.Reminder.ConsumerGroup,
		cfg.Reminder.ConsumerName,
		intakeLedger,
		presenter,
		sess.PatientID,
		logger,
	)

	// 7. HTTP
	router := httpapi.NewRouter(logger)
	router.RegisterReminderRoutes(httpapi.NewReminderHandler(httpapi.ReminderDeps{
		Scanner:      scanner,
		Medications:  cache,
		Ledger:       intakeLedger,
		Appointments: scheduler,
		Creator:      reminders,
		Remover:      reminders,
		Permission:   facility,
	}, logger))
	server := NewServer("healthguard-reminder", cfg.HTTP.Addr, router, logger)
	server.OnStop("intake reconciliation", intakeLedger.Wait)

	return &ReminderService{
		config:      cfg,
		sess:        sess,
		db:          db,
		redisClient: redisClient,
		mqttClient:  mqttClient,
		logger:      logger,
		reminders:   reminders,
		dispatcher:  dispatcher,
		receiver:    recv,
		server:      server,
	}, nil
}

// Start runs the workers and the HTTP server until ctx is cancelled or one
// of them fails.
func (s *ReminderService) Start(ctx context.Context) error {
	s.logger.Info("Starting reminder service",
		zap.Int64("patient_id", s.sess.PatientID),
		zap.String("role", s.sess.Role.String()),
	)

	errChan := make(chan error, 3)

	go s.reminders.Run(ctx, s.config.Reminder.ReloadInterval)

	go func() {
		if err := s.dispatcher.Start(ctx); err != nil {
			errChan <- fmt.Errorf("alarm dispatcher: %w", err)
		}
	}()

	go func() {
		if err := s.receiver.Start(ctx); err != nil {
			errChan <- fmt.Errorf("reminder receiver: %w", err)
		}
	}()

	go func() {
		if err := s.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errChan:
		return err
	}
}

// Stop shuts the HTTP server down, which also waits for pending intake
// reconciliation, and closes the connections.
func (s *ReminderService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping reminder service")

	if err := s.server.Stop(ctx); err != nil {
		s.logger.Error("Failed to stop HTTP server", zap.Error(err))
	}

	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}
	if err := s.redisClient.Close(); err != nil {
		s.logger.Error("Failed to close redis", zap.Error(err))
	}
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database", zap.Error(err))
	}
	return nil
}
