package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"healthguard/common/mqtt"
	commonredis "healthguard/common/redis"
	"healthguard/internal/backend"
	"healthguard/internal/caregiver"
	"healthguard/internal/config"
	"healthguard/internal/httpapi"
	"healthguard/internal/session"
	"healthguard/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

var ErrNotCaregiver = errors.New("session role is not caregiver")

// CaregiverService polls the caregiver's patients, pushes emergency alerts
// and serves the triage list.
type CaregiverService struct {
	sess        *session.Session
	redisClient *redis.Client
	mqttClient  *mqtt.Client
	logger      *zap.Logger

	watcher *caregiver.Watcher
	server  *Server
}

func NewCaregiverService(ctx context.Context, cfg *config.Config, sess *session.Session, logger *zap.Logger) (*CaregiverService, error) {
	if sess.Role != session.RoleCaregiver {
		return nil, fmt.Errorf("%w: %s", ErrNotCaregiver, sess.Role)
	}

	redisClient, err := commonredis.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		return nil, err
	}

	presenter, mqttClient, err := buildPresenter(cfg, logger)
	if err != nil {
		_ = redisClient.Close()
		return nil, err
	}

	backendClient := backend.NewClient(cfg.Backend, sess.Token, logger)

	watcher := caregiver.NewWatcher(backendClient, store.NewRedisKV(redisClient), presenter, caregiver.WatcherConfig{
		CaregiverID:    sess.PatientID,
		PollInterval:   cfg.Caregiver.PollInterval,
		AlertTTL:       cfg.Caregiver.AlertTTL,
		AlertKeyPrefix: cfg.Caregiver.AlertKeyPrefix,
		ReportPath:     cfg.Caregiver.ReportPath,
	}, logger)

	router := httpapi.NewRouter(logger)
	router.RegisterCaregiverRoutes(httpapi.NewCaregiverHandler(backendClient, sess.PatientID, logger))

	return &CaregiverService{
		sess:        sess,
		redisClient: redisClient,
		mqttClient:  mqttClient,
		logger:      logger,
		watcher:     watcher,
		server:      NewServer("healthguard-caregiver", cfg.HTTP.Addr, router, logger),
	}, nil
}

func (s *CaregiverService) Start(ctx context.Context) error {
	s.logger.Info("Starting caregiver service", zap.Int64("caregiver_id", s.sess.PatientID))

	errChan := make(chan error, 2)

	go func() {
		if err := s.watcher.Start(ctx); err != nil {
			errChan <- fmt.Errorf("caregiver watcher: %w", err)
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

func (s *CaregiverService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping caregiver service")

	if err := s.server.Stop(ctx); err != nil {
		s.logger.Error("Failed to stop HTTP server", zap.Error(err))
	}
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}
	if err := s.redisClient.Close(); err != nil {
		s.logger.Error("Failed to close redis", zap.Error(err))
	}
	return nil
}
