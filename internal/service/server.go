package service

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server is the HTTP front of a service. Drain hooks run after the listener
// has shut down, so no request can start new background work while they wait.
type Server struct {
	name       string
	httpServer *http.Server
	drains     []drainHook
	logger     *zap.Logger
}

type drainHook struct {
	name string
	wait func()
}

func NewServer(name, addr string, handler http.Handler, logger *zap.Logger) *Server {
	s := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return &Server{name: name, httpServer: s, logger: logger}
}

// OnStop registers wait to run once the server has stopped accepting
// requests. Hooks run in registration order.
func (s *Server) OnStop(name string, wait func()) {
	s.drains = append(s.drains, drainHook{name: name, wait: wait})
}

func (s *Server) Start() error {
	s.logger.Info("Starting "+s.name+" HTTP server", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Stop shuts the listener down and then drains every hook. A hook still
// running when ctx expires is abandoned and logged.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping " + s.name + " HTTP server")
	err := s.httpServer.Shutdown(ctx)

	for _, h := range s.drains {
		done := make(chan struct{})
		go func(wait func()) {
			defer close(done)
			wait()
		}(h.wait)

		select {
		case <-done:
			s.logger.Debug("Drained", zap.String("hook", h.name))
		case <-ctx.Done():
			s.logger.Warn("Drain abandoned at shutdown deadline", zap.String("hook", h.name))
			return ctx.Err()
		}
	}
	return err
}
