// internal/api/api.go
// Provides the HTTP server that hosts the relay: the WebSocket endpoint,
// health reporting and a read-only history view.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/erilali/chatrelay/internal/config"
	"github.com/erilali/chatrelay/internal/hub"
	"github.com/erilali/chatrelay/internal/logger"
	"github.com/nats-io/nats.go"
)

const version = "1.0.0"

type Server struct {
	cfg    config.Config
	hub    *hub.Hub
	nc     *nats.Conn
	origin *originPolicy
	http   *http.Server
	logger *logger.Logger
}

// New wires the relay together and starts the hub loop. NATS is optional:
// when it is not configured or not reachable the relay runs without the
// event mirror.
func New(cfg config.Config, serverLogger *logger.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		origin: newOriginPolicy(cfg.AllowedOrigins, serverLogger),
		logger: serverLogger,
	}

	opts := hub.Options{
		HistorySize:      cfg.HistorySize,
		MaxMessageLength: cfg.MaxMessageLength,
		SendBuffer:       cfg.SendBuffer,
		CheckOrigin:      s.origin.checkOrigin,
		SubjectPrefix:    cfg.NatsSubjectPrefix,
		Logger:           serverLogger.WithField("module", "hub"),
	}
	if cfg.NatsURL != "" {
		nc, err := connectNATS(cfg.NatsURL, serverLogger)
		if err != nil {
			serverLogger.Errorf("Error connecting to NATS: %v", err)
			serverLogger.Warn("Running without NATS connection. Events will not be mirrored.")
		} else {
			s.nc = nc
			opts.Publisher = nc
		}
	}

	s.hub = hub.NewHub(opts)
	go s.hub.Run()

	s.http = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.hub.ServeWs)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("chat relay is running\n"))
	})
	return s.origin.cors(mux)
}

func (s *Server) Hub() *hub.Hub { return s.hub }

// ListenAndServe blocks until the server stops. A graceful Shutdown is not
// reported as an error.
func (s *Server) ListenAndServe() error {
	s.logger.Infof("Server started at %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, closes every chat connection and
// drains NATS.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	httpErr := s.http.Shutdown(ctx)

	timeout := s.cfg.ShutdownTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	hubErr := s.hub.Shutdown(timeout)

	if s.nc != nil {
		if err := s.nc.Drain(); err != nil {
			s.logger.Warnf("Error draining NATS connection: %v", err)
		}
	}
	return errors.Join(httpErr, hubErr)
}

func (s *Server) natsStatus() string {
	switch {
	case s.nc == nil:
		return "disabled"
	case s.nc.Status() == nats.CONNECTED:
		return "connected"
	default:
		return "disconnected"
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	health := map[string]interface{}{
		"status":           "ok",
		"version":          version,
		"clients":          s.hub.ClientCount(),
		"joined":           s.hub.JoinedCount(),
		"history_size":     len(s.hub.History()),
		"history_capacity": s.hub.HistoryCapacity(),
		"nats":             s.natsStatus(),
	}
	writeJSON(w, health)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]interface{}{
		"messages": s.hub.History(),
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
