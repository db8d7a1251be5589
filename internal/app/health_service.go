package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lightflow/flowd/internal/config"
	"github.com/lightflow/flowd/internal/device"
	"github.com/lightflow/flowd/internal/eventbus"
)

// HealthService provides HTTP health check endpoints plus a read-only
// device state snapshot for debugging. When wired to the event bus it
// also reports when each event type was last seen, which makes a stuck
// bus visible from /health.
type HealthService struct {
	cfg      *config.Config
	registry *device.Registry
	server   *http.Server

	mu         sync.RWMutex
	lastEvents map[string]time.Time
}

// NewHealthService creates a new HealthService.
func NewHealthService(cfg *config.Config) *HealthService {
	return &HealthService{
		cfg:        cfg,
		lastEvents: make(map[string]time.Time),
	}
}

// SetRegistry wires the device registry for the /devices snapshot.
func (s *HealthService) SetRegistry(registry *device.Registry) {
	s.registry = registry
}

// ObserveBus subscribes to every event type and records the last time
// each was seen.
func (s *HealthService) ObserveBus(bus *eventbus.Bus) {
	types := []eventbus.EventType{
		eventbus.EventTypeDeviceState,
		eventbus.EventTypeFlow,
		eventbus.EventTypeEffect,
		eventbus.EventTypeGroup,
		eventbus.EventTypeAutomation,
	}
	for _, t := range types {
		bus.Subscribe(t, s.onEvent)
	}
}

func (s *HealthService) onEvent(e eventbus.Event) {
	s.mu.Lock()
	s.lastEvents[string(e.Type)] = time.Now().UTC()
	s.mu.Unlock()
}

// LastEvents returns a copy of the last-seen timestamp per event type.
func (s *HealthService) LastEvents() map[string]time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]time.Time, len(s.lastEvents))
	for t, ts := range s.lastEvents {
		out[t] = ts
	}
	return out
}

// Start begins the health check server if enabled.
func (s *HealthService) Start(ctx context.Context) {
	if !s.cfg.Healthcheck.Enabled {
		return
	}

	go s.run(ctx)
}

func (s *HealthService) run(ctx context.Context) {
	addr := fmt.Sprintf("%s:%d", s.cfg.Healthcheck.GetHost(), s.cfg.Healthcheck.GetPort())

	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		resp := map[string]any{
			"status":      "healthy",
			"last_events": s.LastEvents(),
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Warn().Err(err).Msg("Failed to encode health response")
		}
	})

	// Ready check endpoint
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	})

	// Device state snapshot, read-only
	mux.HandleFunc("/devices", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if s.registry == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"registry not wired"}`))
			return
		}
		if err := json.NewEncoder(w).Encode(s.registry.List()); err != nil {
			log.Warn().Err(err).Msg("Failed to encode device snapshot")
		}
	})

	s.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	log.Info().Str("addr", addr).Msg("Starting health check server")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.GetShutdownTimeout())
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Health check server shutdown error")
		}
	}()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("Health check server error")
	}
}
