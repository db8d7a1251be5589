package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lightflow/flowd/internal/automation"
	"github.com/lightflow/flowd/internal/config"
	"github.com/lightflow/flowd/internal/db"
	"github.com/lightflow/flowd/internal/device"
	"github.com/lightflow/flowd/internal/dispatch"
	"github.com/lightflow/flowd/internal/effect"
	"github.com/lightflow/flowd/internal/eventbus"
	"github.com/lightflow/flowd/internal/group"
	"github.com/lightflow/flowd/internal/ledger"
	"github.com/lightflow/flowd/internal/light"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB     *db.DB
	Ledger *ledger.Ledger
	Bus    *eventbus.Bus

	// Device layer
	Registry   *device.Registry
	Controller light.Controller
	Dispatcher *dispatch.Dispatcher

	// Managers
	Effects     *effect.Manager
	Groups      *group.Manager
	Automations *automation.Manager

	// Background services
	Health *HealthService
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	// Initialize database
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	s.DB = database

	// Initialize command ledger
	s.Ledger = ledger.New(database.DB)

	// Initialize event bus
	s.Bus = eventbus.NewWithConfig(cfg.EventBus.GetWorkers(), cfg.EventBus.GetQueueSize())

	// Initialize device registry from configured devices
	s.Registry = device.NewRegistry(s.Bus, cfg.Devices)
	log.Info().Int("devices", len(s.Registry.List())).Msg("Device registry seeded")

	// No transport is wired into this module; the loopback controller
	// acknowledges commands locally so the daemon runs standalone.
	s.Controller = light.NewLoopback(s.Registry, cfg.Loopback.Latency.Duration())

	// Initialize dispatcher
	s.Dispatcher = dispatch.New(s.Registry, s.Controller, s.Ledger, s.Bus)

	// Initialize effect manager from configured effects
	seeds := make([]effect.Effect, 0, len(cfg.Effects))
	for _, ec := range cfg.Effects {
		params, err := ec.Resolve()
		if err != nil {
			log.Warn().Str("effect", ec.Name).Err(err).Msg("Skipping unresolvable effect")
			continue
		}
		seeds = append(seeds, effect.Effect{
			ID:          ec.ID,
			Name:        ec.Name,
			Description: ec.Description,
			Params:      params,
		})
	}
	s.Effects = effect.NewManager(s.Bus, s.Dispatcher, seeds)

	// Initialize group manager
	s.Groups = group.NewManager(s.Bus, s.Dispatcher, cfg.Groups)

	// Initialize automation manager
	s.Automations = automation.NewManager(s.Bus, s.Effects, cfg.Automations)

	// Initialize health service and hook it to the bus so /health can
	// report event activity
	s.Health = NewHealthService(cfg)
	s.Health.SetRegistry(s.Registry)
	s.Health.ObserveBus(s.Bus)

	return s, nil
}

// Start starts all background services.
func (s *Services) Start(ctx context.Context) error {
	s.Health.Start(ctx)
	go s.runLedgerCleanup(ctx)
	return nil
}

// runLedgerCleanup periodically applies the ledger retention policy.
func (s *Services) runLedgerCleanup(ctx context.Context) {
	interval := s.cfg.Ledger.CleanupInterval.Duration()
	retention := time.Duration(s.cfg.Ledger.RetentionDays) * 24 * time.Hour

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.Ledger.DeleteOlderThan(retention)
			if err != nil {
				log.Warn().Err(err).Msg("Ledger cleanup failed")
				continue
			}
			if removed > 0 {
				log.Debug().Int64("removed", removed).Msg("Ledger cleanup done")
			}
		}
	}
}

// Stop gracefully stops all services.
func (s *Services) Stop() error {
	s.Close()
	return nil
}

// Close releases all resources.
func (s *Services) Close() {
	if s.Bus != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.GetShutdownTimeout())
		defer cancel()
		s.Bus.Close(ctx)
	}
	if s.DB != nil {
		s.DB.Close()
	}
}
