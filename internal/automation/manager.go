package automation

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lightflow/flowd/internal/effect"
	"github.com/lightflow/flowd/internal/eventbus"
)

var (
	// ErrNotFound is returned when an automation ID is unknown.
	ErrNotFound = errors.New("automation not found")
	// ErrDisabled is returned when running a disabled automation.
	ErrDisabled = errors.New("automation disabled")
)

// Manager owns the automation collection. Running an automation starts
// its effect on its devices; there is no trigger engine here.
type Manager struct {
	mu          sync.RWMutex
	automations map[string]Automation
	effects     *effect.Manager
	bus         *eventbus.Bus
}

// NewManager creates a manager seeded with the given automations.
func NewManager(bus *eventbus.Bus, effects *effect.Manager, seed []Automation) *Manager {
	m := &Manager{
		automations: make(map[string]Automation, len(seed)),
		effects:     effects,
		bus:         bus,
	}
	for _, a := range seed {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		m.automations[a.ID] = a
	}
	return m
}

// Automations returns the collection ordered by name.
func (m *Manager) Automations() []Automation {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Automation, 0, len(m.automations))
	for _, a := range m.automations {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get returns one automation by ID.
func (m *Manager) Get(id string) (Automation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.automations[id]
	if !ok {
		return Automation{}, ErrNotFound
	}
	return a, nil
}

// SetEnabled toggles the enabled flag.
func (m *Manager) SetEnabled(id string, enabled bool) error {
	m.mu.Lock()
	a, ok := m.automations[id]
	if ok {
		a.Enabled = enabled
		m.automations[id] = a
	}
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}

	log.Info().Str("automation", id).Bool("enabled", enabled).Msg("Automation toggled")
	m.notify(id, "updated")
	return nil
}

// Delete removes an automation.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	_, ok := m.automations[id]
	if ok {
		delete(m.automations, id)
	}
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}

	log.Info().Str("automation", id).Msg("Automation deleted")
	m.notify(id, "removed")
	return nil
}

// Run starts the automation's effect on its devices. Disabled
// automations are refused.
func (m *Manager) Run(ctx context.Context, id string) error {
	return m.RunOccurrence(ctx, id, "")
}

// RunOccurrence runs the automation for one named trigger occurrence.
// Trigger delivery is external and at least once; the occurrence string
// identifies one firing (a timestamp, an upstream event ID), so a
// redelivered firing does not restart devices that already confirmed.
// An empty occurrence runs without deduplication.
func (m *Manager) RunOccurrence(ctx context.Context, id, occurrence string) error {
	a, err := m.Get(id)
	if err != nil {
		return err
	}
	if !a.Enabled {
		return ErrDisabled
	}

	runKey := ""
	if occurrence != "" {
		runKey = "automation|" + a.ID + "|" + occurrence
	}

	log.Info().Str("automation", a.ID).Str("effect", a.EffectID).Msg("Running automation")
	return m.effects.StartEffectKeyed(ctx, a.EffectID, a.DeviceIDs, runKey)
}

func (m *Manager) notify(id, change string) {
	m.bus.Publish(eventbus.Event{
		Type:    eventbus.EventTypeAutomation,
		Payload: eventbus.CollectionChanged{ID: id, Change: change},
	})
}
