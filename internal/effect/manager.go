package effect

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lightflow/flowd/internal/dispatch"
	"github.com/lightflow/flowd/internal/eventbus"
	"github.com/lightflow/flowd/internal/flow"
)

// ErrNotFound is returned when an effect ID is unknown.
var ErrNotFound = errors.New("effect not found")

// Manager owns the effect collection. Mutations publish effect events
// on the bus; starting an effect dispatches its program to each target
// device through the dispatcher.
type Manager struct {
	mu         sync.RWMutex
	effects    map[string]Effect
	dispatcher *dispatch.Dispatcher
	bus        *eventbus.Bus
}

// NewManager creates a manager seeded with the given effects. Seeds
// without an ID get one generated; seeds with an invalid program are
// skipped - a broken config entry must not become dispatchable.
func NewManager(bus *eventbus.Bus, dispatcher *dispatch.Dispatcher, seed []Effect) *Manager {
	m := &Manager{
		effects:    make(map[string]Effect, len(seed)),
		dispatcher: dispatcher,
		bus:        bus,
	}
	for _, e := range seed {
		if err := e.Params.Validate(); err != nil {
			log.Warn().Str("effect", e.Name).Err(err).Msg("Skipping effect with invalid program")
			continue
		}
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		m.effects[e.ID] = e
	}
	return m
}

// Effects returns the collection ordered by name.
func (m *Manager) Effects() []Effect {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Effect, 0, len(m.effects))
	for _, e := range m.effects {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get returns one effect by ID.
func (m *Manager) Get(id string) (Effect, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.effects[id]
	if !ok {
		return Effect{}, ErrNotFound
	}
	return e, nil
}

// Save adds a new effect, typically one committed from the custom
// editor, and returns it with its generated ID.
func (m *Manager) Save(name, description string, params flow.Params) (Effect, error) {
	if err := params.Validate(); err != nil {
		return Effect{}, err
	}

	e := Effect{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Params:      params,
	}

	m.mu.Lock()
	m.effects[e.ID] = e
	m.mu.Unlock()

	log.Info().Str("effect", e.ID).Str("name", e.Name).Msg("Effect saved")
	m.notify(e.ID, "added")
	return e, nil
}

// DeleteEffect removes an effect from the collection.
func (m *Manager) DeleteEffect(id string) error {
	m.mu.Lock()
	_, ok := m.effects[id]
	if ok {
		delete(m.effects, id)
	}
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}

	log.Info().Str("effect", id).Msg("Effect deleted")
	m.notify(id, "removed")
	return nil
}

// StartEffect dispatches the effect's program to every target device.
// Per-device failures do not stop the remaining devices; all failures
// are joined into the returned error.
func (m *Manager) StartEffect(ctx context.Context, id string, deviceIDs []string) error {
	return m.StartEffectKeyed(ctx, id, deviceIDs, "")
}

// StartEffectKeyed is StartEffect with an idempotency key for the run
// as a whole. Each device gets a derived per-device key, so redelivery
// of the same run re-dispatches only the devices whose command never
// completed. An empty runKey disables deduplication.
func (m *Manager) StartEffectKeyed(ctx context.Context, id string, deviceIDs []string, runKey string) error {
	e, err := m.Get(id)
	if err != nil {
		return err
	}
	if len(deviceIDs) == 0 {
		return fmt.Errorf("effect %s: no target devices", id)
	}

	var errs []error
	for _, deviceID := range deviceIDs {
		key := ""
		if runKey != "" {
			key = runKey + "|" + deviceID
		}
		if err := m.dispatcher.StartKeyed(ctx, deviceID, key, e.Params); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) notify(id, change string) {
	m.bus.Publish(eventbus.Event{
		Type:    eventbus.EventTypeEffect,
		Payload: eventbus.CollectionChanged{ID: id, Change: change},
	})
}
