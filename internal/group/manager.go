package group

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lightflow/flowd/internal/dispatch"
	"github.com/lightflow/flowd/internal/eventbus"
	"github.com/lightflow/flowd/internal/flow"
)

// ErrNotFound is returned when a group ID is unknown.
var ErrNotFound = errors.New("group not found")

// Manager owns the group collection. Group-wide operations fan out to
// member devices through the dispatcher; per-device failures do not
// stop the rest of the group.
type Manager struct {
	mu         sync.RWMutex
	groups     map[string]Group
	dispatcher *dispatch.Dispatcher
	bus        *eventbus.Bus
}

// NewManager creates a manager seeded with the given groups.
func NewManager(bus *eventbus.Bus, dispatcher *dispatch.Dispatcher, seed []Group) *Manager {
	m := &Manager{
		groups:     make(map[string]Group, len(seed)),
		dispatcher: dispatcher,
		bus:        bus,
	}
	for _, g := range seed {
		if g.ID == "" {
			g.ID = uuid.NewString()
		}
		if len(g.DeviceIDs) == 0 {
			log.Warn().Str("group", g.Name).Msg("Group has no devices")
		}
		m.groups[g.ID] = g
	}
	return m
}

// Groups returns the collection ordered by name.
func (m *Manager) Groups() []Group {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Group, 0, len(m.groups))
	for _, g := range m.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get returns one group by ID.
func (m *Manager) Get(id string) (Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.groups[id]
	if !ok {
		return Group{}, ErrNotFound
	}
	return g, nil
}

// DeleteGroup removes a group. Its devices are unaffected.
func (m *Manager) DeleteGroup(id string) error {
	m.mu.Lock()
	_, ok := m.groups[id]
	if ok {
		delete(m.groups, id)
	}
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}

	log.Info().Str("group", id).Msg("Group deleted")
	m.notify(id, "removed")
	return nil
}

// TurnOnAll requests power-on for every device in the group.
func (m *Manager) TurnOnAll(ctx context.Context, id string) error {
	return m.fanOut(ctx, id, func(ctx context.Context, deviceID string) error {
		return m.dispatcher.Power(ctx, deviceID, true)
	})
}

// TurnOffAll requests power-off for every device in the group.
func (m *Manager) TurnOffAll(ctx context.Context, id string) error {
	return m.fanOut(ctx, id, func(ctx context.Context, deviceID string) error {
		return m.dispatcher.Power(ctx, deviceID, false)
	})
}

// StartFlowAll starts the same flow program on every device in the
// group. The program is validated once, up front.
func (m *Manager) StartFlowAll(ctx context.Context, id string, params flow.Params) error {
	if err := params.Validate(); err != nil {
		return err
	}
	return m.fanOut(ctx, id, func(ctx context.Context, deviceID string) error {
		return m.dispatcher.Start(ctx, deviceID, params)
	})
}

// StopFlowAll stops flows on every device in the group.
func (m *Manager) StopFlowAll(ctx context.Context, id string) error {
	return m.fanOut(ctx, id, func(ctx context.Context, deviceID string) error {
		return m.dispatcher.Stop(ctx, deviceID)
	})
}

func (m *Manager) fanOut(ctx context.Context, id string, op func(context.Context, string) error) error {
	g, err := m.Get(id)
	if err != nil {
		return err
	}

	var errs []error
	for _, deviceID := range g.DeviceIDs {
		if err := op(ctx, deviceID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) notify(id, change string) {
	m.bus.Publish(eventbus.Event{
		Type:    eventbus.EventTypeGroup,
		Payload: eventbus.CollectionChanged{ID: id, Change: change},
	})
}
