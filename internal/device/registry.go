package device

import (
	"errors"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/lightflow/flowd/internal/eventbus"
)

// ErrNotFound is returned when a device ID is not in the registry.
var ErrNotFound = errors.New("device not found")

// Registry is the in-memory store of devices and their observable state.
// It is seeded once from configuration (there is no discovery here) and
// then mutated only through Set* feedback from the controller path.
// Every mutation publishes a DeviceStateChanged event on the bus, so
// observers follow state changes without polling. Safe for concurrent
// use; dispatch completions arrive from controller goroutines.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*Device
	bus     *eventbus.Bus
}

// NewRegistry creates a registry seeded with the given devices.
func NewRegistry(bus *eventbus.Bus, seed []Device) *Registry {
	r := &Registry{
		devices: make(map[string]*Device, len(seed)),
		bus:     bus,
	}
	for i := range seed {
		d := seed[i]
		if d.ID == "" {
			log.Warn().Str("name", d.Name).Str("ip", d.IP).Msg("Skipping device without ID")
			continue
		}
		r.devices[d.ID] = &d
	}
	return r
}

// Get returns a snapshot of the device with the given ID.
func (r *Registry) Get(id string) (Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[id]
	if !ok {
		return Device{}, ErrNotFound
	}
	return *d, nil
}

// List returns snapshots of all devices, ordered by ID.
func (r *Registry) List() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetFlowing updates the flowing flag and notifies observers.
// Unknown IDs are discarded silently: completions for devices that have
// been removed must not crash anything (late async results).
func (r *Registry) SetFlowing(id string, flowing bool) {
	r.update(id, func(d *Device) { d.Flowing = flowing })
}

// SetPower updates the power flag and notifies observers.
func (r *Registry) SetPower(id string, on bool) {
	r.update(id, func(d *Device) {
		d.Power = on
		if !on {
			d.Flowing = false
		}
	})
}

func (r *Registry) update(id string, mutate func(*Device)) {
	r.mu.Lock()
	d, ok := r.devices[id]
	if !ok {
		r.mu.Unlock()
		log.Debug().Str("device", id).Msg("State update for unknown device, discarding")
		return
	}
	mutate(d)
	snapshot := *d
	r.mu.Unlock()

	r.bus.Publish(eventbus.Event{
		Type: eventbus.EventTypeDeviceState,
		Payload: eventbus.DeviceStateChanged{
			DeviceID: snapshot.ID,
			Power:    snapshot.Power,
			Flowing:  snapshot.Flowing,
		},
	})
}
