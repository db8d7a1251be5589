package light

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lightflow/flowd/internal/device"
	"github.com/lightflow/flowd/internal/flow"
)

// Loopback is a controller that acknowledges every command locally
// after a configurable latency, flipping the registry flags the way a
// real device's feedback would. It backs the daemon's standalone mode
// and the tests; completions deliberately arrive on a separate
// goroutine so callers exercise the late-result path.
type Loopback struct {
	registry *device.Registry
	latency  time.Duration
}

// NewLoopback creates a loopback controller reporting into registry.
func NewLoopback(registry *device.Registry, latency time.Duration) *Loopback {
	return &Loopback{registry: registry, latency: latency}
}

// StartColorFlow acknowledges the start after the configured latency.
func (l *Loopback) StartColorFlow(_ context.Context, d device.Device, params flow.Params) error {
	log.Debug().
		Str("device", d.ID).
		Int("transitions", len(params.Transitions)).
		Int("count", params.Count).
		Str("action", string(params.Action)).
		Msg("Loopback: flow start accepted")

	l.complete(func() {
		l.registry.SetPower(d.ID, true)
		l.registry.SetFlowing(d.ID, true)
	})
	return nil
}

// StopColorFlow acknowledges the stop after the configured latency.
func (l *Loopback) StopColorFlow(_ context.Context, d device.Device) error {
	log.Debug().Str("device", d.ID).Msg("Loopback: flow stop accepted")

	l.complete(func() {
		l.registry.SetFlowing(d.ID, false)
	})
	return nil
}

// SetPower acknowledges the power change after the configured latency.
func (l *Loopback) SetPower(_ context.Context, d device.Device, on bool) error {
	log.Debug().Str("device", d.ID).Bool("on", on).Msg("Loopback: power change accepted")

	l.complete(func() {
		l.registry.SetPower(d.ID, on)
	})
	return nil
}

// complete applies device feedback asynchronously. The triggering
// context is intentionally not honored here: an accepted request
// completes even if its originator has moved on.
func (l *Loopback) complete(apply func()) {
	if l.latency <= 0 {
		go apply()
		return
	}
	time.AfterFunc(l.latency, apply)
}
