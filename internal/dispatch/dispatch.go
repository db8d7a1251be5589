// Package dispatch turns user intent (start/stop/toggle a flow) into
// controller requests. It validates programs before anything leaves the
// process, records every accepted request in the command ledger, and
// marks commands completed once device feedback confirms them.
package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lightflow/flowd/internal/device"
	"github.com/lightflow/flowd/internal/eventbus"
	"github.com/lightflow/flowd/internal/flow"
	"github.com/lightflow/flowd/internal/ledger"
	"github.com/lightflow/flowd/internal/light"
)

// Command names recorded in the ledger.
const (
	cmdFlowStart = "flow_start"
	cmdFlowStop  = "flow_stop"
	cmdPowerOn   = "power_on"
	cmdPowerOff  = "power_off"
)

// pendingCommand is an accepted request awaiting device feedback.
type pendingCommand struct {
	key     string
	command string
}

// Dispatcher routes flow activation requests to the controller.
// Requests are fire-and-forget: a nil error means the controller
// accepted the request, and the eventual outcome is observed through
// the device registry, never through a return value here. The
// dispatcher watches that same feedback to close the loop in the
// ledger: an accepted command becomes command_completed when the
// device's observed state matches what the command asked for.
type Dispatcher struct {
	registry   *device.Registry
	controller light.Controller
	ledger     *ledger.Ledger // may be nil, auditing is optional
	bus        *eventbus.Bus

	// One in-flight flow command and one power command per device,
	// keyed deviceID + "|" + class.
	pendMu  sync.Mutex
	pending map[string]pendingCommand
}

// New creates a dispatcher and subscribes it to device state feedback.
func New(registry *device.Registry, controller light.Controller, l *ledger.Ledger, bus *eventbus.Bus) *Dispatcher {
	d := &Dispatcher{
		registry:   registry,
		controller: controller,
		ledger:     l,
		bus:        bus,
		pending:    make(map[string]pendingCommand),
	}
	bus.Subscribe(eventbus.EventTypeDeviceState, d.onDeviceState)
	return d
}

// Toggle starts or stops a flow depending on the device's current
// flowing flag: flowing devices get a stop request, idle devices get a
// start with params. This is the idle -> flowing -> idle state machine;
// transitions happen only on explicit calls here or device feedback in
// the registry.
func (d *Dispatcher) Toggle(ctx context.Context, deviceID string, params flow.Params) error {
	dev, err := d.registry.Get(deviceID)
	if err != nil {
		return fmt.Errorf("toggle flow: %w", err)
	}

	if dev.Flowing {
		return d.stop(ctx, dev)
	}
	return d.start(ctx, dev, params, "")
}

// Start validates params and requests a flow start on the device.
func (d *Dispatcher) Start(ctx context.Context, deviceID string, params flow.Params) error {
	return d.StartKeyed(ctx, deviceID, "", params)
}

// StartKeyed is Start with a caller-supplied idempotency key, for
// at-least-once callers such as external trigger delivery. A key whose
// command has already completed is skipped without touching the device;
// an empty key gets a fresh one and never dedupes.
func (d *Dispatcher) StartKeyed(ctx context.Context, deviceID, key string, params flow.Params) error {
	dev, err := d.registry.Get(deviceID)
	if err != nil {
		return fmt.Errorf("start flow: %w", err)
	}

	if key != "" && d.ledger != nil && d.ledger.HasCompleted(key) {
		log.Debug().Str("device", dev.ID).Str("key", key).Msg("Flow start already completed, skipping")
		return nil
	}
	return d.start(ctx, dev, params, key)
}

// Stop requests a flow stop on the device.
func (d *Dispatcher) Stop(ctx context.Context, deviceID string) error {
	dev, err := d.registry.Get(deviceID)
	if err != nil {
		return fmt.Errorf("stop flow: %w", err)
	}
	return d.stop(ctx, dev)
}

// StartPreset resolves a preset and starts it with the default policy.
// Custom and unknown presets resolve empty and are refused here.
func (d *Dispatcher) StartPreset(ctx context.Context, deviceID string, preset flow.Preset) error {
	return d.Start(ctx, deviceID, preset.Params())
}

// Power requests a power change on the device. Like the flow requests,
// acceptance is not application; the registry reflects the outcome.
func (d *Dispatcher) Power(ctx context.Context, deviceID string, on bool) error {
	dev, err := d.registry.Get(deviceID)
	if err != nil {
		return fmt.Errorf("set power: %w", err)
	}

	command := cmdPowerOff
	if on {
		command = cmdPowerOn
	}
	key := uuid.NewString()
	d.track(dev.ID, "power", command, key)

	if err := d.controller.SetPower(ctx, dev, on); err != nil {
		d.untrack(dev.ID, "power")
		log.Error().Str("device", dev.ID).Bool("on", on).Err(err).Msg("Power change not accepted")
		d.record(ledger.EventCommandFailed, dev.ID, key, map[string]any{
			"command": command,
			"error":   err.Error(),
		})
		return fmt.Errorf("set power on %s: %w", dev.ID, err)
	}

	log.Info().Str("device", dev.ID).Bool("on", on).Msg("Power change dispatched")
	d.record(ledger.EventCommandDispatched, dev.ID, key, map[string]any{
		"command": command,
	})
	return nil
}

func (d *Dispatcher) start(ctx context.Context, dev device.Device, params flow.Params, key string) error {
	if err := params.Validate(); err != nil {
		log.Warn().Str("device", dev.ID).Err(err).Msg("Refusing invalid flow program")
		d.record(ledger.EventCommandRefused, dev.ID, "", map[string]any{
			"command": cmdFlowStart,
			"reason":  err.Error(),
		})
		return err
	}

	if key == "" {
		key = uuid.NewString()
	}
	// Track before the controller call: feedback may beat the return.
	d.track(dev.ID, "flow", cmdFlowStart, key)

	if err := d.controller.StartColorFlow(ctx, dev, params); err != nil {
		d.untrack(dev.ID, "flow")
		log.Error().Str("device", dev.ID).Err(err).Msg("Flow start not accepted")
		d.record(ledger.EventCommandFailed, dev.ID, key, map[string]any{
			"command": cmdFlowStart,
			"error":   err.Error(),
		})
		return fmt.Errorf("start flow on %s: %w", dev.ID, err)
	}

	log.Info().
		Str("device", dev.ID).
		Int("transitions", len(params.Transitions)).
		Int("count", params.Count).
		Str("action", string(params.Action)).
		Msg("Flow start dispatched")

	d.record(ledger.EventCommandDispatched, dev.ID, key, map[string]any{
		"command":     cmdFlowStart,
		"transitions": len(params.Transitions),
		"count":       params.Count,
		"action":      string(params.Action),
	})
	d.bus.Publish(eventbus.Event{
		Type:    eventbus.EventTypeFlow,
		Payload: eventbus.FlowDispatched{DeviceID: dev.ID, Started: true},
	})
	return nil
}

func (d *Dispatcher) stop(ctx context.Context, dev device.Device) error {
	key := uuid.NewString()
	d.track(dev.ID, "flow", cmdFlowStop, key)

	if err := d.controller.StopColorFlow(ctx, dev); err != nil {
		d.untrack(dev.ID, "flow")
		log.Error().Str("device", dev.ID).Err(err).Msg("Flow stop not accepted")
		d.record(ledger.EventCommandFailed, dev.ID, key, map[string]any{
			"command": cmdFlowStop,
			"error":   err.Error(),
		})
		return fmt.Errorf("stop flow on %s: %w", dev.ID, err)
	}

	log.Info().Str("device", dev.ID).Msg("Flow stop dispatched")

	d.record(ledger.EventCommandDispatched, dev.ID, key, map[string]any{
		"command": cmdFlowStop,
	})
	d.bus.Publish(eventbus.Event{
		Type:    eventbus.EventTypeFlow,
		Payload: eventbus.FlowDispatched{DeviceID: dev.ID, Started: false},
	})
	return nil
}

// onDeviceState matches device feedback against pending commands and
// records completions. Feedback that matches nothing (spontaneous state
// changes, late events after a newer command replaced the pending one)
// is ignored.
func (d *Dispatcher) onDeviceState(e eventbus.Event) {
	p, ok := e.Payload.(eventbus.DeviceStateChanged)
	if !ok {
		return
	}

	d.pendMu.Lock()
	var done []pendingCommand
	if pc, ok := d.pending[p.DeviceID+"|flow"]; ok && flowConfirmed(pc.command, p.Flowing) {
		done = append(done, pc)
		delete(d.pending, p.DeviceID+"|flow")
	}
	if pc, ok := d.pending[p.DeviceID+"|power"]; ok && powerConfirmed(pc.command, p.Power) {
		done = append(done, pc)
		delete(d.pending, p.DeviceID+"|power")
	}
	d.pendMu.Unlock()

	for _, pc := range done {
		log.Debug().Str("device", p.DeviceID).Str("command", pc.command).Msg("Command confirmed by device")
		d.record(ledger.EventCommandCompleted, p.DeviceID, pc.key, map[string]any{
			"command": pc.command,
		})
	}
}

func flowConfirmed(command string, flowing bool) bool {
	return (command == cmdFlowStart && flowing) || (command == cmdFlowStop && !flowing)
}

func powerConfirmed(command string, power bool) bool {
	return (command == cmdPowerOn && power) || (command == cmdPowerOff && !power)
}

func (d *Dispatcher) track(deviceID, class, command, key string) {
	d.pendMu.Lock()
	d.pending[deviceID+"|"+class] = pendingCommand{key: key, command: command}
	d.pendMu.Unlock()
}

func (d *Dispatcher) untrack(deviceID, class string) {
	d.pendMu.Lock()
	delete(d.pending, deviceID+"|"+class)
	d.pendMu.Unlock()
}

func (d *Dispatcher) record(eventType ledger.EventType, deviceID, key string, payload map[string]any) {
	if d.ledger == nil {
		return
	}
	if err := d.ledger.Append(eventType, deviceID, key, payload); err != nil {
		log.Warn().Err(err).Str("device", deviceID).Msg("Failed to record command in ledger")
	}
}
