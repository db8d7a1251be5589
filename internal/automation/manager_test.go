package automation

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightflow/flowd/internal/db"
	"github.com/lightflow/flowd/internal/device"
	"github.com/lightflow/flowd/internal/dispatch"
	"github.com/lightflow/flowd/internal/effect"
	"github.com/lightflow/flowd/internal/eventbus"
	"github.com/lightflow/flowd/internal/flow"
	"github.com/lightflow/flowd/internal/ledger"
)

type startCounter struct {
	starts atomic.Int64
}

func (c *startCounter) StartColorFlow(context.Context, device.Device, flow.Params) error {
	c.starts.Add(1)
	return nil
}

func (c *startCounter) StopColorFlow(context.Context, device.Device) error { return nil }

func (c *startCounter) SetPower(context.Context, device.Device, bool) error { return nil }

func newTestManager(t *testing.T) (*Manager, *startCounter) {
	t.Helper()

	bus := eventbus.NewWithConfig(1, 16)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		bus.Close(ctx)
	})

	reg := device.NewRegistry(bus, []device.Device{{ID: "bulb-1", IP: "192.168.1.10"}})
	ctrl := &startCounter{}
	disp := dispatch.New(reg, ctrl, nil, bus)
	effects := effect.NewManager(bus, disp, []effect.Effect{
		{ID: "e1", Name: "pulse", Params: flow.PresetPulse.Params()},
	})

	m := NewManager(bus, effects, []Automation{
		{ID: "a1", Name: "Evening", Trigger: "sunset", EffectID: "e1", DeviceIDs: []string{"bulb-1"}, Enabled: true},
		{ID: "a2", Name: "Night", Trigger: "23:00", EffectID: "e1", DeviceIDs: []string{"bulb-1"}},
	})
	return m, ctrl
}

func TestManager_ListOrdered(t *testing.T) {
	m, _ := newTestManager(t)

	list := m.Automations()
	require.Len(t, list, 2)
	assert.Equal(t, "Evening", list[0].Name)
	assert.Equal(t, "Night", list[1].Name)
}

func TestManager_RunEnabled(t *testing.T) {
	m, ctrl := newTestManager(t)

	require.NoError(t, m.Run(context.Background(), "a1"))
	assert.Equal(t, int64(1), ctrl.starts.Load())
}

func TestManager_RunDisabledRefused(t *testing.T) {
	m, ctrl := newTestManager(t)

	assert.ErrorIs(t, m.Run(context.Background(), "a2"), ErrDisabled)
	assert.Zero(t, ctrl.starts.Load())
}

func TestManager_SetEnabled(t *testing.T) {
	m, ctrl := newTestManager(t)

	require.NoError(t, m.SetEnabled("a2", true))
	require.NoError(t, m.Run(context.Background(), "a2"))
	assert.Equal(t, int64(1), ctrl.starts.Load())

	require.NoError(t, m.SetEnabled("a1", false))
	assert.ErrorIs(t, m.Run(context.Background(), "a1"), ErrDisabled)

	assert.ErrorIs(t, m.SetEnabled("ghost", true), ErrNotFound)
}

func TestManager_RunOccurrenceRedelivered(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "automations.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	l := ledger.New(database.DB)

	bus := eventbus.NewWithConfig(1, 16)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		bus.Close(ctx)
	})

	reg := device.NewRegistry(bus, []device.Device{{ID: "bulb-1", IP: "192.168.1.10"}})
	ctrl := &startCounter{}
	disp := dispatch.New(reg, ctrl, l, bus)
	effects := effect.NewManager(bus, disp, []effect.Effect{
		{ID: "e1", Name: "pulse", Params: flow.PresetPulse.Params()},
	})
	m := NewManager(bus, effects, []Automation{
		{ID: "a1", Name: "Evening", Trigger: "sunset", EffectID: "e1", DeviceIDs: []string{"bulb-1"}, Enabled: true},
	})

	require.NoError(t, m.RunOccurrence(context.Background(), "a1", "2026-08-31T19:42:00Z"))
	require.Equal(t, int64(1), ctrl.starts.Load())

	// Device confirms, then the same firing arrives again.
	reg.SetFlowing("bulb-1", true)
	deadline := time.Now().Add(2 * time.Second)
	for !l.HasCompleted("automation|a1|2026-08-31T19:42:00Z|bulb-1") {
		if time.Now().After(deadline) {
			t.Fatal("completion not recorded before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}

	require.NoError(t, m.RunOccurrence(context.Background(), "a1", "2026-08-31T19:42:00Z"))
	assert.Equal(t, int64(1), ctrl.starts.Load(), "redelivered firing must not restart a confirmed device")

	// A different firing starts again.
	require.NoError(t, m.RunOccurrence(context.Background(), "a1", "2026-09-01T19:41:00Z"))
	assert.Equal(t, int64(2), ctrl.starts.Load())
}

func TestManager_Delete(t *testing.T) {
	m, _ := newTestManager(t)

	require.NoError(t, m.Delete("a1"))
	assert.ErrorIs(t, m.Run(context.Background(), "a1"), ErrNotFound)
	assert.ErrorIs(t, m.Delete("a1"), ErrNotFound)
}
