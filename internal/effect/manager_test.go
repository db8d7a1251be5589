package effect

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightflow/flowd/internal/db"
	"github.com/lightflow/flowd/internal/device"
	"github.com/lightflow/flowd/internal/dispatch"
	"github.com/lightflow/flowd/internal/eventbus"
	"github.com/lightflow/flowd/internal/flow"
	"github.com/lightflow/flowd/internal/ledger"
)

type countingController struct {
	mu     sync.Mutex
	starts map[string]int
}

func (c *countingController) StartColorFlow(_ context.Context, d device.Device, _ flow.Params) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.starts == nil {
		c.starts = make(map[string]int)
	}
	c.starts[d.ID]++
	return nil
}

func (c *countingController) StopColorFlow(context.Context, device.Device) error { return nil }

func (c *countingController) SetPower(context.Context, device.Device, bool) error { return nil }

func newTestManager(t *testing.T, seed []Effect) (*Manager, *countingController) {
	t.Helper()

	bus := eventbus.NewWithConfig(1, 16)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		bus.Close(ctx)
	})

	reg := device.NewRegistry(bus, []device.Device{
		{ID: "bulb-1", IP: "192.168.1.10"},
		{ID: "bulb-2", IP: "192.168.1.11"},
	})
	ctrl := &countingController{}
	disp := dispatch.New(reg, ctrl, nil, bus)
	return NewManager(bus, disp, seed), ctrl
}

func TestManager_SeedSkipsInvalidPrograms(t *testing.T) {
	m, _ := newTestManager(t, []Effect{
		{Name: "good", Params: flow.PresetPulse.Params()},
		{Name: "broken", Params: flow.NewParams(nil)},
	})

	effects := m.Effects()
	require.Len(t, effects, 1)
	assert.Equal(t, "good", effects[0].Name)
	assert.NotEmpty(t, effects[0].ID, "seed without ID gets one generated")
}

func TestManager_SaveAndDelete(t *testing.T) {
	m, _ := newTestManager(t, nil)

	b := flow.NewBuilder()
	b.Append()
	params, err := b.Commit()
	require.NoError(t, err)

	e, err := m.Save("My flow", "from the editor", params)
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)

	got, err := m.Get(e.ID)
	require.NoError(t, err)
	assert.Equal(t, "My flow", got.Name)

	require.NoError(t, m.DeleteEffect(e.ID))
	_, err = m.Get(e.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.DeleteEffect(e.ID), ErrNotFound)
}

func TestManager_SaveRejectsInvalid(t *testing.T) {
	m, _ := newTestManager(t, nil)

	_, err := m.Save("empty", "", flow.NewParams(nil))
	require.Error(t, err)
	assert.True(t, flow.IsValidation(err))
	assert.Empty(t, m.Effects())
}

func TestManager_StartEffectFansOut(t *testing.T) {
	m, ctrl := newTestManager(t, []Effect{
		{ID: "e1", Name: "pulse", Params: flow.PresetPulse.Params()},
	})

	err := m.StartEffect(context.Background(), "e1", []string{"bulb-1", "bulb-2"})
	require.NoError(t, err)

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	assert.Equal(t, 1, ctrl.starts["bulb-1"])
	assert.Equal(t, 1, ctrl.starts["bulb-2"])
}

func TestManager_StartEffectPartialFailure(t *testing.T) {
	m, ctrl := newTestManager(t, []Effect{
		{ID: "e1", Name: "pulse", Params: flow.PresetPulse.Params()},
	})

	// One unknown device must not stop the known one.
	err := m.StartEffect(context.Background(), "e1", []string{"ghost", "bulb-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, device.ErrNotFound)

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	assert.Equal(t, 1, ctrl.starts["bulb-1"])
}

func TestManager_StartEffectKeyedRedeliveryPartial(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "effects.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	l := ledger.New(database.DB)

	bus := eventbus.NewWithConfig(1, 16)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		bus.Close(ctx)
	})

	reg := device.NewRegistry(bus, []device.Device{
		{ID: "bulb-1", IP: "192.168.1.10"},
		{ID: "bulb-2", IP: "192.168.1.11"},
	})
	ctrl := &countingController{}
	disp := dispatch.New(reg, ctrl, l, bus)
	m := NewManager(bus, disp, []Effect{
		{ID: "e1", Name: "pulse", Params: flow.PresetPulse.Params()},
	})

	err = m.StartEffectKeyed(context.Background(), "e1", []string{"bulb-1", "bulb-2"}, "run-1")
	require.NoError(t, err)

	// Only bulb-1 confirms before the run is redelivered.
	reg.SetFlowing("bulb-1", true)
	deadline := time.Now().Add(2 * time.Second)
	for !l.HasCompleted("run-1|bulb-1") {
		if time.Now().After(deadline) {
			t.Fatal("completion not recorded before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}

	err = m.StartEffectKeyed(context.Background(), "e1", []string{"bulb-1", "bulb-2"}, "run-1")
	require.NoError(t, err)

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	assert.Equal(t, 1, ctrl.starts["bulb-1"], "confirmed device must not restart")
	assert.Equal(t, 2, ctrl.starts["bulb-2"], "unconfirmed device is re-dispatched")
}

func TestManager_StartEffectRequiresDevices(t *testing.T) {
	m, _ := newTestManager(t, []Effect{
		{ID: "e1", Name: "pulse", Params: flow.PresetPulse.Params()},
	})

	assert.Error(t, m.StartEffect(context.Background(), "e1", nil))
	assert.ErrorIs(t, m.StartEffect(context.Background(), "missing", []string{"bulb-1"}), ErrNotFound)
}
