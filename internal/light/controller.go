// Package light defines the device controller contract. Protocol
// implementations (discovery, framing, transport) live outside this
// module; everything here talks to a Controller and observes the
// outcome through the device registry.
package light

import (
	"context"

	"github.com/lightflow/flowd/internal/device"
	"github.com/lightflow/flowd/internal/flow"
)

// Controller transmits commands to a bulb. All methods are asynchronous
// from the caller's point of view: a nil error means the request was
// accepted for transmission, not that the device applied it. The device
// state observed via the registry is the only completion signal.
type Controller interface {
	// StartColorFlow asks the device to begin playing params. The caller
	// must have validated params; controllers may assume a non-empty,
	// in-range program.
	StartColorFlow(ctx context.Context, d device.Device, params flow.Params) error

	// StopColorFlow asks the device to stop its current flow.
	StopColorFlow(ctx context.Context, d device.Device) error

	// SetPower turns the device on or off.
	SetPower(ctx context.Context, d device.Device, on bool) error
}
