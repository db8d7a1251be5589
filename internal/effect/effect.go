// Package effect manages the collection of saved flow effects.
package effect

import "github.com/lightflow/flowd/internal/flow"

// Effect is a saved flow program with a display name. Effects are
// config-seeded or saved from the custom editor; the collection lives
// in memory for the lifetime of the process.
type Effect struct {
	ID          string      `yaml:"id" json:"id"`
	Name        string      `yaml:"name" json:"name"`
	Description string      `yaml:"description" json:"description"`
	Params      flow.Params `yaml:"params" json:"params"`
}
