// Package device holds the bulb inventory and its observable state.
package device

// Device is one addressable bulb. Identity (ID, IP) comes from
// configuration; Power and Flowing are mutable runtime state owned by
// the Registry and updated through controller feedback.
type Device struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	IP   string `yaml:"ip" json:"ip"`

	Power   bool `yaml:"-" json:"power"`
	Flowing bool `yaml:"-" json:"flowing"`
}
