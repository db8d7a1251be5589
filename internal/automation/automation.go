// Package automation manages passive automation entities: named links
// between a trigger description, an effect and a set of target devices.
// Trigger evaluation happens outside this module; automations here are
// listed, toggled, deleted and run on explicit request only.
package automation

// Automation binds an effect to devices under a human-readable trigger
// description. Trigger is opaque to this system: it is displayed and
// stored, never evaluated.
type Automation struct {
	ID        string   `yaml:"id" json:"id"`
	Name      string   `yaml:"name" json:"name"`
	Trigger   string   `yaml:"trigger" json:"trigger"`
	EffectID  string   `yaml:"effect" json:"effect"`
	DeviceIDs []string `yaml:"devices" json:"devices"`
	Enabled   bool     `yaml:"enabled" json:"enabled"`
}
