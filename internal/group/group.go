// Package group manages named device groups: membership plus the
// all-on/all-off and group flow operations.
package group

// Group is a named set of devices addressed together. Membership is
// config-seeded; the collection is in-memory runtime state.
type Group struct {
	ID        string   `yaml:"id" json:"id"`
	Name      string   `yaml:"name" json:"name"`
	DeviceIDs []string `yaml:"devices" json:"devices"`
}
