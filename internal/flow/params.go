package flow

import "errors"

// EndAction is what the device does when a finite flow completes.
type EndAction string

const (
	// ActionRecover returns the light to its pre-flow state.
	ActionRecover EndAction = "recover"
	// ActionStay holds the state of the last transition.
	ActionStay EndAction = "stay"
	// ActionOff powers the light off.
	ActionOff EndAction = "off"
)

// InfiniteCount makes a flow repeat until it is explicitly stopped.
const InfiniteCount = 0

// Params is a complete flow program: an ordered transition sequence, a
// repeat count (0 = infinite) and an end-of-sequence action. Params is a
// plain value, built fresh per start request and discarded after
// dispatch; the device controller owns all transmission concerns.
type Params struct {
	Count       int          `yaml:"count" json:"count"`
	Action      EndAction    `yaml:"action" json:"action"`
	Transitions []Transition `yaml:"transitions" json:"transitions"`
}

// NewParams builds a flow program with this system's default policy:
// infinite repeat, recover on stop.
func NewParams(transitions []Transition) Params {
	return Params{
		Count:       InfiniteCount,
		Action:      ActionRecover,
		Transitions: transitions,
	}
}

// Validate checks the whole program. An empty transition list is a
// ValidationError: vacuous flows are refused by the caller, never sent.
func (p Params) Validate() error {
	if len(p.Transitions) == 0 {
		return validationf("empty transition list")
	}
	if p.Count < 0 {
		return validationf("negative repeat count %d", p.Count)
	}
	switch p.Action {
	case ActionRecover, ActionStay, ActionOff:
	default:
		return validationf("unknown end action %q", p.Action)
	}
	for i, t := range p.Transitions {
		if err := t.Validate(); err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				return validationf("transition %d: %s", i, ve.Reason)
			}
			return err
		}
	}
	return nil
}

// TotalDurationMs returns the duration of one pass over the sequence.
func (p Params) TotalDurationMs() int {
	var total int
	for _, t := range p.Transitions {
		total += t.DurationMs
	}
	return total
}
