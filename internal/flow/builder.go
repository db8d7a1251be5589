package flow

// DefaultTransition is what Builder.Append adds: one second of
// full-intensity red.
func DefaultTransition() Transition {
	return Transition{DurationMs: 1000, Mode: Color(255, 0, 0)}
}

// Builder holds the transition sequence of a custom flow under edit.
// It is owned by a single goroutine (the editing context) and does no
// internal locking; Commit produces an independent Params value, so the
// builder may be discarded or edited further afterwards without
// affecting anything already dispatched.
type Builder struct {
	transitions []Transition
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Append adds the default transition to the end of the sequence.
func (b *Builder) Append() {
	b.AppendTransition(DefaultTransition())
}

// AppendTransition adds t to the end of the sequence.
func (b *Builder) AppendTransition(t Transition) {
	b.transitions = append(b.transitions, t)
}

// RemoveAt removes the transitions at the given indices. Indices outside
// the current length are ignored; the relative order of the remaining
// transitions is preserved.
func (b *Builder) RemoveAt(indices ...int) {
	if len(indices) == 0 || len(b.transitions) == 0 {
		return
	}

	drop := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(b.transitions) {
			drop[i] = struct{}{}
		}
	}
	if len(drop) == 0 {
		return
	}

	kept := b.transitions[:0]
	for i, t := range b.transitions {
		if _, gone := drop[i]; !gone {
			kept = append(kept, t)
		}
	}
	b.transitions = kept
}

// Len returns the number of transitions currently in the sequence.
func (b *Builder) Len() int {
	return len(b.transitions)
}

// Transitions returns a copy of the current sequence.
func (b *Builder) Transitions() []Transition {
	out := make([]Transition, len(b.transitions))
	copy(out, b.transitions)
	return out
}

// Reset drops all pending edits.
func (b *Builder) Reset() {
	b.transitions = nil
}

// Commit freezes the current sequence into an immutable flow program
// with the default policy (infinite repeat, recover). Committing an
// empty sequence returns a ValidationError; an empty program must never
// reach a device.
func (b *Builder) Commit() (Params, error) {
	if len(b.transitions) == 0 {
		return Params{}, validationf("empty transition list")
	}
	p := NewParams(b.Transitions())
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}
