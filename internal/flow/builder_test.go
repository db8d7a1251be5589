package flow

import "testing"

func TestBuilder_AppendDefault(t *testing.T) {
	b := NewBuilder()
	b.Append()

	if b.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", b.Len())
	}
	got := b.Transitions()[0]
	if got != DefaultTransition() {
		t.Errorf("appended %+v, want %+v", got, DefaultTransition())
	}
}

func TestBuilder_CommitEmptyRefused(t *testing.T) {
	b := NewBuilder()
	if _, err := b.Commit(); err == nil {
		t.Fatal("Commit() on empty builder = nil error, want ValidationError")
	} else if !IsValidation(err) {
		t.Errorf("Commit() error = %T, want *ValidationError", err)
	}
}

func TestBuilder_CommitDefaults(t *testing.T) {
	b := NewBuilder()
	b.Append()

	p, err := b.Commit()
	if err != nil {
		t.Fatalf("Commit() error: %v", err)
	}
	if p.Count != InfiniteCount {
		t.Errorf("count = %d, want %d", p.Count, InfiniteCount)
	}
	if p.Action != ActionRecover {
		t.Errorf("action = %q, want %q", p.Action, ActionRecover)
	}
	if len(p.Transitions) != 1 {
		t.Errorf("transitions = %d, want 1", len(p.Transitions))
	}
}

func TestBuilder_CommitIsValueCopy(t *testing.T) {
	b := NewBuilder()
	b.Append()

	p, err := b.Commit()
	if err != nil {
		t.Fatalf("Commit() error: %v", err)
	}

	// Further edits must not affect the committed program.
	b.AppendTransition(Transition{DurationMs: 50, Mode: Brightness(1)})
	b.RemoveAt(0)

	if len(p.Transitions) != 1 || p.Transitions[0] != DefaultTransition() {
		t.Errorf("committed params changed by later edits: %+v", p.Transitions)
	}
}

func TestBuilder_AppendRemoveLastRestores(t *testing.T) {
	b := NewBuilder()
	b.AppendTransition(Transition{DurationMs: 200, Mode: Color(10, 20, 30)})
	b.AppendTransition(Transition{DurationMs: 400, Mode: Brightness(40)})
	before := b.Transitions()

	b.Append()
	b.RemoveAt(b.Len() - 1)

	after := b.Transitions()
	if len(after) != len(before) {
		t.Fatalf("len = %d, want %d", len(after), len(before))
	}
	for i := range before {
		if after[i] != before[i] {
			t.Errorf("[%d] = %+v, want %+v", i, after[i], before[i])
		}
	}
}

func TestBuilder_RemoveFirstOfTwo(t *testing.T) {
	first := Transition{DurationMs: 100, Mode: Brightness(10)}
	second := Transition{DurationMs: 2000, Mode: Color(0, 0, 255)}

	b := NewBuilder()
	b.AppendTransition(first)
	b.AppendTransition(second)
	b.RemoveAt(0)

	if b.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", b.Len())
	}
	if got := b.Transitions()[0]; got != second {
		t.Errorf("remaining = %+v, want %+v", got, second)
	}
}

func TestBuilder_RemoveAtIgnoresOutOfRange(t *testing.T) {
	b := NewBuilder()
	b.Append()
	b.RemoveAt(-1, 5, 100)

	if b.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (out-of-range indices ignored)", b.Len())
	}
}

func TestBuilder_RemoveAtMultiple(t *testing.T) {
	b := NewBuilder()
	for i := 1; i <= 4; i++ {
		b.AppendTransition(Transition{DurationMs: i * 100, Mode: Brightness(i * 10)})
	}
	b.RemoveAt(3, 0) // order of indices must not matter

	got := b.Transitions()
	if len(got) != 2 {
		t.Fatalf("Len() = %d, want 2", len(got))
	}
	if got[0].DurationMs != 200 || got[1].DurationMs != 300 {
		t.Errorf("remaining durations = %d,%d, want 200,300", got[0].DurationMs, got[1].DurationMs)
	}
}

func TestBuilder_Reset(t *testing.T) {
	b := NewBuilder()
	b.Append()
	b.Append()
	b.Reset()

	if b.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", b.Len())
	}
}
