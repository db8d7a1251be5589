// Package flow implements the flow effect model: timed sequences of
// color/temperature/brightness transitions played on a light device.
package flow

import "fmt"

// ModeKind discriminates the target state of a transition.
type ModeKind string

const (
	ModeColor       ModeKind = "color"
	ModeTemperature ModeKind = "temperature"
	ModeBrightness  ModeKind = "brightness"
)

// Valid ranges for mode values
const (
	MinBrightness = 1
	MaxBrightness = 100

	MinKelvin = 1700
	MaxKelvin = 6500
)

// Mode is the target light state of a single transition. Exactly one of
// the three variants is active, selected by Kind; the constructors below
// are the only intended way to build one.
type Mode struct {
	Kind ModeKind `yaml:"kind" json:"kind"`

	// Color channels (Kind == ModeColor)
	Red   uint8 `yaml:"red,omitempty" json:"red,omitempty"`
	Green uint8 `yaml:"green,omitempty" json:"green,omitempty"`
	Blue  uint8 `yaml:"blue,omitempty" json:"blue,omitempty"`

	// White temperature (Kind == ModeTemperature)
	Kelvin int `yaml:"kelvin,omitempty" json:"kelvin,omitempty"`

	// Brightness percent. Target level for ModeBrightness, paired
	// brightness for ModeTemperature.
	Level int `yaml:"level,omitempty" json:"level,omitempty"`
}

// Color builds a color mode. Channels cover the full uint8 range, so no
// clamping is needed here.
func Color(red, green, blue uint8) Mode {
	return Mode{Kind: ModeColor, Red: red, Green: green, Blue: blue}
}

// Temperature builds a white-temperature mode with a paired brightness.
func Temperature(kelvin, brightness int) Mode {
	return Mode{Kind: ModeTemperature, Kelvin: kelvin, Level: brightness}
}

// Brightness builds a brightness-only mode.
func Brightness(level int) Mode {
	return Mode{Kind: ModeBrightness, Level: level}
}

// Validate checks the mode values against their documented ranges.
func (m Mode) Validate() error {
	switch m.Kind {
	case ModeColor:
		// uint8 channels cannot be out of range
		return nil
	case ModeTemperature:
		if m.Kelvin < MinKelvin || m.Kelvin > MaxKelvin {
			return validationf("temperature %dK outside %d-%dK", m.Kelvin, MinKelvin, MaxKelvin)
		}
		if m.Level < MinBrightness || m.Level > MaxBrightness {
			return validationf("brightness %d outside %d-%d", m.Level, MinBrightness, MaxBrightness)
		}
		return nil
	case ModeBrightness:
		if m.Level < MinBrightness || m.Level > MaxBrightness {
			return validationf("brightness %d outside %d-%d", m.Level, MinBrightness, MaxBrightness)
		}
		return nil
	default:
		return validationf("unknown mode kind %q", m.Kind)
	}
}

// String returns a compact human-readable form, used in logs.
func (m Mode) String() string {
	switch m.Kind {
	case ModeColor:
		return fmt.Sprintf("color(%d,%d,%d)", m.Red, m.Green, m.Blue)
	case ModeTemperature:
		return fmt.Sprintf("temperature(%dK,%d%%)", m.Kelvin, m.Level)
	case ModeBrightness:
		return fmt.Sprintf("brightness(%d%%)", m.Level)
	default:
		return string(m.Kind)
	}
}

// Transition is one step of a flow: hold/fade to Mode over DurationMs
// milliseconds.
type Transition struct {
	DurationMs int  `yaml:"duration_ms" json:"duration_ms"`
	Mode       Mode `yaml:"mode" json:"mode"`
}

// Validate checks duration and mode ranges. Transitions failing
// validation must never be dispatched to a device.
func (t Transition) Validate() error {
	if t.DurationMs < 1 {
		return validationf("duration %dms, must be >= 1ms", t.DurationMs)
	}
	return t.Mode.Validate()
}
