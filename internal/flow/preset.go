package flow

// Preset names a fixed, built-in transition sequence. Presets are pure
// functions of their identity: resolving one has no side effects and
// always yields the same sequence.
type Preset string

const (
	PresetCandlelight Preset = "candlelight"
	PresetSunrise     Preset = "sunrise"
	PresetDisco       Preset = "disco"
	PresetPulse       Preset = "pulse"
	PresetStrobe      Preset = "strobe"

	// PresetCustom has no built-in sequence; its transitions come from
	// interactive editing (see Builder). Resolves to an empty sequence.
	PresetCustom Preset = "custom"
)

// Presets lists the built-in catalog, Custom last.
func Presets() []Preset {
	return []Preset{
		PresetCandlelight,
		PresetSunrise,
		PresetDisco,
		PresetPulse,
		PresetStrobe,
		PresetCustom,
	}
}

// Transitions resolves the preset to its canonical sequence. Custom and
// unknown presets resolve to nil; callers must refuse to start a flow
// whose resolved sequence is empty rather than dispatch it.
func (p Preset) Transitions() []Transition {
	switch p {
	case PresetCandlelight:
		return []Transition{
			{DurationMs: 800, Mode: Temperature(2700, 50)},
			{DurationMs: 800, Mode: Temperature(2000, 30)},
			{DurationMs: 1200, Mode: Temperature(2700, 80)},
			{DurationMs: 800, Mode: Temperature(2200, 40)},
		}
	case PresetSunrise:
		return []Transition{
			{DurationMs: 15000, Mode: Color(255, 60, 0)},
			{DurationMs: 15000, Mode: Color(255, 150, 30)},
			{DurationMs: 15000, Mode: Temperature(3500, 80)},
			{DurationMs: 15000, Mode: Temperature(5500, 100)},
		}
	case PresetDisco:
		return []Transition{
			{DurationMs: 500, Mode: Color(255, 0, 0)},
			{DurationMs: 500, Mode: Color(0, 255, 0)},
			{DurationMs: 500, Mode: Color(0, 0, 255)},
			{DurationMs: 500, Mode: Color(255, 0, 255)},
			{DurationMs: 500, Mode: Color(255, 255, 0)},
			{DurationMs: 500, Mode: Color(0, 255, 255)},
		}
	case PresetPulse:
		return []Transition{
			{DurationMs: 1000, Mode: Brightness(100)},
			{DurationMs: 1000, Mode: Brightness(1)},
		}
	case PresetStrobe:
		return []Transition{
			{DurationMs: 50, Mode: Brightness(100)},
			{DurationMs: 50, Mode: Brightness(1)},
		}
	default:
		return nil
	}
}

// Params resolves the preset straight into a flow program with the
// default infinite-repeat/recover policy.
func (p Preset) Params() Params {
	return NewParams(p.Transitions())
}

// Known reports whether p is part of the built-in catalog (Custom
// included).
func (p Preset) Known() bool {
	switch p {
	case PresetCandlelight, PresetSunrise, PresetDisco, PresetPulse, PresetStrobe, PresetCustom:
		return true
	}
	return false
}
