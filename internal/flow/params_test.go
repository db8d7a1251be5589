package flow

import "testing"

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{
			name:   "valid_single_transition",
			params: NewParams([]Transition{{DurationMs: 500, Mode: Brightness(50)}}),
		},
		{
			name:    "empty_transitions",
			params:  NewParams(nil),
			wantErr: true,
		},
		{
			name: "negative_count",
			params: Params{
				Count:       -1,
				Action:      ActionRecover,
				Transitions: []Transition{{DurationMs: 500, Mode: Brightness(50)}},
			},
			wantErr: true,
		},
		{
			name: "unknown_action",
			params: Params{
				Action:      EndAction("explode"),
				Transitions: []Transition{{DurationMs: 500, Mode: Brightness(50)}},
			},
			wantErr: true,
		},
		{
			name:    "zero_duration",
			params:  NewParams([]Transition{{DurationMs: 0, Mode: Brightness(50)}}),
			wantErr: true,
		},
		{
			name:    "brightness_too_low",
			params:  NewParams([]Transition{{DurationMs: 500, Mode: Brightness(0)}}),
			wantErr: true,
		},
		{
			name:    "brightness_too_high",
			params:  NewParams([]Transition{{DurationMs: 500, Mode: Brightness(101)}}),
			wantErr: true,
		},
		{
			name:    "temperature_out_of_range",
			params:  NewParams([]Transition{{DurationMs: 500, Mode: Temperature(1000, 50)}}),
			wantErr: true,
		},
		{
			name:    "temperature_brightness_out_of_range",
			params:  NewParams([]Transition{{DurationMs: 500, Mode: Temperature(4000, 0)}}),
			wantErr: true,
		},
		{
			name: "finite_count_with_off",
			params: Params{
				Count:       3,
				Action:      ActionOff,
				Transitions: []Transition{{DurationMs: 500, Mode: Color(255, 255, 255)}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr && err == nil {
				t.Error("Validate() = nil, want error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if tt.wantErr && err != nil && !IsValidation(err) {
				t.Errorf("Validate() returned %T, want *ValidationError", err)
			}
		})
	}
}

func TestParamsTotalDuration(t *testing.T) {
	p := NewParams([]Transition{
		{DurationMs: 300, Mode: Brightness(10)},
		{DurationMs: 700, Mode: Brightness(90)},
	})
	if got := p.TotalDurationMs(); got != 1000 {
		t.Errorf("TotalDurationMs() = %d, want 1000", got)
	}
}
