package models

import (
	"encoding/json"
	"fmt"
)

// WindowPreset names one of the four built-in study-window presets.
type WindowPreset string

const (
	PresetMorning   WindowPreset = "morning"
	PresetAfternoon WindowPreset = "afternoon"
	PresetEvening   WindowPreset = "evening"
	PresetNight     WindowPreset = "night"
)

// presetRanges gives each preset's local HH:MM start/end, per spec §3.
var presetRanges = map[WindowPreset][2]string{
	PresetMorning:   {"07:00", "11:00"},
	PresetAfternoon: {"12:00", "16:30"},
	PresetEvening:   {"17:00", "21:00"},
	PresetNight:     {"21:00", "23:00"},
}

// Window is a tagged variant: either a named preset or a custom local
// HH:MM-HH:MM range. Per the spec's design notes, this replaces the
// original dynamic record shape with a statically typed variant.
type Window struct {
	Type   string       `json:"type"` // "preset" or "custom"
	Preset WindowPreset `json:"value,omitempty"`
	Start  string       `json:"-"` // HH:MM, only set when Type == "custom"
	End    string       `json:"-"`
}

// customWindowValue is the JSON shape of a custom window's "value" field.
type customWindowValue struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Bounds returns the local HH:MM start/end for this window, resolving
// presets via the table above.
func (w Window) Bounds() (start, end string, err error) {
	switch w.Type {
	case "preset":
		r, ok := presetRanges[w.Preset]
		if !ok {
			return "", "", fmt.Errorf("unknown window preset %q", w.Preset)
		}
		return r[0], r[1], nil
	case "custom":
		if w.Start == "" || w.End == "" {
			return "", "", fmt.Errorf("custom window missing start/end")
		}
		return w.Start, w.End, nil
	default:
		return "", "", fmt.Errorf("unknown window type %q", w.Type)
	}
}

// NewPresetWindow builds a named-preset window.
func NewPresetWindow(p WindowPreset) Window {
	return Window{Type: "preset", Preset: p}
}

// NewCustomWindow builds a custom HH:MM-HH:MM window.
func NewCustomWindow(start, end string) Window {
	return Window{Type: "custom", Start: start, End: end}
}

// MarshalJSON serializes the tagged variant, including the legacy bare
// string form being round-trippable through the preset shape.
func (w Window) MarshalJSON() ([]byte, error) {
	switch w.Type {
	case "preset":
		return json.Marshal(struct {
			Type  string       `json:"type"`
			Value WindowPreset `json:"value"`
		}{"preset", w.Preset})
	case "custom":
		return json.Marshal(struct {
			Type  string             `json:"type"`
			Value customWindowValue `json:"value"`
		}{"custom", customWindowValue{w.Start, w.End}})
	default:
		return nil, fmt.Errorf("window has no type set")
	}
}

// UnmarshalJSON accepts the modern {type,value} shape as well as the
// legacy bare-string preset form ("morning"), per spec §6.
func (w *Window) UnmarshalJSON(data []byte) error {
	// Legacy: a bare JSON string naming a preset.
	var legacy string
	if err := json.Unmarshal(data, &legacy); err == nil {
		*w = NewPresetWindow(WindowPreset(legacy))
		return nil
	}

	var tagged struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("invalid window shape: %w", err)
	}

	switch tagged.Type {
	case "preset":
		var preset WindowPreset
		if err := json.Unmarshal(tagged.Value, &preset); err != nil {
			return fmt.Errorf("invalid preset window value: %w", err)
		}
		*w = NewPresetWindow(preset)
	case "custom":
		var v customWindowValue
		if err := json.Unmarshal(tagged.Value, &v); err != nil {
			return fmt.Errorf("invalid custom window value: %w", err)
		}
		*w = NewCustomWindow(v.Start, v.End)
	default:
		return fmt.Errorf("unknown window type %q", tagged.Type)
	}
	return nil
}
