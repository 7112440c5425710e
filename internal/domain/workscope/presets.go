package workscope

// PresetAll is the reserved preset that clears the active filter.
const PresetAll = "all"

// Preset is a named range shortcut shown in the assignee dropdown.
// The "all" preset carries a nil Range and deactivates the filter.
type Preset struct {
	ID    string       `json:"id"`
	Label string       `json:"label"`
	Range *RangeFilter `json:"range,omitempty"`
}

// BuiltinPresets returns the default assignee presets. Deployments override
// these via the config file.
func BuiltinPresets() []Preset {
	return []Preset{
		{ID: PresetAll, Label: "All levels"},
		{ID: "designer-a", Label: "Designer A", Range: &RangeFilter{Min: 1, Max: 500}},
		{ID: "designer-b", Label: "Designer B", Range: &RangeFilter{Min: 501, Max: 1000}},
		{ID: "designer-c", Label: "Designer C", Range: &RangeFilter{Min: 1001, Max: 1500}},
	}
}

// FindPreset looks up a preset by ID. Returns false if no preset matches.
func FindPreset(presets []Preset, id string) (Preset, bool) {
	for _, p := range presets {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}
