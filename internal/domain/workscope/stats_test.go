package workscope

import (
	"testing"

	"github.com/playforge/levelboard/internal/domain/level"
)

func mkLevel(number int, status level.Status, playtest bool) level.Level {
	return level.Level{Number: number, Status: status, PlaytestRequired: playtest}
}

func TestRangeFilter_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rng     RangeFilter
		wantErr bool
	}{
		{"valid", RangeFilter{Min: 1, Max: 500}, false},
		{"single level", RangeFilter{Min: 42, Max: 42}, false},
		{"min below 1", RangeFilter{Min: 0, Max: 10}, true},
		{"max below min", RangeFilter{Min: 10, Max: 9}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rng.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRangeFilter_Contains(t *testing.T) {
	rng := &RangeFilter{Min: 10, Max: 20}
	for _, tt := range []struct {
		number int
		want   bool
	}{
		{9, false}, {10, true}, {15, true}, {20, true}, {21, false},
	} {
		if got := rng.Contains(tt.number); got != tt.want {
			t.Errorf("Contains(%d) = %v, want %v", tt.number, got, tt.want)
		}
	}

	var none *RangeFilter
	if !none.Contains(12345) {
		t.Error("nil filter must contain every level number")
	}
}

func TestComputeStats_Empty(t *testing.T) {
	s := ComputeStats(nil, nil)
	if s != (Stats{}) {
		t.Errorf("ComputeStats(nil, nil) = %+v, want all zeros", s)
	}
	if s.CompletionPct != 0 {
		t.Errorf("empty set completion = %v, want 0", s.CompletionPct)
	}
}

func TestComputeStats_RangeWindow(t *testing.T) {
	// 1500 freshly generated levels, scoped to the first designer's window.
	levels := make([]level.Level, 0, 1500)
	for i := 1; i <= 1500; i++ {
		levels = append(levels, mkLevel(i, level.StatusGenerated, false))
	}
	s := ComputeStats(levels, &RangeFilter{Min: 1, Max: 500})
	want := Stats{Total: 500, Generated: 500}
	if s != want {
		t.Errorf("ComputeStats() = %+v, want %+v", s, want)
	}
}

func TestComputeStats_Counts(t *testing.T) {
	levels := []level.Level{
		mkLevel(1, level.StatusGenerated, false),
		mkLevel(2, level.StatusGenerated, true),
		mkLevel(3, level.StatusNeedsRework, true),
		mkLevel(4, level.StatusApproved, true), // approved: playtest flag no longer counts
		mkLevel(5, level.StatusApproved, false),
		mkLevel(6, level.StatusExported, false),
		mkLevel(7, level.StatusRejected, false),
		mkLevel(1000, level.StatusGenerated, false), // out of range
	}
	s := ComputeStats(levels, &RangeFilter{Min: 1, Max: 10})
	want := Stats{
		Total:            7,
		Generated:        2,
		PlaytestRequired: 2,
		Reviewing:        1,
		Approved:         3,
		CompletionPct:    float64(3) * 100 / 7,
	}
	if s != want {
		t.Errorf("ComputeStats() = %+v, want %+v", s, want)
	}
	if sum := s.Generated + s.Reviewing + s.Approved; sum > s.Total {
		t.Errorf("status counts %d exceed total %d", sum, s.Total)
	}
}

func TestComputeStats_NoFilter(t *testing.T) {
	levels := []level.Level{
		mkLevel(1, level.StatusApproved, false),
		mkLevel(2, level.StatusApproved, false),
		mkLevel(900, level.StatusGenerated, false),
		mkLevel(901, level.StatusExported, false),
	}
	s := ComputeStats(levels, nil)
	if s.Total != 4 {
		t.Errorf("nil filter total = %d, want 4", s.Total)
	}
	if s.Approved != 3 {
		t.Errorf("approved = %d, want 3 (exported counts as done)", s.Approved)
	}
	if s.CompletionPct != 75 {
		t.Errorf("completion = %v, want 75", s.CompletionPct)
	}
}

func TestFindPreset(t *testing.T) {
	presets := BuiltinPresets()

	p, ok := FindPreset(presets, "designer-a")
	if !ok {
		t.Fatal("expected designer-a preset")
	}
	if p.Range == nil || p.Range.Min != 1 || p.Range.Max != 500 {
		t.Errorf("designer-a range = %+v, want 1..500", p.Range)
	}

	all, ok := FindPreset(presets, PresetAll)
	if !ok {
		t.Fatal("expected all preset")
	}
	if all.Range != nil {
		t.Errorf("all preset must carry a nil range, got %+v", all.Range)
	}

	if _, ok := FindPreset(presets, "nobody"); ok {
		t.Error("expected lookup miss for unknown preset")
	}
}
