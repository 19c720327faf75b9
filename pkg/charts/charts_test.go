package charts

import (
	"fmt"
	"testing"

	"github.com/hervehildenbrand/looking-glass/pkg/models"
)

func bucket(label string, roa, caida, ai models.Counts) models.GraphBucket {
	return models.GraphBucket{
		Label:         label,
		SummaryBucket: models.SummaryBucket{ROA: roa, ASPACAIDA: caida, ASPAAI: ai},
	}
}

func buckets(n int) []models.GraphBucket {
	out := make([]models.GraphBucket, n)
	for i := range out {
		out[i] = bucket(fmt.Sprintf("b%d", i), models.Counts{Valid: i}, models.Counts{}, models.Counts{})
	}
	return out
}

func TestBuildBarData(t *testing.T) {
	data := []models.GraphBucket{
		bucket("Oktober", models.Counts{Valid: 1, Invalid: 2, Unknown: 3}, models.Counts{Valid: 4, Invalid: 5, Unknown: 6}, models.Counts{}),
		bucket("November", models.Counts{Valid: 7, Invalid: 8, Unknown: 9}, models.Counts{Valid: 10, Invalid: 11, Unknown: 12}, models.Counts{}),
	}

	tests := []struct {
		source  models.ValidationSource
		valid   []int
		invalid []int
		unknown []int
	}{
		{models.SourceROA, []int{1, 7}, []int{2, 8}, []int{3, 9}},
		{models.SourceASPACAIDA, []int{4, 10}, []int{5, 11}, []int{6, 12}},
		{models.SourceASPAAI, []int{0, 0}, []int{0, 0}, []int{0, 0}},
	}

	for _, tt := range tests {
		t.Run(string(tt.source), func(t *testing.T) {
			bar := BuildBarData(data, tt.source)

			if len(bar.Labels) != 2 || bar.Labels[0] != "Oktober" || bar.Labels[1] != "November" {
				t.Errorf("Labels should preserve bucket order, got %v", bar.Labels)
			}
			if len(bar.Datasets) != 3 {
				t.Fatalf("Expected 3 datasets, got %d", len(bar.Datasets))
			}

			want := [][]int{tt.valid, tt.invalid, tt.unknown}
			names := []string{"Valid", "Invalid", "Unknown"}
			for i, ds := range bar.Datasets {
				if ds.Label != names[i] {
					t.Errorf("Dataset %d label = %q, want %q", i, ds.Label, names[i])
				}
				if ds.BorderRadius != 4 {
					t.Errorf("Dataset %d borderRadius = %d, want 4", i, ds.BorderRadius)
				}
				for j := range want[i] {
					if ds.Data[j] != want[i][j] {
						t.Errorf("%s[%d] = %d, want %d", ds.Label, j, ds.Data[j], want[i][j])
					}
				}
			}
		})
	}
}

func TestBuildBarData_Empty(t *testing.T) {
	bar := BuildBarData(nil, models.SourceROA)
	if len(bar.Labels) != 0 {
		t.Errorf("Expected no labels, got %v", bar.Labels)
	}
	if len(bar.Datasets) != 3 || len(bar.Datasets[0].Data) != 0 {
		t.Errorf("Expected 3 empty datasets, got %+v", bar.Datasets)
	}
}

func TestBuildDoughnutData_NilSummary(t *testing.T) {
	d := BuildDoughnutData(nil, models.SourceROA)

	want := []string{"Valid", "Invalid", "Unknown"}
	for i, l := range want {
		if d.Labels[i] != l {
			t.Errorf("Label[%d] = %q, want %q", i, d.Labels[i], l)
		}
	}
	if len(d.Datasets) != 1 {
		t.Fatalf("Expected 1 dataset, got %d", len(d.Datasets))
	}
	for i, v := range d.Datasets[0].Data {
		if v != 0 {
			t.Errorf("Data[%d] = %d, want 0", i, v)
		}
	}
	if d.Datasets[0].Label != "Anzahl" || d.Datasets[0].BorderWidth != 2 {
		t.Errorf("Unexpected dataset meta: %+v", d.Datasets[0])
	}
}

func TestBuildDoughnutData(t *testing.T) {
	summary := &models.SummaryBucket{ASPAAI: models.Counts{Valid: 5, Invalid: 6, Unknown: 7}}
	d := BuildDoughnutData(summary, models.SourceASPAAI)

	got := d.Datasets[0].Data
	if got[0] != 5 || got[1] != 6 || got[2] != 7 {
		t.Errorf("Data = %v, want [5 6 7]", got)
	}
}

func TestWindow_Spool(t *testing.T) {
	var w Window
	w.Reset(30)

	if !w.Spoolable() {
		t.Error("30 buckets should be spoolable")
	}
	if w.Spool(SpoolBackward) {
		t.Error("Backward at offset 0 should not move")
	}
	if !w.Spool(SpoolForward) || w.Offset() != 12 {
		t.Errorf("Forward should move to 12, got %d", w.Offset())
	}
	if !w.Spool(SpoolForward) || w.Offset() != 24 {
		t.Errorf("Forward should move to 24, got %d", w.Offset())
	}
	if w.Spool(SpoolForward) {
		t.Errorf("Forward past the end should not move, offset %d", w.Offset())
	}

	start, end := w.Bounds()
	if start != 24 || end != 30 {
		t.Errorf("Bounds() = [%d,%d), want [24,30)", start, end)
	}

	if !w.Spool(SpoolBackward) || w.Offset() != 12 {
		t.Errorf("Backward should move to 12, got %d", w.Offset())
	}
	if !w.Spool(SpoolCurrent) || w.Offset() != 0 {
		t.Errorf("Current should rewind to 0, got %d", w.Offset())
	}
	if w.Spool("sideways") {
		t.Error("Unknown direction should not move")
	}
}

func TestWindow_Small(t *testing.T) {
	var w Window
	w.Reset(5)

	if w.Spoolable() {
		t.Error("5 buckets should not be spoolable")
	}
	if w.Spool(SpoolForward) {
		t.Error("Forward should not move for a single window")
	}
	start, end := w.Bounds()
	if start != 0 || end != 5 {
		t.Errorf("Bounds() = [%d,%d), want [0,5)", start, end)
	}
}

func TestPanel(t *testing.T) {
	p := NewPanel()
	if p.Source() != models.SourceROA {
		t.Fatalf("Default source = %s, want ROA", p.Source())
	}

	p.SetData(buckets(20), nil)
	p.Spool(SpoolForward)

	b, ok := p.Bucket(3)
	if !ok || b.Label != "b15" {
		t.Errorf("Bucket(3) after spool = %q, %v; want b15", b.Label, ok)
	}
	if _, ok := p.Bucket(8); ok {
		t.Error("Bucket(8) should be outside the last window of 20")
	}

	view := p.View()
	if view.Offset != 12 || len(view.Bar.Labels) != 8 {
		t.Errorf("View offset %d with %d labels, want 12 and 8", view.Offset, len(view.Bar.Labels))
	}
	if view.Doughnut.Datasets[0].Data[0] != 0 {
		t.Error("Doughnut should default to zeros")
	}

	if err := p.SelectSource("ASPA_AI"); err != nil {
		t.Fatalf("SelectSource error = %v", err)
	}
	if p.Source() != models.SourceASPAAI {
		t.Errorf("Source = %s, want ASPA_AI", p.Source())
	}
	if err := p.SelectSource("RPKI"); err == nil {
		t.Error("Expected error for unknown source")
	}

	p.SetData(buckets(3), nil)
	if p.Offset() != 0 {
		t.Errorf("SetData should rewind the window, offset %d", p.Offset())
	}
}
