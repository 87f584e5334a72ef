package chart

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mementolab/driftwatch/internal/metrics"
)

func pair(idx int, tsNew string, important, notImportant int) metrics.PairMetrics {
	pm := metrics.PairMetrics{PairIndex: idx}
	if tsNew != "" {
		pm.TimestampNew = &tsNew
	}
	pm.Changes.Important = important
	pm.Changes.NotImportant = notImportant
	return pm
}

func TestPickHighestScoringPairPerDay(t *testing.T) {
	t.Parallel()
	pairs := []metrics.PairMetrics{
		pair(2, "2014-03-01T01:00:00Z", 0, 0),
		pair(5, "2014-03-01T08:00:00Z", 0, 0),
		pair(7, "2014-03-01T20:00:00Z", 2, 1),
	}
	picks := PickOnePairPerDay(pairs)
	if len(picks) != 1 {
		t.Fatalf("got %d picks, want 1", len(picks))
	}
	if picks[0].PairIndex != 7 || picks[0].Important != 2 || picks[0].NotImportant != 1 {
		t.Fatalf("pick = %+v", picks[0])
	}
	if picks[0].Day != "2014-03-01" {
		t.Fatalf("day = %q", picks[0].Day)
	}
}

func TestPickTieBreaksOnSmallerIndex(t *testing.T) {
	t.Parallel()
	pairs := []metrics.PairMetrics{
		pair(4, "2014-03-01T01:00:00Z", 1, 1),
		pair(1, "2014-03-01T08:00:00Z", 2, 0),
		pair(9, "2014-03-01T20:00:00Z", 0, 2),
	}
	picks := PickOnePairPerDay(pairs)
	if len(picks) != 1 || picks[0].PairIndex != 1 {
		t.Fatalf("picks = %+v, want pair 1", picks)
	}
}

func TestPickAllZeroDayUsesLastPair(t *testing.T) {
	t.Parallel()
	pairs := []metrics.PairMetrics{
		pair(2, "2014-03-01T01:00:00Z", 0, 0),
		pair(5, "2014-03-01T08:00:00Z", 0, 0),
		pair(7, "2014-03-01T20:00:00Z", 0, 0),
	}
	picks := PickOnePairPerDay(pairs)
	if len(picks) != 1 || picks[0].PairIndex != 7 {
		t.Fatalf("picks = %+v, want last pair 7", picks)
	}
}

func TestPickMissingTimestampGetsOwnBucket(t *testing.T) {
	t.Parallel()
	pairs := []metrics.PairMetrics{
		pair(0, "", 1, 0),
		pair(1, "", 0, 1),
		pair(2, "2014-03-02T00:00:00Z", 3, 0),
	}
	picks := PickOnePairPerDay(pairs)
	if len(picks) != 3 {
		t.Fatalf("got %d picks, want 3", len(picks))
	}
	if picks[0].Day != "pair_1" || picks[1].Day != "pair_2" || picks[2].Day != "2014-03-02" {
		t.Fatalf("days = %q %q %q", picks[0].Day, picks[1].Day, picks[2].Day)
	}
}

func TestPickPreservesDayOrder(t *testing.T) {
	t.Parallel()
	pairs := []metrics.PairMetrics{
		pair(0, "2014-03-01T01:00:00Z", 1, 0),
		pair(1, "2014-03-02T01:00:00Z", 0, 1),
		pair(2, "2014-03-01T20:00:00Z", 0, 0),
		pair(3, "2014-03-03T01:00:00Z", 2, 2),
	}
	picks := PickOnePairPerDay(pairs)
	if len(picks) != 3 {
		t.Fatalf("got %d picks, want 3", len(picks))
	}
	got := []string{picks[0].Day, picks[1].Day, picks[2].Day}
	want := []string{"2014-03-01", "2014-03-02", "2014-03-03"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("day order = %v, want %v", got, want)
		}
	}
	// Day one has a scoring pair, so the zero pair must not win.
	if picks[0].PairIndex != 0 {
		t.Fatalf("day one pick = %+v", picks[0])
	}
}

func TestRenderWritesPNG(t *testing.T) {
	t.Parallel()
	out := filepath.Join(t.TempDir(), "chart.png")
	picks := []DayPick{
		{Day: "2014-03-01", PairIndex: 0, Important: 2, NotImportant: 1},
		{Day: "2014-03-02", PairIndex: 1, Important: 0, NotImportant: 3},
	}
	if err := Render(picks, "example.com_story", out); err != nil {
		t.Fatalf("Render: %v", err)
	}
	info, err := os.Stat(out)
	if err != nil {
		t.Fatalf("stat chart: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("chart file is empty")
	}
}
