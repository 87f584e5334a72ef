// Package chart renders per-document daily importance charts from computed
// metrics. One pair is selected per calendar day so that a burst of
// captures on the same day does not dominate the picture.
package chart

import (
	"fmt"
	"image/color"
	"log"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/mementolab/driftwatch/internal/metrics"
)

// ChartFileName is written next to metrics.json inside each document's
// metrics directory.
const ChartFileName = "importance_over_time_daily.png"

// DayPick is the pair chosen to represent one calendar day.
type DayPick struct {
	Day          string `json:"day"`
	PairIndex    int    `json:"pair_index"`
	Important    int    `json:"important"`
	NotImportant int    `json:"not_important"`
}

// dayKey buckets a pair by the date portion of its new-side timestamp.
// Pairs without a usable timestamp each get their own synthetic bucket so
// they stay visible instead of collapsing into one.
func dayKey(pm metrics.PairMetrics) string {
	if pm.TimestampNew != nil && len(*pm.TimestampNew) >= 10 {
		return (*pm.TimestampNew)[:10]
	}
	return fmt.Sprintf("pair_%d", pm.PairIndex+1)
}

func score(pm metrics.PairMetrics) int {
	return pm.Changes.Important + pm.Changes.NotImportant
}

// PickOnePairPerDay selects, for each day in first-appearance order, the
// pair with the highest important+not_important score; ties go to the
// smaller pair index. When every pair of a day scores zero, the day's last
// pair represents it, so the chart still shows the final state of quiet
// days.
func PickOnePairPerDay(pairs []metrics.PairMetrics) []DayPick {
	var order []string
	groups := map[string][]metrics.PairMetrics{}
	for _, pm := range pairs {
		k := dayKey(pm)
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], pm)
	}

	picks := make([]DayPick, 0, len(order))
	for _, day := range order {
		group := groups[day]
		best := group[0]
		allZero := true
		for _, pm := range group {
			if score(pm) > 0 {
				allZero = false
			}
			if score(pm) > score(best) || (score(pm) == score(best) && pm.PairIndex < best.PairIndex) {
				best = pm
			}
		}
		if allZero {
			best = group[len(group)-1]
		}
		picks = append(picks, DayPick{
			Day:          day,
			PairIndex:    best.PairIndex,
			Important:    best.Changes.Important,
			NotImportant: best.Changes.NotImportant,
		})
	}
	return picks
}

// Render writes a stacked bar chart of the picks to outPath as PNG.
func Render(picks []DayPick, title, outPath string) error {
	imp := make(plotter.Values, len(picks))
	not := make(plotter.Values, len(picks))
	labels := make([]string, len(picks))
	for i, pk := range picks {
		imp[i] = float64(pk.Important)
		not[i] = float64(pk.NotImportant)
		labels[i] = pk.Day
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "changed units"
	p.X.Tick.Label.Rotation = 1.2
	p.X.Tick.Label.XAlign = -1
	p.X.Tick.Label.YAlign = -0.5

	w := vg.Points(18)
	impBars, err := plotter.NewBarChart(imp, w)
	if err != nil {
		return fmt.Errorf("importance bars: %w", err)
	}
	impBars.Color = color.RGBA{R: 0xd6, G: 0x2b, B: 0x28, A: 0xff}
	impBars.LineStyle.Width = 0

	notBars, err := plotter.NewBarChart(not, w)
	if err != nil {
		return fmt.Errorf("non-importance bars: %w", err)
	}
	notBars.Color = color.RGBA{R: 0x4c, G: 0x78, B: 0xa8, A: 0xff}
	notBars.LineStyle.Width = 0
	notBars.StackOn(impBars)

	p.Add(impBars, notBars)
	p.Legend.Add("Important", impBars)
	p.Legend.Add("Not important", notBars)
	p.Legend.Top = true
	p.NominalX(labels...)

	width := vg.Points(float64(40*len(picks)) + 200)
	if width > vg.Points(1600) {
		width = vg.Points(1600)
	}
	return p.Save(width, vg.Points(400), outPath)
}

// RunAll builds the daily chart for every document directory under the
// analysis root that has a metrics artifact. Documents without one are
// skipped with a log line.
func RunAll(analysisRoot string, logger *log.Logger) error {
	entries, err := os.ReadDir(analysisRoot)
	if err != nil {
		return fmt.Errorf("read analysis root: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		docDir := filepath.Join(analysisRoot, e.Name())
		doc, err := metrics.ReadDocument(docDir)
		if err != nil {
			if logger != nil {
				logger.Printf("WARNING: no metrics for %s, skipping chart: %v", e.Name(), err)
			}
			continue
		}
		picks := PickOnePairPerDay(doc.PerPair)
		if len(picks) == 0 {
			if logger != nil {
				logger.Printf("no pairs for %s, skipping chart", e.Name())
			}
			continue
		}
		out := filepath.Join(docDir, metrics.MetricsDirName, ChartFileName)
		if err := Render(picks, e.Name(), out); err != nil {
			return fmt.Errorf("render chart for %s: %w", e.Name(), err)
		}
		if logger != nil {
			logger.Printf("chart: %s days=%d", e.Name(), len(picks))
		}
	}
	return nil
}
