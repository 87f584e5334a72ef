package wayback

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
)

// FileCount is the memento tally for one dataset file. Pairs is the number
// of consecutive version pairs the file yields for analysis.
type FileCount struct {
	Name     string
	Mementos int
	Pairs    int
}

func countMementos(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err == nil {
		return len(list), nil
	}
	// Also accept the wrapped {"mementos": [...]} shape.
	var wrapped struct {
		Mementos []json.RawMessage `json:"mementos"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Mementos != nil {
		return len(wrapped.Mementos), nil
	}
	return 0, fmt.Errorf("unexpected dataset shape in %s", filepath.Base(path))
}

// CountDatasets tallies mementos per dataset file under datasetDir, sorted
// by file name. Unreadable files count as zero with no error so a single
// bad file does not hide the rest of the report.
func CountDatasets(datasetDir string) ([]FileCount, error) {
	entries, err := os.ReadDir(datasetDir)
	if err != nil {
		return nil, fmt.Errorf("read dataset dir: %w", err)
	}
	var counts []FileCount
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".json") {
			continue
		}
		n, err := countMementos(filepath.Join(datasetDir, e.Name()))
		if err != nil {
			n = 0
		}
		pairs := n - 1
		if pairs < 0 {
			pairs = 0
		}
		counts = append(counts, FileCount{Name: e.Name(), Mementos: n, Pairs: pairs})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Name < counts[j].Name })
	return counts, nil
}

// Totals sums mementos and consecutive pairs across all counted files.
func Totals(counts []FileCount) (mementos, pairs int) {
	for _, c := range counts {
		mementos += c.Mementos
		pairs += c.Pairs
	}
	return mementos, pairs
}

// WriteCountTable renders the per-file report as an aligned table.
func WriteCountTable(w io.Writer, counts []FileCount) error {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "File\tMementos\tPairs")
	for _, c := range counts {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", c.Name, c.Mementos, c.Pairs)
	}
	mementos, pairs := Totals(counts)
	fmt.Fprintf(tw, "TOTAL\t%d\t%d\n", mementos, pairs)
	return tw.Flush()
}

// WriteCountCSV saves the report as CSV with a trailing __TOTAL__ row.
func WriteCountCSV(path string, counts []FileCount) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write([]string{"filename", "mementos", "consecutive_pairs"}); err != nil {
		return err
	}
	for _, c := range counts {
		if err := w.Write([]string{c.Name, strconv.Itoa(c.Mementos), strconv.Itoa(c.Pairs)}); err != nil {
			return err
		}
	}
	mementos, pairs := Totals(counts)
	if err := w.Write([]string{"__TOTAL__", strconv.Itoa(mementos), strconv.Itoa(pairs)}); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
