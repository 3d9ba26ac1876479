package scene

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kikiluvv/shotlist/pkg/util"
)

// Header is the column layout of the persisted scene table
var Header = []string{"scene_label", "duration_seconds", "text", "description"}

// Scene is one row of the scene table
type Scene struct {
	Index       int
	StartFrame  int
	EndFrame    int
	Duration    float64
	Text        string
	Description string
	FramePath   string
}

// Label is the human-readable row name
func (s Scene) Label() string {
	return fmt.Sprintf("Scene %d", s.Index)
}

// Span is a scene's half-open time interval in seconds
type Span struct {
	Start float64
	End   float64
}

// Contains reports whether t falls in [Start, End)
func (s Span) Contains(t float64) bool {
	return s.Start <= t && t < s.End
}

// Table is the in-memory scene table shared by the pipeline stages
type Table struct {
	FPS    float64
	Scenes []Scene
}

// NewTable builds a table from a detection result
func NewTable(res *Result) (*Table, error) {
	if res == nil || len(res.Boundaries) < 2 {
		return nil, fmt.Errorf("scene table needs at least one closed scene")
	}
	if len(res.FramePaths) != 0 && len(res.FramePaths) != len(res.Boundaries)-1 {
		return nil, fmt.Errorf("frame count %d does not match scene count %d",
			len(res.FramePaths), len(res.Boundaries)-1)
	}

	durations := res.Durations
	if durations == nil {
		durations = Durations(res.Boundaries, res.FPS)
	}

	t := &Table{FPS: res.FPS, Scenes: make([]Scene, len(res.Boundaries)-1)}
	for i := range t.Scenes {
		sc := Scene{
			Index:      i + 1,
			StartFrame: res.Boundaries[i],
			EndFrame:   res.Boundaries[i+1],
			Duration:   durations[i],
		}
		if len(res.FramePaths) > 0 {
			sc.FramePath = res.FramePaths[i]
		}
		t.Scenes[i] = sc
	}
	return t, nil
}

// Len returns the number of scenes
func (t *Table) Len() int {
	return len(t.Scenes)
}

// TotalDuration sums the scene durations
func (t *Table) TotalDuration() float64 {
	var sum float64
	for _, s := range t.Scenes {
		sum += s.Duration
	}
	return sum
}

// Spans derives each scene's time range by accumulating durations
func (t *Table) Spans() []Span {
	spans := make([]Span, len(t.Scenes))
	var cursor float64
	for i, s := range t.Scenes {
		spans[i] = Span{Start: cursor, End: cursor + s.Duration}
		cursor += s.Duration
	}
	return spans
}

// FramePaths lists the representative images in scene order, skipping
// scenes without one
func (t *Table) FramePaths() []string {
	var paths []string
	for _, s := range t.Scenes {
		if s.FramePath != "" {
			paths = append(paths, s.FramePath)
		}
	}
	return paths
}

// SetText fills the text column; texts must have one entry per scene
func (t *Table) SetText(texts []string) error {
	if len(texts) != len(t.Scenes) {
		return fmt.Errorf("got %d texts for %d scenes", len(texts), len(t.Scenes))
	}
	for i := range t.Scenes {
		t.Scenes[i].Text = texts[i]
	}
	return nil
}

// SetDescriptions fills the description column; descriptions must have one
// entry per scene
func (t *Table) SetDescriptions(descriptions []string) error {
	if len(descriptions) != len(t.Scenes) {
		return fmt.Errorf("got %d descriptions for %d scenes", len(descriptions), len(t.Scenes))
	}
	for i := range t.Scenes {
		t.Scenes[i].Description = descriptions[i]
	}
	return nil
}

// WriteCSV serializes the table with its header
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, s := range t.Scenes {
		row := []string{
			s.Label(),
			formatSeconds(s.Duration),
			s.Text,
			s.Description,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// formatSeconds prints the shortest exact form, always with a fractional part
func formatSeconds(v float64) string {
	out := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(out, ".") {
		out += ".0"
	}
	return out
}

// Save checkpoints the table to path, replacing any previous file whole
func (t *Table) Save(path string) error {
	if err := util.EnsureParentDir(path); err != nil {
		return fmt.Errorf("failed to create table directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create table file: %w", err)
	}
	if err := t.WriteCSV(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write table: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close table file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace table file: %w", err)
	}
	return nil
}

// ReadCSV loads a checkpointed table. Frame ranges are not stored, so only
// the index, duration, text and description columns are restored.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse table: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("table is empty")
	}
	for i, col := range Header {
		if records[0][i] != col {
			return nil, fmt.Errorf("unexpected column %q, want %q", records[0][i], col)
		}
	}

	t := &Table{Scenes: make([]Scene, 0, len(records)-1)}
	for n, rec := range records[1:] {
		var index int
		if _, err := fmt.Sscanf(rec[0], "Scene %d", &index); err != nil {
			return nil, fmt.Errorf("row %d: bad label %q", n+1, rec[0])
		}
		duration, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad duration %q: %w", n+1, rec[1], err)
		}
		t.Scenes = append(t.Scenes, Scene{
			Index:       index,
			Duration:    duration,
			Text:        rec[2],
			Description: rec[3],
		})
	}
	return t, nil
}

// Load reads a table saved with Save
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open table: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}
