package pipeline

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kikiluvv/shotlist/pkg/util"
)

// Report is the JSON rendering of a finished run
type Report struct {
	VideoID    string        `json:"video_id"`
	Scenes     []SceneReport `json:"scenes"`
	Transcript string        `json:"transcript"`
}

// SceneReport is one scene row
type SceneReport struct {
	SceneNumber string  `json:"scene_number"`
	Duration    float64 `json:"duration"`
	Text        string  `json:"text"`
	Description string  `json:"description"`
}

// NewReport converts a run result
func NewReport(res *Result) *Report {
	r := &Report{
		VideoID:    res.VideoID,
		Scenes:     make([]SceneReport, 0),
		Transcript: res.Transcript,
	}
	if res.Table == nil {
		return r
	}
	for _, s := range res.Table.Scenes {
		r.Scenes = append(r.Scenes, SceneReport{
			SceneNumber: s.Label(),
			Duration:    s.Duration,
			Text:        s.Text,
			Description: s.Description,
		})
	}
	return r
}

// WriteReport writes r as indented JSON
func WriteReport(path string, r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := util.EnsureParentDir(path); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
