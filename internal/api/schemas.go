package api

import (
	"time"

	"github.com/kikiluvv/shotlist/internal/pipeline"
	"github.com/kikiluvv/shotlist/internal/scene"
	"github.com/kikiluvv/shotlist/internal/store"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// AnalyseRequest is the body of POST /analyse-video
type AnalyseRequest struct {
	VideoPath        string           `json:"video_path"`
	CSVPath          string           `json:"csv_path"`
	TranscriptPath   string           `json:"transcript_path"`
	SRTPath          string           `json:"srt_path,omitempty"`
	JSONPath         string           `json:"json_path,omitempty"`
	APIKey           string           `json:"api_key"`
	BaseURL          string           `json:"base_url"`
	MinSceneDuration float64          `json:"min_scene_duration_seconds"`
	MaxDuration      float64          `json:"max_duration_seconds"`
	Debug            bool             `json:"debug"`
	Source           *pipeline.Source `json:"source,omitempty"`
}

func (r AnalyseRequest) toPipeline() pipeline.Request {
	return pipeline.Request{
		VideoPath:        r.VideoPath,
		CSVPath:          r.CSVPath,
		TranscriptPath:   r.TranscriptPath,
		SRTPath:          r.SRTPath,
		JSONPath:         r.JSONPath,
		APIKey:           r.APIKey,
		BaseURL:          r.BaseURL,
		MinSceneDuration: r.MinSceneDuration,
		MaxDuration:      r.MaxDuration,
		Debug:            r.Debug,
		Source:           r.Source,
	}
}

type AnalyseResponse struct {
	ID             string `json:"id"`
	CSVPath        string `json:"csv_path"`
	TranscriptPath string `json:"transcript_path"`
	SRTPath        string `json:"srt_path,omitempty"`
	JSONPath       string `json:"json_path,omitempty"`
	Scenes         int    `json:"scenes"`
	ElapsedMs      int64  `json:"elapsed_ms"`
}

type RunResponse struct {
	ID              string          `json:"id"`
	VideoPath       string          `json:"video_path"`
	VideoID         string          `json:"video_id"`
	Status          string          `json:"status"`
	Error           string          `json:"error,omitempty"`
	CSVPath         string          `json:"csv_path"`
	TranscriptPath  string          `json:"transcript_path"`
	DurationSeconds float64         `json:"duration_seconds"`
	ElapsedMs       int64           `json:"elapsed_ms"`
	CreatedAt       string          `json:"created_at"`
	UpdatedAt       string          `json:"updated_at"`
	Transcript      string          `json:"transcript,omitempty"`
	Scenes          []SceneResponse `json:"scenes,omitempty"`
}

type SceneResponse struct {
	SceneNumber string  `json:"scene_number"`
	Duration    float64 `json:"duration"`
	Text        string  `json:"text"`
	Description string  `json:"description"`
}

type RunsResponse struct {
	Runs []RunResponse `json:"runs"`
}

func RunToResponse(r *store.Run) RunResponse {
	resp := RunResponse{
		ID:              r.ID,
		VideoPath:       r.VideoPath,
		VideoID:         r.VideoID,
		Status:          r.Status,
		Error:           r.Error,
		CSVPath:         r.CSVPath,
		TranscriptPath:  r.TranscriptPath,
		DurationSeconds: r.DurationSeconds,
		ElapsedMs:       r.Elapsed.Milliseconds(),
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       r.UpdatedAt.Format(time.RFC3339),
		Transcript:      r.Transcript,
	}
	for _, sc := range r.Scenes {
		resp.Scenes = append(resp.Scenes, SceneResponse{
			SceneNumber: scene.Scene{Index: sc.Index}.Label(),
			Duration:    sc.Duration,
			Text:        sc.Text,
			Description: sc.Description,
		})
	}
	return resp
}
