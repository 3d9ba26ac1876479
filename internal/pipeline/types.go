package pipeline

import (
	"errors"
	"time"

	"github.com/kikiluvv/shotlist/internal/describe"
	"github.com/kikiluvv/shotlist/internal/ffmpeg"
	"github.com/kikiluvv/shotlist/internal/scene"
	"github.com/kikiluvv/shotlist/internal/speech"
)

var (
	// ErrFFmpegUnavailable means ffmpeg or ffprobe could not be found
	ErrFFmpegUnavailable = errors.New("ffmpeg unavailable")
	// ErrVideoTooLong means the source exceeds the configured maximum duration
	ErrVideoTooLong = errors.New("video exceeds maximum duration")
)

// Source identifies where a video came from
type Source struct {
	Platform string `json:"platform,omitempty"`
	Title    string `json:"title,omitempty"`
	ID       string `json:"id,omitempty"`
}

// Request describes one analysis run
type Request struct {
	// RunID tags logs and results; a random id is used when empty
	RunID string

	VideoPath      string
	CSVPath        string
	TranscriptPath string
	// SRTPath and JSONPath are written only when set
	SRTPath  string
	JSONPath string

	// APIKey and BaseURL override the configured description service
	APIKey  string
	BaseURL string

	// MinSceneDuration and MaxDuration are seconds; zero uses the config value
	MinSceneDuration float64
	MaxDuration      float64
	Debug            bool

	Source *Source
}

// Result describes a finished run
type Result struct {
	RunID          string
	VideoID        string
	CSVPath        string
	TranscriptPath string
	SRTPath        string
	JSONPath       string

	Table      *scene.Table
	Transcript string
	Segments   []speech.Segment
	Info       *ffmpeg.VideoInfo
	Elapsed    time.Duration
}

// Deps replaces external services, mostly for tests
type Deps struct {
	// Loader overrides the configured speech backend
	Loader speech.Loader
	// NewDetector overrides the Silero voice activity detector
	NewDetector speech.DetectorFactory
	// NewDescriber overrides the OpenAI describer. It receives the
	// run's effective options.
	NewDescriber func(opts describe.Options) (describe.Describer, error)
}
