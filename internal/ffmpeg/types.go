package ffmpeg

import (
	"io"
	"time"
)

// VideoInfo contains metadata about a video file
type VideoInfo struct {
	FilePath   string
	Duration   time.Duration
	Width      int
	Height     int
	FPS        float64
	NbFrames   int
	Bitrate    int64
	VideoCodec string
	HasAudio   bool
	AudioCodec string
	SampleRate int
}

// EstimatedFrames returns the container frame count, or duration*fps when
// the container does not record one
func (v *VideoInfo) EstimatedFrames() int {
	if v.NbFrames > 0 {
		return v.NbFrames
	}
	return int(v.Duration.Seconds()*v.FPS + 0.5)
}

// Progress represents ffmpeg progress data
type Progress struct {
	Frame         int
	FPS           float64
	Time          string
	OutTimeMicros int64
	Speed         string
}

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args            []string
	ProgressHandler func(*Progress)
	LogHandler      func(line string)
	// Stdout receives raw output when ffmpeg writes media to pipe:1
	Stdout io.Writer
}

// ProgressFunc is a callback for progress updates during ffmpeg operations.
// Called periodically with progress information as the operation executes.
type ProgressFunc func(*Progress)
