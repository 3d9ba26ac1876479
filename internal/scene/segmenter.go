package scene

import (
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"

	"github.com/kikiluvv/shotlist/internal/config"
	"github.com/kikiluvv/shotlist/internal/vision"
	"github.com/kikiluvv/shotlist/pkg/util"
	"github.com/rs/zerolog"
)

// ErrUnreadableVideo is returned when no frame can be decoded
var ErrUnreadableVideo = errors.New("unreadable video")

// FrameSource yields decoded frames in order and io.EOF at the end
type FrameSource interface {
	Next() (*vision.Frame, error)
}

// Options tunes boundary detection
type Options struct {
	// Threshold is compared against the windowed mean score scaled by 100
	Threshold          float64
	MinSceneDuration   float64
	WindowSize         int
	TrailingDropFrames int
	MergeGapSeconds    float64
	Weights            vision.Weights

	SaveFrames  bool
	FramesDir   string
	JPEGQuality int
}

// DefaultOptions mirrors the config defaults
func DefaultOptions() Options {
	return Options{
		Threshold:          2.0,
		MinSceneDuration:   3.0,
		WindowSize:         5,
		TrailingDropFrames: 3,
		MergeGapSeconds:    0.5,
		Weights:            vision.DefaultWeights(),
		SaveFrames:         true,
		JPEGQuality:        90,
	}
}

// OptionsFromConfig converts the scene config section. FramesDir is per run
// and left empty.
func OptionsFromConfig(cfg config.SceneConfig) Options {
	opts := DefaultOptions()
	opts.Threshold = cfg.Threshold
	opts.MinSceneDuration = cfg.MinSceneDuration
	opts.WindowSize = cfg.WindowSize
	opts.TrailingDropFrames = cfg.TrailingDropFrames
	opts.MergeGapSeconds = cfg.MergeGapSeconds
	opts.SaveFrames = cfg.SaveFrames
	opts.Weights = vision.Weights{Intensity: cfg.IntensityWeight, Edges: cfg.EdgeWeight}
	return opts
}

// Result is the outcome of one detection pass
type Result struct {
	// Boundaries are closed: the last entry is the frame count
	Boundaries  []int
	Durations   []float64
	FPS         float64
	TotalFrames int
	// FramePaths[i] is the representative image of scene i (empty when frames are not saved)
	FramePaths []string
}

// Segmenter splits a frame stream into scenes
type Segmenter struct {
	logger zerolog.Logger
	opts   Options
}

// NewSegmenter creates a segmenter; zero-valued options fall back to defaults
func NewSegmenter(logger zerolog.Logger, opts Options) *Segmenter {
	def := DefaultOptions()
	if opts.WindowSize <= 0 {
		opts.WindowSize = def.WindowSize
	}
	if opts.Weights == (vision.Weights{}) {
		opts.Weights = def.Weights
	}
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = def.JPEGQuality
	}
	return &Segmenter{
		logger: logger.With().Str("component", "scene").Logger(),
		opts:   opts,
	}
}

// Detect runs a single pass over src. Frame 0 always opens the first scene.
func (s *Segmenter) Detect(ctx context.Context, src FrameSource, fps float64) (*Result, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("%w: invalid frame rate %v", ErrUnreadableVideo, fps)
	}
	if s.opts.SaveFrames {
		if s.opts.FramesDir == "" {
			return nil, fmt.Errorf("frames directory is required when saving frames")
		}
		if err := util.EnsureDir(s.opts.FramesDir); err != nil {
			return nil, fmt.Errorf("failed to create frames directory: %w", err)
		}
	}

	frame, err := src.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: no frames decoded", ErrUnreadableVideo)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnreadableVideo, err)
	}

	ex := vision.NewExtractor()
	prev := ex.Extract(frame)

	minFrames := int(s.opts.MinSceneDuration * fps)
	threshold := s.opts.Threshold / 100
	window := make([]float64, 0, s.opts.WindowSize)

	boundaries := []int{0}
	saved := make(map[int]string)
	if err := s.save(0, frame, saved); err != nil {
		return nil, err
	}

	idx := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame, err = src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode frame %d: %w", idx+1, err)
		}
		idx++

		cur := ex.Extract(frame)
		score := vision.Score(prev, cur, s.opts.Weights)
		prev = cur

		if len(window) == s.opts.WindowSize {
			copy(window, window[1:])
			window = window[:len(window)-1]
		}
		window = append(window, score)
		if len(window) < s.opts.WindowSize {
			continue
		}

		var sum float64
		for _, v := range window {
			sum += v
		}
		mean := sum / float64(len(window))

		if mean > threshold && idx-boundaries[len(boundaries)-1] >= minFrames {
			boundaries = append(boundaries, idx)
			s.logger.Debug().
				Int("frame", idx).
				Float64("mean_score", mean).
				Msg("scene boundary")
			if err := s.save(idx, frame, saved); err != nil {
				return nil, err
			}
		}
	}

	total := idx + 1
	closed := Finalize(boundaries, total, s.opts.TrailingDropFrames)
	closed = Merge(closed, int(s.opts.MergeGapSeconds*fps))

	res := &Result{
		Boundaries:  closed,
		Durations:   Durations(closed, fps),
		FPS:         fps,
		TotalFrames: total,
	}
	if s.opts.SaveFrames {
		res.FramePaths = s.keepFrames(closed, saved)
	}

	s.logger.Info().
		Int("frames", total).
		Int("raw_boundaries", len(boundaries)).
		Int("scenes", len(closed)-1).
		Msg("scene detection complete")

	return res, nil
}

func (s *Segmenter) save(idx int, frame *vision.Frame, saved map[int]string) error {
	if !s.opts.SaveFrames {
		return nil
	}
	path := filepath.Join(s.opts.FramesDir, fmt.Sprintf("frame_%d.jpg", idx))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create frame file: %w", err)
	}
	defer f.Close()

	if err := jpeg.Encode(f, frame.Image(), &jpeg.Options{Quality: s.opts.JPEGQuality}); err != nil {
		return fmt.Errorf("failed to encode frame %d: %w", idx, err)
	}
	saved[idx] = path
	return nil
}

// keepFrames returns one path per scene and deletes images of boundaries
// removed during finalization or merging
func (s *Segmenter) keepFrames(closed []int, saved map[int]string) []string {
	paths := make([]string, 0, len(closed)-1)
	kept := make(map[int]bool, len(closed))
	for _, b := range closed[:len(closed)-1] {
		paths = append(paths, saved[b])
		kept[b] = true
	}

	var stale []string
	for idx, path := range saved {
		if !kept[idx] {
			stale = append(stale, path)
		}
	}
	util.CleanupFiles(stale...)
	return paths
}
