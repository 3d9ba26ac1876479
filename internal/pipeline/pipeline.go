package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kikiluvv/shotlist/internal/config"
	"github.com/kikiluvv/shotlist/internal/describe"
	"github.com/kikiluvv/shotlist/internal/ffmpeg"
	"github.com/kikiluvv/shotlist/internal/logging"
	"github.com/kikiluvv/shotlist/internal/scene"
	"github.com/kikiluvv/shotlist/internal/speech"
	"github.com/kikiluvv/shotlist/internal/transcript"
	"github.com/kikiluvv/shotlist/pkg/util"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Pipeline orchestrates scene detection, transcription and annotation
type Pipeline struct {
	logger zerolog.Logger
	cfg    *config.Config
	ffmpeg *ffmpeg.Executor
	deps   Deps
}

// New creates a new pipeline instance
func New(logger zerolog.Logger, cfg *config.Config, deps Deps) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	ffmpegExec, err := ffmpeg.New(logger, cfg.FFmpeg.Threads)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFFmpegUnavailable, err)
	}

	return &Pipeline{
		logger: logger.With().Str("component", "pipeline").Logger(),
		cfg:    cfg,
		ffmpeg: ffmpegExec,
		deps:   deps,
	}, nil
}

// Analyse runs the full pipeline on one video. Checkpoints already written
// stay on disk when a later stage fails.
func (p *Pipeline) Analyse(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	req = p.withDefaults(req)
	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := logging.ForRun(p.logger, runID, req.Debug)

	log.Info().
		Str("input", req.VideoPath).
		Str("csv", req.CSVPath).
		Str("transcript", req.TranscriptPath).
		Msg("starting analysis pipeline")

	// Init
	if req.VideoPath == "" {
		return nil, fmt.Errorf("video path cannot be empty")
	}
	if err := ffmpeg.Available(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFFmpegUnavailable, err)
	}

	info, err := p.ffmpeg.ProbeVideo(ctx, req.VideoPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", scene.ErrUnreadableVideo, err)
	}
	if secs := info.Duration.Seconds(); secs > req.MaxDuration {
		return nil, fmt.Errorf("%w: %.1fs > %.1fs", ErrVideoTooLong, secs, req.MaxDuration)
	}

	log.Info().
		Dur("duration", info.Duration).
		Int("width", info.Width).
		Int("height", info.Height).
		Float64("fps", info.FPS).
		Bool("has_audio", info.HasAudio).
		Msg("video metadata extracted")

	loader, err := p.loader(log, req)
	if err != nil {
		return nil, err
	}

	sceneOpts := scene.OptionsFromConfig(p.cfg.Scene)
	sceneOpts.MinSceneDuration = req.MinSceneDuration

	var annotator *describe.Annotator
	if sceneOpts.SaveFrames {
		annotator, err = p.annotator(log, req)
		if err != nil {
			return nil, err
		}
	}

	if err := util.EnsureDir(p.cfg.TempDir); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	framesDir, err := os.MkdirTemp(p.cfg.TempDir, "frames-")
	if err != nil {
		return nil, fmt.Errorf("failed to create frames directory: %w", err)
	}
	defer os.RemoveAll(framesDir)
	sceneOpts.FramesDir = framesDir

	// Engine warm-up runs alongside scene detection
	var (
		engine   speech.Engine
		detected *scene.Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		warm := time.Now()
		e, err := loader.Load(gctx)
		if err != nil {
			return fmt.Errorf("failed to load speech engine: %w", err)
		}
		engine = e
		log.Info().Dur("elapsed", time.Since(warm)).Msg("speech engine ready")
		return nil
	})
	g.Go(func() error {
		res, err := p.detectScenes(gctx, log, req.VideoPath, info, sceneOpts)
		if err != nil {
			return fmt.Errorf("failed to detect scenes: %w", err)
		}
		detected = res
		return nil
	})
	err = g.Wait()
	if engine != nil {
		defer engine.Close()
	}
	if err != nil {
		return nil, err
	}

	table, err := scene.NewTable(detected)
	if err != nil {
		return nil, fmt.Errorf("failed to build scene table: %w", err)
	}
	if err := table.Save(req.CSVPath); err != nil {
		return nil, err
	}
	log.Info().Int("scenes", table.Len()).Str("csv", req.CSVPath).Msg("scene table written")

	// Transcribe and correct
	flat, segments, err := p.transcribe(ctx, log, engine, req.VideoPath, info)
	if err != nil {
		return nil, err
	}
	if err := writeText(req.TranscriptPath, flat); err != nil {
		return nil, fmt.Errorf("failed to write transcript: %w", err)
	}
	if req.SRTPath != "" {
		if err := writeSRT(req.SRTPath, segments); err != nil {
			return nil, fmt.Errorf("failed to write subtitles: %w", err)
		}
	}

	// Align
	if err := table.SetText(transcript.Align(table.Spans(), segments)); err != nil {
		return nil, fmt.Errorf("failed to align transcript: %w", err)
	}
	if err := table.Save(req.CSVPath); err != nil {
		return nil, err
	}
	log.Info().Int("segments", len(segments)).Msg("transcript aligned to scenes")

	// Annotate
	if annotator != nil {
		descriptions, err := annotator.Annotate(ctx, table.FramePaths())
		if err != nil {
			return nil, fmt.Errorf("failed to describe frames: %w", err)
		}
		if err := table.SetDescriptions(descriptions); err != nil {
			return nil, err
		}
		if err := table.Save(req.CSVPath); err != nil {
			return nil, err
		}
		log.Info().Int("frames", len(descriptions)).Msg("scene descriptions written")
	}

	// Cleanup
	if err := os.RemoveAll(framesDir); err != nil {
		log.Warn().Err(err).Str("dir", framesDir).Msg("failed to remove frames")
	}
	for i := range table.Scenes {
		table.Scenes[i].FramePath = ""
	}

	res := &Result{
		RunID:          runID,
		VideoID:        videoID(req),
		CSVPath:        req.CSVPath,
		TranscriptPath: req.TranscriptPath,
		SRTPath:        req.SRTPath,
		Table:          table,
		Transcript:     flat,
		Segments:       segments,
		Info:           info,
	}
	if req.JSONPath != "" {
		if err := WriteReport(req.JSONPath, NewReport(res)); err != nil {
			return nil, fmt.Errorf("failed to write report: %w", err)
		}
		res.JSONPath = req.JSONPath
	}
	res.Elapsed = time.Since(start)

	log.Info().
		Int("scenes", table.Len()).
		Dur("elapsed", res.Elapsed).
		Msg("analysis pipeline complete")

	return res, nil
}

// withDefaults fills unset request fields from the config. Output paths
// default to the work dir, named after the video.
func (p *Pipeline) withDefaults(req Request) Request {
	if req.MinSceneDuration <= 0 {
		req.MinSceneDuration = p.cfg.Scene.MinSceneDuration
	}
	if req.MaxDuration <= 0 {
		req.MaxDuration = float64(p.cfg.MaxDurationSeconds)
	}
	if req.APIKey == "" {
		req.APIKey = p.cfg.Describe.APIKey
	}
	if req.BaseURL == "" {
		req.BaseURL = p.cfg.Describe.BaseURL
	}

	stem := util.Stem(req.VideoPath)
	if req.CSVPath == "" {
		req.CSVPath = filepath.Join(p.cfg.WorkDir, stem+".csv")
	}
	if req.TranscriptPath == "" {
		req.TranscriptPath = filepath.Join(p.cfg.WorkDir, stem+"_transcript.txt")
	}
	return req
}

func (p *Pipeline) loader(log zerolog.Logger, req Request) (speech.Loader, error) {
	if p.deps.Loader != nil {
		return p.deps.Loader, nil
	}
	loader, err := speech.NewLoader(log, p.cfg.Speech, speech.Credentials{
		APIKey:  req.APIKey,
		BaseURL: req.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure speech engine: %w", err)
	}
	return loader, nil
}

func (p *Pipeline) annotator(log zerolog.Logger, req Request) (*describe.Annotator, error) {
	opts := describe.OptionsFromConfig(p.cfg.Describe)
	opts.APIKey = req.APIKey
	opts.BaseURL = req.BaseURL

	var (
		d   describe.Describer
		err error
	)
	if p.deps.NewDescriber != nil {
		d, err = p.deps.NewDescriber(opts)
	} else {
		d, err = describe.NewOpenAIDescriber(log, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to configure describer: %w", err)
	}
	return describe.NewAnnotator(log, d, p.cfg.Concurrency, p.cfg.Describe.RequestsPerMinute), nil
}

func (p *Pipeline) detectScenes(ctx context.Context, log zerolog.Logger, path string, info *ffmpeg.VideoInfo, opts scene.Options) (*scene.Result, error) {
	reader, err := p.ffmpeg.OpenFrames(ctx, path, info, p.cfg.FFmpeg.AnalysisWidth)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", scene.ErrUnreadableVideo, err)
	}
	defer reader.Close()

	return scene.NewSegmenter(log, opts).Detect(ctx, reader, reader.Info().FPS)
}

// transcribe returns the flat transcript and the split, corrected segments
func (p *Pipeline) transcribe(ctx context.Context, log zerolog.Logger, engine speech.Engine, path string, info *ffmpeg.VideoInfo) (string, []speech.Segment, error) {
	newDetector := p.deps.NewDetector
	if newDetector == nil {
		newDetector = speech.SileroFactory(p.cfg.Speech)
	}
	tr := speech.NewTranscriber(log, speech.OptionsFromConfig(p.cfg.Speech), newDetector)

	var samples []float32
	if info.HasAudio {
		format := ffmpeg.DefaultSpeechFormat()
		format.SampleRate = tr.SampleRate()
		s, err := p.ffmpeg.DecodePCM(ctx, path, format, nil)
		if err != nil {
			return "", nil, fmt.Errorf("failed to read audio: %w", err)
		}
		samples = s
	} else {
		log.Info().Msg("video has no audio stream")
	}

	result, err := tr.Transcribe(ctx, engine, samples)
	if err != nil {
		return "", nil, fmt.Errorf("failed to transcribe audio: %w", err)
	}

	segments := speech.SplitAll(result.Segments)
	corrected, cursor := transcript.Correct(segments, result.Text, 0, transcript.OptionsFromConfig(p.cfg.Correction))

	log.Debug().
		Int("segments", len(corrected)).
		Int("cursor", cursor).
		Int("transcript_runes", len([]rune(result.Text))).
		Msg("transcript corrected")

	return result.Text, corrected, nil
}

func writeText(path, text string) error {
	if err := util.EnsureParentDir(path); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(text), 0644)
}

func writeSRT(path string, segments []speech.Segment) error {
	if err := util.EnsureParentDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := speech.WriteSRT(f, segments); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// videoID prefers the source identifier and falls back to the file name
func videoID(req Request) string {
	if req.Source != nil && strings.TrimSpace(req.Source.ID) != "" {
		return req.Source.ID
	}
	return util.Stem(req.VideoPath)
}
