package speech

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kikiluvv/shotlist/internal/config"
	"github.com/kikiluvv/shotlist/pkg/util"
	"github.com/rs/zerolog"
)

// Transcript is the result of one transcription pass
type Transcript struct {
	// Text is the engine's recognition of the whole track
	Text string
	// Segments are per-region drafts in stream order
	Segments []Segment
}

// TranscriberOptions configures a Transcriber
type TranscriberOptions struct {
	VAD              VADOptions
	ReadChunkSeconds float64
}

// OptionsFromConfig converts the speech config section
func OptionsFromConfig(cfg config.SpeechConfig) TranscriberOptions {
	return TranscriberOptions{
		VAD: VADOptions{
			Threshold:     float32(cfg.VAD.Threshold),
			MinSilence:    cfg.VAD.MinSilenceDuration,
			MinSpeech:     cfg.VAD.MinSpeechDuration,
			MaxSpeech:     cfg.VAD.MaxSpeechDuration,
			WindowSize:    cfg.VAD.WindowSize,
			SampleRate:    cfg.SampleRate,
			BufferSeconds: cfg.VAD.ReadChunkSeconds,
		},
		ReadChunkSeconds: cfg.VAD.ReadChunkSeconds,
	}
}

// SileroFactory returns a factory that loads the configured Silero model
func SileroFactory(cfg config.SpeechConfig) DetectorFactory {
	return func(opts VADOptions) (VoiceDetector, error) {
		return NewSileroDetector(cfg.VAD.Model, opts)
	}
}

// Transcriber produces a flat transcript and VAD-segmented drafts
type Transcriber struct {
	logger      zerolog.Logger
	opts        TranscriberOptions
	newDetector DetectorFactory
}

// NewTranscriber creates a transcriber
func NewTranscriber(logger zerolog.Logger, opts TranscriberOptions, newDetector DetectorFactory) *Transcriber {
	def := DefaultVADOptions()
	if opts.VAD.SampleRate <= 0 {
		opts.VAD.SampleRate = def.SampleRate
	}
	if opts.VAD.WindowSize <= 0 {
		opts.VAD.WindowSize = def.WindowSize
	}
	if opts.ReadChunkSeconds <= 0 {
		opts.ReadChunkSeconds = 100
	}
	if opts.VAD.BufferSeconds <= 0 {
		opts.VAD.BufferSeconds = opts.ReadChunkSeconds
	}
	return &Transcriber{
		logger:      logger.With().Str("component", "speech").Logger(),
		opts:        opts,
		newDetector: newDetector,
	}
}

// SampleRate is the rate samples passed to Transcribe must have
func (t *Transcriber) SampleRate() int {
	return t.opts.VAD.SampleRate
}

// Transcribe recognizes mono samples at SampleRate. Empty input yields an
// empty transcript.
func (t *Transcriber) Transcribe(ctx context.Context, engine Engine, samples []float32) (*Transcript, error) {
	if len(samples) == 0 {
		t.logger.Info().Msg("no audio samples, skipping transcription")
		return &Transcript{}, nil
	}

	sr := t.opts.VAD.SampleRate
	start := time.Now()

	text, err := engine.Decode(ctx, samples, sr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode full track: %w", err)
	}

	regions, err := t.detect(ctx, samples)
	if err != nil {
		return nil, err
	}

	out := &Transcript{Text: strings.TrimSpace(text)}
	for _, r := range regions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		piece, err := engine.Decode(ctx, samples[r.Start:r.End], sr)
		if err != nil {
			return nil, fmt.Errorf("failed to decode speech at %s: %w",
				util.FormatSRTTime(float64(r.Start)/float64(sr)), err)
		}
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}

		out.Segments = append(out.Segments, Segment{
			Start:    float64(r.Start) / float64(sr),
			Duration: float64(r.End-r.Start) / float64(sr),
			Text:     piece,
		})
	}

	t.logger.Info().
		Float64("audio_seconds", float64(len(samples))/float64(sr)).
		Int("regions", len(regions)).
		Int("segments", len(out.Segments)).
		Dur("elapsed", time.Since(start)).
		Msg("transcription complete")

	return out, nil
}

// detect feeds the detector whole windows, chunk by chunk. A window is only
// fed once more samples follow it, so the last window of the track is never
// scored; Flush then closes any region still open.
func (t *Transcriber) detect(ctx context.Context, samples []float32) ([]Region, error) {
	det, err := t.newDetector(t.opts.VAD)
	if err != nil {
		return nil, fmt.Errorf("failed to load vad model: %w", err)
	}
	defer det.Close()

	w := t.opts.VAD.WindowSize
	chunk := max(int(t.opts.ReadChunkSeconds*float64(t.opts.VAD.SampleRate)), w)

	var regions []Region
	buffer := make([]float32, 0, chunk+w)
	for off := 0; off < len(samples); off += chunk {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		buffer = append(buffer, samples[off:min(off+chunk, len(samples))]...)

		n := 0
		for len(buffer)-n > w {
			det.AcceptWaveform(buffer[n : n+w])
			n += w
		}
		buffer = append(buffer[:0], buffer[n:]...)
		regions = append(regions, det.Regions()...)
	}
	det.Flush()
	regions = append(regions, det.Regions()...)

	// keep regions inside the decoded track
	out := regions[:0]
	for _, r := range regions {
		r.Start, r.End = max(r.Start, 0), min(r.End, len(samples))
		if r.End > r.Start {
			out = append(out, r)
		}
	}

	t.logger.Debug().Int("regions", len(out)).Msg("voice activity detected")
	return out, nil
}
