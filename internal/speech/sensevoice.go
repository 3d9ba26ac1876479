package speech

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"
	"github.com/kikiluvv/shotlist/internal/config"
	"github.com/kikiluvv/shotlist/pkg/util"
	"github.com/rs/zerolog"
)

// SenseVoiceEngine runs the SenseVoice model through sherpa-onnx
type SenseVoiceEngine struct {
	logger     zerolog.Logger
	mu         sync.Mutex
	recognizer *sherpa.OfflineRecognizer
}

// LoadSenseVoice creates the offline recognizer. This reads the model from
// disk and takes a few seconds.
func LoadSenseVoice(ctx context.Context, logger zerolog.Logger, cfg config.SenseVoiceConfig, sampleRate int) (*SenseVoiceEngine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, path := range []string{cfg.Model, cfg.Tokens} {
		if !util.FileExists(path) {
			return nil, fmt.Errorf("sensevoice file not found: %s", path)
		}
	}

	useITN := 0
	if cfg.UseITN {
		useITN = 1
	}

	rc := sherpa.OfflineRecognizerConfig{}
	rc.FeatConfig = sherpa.FeatureConfig{SampleRate: sampleRate, FeatureDim: 80}
	rc.ModelConfig.SenseVoice.Model = cfg.Model
	rc.ModelConfig.SenseVoice.Language = cfg.Language
	rc.ModelConfig.SenseVoice.UseInverseTextNormalization = useITN
	rc.ModelConfig.Tokens = cfg.Tokens
	rc.ModelConfig.NumThreads = cfg.NumThreads
	rc.ModelConfig.Provider = cfg.Provider
	rc.DecodingMethod = "greedy_search"

	start := time.Now()
	recognizer := sherpa.NewOfflineRecognizer(&rc)
	if recognizer == nil {
		return nil, fmt.Errorf("failed to create sensevoice recognizer from %s", cfg.Model)
	}

	log := logger.With().Str("component", "speech").Logger()
	log.Info().
		Str("model", cfg.Model).
		Str("language", cfg.Language).
		Int("threads", cfg.NumThreads).
		Dur("elapsed", time.Since(start)).
		Msg("sensevoice engine loaded")

	return &SenseVoiceEngine{logger: log, recognizer: recognizer}, nil
}

// Decode recognizes one buffer. Calls are serialized.
func (e *SenseVoiceEngine) Decode(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(samples) == 0 {
		return "", nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.recognizer == nil {
		return "", fmt.Errorf("sensevoice engine is closed")
	}

	stream := sherpa.NewOfflineStream(e.recognizer)
	defer sherpa.DeleteOfflineStream(stream)

	stream.AcceptWaveform(sampleRate, samples)
	e.recognizer.Decode(stream)

	return strings.TrimSpace(stream.GetResult().Text), nil
}

// Close frees the recognizer
func (e *SenseVoiceEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.recognizer != nil {
		sherpa.DeleteOfflineRecognizer(e.recognizer)
		e.recognizer = nil
	}
	return nil
}
