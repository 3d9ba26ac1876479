package speech

import (
	"context"
	"fmt"
	"sync"

	"github.com/kikiluvv/shotlist/internal/config"
	"github.com/rs/zerolog"
)

// Engine turns mono PCM samples into text
type Engine interface {
	Decode(ctx context.Context, samples []float32, sampleRate int) (string, error)
	Close() error
}

// Loader initializes an Engine. Loading may be slow, so callers run it
// alongside other work.
type Loader interface {
	Load(ctx context.Context) (Engine, error)
}

// LoaderFunc adapts a function to Loader
type LoaderFunc func(ctx context.Context) (Engine, error)

// Load calls f
func (f LoaderFunc) Load(ctx context.Context) (Engine, error) {
	return f(ctx)
}

// Credentials configure remote backends
type Credentials struct {
	APIKey  string
	BaseURL string
}

// NewLoader returns a loader for the configured backend
func NewLoader(logger zerolog.Logger, cfg config.SpeechConfig, creds Credentials) (Loader, error) {
	switch cfg.Backend {
	case "", "sensevoice":
		return LoaderFunc(func(ctx context.Context) (Engine, error) {
			return LoadSenseVoice(ctx, logger, cfg.SenseVoice, cfg.SampleRate)
		}), nil
	case "openai":
		if creds.APIKey == "" {
			return nil, fmt.Errorf("openai speech backend requires an API key")
		}
		return LoaderFunc(func(ctx context.Context) (Engine, error) {
			return NewOpenAIEngine(logger, cfg.OpenAI, creds), nil
		}), nil
	default:
		return nil, fmt.Errorf("unknown speech backend: %s", cfg.Backend)
	}
}

// SharedLoader loads its engine once and hands the same instance to every
// caller. Engines it returns ignore Close; call SharedLoader.Close instead.
type SharedLoader struct {
	mu     sync.Mutex
	loader Loader
	engine Engine
}

// Share wraps loader so the engine survives across runs
func Share(loader Loader) *SharedLoader {
	return &SharedLoader{loader: loader}
}

// Load returns the cached engine, loading it on first use. A failed load is
// retried on the next call.
func (s *SharedLoader) Load(ctx context.Context) (Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.engine == nil {
		engine, err := s.loader.Load(ctx)
		if err != nil {
			return nil, err
		}
		s.engine = engine
	}
	return sharedEngine{s.engine}, nil
}

// Close releases the cached engine
func (s *SharedLoader) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.engine == nil {
		return nil
	}
	err := s.engine.Close()
	s.engine = nil
	return err
}

type sharedEngine struct {
	Engine
}

func (sharedEngine) Close() error { return nil }
