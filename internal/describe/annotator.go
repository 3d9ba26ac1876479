package describe

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Annotator describes frames in sequential batches. At most Concurrency
// requests are in flight, and a batch finishes before the next one starts.
type Annotator struct {
	logger      zerolog.Logger
	describer   Describer
	concurrency int
	limiter     *rate.Limiter
}

// NewAnnotator creates an annotator. A requestsPerMinute of 0 disables rate
// limiting.
func NewAnnotator(logger zerolog.Logger, describer Describer, concurrency, requestsPerMinute int) *Annotator {
	if concurrency <= 0 {
		concurrency = 1
	}
	a := &Annotator{
		logger:      logger.With().Str("component", "describe").Logger(),
		describer:   describer,
		concurrency: concurrency,
	}
	if requestsPerMinute > 0 {
		a.limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 1)
	}
	return a
}

// Annotate returns one description per path, in input order. The first
// failure aborts the batch it belongs to; there are no retries.
func (a *Annotator) Annotate(ctx context.Context, paths []string) ([]string, error) {
	results := make([]string, len(paths))
	start := time.Now()

	for lo := 0; lo < len(paths); lo += a.concurrency {
		hi := min(lo+a.concurrency, len(paths))

		g, gctx := errgroup.WithContext(ctx)
		for i := lo; i < hi; i++ {
			g.Go(func() error {
				if a.limiter != nil {
					if err := a.limiter.Wait(gctx); err != nil {
						return err
					}
				}
				text, err := a.describer.Describe(gctx, paths[i])
				if err != nil {
					return fmt.Errorf("frame %d: %w", i+1, err)
				}
				results[i] = text
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		a.logger.Debug().
			Int("batch_start", lo).
			Int("batch_size", hi-lo).
			Msg("batch described")
	}

	a.logger.Info().
		Int("frames", len(paths)).
		Int("concurrency", a.concurrency).
		Dur("elapsed", time.Since(start)).
		Msg("frame annotation complete")

	return results, nil
}
