package queue

import (
	"context"
	"errors"
	"time"

	"github.com/kikiluvv/shotlist/internal/pipeline"
	"github.com/kikiluvv/shotlist/internal/store"
	"github.com/rs/zerolog"
)

// Source is what a Worker consumes
type Source interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*Job, error)
	Publish(ctx context.Context, out Outcome) error
}

// Worker runs queued jobs one at a time
type Worker struct {
	source   Source
	analyser pipeline.Analyser
	logger   zerolog.Logger
	poll     time.Duration
}

// NewWorker creates a worker polling source with the given block timeout
func NewWorker(logger zerolog.Logger, source Source, analyser pipeline.Analyser, poll time.Duration) *Worker {
	if poll <= 0 {
		poll = 5 * time.Second
	}
	return &Worker{
		source:   source,
		analyser: analyser,
		logger:   logger.With().Str("component", "worker").Logger(),
		poll:     poll,
	}
}

// Run processes jobs until ctx is cancelled
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Msg("worker started")
	for {
		if ctx.Err() != nil {
			w.logger.Info().Msg("worker stopped")
			return nil
		}

		job, err := w.source.Dequeue(ctx, w.poll)
		if errors.Is(err, ErrEmpty) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.logger.Error().Err(err).Msg("failed to dequeue job")
			select {
			case <-ctx.Done():
			case <-time.After(w.poll):
			}
			continue
		}

		w.Handle(ctx, job)
	}
}

// Handle runs one job and publishes its outcome
func (w *Worker) Handle(ctx context.Context, job *Job) Outcome {
	log := w.logger.With().Str("job_id", job.ID).Str("video", job.VideoPath).Logger()
	log.Info().Msg("processing job")

	out := Outcome{ID: job.ID}
	res, err := w.analyser.Analyse(ctx, job.Request())
	if err != nil {
		log.Error().Err(err).Msg("job failed")
		out.Status = store.StatusFailed
		out.Error = err.Error()
	} else {
		log.Info().Dur("elapsed", res.Elapsed).Msg("job complete")
		out.Status = store.StatusDone
		out.CSVPath = res.CSVPath
		out.TranscriptPath = res.TranscriptPath
	}

	if err := w.source.Publish(context.WithoutCancel(ctx), out); err != nil {
		log.Error().Err(err).Msg("failed to publish outcome")
	}
	return out
}
