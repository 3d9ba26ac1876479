package pipeline

import (
	"context"

	"github.com/google/uuid"
	"github.com/kikiluvv/shotlist/internal/store"
	"github.com/rs/zerolog"
)

// Analyser runs one analysis
type Analyser interface {
	Analyse(ctx context.Context, req Request) (*Result, error)
}

// Recorder wraps an Analyser and keeps a run record for every request
type Recorder struct {
	next   Analyser
	store  *store.Store
	logger zerolog.Logger
}

// NewRecorder records runs of next in st
func NewRecorder(logger zerolog.Logger, next Analyser, st *store.Store) *Recorder {
	return &Recorder{
		next:   next,
		store:  st,
		logger: logger.With().Str("component", "recorder").Logger(),
	}
}

// Analyse creates the run record, delegates, then marks the record done or
// failed. Store errors are logged and never mask the analysis result.
func (r *Recorder) Analyse(ctx context.Context, req Request) (*Result, error) {
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}

	run := &store.Run{
		ID:             req.RunID,
		VideoPath:      req.VideoPath,
		VideoID:        videoID(req),
		CSVPath:        req.CSVPath,
		TranscriptPath: req.TranscriptPath,
	}
	if req.Source != nil {
		run.SourcePlatform = req.Source.Platform
		run.SourceTitle = req.Source.Title
	}
	if err := r.store.CreateRun(ctx, run); err != nil {
		r.logger.Error().Err(err).Str("run_id", req.RunID).Msg("failed to record run")
	}

	res, err := r.next.Analyse(ctx, req)
	if err != nil {
		// The request context may already be cancelled
		if ferr := r.store.FailRun(context.WithoutCancel(ctx), req.RunID, err); ferr != nil {
			r.logger.Error().Err(ferr).Str("run_id", req.RunID).Msg("failed to record run failure")
		}
		return nil, err
	}

	run.VideoID = res.VideoID
	run.CSVPath = res.CSVPath
	run.TranscriptPath = res.TranscriptPath
	run.Transcript = res.Transcript
	run.Elapsed = res.Elapsed
	run.Scenes = store.ScenesFromTable(res.Table)
	if res.Info != nil {
		run.DurationSeconds = res.Info.Duration.Seconds()
	}
	if err := r.store.CompleteRun(context.WithoutCancel(ctx), run); err != nil {
		r.logger.Error().Err(err).Str("run_id", req.RunID).Msg("failed to record run result")
	}
	return res, nil
}
