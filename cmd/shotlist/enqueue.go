package main

import (
	"fmt"
	"path/filepath"

	"github.com/kikiluvv/shotlist/internal/config"
	"github.com/kikiluvv/shotlist/internal/pipeline"
	"github.com/kikiluvv/shotlist/internal/queue"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var enqueueFlags struct {
	csv, transcript, srt, json string
	minScene, maxDuration      float64
	debug                      bool
	platform, sourceID, title  string
}

var enqueueCmd = &cobra.Command{
	Use:   "enqueue [input video]",
	Short: "Queue a video for a worker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		// Workers may run elsewhere; send an absolute path
		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		q, err := queue.Connect(cmd.Context(), cfg.Queue)
		if err != nil {
			return err
		}
		defer q.Close()

		job := &queue.Job{
			VideoPath:        path,
			CSVPath:          enqueueFlags.csv,
			TranscriptPath:   enqueueFlags.transcript,
			SRTPath:          enqueueFlags.srt,
			JSONPath:         enqueueFlags.json,
			MinSceneDuration: enqueueFlags.minScene,
			MaxDuration:      enqueueFlags.maxDuration,
			Debug:            enqueueFlags.debug,
		}
		if enqueueFlags.platform != "" || enqueueFlags.sourceID != "" || enqueueFlags.title != "" {
			job.Source = &pipeline.Source{
				Platform: enqueueFlags.platform,
				ID:       enqueueFlags.sourceID,
				Title:    enqueueFlags.title,
			}
		}

		if err := q.Enqueue(cmd.Context(), job); err != nil {
			return err
		}

		length, err := q.Len(cmd.Context())
		if err != nil {
			log.Warn().Err(err).Msg("failed to read queue length")
		}
		log.Info().Str("job_id", job.ID).Int64("queued", length).Msg("job enqueued")
		fmt.Println(job.ID)
		return nil
	},
}

func init() {
	f := enqueueCmd.Flags()
	f.StringVar(&enqueueFlags.csv, "csv", "", "scene table output")
	f.StringVar(&enqueueFlags.transcript, "transcript", "", "transcript output")
	f.StringVar(&enqueueFlags.srt, "srt", "", "subtitles output")
	f.StringVar(&enqueueFlags.json, "json", "", "JSON report output")
	f.Float64Var(&enqueueFlags.minScene, "min-scene", 0, "minimum scene duration in seconds")
	f.Float64Var(&enqueueFlags.maxDuration, "max-duration", 0, "maximum video duration in seconds")
	f.BoolVar(&enqueueFlags.debug, "debug", false, "debug logging for this run")
	f.StringVar(&enqueueFlags.platform, "source-platform", "", "platform the video came from")
	f.StringVar(&enqueueFlags.sourceID, "source-id", "", "platform identifier")
	f.StringVar(&enqueueFlags.title, "source-title", "", "original title")
}
