package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kikiluvv/shotlist/internal/config"
	"github.com/kikiluvv/shotlist/internal/pipeline"
	"github.com/kikiluvv/shotlist/internal/scene"
	"github.com/kikiluvv/shotlist/internal/store"
	"github.com/kikiluvv/shotlist/pkg/util"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var analyseFlags struct {
	csv, transcript, srt, json string
	minScene, maxDuration      float64
	apiKey, baseURL            string
	debug, record, subtitles   bool
	platform, sourceID, title  string
}

var analyseCmd = &cobra.Command{
	Use:     "analyse [input video]",
	Aliases: []string{"analyze"},
	Short:   "Build the scene table and transcript for a video",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		pipe, err := pipeline.New(log.Logger, cfg, pipeline.Deps{})
		if err != nil {
			return err
		}

		var analyser pipeline.Analyser = pipe
		if analyseFlags.record {
			st, err := store.New(cfg.Store.Path, log.Logger)
			if err != nil {
				return err
			}
			defer st.Close()
			analyser = pipeline.NewRecorder(log.Logger, pipe, st)
		}

		if analyseFlags.srt == "" && analyseFlags.subtitles {
			analyseFlags.srt = util.ReplaceExt(args[0], ".srt")
		}

		req := pipeline.Request{
			VideoPath:        args[0],
			CSVPath:          analyseFlags.csv,
			TranscriptPath:   analyseFlags.transcript,
			SRTPath:          analyseFlags.srt,
			JSONPath:         analyseFlags.json,
			APIKey:           analyseFlags.apiKey,
			BaseURL:          analyseFlags.baseURL,
			MinSceneDuration: analyseFlags.minScene,
			MaxDuration:      analyseFlags.maxDuration,
			Debug:            analyseFlags.debug,
		}
		if analyseFlags.platform != "" || analyseFlags.sourceID != "" || analyseFlags.title != "" {
			req.Source = &pipeline.Source{
				Platform: analyseFlags.platform,
				ID:       analyseFlags.sourceID,
				Title:    analyseFlags.title,
			}
		}

		res, err := analyser.Analyse(cmd.Context(), req)
		if err != nil {
			return err
		}

		log.Info().
			Str("run", res.RunID).
			Str("csv", res.CSVPath).
			Str("transcript", res.TranscriptPath).
			Int("scenes", res.Table.Len()).
			Str("elapsed", util.FormatDuration(res.Elapsed)).
			Msg("analysis complete")

		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show [scene table]",
	Short: "Print a saved scene table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := scene.Load(args[0])
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SCENE\tSECONDS\tTEXT\tDESCRIPTION")
		for _, s := range table.Scenes {
			fmt.Fprintf(w, "%s\t%.2f\t%s\t%s\n", s.Label(), s.Duration, s.Text, s.Description)
		}
		fmt.Fprintf(w, "total\t%.2f\t\t\n", table.TotalDuration())
		return w.Flush()
	},
}

func init() {
	f := analyseCmd.Flags()
	f.StringVar(&analyseFlags.csv, "csv", "", "scene table output (default: <work_dir>/<name>.csv)")
	f.StringVar(&analyseFlags.transcript, "transcript", "", "transcript output (default: <work_dir>/<name>_transcript.txt)")
	f.StringVar(&analyseFlags.srt, "srt", "", "also write subtitles of the corrected segments")
	f.BoolVar(&analyseFlags.subtitles, "subtitles", false, "write subtitles next to the video when --srt is not given")
	f.StringVar(&analyseFlags.json, "json", "", "also write a JSON report")
	f.Float64Var(&analyseFlags.minScene, "min-scene", 0, "minimum scene duration in seconds (default from config)")
	f.Float64Var(&analyseFlags.maxDuration, "max-duration", 0, "reject videos longer than this many seconds (default from config)")
	f.StringVar(&analyseFlags.apiKey, "api-key", "", "description service API key")
	f.StringVar(&analyseFlags.baseURL, "base-url", "", "description service base URL")
	f.BoolVar(&analyseFlags.debug, "debug", false, "debug logging for this run")
	f.BoolVar(&analyseFlags.record, "record", false, "record the run in the store")
	f.StringVar(&analyseFlags.platform, "source-platform", "", "platform the video came from")
	f.StringVar(&analyseFlags.sourceID, "source-id", "", "platform identifier, used as the report video_id")
	f.StringVar(&analyseFlags.title, "source-title", "", "original title")
}
