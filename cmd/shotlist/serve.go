package main

import (
	"context"
	"time"

	"github.com/kikiluvv/shotlist/internal/api"
	"github.com/kikiluvv/shotlist/internal/config"
	"github.com/kikiluvv/shotlist/internal/pipeline"
	"github.com/kikiluvv/shotlist/internal/queue"
	"github.com/kikiluvv/shotlist/internal/speech"
	"github.com/kikiluvv/shotlist/internal/store"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	serveAddr  string
	workerPoll time.Duration
)

// recordedPipeline wires the long-running pipeline: one engine shared by
// every run and a store recording each of them
func recordedPipeline(logger zerolog.Logger, cfg *config.Config) (pipeline.Analyser, *store.Store, func(), error) {
	loader, err := speech.NewLoader(logger, cfg.Speech, speech.Credentials{
		APIKey:  cfg.Describe.APIKey,
		BaseURL: cfg.Describe.BaseURL,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	shared := speech.Share(loader)

	pipe, err := pipeline.New(logger, cfg, pipeline.Deps{Loader: shared})
	if err != nil {
		return nil, nil, nil, err
	}

	st, err := store.New(cfg.Store.Path, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	cleanup := func() {
		if err := shared.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close speech engine")
		}
		if err := st.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close store")
		}
	}
	return pipeline.NewRecorder(logger, pipe, st), st, cleanup, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}

		analyser, st, cleanup, err := recordedPipeline(log.Logger, cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		server := api.NewServer(api.ServerConfig{
			Addr:      cfg.Server.Addr,
			Analyser:  analyser,
			Runs:      st,
			Logger:    log.Logger,
			StartTime: time.Now(),
			Version:   version,
		})

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		select {
		case err := <-errCh:
			return err
		case <-cmd.Context().Done():
			log.Info().Msg("received shutdown signal")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown HTTP server")
		}

		log.Info().Msg("shutdown complete")
		return nil
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Process analysis jobs from the Redis queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		q, err := queue.Connect(cmd.Context(), cfg.Queue)
		if err != nil {
			return err
		}
		defer q.Close()

		analyser, _, cleanup, err := recordedPipeline(log.Logger, cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		return queue.NewWorker(log.Logger, q, analyser, workerPoll).Run(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	workerCmd.Flags().DurationVar(&workerPoll, "poll", 5*time.Second, "queue block timeout")
}
