package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kikiluvv/shotlist/internal/pipeline"
	"github.com/kikiluvv/shotlist/internal/scene"
	"github.com/kikiluvv/shotlist/internal/store"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))
	r.Post("/analyse-video", analyseHandler(cfg))
	r.Get("/analyses", listRunsHandler(cfg))
	r.Get("/analyses/{id}", getRunHandler(cfg))

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		})
	}
}

// analyseHandler runs the pipeline synchronously; the response is sent when
// every artifact is written
func analyseHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AnalyseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if strings.TrimSpace(req.VideoPath) == "" {
			WriteError(w, http.StatusBadRequest, "video_path is required", "BAD_REQUEST")
			return
		}

		preq := req.toPipeline()
		preq.RunID = uuid.NewString()

		res, err := cfg.Analyser.Analyse(r.Context(), preq)
		if err != nil {
			cfg.Logger.Error().Err(err).Str("run_id", preq.RunID).Str("video", req.VideoPath).Msg("analysis failed")
			WriteError(w, http.StatusInternalServerError, err.Error(), errorCode(err))
			return
		}

		resp := AnalyseResponse{
			ID:             res.RunID,
			CSVPath:        res.CSVPath,
			TranscriptPath: res.TranscriptPath,
			SRTPath:        res.SRTPath,
			JSONPath:       res.JSONPath,
			ElapsedMs:      res.Elapsed.Milliseconds(),
		}
		if res.Table != nil {
			resp.Scenes = res.Table.Len()
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func listRunsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Runs == nil {
			WriteError(w, http.StatusServiceUnavailable, "run store disabled", "UNAVAILABLE")
			return
		}

		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				WriteError(w, http.StatusBadRequest, "limit must be a positive integer", "BAD_REQUEST")
				return
			}
			limit = n
		}

		runs, err := cfg.Runs.ListRuns(r.Context(), limit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list analyses", "INTERNAL_ERROR")
			return
		}

		resp := RunsResponse{Runs: make([]RunResponse, len(runs))}
		for i, run := range runs {
			resp.Runs[i] = RunToResponse(run)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getRunHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Runs == nil {
			WriteError(w, http.StatusServiceUnavailable, "run store disabled", "UNAVAILABLE")
			return
		}

		id := chi.URLParam(r, "id")
		run, err := cfg.Runs.GetRun(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "analysis not found", "NOT_FOUND")
			return
		}
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusOK, RunToResponse(run))
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, pipeline.ErrVideoTooLong):
		return "VIDEO_TOO_LONG"
	case errors.Is(err, pipeline.ErrFFmpegUnavailable):
		return "FFMPEG_UNAVAILABLE"
	case errors.Is(err, scene.ErrUnreadableVideo):
		return "UNREADABLE_VIDEO"
	default:
		return "INTERNAL_ERROR"
	}
}
