package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kikiluvv/shotlist/internal/scene"
)

// ErrNotFound is returned when a run does not exist
var ErrNotFound = errors.New("run not found")

// timeLayout keeps stored timestamps lexically sortable
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run statuses
const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Run is one recorded analysis
type Run struct {
	ID              string        `json:"id"`
	VideoPath       string        `json:"video_path"`
	VideoID         string        `json:"video_id"`
	SourcePlatform  string        `json:"source_platform,omitempty"`
	SourceTitle     string        `json:"source_title,omitempty"`
	CSVPath         string        `json:"csv_path"`
	TranscriptPath  string        `json:"transcript_path"`
	Status          string        `json:"status"`
	Error           string        `json:"error,omitempty"`
	Transcript      string        `json:"transcript,omitempty"`
	DurationSeconds float64       `json:"duration_seconds"`
	Elapsed         time.Duration `json:"elapsed_ms"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`

	Scenes []SceneRow `json:"scenes,omitempty"`
}

// SceneRow is a persisted scene table row
type SceneRow struct {
	Index       int     `json:"scene_index"`
	StartFrame  int     `json:"start_frame"`
	EndFrame    int     `json:"end_frame"`
	Duration    float64 `json:"duration_seconds"`
	Text        string  `json:"text"`
	Description string  `json:"description"`
}

// CreateRun inserts a run in the running state
func (s *Store) CreateRun(ctx context.Context, r *Run) error {
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	if r.Status == "" {
		r.Status = StatusRunning
	}

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO runs (id, video_path, video_id, source_platform, source_title, csv_path, transcript_path,
			status, error, transcript, duration_seconds, elapsed_ms, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.VideoPath, r.VideoID, nullString(r.SourcePlatform), nullString(r.SourceTitle), r.CSVPath, r.TranscriptPath,
		r.Status, nullString(r.Error), r.Transcript, r.DurationSeconds, r.Elapsed.Milliseconds(),
		r.CreatedAt.Format(timeLayout), r.UpdatedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// CompleteRun marks a run done and stores its scene rows
func (s *Store) CompleteRun(ctx context.Context, r *Run) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	r.Status = StatusDone
	r.Error = ""
	r.UpdatedAt = time.Now().UTC()

	res, err := tx.ExecContext(ctx, `
		UPDATE runs SET video_id = ?, csv_path = ?, transcript_path = ?, status = ?, error = NULL,
			transcript = ?, duration_seconds = ?, elapsed_ms = ?, updated_at = ?
		WHERE id = ?
	`, r.VideoID, r.CSVPath, r.TranscriptPath, r.Status, r.Transcript, r.DurationSeconds,
		r.Elapsed.Milliseconds(), r.UpdatedAt.Format(timeLayout), r.ID)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM scenes WHERE run_id = ?", r.ID); err != nil {
		return fmt.Errorf("failed to clear scenes: %w", err)
	}
	for _, sc := range r.Scenes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO scenes (run_id, scene_index, start_frame, end_frame, duration_seconds, text, description)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, r.ID, sc.Index, sc.StartFrame, sc.EndFrame, sc.Duration, sc.Text, sc.Description)
		if err != nil {
			return fmt.Errorf("failed to insert scene %d: %w", sc.Index, err)
		}
	}

	return tx.Commit()
}

// FailRun records a failure message
func (s *Store) FailRun(ctx context.Context, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	res, err := s.conn.ExecContext(ctx,
		"UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?",
		StatusFailed, msg, time.Now().UTC().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const runColumns = `id, video_path, video_id, source_platform, source_title, csv_path, transcript_path,
	status, error, transcript, duration_seconds, elapsed_ms, created_at, updated_at`

// GetRun loads a run with its scenes
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.conn.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.conn.QueryContext(ctx, `
		SELECT scene_index, start_frame, end_frame, duration_seconds, text, description
		FROM scenes WHERE run_id = ? ORDER BY scene_index
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var sc SceneRow
		if err := rows.Scan(&sc.Index, &sc.StartFrame, &sc.EndFrame, &sc.Duration, &sc.Text, &sc.Description); err != nil {
			return nil, err
		}
		r.Scenes = append(r.Scenes, sc)
	}
	return r, rows.Err()
}

// ListRuns returns the most recent runs first, without scenes
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.conn.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]*Run, 0)
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	var platform, title, errMsg sql.NullString
	var elapsedMs int64
	var createdAt, updatedAt string

	err := row.Scan(&r.ID, &r.VideoPath, &r.VideoID, &platform, &title, &r.CSVPath, &r.TranscriptPath,
		&r.Status, &errMsg, &r.Transcript, &r.DurationSeconds, &elapsedMs, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	r.SourcePlatform = platform.String
	r.SourceTitle = title.String
	r.Error = errMsg.String
	r.Elapsed = time.Duration(elapsedMs) * time.Millisecond
	r.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	r.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return &r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// ScenesFromTable converts scene table rows for persistence
func ScenesFromTable(t *scene.Table) []SceneRow {
	if t == nil {
		return nil
	}
	rows := make([]SceneRow, len(t.Scenes))
	for i, sc := range t.Scenes {
		rows[i] = SceneRow{
			Index:       sc.Index,
			StartFrame:  sc.StartFrame,
			EndFrame:    sc.EndFrame,
			Duration:    sc.Duration,
			Text:        sc.Text,
			Description: sc.Description,
		}
	}
	return rows
}
