package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/kikiluvv/shotlist/internal/scene"
	"github.com/rs/zerolog"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "nested", "test.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNew_CreatesDatabase(t *testing.T) {
	s := newTestStore(t)

	for _, table := range []string{"runs", "scenes", "_migrations"} {
		var name string
		err := s.Conn().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestNew_WALEnabled(t *testing.T) {
	s := newTestStore(t)

	var journalMode string
	if err := s.Conn().QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("PRAGMA journal_mode error = %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %s, want wal", journalMode)
	}
}

func TestNew_MigrationsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s1, err := New(dbPath, zerolog.Nop())
	if err != nil {
		t.Fatalf("first New() error = %v", err)
	}
	s1.Close()

	s2, err := New(dbPath, zerolog.Nop())
	if err != nil {
		t.Fatalf("second New() error = %v", err)
	}
	defer s2.Close()

	var count int
	if err := s2.Conn().QueryRow("SELECT COUNT(*) FROM _migrations").Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 recorded migration, got %d", count)
	}
}

func TestRunLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := &Run{
		ID:             "run-1",
		VideoPath:      "/videos/clip.mp4",
		SourcePlatform: "douyin",
		CSVPath:        "/out/clip.csv",
		TranscriptPath: "/out/clip_transcript.txt",
	}
	if err := s.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	got, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.Status != StatusRunning {
		t.Errorf("expected status %s, got %s", StatusRunning, got.Status)
	}
	if got.SourcePlatform != "douyin" {
		t.Errorf("expected platform douyin, got %q", got.SourcePlatform)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}

	table := &scene.Table{
		FPS: 25,
		Scenes: []scene.Scene{
			{Index: 1, StartFrame: 0, EndFrame: 100, Duration: 4, Text: "你好。"},
			{Index: 2, StartFrame: 100, EndFrame: 250, Duration: 6, Description: "a white frame"},
		},
	}
	run.VideoID = "clip"
	run.Transcript = "你好。"
	run.DurationSeconds = 10
	run.Elapsed = 1500 * time.Millisecond
	run.Scenes = ScenesFromTable(table)
	if err := s.CompleteRun(ctx, run); err != nil {
		t.Fatalf("CompleteRun() error = %v", err)
	}

	got, err = s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.Status != StatusDone {
		t.Errorf("expected status %s, got %s", StatusDone, got.Status)
	}
	if got.Elapsed != 1500*time.Millisecond {
		t.Errorf("expected elapsed 1.5s, got %v", got.Elapsed)
	}
	if len(got.Scenes) != 2 {
		t.Fatalf("expected 2 scenes, got %d", len(got.Scenes))
	}
	if got.Scenes[0].Text != "你好。" || got.Scenes[1].Description != "a white frame" {
		t.Errorf("unexpected scenes: %+v", got.Scenes)
	}
	if got.Scenes[1].EndFrame != 250 {
		t.Errorf("expected end frame 250, got %d", got.Scenes[1].EndFrame)
	}

	// Completing again replaces the scene rows
	run.Scenes = run.Scenes[:1]
	if err := s.CompleteRun(ctx, run); err != nil {
		t.Fatalf("second CompleteRun() error = %v", err)
	}
	got, _ = s.GetRun(ctx, "run-1")
	if len(got.Scenes) != 1 {
		t.Errorf("expected 1 scene after replace, got %d", len(got.Scenes))
	}
}

func TestFailRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateRun(ctx, &Run{ID: "run-1", VideoPath: "a.mp4"}); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	if err := s.FailRun(ctx, "run-1", errors.New("boom")); err != nil {
		t.Fatalf("FailRun() error = %v", err)
	}

	got, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.Status != StatusFailed || got.Error != "boom" {
		t.Errorf("expected failed/boom, got %s/%s", got.Status, got.Error)
	}

	if err := s.FailRun(ctx, "missing", errors.New("x")); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetRun(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCompleteRun_NotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.CompleteRun(context.Background(), &Run{ID: "nope"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		run := &Run{ID: id, VideoPath: id + ".mp4", CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := s.CreateRun(ctx, run); err != nil {
			t.Fatalf("CreateRun(%s) error = %v", id, err)
		}
	}

	runs, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "c" || runs[1].ID != "b" {
		t.Errorf("expected newest first [c b], got [%s %s]", runs[0].ID, runs[1].ID)
	}
	if !runs[0].CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("expected created_at round trip, got %v", runs[0].CreatedAt)
	}
}

func TestNew_MarksInterruptedRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s1, err := New(dbPath, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s1.CreateRun(ctx, &Run{ID: "stuck", VideoPath: "a.mp4"}); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	s1.Close()

	s2, err := New(dbPath, zerolog.Nop())
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s2.Close()

	got, err := s2.GetRun(ctx, "stuck")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.Status != StatusFailed {
		t.Errorf("expected interrupted run to be failed, got %s", got.Status)
	}
	if got.Error != "interrupted by restart" {
		t.Errorf("unexpected error message %q", got.Error)
	}
}
