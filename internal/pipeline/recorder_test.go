package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/kikiluvv/shotlist/internal/ffmpeg"
	"github.com/kikiluvv/shotlist/internal/scene"
	"github.com/kikiluvv/shotlist/internal/store"
	"github.com/rs/zerolog"
)

type fakeAnalyser struct {
	err  error
	seen Request
}

func (f *fakeAnalyser) Analyse(ctx context.Context, req Request) (*Result, error) {
	f.seen = req
	if f.err != nil {
		return nil, f.err
	}
	return &Result{
		RunID:          req.RunID,
		VideoID:        "clip",
		CSVPath:        req.CSVPath,
		TranscriptPath: req.TranscriptPath,
		Transcript:     "你好。",
		Table: &scene.Table{FPS: 25, Scenes: []scene.Scene{
			{Index: 1, StartFrame: 0, EndFrame: 50, Duration: 2, Text: "你好。"},
		}},
		Info:    &ffmpeg.VideoInfo{Duration: 2 * time.Second},
		Elapsed: time.Second,
	}, nil
}

func newRecorderStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "runs.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("store.New failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestRecorderStoresCompletedRun(t *testing.T) {
	st := newRecorderStore(t)
	fake := &fakeAnalyser{}
	rec := NewRecorder(zerolog.Nop(), fake, st)

	res, err := rec.Analyse(context.Background(), Request{
		VideoPath: "/videos/clip.mp4",
		CSVPath:   "/out/clip.csv",
		Source:    &Source{Platform: "bilibili", Title: "demo"},
	})
	if err != nil {
		t.Fatalf("Analyse failed: %v", err)
	}
	if fake.seen.RunID == "" || res.RunID != fake.seen.RunID {
		t.Errorf("expected a generated run id passed through, got %q / %q", fake.seen.RunID, res.RunID)
	}

	run, err := st.GetRun(context.Background(), res.RunID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Status != store.StatusDone {
		t.Errorf("expected status done, got %s", run.Status)
	}
	if run.SourcePlatform != "bilibili" || run.VideoID != "clip" {
		t.Errorf("unexpected run fields %+v", run)
	}
	if run.DurationSeconds != 2 {
		t.Errorf("expected duration 2, got %v", run.DurationSeconds)
	}
	if len(run.Scenes) != 1 || run.Scenes[0].Text != "你好。" {
		t.Errorf("unexpected scenes %+v", run.Scenes)
	}
}

func TestRecorderStoresFailure(t *testing.T) {
	st := newRecorderStore(t)
	rec := NewRecorder(zerolog.Nop(), &fakeAnalyser{err: ErrVideoTooLong}, st)

	_, err := rec.Analyse(context.Background(), Request{RunID: "r1", VideoPath: "long.mp4"})
	if !errors.Is(err, ErrVideoTooLong) {
		t.Fatalf("expected ErrVideoTooLong, got %v", err)
	}

	run, err := st.GetRun(context.Background(), "r1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Status != store.StatusFailed || run.Error != ErrVideoTooLong.Error() {
		t.Errorf("expected failed run with error, got %s / %q", run.Status, run.Error)
	}
}
