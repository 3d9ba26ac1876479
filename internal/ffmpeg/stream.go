package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
)

// Stream is a running ffmpeg process whose stdout carries raw media.
// Read until io.EOF, then Wait; Close aborts early.
type Stream struct {
	cmd      *exec.Cmd
	stdout   io.ReadCloser
	stderr   *tailBuffer
	once     sync.Once
	err      error
	finished atomic.Bool
}

// Stream starts ffmpeg with args and returns its stdout as a reader
func (e *Executor) Stream(ctx context.Context, args []string) (*Stream, error) {
	baseArgs := []string{"-hide_banner", "-nostdin", "-loglevel", "error"}
	if e.threads > 0 {
		baseArgs = append(baseArgs, "-threads", fmt.Sprintf("%d", e.threads))
	}
	full := append(baseArgs, args...)

	e.logger.Debug().
		Str("cmd", "ffmpeg").
		Strs("args", full).
		Msg("starting ffmpeg stream")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, full...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	tail := newTailBuffer(4096)
	cmd.Stderr = tail

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	return &Stream{cmd: cmd, stdout: stdout, stderr: tail}, nil
}

func (s *Stream) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

// Wait blocks until ffmpeg exits. It must only be called after stdout has
// been drained.
func (s *Stream) Wait() error {
	s.once.Do(func() {
		if err := s.cmd.Wait(); err != nil {
			s.err = fmt.Errorf("ffmpeg exited: %w: %s", err, s.stderr.String())
		}
		s.finished.Store(true)
	})
	return s.err
}

// Close stops the process if it is still running
func (s *Stream) Close() error {
	if s.finished.Load() {
		return s.err
	}
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.Wait()
	return nil
}
