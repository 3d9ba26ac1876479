package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/kikiluvv/shotlist/internal/vision"
)

// FrameInfo describes the decoded frame stream
type FrameInfo struct {
	FPS         float64
	TotalFrames int
	Width       int
	Height      int
}

// FrameReader decodes a video into RGB24 frames one at a time
type FrameReader struct {
	stream *Stream
	info   FrameInfo
	frame  *vision.Frame
	read   int
}

// OpenFrames starts decoding path into raw frames. maxWidth > 0 downscales
// wide sources before they reach the feature extractor.
func (e *Executor) OpenFrames(ctx context.Context, path string, info *VideoInfo, maxWidth int) (*FrameReader, error) {
	if info == nil || info.Width == 0 || info.Height == 0 {
		return nil, fmt.Errorf("video dimensions unknown for %s", path)
	}
	if info.FPS <= 0 {
		return nil, fmt.Errorf("frame rate unknown for %s", path)
	}

	w, h := FitWidth(info.Width, info.Height, maxWidth)
	filter := NewFilterBuilder().Scale(w, h).Format("rgb24").Build()

	args := []string{
		"-noautorotate",
		"-i", path,
		"-map", "0:v:0",
		"-an",
		"-vf", filter,
		"-vsync", "passthrough",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"pipe:1",
	}

	stream, err := e.Stream(ctx, args)
	if err != nil {
		return nil, err
	}

	return &FrameReader{
		stream: stream,
		info: FrameInfo{
			FPS:         info.FPS,
			TotalFrames: info.EstimatedFrames(),
			Width:       w,
			Height:      h,
		},
		frame: vision.NewFrame(w, h),
	}, nil
}

// Info returns stream geometry and the container's frame count estimate
func (r *FrameReader) Info() FrameInfo {
	return r.info
}

// Next returns the next frame, or io.EOF once the stream is exhausted.
// The returned frame is reused by the following call.
func (r *FrameReader) Next() (*vision.Frame, error) {
	_, err := io.ReadFull(r.stream, r.frame.Pix)
	if err == nil {
		r.read++
		return r.frame, nil
	}
	if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("failed to read frame %d: %w", r.read, err)
	}

	// A truncated trailing frame is dropped
	if werr := r.stream.Wait(); werr != nil && r.read == 0 {
		return nil, werr
	}
	return nil, io.EOF
}

// Frames returns how many complete frames have been read
func (r *FrameReader) Frames() int {
	return r.read
}

// Close stops decoding
func (r *FrameReader) Close() error {
	return r.stream.Close()
}
