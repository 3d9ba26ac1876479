package ffmpeg

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
)

// AudioFormat defines audio decoding options
type AudioFormat struct {
	SampleRate int
	Channels   int
}

// DefaultSpeechFormat is what the VAD and ASR models expect: 16 kHz mono
func DefaultSpeechFormat() AudioFormat {
	return AudioFormat{
		SampleRate: 16000,
		Channels:   1, // mono
	}
}

// DecodePCM decodes the first audio stream of input into interleaved
// float32 samples in [-1, 1]
func (e *Executor) DecodePCM(ctx context.Context, input string, format AudioFormat, progressFunc ProgressFunc) ([]float32, error) {
	e.logger.Info().
		Str("input", input).
		Int("sample_rate", format.SampleRate).
		Int("channels", format.Channels).
		Msg("decoding audio")

	var raw bytes.Buffer
	opts := RunOptions{
		Args: []string{
			"-i", input,
			"-vn", // no video
			"-map", "0:a:0",
			"-ac", fmt.Sprintf("%d", format.Channels),
			"-ar", fmt.Sprintf("%d", format.SampleRate),
			"-f", "f32le",
			"-acodec", "pcm_f32le",
			"pipe:1",
		},
		ProgressHandler: progressFunc,
		LogHandler: func(line string) {
			e.logger.Trace().Str("ffmpeg", line).Msg("audio decode")
		},
		Stdout: &raw,
	}

	if err := e.Run(ctx, opts); err != nil {
		return nil, fmt.Errorf("failed to decode audio: %w", err)
	}

	samples := bytesToFloat32(raw.Bytes())

	e.logger.Debug().
		Int("samples", len(samples)).
		Float64("seconds", float64(len(samples))/float64(format.SampleRate*format.Channels)).
		Msg("audio decoded")

	return samples, nil
}

func bytesToFloat32(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
