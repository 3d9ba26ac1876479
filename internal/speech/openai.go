package speech

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/kikiluvv/shotlist/internal/config"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"
)

// OpenAIEngine sends audio to an OpenAI-compatible transcription endpoint
type OpenAIEngine struct {
	logger   zerolog.Logger
	client   openai.Client
	model    string
	language string
}

// NewOpenAIEngine creates a remote engine; no network traffic happens until Decode
func NewOpenAIEngine(logger zerolog.Logger, cfg config.OpenAIASRConfig, creds Credentials) *OpenAIEngine {
	opts := []option.RequestOption{option.WithAPIKey(creds.APIKey)}
	if creds.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(creds.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = "whisper-1"
	}

	return &OpenAIEngine{
		logger:   logger.With().Str("component", "speech").Str("backend", "openai").Logger(),
		client:   openai.NewClient(opts...),
		model:    model,
		language: cfg.Language,
	}
}

// Decode uploads samples as a WAV file
func (e *OpenAIEngine) Decode(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}

	wav := EncodeWAV(samples, sampleRate)
	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(wav), "segment.wav", "audio/wav"),
		Model: openai.AudioModel(e.model),
	}
	if e.language != "" {
		params.Language = openai.String(e.language)
	}

	resp, err := e.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}

	e.logger.Debug().
		Int("samples", len(samples)).
		Int("chars", len(resp.Text)).
		Msg("remote transcription complete")

	return strings.TrimSpace(resp.Text), nil
}

// Close is a no-op
func (e *OpenAIEngine) Close() error {
	return nil
}

// EncodeWAV renders mono float samples as a 16-bit PCM WAV file
func EncodeWAV(samples []float32, sampleRate int) []byte {
	const (
		channels      = 1
		bitsPerSample = 16
	)
	dataSize := len(samples) * bitsPerSample / 8
	byteRate := sampleRate * channels * bitsPerSample / 8

	var buf bytes.Buffer
	buf.Grow(44 + dataSize)

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(channels*bitsPerSample/8))
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))

	pcm := make([]byte, dataSize)
	for i, s := range samples {
		v := math.Max(-1, math.Min(1, float64(s)))
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(math.Round(v*math.MaxInt16))))
	}
	buf.Write(pcm)

	return buf.Bytes()
}
