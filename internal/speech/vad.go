package speech

import (
	"fmt"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"
	"github.com/kikiluvv/shotlist/pkg/util"
)

// VADOptions configures speech region detection
type VADOptions struct {
	Threshold  float32
	MinSilence float64 // seconds of silence that end a region
	MinSpeech  float64 // seconds of speech needed to open a region
	MaxSpeech  float64 // regions are split once they reach this length
	WindowSize int
	SampleRate int
	// BufferSeconds sizes the detector's sample buffer
	BufferSeconds float64
}

// DefaultVADOptions matches the config defaults
func DefaultVADOptions() VADOptions {
	return VADOptions{
		Threshold:     0.2,
		MinSilence:    0.15,
		MinSpeech:     0.05,
		MaxSpeech:     5,
		WindowSize:    512,
		SampleRate:    16000,
		BufferSeconds: 100,
	}
}

// Region is a span of speech in samples, End exclusive
type Region struct {
	Start int
	End   int
}

// VoiceDetector groups a sample stream into speech regions
type VoiceDetector interface {
	// AcceptWaveform consumes one window of samples in stream order
	AcceptWaveform(window []float32)
	// Flush closes a region still open at the end of the stream
	Flush()
	// Regions removes and returns the completed regions
	Regions() []Region
	Close() error
}

// DetectorFactory creates a fresh detector for one pass
type DetectorFactory func(opts VADOptions) (VoiceDetector, error)

// SileroDetector is sherpa-onnx's Silero voice activity detector
type SileroDetector struct {
	vad *sherpa.VoiceActivityDetector
}

// NewSileroDetector loads the Silero model at modelPath
func NewSileroDetector(modelPath string, opts VADOptions) (*SileroDetector, error) {
	if !util.FileExists(modelPath) {
		return nil, fmt.Errorf("model file not found: %s", modelPath)
	}
	if opts.SampleRate != 16000 && opts.SampleRate != 8000 {
		return nil, fmt.Errorf("silero vad supports 8000 or 16000 Hz, got %d", opts.SampleRate)
	}

	cfg := vadConfig(modelPath, opts)
	vad := sherpa.NewVoiceActivityDetector(&cfg, float32(opts.BufferSeconds))
	if vad == nil {
		return nil, fmt.Errorf("failed to create vad from %s", modelPath)
	}
	return &SileroDetector{vad: vad}, nil
}

func vadConfig(modelPath string, opts VADOptions) sherpa.VadModelConfig {
	cfg := sherpa.VadModelConfig{}
	cfg.SileroVad.Model = modelPath
	cfg.SileroVad.Threshold = opts.Threshold
	cfg.SileroVad.MinSilenceDuration = float32(opts.MinSilence)
	cfg.SileroVad.MinSpeechDuration = float32(opts.MinSpeech)
	cfg.SileroVad.MaxSpeechDuration = float32(opts.MaxSpeech)
	cfg.SileroVad.WindowSize = opts.WindowSize
	cfg.SampleRate = opts.SampleRate
	// the model is tiny; extra threads only add scheduling overhead
	cfg.NumThreads = 1
	cfg.Provider = "cpu"
	return cfg
}

func (d *SileroDetector) AcceptWaveform(window []float32) {
	d.vad.AcceptWaveform(window)
}

func (d *SileroDetector) Flush() {
	d.vad.Flush()
}

func (d *SileroDetector) Regions() []Region {
	var out []Region
	for !d.vad.IsEmpty() {
		seg := d.vad.Front()
		out = append(out, Region{Start: seg.Start, End: seg.Start + len(seg.Samples)})
		d.vad.Pop()
	}
	return out
}

// Close frees the detector
func (d *SileroDetector) Close() error {
	if d.vad != nil {
		sherpa.DeleteVoiceActivityDetector(d.vad)
		d.vad = nil
	}
	return nil
}
