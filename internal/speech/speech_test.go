package speech

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/kikiluvv/shotlist/internal/config"
	"github.com/rs/zerolog"
)

// energyDetector marks windows with a loud mean amplitude as speech and
// closes a region at the first quiet window
type energyDetector struct {
	pos     int
	start   int
	done    []Region
	windows []int
	flushed bool
	closed  bool
}

func newEnergyDetector() *energyDetector {
	return &energyDetector{start: -1}
}

func (d *energyDetector) AcceptWaveform(window []float32) {
	d.windows = append(d.windows, len(window))

	var sum float64
	for _, s := range window {
		sum += math.Abs(float64(s))
	}
	loud := sum/float64(len(window)) > 0.1

	switch {
	case loud && d.start < 0:
		d.start = d.pos
	case !loud && d.start >= 0:
		d.done = append(d.done, Region{Start: d.start, End: d.pos})
		d.start = -1
	}
	d.pos += len(window)
}

func (d *energyDetector) Flush() {
	d.flushed = true
	if d.start >= 0 {
		d.done = append(d.done, Region{Start: d.start, End: d.pos})
		d.start = -1
	}
}

func (d *energyDetector) Regions() []Region {
	out := d.done
	d.done = nil
	return out
}

func (d *energyDetector) Close() error {
	d.closed = true
	return nil
}

// fakeEngine answers by buffer length
type fakeEngine struct {
	full    int
	texts   []string
	calls   int
	lengths []int
	closed  bool
}

func (e *fakeEngine) Decode(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	e.lengths = append(e.lengths, len(samples))
	if len(samples) == e.full {
		return "  full text  ", nil
	}
	text := ""
	if e.calls < len(e.texts) {
		text = e.texts[e.calls]
	}
	e.calls++
	return text, nil
}

func (e *fakeEngine) Close() error { e.closed = true; return nil }

// signal builds 16 kHz audio with loud spans given in seconds
func signal(seconds float64, loud ...[2]float64) []float32 {
	out := make([]float32, int(seconds*16000))
	for _, span := range loud {
		for i := int(span[0] * 16000); i < int(span[1]*16000); i++ {
			out[i] = 0.5
		}
	}
	return out
}

func TestSplitByPunctuation(t *testing.T) {
	seg := Segment{Start: 2, Duration: 8, Text: "你好，世界。再见"}
	got := seg.SplitByPunctuation()
	want := []Segment{
		{Start: 2, Duration: 3, Text: "你好，"},
		{Start: 5, Duration: 3, Text: "世界。"},
		{Start: 8, Duration: 2, Text: "再见"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	var total float64
	for _, s := range got {
		total += s.Duration
	}
	if total != seg.Duration {
		t.Errorf("expected pieces to cover %v seconds, got %v", seg.Duration, total)
	}
}

func TestSplitByPunctuationUnchanged(t *testing.T) {
	cases := []Segment{
		{Start: 1, Duration: 2, Text: ""},
		{Start: 1, Duration: 2, Text: "no marks here"},
		{Start: 1, Duration: 2, Text: "，开头"},
	}
	for _, c := range cases {
		got := c.SplitByPunctuation()
		if len(got) != 1 || got[0] != c {
			t.Errorf("expected %v unchanged, got %v", c, got)
		}
	}
}

func TestSplitByPunctuationTrailingMark(t *testing.T) {
	got := Segment{Start: 0, Duration: 5, Text: "好吗?好!"}.SplitByPunctuation()
	want := []Segment{
		{Start: 0, Duration: 3, Text: "好吗?"},
		{Start: 3, Duration: 2, Text: "好!"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestSplitAllKeepsOrder(t *testing.T) {
	got := SplitAll([]Segment{
		{Start: 0, Duration: 2, Text: "a;b"},
		{Start: 2, Duration: 1, Text: "c"},
	})
	var texts []string
	for _, s := range got {
		texts = append(texts, s.Text)
	}
	if want := []string{"a;", "b", "c"}; !reflect.DeepEqual(texts, want) {
		t.Errorf("expected %v, got %v", want, texts)
	}
}

func TestWriteSRT(t *testing.T) {
	var buf bytes.Buffer
	err := WriteSRT(&buf, []Segment{
		{Start: 0, Duration: 1.5, Text: "第一句。"},
		{Start: 61.25, Duration: 2, Text: "second"},
	})
	if err != nil {
		t.Fatalf("WriteSRT failed: %v", err)
	}
	want := "1\n00:00:00,000 --> 00:00:01,500\n第一句。\n\n" +
		"2\n00:01:01,250 --> 00:01:03,250\nsecond\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}
}

func TestVADConfigKeepsReferenceSettings(t *testing.T) {
	opts := OptionsFromConfig(config.Default().Speech).VAD
	if !reflect.DeepEqual(opts, DefaultVADOptions()) {
		t.Errorf("config defaults %+v differ from %+v", opts, DefaultVADOptions())
	}

	cfg := vadConfig("silero_vad.onnx", opts)
	if cfg.SileroVad.Model != "silero_vad.onnx" {
		t.Errorf("unexpected model %q", cfg.SileroVad.Model)
	}
	if cfg.SileroVad.Threshold != 0.2 {
		t.Errorf("expected threshold 0.2, got %v", cfg.SileroVad.Threshold)
	}
	if cfg.SileroVad.MinSilenceDuration != 0.15 {
		t.Errorf("expected min silence 0.15, got %v", cfg.SileroVad.MinSilenceDuration)
	}
	if cfg.SileroVad.MinSpeechDuration != 0.05 {
		t.Errorf("expected min speech 0.05, got %v", cfg.SileroVad.MinSpeechDuration)
	}
	if cfg.SileroVad.MaxSpeechDuration != 5 {
		t.Errorf("expected max speech 5, got %v", cfg.SileroVad.MaxSpeechDuration)
	}
	if cfg.SileroVad.WindowSize != 512 || cfg.SampleRate != 16000 {
		t.Errorf("expected 512-sample windows at 16 kHz, got %d at %d", cfg.SileroVad.WindowSize, cfg.SampleRate)
	}
}

func TestNewSileroDetectorMissingModel(t *testing.T) {
	_, err := NewSileroDetector("missing_vad.onnx", DefaultVADOptions())
	if err == nil {
		t.Error("expected error for missing model")
	}
}

func TestSileroDetectorSilence(t *testing.T) {
	model := os.Getenv("SHOTLIST_VAD_MODEL")
	if model == "" {
		t.Skip("SHOTLIST_VAD_MODEL not set")
	}
	det, err := NewSileroDetector(model, DefaultVADOptions())
	if err != nil {
		t.Fatalf("NewSileroDetector failed: %v", err)
	}
	defer det.Close()

	audio := signal(2)
	for off := 0; off+512 <= len(audio); off += 512 {
		det.AcceptWaveform(audio[off : off+512])
	}
	det.Flush()
	if regions := det.Regions(); len(regions) != 0 {
		t.Errorf("expected no speech in silence, got %v", regions)
	}
}

func newTestTranscriber(det *energyDetector) *Transcriber {
	return NewTranscriber(zerolog.Nop(), TranscriberOptions{VAD: DefaultVADOptions()}, func(opts VADOptions) (VoiceDetector, error) {
		return det, nil
	})
}

func TestTranscriberFeedsWholeWindows(t *testing.T) {
	cases := []struct {
		samples int
		windows int
	}{
		{3*512 + 100, 3},
		// the last window is only fed once more samples follow it
		{4 * 512, 3},
		{512, 0},
	}
	for _, c := range cases {
		det := newEnergyDetector()
		tr := NewTranscriber(zerolog.Nop(), TranscriberOptions{VAD: DefaultVADOptions(), ReadChunkSeconds: 0.01},
			func(opts VADOptions) (VoiceDetector, error) { return det, nil })

		audio := make([]float32, c.samples)
		if _, err := tr.Transcribe(context.Background(), &fakeEngine{full: len(audio)}, audio); err != nil {
			t.Fatalf("Transcribe failed: %v", err)
		}
		if len(det.windows) != c.windows {
			t.Errorf("%d samples: expected %d windows, got %d", c.samples, c.windows, len(det.windows))
		}
		for _, n := range det.windows {
			if n != 512 {
				t.Errorf("%d samples: expected 512-sample windows, got %d", c.samples, n)
			}
		}
		if !det.flushed || !det.closed {
			t.Errorf("%d samples: expected detector flushed and closed", c.samples)
		}
	}
}

func TestTranscribeDetectorLoadError(t *testing.T) {
	tr := NewTranscriber(zerolog.Nop(), TranscriberOptions{VAD: DefaultVADOptions()}, func(opts VADOptions) (VoiceDetector, error) {
		return nil, errors.New("boom")
	})
	audio := signal(1)
	if _, err := tr.Transcribe(context.Background(), &fakeEngine{full: len(audio)}, audio); err == nil {
		t.Error("expected detector load error")
	}
}

func TestTranscribe(t *testing.T) {
	audio := signal(6, [2]float64{0.5, 1.5}, [2]float64{2.5, 3.5}, [2]float64{4.5, 5})
	engine := &fakeEngine{full: len(audio), texts: []string{"  第一句  ", "   ", "最后"}}
	det := newEnergyDetector()

	tr, err := newTestTranscriber(det).Transcribe(context.Background(), engine, audio)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}

	if tr.Text != "full text" {
		t.Errorf("expected trimmed flat transcript, got %q", tr.Text)
	}
	if len(tr.Segments) != 2 {
		t.Fatalf("expected blank region to be dropped, got %v", tr.Segments)
	}
	if tr.Segments[0].Text != "第一句" || tr.Segments[1].Text != "最后" {
		t.Errorf("unexpected segment texts: %v", tr.Segments)
	}
	if s := tr.Segments[0]; s.Start > 0.5 || s.End() < 1.5 {
		t.Errorf("first segment %v does not cover its speech", s)
	}
	if s := tr.Segments[1]; s.Start > 4.5 || s.End() > 5.5 {
		t.Errorf("last segment %v misplaced", s)
	}
	if !det.closed {
		t.Error("expected detector to be closed")
	}
}

func TestTranscribeEmptyAudio(t *testing.T) {
	engine := &fakeEngine{}
	tr, err := newTestTranscriber(newEnergyDetector()).Transcribe(context.Background(), engine, nil)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if tr.Text != "" || len(tr.Segments) != 0 {
		t.Errorf("expected empty transcript, got %+v", tr)
	}
	if len(engine.lengths) != 0 {
		t.Errorf("expected engine untouched, got %d calls", len(engine.lengths))
	}
}

func TestSharedLoaderLoadsOnce(t *testing.T) {
	loads := 0
	engine := &fakeEngine{}
	shared := Share(LoaderFunc(func(ctx context.Context) (Engine, error) {
		loads++
		return engine, nil
	}))

	for i := 0; i < 3; i++ {
		e, err := shared.Load(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if err := e.Close(); err != nil {
			t.Fatal(err)
		}
	}
	if loads != 1 {
		t.Errorf("expected 1 load, got %d", loads)
	}
	if engine.closed {
		t.Error("engine closed by a borrower")
	}
	if err := shared.Close(); err != nil {
		t.Fatal(err)
	}
	if !engine.closed {
		t.Error("expected shared close to release the engine")
	}
}

func TestNewLoaderRejectsBadConfig(t *testing.T) {
	cfg := config.Default().Speech

	cfg.Backend = "kaldi"
	if _, err := NewLoader(zerolog.Nop(), cfg, Credentials{}); err == nil {
		t.Error("expected error for unknown backend")
	}

	cfg.Backend = "openai"
	if _, err := NewLoader(zerolog.Nop(), cfg, Credentials{}); err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestSenseVoiceMissingModel(t *testing.T) {
	cfg := config.Default().Speech.SenseVoice
	cfg.Model = "/nonexistent/model.onnx"
	_, err := LoadSenseVoice(context.Background(), zerolog.Nop(), cfg, 16000)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected missing model error, got %v", err)
	}
}

func TestEncodeWAV(t *testing.T) {
	wav := EncodeWAV([]float32{0, 1, -1, 2}, 16000)
	if len(wav) != 44+8 {
		t.Fatalf("expected 52 bytes, got %d", len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" || string(wav[36:40]) != "data" {
		t.Error("malformed WAV header")
	}
	if rate := binary.LittleEndian.Uint32(wav[24:28]); rate != 16000 {
		t.Errorf("expected sample rate 16000, got %d", rate)
	}

	var got []int16
	for i := 44; i < len(wav); i += 2 {
		got = append(got, int16(binary.LittleEndian.Uint16(wav[i:])))
	}
	if want := []int16{0, 32767, -32767, 32767}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected samples %v, got %v", want, got)
	}
}
