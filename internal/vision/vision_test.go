package vision

import (
	"image/color"
	"math"
	"testing"
)

var (
	black = color.RGBA{0, 0, 0, 255}
	white = color.RGBA{255, 255, 255, 255}
)

func stepFrame(w, h, split int) *Frame {
	f := NewFrame(w, h)
	for y := 0; y < h; y++ {
		for x := split; x < w; x++ {
			f.Set(x, y, white)
		}
	}
	return f
}

func TestGrayWeights(t *testing.T) {
	f := NewFrame(3, 1)
	f.Set(0, 0, color.RGBA{255, 0, 0, 255})
	f.Set(1, 0, color.RGBA{0, 255, 0, 255})
	f.Set(2, 0, color.RGBA{0, 0, 255, 255})

	gray := f.Gray(nil)
	want := []uint8{76, 150, 29}
	for i := range want {
		if gray[i] != want[i] {
			t.Errorf("pixel %d: expected %d, got %d", i, want[i], gray[i])
		}
	}
}

func TestCannyVerticalStep(t *testing.T) {
	const w, h = 20, 12
	f := stepFrame(w, h, 10)
	edges := Canny(f.Gray(nil), w, h, CannyLow, CannyHigh, nil)

	count := 0
	for i, v := range edges {
		if v == 255 {
			count++
			if x := i % w; x != 9 {
				t.Errorf("unexpected edge pixel at x=%d", x)
			}
		} else if v != 0 {
			t.Fatalf("edge map must be binary, got %d", v)
		}
	}
	if count != h {
		t.Errorf("expected a one-pixel edge column of %d pixels, got %d", h, count)
	}
}

func TestCannyFlatFrameHasNoEdges(t *testing.T) {
	f := NewFrame(16, 16)
	f.Fill(color.RGBA{120, 60, 30, 255})
	edges := Canny(f.Gray(nil), 16, 16, CannyLow, CannyHigh, nil)
	for i, v := range edges {
		if v != 0 {
			t.Fatalf("expected no edges, found one at %d", i)
		}
	}
}

func TestExtractNormalizesHistograms(t *testing.T) {
	feat := Extract(stepFrame(20, 10, 10))

	// half black, half white: two equal peaks
	if feat.Intensity[0] != 1 || feat.Intensity[255] != 1 {
		t.Errorf("expected peaks at 0 and 255, got %v / %v", feat.Intensity[0], feat.Intensity[255])
	}
	if feat.Intensity[128] != 0 {
		t.Errorf("expected empty middle bin, got %v", feat.Intensity[128])
	}

	// 10 edge pixels out of 200: bin 0 is the max
	if feat.Edges[0] != 1 {
		t.Errorf("expected edge bin 0 normalized to 1, got %v", feat.Edges[0])
	}
	want := 10.0 / 190.0
	if math.Abs(feat.Edges[255]-want) > 1e-9 {
		t.Errorf("expected edge bin 255 = %v, got %v", want, feat.Edges[255])
	}
	for i, v := range feat.Intensity {
		if v < 0 || v > 1 {
			t.Fatalf("bin %d out of range: %v", i, v)
		}
	}
}

func TestNormalizeFlatHistogramIsZero(t *testing.T) {
	var h Histogram
	for i := range h {
		h[i] = 3
	}
	h.normalize()
	for i, v := range h {
		if v != 0 {
			t.Fatalf("bin %d: expected 0, got %v", i, v)
		}
	}
}

func TestBhattacharyya(t *testing.T) {
	var a, b Histogram
	a[0] = 1
	b[255] = 1
	if d := Bhattacharyya(&a, &a); d != 0 {
		t.Errorf("expected 0 for identical histograms, got %v", d)
	}
	if d := Bhattacharyya(&a, &b); math.Abs(d-1) > 1e-12 {
		t.Errorf("expected 1 for disjoint histograms, got %v", d)
	}
}

func TestScoreBlackToWhite(t *testing.T) {
	blk := NewFrame(8, 8)
	blk.Fill(black)
	wht := NewFrame(8, 8)
	wht.Fill(white)

	ex := NewExtractor()
	fb := ex.Extract(blk)
	fw := ex.Extract(wht)

	// intensity fully disjoint, edges identical (none)
	got := Score(fb, fw, DefaultWeights())
	if math.Abs(got-0.7) > 1e-9 {
		t.Errorf("expected 0.7, got %v", got)
	}
	if again := Score(fb, fw, DefaultWeights()); again != got {
		t.Errorf("score is not deterministic: %v vs %v", got, again)
	}
}
