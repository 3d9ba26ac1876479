package vision

import "math"

// Bins is the histogram resolution for both channels
const Bins = 256

// Canny hysteresis thresholds
const (
	CannyLow  = 100
	CannyHigh = 200
)

// Histogram is a min-max normalized 256-bin distribution
type Histogram [Bins]float64

// Feature is the per-frame similarity signature
type Feature struct {
	Intensity Histogram
	Edges     Histogram
}

// Weights blends the two histogram distances into one score
type Weights struct {
	Intensity float64
	Edges     float64
}

// DefaultWeights favours intensity over edge structure
func DefaultWeights() Weights {
	return Weights{Intensity: 0.7, Edges: 0.3}
}

// Extractor computes frame features. Scratch buffers are reused between
// calls, so an Extractor must not be shared across goroutines.
type Extractor struct {
	gray  []uint8
	edges []uint8
}

// NewExtractor creates an extractor with empty scratch space
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract computes the intensity and edge histograms of f
func (e *Extractor) Extract(f *Frame) Feature {
	e.gray = f.Gray(e.gray)
	e.edges = Canny(e.gray, f.Width, f.Height, CannyLow, CannyHigh, e.edges)

	var feat Feature
	for _, v := range e.gray {
		feat.Intensity[v]++
	}
	for _, v := range e.edges {
		feat.Edges[v]++
	}
	feat.Intensity.normalize()
	feat.Edges.normalize()
	return feat
}

// Extract is a convenience wrapper around a throwaway Extractor
func Extract(f *Frame) Feature {
	return NewExtractor().Extract(f)
}

// normalize rescales bins into [0,1]; a flat histogram becomes all zeros
func (h *Histogram) normalize() {
	lo, hi := h[0], h[0]
	for _, v := range h[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi == lo {
		for i := range h {
			h[i] = 0
		}
		return
	}
	scale := 1 / (hi - lo)
	for i := range h {
		h[i] = (h[i] - lo) * scale
	}
}

// Bhattacharyya returns the distance between two histograms in [0,1]
func Bhattacharyya(a, b *Histogram) float64 {
	var sa, sb, acc float64
	for i := 0; i < Bins; i++ {
		sa += a[i]
		sb += b[i]
		acc += math.Sqrt(a[i] * b[i])
	}
	norm := sa * sb
	if math.Abs(norm) > 1.1920929e-07 {
		norm = 1 / math.Sqrt(norm)
	} else {
		norm = 1
	}
	return math.Sqrt(math.Max(1-acc*norm, 0))
}

// Score is the weighted dissimilarity between two frames
func Score(prev, cur Feature, w Weights) float64 {
	return w.Intensity*Bhattacharyya(&prev.Intensity, &cur.Intensity) +
		w.Edges*Bhattacharyya(&prev.Edges, &cur.Edges)
}
