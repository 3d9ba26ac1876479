package scene

import "github.com/kikiluvv/shotlist/pkg/util"

// Finalize closes a raw boundary list. A last boundary within dropFrames of
// the end is removed so no near-empty trailing scene survives, and total is
// appended as the closing boundary. Boundary 0 is never removed.
func Finalize(boundaries []int, total, dropFrames int) []int {
	out := make([]int, len(boundaries), len(boundaries)+1)
	copy(out, boundaries)

	if n := len(out); n > 1 && total-out[n-1] <= dropFrames {
		out = out[:n-1]
	}
	return append(out, total)
}

// Merge drops interior boundaries closer than minGap frames to the previously
// kept one. The first and last boundaries always survive.
func Merge(boundaries []int, minGap int) []int {
	if len(boundaries) <= 2 {
		out := make([]int, len(boundaries))
		copy(out, boundaries)
		return out
	}

	merged := []int{boundaries[0]}
	for _, b := range boundaries[1 : len(boundaries)-1] {
		if b-merged[len(merged)-1] >= minGap {
			merged = append(merged, b)
		}
	}
	return append(merged, boundaries[len(boundaries)-1])
}

// Durations converts closed boundaries into per-scene seconds rounded to 2 places
func Durations(boundaries []int, fps float64) []float64 {
	if len(boundaries) < 2 || fps <= 0 {
		return nil
	}
	out := make([]float64, len(boundaries)-1)
	for i := range out {
		out[i] = util.RoundTo(float64(boundaries[i+1]-boundaries[i])/fps, 2)
	}
	return out
}
