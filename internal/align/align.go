// Package align reconciles claimed time references (setlist lines, AI
// output) with the actual transcript timeline. It is the single trust
// boundary for external timestamps: both Direct and AI selection pass every
// span through Snap and Clamp before it becomes a ClipSpec.
package align

import (
	"math"

	"showclip/internal/types"
)

// Snap corrects a claimed timestamp to the nearest segment boundary within
// tolerance seconds. Ties resolve to the earlier boundary. When no boundary
// lies within tolerance (or the transcript is empty) the claimed time is
// returned unchanged; Snap never fails.
func Snap(claimed float64, tr types.Transcript, tolerance float64) float64 {
	if tolerance <= 0 || len(tr.Segments) == 0 {
		return claimed
	}

	best := claimed
	bestDist := math.Inf(1)
	consider := func(boundary float64) {
		dist := math.Abs(boundary - claimed)
		if dist > tolerance {
			return
		}
		if dist < bestDist || (dist == bestDist && boundary < best) {
			best = boundary
			bestDist = dist
		}
	}
	for _, seg := range tr.Segments {
		consider(seg.Start)
		consider(seg.End)
	}
	return best
}

// Clamp enforces 0 <= start < end <= duration. Reversed spans are swapped,
// out-of-bounds values are clipped, and degenerate spans (end <= start
// after clipping) are expanded to minLen seconds bounded by the video
// length. duration must be > 0 and minLen > 0.
func Clamp(start, end, duration, minLen float64) (float64, float64) {
	if start > end {
		start, end = end, start
	}
	start = math.Max(0, math.Min(start, duration))
	end = math.Max(0, math.Min(end, duration))

	if end-start < minLen {
		end = start + minLen
		if end > duration {
			end = duration
			start = math.Max(0, end-minLen)
		}
	}
	// A video shorter than minLen still yields a valid span.
	if start >= end {
		start = 0
		end = duration
	}
	return start, end
}
