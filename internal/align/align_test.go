package align

import (
	"testing"

	"showclip/internal/types"
)

func testTranscript() types.Transcript {
	return types.Transcript{
		Segments: []types.Segment{
			{Start: 0, End: 4.5, Text: "first"},
			{Start: 4.5, End: 10, Text: "second"},
			{Start: 12, End: 20, Text: "third"},
		},
	}
}

func TestSnap(t *testing.T) {
	t.Parallel()

	tr := testTranscript()
	cases := []struct {
		name      string
		claimed   float64
		tolerance float64
		want      float64
	}{
		{name: "snaps to nearby boundary", claimed: 4.2, tolerance: 3, want: 4.5},
		{name: "snaps to segment start", claimed: 11.5, tolerance: 3, want: 12},
		{name: "exact boundary unchanged", claimed: 10, tolerance: 3, want: 10},
		{name: "outside tolerance unchanged", claimed: 30, tolerance: 3, want: 30},
		{name: "tie resolves to earlier boundary", claimed: 11, tolerance: 3, want: 10},
		{name: "zero tolerance is no-op", claimed: 4.2, tolerance: 0, want: 4.2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Snap(tc.claimed, tr, tc.tolerance); got != tc.want {
				t.Fatalf("Snap(%v) = %v, want %v", tc.claimed, got, tc.want)
			}
		})
	}
}

func TestSnap_EmptyTranscript(t *testing.T) {
	t.Parallel()

	if got := Snap(42, types.Transcript{}, 3); got != 42 {
		t.Fatalf("Snap on empty transcript = %v, want 42", got)
	}
}

func TestClamp_Invariant(t *testing.T) {
	t.Parallel()

	const (
		duration = 100.0
		minLen   = 3.0
	)
	values := []float64{-50, -1, 0, 1, 2.5, 50, 99, 100, 101, 500}
	for _, start := range values {
		for _, end := range values {
			s, e := Clamp(start, end, duration, minLen)
			if !(0 <= s && s < e && e <= duration) {
				t.Fatalf("Clamp(%v, %v) = (%v, %v): invariant violated", start, end, s, e)
			}
		}
	}
}

func TestClamp(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name                 string
		start, end, duration float64
		wantStart, wantEnd   float64
	}{
		{name: "negative start clipped", start: -5, end: 10, duration: 360, wantStart: 0, wantEnd: 10},
		{name: "reversed swapped", start: 10, end: 5, duration: 360, wantStart: 5, wantEnd: 10},
		{name: "end past duration clipped", start: 350, end: 400, duration: 360, wantStart: 350, wantEnd: 360},
		{name: "degenerate expanded", start: 50, end: 50, duration: 360, wantStart: 50, wantEnd: 53},
		{name: "degenerate at tail expands backwards", start: 360, end: 360, duration: 360, wantStart: 357, wantEnd: 360},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, e := Clamp(tc.start, tc.end, tc.duration, 3)
			if s != tc.wantStart || e != tc.wantEnd {
				t.Fatalf("Clamp(%v, %v, %v) = (%v, %v), want (%v, %v)",
					tc.start, tc.end, tc.duration, s, e, tc.wantStart, tc.wantEnd)
			}
		})
	}
}

func TestClamp_VideoShorterThanMinLength(t *testing.T) {
	t.Parallel()

	s, e := Clamp(5, 9, 2, 3)
	if !(0 <= s && s < e && e <= 2) {
		t.Fatalf("Clamp on short video = (%v, %v): invariant violated", s, e)
	}
}
