package plan

import (
	"errors"
	"log/slog"
	"testing"

	"showclip/internal/config"
	"showclip/internal/services"
	"showclip/internal/types"
)

func newPlanner(opts Options) *Planner {
	return New(slog.New(slog.DiscardHandler), opts)
}

func defaultOptions() Options {
	return Options{
		MinClipSeconds:       3,
		SnapToleranceSeconds: 3,
		EndPolicy:            config.EndPolicyNextEntry,
		FixedGapSeconds:      180,
	}
}

func TestDecide(t *testing.T) {
	t.Parallel()

	p := newPlanner(defaultOptions())

	t.Run("non show style is always AI", func(t *testing.T) {
		d, err := p.Decide(false, "Intro - 0:00\nSolo - 3:45", "", false)
		if err != nil {
			t.Fatalf("decide: %v", err)
		}
		if d.Mode != types.SourceAI {
			t.Fatalf("mode = %v, want ai", d.Mode)
		}
	})

	t.Run("show style with parsable description is direct", func(t *testing.T) {
		d, err := p.Decide(true, "Intro - 0:00\nSolo - 3:45", "", false)
		if err != nil {
			t.Fatalf("decide: %v", err)
		}
		if d.Mode != types.SourceDirect || len(d.Entries) != 2 {
			t.Fatalf("unexpected decision: %+v", d)
		}
	})

	t.Run("show style without setlist falls back to AI", func(t *testing.T) {
		d, err := p.Decide(true, "no timestamps here", "", false)
		if err != nil {
			t.Fatalf("decide: %v", err)
		}
		if d.Mode != types.SourceAI {
			t.Fatalf("mode = %v, want ai", d.Mode)
		}
	})

	t.Run("manual setlist wins over description", func(t *testing.T) {
		d, err := p.Decide(true, "Ignored - 0:10", "Manual - 0:00", true)
		if err != nil {
			t.Fatalf("decide: %v", err)
		}
		if d.Mode != types.SourceDirect || d.Entries[0].Label != "Manual" {
			t.Fatalf("unexpected decision: %+v", d)
		}
	})

	t.Run("unparsable manual setlist is a user error", func(t *testing.T) {
		_, err := p.Decide(true, "Fine - 0:00", "nothing usable", true)
		if !errors.Is(err, services.ErrInput) {
			t.Fatalf("expected ErrInput, got %v", err)
		}
	})
}

func TestBuildDirect_NextEntryPolicy(t *testing.T) {
	t.Parallel()

	p := newPlanner(defaultOptions())
	entries := []types.SetlistEntry{
		{Label: "Intro", Start: 0},
		{Label: "Solo", Start: 225},
	}
	clips := p.BuildDirect(entries, types.Transcript{}, 360)

	want := []types.ClipSpec{
		{Label: "Intro", Start: 0, End: 225, Source: types.SourceDirect},
		{Label: "Solo", Start: 225, End: 360, Source: types.SourceDirect},
	}
	if len(clips) != len(want) {
		t.Fatalf("expected %d clips, got %d: %+v", len(want), len(clips), clips)
	}
	for i := range want {
		if clips[i] != want[i] {
			t.Fatalf("clip %d = %+v, want %+v", i, clips[i], want[i])
		}
	}
}

func TestBuildDirect_FixedGapPolicy(t *testing.T) {
	t.Parallel()

	opts := defaultOptions()
	opts.EndPolicy = config.EndPolicyFixedGap
	p := newPlanner(opts)

	entries := []types.SetlistEntry{
		{Label: "One", Start: 0},
		{Label: "Two", Start: 300},
	}
	clips := p.BuildDirect(entries, types.Transcript{}, 600)
	if len(clips) != 2 {
		t.Fatalf("expected 2 clips, got %+v", clips)
	}
	if clips[0].End != 180 {
		t.Fatalf("first clip end = %v, want fixed gap 180", clips[0].End)
	}
	if clips[1].End != 480 {
		t.Fatalf("second clip end = %v, want 480", clips[1].End)
	}
}

func TestBuildDirect_SnapsToTranscript(t *testing.T) {
	t.Parallel()

	p := newPlanner(defaultOptions())
	tr := types.Transcript{Segments: []types.Segment{
		{Start: 0, End: 101.5},
		{Start: 101.5, End: 360},
	}}
	entries := []types.SetlistEntry{
		{Label: "Intro", Start: 0},
		{Label: "Break", Start: 100},
	}
	clips := p.BuildDirect(entries, tr, 360)
	if len(clips) != 2 {
		t.Fatalf("expected 2 clips, got %+v", clips)
	}
	if clips[1].Start != 101.5 {
		t.Fatalf("second clip start = %v, want snapped 101.5", clips[1].Start)
	}
	if clips[0].End != 101.5 {
		t.Fatalf("first clip end = %v, want next snapped start 101.5", clips[0].End)
	}
}

func TestBuildDirect_DropsCollapsedEntries(t *testing.T) {
	t.Parallel()

	p := newPlanner(defaultOptions())
	entries := []types.SetlistEntry{
		{Label: "Tiny", Start: 100},
		{Label: "Also", Start: 101},
	}
	clips := p.BuildDirect(entries, types.Transcript{}, 103)
	// First entry spans 1s, second 2s; both below the 3s minimum.
	if len(clips) != 0 {
		t.Fatalf("expected all entries dropped, got %+v", clips)
	}
}

func TestBuildFromAI_ClampsPartiallyOutOfBounds(t *testing.T) {
	t.Parallel()

	p := newPlanner(defaultOptions())
	spans := []types.RawSpan{
		{Label: "Early", Start: -5, End: 10},
	}
	clips, err := p.BuildFromAI(spans, types.Transcript{}, 360)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(clips) != 1 {
		t.Fatalf("expected 1 clip, got %+v", clips)
	}
	if clips[0].Start != 0 || clips[0].End != 10 {
		t.Fatalf("clip = (%v, %v), want (0, 10)", clips[0].Start, clips[0].End)
	}
	if clips[0].Source != types.SourceAI {
		t.Fatalf("source = %v, want ai", clips[0].Source)
	}
}

func TestBuildFromAI_ReversedSpanSwapped(t *testing.T) {
	t.Parallel()

	p := newPlanner(defaultOptions())
	clips, err := p.BuildFromAI([]types.RawSpan{{Start: 40, End: 20}}, types.Transcript{}, 360)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if clips[0].Start != 20 || clips[0].End != 40 {
		t.Fatalf("clip = (%v, %v), want (20, 40)", clips[0].Start, clips[0].End)
	}
}

func TestBuildFromAI_AllCandidatesDropped(t *testing.T) {
	t.Parallel()

	p := newPlanner(defaultOptions())
	spans := []types.RawSpan{
		{Label: "Past end", Start: 400, End: 500},
		{Label: "Too short", Start: 10, End: 11},
	}
	_, err := p.BuildFromAI(spans, types.Transcript{}, 360)
	if !errors.Is(err, services.ErrNoClips) {
		t.Fatalf("expected ErrNoClips, got %v", err)
	}
}

func TestBuildFromAI_NonOverlapping(t *testing.T) {
	t.Parallel()

	p := newPlanner(defaultOptions())
	spans := []types.RawSpan{
		{Label: "B", Start: 20, End: 40},
		{Label: "A", Start: 10, End: 30},
	}
	clips, err := p.BuildFromAI(spans, types.Transcript{}, 360)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(clips) != 2 {
		t.Fatalf("expected 2 clips, got %+v", clips)
	}
	if clips[0].Label != "A" || clips[1].Label != "B" {
		t.Fatalf("clips not sorted by start: %+v", clips)
	}
	for i := 1; i < len(clips); i++ {
		if clips[i].Start < clips[i-1].End {
			t.Fatalf("clips overlap: %+v", clips)
		}
	}
	if clips[1].Start != 30 {
		t.Fatalf("overlapping start not trimmed: %+v", clips[1])
	}
}

func TestBuildFromAI_DefaultLabels(t *testing.T) {
	t.Parallel()

	p := newPlanner(defaultOptions())
	clips, err := p.BuildFromAI([]types.RawSpan{{Start: 10, End: 30}}, types.Transcript{}, 360)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if clips[0].Label != "Highlight 1" {
		t.Fatalf("label = %q, want default", clips[0].Label)
	}
}
