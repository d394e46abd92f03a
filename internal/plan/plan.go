// Package plan decides between direct setlist cutting and AI-driven
// highlight selection, and turns either into the canonical ClipSpec list.
package plan

import (
	"fmt"
	"log/slog"
	"sort"

	"showclip/internal/align"
	"showclip/internal/config"
	"showclip/internal/services"
	"showclip/internal/setlist"
	"showclip/internal/types"
)

// Options carries the planner's timing policy.
type Options struct {
	MinClipSeconds       float64
	SnapToleranceSeconds float64
	EndPolicy            string
	FixedGapSeconds      float64
}

// Decision is the planner's mode choice, made once per run. Direct
// decisions carry the parsed setlist entries; AI decisions carry nothing
// because candidates come from the analyzer later.
type Decision struct {
	Mode    types.ClipSource
	Entries []types.SetlistEntry
}

func DecideDirect(entries []types.SetlistEntry) Decision {
	return Decision{Mode: types.SourceDirect, Entries: entries}
}

func DecideAI() Decision {
	return Decision{Mode: types.SourceAI}
}

type Planner struct {
	log  *slog.Logger
	opts Options
}

func New(logger *slog.Logger, opts Options) *Planner {
	return &Planner{log: logger, opts: opts}
}

// Decide evaluates mode selection. Direct Mode requires show-style
// configuration plus a parsable setlist, preferring the manual file over
// the video description. A manual file that yields nothing usable is a
// user error and aborts; a description that doesn't parse silently falls
// through to AI Mode.
func (p *Planner) Decide(showStyle bool, description, manualText string, haveManual bool) (Decision, error) {
	if !showStyle {
		return DecideAI(), nil
	}

	if haveManual {
		entries, err := setlist.Parse(manualText)
		if err != nil {
			return Decision{}, services.Wrap(services.ErrInput, "plan", "manual setlist", err.Error(), nil)
		}
		return DecideDirect(entries), nil
	}

	entries, err := setlist.Parse(description)
	if err != nil {
		p.log.Info("no usable setlist in description, using AI analysis", logAttr(err))
		return DecideAI(), nil
	}
	return DecideDirect(entries), nil
}

// BuildDirect converts setlist entries into clip specs. Each start is
// snapped to the transcript (a no-op when no transcript was requested) and
// each end follows the configured policy: the next entry's start (default,
// last entry runs to video end) or a fixed gap past the entry's own start.
// Entries whose span collapses below the minimum clip length are dropped
// with a warning; the caller falls back to AI Mode when none survive.
func (p *Planner) BuildDirect(entries []types.SetlistEntry, tr types.Transcript, duration float64) []types.ClipSpec {
	starts := make([]float64, len(entries))
	for i, entry := range entries {
		s := align.Snap(entry.Start, tr, p.opts.SnapToleranceSeconds)
		if s < 0 {
			s = 0
		}
		if s > duration {
			s = duration
		}
		starts[i] = s
	}

	clips := make([]types.ClipSpec, 0, len(entries))
	for i, entry := range entries {
		start := starts[i]
		end := duration
		if p.opts.EndPolicy == config.EndPolicyFixedGap {
			end = min(start+p.opts.FixedGapSeconds, duration)
		}
		if i+1 < len(entries) {
			end = min(end, starts[i+1])
		}
		if end-start < p.opts.MinClipSeconds {
			p.log.Warn("setlist entry collapsed after alignment, dropping",
				slog.String("label", entry.Label),
				slog.Float64("start", start),
				slog.Float64("end", end))
			continue
		}
		clips = append(clips, types.ClipSpec{
			Label:  entry.Label,
			Start:  start,
			End:    end,
			Source: types.SourceDirect,
		})
	}
	return clips
}

// BuildFromAI validates AI-proposed spans against the real timeline. Every
// candidate passes through the same clamp/snap boundary as setlist entries;
// candidates that stay degenerate are dropped with a warning and the run
// only fails when nothing survives.
func (p *Planner) BuildFromAI(spans []types.RawSpan, tr types.Transcript, duration float64) ([]types.ClipSpec, error) {
	clips := make([]types.ClipSpec, 0, len(spans))
	for i, raw := range spans {
		start, end := raw.Start, raw.End
		if start > end {
			start, end = end, start
		}
		if end <= 0 || start >= duration {
			p.log.Warn("candidate outside video bounds, dropping",
				slog.String("label", raw.Label),
				slog.Float64("start", raw.Start),
				slog.Float64("end", raw.End))
			continue
		}
		if min(end, duration)-max(start, 0) < p.opts.MinClipSeconds {
			p.log.Warn("candidate below minimum clip length, dropping",
				slog.String("label", raw.Label),
				slog.Float64("start", raw.Start),
				slog.Float64("end", raw.End))
			continue
		}

		start, end = align.Clamp(start, end, duration, p.opts.MinClipSeconds)
		start = align.Snap(start, tr, p.opts.SnapToleranceSeconds)
		end = align.Snap(end, tr, p.opts.SnapToleranceSeconds)
		if start < 0 || end > duration || end-start < p.opts.MinClipSeconds {
			p.log.Warn("candidate degenerate after alignment, dropping",
				slog.String("label", raw.Label),
				slog.Float64("start", start),
				slog.Float64("end", end))
			continue
		}

		label := raw.Label
		if label == "" {
			label = fmt.Sprintf("Highlight %d", i+1)
		}
		clips = append(clips, types.ClipSpec{
			Label:  label,
			Start:  start,
			End:    end,
			Source: types.SourceAI,
		})
	}

	sort.Slice(clips, func(i, j int) bool { return clips[i].Start < clips[j].Start })

	// Enforce non-overlap: trim each clip's start to the previous end,
	// dropping anything that no longer meets the minimum length.
	kept := clips[:0]
	var prevEnd float64
	for _, clip := range clips {
		if clip.Start < prevEnd {
			clip.Start = prevEnd
		}
		if clip.End-clip.Start < p.opts.MinClipSeconds {
			p.log.Warn("candidate overlaps an earlier clip, dropping",
				slog.String("label", clip.Label))
			continue
		}
		kept = append(kept, clip)
		prevEnd = clip.End
	}

	if len(kept) == 0 {
		return nil, services.Wrap(services.ErrNoClips, "plan", "ai selection",
			fmt.Sprintf("all %d candidates dropped", len(spans)), nil)
	}
	return kept, nil
}

func logAttr(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("reason", err.Error())
}
