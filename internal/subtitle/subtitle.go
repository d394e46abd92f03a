// Package subtitle derives word-level display timing for a clip from the
// transcript's word timestamps and renders ASS documents for burn-in.
package subtitle

import (
	"fmt"
	"iter"
	"strings"

	"showclip/internal/types"
)

// Cues yields the subtitle cues for one clip: every transcript word whose
// span intersects [clip.Start, clip.End), with times shifted to be
// clip-relative and clipped to [0, clip duration). The sequence is lazy,
// finite, and restartable; iterating twice over the same inputs yields the
// same cues. An empty transcript yields nothing.
func Cues(clip types.ClipSpec, tr types.Transcript) iter.Seq[types.SubtitleCue] {
	return func(yield func(types.SubtitleCue) bool) {
		for _, seg := range tr.Segments {
			if seg.End <= clip.Start {
				continue
			}
			if seg.Start >= clip.End {
				return
			}
			for _, w := range seg.Words {
				if w.End <= clip.Start || w.Start >= clip.End {
					continue
				}
				text := strings.TrimSpace(w.Word)
				if text == "" || w.End <= w.Start {
					continue
				}
				start := max(w.Start, clip.Start) - clip.Start
				end := min(w.End, clip.End) - clip.Start
				if !yield(types.SubtitleCue{Word: text, Start: start, End: end}) {
					return
				}
			}
		}
	}
}

// Collect materializes a cue sequence.
func Collect(cues iter.Seq[types.SubtitleCue]) []types.SubtitleCue {
	var out []types.SubtitleCue
	for cue := range cues {
		out = append(out, cue)
	}
	return out
}

type line struct {
	start float64
	end   float64
	cues  []types.SubtitleCue
}

// RenderASS builds a karaoke-styled ASS document from clip-relative cues.
// With no cues it returns an empty string and the caller skips burn-in.
func RenderASS(cues []types.SubtitleCue) string {
	if len(cues) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(assHeader())
	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, ln := range packCues(cues) {
		b.WriteString("Dialogue: 0,")
		b.WriteString(assTime(ln.start))
		b.WriteString(",")
		b.WriteString(assTime(ln.end))
		b.WriteString(",Show,,0,0,0,,")
		for _, cue := range ln.cues {
			durCS := int((cue.End - cue.Start) * 100)
			if durCS < 1 {
				durCS = 1
			}
			b.WriteString(fmt.Sprintf("{\\k%d}%s ", durCS, sanitizeASS(cue.Word)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// packCues groups words into display lines under hard character and word
// budgets so lines stay readable on vertical layouts.
func packCues(cues []types.SubtitleCue) []line {
	const (
		charBudget = 42
		wordBudget = 9
	)

	var out []line
	cur := line{start: cues[0].Start}
	curLen := 0
	for i, cue := range cues {
		wl := len([]rune(cue.Word))
		nextLen := curLen
		if curLen > 0 {
			nextLen++
		}
		nextLen += wl
		if len(cur.cues) >= wordBudget || (len(cur.cues) > 0 && nextLen > charBudget) {
			cur.end = cur.cues[len(cur.cues)-1].End
			out = append(out, cur)
			cur = line{start: cue.Start}
			curLen = 0
		}
		cur.cues = append(cur.cues, cue)
		if curLen > 0 {
			curLen++
		}
		curLen += wl
		if i == len(cues)-1 {
			cur.end = cue.End
			out = append(out, cur)
		}
	}
	return out
}

func assHeader() string {
	return strings.TrimSpace(`
[Script Info]
ScriptType: v4.00+
PlayResX: 1920
PlayResY: 1080
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Show, Inter, 78, &H00FFFFFF, &H00FFD200, &H00000000, &H64000000, 1,0,0,0,100,100,0,0,1,6,2,2, 80,80,85,1
`)
}

func assTime(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	total := int(sec)
	cs := int((sec - float64(total)) * 100)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return strings.TrimSpace(s)
}
