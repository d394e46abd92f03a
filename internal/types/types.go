package types

// VideoHandle identifies a source video. It is created once at metadata
// fetch and never mutated afterwards.
type VideoHandle struct {
	ID          string  `json:"id"`
	URL         string  `json:"url"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Duration    float64 `json:"duration"`
}

// Transcript is the full transcription of a video. Segments are ordered by
// start time and do not overlap; each word's span lies within its segment.
type Transcript struct {
	Segments []Segment `json:"segments"`
}

type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Word  string  `json:"word"`
}

// SetlistEntry is one parsed setlist line. Ordering is significant: entry i
// ends where entry i+1 begins.
type SetlistEntry struct {
	Label string
	Start float64
}

// ClipSource records which selection strategy produced a clip.
type ClipSource string

const (
	SourceDirect ClipSource = "direct"
	SourceAI     ClipSource = "ai"
)

// ClipSpec is the canonical, validated description of one output clip.
// Invariant: 0 <= Start < End <= video duration. Never mutated after the
// planner emits it.
type ClipSpec struct {
	Label  string
	Start  float64
	End    float64
	Source ClipSource
}

// Duration returns the clip length in seconds.
func (c ClipSpec) Duration() float64 { return c.End - c.Start }

// RawSpan is an unvalidated candidate span proposed by the AI analyzer. It
// must pass through the aligner before becoming a ClipSpec.
type RawSpan struct {
	Label string  `json:"title"`
	Start float64 `json:"start_s"`
	End   float64 `json:"end_s"`
}

// SubtitleCue is one word's display window, relative to its clip's start.
type SubtitleCue struct {
	Word  string
	Start float64
	End   float64
}

// Manifest describes a completed run and is written next to the clips.
type Manifest struct {
	RunID   string         `json:"run_id"`
	VideoID string         `json:"video_id"`
	URL     string         `json:"url"`
	Title   string         `json:"title"`
	Mode    ClipSource     `json:"mode"`
	Clips   []ManifestClip `json:"clips"`
}

type ManifestClip struct {
	ID       string  `json:"id"`
	Label    string  `json:"label"`
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
	File     string  `json:"file"`
}
