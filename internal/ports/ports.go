// Package ports declares the collaborator contracts the pipeline consumes.
// Adapters wrap the concrete tools (yt-dlp, ffmpeg, whisper.cpp, Gemini).
package ports

import (
	"context"

	"showclip/internal/types"
)

// MetadataFetcher resolves a video URL into an immutable handle.
type MetadataFetcher interface {
	Fetch(ctx context.Context, url string) (types.VideoHandle, error)
}

// Downloader fetches the video file, capped at maxHeight pixels.
type Downloader interface {
	Download(ctx context.Context, handle types.VideoHandle, maxHeight int, dest string) error
}

// AudioExtractor produces a mono 16k WAV from a video file.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, videoPath, wavPath string) error
}

// Transcriber produces a word-timed transcript from a WAV file. workDir
// holds the tool's intermediate output.
type Transcriber interface {
	Transcribe(ctx context.Context, wavPath, workDir string) (types.Transcript, error)
}

// AIAnalyzer proposes candidate clip spans from a transcript. A transport
// or quota failure is an error; a malformed model response yields zero
// spans and no error.
type AIAnalyzer interface {
	Analyze(ctx context.Context, tr types.Transcript, persona, userContext string) ([]types.RawSpan, error)
}

// Renderer cuts one clip from the source video, optionally burning in the
// provided ASS subtitle document (empty means no burn-in).
type Renderer interface {
	Cut(ctx context.Context, videoPath string, clip types.ClipSpec, assDoc, outPath string) error
}

// DurationProber reports a media file's duration in seconds. Used when
// metadata does not carry a usable duration.
type DurationProber interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
}
