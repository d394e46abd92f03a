// Package ffmpeg adapts the ffmpeg/ffprobe executables to the audio
// extraction, rendering, and duration probing ports.
package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"showclip/internal/services"
	"showclip/internal/types"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

// ExtractAudio produces a mono 16kHz WAV suitable for whisper.
func (a *Adapter) ExtractAudio(ctx context.Context, videoPath, wavPath string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", videoPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		wavPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return services.Wrap(services.ErrExternalTool, "audio", "ffmpeg extract",
			strings.TrimSpace(string(out)), err)
	}
	return nil
}

// Cut renders one clip, optionally burning in subtitles. assDoc is the ASS
// document content; it is written next to the output so the subtitles
// filter can reference a file path.
func (a *Adapter) Cut(ctx context.Context, videoPath string, clip types.ClipSpec, assDoc, outPath string) error {
	args := []string{
		"-y",
		"-ss", fmtSeconds(clip.Start),
		"-to", fmtSeconds(clip.End),
		"-i", videoPath,
	}
	if assDoc != "" {
		assPath := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + ".ass"
		if err := os.WriteFile(assPath, []byte(assDoc), 0o644); err != nil {
			return fmt.Errorf("write subtitles: %w", err)
		}
		args = append(args, "-vf", "subtitles="+escapeFilterPath(assPath))
	}
	args = append(args,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "18",
		"-c:a", "aac",
		"-b:a", "192k",
		outPath,
	)
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return services.Wrap(services.ErrExternalTool, "render", "ffmpeg cut",
			strings.TrimSpace(string(out)), err)
	}
	return nil
}

// ProbeDuration returns the container duration in seconds.
func (a *Adapter) ProbeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "metadata", "ffprobe duration",
			strings.TrimSpace(string(out)), err)
	}
	s := strings.TrimSpace(string(out))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return sec, nil
}

func fmtSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	return p
}
