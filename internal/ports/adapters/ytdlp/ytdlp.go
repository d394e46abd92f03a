// Package ytdlp adapts the yt-dlp executable to the metadata and download
// ports.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"showclip/internal/services"
	"showclip/internal/types"
)

type Adapter struct {
	bin string
}

func New(binPath string) *Adapter {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	return &Adapter{bin: binPath}
}

var videoIDRE = regexp.MustCompile(`(?:v=|/)([0-9A-Za-z_-]{11})(?:[?&/]|$)`)

// VideoID extracts the 11-character video identifier from a URL.
func VideoID(url string) (string, error) {
	if m := videoIDRE.FindStringSubmatch(url); m != nil {
		return m[1], nil
	}
	return "", services.Wrap(services.ErrInput, "metadata", "parse url", fmt.Sprintf("no video id in %q", url), nil)
}

// Fetch resolves metadata without downloading any media.
func (a *Adapter) Fetch(ctx context.Context, url string) (types.VideoHandle, error) {
	cmd := exec.CommandContext(ctx, a.bin, "--no-warnings", "-J", "--no-download", url)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if strings.Contains(msg, "Private video") || strings.Contains(msg, "unavailable") {
			return types.VideoHandle{}, services.Wrap(services.ErrNotFound, "metadata", "fetch", msg, err)
		}
		return types.VideoHandle{}, services.Wrap(services.ErrExternalTool, "metadata", "fetch", msg, err)
	}

	var info struct {
		ID          string  `json:"id"`
		Title       string  `json:"title"`
		Description string  `json:"description"`
		Duration    float64 `json:"duration"`
		WebpageURL  string  `json:"webpage_url"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return types.VideoHandle{}, services.Wrap(services.ErrExternalTool, "metadata", "parse", "invalid yt-dlp json", err)
	}
	if info.ID == "" {
		return types.VideoHandle{}, services.Wrap(services.ErrNotFound, "metadata", "fetch", "empty metadata", nil)
	}

	handle := types.VideoHandle{
		ID:          info.ID,
		URL:         url,
		Title:       info.Title,
		Description: info.Description,
		Duration:    info.Duration,
	}
	if info.WebpageURL != "" {
		handle.URL = info.WebpageURL
	}
	return handle, nil
}

// Download fetches the best mp4 stream capped at maxHeight into dest.
func (a *Adapter) Download(ctx context.Context, handle types.VideoHandle, maxHeight int, dest string) error {
	format := fmt.Sprintf(
		"bestvideo[height<=%d][ext=mp4]+bestaudio[ext=m4a]/best[height<=%d][ext=mp4]/best[height<=%d]",
		maxHeight, maxHeight, maxHeight,
	)
	cmd := exec.CommandContext(ctx, a.bin,
		"--no-warnings",
		"-f", format,
		"--merge-output-format", "mp4",
		"-o", dest,
		handle.URL,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return services.Wrap(services.ErrExternalTool, "download", "yt-dlp",
			strings.TrimSpace(string(out)), err)
	}
	return nil
}
