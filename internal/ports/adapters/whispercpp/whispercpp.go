// Package whispercpp adapts the whisper.cpp CLI to the transcriber port.
package whispercpp

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"showclip/internal/services"
	"showclip/internal/types"
)

type Adapter struct {
	bin   string
	model string
}

func New(binPath, modelPath string) *Adapter {
	return &Adapter{bin: binPath, model: modelPath}
}

// Transcribe runs whisper.cpp with JSON output and word timestamps and
// normalizes the result into an ordered transcript.
func (a *Adapter) Transcribe(ctx context.Context, wavPath, workDir string) (types.Transcript, error) {
	outPrefix := filepath.Join(workDir, "whisper")
	args := []string{
		"-m", a.model,
		"-f", wavPath,
		"-oj",
		"-of", outPrefix,
		"-owts",
	}
	cmd := exec.CommandContext(ctx, a.bin, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return types.Transcript{}, services.Wrap(services.ErrExternalTool, "transcript", "whisper.cpp",
			strings.TrimSpace(string(out)), err)
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return types.Transcript{}, services.Wrap(services.ErrExternalTool, "transcript", "read output", "", err)
	}

	var tr types.Transcript
	if err := json.Unmarshal(jb, &tr); err != nil {
		return types.Transcript{}, services.Wrap(services.ErrExternalTool, "transcript", "parse output", "", err)
	}
	normalize(&tr)
	return tr, nil
}

// normalize trims word text and restores the ordering invariants the rest
// of the pipeline depends on.
func normalize(tr *types.Transcript) {
	for i := range tr.Segments {
		tr.Segments[i].Text = strings.TrimSpace(tr.Segments[i].Text)
		for j := range tr.Segments[i].Words {
			tr.Segments[i].Words[j].Word = strings.TrimSpace(tr.Segments[i].Words[j].Word)
		}
	}
	sort.SliceStable(tr.Segments, func(i, j int) bool {
		return tr.Segments[i].Start < tr.Segments[j].Start
	})
}
