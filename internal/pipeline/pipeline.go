// Package pipeline drives the stage sequence: metadata, download, audio,
// transcript, AI analysis, rendering. Each stage's artifact is durably
// cached before the next stage starts, so an interrupted run resumes from
// the last complete stage.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"

	"showclip/internal/cache"
	"showclip/internal/config"
	"showclip/internal/logging"
	"showclip/internal/plan"
	"showclip/internal/ports"
	"showclip/internal/services"
	"showclip/internal/subtitle"
	"showclip/internal/types"
)

// endBufferSeconds is appended to each clip at render time when subtitles
// are burned, so the last cue is not cut mid-word. The canonical ClipSpec
// keeps the unbuffered end.
const endBufferSeconds = 1.0

// Deps are the external collaborators the controller dispatches to.
type Deps struct {
	Meta     ports.MetadataFetcher
	Down     ports.Downloader
	Audio    ports.AudioExtractor
	ASR      ports.Transcriber
	AI       ports.AIAnalyzer
	Renderer ports.Renderer
	Prober   ports.DurationProber

	Cache  *cache.Store
	Logger *slog.Logger
}

// Input is one pipeline invocation.
type Input struct {
	URL         string
	VideoID     string
	Cfg         config.Config
	PersonaText string
}

// Result reports the completed run.
type Result struct {
	Manifest types.Manifest
	OutDir   string
}

// Run executes the pipeline for one video. On success all cached artifacts
// for the video are purged; on failure or cancellation they are retained so
// a re-run resumes from the last complete stage.
func Run(ctx context.Context, deps Deps, in Input) (Result, error) {
	log := logging.WithComponent(deps.Logger, "pipeline")
	runID := uuid.NewString()
	log = log.With(slog.String("run_id", runID), slog.String("video_id", in.VideoID))

	unlock, err := deps.Cache.LockVideo(in.VideoID)
	if err != nil {
		return Result{}, services.Wrap(services.ErrInput, "pipeline", "lock", "", err)
	}
	defer unlock()

	videoDir, err := deps.Cache.VideoDir(in.VideoID)
	if err != nil {
		return Result{}, err
	}

	r := &runner{deps: deps, in: in, log: log, videoDir: videoDir}

	handle, err := r.metadata(ctx)
	if err != nil {
		return Result{}, err
	}

	planner := plan.New(log, plan.Options{
		MinClipSeconds:       in.Cfg.MinClipSeconds,
		SnapToleranceSeconds: in.Cfg.SnapToleranceSeconds,
		EndPolicy:            in.Cfg.EndPolicy,
		FixedGapSeconds:      in.Cfg.FixedGapSeconds,
	})

	manualText, haveManual, err := readManualSetlist(in.Cfg.SetlistPath)
	if err != nil {
		return Result{}, err
	}
	decision, err := planner.Decide(in.Cfg.ShowStyle(), handle.Description, manualText, haveManual)
	if err != nil {
		return Result{}, err
	}
	log.Info("selection mode decided", slog.String("mode", string(decision.Mode)))

	videoPath, err := r.download(ctx, handle)
	if err != nil {
		return Result{}, err
	}

	duration := handle.Duration
	if duration <= 0 {
		duration, err = deps.Prober.ProbeDuration(ctx, videoPath)
		if err != nil {
			return Result{}, err
		}
	}

	// Direct Mode only needs a transcript when subtitles are requested;
	// AI Mode always does.
	var tr types.Transcript
	needTranscript := decision.Mode == types.SourceAI || in.Cfg.Subtitles
	if needTranscript {
		tr, err = r.transcript(ctx, videoPath)
		if err != nil {
			return Result{}, err
		}
	}

	var clips []types.ClipSpec
	mode := decision.Mode
	if mode == types.SourceDirect {
		clips = planner.BuildDirect(decision.Entries, tr, duration)
		if len(clips) == 0 {
			log.Warn("every setlist entry collapsed under alignment, falling back to AI analysis")
			mode = types.SourceAI
		}
	}
	if mode == types.SourceAI {
		if len(tr.Segments) == 0 {
			tr, err = r.transcript(ctx, videoPath)
			if err != nil {
				return Result{}, err
			}
		}
		spans, err := r.aiResult(ctx, tr)
		if err != nil {
			return Result{}, err
		}
		clips, err = planner.BuildFromAI(spans, tr, duration)
		if err != nil {
			return Result{}, err
		}
	}

	outDir := buildRunOutDir(in.Cfg.OutDir, in.VideoID, runID, time.Now().UTC())
	clipsDir := filepath.Join(outDir, "clips")
	if err := os.MkdirAll(clipsDir, 0o755); err != nil {
		return Result{}, err
	}

	manifest, err := r.render(ctx, clips, tr, videoPath, clipsDir, duration)
	if err != nil {
		return Result{}, err
	}
	manifest.RunID = runID
	manifest.VideoID = handle.ID
	manifest.URL = handle.URL
	manifest.Title = handle.Title
	manifest.Mode = mode

	mb, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return Result{}, fmt.Errorf("marshal manifest: %w", err)
	}
	manifestPath := filepath.Join(outDir, "manifest.json")
	if err := os.WriteFile(manifestPath, mb, 0o644); err != nil {
		return Result{}, err
	}

	if err := deps.Cache.Purge(ctx, in.VideoID); err != nil {
		log.Warn("cache cleanup failed", logging.Error(err))
	}

	log.Info("run completed",
		slog.Int("clips", len(manifest.Clips)),
		slog.String("manifest", manifestPath))
	return Result{Manifest: manifest, OutDir: outDir}, nil
}

type runner struct {
	deps     Deps
	in       Input
	log      *slog.Logger
	videoDir string

	fpMeta string
	fpDown string
	fpTr   string
}

// stageFile runs one stage unless a complete artifact with a matching
// fingerprint is already cached. produce must fully write dest before
// returning; the cache row is only recorded afterwards, so cancellation
// mid-stage never leaves a trusted partial artifact.
func (r *runner) stageFile(ctx context.Context, stage cache.Stage, fingerprint, filename string, produce func(context.Context, string) error) (string, error) {
	art, err := r.deps.Cache.Load(ctx, r.in.VideoID, stage, fingerprint)
	if err != nil {
		return "", err
	}
	if art != nil {
		r.log.Info("stage cached, skipping",
			slog.String("stage", string(stage)),
			slog.String("fingerprint", fingerprint))
		return art.Payload, nil
	}

	dest := filepath.Join(r.videoDir, filename)
	started := time.Now()
	if err := produce(ctx, dest); err != nil {
		return "", err
	}
	if err := r.deps.Cache.Store(ctx, r.in.VideoID, stage, fingerprint, dest); err != nil {
		return "", err
	}
	r.log.Info("stage completed",
		slog.String("stage", string(stage)),
		slog.String("fingerprint", fingerprint),
		slog.Duration("elapsed", time.Since(started).Round(time.Millisecond)))
	return dest, nil
}

func (r *runner) metadata(ctx context.Context) (types.VideoHandle, error) {
	r.fpMeta = cache.Fingerprint(r.in.VideoID)
	path, err := r.stageFile(ctx, cache.StageMetadata, r.fpMeta, "metadata.json", func(ctx context.Context, dest string) error {
		handle, err := r.deps.Meta.Fetch(ctx, r.in.URL)
		if err != nil {
			return err
		}
		b, err := json.Marshal(handle)
		if err != nil {
			return err
		}
		return os.WriteFile(dest, b, 0o644)
	})
	if err != nil {
		return types.VideoHandle{}, err
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return types.VideoHandle{}, err
	}
	var handle types.VideoHandle
	if err := json.Unmarshal(b, &handle); err != nil {
		return types.VideoHandle{}, fmt.Errorf("parse cached metadata: %w", err)
	}
	return handle, nil
}

func (r *runner) download(ctx context.Context, handle types.VideoHandle) (string, error) {
	r.fpDown = cache.Fingerprint(r.fpMeta, fmt.Sprintf("h%d", r.in.Cfg.MaxHeight))
	return r.stageFile(ctx, cache.StageDownload, r.fpDown, "video.mp4", func(ctx context.Context, dest string) error {
		return r.deps.Down.Download(ctx, handle, r.in.Cfg.MaxHeight, dest)
	})
}

func (r *runner) transcript(ctx context.Context, videoPath string) (types.Transcript, error) {
	fpAudio := cache.Fingerprint(r.fpDown)
	wavPath, err := r.stageFile(ctx, cache.StageAudio, fpAudio, "audio.wav", func(ctx context.Context, dest string) error {
		return r.deps.Audio.ExtractAudio(ctx, videoPath, dest)
	})
	if err != nil {
		return types.Transcript{}, err
	}

	r.fpTr = cache.Fingerprint(fpAudio, r.in.Cfg.WhisperModel)
	path, err := r.stageFile(ctx, cache.StageTranscript, r.fpTr, "transcript.json", func(ctx context.Context, dest string) error {
		tr, err := r.deps.ASR.Transcribe(ctx, wavPath, r.videoDir)
		if err != nil {
			return err
		}
		b, err := json.Marshal(tr)
		if err != nil {
			return err
		}
		return os.WriteFile(dest, b, 0o644)
	})
	if err != nil {
		return types.Transcript{}, err
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return types.Transcript{}, err
	}
	var tr types.Transcript
	if err := json.Unmarshal(b, &tr); err != nil {
		return types.Transcript{}, fmt.Errorf("parse cached transcript: %w", err)
	}
	return tr, nil
}

func (r *runner) aiResult(ctx context.Context, tr types.Transcript) ([]types.RawSpan, error) {
	// The fingerprint covers the transcript identity, persona, and user
	// context, so changing any of them forces a fresh analysis.
	fpAI := cache.Fingerprint(r.fpTr,
		r.in.Cfg.Persona,
		cache.Fingerprint(r.in.PersonaText),
		cache.Fingerprint(r.in.Cfg.Context))
	path, err := r.stageFile(ctx, cache.StageAIResult, fpAI, "airesult.json", func(ctx context.Context, dest string) error {
		spans, err := r.deps.AI.Analyze(ctx, tr, r.in.PersonaText, r.in.Cfg.Context)
		if err != nil {
			return err
		}
		b, err := json.Marshal(spans)
		if err != nil {
			return err
		}
		return os.WriteFile(dest, b, 0o644)
	})
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var spans []types.RawSpan
	if err := json.Unmarshal(b, &spans); err != nil {
		return nil, fmt.Errorf("parse cached ai result: %w", err)
	}
	return spans, nil
}

// render cuts all clips through a bounded worker pool. Clips are
// independent, so ordering between render calls does not matter; the
// manifest preserves timeline order.
func (r *runner) render(ctx context.Context, clips []types.ClipSpec, tr types.Transcript, videoPath, clipsDir string, duration float64) (types.Manifest, error) {
	manifest := types.Manifest{Clips: make([]types.ManifestClip, len(clips))}

	workers := r.in.Cfg.RenderWorkers
	if workers > len(clips) {
		workers = len(clips)
	}
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for i, clip := range clips {
		wg.Add(1)
		go func(i int, clip types.ClipSpec) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			mu.Lock()
			failed := firstErr != nil
			mu.Unlock()
			if failed || ctx.Err() != nil {
				return
			}

			id := fmt.Sprintf("%03d", i+1)
			outPath := filepath.Join(clipsDir, id+"-"+normalizePathSegment(clip.Label)+".mp4")

			renderClip := clip
			var assDoc string
			if r.in.Cfg.Subtitles && len(tr.Segments) > 0 {
				renderClip.End = min(duration, clip.End+endBufferSeconds)
				cues := subtitle.Collect(subtitle.Cues(renderClip, tr))
				assDoc = subtitle.RenderASS(cues)
			}

			if err := r.deps.Renderer.Cut(ctx, videoPath, renderClip, assDoc, outPath); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}

			mu.Lock()
			manifest.Clips[i] = types.ManifestClip{
				ID:       id,
				Label:    clip.Label,
				StartSec: clip.Start,
				EndSec:   clip.End,
				File:     filepath.ToSlash(filepath.Join("clips", filepath.Base(outPath))),
			}
			mu.Unlock()
			r.log.Info("clip rendered",
				slog.String("clip", id),
				slog.String("label", clip.Label),
				slog.Float64("start", clip.Start),
				slog.Float64("end", clip.End))
		}(i, clip)
	}
	wg.Wait()

	if firstErr != nil {
		return types.Manifest{}, firstErr
	}
	if err := ctx.Err(); err != nil {
		return types.Manifest{}, err
	}
	return manifest, nil
}

func readManualSetlist(path string) (string, bool, error) {
	if path == "" {
		return "", false, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", false, services.Wrap(services.ErrInput, "plan", "read setlist file", path, err)
	}
	return string(b), true, nil
}

func buildRunOutDir(outRoot, videoID, runID string, now time.Time) string {
	ts := now.UTC().Format("20060102-150405Z")
	suffix := runID
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", videoID, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "clip"
	}
	return out
}
