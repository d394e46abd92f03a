package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"showclip/internal/cache"
	"showclip/internal/config"
	"showclip/internal/logging"
	"showclip/internal/pipeline"
	"showclip/internal/ports"
	"showclip/internal/ports/adapters/ffmpeg"
	"showclip/internal/ports/adapters/gemini"
	"showclip/internal/ports/adapters/whispercpp"
	"showclip/internal/ports/adapters/ytdlp"
	"showclip/internal/services"
)

func run(cmd *cobra.Command, url string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("prompt"); cmd.Flags().Changed("prompt") {
		cfg.Persona = v
	}
	if v, _ := cmd.Flags().GetString("context"); v != "" {
		cfg.Context = v
	}
	if v, _ := cmd.Flags().GetString("setlist"); v != "" {
		cfg.SetlistPath = v
	}
	if v, _ := cmd.Flags().GetBool("no-subtitles"); v {
		cfg.Subtitles = false
	}
	if v, _ := cmd.Flags().GetString("out"); v != "" {
		cfg.OutDir = v
	}
	if err := cfg.Validate(); err != nil {
		return services.Wrap(services.ErrInput, "cli", "config", err.Error(), nil)
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Writer: os.Stderr,
	})
	if err != nil {
		return err
	}

	presets, err := config.LoadPrompts(cfg.PromptsDir)
	if err != nil {
		return err
	}
	personaText, ok := presets[cfg.Persona]
	if !ok {
		return services.Wrap(services.ErrInput, "cli", "persona",
			fmt.Sprintf("preset %q not found in %s", cfg.Persona, cfg.PromptsDir), nil)
	}

	videoID, err := ytdlp.VideoID(url)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := cache.Open(cfg.CacheDir)
	if err != nil {
		return err
	}
	defer store.Close()

	ai, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return err
	}
	ff := ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath)
	yt := ytdlp.New(cfg.YtdlpPath)

	deps := pipeline.Deps{
		Meta:     yt,
		Down:     yt,
		Audio:    ff,
		ASR:      whispercpp.New(cfg.WhisperBin, cfg.WhisperModel),
		AI:       ai,
		Renderer: ff,
		Prober:   ff,
		Cache:    store,
		Logger:   logger,
	}

	res, err := pipeline.Run(ctx, deps, pipeline.Input{
		URL:         url,
		VideoID:     videoID,
		Cfg:         cfg,
		PersonaText: personaText,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d clips written to %s\n", len(res.Manifest.Clips), res.OutDir)
	return nil
}

// ensure adapters implement ports
var (
	_ ports.MetadataFetcher = (*ytdlp.Adapter)(nil)
	_ ports.Downloader      = (*ytdlp.Adapter)(nil)
	_ ports.AudioExtractor  = (*ffmpeg.Adapter)(nil)
	_ ports.Renderer        = (*ffmpeg.Adapter)(nil)
	_ ports.DurationProber  = (*ffmpeg.Adapter)(nil)
	_ ports.Transcriber     = (*whispercpp.Adapter)(nil)
	_ ports.AIAnalyzer      = (*gemini.Adapter)(nil)
)
