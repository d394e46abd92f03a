package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// End policies for setlist-derived clips. NextEntry ends each clip at the
// following entry's start (the last clip runs to video end); FixedGap caps
// every clip at FixedGapSeconds past its own start.
const (
	EndPolicyNextEntry = "next-entry"
	EndPolicyFixedGap  = "fixed-gap"
)

// Config is the fully resolved run configuration. Precedence: defaults,
// then the optional yaml file, then environment variables, then CLI flags.
type Config struct {
	OutDir     string `yaml:"out_dir"`
	CacheDir   string `yaml:"cache_dir"`
	PromptsDir string `yaml:"prompts_dir"`

	Persona     string `yaml:"persona"`
	Context     string `yaml:"context"`
	SetlistPath string `yaml:"setlist_path"`
	Subtitles   bool   `yaml:"subtitles"`

	MaxHeight            int     `yaml:"max_height"`
	MinClipSeconds       float64 `yaml:"min_clip_seconds"`
	SnapToleranceSeconds float64 `yaml:"snap_tolerance_seconds"`
	EndPolicy            string  `yaml:"end_policy"`
	FixedGapSeconds      float64 `yaml:"fixed_gap_seconds"`
	RenderWorkers        int     `yaml:"render_workers"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	GeminiModel  string `yaml:"gemini_model"`
	GeminiAPIKey string `yaml:"-"`

	YtdlpPath    string `yaml:"ytdlp_path"`
	FFmpegPath   string `yaml:"ffmpeg_path"`
	FFprobePath  string `yaml:"ffprobe_path"`
	WhisperBin   string `yaml:"whisper_bin"`
	WhisperModel string `yaml:"whisper_model"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		OutDir:               "out",
		CacheDir:             ".cache",
		PromptsDir:           "prompts",
		Persona:              "default",
		Subtitles:            true,
		MaxHeight:            1080,
		MinClipSeconds:       3,
		SnapToleranceSeconds: 3,
		EndPolicy:            EndPolicyNextEntry,
		FixedGapSeconds:      180,
		RenderWorkers:        2,
		LogLevel:             "info",
		LogFormat:            "console",
		GeminiModel:          "gemini-1.5-pro-latest",
		YtdlpPath:            "yt-dlp",
		FFmpegPath:           "ffmpeg",
		FFprobePath:          "ffprobe",
		WhisperBin:           "whisper-cli",
		WhisperModel:         "",
	}
}

// Load resolves configuration from defaults, an optional yaml file, and the
// environment. An empty path means "use showclip.yaml when present".
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = "showclip.yaml"
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// optional file
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.GeminiAPIKey, "GOOGLE_API_KEY")
	setString(&c.GeminiModel, "SHOWCLIP_GEMINI_MODEL")
	setString(&c.OutDir, "SHOWCLIP_OUT_DIR")
	setString(&c.CacheDir, "SHOWCLIP_CACHE_DIR")
	setString(&c.PromptsDir, "SHOWCLIP_PROMPTS_DIR")
	setString(&c.LogLevel, "SHOWCLIP_LOG_LEVEL")
	setString(&c.LogFormat, "SHOWCLIP_LOG_FORMAT")
	setString(&c.YtdlpPath, "SHOWCLIP_YTDLP")
	setString(&c.FFmpegPath, "SHOWCLIP_FFMPEG")
	setString(&c.FFprobePath, "SHOWCLIP_FFPROBE")
	setString(&c.WhisperBin, "SHOWCLIP_WHISPER_BIN")
	setString(&c.WhisperModel, "SHOWCLIP_WHISPER_MODEL")
	if v := os.Getenv("SHOWCLIP_MAX_HEIGHT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxHeight = n
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate rejects impossible values before the pipeline starts.
func (c Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return errors.New("GOOGLE_API_KEY is required (set it in .env)")
	}
	if c.MaxHeight <= 0 {
		return fmt.Errorf("max height must be > 0, got %d", c.MaxHeight)
	}
	if c.MinClipSeconds <= 0 {
		return fmt.Errorf("min clip seconds must be > 0, got %v", c.MinClipSeconds)
	}
	if c.SnapToleranceSeconds < 0 {
		return fmt.Errorf("snap tolerance must be >= 0, got %v", c.SnapToleranceSeconds)
	}
	if c.EndPolicy != EndPolicyNextEntry && c.EndPolicy != EndPolicyFixedGap {
		return fmt.Errorf("end policy must be %q or %q, got %q", EndPolicyNextEntry, EndPolicyFixedGap, c.EndPolicy)
	}
	if c.EndPolicy == EndPolicyFixedGap && c.FixedGapSeconds <= 0 {
		return fmt.Errorf("fixed gap seconds must be > 0, got %v", c.FixedGapSeconds)
	}
	if c.RenderWorkers <= 0 {
		return fmt.Errorf("render workers must be > 0, got %d", c.RenderWorkers)
	}
	if strings.TrimSpace(c.Persona) == "" {
		return errors.New("persona must not be empty")
	}
	return nil
}

// ShowStyle reports whether show-style selection is active: the "show"
// persona or an explicit manual setlist file.
func (c Config) ShowStyle() bool {
	return c.Persona == "show" || c.SetlistPath != ""
}

// LoadPrompts reads persona presets from the prompts directory, one .txt
// file per preset, keyed by file name without extension.
func LoadPrompts(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read prompts dir %s: %w", dir, err)
	}

	presets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read prompt %s: %w", entry.Name(), err)
		}
		name := strings.TrimSuffix(entry.Name(), ".txt")
		presets[name] = string(data)
	}
	return presets, nil
}
