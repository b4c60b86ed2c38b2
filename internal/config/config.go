// Package config loads tool configuration from YAML with environment
// overrides for the external binaries.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Brand configures the trailing end card.
type Brand struct {
	Name       string `yaml:"name"`
	CTAText    string `yaml:"cta_text"`
	URL        string `yaml:"url"`
	Background string `yaml:"background"`
}

// Config is the full tool configuration. Zero values in the YAML file
// fall back to defaults.
type Config struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	FPS    int `yaml:"fps"`

	MinSceneDuration float64 `yaml:"min_scene_duration"`
	MaxTotalDuration float64 `yaml:"max_total_duration"`
	TrailingDuration float64 `yaml:"trailing_duration"`
	RequireTrailing  bool    `yaml:"require_trailing"`

	BackgroundVolume float64 `yaml:"background_volume"`
	BackgroundFade   float64 `yaml:"background_fade"`
	FontFile         string  `yaml:"font_file"`

	FFmpegPath  string `yaml:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path"`

	OutputDir      string  `yaml:"output_dir"`
	RenderTimeout  float64 `yaml:"render_timeout"` // seconds
	RenderRetries  int     `yaml:"render_retries"`
	RenderWorkers  int     `yaml:"render_workers"` // 0 sizes from the host
	WriteCaptions  bool    `yaml:"write_captions"`
	WritePlanFiles bool    `yaml:"write_plan_files"`

	Brand Brand `yaml:"brand"`

	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`
}

// Default returns the built-in configuration: a 9:16 short-form canvas
// at 30fps with the standard pacing limits.
func Default() Config {
	return Config{
		Width:            1080,
		Height:           1920,
		FPS:              30,
		MinSceneDuration: 1.0,
		MaxTotalDuration: 60.0,
		TrailingDuration: 2.0,
		RequireTrailing:  true,
		BackgroundVolume: 0.3,
		BackgroundFade:   1.5,
		FFmpegPath:       "ffmpeg",
		FFprobePath:      "ffprobe",
		OutputDir:        "output",
		RenderTimeout:    120,
		RenderRetries:    2,
		WriteCaptions:    true,
		Brand: Brand{
			Background: "#101828",
		},
		LogLevel: "info",
	}
}

// Load reads a YAML config file over the defaults. An empty path
// returns the defaults untouched. Environment variables ADREEL_FFMPEG
// and ADREEL_FFPROBE override the binary paths last.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if v := os.Getenv("ADREEL_FFMPEG"); v != "" {
		cfg.FFmpegPath = v
	}
	if v := os.Getenv("ADREEL_FFPROBE"); v != "" {
		cfg.FFprobePath = v
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the pipeline cannot work with.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("config: invalid canvas %dx%d", c.Width, c.Height)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("config: invalid fps %d", c.FPS)
	}
	if c.MinSceneDuration <= 0 {
		return fmt.Errorf("config: min_scene_duration must be positive")
	}
	if c.MaxTotalDuration < c.MinSceneDuration {
		return fmt.Errorf("config: max_total_duration below min_scene_duration")
	}
	if c.RequireTrailing && c.TrailingDuration <= 0 {
		return fmt.Errorf("config: trailing_duration must be positive when required")
	}
	if c.BackgroundVolume < 0 || c.BackgroundVolume > 1 {
		return fmt.Errorf("config: background_volume must be within [0,1]")
	}
	return nil
}
