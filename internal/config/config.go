package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/Skt329/Image-Resizer/internal/logging"
	"github.com/Skt329/Image-Resizer/pkg/encoder"
	"github.com/Skt329/Image-Resizer/pkg/pipeline"
	"github.com/Skt329/Image-Resizer/pkg/resampler"
)

// Config holds the application configuration
type Config struct {
	Resample ResampleConfig `toml:"resample"`
	Encoder  EncoderConfig  `toml:"encoder"`
	Limits   LimitsConfig   `toml:"limits"`
	Output   OutputConfig   `toml:"output"`
	Log      LogConfig      `toml:"log"`
}

// ResampleConfig holds configuration for resizing
type ResampleConfig struct {
	Filter string `toml:"filter"`
}

// EncoderConfig holds configuration for the size-constrained search
type EncoderConfig struct {
	MaxIterations      int `toml:"max_iterations"`
	JPEGDefaultQuality int `toml:"jpeg_default_quality"`
	JPEGMinQuality     int `toml:"jpeg_min_quality"`
	JPEGMaxQuality     int `toml:"jpeg_max_quality"`
	WebPDefaultQuality int `toml:"webp_default_quality"`
	WebPMinQuality     int `toml:"webp_min_quality"`
	WebPMaxQuality     int `toml:"webp_max_quality"`
}

// LimitsConfig bounds the resources one request may use
type LimitsConfig struct {
	MaxPixels      int   `toml:"max_pixels"`
	MaxInputBytes  int64 `toml:"max_input_bytes"`
	TimeoutSeconds int   `toml:"timeout_seconds"`
}

// OutputConfig holds configuration for output file naming
type OutputConfig struct {
	Dir    string `toml:"dir"`
	Prefix string `toml:"prefix"`
	Suffix string `toml:"suffix"`
}

// LogConfig selects log verbosity and encoding
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns a configuration with default values
func Default() *Config {
	enc := encoder.DefaultConfig()
	return &Config{
		Resample: ResampleConfig{
			Filter: string(resampler.Lanczos),
		},
		Encoder: EncoderConfig{
			MaxIterations:      enc.MaxIterations,
			JPEGDefaultQuality: enc.JPEG.Default,
			JPEGMinQuality:     enc.JPEG.Min,
			JPEGMaxQuality:     enc.JPEG.Max,
			WebPDefaultQuality: enc.WebP.Default,
			WebPMinQuality:     enc.WebP.Min,
			WebPMaxQuality:     enc.WebP.Max,
		},
		Limits: LimitsConfig{
			MaxPixels:      100_000_000,
			MaxInputBytes:  10 << 20,
			TimeoutSeconds: 60,
		},
		Output: OutputConfig{
			Dir:    "./output",
			Prefix: "",
			Suffix: "_resized",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// LoadFromFile loads configuration from a TOML file. Keys missing from the
// file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", filename, err)
	}
	return config, nil
}

// Load reads filename when it exists and falls back to defaults otherwise.
// An empty filename means GetConfigPath.
func Load(filename string) (*Config, string, error) {
	if filename == "" {
		filename = GetConfigPath()
	}

	if _, err := os.Stat(filename); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), filename, nil
		}
		return nil, filename, fmt.Errorf("stat config: %w", err)
	}

	config, err := LoadFromFile(filename)
	if err != nil {
		return nil, filename, err
	}
	return config, filename, nil
}

// SaveToFile saves configuration to a TOML file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := resampler.ParseFilter(c.Resample.Filter); err != nil {
		return fmt.Errorf("resample.filter: %w", err)
	}

	if err := c.EncoderConfig().Validate(); err != nil {
		return fmt.Errorf("encoder: %w", err)
	}

	if c.Limits.MaxPixels < 1 {
		return fmt.Errorf("limits.max_pixels must be positive")
	}

	if c.Limits.MaxInputBytes < 1 {
		return fmt.Errorf("limits.max_input_bytes must be positive")
	}

	if c.Limits.TimeoutSeconds < 0 {
		return fmt.Errorf("limits.timeout_seconds cannot be negative")
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	switch strings.ToLower(c.Log.Format) {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("log.format must be one of auto, console, json")
	}

	return nil
}

// EncoderConfig maps the [encoder] section onto the encoder's configuration
func (c *Config) EncoderConfig() encoder.Config {
	return encoder.Config{
		MaxIterations: c.Encoder.MaxIterations,
		JPEG: encoder.QualityRange{
			Min:     c.Encoder.JPEGMinQuality,
			Max:     c.Encoder.JPEGMaxQuality,
			Default: c.Encoder.JPEGDefaultQuality,
		},
		WebP: encoder.QualityRange{
			Min:     c.Encoder.WebPMinQuality,
			Max:     c.Encoder.WebPMaxQuality,
			Default: c.Encoder.WebPDefaultQuality,
		},
	}
}

// PipelineConfig builds the pipeline configuration. Call Validate first.
func (c *Config) PipelineConfig() pipeline.Config {
	filter, _ := resampler.ParseFilter(c.Resample.Filter)
	return pipeline.Config{
		Filter:    filter,
		Encoder:   c.EncoderConfig(),
		MaxPixels: c.Limits.MaxPixels,
		Timeout:   time.Duration(c.Limits.TimeoutSeconds) * time.Second,
	}
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.toml"
	}
	return filepath.Join(home, ".config", "image-resizer", "config.toml")
}
