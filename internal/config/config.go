// Package config holds the server configuration and its JSON file form.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds the application configuration
type Config struct {
	Viewport  ViewportConfig  `json:"viewport"`
	Detection DetectionConfig `json:"detection"`
	Render    RenderConfig    `json:"render"`
	Loader    LoaderConfig    `json:"loader"`
	Log       LogConfig       `json:"log"`
}

// ViewportConfig holds defaults applied when an image is loaded
type ViewportConfig struct {
	// DefaultPixelScale is arcseconds per native pixel when a load request
	// does not give one.
	DefaultPixelScale float64 `json:"default_pixel_scale"`
	FallbackWidth     int     `json:"fallback_width"`
	FallbackHeight    int     `json:"fallback_height"`
}

// DetectionConfig holds configuration for the detection sampler
type DetectionConfig struct {
	LatencyMS int `json:"latency_ms"`

	// Seed fixes the sampler's random source; 0 seeds from the clock.
	Seed int64 `json:"seed"`

	// SeedPerImage reseeds from the image source on every load so the same
	// image always yields the same detections.
	SeedPerImage bool `json:"seed_per_image"`
}

// RenderConfig holds configuration for viewport frames
type RenderConfig struct {
	ContainerWidth  int    `json:"container_width"`
	ContainerHeight int    `json:"container_height"`
	Format          string `json:"format"`
	Quality         int    `json:"quality"`
	Lossless        bool   `json:"lossless"`
	GridSpacing     int    `json:"grid_spacing"`
	GridColor       string `json:"grid_color"`
	Labels          bool   `json:"labels"`
	Background      string `json:"background"`
}

// LoaderConfig holds configuration for image loading
type LoaderConfig struct {
	HTTPTimeoutSeconds int    `json:"http_timeout_seconds"`
	UserAgent          string `json:"user_agent"`
	MaxBytes           int64  `json:"max_bytes"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `json:"level"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Viewport: ViewportConfig{
			DefaultPixelScale: 0.031,
			FallbackWidth:     1024,
			FallbackHeight:    768,
		},
		Detection: DetectionConfig{
			LatencyMS:    2000,
			Seed:         0,
			SeedPerImage: false,
		},
		Render: RenderConfig{
			ContainerWidth:  800,
			ContainerHeight: 600,
			Format:          "png",
			Quality:         90,
			Lossless:        false,
			GridSpacing:     0,
			GridColor:       "#FF000080",
			Labels:          true,
			Background:      "#000000",
		},
		Loader: LoaderConfig{
			HTTPTimeoutSeconds: 30,
			UserAgent:          "skyscope-mcp/1.0",
			MaxBytes:           64 << 20,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadFromFile loads configuration from a JSON file. Fields missing from
// the file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
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
	if !(c.Viewport.DefaultPixelScale > 0) || math.IsInf(c.Viewport.DefaultPixelScale, 0) {
		return fmt.Errorf("viewport.default_pixel_scale must be positive")
	}

	if c.Viewport.FallbackWidth < 1 || c.Viewport.FallbackHeight < 1 {
		return fmt.Errorf("viewport.fallback_width and fallback_height must be positive")
	}

	if c.Detection.LatencyMS < 0 {
		return fmt.Errorf("detection.latency_ms cannot be negative")
	}

	if c.Render.ContainerWidth < 1 || c.Render.ContainerHeight < 1 {
		return fmt.Errorf("render.container_width and container_height must be positive")
	}

	if c.Render.Format != "png" && c.Render.Format != "webp" {
		return fmt.Errorf("render.format must be png or webp")
	}

	if c.Render.Quality < 1 || c.Render.Quality > 100 {
		return fmt.Errorf("render.quality must be between 1 and 100")
	}

	if c.Render.GridSpacing < 0 {
		return fmt.Errorf("render.grid_spacing cannot be negative")
	}

	if c.Loader.HTTPTimeoutSeconds < 1 {
		return fmt.Errorf("loader.http_timeout_seconds must be positive")
	}

	if c.Loader.MaxBytes < 1 {
		return fmt.Errorf("loader.max_bytes must be positive")
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	return nil
}

// Latency returns the simulated detection latency.
func (c *Config) Latency() time.Duration {
	return time.Duration(c.Detection.LatencyMS) * time.Millisecond
}

// HTTPTimeout returns the URL download timeout.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Loader.HTTPTimeoutSeconds) * time.Second
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "skyscope", "config.json")
}
