package config

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Config is the full Stagecraft configuration.
type Config struct {
	Logging  LoggingConfig  `toml:"logging" yaml:"logging" envPrefix:"LOG_"`
	Store    StoreConfig    `toml:"store" yaml:"store" envPrefix:"STORE_"`
	History  HistoryConfig  `toml:"history" yaml:"history" envPrefix:"HISTORY_"`
	Hydrate  HydrateConfig  `toml:"hydrate" yaml:"hydrate" envPrefix:"HYDRATE_"`
	Loader   LoaderConfig   `toml:"loader" yaml:"loader" envPrefix:"LOADER_"`
	Playback PlaybackConfig `toml:"playback" yaml:"playback" envPrefix:"PLAYBACK_"`
	Defaults DefaultsConfig `toml:"defaults" yaml:"defaults" envPrefix:"DEFAULTS_"`
	Surface  SurfaceConfig  `toml:"surface" yaml:"surface" envPrefix:"SURFACE_"`
}

// LoggingConfig configures the application logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level" yaml:"level" env:"LEVEL"`
	// File receives log output. Empty means stderr.
	File string `toml:"file" yaml:"file" env:"FILE"`
}

// StoreConfig selects the snapshot backend.
type StoreConfig struct {
	// Backend is one of memory, file, bolt, sqlite.
	Backend string `toml:"backend" yaml:"backend" env:"BACKEND"`
	Path    string `toml:"path" yaml:"path" env:"PATH"`
	Key     string `toml:"key" yaml:"key" env:"KEY"`
}

// HistoryConfig bounds the undo history.
type HistoryConfig struct {
	// MaxEntries is the number of snapshots kept. Zero means unlimited.
	MaxEntries int `toml:"max_entries" yaml:"max_entries" env:"MAX_ENTRIES"`
}

// HydrateConfig tunes the hydration pipeline.
type HydrateConfig struct {
	// Concurrency bounds loads per pass. Zero means unbounded.
	Concurrency int `toml:"concurrency" yaml:"concurrency" env:"CONCURRENCY"`
}

// LoaderConfig tunes resource fetching.
type LoaderConfig struct {
	FetchTimeout Duration `toml:"fetch_timeout" yaml:"fetch_timeout" env:"FETCH_TIMEOUT"`
	// BaseDir resolves relative file paths.
	BaseDir string `toml:"base_dir" yaml:"base_dir" env:"BASE_DIR"`
}

// PlaybackConfig tunes video redraw drivers.
type PlaybackConfig struct {
	FPS int `toml:"fps" yaml:"fps" env:"FPS"`
}

// DefaultsConfig places newly added elements.
type DefaultsConfig struct {
	ImageX    float64 `toml:"image_x" yaml:"image_x" env:"IMAGE_X"`
	ImageY    float64 `toml:"image_y" yaml:"image_y" env:"IMAGE_Y"`
	TextX     float64 `toml:"text_x" yaml:"text_x" env:"TEXT_X"`
	TextY     float64 `toml:"text_y" yaml:"text_y" env:"TEXT_Y"`
	TextWidth float64 `toml:"text_width" yaml:"text_width" env:"TEXT_WIDTH"`
	FontSize  float64 `toml:"font_size" yaml:"font_size" env:"FONT_SIZE"`
	VideoX    float64 `toml:"video_x" yaml:"video_x" env:"VIDEO_X"`
	VideoY    float64 `toml:"video_y" yaml:"video_y" env:"VIDEO_Y"`
}

// SurfaceConfig configures the render surfaces.
type SurfaceConfig struct {
	// FrameRate caps terminal repaints per second.
	FrameRate int `toml:"frame_rate" yaml:"frame_rate" env:"FRAME_RATE"`
	// CellWidth and CellHeight are canvas units per terminal cell.
	CellWidth  float64 `toml:"cell_width" yaml:"cell_width" env:"CELL_WIDTH"`
	CellHeight float64 `toml:"cell_height" yaml:"cell_height" env:"CELL_HEIGHT"`
	// ExportWidth and ExportHeight size PNG exports.
	ExportWidth  int    `toml:"export_width" yaml:"export_width" env:"EXPORT_WIDTH"`
	ExportHeight int    `toml:"export_height" yaml:"export_height" env:"EXPORT_HEIGHT"`
	Background   string `toml:"background" yaml:"background" env:"BACKGROUND"`
	Mouse        bool   `toml:"mouse" yaml:"mouse" env:"MOUSE"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		Store: StoreConfig{
			Backend: "file",
			Path:    "stagecraft-data",
			Key:     "canvasState",
		},
		Hydrate:  HydrateConfig{Concurrency: 8},
		Loader:   LoaderConfig{FetchTimeout: Duration(30 * time.Second)},
		Playback: PlaybackConfig{FPS: 30},
		Defaults: DefaultsConfig{
			ImageX:    50,
			ImageY:    50,
			TextX:     50,
			TextY:     150,
			TextWidth: 100,
			FontSize:  24,
			VideoX:    50,
			VideoY:    200,
		},
		Surface: SurfaceConfig{
			FrameRate:    60,
			CellWidth:    8,
			CellHeight:   16,
			ExportWidth:  1280,
			ExportHeight: 720,
			Background:   "#ffffff",
			Mouse:        true,
		},
	}
}

var (
	logLevels = []string{"debug", "info", "warn", "warning", "error"}
	backends  = []string{"memory", "file", "bolt", "bbolt", "sqlite", "sqlite3"}
)

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if !slices.Contains(logLevels, strings.ToLower(c.Logging.Level)) {
		add("logging.level %q is not one of %v", c.Logging.Level, logLevels)
	}
	if !slices.Contains(backends, strings.ToLower(c.Store.Backend)) {
		add("store.backend %q is not one of %v", c.Store.Backend, backends)
	}
	if c.Store.Backend != "memory" && strings.TrimSpace(c.Store.Path) == "" {
		add("store.path is required for backend %q", c.Store.Backend)
	}
	if strings.TrimSpace(c.Store.Key) == "" {
		add("store.key is required")
	}
	if c.History.MaxEntries < 0 {
		add("history.max_entries must not be negative")
	}
	if c.Hydrate.Concurrency < 0 {
		add("hydrate.concurrency must not be negative")
	}
	if c.Loader.FetchTimeout < 0 {
		add("loader.fetch_timeout must not be negative")
	}
	if c.Playback.FPS < 1 || c.Playback.FPS > 240 {
		add("playback.fps must be between 1 and 240")
	}
	if c.Defaults.TextWidth < 5 {
		add("defaults.text_width must be at least 5")
	}
	if c.Defaults.FontSize <= 0 {
		add("defaults.font_size must be positive")
	}
	if c.Surface.FrameRate < 1 {
		add("surface.frame_rate must be positive")
	}
	if c.Surface.CellWidth <= 0 || c.Surface.CellHeight <= 0 {
		add("surface.cell_width and surface.cell_height must be positive")
	}
	if c.Surface.ExportWidth <= 0 || c.Surface.ExportHeight <= 0 {
		add("surface.export_width and surface.export_height must be positive")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Clone returns a copy of c.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// Duration is a time.Duration written as a string such as "30s".
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String returns the duration in time.Duration notation.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}
