package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "STAGECRAFT_"

// FileSystem is an abstraction for file system operations.
// This allows for easy testing with in-memory file systems.
type FileSystem interface {
	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Loader builds a Config from defaults, a file and the environment.
type Loader struct {
	fs      FileSystem
	environ func() map[string]string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithFileSystem reads configuration files from fsys.
func WithFileSystem(fsys FileSystem) LoaderOption {
	return func(l *Loader) {
		if fsys != nil {
			l.fs = fsys
		}
	}
}

// WithEnvironment replaces the process environment, for tests.
func WithEnvironment(vars map[string]string) LoaderOption {
	if vars == nil {
		vars = map[string]string{}
	}
	return func(l *Loader) {
		l.environ = func() map[string]string { return vars }
	}
}

// NewLoader creates a Loader over the OS file system and environment.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		fs:      OSFS{},
		environ: func() map[string]string { return env.ToMap(os.Environ()) },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load builds the configuration. An empty path or a missing file yields
// defaults plus environment overrides.
func (l *Loader) Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := l.decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load builds the configuration with the default Loader.
func Load(path string) (*Config, error) {
	return NewLoader().Load(path)
}

func (l *Loader) decodeFile(path string, cfg *Config) error {
	data, err := l.fs.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	return Decode(path, data, cfg)
}

// Decode parses data onto cfg, choosing the format from path's extension.
// Settings absent from data keep their current values.
func Decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return tomlParseError(path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return yamlParseError(path, err)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	return nil
}

func tomlParseError(path string, err error) error {
	pe := &ParseError{Path: path, Message: err.Error(), Err: err}
	var de *toml.DecodeError
	if errors.As(err, &de) {
		pe.Line, pe.Column = de.Position()
		pe.Message = de.Error()
	}
	return pe
}

func yamlParseError(path string, err error) error {
	pe := &ParseError{Path: path, Message: err.Error(), Err: err}
	var line int
	if _, scanErr := fmt.Sscanf(pe.Message, "yaml: line %d:", &line); scanErr == nil {
		pe.Line = line
	}
	return pe
}

func (l *Loader) applyEnv(cfg *Config) error {
	err := env.ParseWithOptions(cfg, env.Options{
		Prefix:      EnvPrefix,
		Environment: l.environ(),
	})
	if err != nil {
		return fmt.Errorf("environment overrides: %w", err)
	}
	return nil
}
