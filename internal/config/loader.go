package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the environment variable prefix.
const DefaultEnvPrefix = "BARTR_"

// DefaultFile is read when no file is named and it exists.
const DefaultFile = "bartr.yaml"

// Loader loads configuration with the priority Env > File > Default.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	required  bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile names the YAML file to read. A named file must exist.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		if path != "" {
			l.filePath = path
			l.required = true
		}
	}
}

// NewLoader creates a loader that reads DefaultFile when present.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
		filePath:  DefaultFile,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the file and environment over Default.
func (l *Loader) Load() (*Config, error) {
	if err := l.loadFile(); err != nil {
		return nil, err
	}
	if err := l.loadEnv(); err != nil {
		return nil, err
	}
	cfg := Default()
	if err := l.k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// Keys returns the keys set by the file and environment.
func (l *Loader) Keys() []string {
	return l.k.Keys()
}

func (l *Loader) loadFile() error {
	if l.filePath == "" {
		return nil
	}
	if _, err := os.Stat(l.filePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !l.required {
			return nil
		}
		return fmt.Errorf("load config file: %w", err)
	}
	if err := l.k.Load(file.Provider(l.filePath), yaml.Parser()); err != nil {
		return fmt.Errorf("load config file %s: %w", l.filePath, err)
	}
	return nil
}

// loadEnv maps BARTR_SECTION_SOME_KEY to section.some_key: the first
// underscore after the prefix separates the section.
func (l *Loader) loadEnv() error {
	transform := func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, l.envPrefix))
		return strings.Replace(s, "_", ".", 1)
	}
	if err := l.k.Load(env.Provider(l.envPrefix, ".", transform), nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

// Load is shorthand for NewLoader(WithConfigFile(path)).Load().
func Load(path string) (*Config, error) {
	return NewLoader(WithConfigFile(path)).Load()
}
