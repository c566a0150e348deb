// Package config holds the runtime options recognised by a govarnam
// handle and the YAML file configuration used by the CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"govarnam/internal/result"

	"gopkg.in/yaml.v3"
)

// Options are the per-handle runtime switches. They reset to defaults
// every time a handle is created; nothing here persists.
type Options struct {
	// UseDeadConsonants derives dead-consonant tokens while
	// persisting consonants. On by default.
	UseDeadConsonants bool

	// UseIndicDigits routes ASCII digits through the symbol store
	// during forward transliteration. Off by default.
	UseIndicDigits bool

	// IgnoreDuplicateTokens silently skips duplicate symbol inserts
	// instead of failing. Off by default.
	IgnoreDuplicateTokens bool

	// SuggestionsPath is the learning store file. Empty means
	// suggestions are disabled.
	SuggestionsPath string
}

// DefaultOptions returns the options a fresh handle starts with.
func DefaultOptions() Options {
	return Options{
		UseDeadConsonants: true,
	}
}

// Config is the CLI configuration file.
type Config struct {
	// SchemeDirs are searched in order for .vst scheme files.
	SchemeDirs []string `yaml:"scheme_dirs"`

	// SuggestionsDir holds per-scheme learning stores.
	SuggestionsDir string `yaml:"suggestions_dir"`

	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig controls the categorized file logger.
type LoggingConfig struct {
	Dir   string `yaml:"dir"`
	Debug bool   `yaml:"debug"`
}

// DefaultConfig returns the default CLI configuration. Scheme files
// are searched in the conventional system locations first, then in a
// local schemes directory; learning stores live under the XDG user
// data directory.
func DefaultConfig() *Config {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return &Config{
		SchemeDirs: []string{
			"/usr/local/share/varnam/vst",
			"/usr/share/varnam/vst",
			"schemes",
		},
		SuggestionsDir: filepath.Join(dataHome, "varnam", "suggestions"),
	}
}

// Load reads the YAML config at path, falling back to defaults for
// anything unset. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", result.ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

// SuggestionsPathFor returns the learning store path for a scheme
// language code, e.g. "ml" -> <suggestions_dir>/ml.vst.learnings.
func (c *Config) SuggestionsPathFor(langCode string) string {
	return filepath.Join(c.SuggestionsDir, langCode+".vst.learnings")
}
