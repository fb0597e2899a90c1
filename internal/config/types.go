// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modgate/modgate/internal/logging"
	"github.com/modgate/modgate/pkg/metadata"
	"github.com/modgate/modgate/pkg/modloader"
	"github.com/modgate/modgate/pkg/policy"
)

// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
var ErrInvalidConfig = errors.New("invalid config")

type (
	// Config is the root configuration.
	Config struct {
		Mods   ModsConfig   `json:"mods" mapstructure:"mods"`
		Policy PolicyConfig `json:"policy" mapstructure:"policy"`
		Log    LogConfig    `json:"log" mapstructure:"log"`
		Audit  AuditConfig  `json:"audit" mapstructure:"audit"`
	}

	// ModsConfig configures mod discovery and loading.
	ModsConfig struct {
		// Enabled turns mod loading on or off as a whole.
		Enabled bool `json:"enabled" mapstructure:"enabled"`
		// Dir is the mods directory. Empty selects DataDir()/mods.
		Dir       string `json:"dir" mapstructure:"dir"`
		Extension string `json:"extension" mapstructure:"extension"`
		// Workers bounds the scan pool. 0 selects one worker per CPU.
		Workers      int           `json:"workers" mapstructure:"workers"`
		MaxFileSize  int64         `json:"max_file_size" mapstructure:"max_file_size"`
		ParseTimeout time.Duration `json:"parse_timeout" mapstructure:"parse_timeout"`
	}

	// PolicyConfig customizes the built-in denylist.
	PolicyConfig struct {
		Mode              policy.Mode `json:"mode" mapstructure:"mode"`
		BanAllInNamespace bool        `json:"ban_all_in_namespace" mapstructure:"ban_all_in_namespace"`
		Types             []string    `json:"types" mapstructure:"types"`
		Namespaces        []string    `json:"namespaces" mapstructure:"namespaces"`
		Methods           []string    `json:"methods" mapstructure:"methods"`
		// File is an extra policy file applied after the inline entries.
		File string `json:"file" mapstructure:"file"`
	}

	// LogConfig configures the logging sink.
	LogConfig struct {
		Level  string `json:"level" mapstructure:"level"`
		Format string `json:"format" mapstructure:"format"`
	}

	// AuditConfig configures the admission audit store.
	AuditConfig struct {
		Enabled bool `json:"enabled" mapstructure:"enabled"`
		// Path is the SQLite database file. Empty selects DataDir()/audit.db.
		Path string `json:"path" mapstructure:"path"`
	}

	// InvalidConfigError reports a configuration value the schema cannot
	// reject on its own. It wraps ErrInvalidConfig.
	InvalidConfigError struct {
		Field string
		Value string
		Hint  string
	}
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Mods: ModsConfig{
			Enabled:      true,
			Extension:    metadata.ImageExtension,
			MaxFileSize:  modloader.DefaultMaxFileSize,
			ParseTimeout: modloader.DefaultParseTimeout,
		},
		Policy: PolicyConfig{
			Mode:              policy.ModeAppend,
			BanAllInNamespace: policy.DefaultBanAllInNamespace,
			Types:             []string{},
			Namespaces:        []string{},
			Methods:           []string{},
		},
		Log: LogConfig{
			Level:  logging.LevelInfo,
			Format: logging.FormatText,
		},
	}
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Hint)
}

func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// Validate checks the values that the CUE schema does not cover, such as
// values that arrive through environment overrides.
func (c *Config) Validate() error {
	var errs []error
	if !c.Policy.Mode.IsValid() {
		errs = append(errs, &InvalidConfigError{Field: "policy.mode", Value: string(c.Policy.Mode), Hint: `must be "append" or "replace"`})
	}
	if c.Mods.Workers < 0 {
		errs = append(errs, &InvalidConfigError{Field: "mods.workers", Value: fmt.Sprint(c.Mods.Workers), Hint: "must not be negative"})
	}
	if c.Mods.MaxFileSize <= 0 {
		errs = append(errs, &InvalidConfigError{Field: "mods.max_file_size", Value: fmt.Sprint(c.Mods.MaxFileSize), Hint: "must be positive"})
	}
	if c.Mods.ParseTimeout <= 0 {
		errs = append(errs, &InvalidConfigError{Field: "mods.parse_timeout", Value: c.Mods.ParseTimeout.String(), Hint: "must be positive"})
	}
	if !strings.HasPrefix(c.Mods.Extension, ".") || len(c.Mods.Extension) < 2 {
		errs = append(errs, &InvalidConfigError{Field: "mods.extension", Value: c.Mods.Extension, Hint: `must start with "." and name an extension`})
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, &InvalidConfigError{Field: "log.level", Value: c.Log.Level, Hint: err.Error()})
	}
	if !logging.IsFormat(c.Log.Format) {
		errs = append(errs, &InvalidConfigError{Field: "log.format", Value: c.Log.Format, Hint: `must be "text", "json" or "logfmt"`})
	}
	return errors.Join(errs...)
}

// Build derives the effective policy: the built-in defaults, then the inline
// entries, then the optional policy file. In replace mode an empty inline
// list keeps the corresponding default set.
func (p PolicyConfig) Build() (*policy.Policy, error) {
	ban := p.BanAllInNamespace
	inline := policy.File{
		Mode:              p.Mode,
		BanAllInNamespace: &ban,
		Types:             nilIfEmpty(p.Types),
		Namespaces:        nilIfEmpty(p.Namespaces),
		Methods:           nilIfEmpty(p.Methods),
	}
	pol, err := inline.Apply(policy.Default())
	if err != nil {
		return nil, fmt.Errorf("policy section: %w", err)
	}
	if p.File == "" {
		return pol, nil
	}

	f, err := policy.LoadFile(p.File)
	if err != nil {
		return nil, err
	}
	pol, err = f.Apply(pol)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.File, err)
	}
	return pol, nil
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}
