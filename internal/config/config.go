// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"github.com/modgate/modgate/internal/issue"
	"github.com/modgate/modgate/pkg/cueutil"
)

const (
	// AppName is the application name.
	AppName = "modgate"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides, e.g. MODGATE_MODS_DIR.
	EnvPrefix = "MODGATE"

	modsDirName   = "mods"
	auditFileName = "audit.db"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the modgate configuration directory: %APPDATA% on Windows,
// ~/Library/Application Support on macOS and $XDG_CONFIG_HOME (defaulting to
// ~/.config) elsewhere.
//
//nolint:revive // ConfigDir reads better than Dir at call sites
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("APPDATA")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		base = filepath.Join(home, "Library", "Application Support")
	default:
		base = os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, AppName), nil
}

// DataDir returns the directory for mods and the audit database:
// %LOCALAPPDATA% on Windows, ~/Library/Application Support on macOS and
// $XDG_DATA_HOME (defaulting to ~/.local/share) elsewhere.
func DataDir() (string, error) {
	if dataDirOverride != "" {
		return dataDirOverride, nil
	}

	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("LOCALAPPDATA")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Local")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		base = filepath.Join(home, "Library", "Application Support")
	default:
		base = os.Getenv("XDG_DATA_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			base = filepath.Join(home, ".local", "share")
		}
	}
	return filepath.Join(base, AppName), nil
}

// ModsDir resolves the mods directory, falling back to DataDir()/mods.
func (c *Config) ModsDir() (string, error) {
	if c.Mods.Dir != "" {
		return c.Mods.Dir, nil
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, modsDirName), nil
}

// AuditPath resolves the audit database path, falling back to
// DataDir()/audit.db.
func (c *Config) AuditPath() (string, error) {
	if c.Audit.Path != "" {
		return c.Audit.Path, nil
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, auditFileName), nil
}

// loadWithOptions loads configuration without touching package state. It
// returns the config file that was used, or "" when only defaults apply.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := newViper()

	resolvedPath := ""
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Run 'modgate config' to print the default configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		cfgDir := opts.ConfigDirPath
		if cfgDir == "" {
			var err error
			if cfgDir, err = ConfigDir(); err != nil {
				return nil, "", err
			}
		}
		if p := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt); fileExists(p) {
			resolvedPath = p
		} else if p := ConfigFileName + "." + ConfigFileExt; fileExists(p) {
			resolvedPath = p
		}
	}

	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Check MODGATE_* environment overrides").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}
	return &cfg, resolvedPath, nil
}

func newViper() *viper.Viper {
	v := viper.New()

	d := DefaultConfig()
	v.SetDefault("mods.enabled", d.Mods.Enabled)
	v.SetDefault("mods.dir", d.Mods.Dir)
	v.SetDefault("mods.extension", d.Mods.Extension)
	v.SetDefault("mods.workers", d.Mods.Workers)
	v.SetDefault("mods.max_file_size", d.Mods.MaxFileSize)
	v.SetDefault("mods.parse_timeout", d.Mods.ParseTimeout)
	v.SetDefault("policy.mode", string(d.Policy.Mode))
	v.SetDefault("policy.ban_all_in_namespace", d.Policy.BanAllInNamespace)
	v.SetDefault("policy.types", d.Policy.Types)
	v.SetDefault("policy.namespaces", d.Policy.Namespaces)
	v.SetDefault("policy.methods", d.Policy.Methods)
	v.SetDefault("policy.file", d.Policy.File)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("audit.enabled", d.Audit.Enabled)
	v.SetDefault("audit.path", d.Audit.Path)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// loadCUEIntoViper validates a CUE file against #Config and merges it into v.
//
// Config decodes to map[string]any for viper rather than through
// cueutil.ParseAndDecode, and uses Concrete(false) because every field is
// optional.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return err
	}

	ctx := cuecontext.New()
	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return cueutil.FormatError(userValue.Err(), path)
	}

	unified := schemaValue.LookupPath(cue.ParsePath("#Config")).Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return cueutil.FormatError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueutil.FormatError(err, path)
	}
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the default configuration unless a config file
// already exists. created reports whether a file was written.
func CreateDefaultConfig() (path string, created bool, err error) {
	cfgDir, err := ConfigDir()
	if err != nil {
		return "", false, err
	}
	path = filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	if fileExists(path) {
		return path, false, nil
	}
	if _, err := Save(DefaultConfig()); err != nil {
		return "", false, err
	}
	return path, true, nil
}

// Save writes cfg as CUE into ConfigDir(), creating the directory.
func Save(cfg *Config) (string, error) {
	cfgDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(cfg)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return cfgPath, nil
}

// GenerateCUE renders cfg as a config file that validates against #Config.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// modgate configuration file\n\n")

	sb.WriteString("mods: {\n")
	fmt.Fprintf(&sb, "\tenabled: %v\n", cfg.Mods.Enabled)
	if cfg.Mods.Dir != "" {
		fmt.Fprintf(&sb, "\tdir: %q\n", cfg.Mods.Dir)
	}
	fmt.Fprintf(&sb, "\textension: %q\n", cfg.Mods.Extension)
	fmt.Fprintf(&sb, "\tworkers: %d\n", cfg.Mods.Workers)
	fmt.Fprintf(&sb, "\tmax_file_size: %d\n", cfg.Mods.MaxFileSize)
	fmt.Fprintf(&sb, "\tparse_timeout: %q\n", cfg.Mods.ParseTimeout.String())
	sb.WriteString("}\n")

	sb.WriteString("\npolicy: {\n")
	mode := cfg.Policy.Mode
	if mode == "" {
		mode = "append"
	}
	fmt.Fprintf(&sb, "\tmode: %q\n", mode)
	fmt.Fprintf(&sb, "\tban_all_in_namespace: %v\n", cfg.Policy.BanAllInNamespace)
	writeList(&sb, "types", cfg.Policy.Types)
	writeList(&sb, "namespaces", cfg.Policy.Namespaces)
	writeList(&sb, "methods", cfg.Policy.Methods)
	if cfg.Policy.File != "" {
		fmt.Fprintf(&sb, "\tfile: %q\n", cfg.Policy.File)
	}
	sb.WriteString("}\n")

	sb.WriteString("\nlog: {\n")
	fmt.Fprintf(&sb, "\tlevel: %q\n", cfg.Log.Level)
	fmt.Fprintf(&sb, "\tformat: %q\n", cfg.Log.Format)
	sb.WriteString("}\n")

	sb.WriteString("\naudit: {\n")
	fmt.Fprintf(&sb, "\tenabled: %v\n", cfg.Audit.Enabled)
	if cfg.Audit.Path != "" {
		fmt.Fprintf(&sb, "\tpath: %q\n", cfg.Audit.Path)
	}
	sb.WriteString("}\n")

	return sb.String()
}

func writeList(sb *strings.Builder, key string, values []string) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintf(sb, "\t%s: [\n", key)
	for _, v := range values {
		fmt.Fprintf(sb, "\t\t%q,\n", v)
	}
	sb.WriteString("\t]\n")
}
