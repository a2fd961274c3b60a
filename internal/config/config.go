// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"

	"github.com/connectedyard/licensescan/internal/gitstate"
	"github.com/connectedyard/licensescan/internal/issue"
	"github.com/connectedyard/licensescan/internal/policy"
)

const (
	// AppName is the application name.
	AppName = "licensescan"
	// SettingsFileName is the project-local settings file name, without extension.
	SettingsFileName = ".licensescan"
	// UserSettingsFileName is the settings file name inside ConfigDir.
	UserSettingsFileName = "config"
	// EnvPrefix prefixes environment variables: LICENSESCAN_SKIPUPDATE=true.
	EnvPrefix = "LICENSESCAN"
)

// Setting keys. They match the CLI flag names so viper binds flags to them.
const (
	KeyEnableUnclean  = "enableUnclean"
	KeySkipNode       = "skipNode"
	KeySkipBower      = "skipBower"
	KeySkipUpdate     = "skipUpdate"
	KeyDev            = "dev"
	KeyProd           = "prod"
	KeyUnknowns       = "unknowns"
	KeyWarningsOff    = "warningsOff"
	KeyStreamOutput   = "streamOutput"
	KeyTimeout        = "timeout"
	KeyPolicy         = "config"
	KeyRepoBackend    = "repoBackend"
	KeyOutput         = "output"
	KeyFormat         = "format"
	KeyCSV            = "csv"
	KeyNoSave         = "noSave"
	KeyProductionOnly = "productionOnly"
)

var settingsExtensions = []string{"yaml", "yml", "json", "toml"}

// ErrConflictingCategorization is returned when both dev and prod are set.
var ErrConflictingCategorization = errors.New("can pass in only one of --dev or --prod")

// Settings is the CLI-level configuration: built-in defaults, settings
// file, environment and flags combined.
type Settings struct {
	Options Options
	Report  ReportOptions
	// Source is the settings file that was read, empty when none was found.
	Source string
}

// ConfigDir returns the per-user configuration directory: %APPDATA% on
// Windows, ~/Library/Application Support on macOS and $XDG_CONFIG_HOME
// (default ~/.config) elsewhere.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// loadWithOptions layers defaults, the settings file, LICENSESCAN_*
// environment variables and opts.Flags into one Settings.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Settings, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load settings canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if opts.Flags != nil {
		if err := v.BindPFlags(opts.Flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	path, err := findSettingsFile(opts)
	if err != nil {
		return nil, err
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load settings").
				WithResource(path).
				WithSuggestion("Check that the file is valid YAML, JSON or TOML").
				WithSuggestion("Setting names match the long flag names, e.g. skipUpdate: true").
				Wrap(configurationError(path, err)).
				BuildError()
		}
	}

	settings, err := fromViper(v)
	if err != nil {
		return nil, err
	}
	settings.Source = path
	return settings, nil
}

func setDefaults(v *viper.Viper) {
	opts := DefaultOptions()
	report := DefaultReportOptions()
	v.SetDefault(KeyEnableUnclean, opts.EnableUnclean)
	v.SetDefault(KeySkipNode, opts.SkipNode)
	v.SetDefault(KeySkipBower, opts.SkipBower)
	v.SetDefault(KeySkipUpdate, opts.SkipUpdate)
	v.SetDefault(KeyDev, false)
	v.SetDefault(KeyProd, false)
	v.SetDefault(KeyUnknowns, opts.Unknowns)
	v.SetDefault(KeyWarningsOff, opts.WarningsOff)
	v.SetDefault(KeyStreamOutput, opts.StreamOutput)
	v.SetDefault(KeyTimeout, opts.Timeout)
	v.SetDefault(KeyPolicy, opts.PolicyPath)
	v.SetDefault(KeyRepoBackend, string(opts.RepoBackend))
	v.SetDefault(KeyOutput, report.Output)
	v.SetDefault(KeyFormat, report.Format)
	v.SetDefault(KeyCSV, report.CSV)
	v.SetDefault(KeyNoSave, report.NoSave)
	v.SetDefault(KeyProductionOnly, report.ProductionOnly)
}

// findSettingsFile returns the explicit settings file, or the first
// .licensescan.<ext> in the working directory, or the first config.<ext>
// in the user configuration directory. No file is not an error.
func findSettingsFile(opts LoadOptions) (string, error) {
	if opts.SettingsFile != "" {
		if !fileExists(opts.SettingsFile) {
			return "", issue.NewErrorContext().
				WithOperation("load settings").
				WithResource(opts.SettingsFile).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Check that the file exists and is readable").
				Wrap(configurationError(opts.SettingsFile, os.ErrNotExist)).
				BuildError()
		}
		return opts.SettingsFile, nil
	}

	for _, ext := range settingsExtensions {
		p := filepath.Join(opts.WorkDir, SettingsFileName+"."+ext)
		if fileExists(p) {
			return p, nil
		}
	}

	cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
	if err != nil {
		// A missing home directory only disables the per-user file.
		return "", nil //nolint:nilerr // user settings are optional
	}
	for _, ext := range settingsExtensions {
		p := filepath.Join(cfgDir, UserSettingsFileName+"."+ext)
		if fileExists(p) {
			return p, nil
		}
	}
	return "", nil
}

func fromViper(v *viper.Viper) (*Settings, error) {
	dev, prod := v.GetBool(KeyDev), v.GetBool(KeyProd)
	if dev && prod {
		return nil, configurationError("--dev/--prod", ErrConflictingCategorization)
	}
	categorization := policy.CategorizeNone
	switch {
	case dev:
		categorization = policy.CategorizeDev
	case prod:
		categorization = policy.CategorizeProd
	}

	s := &Settings{
		Options: Options{
			EnableUnclean:  v.GetBool(KeyEnableUnclean),
			SkipNode:       v.GetBool(KeySkipNode),
			SkipBower:      v.GetBool(KeySkipBower),
			SkipUpdate:     v.GetBool(KeySkipUpdate),
			Categorization: categorization,
			Unknowns:       v.GetBool(KeyUnknowns),
			WarningsOff:    v.GetBool(KeyWarningsOff),
			StreamOutput:   v.GetBool(KeyStreamOutput),
			Timeout:        v.GetDuration(KeyTimeout),
			PolicyPath:     v.GetString(KeyPolicy),
			RepoBackend:    gitstate.Backend(v.GetString(KeyRepoBackend)),
		},
		Report: ReportOptions{
			Output:         v.GetString(KeyOutput),
			Format:         v.GetString(KeyFormat),
			CSV:            v.GetBool(KeyCSV),
			NoSave:         v.GetBool(KeyNoSave),
			ProductionOnly: v.GetBool(KeyProductionOnly),
		},
	}
	if err := s.Options.Validate(); err != nil {
		return nil, err
	}
	if err := s.Report.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}
