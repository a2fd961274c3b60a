// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"

	"github.com/spf13/pflag"
)

// LoadOptions defines explicit settings loading inputs.
type LoadOptions struct {
	// SettingsFile forces loading from a specific settings file when set.
	SettingsFile string
	// ConfigDirPath overrides the per-user config directory lookup when set.
	ConfigDirPath string
	// WorkDir is searched for a project-local settings file.
	WorkDir string
	// Flags are bound over the file and environment layers.
	Flags *pflag.FlagSet
}

// Provider loads settings from explicit options.
type Provider interface {
	Load(ctx context.Context, opts LoadOptions) (*Settings, error)
}

type fileProvider struct{}

// NewProvider creates a settings provider.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load reads settings from the requested sources.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Settings, error) {
	return loadWithOptions(ctx, opts)
}
