// SPDX-License-Identifier: MPL-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/connectedyard/licensescan/internal/dependency"
	"github.com/connectedyard/licensescan/internal/ecosystem"
	"github.com/connectedyard/licensescan/internal/gitstate"
	"github.com/connectedyard/licensescan/internal/policy"
)

const (
	// FormatJSON is the default consolidated report format.
	FormatJSON = "json"
	// FormatYAML writes the consolidated report as YAML.
	FormatYAML = "yaml"
	// FormatTOML writes the consolidated report as TOML.
	FormatTOML = "toml"
	// FormatCycloneDX writes a CycloneDX JSON bill of materials.
	FormatCycloneDX = "cyclonedx"
)

// ErrConfiguration is the sentinel wrapped by ConfigurationError.
var ErrConfiguration = errors.New("configuration error")

var validate = validator.New(validator.WithRequiredStructEnabled())

type (
	// ConfigurationError reports malformed or contradictory input. It is
	// always fatal and is raised before any directory is scanned.
	ConfigurationError struct {
		// Source names the offending file or flag, when there is one.
		Source string
		Err    error
	}

	// CommandLines replaces an ecosystem's install or prune command with a
	// shell-style command line. Empty fields keep the default.
	CommandLines struct {
		Install string `json:"install,omitempty"`
		Prune   string `json:"prune,omitempty"`
	}

	// Options is the effective configuration of a single directory scan.
	Options struct {
		EnableUnclean bool
		SkipNode      bool
		SkipBower     bool
		SkipUpdate    bool

		Categorization policy.Categorization `validate:"omitempty,oneof=prod dev"`

		Unknowns     bool
		WarningsOff  bool
		StreamOutput bool

		// Timeout bounds every external command; zero means no limit.
		Timeout time.Duration `validate:"gte=0"`

		// PolicyPath is the license policy document, if any.
		PolicyPath string

		RepoBackend gitstate.Backend `validate:"omitempty,oneof=git go-git"`

		Commands map[dependency.Ecosystem]CommandLines
	}

	// ReportOptions controls the artifacts written after a run.
	ReportOptions struct {
		Output         string
		Format         string `validate:"oneof=json yaml toml cyclonedx"`
		CSV            bool
		NoSave         bool
		ProductionOnly bool
	}

	// Overrides is a sparse Options: only fields present in the document are
	// set and only those replace the base when merged.
	Overrides struct {
		EnableUnclean  *bool                                 `json:"enableUnclean,omitempty"`
		SkipNode       *bool                                 `json:"skipNode,omitempty"`
		SkipBower      *bool                                 `json:"skipBower,omitempty"`
		SkipUpdate     *bool                                 `json:"skipUpdate,omitempty"`
		Categorization *policy.Categorization                `json:"overrideCategorization,omitempty"`
		Unknowns       *bool                                 `json:"unknowns,omitempty"`
		WarningsOff    *bool                                 `json:"warningsOff,omitempty"`
		StreamOutput   *bool                                 `json:"streamOutput,omitempty"`
		Timeout        *Duration                             `json:"timeout,omitempty"`
		PolicyPath     *string                               `json:"config,omitempty"`
		RepoBackend    *gitstate.Backend                     `json:"repoBackend,omitempty"`
		Commands       map[dependency.Ecosystem]CommandLines `json:"commands,omitempty"`
	}

	// ReportOverrides is the run configuration's output block.
	ReportOverrides struct {
		Path           *string `json:"path,omitempty"`
		Format         *string `json:"format,omitempty"`
		CSV            *bool   `json:"csv,omitempty"`
		ProductionOnly *bool   `json:"productionOnly,omitempty"`
	}

	// Duration is a time.Duration written as a Go duration string ("90s").
	Duration time.Duration
)

func (e *ConfigurationError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("%s: %v", ErrConfiguration, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrConfiguration, e.Source, e.Err)
}

// Unwrap exposes both ErrConfiguration and the underlying cause.
func (e *ConfigurationError) Unwrap() []error { return []error{ErrConfiguration, e.Err} }

func configurationError(source string, err error) error {
	var ce *ConfigurationError
	if errors.As(err, &ce) {
		return err
	}
	return &ConfigurationError{Source: source, Err: err}
}

// UnmarshalJSON parses a duration string such as "2m30s".
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalJSON writes the duration string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// DefaultOptions returns the built-in defaults: clean repositories required,
// both ecosystems scanned and updated, git CLI backend.
func DefaultOptions() Options {
	return Options{RepoBackend: gitstate.BackendGit}
}

// DefaultReportOptions returns JSON output into the current directory.
func DefaultReportOptions() ReportOptions {
	return ReportOptions{Format: FormatJSON}
}

// Merge returns o with every field set in ov replaced. Command overrides
// merge per ecosystem and per step. A nil ov returns o unchanged.
func (o Options) Merge(ov *Overrides) Options {
	if ov == nil {
		return o
	}
	setBool(&o.EnableUnclean, ov.EnableUnclean)
	setBool(&o.SkipNode, ov.SkipNode)
	setBool(&o.SkipBower, ov.SkipBower)
	setBool(&o.SkipUpdate, ov.SkipUpdate)
	setBool(&o.Unknowns, ov.Unknowns)
	setBool(&o.WarningsOff, ov.WarningsOff)
	setBool(&o.StreamOutput, ov.StreamOutput)
	if ov.Categorization != nil {
		o.Categorization = *ov.Categorization
	}
	if ov.Timeout != nil {
		o.Timeout = time.Duration(*ov.Timeout)
	}
	if ov.PolicyPath != nil {
		o.PolicyPath = *ov.PolicyPath
	}
	if ov.RepoBackend != nil {
		o.RepoBackend = *ov.RepoBackend
	}
	if len(ov.Commands) > 0 {
		merged := make(map[dependency.Ecosystem]CommandLines, len(o.Commands)+len(ov.Commands))
		for eco, c := range o.Commands {
			merged[eco] = c
		}
		for eco, c := range ov.Commands {
			cur := merged[eco]
			if c.Install != "" {
				cur.Install = c.Install
			}
			if c.Prune != "" {
				cur.Prune = c.Prune
			}
			merged[eco] = cur
		}
		o.Commands = merged
	}
	return o
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// Validate checks field constraints and that every command override parses.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return configurationError("", describeValidation(err))
	}
	if _, err := o.EcosystemCommands(); err != nil {
		return configurationError("", err)
	}
	return nil
}

// EcosystemCommands resolves the install and prune argv of both ecosystems.
func (o Options) EcosystemCommands() (map[dependency.Ecosystem]ecosystem.Commands, error) {
	out := make(map[dependency.Ecosystem]ecosystem.Commands, 2)
	for _, eco := range dependency.Ecosystems() {
		lines := o.Commands[eco]
		cmds, err := ecosystem.DefaultCommands(eco).WithOverrides(lines.Install, lines.Prune)
		if err != nil {
			return nil, fmt.Errorf("%s commands: %w", eco, err)
		}
		out[eco] = cmds
	}
	for eco := range o.Commands {
		if err := eco.Validate(); err != nil {
			return nil, fmt.Errorf("commands: %w", err)
		}
	}
	return out, nil
}

// Merge returns r with every field set in ov replaced.
func (r ReportOptions) Merge(ov *ReportOverrides) ReportOptions {
	if ov == nil {
		return r
	}
	if ov.Path != nil {
		r.Output = *ov.Path
	}
	if ov.Format != nil {
		r.Format = *ov.Format
	}
	setBool(&r.CSV, ov.CSV)
	setBool(&r.ProductionOnly, ov.ProductionOnly)
	return r
}

// Validate checks the report format.
func (r ReportOptions) Validate() error {
	if err := validate.Struct(r); err != nil {
		return configurationError("", describeValidation(err))
	}
	return nil
}

// describeValidation turns validator field errors into one readable error.
func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s: %q is not one of %s", fe.Field(), fmt.Sprint(fe.Value()), fe.Param()))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s: must not be negative", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
