// SPDX-License-Identifier: MPL-2.0

package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/CycloneDX/cyclonedx-go"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/connectedyard/licensescan/internal/config"
	"github.com/connectedyard/licensescan/internal/dependency"
	"github.com/connectedyard/licensescan/internal/platform"
)

// DefaultBaseName is the report file name used when the output is a directory.
const DefaultBaseName = "license-report"

// ErrWrite is the sentinel error wrapped by WriteError.
var ErrWrite = errors.New("failed to write report")

var (
	formatExtensions = map[string]string{
		config.FormatJSON:      ".json",
		config.FormatYAML:      ".yaml",
		config.FormatTOML:      ".toml",
		config.FormatCycloneDX: ".cdx.json",
	}

	// An output path with one of these extensions names the report file.
	reportExtensions = []string{".json", ".yaml", ".yml", ".toml"}

	csvHeader = []string{"name", "version", "licenses", "repository", "publisher", "email", "path", "depth", "isProduction"}
)

type (
	// WriteError is returned when an artifact could not be encoded or saved.
	WriteError struct {
		Path string
		Err  error
	}

	// Document is the consolidated report.
	Document struct {
		RunID        string             `json:"runId" yaml:"runId" toml:"runId"`
		GeneratedAt  time.Time          `json:"generatedAt" yaml:"generatedAt" toml:"generatedAt"`
		Directories  []DirectorySummary `json:"directories" yaml:"directories" toml:"directories"`
		Dependencies []Module           `json:"dependencies" yaml:"dependencies" toml:"dependencies"`
	}

	// DirectorySummary tells an empty scan apart from an aborted or failed one.
	DirectorySummary struct {
		Directory string   `json:"directory" yaml:"directory" toml:"directory"`
		Status    string   `json:"status" yaml:"status" toml:"status"`
		Node      string   `json:"node" yaml:"node" toml:"node"`
		Bower     string   `json:"bower" yaml:"bower" toml:"bower"`
		Errors    []string `json:"errors,omitempty" yaml:"errors,omitempty" toml:"errors,omitempty"`
	}

	// Writer saves the artifacts of an Aggregate.
	Writer struct {
		opts config.ReportOptions
		// baseDir resolves a relative output path.
		baseDir     string
		toolVersion string
	}

	// Artifacts lists the files a Writer produced.
	Artifacts struct {
		Report string
		CSV    []string
	}
)

// Error implements the error interface.
func (e *WriteError) Error() string {
	return fmt.Sprintf("%s %s: %v", ErrWrite, e.Path, e.Err)
}

// Unwrap returns both ErrWrite and the underlying cause.
func (e *WriteError) Unwrap() []error { return []error{ErrWrite, e.Err} }

// NewWriter creates a Writer. A relative opts.Output is resolved against
// baseDir.
func NewWriter(opts config.ReportOptions, baseDir, toolVersion string) *Writer {
	return &Writer{opts: opts, baseDir: baseDir, toolVersion: toolVersion}
}

// NewDocument builds the consolidated report of agg.
func NewDocument(agg *Aggregate, productionOnly bool) Document {
	doc := Document{
		RunID:        agg.RunID.String(),
		GeneratedAt:  agg.GeneratedAt.UTC(),
		Directories:  make([]DirectorySummary, 0, len(agg.Directories)),
		Dependencies: agg.Dependencies(productionOnly),
	}
	if doc.Dependencies == nil {
		doc.Dependencies = []Module{}
	}
	for _, d := range agg.Directories {
		doc.Directories = append(doc.Directories, DirectorySummary{
			Directory: d.Directory,
			Status:    string(d.Status),
			Node:      stateString(d.NodeState),
			Bower:     stateString(d.BowerState),
			Errors:    d.Errors,
		})
	}
	return doc
}

func stateString[S ~string](s S) string {
	if s == "" {
		return "pending"
	}
	return string(s)
}

// ReportPath returns the file the consolidated report is written to.
func (w *Writer) ReportPath() string {
	out := w.opts.Output
	if out == "" {
		out = w.baseDir
	} else if !filepath.IsAbs(out) {
		out = filepath.Join(w.baseDir, out)
	}
	if isReportFile(out) {
		return filepath.Clean(out)
	}
	return filepath.Join(out, DefaultBaseName+formatExtensions[w.format()])
}

func (w *Writer) format() string {
	if w.opts.Format == "" {
		return config.FormatJSON
	}
	return w.opts.Format
}

func isReportFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, known := range reportExtensions {
		if ext == known {
			return true
		}
	}
	return false
}

// Write saves the consolidated report and, if enabled, the CSV files next
// to it. With NoSave nothing is written.
func (w *Writer) Write(agg *Aggregate) (Artifacts, error) {
	var art Artifacts
	if w.opts.NoSave {
		slog.Debug("report saving disabled")
		return art, nil
	}

	path := w.ReportPath()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return art, &WriteError{Path: dir, Err: err}
	}

	data, err := w.Encode(agg)
	if err != nil {
		return art, &WriteError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return art, &WriteError{Path: path, Err: err}
	}
	art.Report = path
	slog.Info("report written", "path", path, "format", w.format(), "dependencies", len(agg.Dependencies(w.opts.ProductionOnly)))

	if w.opts.CSV {
		art.CSV, err = WriteCSV(agg, dir)
		if err != nil {
			return art, err
		}
	}
	return art, nil
}

// Encode renders the consolidated report in the configured format.
func (w *Writer) Encode(agg *Aggregate) ([]byte, error) {
	var buf bytes.Buffer
	switch format := w.format(); format {
	case config.FormatJSON:
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(NewDocument(agg, w.opts.ProductionOnly)); err != nil {
			return nil, fmt.Errorf("failed to encode JSON report: %w", err)
		}
	case config.FormatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(NewDocument(agg, w.opts.ProductionOnly)); err != nil {
			return nil, fmt.Errorf("failed to encode YAML report: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to encode YAML report: %w", err)
		}
	case config.FormatTOML:
		if err := toml.NewEncoder(&buf).Encode(NewDocument(agg, w.opts.ProductionOnly)); err != nil {
			return nil, fmt.Errorf("failed to encode TOML report: %w", err)
		}
	case config.FormatCycloneDX:
		bom := ToCycloneDX(agg, agg.Dependencies(w.opts.ProductionOnly), w.toolVersion)
		if err := cyclonedx.NewBOMEncoder(&buf, cyclonedx.BOMFileFormatJSON).SetPretty(true).Encode(bom); err != nil {
			return nil, fmt.Errorf("failed to encode CycloneDX report: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported report format %q", format)
	}
	return buf.Bytes(), nil
}

// WriteCSV writes <name>_node_license.csv and <name>_bower_license.csv into
// dir for every directory with records of that ecosystem. name is the
// directory's base name made safe for every platform, suffixed with a
// counter when another scanned directory already claimed the name.
func WriteCSV(agg *Aggregate, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &WriteError{Path: dir, Err: err}
	}

	var written []string
	used := make(map[string]bool)
	for _, d := range agg.Directories {
		name := uniqueName(used, platform.SafeFileName(filepath.Base(d.Directory)))

		for _, eco := range dependency.Ecosystems() {
			records := d.Node
			if eco == dependency.EcosystemBower {
				records = d.Bower
			}
			if len(records) == 0 {
				continue
			}
			path := filepath.Join(dir, name+"_"+eco.String()+"_license.csv")
			if err := writeCSVFile(path, records); err != nil {
				return written, err
			}
			written = append(written, path)
		}
	}
	return written, nil
}

// uniqueName returns base, or base-2, base-3 and so on, whichever is not in
// used yet, and records the choice. Names compare case-insensitively so
// the files stay distinct on case-insensitive file systems.
func uniqueName(used map[string]bool, base string) string {
	name := base
	for n := 2; used[strings.ToLower(name)]; n++ {
		name = base + "-" + strconv.Itoa(n)
	}
	used[strings.ToLower(name)] = true
	return name
}

func writeCSVFile(path string, records []dependency.Record) error {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, csvHeader)
	for _, r := range records {
		rows = append(rows, []string{
			r.Name,
			r.Version,
			r.Licenses.String(),
			r.Repository,
			r.Publisher,
			r.Email,
			r.Path,
			strconv.Itoa(r.Depth),
			strconv.FormatBool(r.IsProduction),
		})
	}
	if err := cw.WriteAll(rows); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}
