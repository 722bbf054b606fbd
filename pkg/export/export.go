// Package export writes snapshots of the track repository to files: a
// queryable SQLite database, SVG or PNG progress charts, and a markdown
// report.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/vanderheijden86/conductor-dashboard/pkg/metrics"
	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
)

// Format selects an exporter.
type Format string

const (
	FormatSQLite   Format = "sqlite"
	FormatSVG      Format = "svg"
	FormatPNG      Format = "png"
	FormatMarkdown Format = "markdown"
)

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatSQLite, FormatSVG, FormatPNG, FormatMarkdown}
}

// ParseFormat accepts a format name or a file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "sqlite", "sqlite3", "db":
		return FormatSQLite, nil
	case "svg":
		return FormatSVG, nil
	case "png":
		return FormatPNG, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unsupported format %q (want sqlite, svg, png or markdown)", s)
}

// Options controls a snapshot export.
type Options struct {
	Path   string // Output path; format inferred from extension when Format is empty
	Format Format
	Title  string
	Tracks []model.Track
	// Root is the conductor directory the tracks were read from. Recorded
	// as provenance only.
	Root string
	Now  time.Time
}

// Export writes opts.Tracks in the requested format.
func Export(opts Options) error {
	defer metrics.Timer(metrics.Export)()

	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}
	if opts.Format == "" {
		f, err := ParseFormat(filepath.Ext(opts.Path))
		if err != nil {
			return fmt.Errorf("cannot infer format from %s: %w", opts.Path, err)
		}
		opts.Format = f
	}
	if opts.Title == "" {
		opts.Title = "Conductor Tracks"
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	// Exports are ordered by id regardless of how the caller sorted.
	opts.Tracks = slices.Clone(opts.Tracks)
	slices.SortFunc(opts.Tracks, func(a, b model.Track) int { return strings.Compare(string(a.ID), string(b.ID)) })

	if dir := filepath.Dir(opts.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create parent dir: %w", err)
		}
	}

	switch opts.Format {
	case FormatSQLite:
		return NewSQLiteExporter(opts).Export(opts.Path)
	case FormatSVG, FormatPNG:
		return SaveChart(opts)
	case FormatMarkdown:
		return SaveMarkdown(opts)
	default:
		return fmt.Errorf("unsupported format %q", opts.Format)
	}
}
