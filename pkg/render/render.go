// Package render prints history results as terminal text, JSON or YAML, and
// draws commit activity as an HTML chart.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/timemachine/pkg/history"
)

// Format selects how results are printed.
type Format string

// Output formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned by ParseFormat for unsupported names.
var ErrUnknownFormat = errors.New("unknown output format")

// shortIDLen is the commit id width in text output.
const shortIDLen = 8

// ParseFormat converts a --format value.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q (want text, json or yaml)", ErrUnknownFormat, name)
	}
}

// Options configures a Printer.
type Options struct {
	Format Format
	// Color enables ANSI colours and syntax highlighting in text output.
	Color bool
	// Now anchors relative times. Nil uses time.Now.
	Now func() time.Time
}

// Printer writes results to one writer.
type Printer struct {
	w       io.Writer
	opts    Options
	palette palette
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer, opts Options) *Printer {
	if opts.Format == "" {
		opts.Format = FormatText
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Printer{w: w, opts: opts, palette: newPalette(opts.Color)}
}

// Blame prints per-line attribution.
func (p *Printer) Blame(result *history.BlameResult) error {
	if done, err := p.structured(result); done {
		return err
	}

	_, err := fmt.Fprintln(p.w, p.blameTable(result))

	return err
}

// CommitDiff prints a commit header followed by its changes.
func (p *Printer) CommitDiff(result *history.CommitDiff) error {
	if done, err := p.structured(result); done {
		return err
	}

	var sb strings.Builder

	p.writeCommitHeader(&sb, result.Commit)

	for _, change := range result.Changes {
		sb.WriteString("\n")
		p.writeChange(&sb, change)
	}

	_, err := io.WriteString(p.w, sb.String())

	return err
}

// Summary prints the summary sentence and a per-file table.
func (p *Printer) Summary(result *history.DiffSummary) error {
	if done, err := p.structured(result); done {
		return err
	}

	var sb strings.Builder

	sb.WriteString(p.palette.header.Sprint(result.Summary))
	sb.WriteString("\n\n")
	sb.WriteString(p.changesTable(result.Changes, result.Stats))
	sb.WriteString("\n")

	_, err := io.WriteString(p.w, sb.String())

	return err
}

// Commits prints the commits that touched a file.
func (p *Printer) Commits(result *history.CommitsAffectingResult) error {
	if done, err := p.structured(result); done {
		return err
	}

	if len(result.Commits) == 0 {
		_, err := fmt.Fprintf(p.w, "No commits touch %s\n", result.File)

		return err
	}

	_, err := fmt.Fprintln(p.w, p.commitsTable(result.Commits))

	return err
}

// File prints a historical file, highlighted when colours are on.
func (p *Printer) File(result *history.FileAtCommitResult) error {
	if done, err := p.structured(result); done {
		return err
	}

	header := fmt.Sprintf("%s @ %s", result.File, shortID(result.Commit.SHA))
	if result.Language != "" {
		header += " · " + result.Language
	}

	header += " · " + formatSize(result.Size)

	_, err := fmt.Fprintln(p.w, p.palette.header.Sprint(header))
	if err != nil {
		return err
	}

	if !p.opts.Color {
		_, err = io.WriteString(p.w, result.Content)

		return err
	}

	return highlight(p.w, result.File, result.Language, result.Content)
}

// structured handles the JSON and YAML formats. It reports whether value
// was written.
func (p *Printer) structured(value any) (bool, error) {
	switch p.opts.Format {
	case FormatJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")

		err := enc.Encode(value)
		if err != nil {
			return true, fmt.Errorf("encode json: %w", err)
		}

		return true, nil
	case FormatYAML:
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)

		err := enc.Encode(value)
		if err != nil {
			return true, fmt.Errorf("encode yaml: %w", err)
		}

		return true, enc.Close()
	default:
		return false, nil
	}
}

func (p *Printer) writeCommitHeader(sb *strings.Builder, commit history.CommitRecord) {
	sb.WriteString(p.palette.commit.Sprintf("commit %s", commit.SHA))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "Author: %s <%s>\n", commit.Author, commit.Email)
	fmt.Fprintf(sb, "Date:   %s (%s)\n\n", commit.Timestamp, p.relativeTime(commit.Timestamp))

	for line := range strings.SplitSeq(strings.TrimRight(commit.Message, "\n"), "\n") {
		sb.WriteString("    " + line + "\n")
	}
}

func (p *Printer) writeChange(sb *strings.Builder, change history.FileChange) {
	sb.WriteString(p.palette.header.Sprintf("%s %s", change.ChangeType, change.Path))
	fmt.Fprintf(sb, " (%s %s)\n",
		p.palette.added.Sprintf("+%d", change.Additions),
		p.palette.removed.Sprintf("-%d", change.Deletions))

	text := change.DiffText()
	if text == "" {
		sb.WriteString("    (no textual diff)\n")

		return
	}

	for line := range strings.SplitSeq(strings.TrimSuffix(text, "\n"), "\n") {
		sb.WriteString(p.palette.diffLine(line))
		sb.WriteString("\n")
	}
}

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}

	return id
}

func firstLine(message string) string {
	line, _, _ := strings.Cut(message, "\n")

	return strings.TrimSpace(line)
}
