package history

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Sumatoshi-tech/timemachine/pkg/gitaccess"
)

// unknownPath is the display path of a delta with neither side named.
const unknownPath = "unknown"

// fileAccumulator collects the diff text of one display path.
type fileAccumulator struct {
	index   int
	text    strings.Builder
	headers map[string]struct{}
}

// SynthesizeChanges converts a raw diff into FileChanges in delta order.
func SynthesizeChanges(diff *gitaccess.Diff) ([]FileChange, error) {
	changes := make([]FileChange, 0, len(diff.Deltas))
	byPath := make(map[string]*fileAccumulator, len(diff.Deltas))

	// First pass: one record per delta. A later delta for the same display
	// path takes over the accumulator.
	for _, delta := range diff.Deltas {
		path := displayPath(delta)

		changes = append(changes, FileChange{Path: path, ChangeType: classify(delta.Status)})
		byPath[path] = &fileAccumulator{index: len(changes) - 1, headers: make(map[string]struct{})}
	}

	// Second pass: hunks and lines.
	for _, delta := range diff.Deltas {
		if delta.Binary {
			continue
		}

		path := displayPath(delta)

		acc, ok := byPath[path]
		if !ok {
			return nil, fmt.Errorf("%w: no diff entry for %q", ErrOther, path)
		}

		for _, hunk := range delta.Hunks {
			if len(hunk.Lines) == 0 {
				continue
			}

			header := fmt.Sprintf("@@ -%d,%d +%d,%d @@\n", hunk.OldStart, hunk.OldLines, hunk.NewStart, hunk.NewLines)
			if _, seen := acc.headers[header]; !seen {
				acc.headers[header] = struct{}{}
				acc.text.WriteString(header)
			}

			for _, line := range hunk.Lines {
				appendLine(acc, &changes[acc.index], line)
			}
		}
	}

	for _, acc := range byPath {
		text := acc.text.String()
		changes[acc.index].Diff = &text
	}

	for i := range changes {
		if changes[i].Diff == nil {
			empty := ""
			changes[i].Diff = &empty
		}
	}

	return changes, nil
}

func appendLine(acc *fileAccumulator, change *FileChange, line gitaccess.Line) {
	var prefix byte

	switch line.Origin {
	case gitaccess.OriginAddition:
		prefix = '+'
		change.Additions++
	case gitaccess.OriginDeletion:
		prefix = '-'
		change.Deletions++
	default:
		prefix = ' '
	}

	acc.text.WriteByte(prefix)

	if utf8.Valid(line.Content) {
		acc.text.Write(line.Content)
	}
}

func displayPath(delta gitaccess.Delta) string {
	switch {
	case delta.NewPath != "":
		return delta.NewPath
	case delta.OldPath != "":
		return delta.OldPath
	default:
		return unknownPath
	}
}

func classify(status gitaccess.DeltaStatus) ChangeType {
	switch status {
	case gitaccess.StatusAdded:
		return ChangeAdded
	case gitaccess.StatusDeleted:
		return ChangeDeleted
	case gitaccess.StatusRenamed:
		return ChangeRenamed
	default:
		return ChangeModified
	}
}

// summarize renders the deterministic summary sentence.
func summarize(baseID, headID string, stats DiffStats) string {
	return fmt.Sprintf("Changes between %s and %s: %d files changed, %d insertions(+), %d deletions(-)",
		shortID(baseID), shortID(headID), stats.FilesChanged, stats.Insertions, stats.Deletions)
}

func shortID(id string) string {
	const size = 7
	if len(id) <= size {
		return id
	}

	return id[:size]
}
