package gitlib

import (
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// DefaultContextLines is the number of unchanged lines kept around a change.
const DefaultContextLines = 3

// DiffOptions configures a tree-to-tree diff.
type DiffOptions struct {
	// Pathspec restricts the diff to matching paths.
	Pathspec []string
	// ContextLines is the number of unchanged lines around each change.
	ContextLines int
	// ShowBinary asks libgit2 to classify binary content instead of
	// treating it as text.
	ShowBinary bool
	// DetectRenames pairs deleted and added files into renames.
	DetectRenames bool
}

func (o DiffOptions) native() (*git2go.DiffOptions, error) {
	opts, err := git2go.DefaultDiffOptions()
	if err != nil {
		return nil, fmt.Errorf("get diff options: %w", err)
	}

	if o.ShowBinary {
		opts.Flags |= git2go.DiffShowBinary
	}

	if o.ContextLines >= 0 {
		opts.ContextLines = uint32(o.ContextLines)
	}

	if len(o.Pathspec) > 0 {
		opts.Pathspec = o.Pathspec
	}

	return &opts, nil
}

// DiffDelta represents a file change in a diff.
type DiffDelta struct {
	Status  git2go.Delta
	OldFile DiffFile
	NewFile DiffFile
	Flags   git2go.DiffFlag
}

// IsBinary reports whether either side of the delta is binary.
func (d DiffDelta) IsBinary() bool {
	return d.Flags&git2go.DiffFlagBinary != 0
}

// DiffFile represents a file in a diff delta.
type DiffFile struct {
	Path string
	Hash Hash
	Size int64
}

// DiffHunk is the header of a contiguous block of changed lines.
type DiffHunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
}

// DiffLine is one line of a hunk. Origin carries the git origin character:
// '+', '-', ' ' or one of the end-of-file markers.
type DiffLine struct {
	Origin  byte
	Content string
}

// Callbacks for Diff.ForEach. A nil hunk or line callback skips that level.
type (
	DiffFileCallback func(delta DiffDelta) (DiffHunkCallback, error)
	DiffHunkCallback func(hunk DiffHunk) (DiffLineCallback, error)
	DiffLineCallback func(line DiffLine) error
)

// Diff wraps a libgit2 diff.
type Diff struct {
	diff *git2go.Diff
}

// NumDeltas returns the number of deltas in the diff.
func (d *Diff) NumDeltas() (int, error) {
	numDeltas, err := d.diff.NumDeltas()
	if err != nil {
		return 0, fmt.Errorf("get num deltas: %w", err)
	}

	return numDeltas, nil
}

// Delta returns the delta at the given index.
func (d *Diff) Delta(index int) (DiffDelta, error) {
	delta, err := d.diff.Delta(index)
	if err != nil {
		return DiffDelta{}, fmt.Errorf("get delta: %w", err)
	}

	return wrapDelta(delta), nil
}

// ForEach walks deltas, hunks and lines in diff order.
func (d *Diff) ForEach(fileCallback DiffFileCallback) error {
	err := d.diff.ForEach(func(delta git2go.DiffDelta, _ float64) (git2go.DiffForEachHunkCallback, error) {
		onHunk, err := fileCallback(wrapDelta(delta))
		if err != nil || onHunk == nil {
			return nil, err
		}

		return func(hunk git2go.DiffHunk) (git2go.DiffForEachLineCallback, error) {
			onLine, err := onHunk(DiffHunk{
				OldStart: hunk.OldStart,
				OldLines: hunk.OldLines,
				NewStart: hunk.NewStart,
				NewLines: hunk.NewLines,
			})
			if err != nil || onLine == nil {
				return nil, err
			}

			return func(line git2go.DiffLine) error {
				return onLine(DiffLine{Origin: byte(line.Origin), Content: line.Content})
			}, nil
		}, nil
	}, git2go.DiffDetailLines)
	if err != nil {
		return fmt.Errorf("diff foreach: %w", err)
	}

	return nil
}

// Stats returns the diff stats.
func (d *Diff) Stats() (*DiffStats, error) {
	stats, err := d.diff.Stats()
	if err != nil {
		return nil, fmt.Errorf("get diff stats: %w", err)
	}

	return &DiffStats{stats: stats}, nil
}

func (d *Diff) findRenames() error {
	opts, err := git2go.DefaultDiffFindOptions()
	if err != nil {
		return fmt.Errorf("get diff find options: %w", err)
	}

	opts.Flags |= git2go.DiffFindRenames

	err = d.diff.FindSimilar(&opts)
	if err != nil {
		return fmt.Errorf("find renames: %w", err)
	}

	return nil
}

// Free releases the diff resources.
func (d *Diff) Free() {
	if d.diff == nil {
		return
	}

	// Free errors are not actionable during cleanup.
	_ = d.diff.Free()
	d.diff = nil
}

func wrapDelta(delta git2go.DiffDelta) DiffDelta {
	return DiffDelta{
		Status:  delta.Status,
		OldFile: DiffFile{Path: delta.OldFile.Path, Hash: HashFromOid(delta.OldFile.Oid), Size: int64(delta.OldFile.Size)},
		NewFile: DiffFile{Path: delta.NewFile.Path, Hash: HashFromOid(delta.NewFile.Oid), Size: int64(delta.NewFile.Size)},
		Flags:   delta.Flags,
	}
}

// DiffStats wraps libgit2 diff stats.
type DiffStats struct {
	stats *git2go.DiffStats
}

// Insertions returns the number of insertions.
func (s *DiffStats) Insertions() int {
	return s.stats.Insertions()
}

// Deletions returns the number of deletions.
func (s *DiffStats) Deletions() int {
	return s.stats.Deletions()
}

// FilesChanged returns the number of files changed.
func (s *DiffStats) FilesChanged() int {
	return s.stats.FilesChanged()
}

// Free releases the stats resources.
func (s *DiffStats) Free() {
	if s.stats == nil {
		return
	}

	_ = s.stats.Free()
	s.stats = nil
}
