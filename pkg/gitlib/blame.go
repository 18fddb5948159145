package gitlib

import (
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// Blame wraps a libgit2 blame result.
type Blame struct {
	blame *git2go.Blame
}

// CommitAt returns the commit that last changed the 1-based line.
// Hunk line ranges are 16-bit in the bindings, so attribution goes through
// the per-line lookup, which is exact for files of any length.
func (b *Blame) CommitAt(line int) (Hash, error) {
	if line < 1 {
		return Hash{}, fmt.Errorf("%w: blame line %d", ErrNotFound, line)
	}

	hunk, err := b.blame.HunkByLine(line)
	if err != nil {
		return Hash{}, fmt.Errorf("%w: blame line %d: %w", ErrNotFound, line, err)
	}

	return HashFromOid(hunk.FinalCommitId), nil
}

// Free releases the blame resources.
func (b *Blame) Free() {
	if b.blame == nil {
		return
	}

	_ = b.blame.Free()
	b.blame = nil
}
