package gitlib

import (
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// SortMode selects the order in which a RevWalk emits commits.
type SortMode uint

// SortTime emits commits newest commit time first.
const SortTime SortMode = SortMode(git2go.SortTime)

// RevWalk wraps a libgit2 revision walker.
type RevWalk struct {
	walk *git2go.RevWalk
	repo *Repository
}

// Push adds a commit to start walking from.
func (w *RevWalk) Push(hash Hash) error {
	err := w.walk.Push(hash.ToOid())
	if err != nil {
		return fmt.Errorf("push %s to revwalk: %w", hash, classify(err))
	}

	return nil
}

// PushHead adds HEAD to start walking from.
func (w *RevWalk) PushHead() error {
	head, err := w.repo.Head()
	if err != nil {
		return err
	}

	return w.Push(head)
}

// Sorting sets the sorting mode for the walker.
func (w *RevWalk) Sorting(mode SortMode) {
	w.walk.Sorting(git2go.SortType(mode))
}

// Free releases the walker resources.
func (w *RevWalk) Free() {
	if w.walk != nil {
		w.walk.Free()
		w.walk = nil
	}
}
