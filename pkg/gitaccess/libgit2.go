package gitaccess

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	git2go "github.com/libgit2/git2go/v34"

	"github.com/Sumatoshi-tech/timemachine/pkg/gitlib"
)

type libgit2Repo struct {
	repo *gitlib.Repository
}

type libgit2Commit struct {
	commit *gitlib.Commit
}

func (c *libgit2Commit) ID() string       { return c.commit.Hash().String() }
func (c *libgit2Commit) Message() string  { return c.commit.Message() }
func (c *libgit2Commit) ParentCount() int { return c.commit.NumParents() }
func (c *libgit2Commit) Free()            { c.commit.Free() }

func (c *libgit2Commit) Author() Signature {
	sig := c.commit.Author()

	return Signature{Name: sig.Name, Email: sig.Email, When: sig.When}
}

type libgit2Tree struct {
	tree *gitlib.Tree
}

func (t *libgit2Tree) ID() string { return t.tree.Hash().String() }
func (t *libgit2Tree) Free()      { t.tree.Free() }

// OpenLibgit2 opens path with the libgit2 backend.
func OpenLibgit2(path string) (Repository, error) {
	repo, err := gitlib.OpenRepository(path)
	if err != nil {
		return nil, err
	}

	return &libgit2Repo{repo: repo}, nil
}

func (r *libgit2Repo) Backend() Backend { return BackendLibgit2 }

func (r *libgit2Repo) Workdir() string { return r.repo.Workdir() }

func (r *libgit2Repo) Close() error {
	r.repo.Free()

	return nil
}

func (r *libgit2Repo) ResolveCommit(ctx context.Context, id string) (Commit, error) {
	if !ValidCommitID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	commit, err := r.repo.LookupCommitPrefix(ctx, strings.ToLower(id))
	if err != nil {
		return nil, translateLibgit2(err)
	}

	return &libgit2Commit{commit: commit}, nil
}

func (r *libgit2Repo) Parent(_ context.Context, c Commit, n int) (Commit, error) {
	native, err := libgit2CommitOf(c)
	if err != nil {
		return nil, err
	}

	parent, err := native.commit.Parent(n)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	return &libgit2Commit{commit: parent}, nil
}

func (r *libgit2Repo) Tree(_ context.Context, c Commit) (Tree, error) {
	native, err := libgit2CommitOf(c)
	if err != nil {
		return nil, err
	}

	tree, err := native.commit.Tree()
	if err != nil {
		return nil, translateLibgit2(err)
	}

	return &libgit2Tree{tree: tree}, nil
}

func (r *libgit2Repo) LookupPath(_ context.Context, t Tree, path string) (Entry, error) {
	native, err := libgit2TreeOf(t)
	if err != nil {
		return Entry{}, err
	}

	if native == nil || path == "" {
		return Entry{}, fmt.Errorf("%w: %q", ErrNotFound, path)
	}

	entry, err := native.tree.EntryByPath(path)
	if err != nil {
		return Entry{}, translateLibgit2(err)
	}

	kind := EntryOther

	switch {
	case entry.IsBlob():
		kind = EntryBlob
	case entry.IsTree():
		kind = EntryTree
	}

	return Entry{ID: entry.Hash().String(), Kind: kind}, nil
}

func (r *libgit2Repo) ReadBlob(ctx context.Context, id string) ([]byte, error) {
	hash, err := gitlib.ParseHash(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidID, err)
	}

	blob, err := r.repo.LookupBlob(ctx, hash)
	if err != nil {
		return nil, translateLibgit2(err)
	}
	defer blob.Free()

	return blob.Contents(), nil
}

func (r *libgit2Repo) DiffTrees(_ context.Context, oldTree, newTree Tree, opts DiffOptions) (*Diff, error) {
	oldNative, err := libgit2TreeOf(oldTree)
	if err != nil {
		return nil, err
	}

	newNative, err := libgit2TreeOf(newTree)
	if err != nil {
		return nil, err
	}

	var oldT, newT *gitlib.Tree
	if oldNative != nil {
		oldT = oldNative.tree
	}

	if newNative != nil {
		newT = newNative.tree
	}

	diff, err := r.repo.DiffTreeToTree(oldT, newT, gitlib.DiffOptions{
		Pathspec:      opts.Pathspec,
		ContextLines:  opts.ContextLines,
		ShowBinary:    opts.ShowBinary,
		DetectRenames: opts.DetectRenames,
	})
	if err != nil {
		return nil, translateLibgit2(err)
	}
	defer diff.Free()

	if opts.NameOnly {
		return collectLibgit2Deltas(diff)
	}

	return collectLibgit2Diff(diff)
}

func collectLibgit2Deltas(diff *gitlib.Diff) (*Diff, error) {
	n, err := diff.NumDeltas()
	if err != nil {
		return nil, err
	}

	out := &Diff{Deltas: make([]Delta, 0, n)}

	for i := range n {
		delta, deltaErr := diff.Delta(i)
		if deltaErr != nil {
			return nil, deltaErr
		}

		out.Deltas = append(out.Deltas, convertLibgit2Delta(delta))
	}

	out.Stats.FilesChanged = len(out.Deltas)

	return out, nil
}

func collectLibgit2Diff(diff *gitlib.Diff) (*Diff, error) {
	out := &Diff{}

	err := diff.ForEach(func(delta gitlib.DiffDelta) (gitlib.DiffHunkCallback, error) {
		out.Deltas = append(out.Deltas, convertLibgit2Delta(delta))
		current := &out.Deltas[len(out.Deltas)-1]

		return func(hunk gitlib.DiffHunk) (gitlib.DiffLineCallback, error) {
			current.Hunks = append(current.Hunks, Hunk{
				OldStart: hunk.OldStart,
				OldLines: hunk.OldLines,
				NewStart: hunk.NewStart,
				NewLines: hunk.NewLines,
			})
			hunkIdx := len(current.Hunks) - 1

			return func(line gitlib.DiffLine) error {
				current.Hunks[hunkIdx].Lines = append(current.Hunks[hunkIdx].Lines, Line{
					Origin:  line.Origin,
					Content: []byte(line.Content),
				})

				return nil
			}, nil
		}, nil
	})
	if err != nil {
		return nil, err
	}

	stats, err := diff.Stats()
	if err != nil {
		return nil, err
	}
	defer stats.Free()

	out.Stats = DiffStats{
		FilesChanged: stats.FilesChanged(),
		Insertions:   stats.Insertions(),
		Deletions:    stats.Deletions(),
	}

	return out, nil
}

func convertLibgit2Delta(delta gitlib.DiffDelta) Delta {
	return Delta{
		Status:  convertLibgit2Status(delta.Status),
		OldPath: delta.OldFile.Path,
		NewPath: delta.NewFile.Path,
		Binary:  delta.IsBinary(),
	}
}

func convertLibgit2Status(status git2go.Delta) DeltaStatus {
	switch status {
	case git2go.DeltaUnmodified:
		return StatusUnmodified
	case git2go.DeltaAdded:
		return StatusAdded
	case git2go.DeltaDeleted:
		return StatusDeleted
	case git2go.DeltaModified:
		return StatusModified
	case git2go.DeltaRenamed:
		return StatusRenamed
	case git2go.DeltaCopied:
		return StatusCopied
	case git2go.DeltaTypeChange:
		return StatusTypeChange
	default:
		return StatusOther
	}
}

func (r *libgit2Repo) WalkFromHead(_ context.Context, fn WalkFunc) error {
	iter, err := r.repo.Log()
	if err != nil {
		return translateLibgit2(err)
	}

	err = iter.ForEach(func(commit *gitlib.Commit) error {
		keepGoing, cbErr := fn(&libgit2Commit{commit: commit})
		if cbErr != nil {
			return cbErr
		}

		if !keepGoing {
			return gitlib.ErrStopIteration
		}

		return nil
	})

	return translateLibgit2(err)
}

func (r *libgit2Repo) Blame(ctx context.Context, path string) (*Blame, error) {
	if r.repo.Workdir() == "" {
		return nil, ErrBareRepository
	}

	blame, err := r.repo.BlameFile(path)
	if err != nil {
		return nil, translateLibgit2(err)
	}
	defer blame.Free()

	count, err := r.headLineCount(ctx, path)
	if err != nil {
		return nil, err
	}

	lines := make([]string, count)

	for i := range lines {
		hash, lineErr := blame.CommitAt(i + 1)
		if lineErr != nil {
			return nil, translateLibgit2(lineErr)
		}

		if !hash.IsZero() {
			lines[i] = hash.String()
		}
	}

	return NewBlame(lines), nil
}

// headLineCount counts the lines of path as committed at HEAD, which is the
// content libgit2 blames.
func (r *libgit2Repo) headLineCount(ctx context.Context, path string) (int, error) {
	head, err := r.repo.Head()
	if err != nil {
		return 0, translateLibgit2(err)
	}

	commit, err := r.repo.LookupCommit(ctx, head)
	if err != nil {
		return 0, translateLibgit2(err)
	}
	defer commit.Free()

	tree, err := commit.Tree()
	if err != nil {
		return 0, translateLibgit2(err)
	}
	defer tree.Free()

	entry, err := tree.EntryByPath(path)
	if err != nil {
		return 0, translateLibgit2(err)
	}

	blob, err := r.repo.LookupBlob(ctx, entry.Hash())
	if err != nil {
		return 0, translateLibgit2(err)
	}
	defer blob.Free()

	return countLines(blob.Contents()), nil
}

// countLines counts newline-terminated lines plus a trailing partial line.
func countLines(data []byte) int {
	count := bytes.Count(data, []byte{'\n'})
	if len(data) > 0 && data[len(data)-1] != '\n' {
		count++
	}

	return count
}

func libgit2CommitOf(c Commit) (*libgit2Commit, error) {
	native, ok := c.(*libgit2Commit)
	if !ok {
		return nil, fmt.Errorf("%w: commit %T", ErrForeignHandle, c)
	}

	return native, nil
}

func libgit2TreeOf(t Tree) (*libgit2Tree, error) {
	if t == nil {
		return nil, nil
	}

	native, ok := t.(*libgit2Tree)
	if !ok {
		return nil, fmt.Errorf("%w: tree %T", ErrForeignHandle, t)
	}

	return native, nil
}

// translateLibgit2 re-wraps gitlib sentinels with the accessor ones.
func translateLibgit2(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gitlib.ErrUnbornHead):
		return fmt.Errorf("%w: %w", ErrEmptyRepository, err)
	case errors.Is(err, gitlib.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, gitlib.ErrAmbiguous):
		return fmt.Errorf("%w: %w", ErrAmbiguous, err)
	case errors.Is(err, gitlib.ErrInvalidHash):
		return fmt.Errorf("%w: %w", ErrInvalidID, err)
	case errors.Is(err, gitlib.ErrBareRepository):
		return fmt.Errorf("%w: %w", ErrBareRepository, err)
	default:
		return err
	}
}
