package gitaccess

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/utils/merkletrie"
)

type gogitRepo struct {
	repo    *git.Repository
	workdir string
}

type gogitCommit struct {
	commit *object.Commit
}

func (c *gogitCommit) ID() string       { return c.commit.Hash.String() }
func (c *gogitCommit) Message() string  { return c.commit.Message }
func (c *gogitCommit) ParentCount() int { return c.commit.NumParents() }
func (c *gogitCommit) Free()            {}

func (c *gogitCommit) Author() Signature {
	return Signature{Name: c.commit.Author.Name, Email: c.commit.Author.Email, When: c.commit.Author.When}
}

type gogitTree struct {
	tree *object.Tree
}

func (t *gogitTree) ID() string { return t.tree.Hash.String() }
func (t *gogitTree) Free()      {}

// OpenGoGit opens path with the pure-Go backend.
func OpenGoGit(path string) (Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	var workdir string

	worktree, err := repo.Worktree()

	switch {
	case err == nil:
		workdir = worktree.Filesystem.Root()
	case errors.Is(err, git.ErrIsBareRepository):
	default:
		return nil, fmt.Errorf("open worktree: %w", err)
	}

	return &gogitRepo{repo: repo, workdir: workdir}, nil
}

func (r *gogitRepo) Backend() Backend { return BackendGoGit }

func (r *gogitRepo) Workdir() string { return r.workdir }

func (r *gogitRepo) Close() error { return nil }

func (r *gogitRepo) ResolveCommit(_ context.Context, id string) (Commit, error) {
	if !ValidCommitID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	id = strings.ToLower(id)

	var hash plumbing.Hash

	if len(id) == 40 {
		hash = plumbing.NewHash(id)
	} else {
		resolved, err := r.resolvePrefix(id)
		if err != nil {
			return nil, err
		}

		hash = resolved
	}

	commit, err := r.repo.CommitObject(hash)
	if err != nil {
		return nil, translateGoGit(err)
	}

	return &gogitCommit{commit: commit}, nil
}

// resolvePrefix scans commit objects for a unique id prefix. Branch and tag
// names never take part, unlike ResolveRevision.
func (r *gogitRepo) resolvePrefix(prefix string) (plumbing.Hash, error) {
	iter, err := r.repo.CommitObjects()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("list commits: %w", err)
	}
	defer iter.Close()

	var (
		found plumbing.Hash
		count int
	)

	err = iter.ForEach(func(c *object.Commit) error {
		if strings.HasPrefix(c.Hash.String(), prefix) {
			found = c.Hash
			count++

			if count > 1 {
				return storer.ErrStop
			}
		}

		return nil
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("list commits: %w", err)
	}

	switch count {
	case 0:
		return plumbing.ZeroHash, fmt.Errorf("%w: commit %s", ErrNotFound, prefix)
	case 1:
		return found, nil
	default:
		return plumbing.ZeroHash, fmt.Errorf("%w: %s", ErrAmbiguous, prefix)
	}
}

func (r *gogitRepo) Parent(_ context.Context, c Commit, n int) (Commit, error) {
	native, err := gogitCommitOf(c)
	if err != nil {
		return nil, err
	}

	if n < 0 || n >= native.commit.NumParents() {
		return nil, fmt.Errorf("%w: %s has no parent %d", ErrNotFound, native.ID(), n)
	}

	parent, err := native.commit.Parent(n)
	if err != nil {
		return nil, translateGoGit(err)
	}

	return &gogitCommit{commit: parent}, nil
}

func (r *gogitRepo) Tree(_ context.Context, c Commit) (Tree, error) {
	native, err := gogitCommitOf(c)
	if err != nil {
		return nil, err
	}

	tree, err := native.commit.Tree()
	if err != nil {
		return nil, translateGoGit(err)
	}

	return &gogitTree{tree: tree}, nil
}

func (r *gogitRepo) LookupPath(_ context.Context, t Tree, path string) (Entry, error) {
	native, err := gogitTreeOf(t)
	if err != nil {
		return Entry{}, err
	}

	if native == nil || path == "" {
		return Entry{}, fmt.Errorf("%w: %q", ErrNotFound, path)
	}

	entry, err := native.tree.FindEntry(path)
	if err != nil {
		return Entry{}, translateGoGit(err)
	}

	kind := EntryOther

	switch {
	case entry.Mode.IsFile():
		kind = EntryBlob
	case entry.Mode == filemode.Dir:
		kind = EntryTree
	}

	return Entry{ID: entry.Hash.String(), Kind: kind}, nil
}

func (r *gogitRepo) ReadBlob(_ context.Context, id string) ([]byte, error) {
	blob, err := r.repo.BlobObject(plumbing.NewHash(id))
	if err != nil {
		return nil, translateGoGit(err)
	}

	reader, err := blob.Reader()
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", id, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", id, err)
	}

	return data, nil
}

func (r *gogitRepo) DiffTrees(ctx context.Context, oldTree, newTree Tree, opts DiffOptions) (*Diff, error) {
	oldNative, err := gogitTreeOf(oldTree)
	if err != nil {
		return nil, err
	}

	newNative, err := gogitTreeOf(newTree)
	if err != nil {
		return nil, err
	}

	var oldT, newT *object.Tree
	if oldNative != nil {
		oldT = oldNative.tree
	}

	if newNative != nil {
		newT = newNative.tree
	}

	var treeOpts *object.DiffTreeOptions
	if opts.DetectRenames {
		treeOpts = object.DefaultDiffTreeOptions
	}

	changes, err := object.DiffTreeWithOptions(ctx, oldT, newT, treeOpts)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}

	out := &Diff{}

	for _, change := range changes {
		if !matchPathspec(opts.Pathspec, change.From.Name) && !matchPathspec(opts.Pathspec, change.To.Name) {
			continue
		}

		delta, deltaErr := gogitDelta(change, opts)
		if deltaErr != nil {
			return nil, deltaErr
		}

		out.Deltas = append(out.Deltas, delta)
	}

	out.Stats = statsOf(out.Deltas)

	return out, nil
}

func gogitDelta(change *object.Change, opts DiffOptions) (Delta, error) {
	action, err := change.Action()
	if err != nil {
		return Delta{}, fmt.Errorf("classify change: %w", err)
	}

	delta := Delta{OldPath: change.From.Name, NewPath: change.To.Name}

	switch {
	case action == merkletrie.Insert:
		delta.Status = StatusAdded
		delta.OldPath = delta.NewPath
	case action == merkletrie.Delete:
		delta.Status = StatusDeleted
		delta.NewPath = delta.OldPath
	case change.From.Name != change.To.Name:
		delta.Status = StatusRenamed
	default:
		delta.Status = StatusModified
	}

	if opts.NameOnly {
		return delta, nil
	}

	from, to, err := change.Files()
	if err != nil {
		return Delta{}, fmt.Errorf("load change %s: %w", delta.NewPath, err)
	}

	oldText, oldBinary, err := fileText(from)
	if err != nil {
		return Delta{}, err
	}

	newText, newBinary, err := fileText(to)
	if err != nil {
		return Delta{}, err
	}

	if oldBinary || newBinary {
		delta.Binary = true

		return delta, nil
	}

	delta.Hunks = buildHunks(lineOps(oldText, newText), opts.ContextLines)

	return delta, nil
}

func fileText(file *object.File) (string, bool, error) {
	if file == nil {
		return "", false, nil
	}

	binary, err := file.IsBinary()
	if err != nil {
		return "", false, fmt.Errorf("inspect %s: %w", file.Name, err)
	}

	if binary {
		return "", true, nil
	}

	text, err := file.Contents()
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", file.Name, err)
	}

	return text, false, nil
}

func statsOf(deltas []Delta) DiffStats {
	stats := DiffStats{FilesChanged: len(deltas)}

	for _, delta := range deltas {
		for _, hunk := range delta.Hunks {
			for _, line := range hunk.Lines {
				switch line.Origin {
				case OriginAddition:
					stats.Insertions++
				case OriginDeletion:
					stats.Deletions++
				}
			}
		}
	}

	return stats
}

func (r *gogitRepo) head() (*object.Commit, error) {
	ref, err := r.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrEmptyRepository, err)
	}

	if err != nil {
		return nil, fmt.Errorf("get HEAD: %w", err)
	}

	commit, err := r.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, translateGoGit(err)
	}

	return commit, nil
}

func (r *gogitRepo) WalkFromHead(_ context.Context, fn WalkFunc) error {
	head, err := r.head()
	if err != nil {
		return err
	}

	iter, err := r.repo.Log(&git.LogOptions{From: head.Hash, Order: git.LogOrderCommitterTime})
	if err != nil {
		return fmt.Errorf("log: %w", err)
	}
	defer iter.Close()

	err = iter.ForEach(func(c *object.Commit) error {
		keepGoing, cbErr := fn(&gogitCommit{commit: c})
		if cbErr != nil {
			return cbErr
		}

		if !keepGoing {
			return storer.ErrStop
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (r *gogitRepo) Blame(_ context.Context, path string) (*Blame, error) {
	if r.workdir == "" {
		return nil, ErrBareRepository
	}

	head, err := r.head()
	if err != nil {
		return nil, err
	}

	result, err := git.Blame(head, path)
	if err != nil {
		return nil, translateGoGit(err)
	}

	lines := make([]string, len(result.Lines))
	for i, line := range result.Lines {
		lines[i] = line.Hash.String()
	}

	return NewBlame(lines), nil
}

func gogitCommitOf(c Commit) (*gogitCommit, error) {
	native, ok := c.(*gogitCommit)
	if !ok {
		return nil, fmt.Errorf("%w: commit %T", ErrForeignHandle, c)
	}

	return native, nil
}

func gogitTreeOf(t Tree) (*gogitTree, error) {
	if t == nil {
		return nil, nil
	}

	native, ok := t.(*gogitTree)
	if !ok {
		return nil, fmt.Errorf("%w: tree %T", ErrForeignHandle, t)
	}

	return native, nil
}

func translateGoGit(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, plumbing.ErrObjectNotFound),
		errors.Is(err, plumbing.ErrReferenceNotFound),
		errors.Is(err, object.ErrFileNotFound),
		errors.Is(err, object.ErrDirectoryNotFound),
		errors.Is(err, object.ErrEntryNotFound),
		errors.Is(err, plumbing.ErrInvalidType):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	default:
		return err
	}
}
