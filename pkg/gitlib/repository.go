package gitlib

import (
	"context"
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// Repository wraps a libgit2 repository.
type Repository struct {
	repo *git2go.Repository
}

// OpenRepository opens a git repository at the given path.
func OpenRepository(path string) (*Repository, error) {
	repo, err := git2go.OpenRepository(path)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", classify(err))
	}

	return &Repository{repo: repo}, nil
}

// Workdir returns the working directory, or "" for a bare repository.
func (r *Repository) Workdir() string {
	if r.repo.IsBare() {
		return ""
	}

	return r.repo.Workdir()
}

// Free releases the repository resources.
func (r *Repository) Free() {
	if r.repo != nil {
		r.repo.Free()
		r.repo = nil
	}
}

// Head returns the HEAD reference target.
func (r *Repository) Head() (Hash, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return Hash{}, fmt.Errorf("get HEAD: %w", classify(err))
	}
	defer ref.Free()

	return HashFromOid(ref.Target()), nil
}

// LookupCommit returns the commit with the given hash.
func (r *Repository) LookupCommit(_ context.Context, hash Hash) (*Commit, error) {
	commit, err := r.repo.LookupCommit(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup commit %s: %w", hash, classify(err))
	}

	return &Commit{commit: commit, repo: r}, nil
}

// LookupCommitPrefix returns the unique commit whose id starts with prefix.
// Full 40-character ids are looked up directly.
func (r *Repository) LookupCommitPrefix(ctx context.Context, prefix string) (*Commit, error) {
	if len(prefix) == HashHexSize {
		hash, err := ParseHash(prefix)
		if err != nil {
			return nil, err
		}

		return r.LookupCommit(ctx, hash)
	}

	hash, size, err := ParseHashPrefix(prefix)
	if err != nil {
		return nil, err
	}

	commit, err := r.repo.LookupPrefixCommit(hash.ToOid(), uint(size))
	if err != nil {
		return nil, fmt.Errorf("lookup commit %s: %w", prefix, classify(err))
	}

	return &Commit{commit: commit, repo: r}, nil
}

// LookupBlob returns the blob with the given hash.
func (r *Repository) LookupBlob(_ context.Context, hash Hash) (*Blob, error) {
	blob, err := r.repo.LookupBlob(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup blob %s: %w", hash, classify(err))
	}

	return &Blob{blob: blob}, nil
}

// Walk creates a new revision walker.
func (r *Repository) Walk() (*RevWalk, error) {
	walk, err := r.repo.Walk()
	if err != nil {
		return nil, fmt.Errorf("create revwalk: %w", classify(err))
	}

	return &RevWalk{walk: walk, repo: r}, nil
}

// Log returns a commit iterator starting from HEAD in commit-time order.
func (r *Repository) Log() (*CommitIter, error) {
	walk, err := r.Walk()
	if err != nil {
		return nil, err
	}

	err = walk.PushHead()
	if err != nil {
		walk.Free()

		return nil, err
	}

	walk.Sorting(SortTime)

	return &CommitIter{walk: walk.walk, repo: r}, nil
}

// DiffTreeToTree computes the diff between two trees. A nil tree stands for
// the empty tree.
func (r *Repository) DiffTreeToTree(oldTree, newTree *Tree, opts DiffOptions) (*Diff, error) {
	nativeOpts, err := opts.native()
	if err != nil {
		return nil, err
	}

	var oldT, newT *git2go.Tree
	if oldTree != nil {
		oldT = oldTree.tree
	}

	if newTree != nil {
		newT = newTree.tree
	}

	diff, err := r.repo.DiffTreeToTree(oldT, newT, nativeOpts)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", classify(err))
	}

	wrapped := &Diff{diff: diff}

	if opts.DetectRenames {
		err = wrapped.findRenames()
		if err != nil {
			wrapped.Free()

			return nil, err
		}
	}

	return wrapped, nil
}

// BlameFile attributes every line of path, as of HEAD, to the commit that
// last changed it.
func (r *Repository) BlameFile(path string) (*Blame, error) {
	opts, err := git2go.DefaultBlameOptions()
	if err != nil {
		return nil, fmt.Errorf("get blame options: %w", err)
	}

	blame, err := r.repo.BlameFile(path, &opts)
	if err != nil {
		return nil, fmt.Errorf("blame %s: %w", path, classify(err))
	}

	return &Blame{blame: blame}, nil
}
