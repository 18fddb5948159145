package history

import (
	"context"
	"errors"

	"github.com/Sumatoshi-tech/timemachine/pkg/gitaccess"
)

// collectCommitsAffecting walks from HEAD newest first and keeps the
// single-parent commits whose diff against their parent touches path.
// The walk ends as soon as limit commits are collected.
func collectCommitsAffecting(ctx context.Context, repo gitaccess.Repository, path string, limit int) ([]CommitRecord, error) {
	commits := make([]CommitRecord, 0, min(limit, initialCommitCapacity))
	opts := gitaccess.DiffOptions{Pathspec: []string{path}, NameOnly: true}

	err := repo.WalkFromHead(ctx, func(c gitaccess.Commit) (bool, error) {
		if len(commits) >= limit {
			return false, nil
		}

		if c.ParentCount() > 1 {
			return true, nil
		}

		touched, err := touchesPath(ctx, repo, c, opts)
		if err != nil {
			return false, err
		}

		if touched {
			commits = append(commits, NormalizeCommit(c))
		}

		return len(commits) < limit, nil
	})

	switch {
	case errors.Is(err, gitaccess.ErrEmptyRepository):
		return commits, nil
	case err != nil:
		return nil, categorize(ErrRepositoryAccess, "walk history", err)
	default:
		return commits, nil
	}
}

const initialCommitCapacity = 64

func touchesPath(ctx context.Context, repo gitaccess.Repository, c gitaccess.Commit, opts gitaccess.DiffOptions) (bool, error) {
	tree, err := repo.Tree(ctx, c)
	if err != nil {
		return false, err
	}
	defer tree.Free()

	parentTree, err := firstParentTree(ctx, repo, c)
	if err != nil {
		return false, err
	}

	if parentTree != nil {
		defer parentTree.Free()
	}

	diff, err := repo.DiffTrees(ctx, parentTree, tree, opts)
	if err != nil {
		return false, err
	}

	return len(diff.Deltas) > 0, nil
}

// firstParentTree returns the tree of the first parent, or nil for a root
// commit so diffs run against the empty tree.
func firstParentTree(ctx context.Context, repo gitaccess.Repository, c gitaccess.Commit) (gitaccess.Tree, error) {
	if c.ParentCount() == 0 {
		return nil, nil
	}

	parent, err := repo.Parent(ctx, c, 0)
	if err != nil {
		return nil, err
	}
	defer parent.Free()

	return repo.Tree(ctx, parent)
}
