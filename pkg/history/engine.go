// Package history answers read-only questions about a repository's past:
// who last touched each line, what a commit changed, how two commits differ,
// which commits touched a file and what a file held at a commit.
package history

import (
	"context"
	"errors"
	"fmt"
	"path"
	"unicode/utf8"

	"github.com/src-d/enry/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/Sumatoshi-tech/timemachine/pkg/gitaccess"
)

const tracerName = "github.com/Sumatoshi-tech/timemachine/pkg/history"

// Defaults for Options.
const (
	DefaultLimit        = 50
	DefaultMaxLimit     = 1000
	DefaultContextLines = 3
)

// Options configures an Engine.
type Options struct {
	// DefaultLimit applies to CommitsAffecting calls with limit <= 0.
	DefaultLimit int
	// MaxLimit caps CommitsAffecting limits. Zero disables the cap.
	MaxLimit int
	// ContextLines is the unchanged context kept around each hunk.
	ContextLines int
	// ShowBinary enables binary detection in diffs.
	ShowBinary bool
	// DetectRenames reports moved files as RENAMED instead of a delete/add pair.
	DetectRenames bool
	// MaxConcurrent bounds concurrently running operations. Zero is unbounded.
	MaxConcurrent int
	// Tracer receives one span per operation. Defaults to the global provider.
	Tracer trace.Tracer
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		DefaultLimit: DefaultLimit,
		MaxLimit:     DefaultMaxLimit,
		ContextLines: DefaultContextLines,
		ShowBinary:   true,
	}
}

// Engine runs history queries. Each call opens and closes its own
// repository handle, so an Engine is safe for concurrent use.
type Engine struct {
	open    gitaccess.Opener
	opts    Options
	limiter *semaphore.Weighted
	tracer  trace.Tracer
}

// NewEngine creates an engine that obtains repository handles from open.
func NewEngine(open gitaccess.Opener, opts Options) *Engine {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultLimit
	}

	if opts.ContextLines < 0 {
		opts.ContextLines = DefaultContextLines
	}

	engine := &Engine{open: open, opts: opts, tracer: opts.Tracer}

	if engine.tracer == nil {
		engine.tracer = otel.Tracer(tracerName)
	}

	if opts.MaxConcurrent > 0 {
		engine.limiter = semaphore.NewWeighted(int64(opts.MaxConcurrent))
	}

	return engine
}

// Options returns the effective options.
func (e *Engine) Options() Options {
	return e.opts
}

// Blame attributes every line of the working-tree file to a commit.
func (e *Engine) Blame(ctx context.Context, file string) (*BlameResult, error) {
	var result *BlameResult

	err := e.withRepository(ctx, "blame", []attribute.KeyValue{attribute.String("history.file", file)},
		func(ctx context.Context, repo gitaccess.Repository) error {
			lines, err := assembleBlame(ctx, repo, file)
			if err != nil {
				return err
			}

			result = &BlameResult{File: file, Lines: lines}

			return nil
		})

	return result, err
}

// CommitDiff returns the changes a commit made relative to its first parent,
// or to the empty tree for a root commit.
func (e *Engine) CommitDiff(ctx context.Context, id string) (*CommitDiff, error) {
	var result *CommitDiff

	err := e.withRepository(ctx, "commit_diff", []attribute.KeyValue{attribute.String("history.commit", id)},
		func(ctx context.Context, repo gitaccess.Repository) error {
			commit, err := resolveCommit(ctx, repo, id)
			if err != nil {
				return err
			}
			defer commit.Free()

			tree, err := repo.Tree(ctx, commit)
			if err != nil {
				return categorize(ErrRepositoryAccess, "read tree of "+id, err)
			}
			defer tree.Free()

			parentTree, err := firstParentTree(ctx, repo, commit)
			if err != nil {
				return categorize(ErrRepositoryAccess, "read parent tree of "+id, err)
			}

			if parentTree != nil {
				defer parentTree.Free()
			}

			changes, _, err := e.diff(ctx, repo, parentTree, tree)
			if err != nil {
				return err
			}

			result = &CommitDiff{Commit: NormalizeCommit(commit), Changes: changes}

			return nil
		})

	return result, err
}

// SummarizeDiff diffs the tree of base against the tree of head.
func (e *Engine) SummarizeDiff(ctx context.Context, baseID, headID string) (*DiffSummary, error) {
	var result *DiffSummary

	attrs := []attribute.KeyValue{attribute.String("history.base", baseID), attribute.String("history.head", headID)}

	err := e.withRepository(ctx, "summarize_diff", attrs, func(ctx context.Context, repo gitaccess.Repository) error {
		base, err := resolveCommit(ctx, repo, baseID)
		if err != nil {
			return err
		}
		defer base.Free()

		head, err := resolveCommit(ctx, repo, headID)
		if err != nil {
			return err
		}
		defer head.Free()

		baseTree, err := repo.Tree(ctx, base)
		if err != nil {
			return categorize(ErrRepositoryAccess, "read tree of "+baseID, err)
		}
		defer baseTree.Free()

		headTree, err := repo.Tree(ctx, head)
		if err != nil {
			return categorize(ErrRepositoryAccess, "read tree of "+headID, err)
		}
		defer headTree.Free()

		changes, stats, err := e.diff(ctx, repo, baseTree, headTree)
		if err != nil {
			return err
		}

		result = &DiffSummary{
			BaseCommit: NormalizeCommit(base),
			HeadCommit: NormalizeCommit(head),
			Summary:    summarize(base.ID(), head.ID(), stats),
			Changes:    changes,
			Stats:      stats,
		}

		return nil
	})

	return result, err
}

// CommitsAffecting lists, newest first, up to limit non-merge commits whose
// change set touches file. UseDefaultLimit (or any negative limit) selects
// the configured default; a limit of 0 yields no commits.
func (e *Engine) CommitsAffecting(ctx context.Context, file string, limit int) (*CommitsAffectingResult, error) {
	var result *CommitsAffectingResult

	limit = e.EffectiveLimit(limit)
	attrs := []attribute.KeyValue{attribute.String("history.file", file), attribute.Int("history.limit", limit)}

	err := e.withRepository(ctx, "commits_affecting", attrs, func(ctx context.Context, repo gitaccess.Repository) error {
		rel, err := cleanRepoPath(file, file)
		if err != nil {
			return err
		}

		commits, err := collectCommitsAffecting(ctx, repo, rel, limit)
		if err != nil {
			return err
		}

		result = &CommitsAffectingResult{File: file, Commits: commits}

		return nil
	})

	return result, err
}

// FileAtCommit returns the text of file as recorded in commit id.
func (e *Engine) FileAtCommit(ctx context.Context, file, id string) (*FileAtCommitResult, error) {
	var result *FileAtCommitResult

	attrs := []attribute.KeyValue{attribute.String("history.file", file), attribute.String("history.commit", id)}

	err := e.withRepository(ctx, "file_at_commit", attrs, func(ctx context.Context, repo gitaccess.Repository) error {
		rel, err := cleanRepoPath(file, file)
		if err != nil {
			return err
		}

		commit, err := resolveCommit(ctx, repo, id)
		if err != nil {
			return err
		}
		defer commit.Free()

		tree, err := repo.Tree(ctx, commit)
		if err != nil {
			return categorize(ErrRepositoryAccess, "read tree of "+id, err)
		}
		defer tree.Free()

		entry, err := repo.LookupPath(ctx, tree, rel)

		switch {
		case errors.Is(err, gitaccess.ErrNotFound):
			return fmt.Errorf("%w: %s at commit %s", ErrFileNotFound, file, id)
		case err != nil:
			return categorize(ErrRepositoryAccess, "look up "+file, err)
		case entry.Kind != gitaccess.EntryBlob:
			return fmt.Errorf("%w: %s at commit %s is not a file", ErrFileNotFound, file, id)
		}

		data, err := repo.ReadBlob(ctx, entry.ID)
		if err != nil {
			return categorize(ErrRepositoryAccess, "read "+file, err)
		}

		if !utf8.Valid(data) {
			return fmt.Errorf("%w: %s at commit %s", ErrNonTextContent, file, id)
		}

		result = &FileAtCommitResult{
			File:     file,
			Commit:   NormalizeCommit(commit),
			Content:  string(data),
			Language: enry.GetLanguage(path.Base(rel), data),
			Size:     len(data),
		}

		return nil
	})

	return result, err
}

// Ping opens and closes a repository handle.
func (e *Engine) Ping(ctx context.Context) error {
	return e.withRepository(ctx, "ping", nil, func(context.Context, gitaccess.Repository) error {
		return nil
	})
}

// UseDefaultLimit asks CommitsAffecting for the configured default limit.
const UseDefaultLimit = -1

// EffectiveLimit applies the default and the cap to a requested limit.
func (e *Engine) EffectiveLimit(limit int) int {
	if limit < 0 {
		limit = e.opts.DefaultLimit
	}

	if e.opts.MaxLimit > 0 && limit > e.opts.MaxLimit {
		limit = e.opts.MaxLimit
	}

	return limit
}

func (e *Engine) diffOptions() gitaccess.DiffOptions {
	return gitaccess.DiffOptions{
		ContextLines:  e.opts.ContextLines,
		ShowBinary:    e.opts.ShowBinary,
		DetectRenames: e.opts.DetectRenames,
	}
}

func (e *Engine) diff(ctx context.Context, repo gitaccess.Repository, oldTree, newTree gitaccess.Tree) ([]FileChange, DiffStats, error) {
	raw, err := repo.DiffTrees(ctx, oldTree, newTree, e.diffOptions())
	if err != nil {
		return nil, DiffStats{}, categorize(ErrRepositoryAccess, "diff trees", err)
	}

	changes, err := SynthesizeChanges(raw)
	if err != nil {
		return nil, DiffStats{}, err
	}

	stats := DiffStats{
		FilesChanged: raw.Stats.FilesChanged,
		Insertions:   raw.Stats.Insertions,
		Deletions:    raw.Stats.Deletions,
	}

	return changes, stats, nil
}

// withRepository runs fn with a fresh repository handle inside a span,
// holding a concurrency slot when the engine is bounded.
func (e *Engine) withRepository(
	ctx context.Context,
	op string,
	attrs []attribute.KeyValue,
	fn func(ctx context.Context, repo gitaccess.Repository) error,
) (err error) {
	ctx, span := e.tracer.Start(ctx, "history."+op, trace.WithAttributes(attrs...))

	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.SetAttributes(attribute.String("history.error_kind", KindOf(err).String()))
		}

		span.End()
	}()

	if e.limiter != nil {
		acquireErr := e.limiter.Acquire(ctx, 1)
		if acquireErr != nil {
			return categorize(ErrRepositoryAccess, "wait for a free slot", acquireErr)
		}
		defer e.limiter.Release(1)
	}

	repo, err := e.open(ctx)
	if err != nil {
		return categorize(ErrRepositoryAccess, "open repository", err)
	}

	defer func() {
		closeErr := repo.Close()
		if err == nil && closeErr != nil {
			err = categorize(ErrRepositoryAccess, "close repository", closeErr)
		}
	}()

	return fn(ctx, repo)
}

func resolveCommit(ctx context.Context, repo gitaccess.Repository, id string) (gitaccess.Commit, error) {
	if !gitaccess.ValidCommitID(id) {
		return nil, fmt.Errorf("%w: %q is not a 4-40 character hex id", ErrInvalidCommit, id)
	}

	commit, err := repo.ResolveCommit(ctx, id)

	switch {
	case errors.Is(err, gitaccess.ErrNotFound),
		errors.Is(err, gitaccess.ErrAmbiguous),
		errors.Is(err, gitaccess.ErrInvalidID):
		return nil, categorize(ErrInvalidCommit, id, err)
	case err != nil:
		return nil, categorize(ErrRepositoryAccess, "resolve "+id, err)
	}

	return commit, nil
}
