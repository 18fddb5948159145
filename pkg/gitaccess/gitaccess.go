// Package gitaccess is the repository accessor used by the history engine.
// It hides the git library behind a small set of primitives so the engine
// can run on libgit2 (the default) or on the pure-Go go-git backend.
package gitaccess

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Backend names a repository implementation.
type Backend string

// Supported backends.
const (
	BackendLibgit2 Backend = "libgit2"
	BackendGoGit   Backend = "gogit"
)

// Backends lists every supported backend in preference order.
var Backends = []Backend{BackendLibgit2, BackendGoGit}

// ParseBackend validates a backend name. An empty name selects libgit2.
func ParseBackend(name string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(name))) {
	case "", BackendLibgit2:
		return BackendLibgit2, nil
	case BackendGoGit, "go-git":
		return BackendGoGit, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}

// Sentinel errors shared by every backend.
var (
	// ErrNotFound is returned when a commit, path or object does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAmbiguous is returned when an abbreviated id matches several objects.
	ErrAmbiguous = errors.New("ambiguous commit id")
	// ErrInvalidID is returned for ids that are not 4-40 hex characters.
	ErrInvalidID = errors.New("invalid commit id")
	// ErrEmptyRepository is returned when HEAD has no commits yet.
	ErrEmptyRepository = errors.New("repository has no commits")
	// ErrBareRepository is returned when an operation needs a working tree.
	ErrBareRepository = errors.New("repository has no working tree")
	// ErrUnknownBackend is returned for unsupported backend names.
	ErrUnknownBackend = errors.New("unknown repository backend")
	// ErrForeignHandle is returned when a handle from one backend is passed to another.
	ErrForeignHandle = errors.New("handle belongs to a different repository backend")
)

// Signature identifies the author of a commit.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// Commit is a commit handle. Handles are owned by the Repository that
// returned them and must not outlive it.
type Commit interface {
	ID() string
	Message() string
	Author() Signature
	ParentCount() int
	Free()
}

// Tree is a tree handle.
type Tree interface {
	ID() string
	Free()
}

// EntryKind classifies a tree entry.
type EntryKind int

// Entry kinds.
const (
	EntryBlob EntryKind = iota
	EntryTree
	EntryOther
)

// Entry is the result of a path lookup in a tree.
type Entry struct {
	ID   string
	Kind EntryKind
}

// DeltaStatus is the kind of change a delta records.
type DeltaStatus int

// Delta statuses.
const (
	StatusUnmodified DeltaStatus = iota
	StatusAdded
	StatusDeleted
	StatusModified
	StatusRenamed
	StatusCopied
	StatusTypeChange
	StatusOther
)

func (s DeltaStatus) String() string {
	switch s {
	case StatusUnmodified:
		return "unmodified"
	case StatusAdded:
		return "added"
	case StatusDeleted:
		return "deleted"
	case StatusModified:
		return "modified"
	case StatusRenamed:
		return "renamed"
	case StatusCopied:
		return "copied"
	case StatusTypeChange:
		return "typechange"
	default:
		return "other"
	}
}

// Line origins.
const (
	OriginContext  byte = ' '
	OriginAddition byte = '+'
	OriginDeletion byte = '-'
)

// Line is one diff line. Content keeps the raw bytes, including the
// trailing newline when the source had one.
type Line struct {
	Origin  byte
	Content []byte
}

// Hunk is a block of lines with its header ranges.
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Lines    []Line
}

// Delta is one file-level change.
type Delta struct {
	Status  DeltaStatus
	OldPath string
	NewPath string
	Binary  bool
	Hunks   []Hunk
}

// DiffStats aggregates a diff.
type DiffStats struct {
	FilesChanged int
	Insertions   int
	Deletions    int
}

// Diff is a fully materialised tree diff.
type Diff struct {
	Deltas []Delta
	Stats  DiffStats
}

// DiffOptions configures DiffTrees.
type DiffOptions struct {
	// Pathspec restricts the diff to matching paths.
	Pathspec []string
	// ContextLines is the number of unchanged lines around changes.
	ContextLines int
	// ShowBinary classifies binary content instead of diffing it as text.
	ShowBinary bool
	// DetectRenames pairs deletions and additions into renames.
	DetectRenames bool
	// NameOnly skips hunk and line materialisation.
	NameOnly bool
}

// Blame maps the lines of a file, as of HEAD, to commit ids.
type Blame struct {
	lines []string
}

// NewBlame builds a Blame from a per-line commit id slice (index 0 is line 1).
// Empty ids mark unattributed lines.
func NewBlame(lines []string) *Blame {
	return &Blame{lines: lines}
}

// CommitAt returns the commit id for the 1-based line.
func (b *Blame) CommitAt(line int) (string, bool) {
	if line < 1 || line > len(b.lines) || b.lines[line-1] == "" {
		return "", false
	}

	return b.lines[line-1], true
}

// Len returns the number of attributed line slots.
func (b *Blame) Len() int {
	return len(b.lines)
}

// WalkFunc receives commits during WalkFromHead. Returning false stops the
// walk. The commit is only valid during the call.
type WalkFunc func(Commit) (bool, error)

// Repository is the set of primitives the history engine needs.
type Repository interface {
	Backend() Backend
	// Workdir returns the working tree root, or "" for bare repositories.
	Workdir() string
	// ResolveCommit resolves a full or abbreviated commit id.
	ResolveCommit(ctx context.Context, id string) (Commit, error)
	// Parent returns the nth parent of c.
	Parent(ctx context.Context, c Commit, n int) (Commit, error)
	// Tree returns the root tree of c.
	Tree(ctx context.Context, c Commit) (Tree, error)
	// LookupPath finds the entry at a slash-separated path.
	LookupPath(ctx context.Context, t Tree, path string) (Entry, error)
	// ReadBlob returns the bytes of a blob.
	ReadBlob(ctx context.Context, id string) ([]byte, error)
	// DiffTrees diffs two trees; a nil tree is the empty tree.
	DiffTrees(ctx context.Context, oldTree, newTree Tree, opts DiffOptions) (*Diff, error)
	// WalkFromHead visits commits reachable from HEAD, newest commit time first.
	WalkFromHead(ctx context.Context, fn WalkFunc) error
	// Blame attributes the lines of a tracked file at HEAD.
	Blame(ctx context.Context, path string) (*Blame, error)
	Close() error
}

// Opener opens a fresh repository handle.
type Opener func(ctx context.Context) (Repository, error)

// Open opens the repository at path with the given backend.
func Open(path string, backend Backend) (Repository, error) {
	switch backend {
	case BackendLibgit2, "":
		return OpenLibgit2(path)
	case BackendGoGit:
		return OpenGoGit(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// NewOpener returns an Opener that opens path with backend on every call.
func NewOpener(path string, backend Backend) Opener {
	return func(_ context.Context) (Repository, error) {
		return Open(path, backend)
	}
}

// ValidCommitID reports whether id is 4-40 hex characters.
func ValidCommitID(id string) bool {
	if len(id) < 4 || len(id) > 40 {
		return false
	}

	for i := range len(id) {
		c := id[i]

		isHex := (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
		if !isHex {
			return false
		}
	}

	return true
}
