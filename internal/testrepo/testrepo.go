// Package testrepo builds throwaway git repositories for tests.
package testrepo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/stretchr/testify/require"
)

// Default identity and clock used for commits.
const (
	AuthorName  = "Test User"
	AuthorEmail = "test@example.com"
)

// Epoch is the author time of the first commit; each later commit is one
// minute newer so time-ordered walks are deterministic.
var Epoch = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*60*60))

// Repo is a non-bare repository in a temporary directory.
type Repo struct {
	tb     testing.TB
	Path   string
	native *git2go.Repository
	clock  time.Time
	Author *git2go.Signature
}

// New initialises an empty repository that is removed when the test ends.
func New(tb testing.TB) *Repo {
	tb.Helper()

	dir := tb.TempDir()

	// Resolve symlinks so paths match what libgit2 reports as the workdir.
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(tb, err)

	repo, err := git2go.InitRepository(resolved, false)
	require.NoError(tb, err)

	tb.Cleanup(repo.Free)

	return &Repo{
		tb:     tb,
		Path:   resolved,
		native: repo,
		clock:  Epoch,
		Author: &git2go.Signature{Name: AuthorName, Email: AuthorEmail},
	}
}

// NewBare initialises an empty bare repository.
func NewBare(tb testing.TB) string {
	tb.Helper()

	dir := tb.TempDir()

	repo, err := git2go.InitRepository(dir, true)
	require.NoError(tb, err)

	repo.Free()

	return dir
}

// WriteFile creates or replaces a file in the working directory.
func (r *Repo) WriteFile(name, content string) {
	r.WriteBytes(name, []byte(content))
}

// WriteBytes creates or replaces a file with raw bytes.
func (r *Repo) WriteBytes(name string, content []byte) {
	r.tb.Helper()

	path := filepath.Join(r.Path, filepath.FromSlash(name))

	err := os.MkdirAll(filepath.Dir(path), 0o755)
	require.NoError(r.tb, err)

	err = os.WriteFile(path, content, 0o644)
	require.NoError(r.tb, err)
}

// Remove deletes a file from the working directory.
func (r *Repo) Remove(name string) {
	r.tb.Helper()

	err := os.Remove(filepath.Join(r.Path, filepath.FromSlash(name)))
	require.NoError(r.tb, err)
}

// Commit stages the working tree and commits it on top of HEAD.
func (r *Repo) Commit(message string) string {
	r.tb.Helper()

	var parents []string

	head, err := r.native.Head()
	if err == nil {
		parents = append(parents, head.Target().String())
		head.Free()
	}

	return r.create("HEAD", message, parents...)
}

// Merge commits the working tree on HEAD with the given parents. The first
// parent must be the current HEAD.
func (r *Repo) Merge(message string, parents ...string) string {
	r.tb.Helper()

	return r.create("HEAD", message, parents...)
}

// CommitDetached commits the working tree with explicit parents without
// moving any reference.
func (r *Repo) CommitDetached(message string, parents ...string) string {
	r.tb.Helper()

	return r.create("", message, parents...)
}

// Tick returns the author time the next commit will get.
func (r *Repo) Tick() time.Time {
	return r.clock
}

func (r *Repo) create(ref, message string, parentIDs ...string) string {
	r.tb.Helper()

	index, err := r.native.Index()
	require.NoError(r.tb, err)

	defer index.Free()

	err = index.AddAll([]string{"*"}, git2go.IndexAddDefault, nil)
	require.NoError(r.tb, err)

	err = index.UpdateAll([]string{"*"}, nil)
	require.NoError(r.tb, err)

	err = index.Write()
	require.NoError(r.tb, err)

	treeID, err := index.WriteTree()
	require.NoError(r.tb, err)

	tree, err := r.native.LookupTree(treeID)
	require.NoError(r.tb, err)

	defer tree.Free()

	parents := make([]*git2go.Commit, 0, len(parentIDs))

	for _, id := range parentIDs {
		oid, oidErr := git2go.NewOid(id)
		require.NoError(r.tb, oidErr)

		parent, lookupErr := r.native.LookupCommit(oid)
		require.NoError(r.tb, lookupErr)

		parents = append(parents, parent)
	}

	defer func() {
		for _, parent := range parents {
			parent.Free()
		}
	}()

	sig := &git2go.Signature{Name: r.Author.Name, Email: r.Author.Email, When: r.clock}
	r.clock = r.clock.Add(time.Minute)

	oid, err := r.native.CreateCommit(ref, sig, sig, message, tree, parents...)
	require.NoError(r.tb, err)

	return oid.String()
}
