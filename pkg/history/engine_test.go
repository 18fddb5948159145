package history_test

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/timemachine/internal/testrepo"
	"github.com/Sumatoshi-tech/timemachine/pkg/gitaccess"
	"github.com/Sumatoshi-tech/timemachine/pkg/history"
)

// eachEngine runs fn once per backend with an engine over path.
func eachEngine(t *testing.T, path string, opts history.Options, fn func(t *testing.T, engine *history.Engine)) {
	t.Helper()

	for _, backend := range gitaccess.Backends {
		t.Run(string(backend), func(t *testing.T) {
			fn(t, history.NewEngine(gitaccess.NewOpener(path, backend), opts))
		})
	}
}

func numberedLines(n int) string {
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, "line %d\n", i)
	}

	return sb.String()
}

func TestCommitDiffInitialCommit(t *testing.T) {
	t.Parallel()

	tr := testrepo.New(t)
	tr.WriteFile("README.md", numberedLines(10))
	id := tr.Commit("Initial commit")

	eachEngine(t, tr.Path, history.DefaultOptions(), func(t *testing.T, engine *history.Engine) {
		result, err := engine.CommitDiff(context.Background(), id)
		require.NoError(t, err)

		assert.Equal(t, history.CommitRecord{
			SHA:       id,
			Message:   "Initial commit",
			Author:    testrepo.AuthorName,
			Email:     testrepo.AuthorEmail,
			Timestamp: "2024-03-01T10:00:00+00:00",
		}, result.Commit)

		require.Len(t, result.Changes, 1)
		change := result.Changes[0]
		assert.Equal(t, "README.md", change.Path)
		assert.Equal(t, history.ChangeAdded, change.ChangeType)
		assert.Equal(t, 10, change.Additions)
		assert.Equal(t, 0, change.Deletions)

		var want strings.Builder
		want.WriteString("@@ -0,0 +1,10 @@\n")
		for i := 1; i <= 10; i++ {
			fmt.Fprintf(&want, "+line %d\n", i)
		}

		assert.Equal(t, want.String(), change.DiffText())
	})
}

func TestCommitDiffAgainstFirstParent(t *testing.T) {
	t.Parallel()

	tr := testrepo.New(t)
	tr.WriteFile("main.go", "package main\n\nfunc main() {}\n")
	tr.WriteFile("old.txt", "bye\n")
	tr.Commit("first")
	tr.WriteFile("main.go", "package main\n\nfunc main() { run() }\n")
	tr.Remove("old.txt")
	tr.WriteFile("new.txt", "hi\n")
	id := tr.Commit("second")

	eachEngine(t, tr.Path, history.DefaultOptions(), func(t *testing.T, engine *history.Engine) {
		result, err := engine.CommitDiff(context.Background(), id[:8])
		require.NoError(t, err)
		assert.Equal(t, id, result.Commit.SHA)

		byPath := map[string]history.FileChange{}
		for _, change := range result.Changes {
			byPath[change.Path] = change
		}

		require.Len(t, byPath, 3)
		assert.Equal(t, history.ChangeModified, byPath["main.go"].ChangeType)
		assert.Equal(t, 1, byPath["main.go"].Additions)
		assert.Equal(t, 1, byPath["main.go"].Deletions)
		assert.Equal(t,
			"@@ -1,3 +1,3 @@\n package main\n \n-func main() {}\n+func main() { run() }\n",
			byPath["main.go"].DiffText())
		assert.Equal(t, history.ChangeAdded, byPath["new.txt"].ChangeType)
		assert.Equal(t, history.ChangeDeleted, byPath["old.txt"].ChangeType)
		assert.Equal(t, "@@ -1,1 +0,0 @@\n-bye\n", byPath["old.txt"].DiffText())
	})
}

func TestCommitDiffBinaryFile(t *testing.T) {
	t.Parallel()

	tr := testrepo.New(t)
	tr.WriteBytes("logo.png", []byte{0x89, 'P', 'N', 'G', 0x00, 0x00, 0x1a})
	id := tr.Commit("add logo")

	eachEngine(t, tr.Path, history.DefaultOptions(), func(t *testing.T, engine *history.Engine) {
		result, err := engine.CommitDiff(context.Background(), id)
		require.NoError(t, err)
		require.Len(t, result.Changes, 1)

		change := result.Changes[0]
		assert.Equal(t, "logo.png", change.Path)
		assert.Equal(t, history.ChangeAdded, change.ChangeType)
		require.NotNil(t, change.Diff)
		assert.Empty(t, *change.Diff)
		assert.Zero(t, change.Additions)
	})
}

func TestCommitDiffRenames(t *testing.T) {
	t.Parallel()

	content := numberedLines(20)

	tr := testrepo.New(t)
	tr.WriteFile("before.txt", content)
	tr.Commit("first")
	tr.Remove("before.txt")
	tr.WriteFile("after.txt", content)
	id := tr.Commit("move")

	eachEngine(t, tr.Path, history.DefaultOptions(), func(t *testing.T, engine *history.Engine) {
		result, err := engine.CommitDiff(context.Background(), id)
		require.NoError(t, err)

		kinds := map[string]history.ChangeType{}
		for _, change := range result.Changes {
			kinds[change.Path] = change.ChangeType
		}

		assert.Equal(t, map[string]history.ChangeType{
			"after.txt":  history.ChangeAdded,
			"before.txt": history.ChangeDeleted,
		}, kinds)
	})

	opts := history.DefaultOptions()
	opts.DetectRenames = true

	eachEngine(t, tr.Path, opts, func(t *testing.T, engine *history.Engine) {
		result, err := engine.CommitDiff(context.Background(), id)
		require.NoError(t, err)
		require.Len(t, result.Changes, 1)
		assert.Equal(t, "after.txt", result.Changes[0].Path)
		assert.Equal(t, history.ChangeRenamed, result.Changes[0].ChangeType)
	})
}

func TestCommitDiffInvalidCommit(t *testing.T) {
	t.Parallel()

	tr := testrepo.New(t)
	tr.WriteFile("a.txt", "a\n")
	id := tr.Commit("only")

	eachEngine(t, tr.Path, history.DefaultOptions(), func(t *testing.T, engine *history.Engine) {
		ctx := context.Background()

		for _, bad := range []string{"", "xyz", "HEAD", "abc", strings.Repeat("a", 41), "not-a-sha"} {
			result, err := engine.CommitDiff(ctx, bad)
			require.ErrorIs(t, err, history.ErrInvalidCommit, bad)
			assert.Nil(t, result)
		}

		unknown := "0" + id[1:]
		if unknown == id {
			unknown = "1" + id[1:]
		}

		_, err := engine.CommitDiff(ctx, unknown)
		require.ErrorIs(t, err, history.ErrInvalidCommit)
		assert.Equal(t, history.KindInvalidCommit, history.KindOf(err))
	})
}

func TestSummarizeDiff(t *testing.T) {
	t.Parallel()

	tr := testrepo.New(t)
	tr.WriteFile("a.txt", "1\n2\n3\n")
	tr.WriteFile("b.txt", "keep\n")
	base := tr.Commit("base")
	tr.WriteFile("a.txt", "1\ntwo\n3\n4\n")
	tr.WriteFile("c.txt", "new\n")
	tr.Commit("middle")
	tr.Remove("b.txt")
	head := tr.Commit("head")

	eachEngine(t, tr.Path, history.DefaultOptions(), func(t *testing.T, engine *history.Engine) {
		ctx := context.Background()

		result, err := engine.SummarizeDiff(ctx, base, head)
		require.NoError(t, err)

		assert.Equal(t, base, result.BaseCommit.SHA)
		assert.Equal(t, head, result.HeadCommit.SHA)
		assert.Equal(t, "head", result.HeadCommit.Message)
		assert.Equal(t, history.DiffStats{FilesChanged: 3, Insertions: 3, Deletions: 2}, result.Stats)
		assert.Equal(t,
			fmt.Sprintf("Changes between %s and %s: 3 files changed, 3 insertions(+), 2 deletions(-)", base[:7], head[:7]),
			result.Summary)

		additions, deletions := 0, 0
		for _, change := range result.Changes {
			additions += change.Additions
			deletions += change.Deletions
		}

		assert.Equal(t, result.Stats.Insertions, additions)
		assert.Equal(t, result.Stats.Deletions, deletions)

		again, err := engine.SummarizeDiff(ctx, base, head)
		require.NoError(t, err)
		assert.Equal(t, result.Summary, again.Summary)
		assert.Equal(t, result.Changes, again.Changes)

		_, err = engine.SummarizeDiff(ctx, base, "nothex!")
		require.ErrorIs(t, err, history.ErrInvalidCommit)
	})
}

func TestSummarizeDiffAbbreviatedIDs(t *testing.T) {
	t.Parallel()

	tr := testrepo.New(t)
	tr.WriteFile("a.txt", "1\n")
	base := tr.Commit("base")
	tr.WriteFile("a.txt", "2\n")
	head := tr.Commit("head")

	eachEngine(t, tr.Path, history.DefaultOptions(), func(t *testing.T, engine *history.Engine) {
		result, err := engine.SummarizeDiff(context.Background(), base[:5], strings.ToUpper(head[:12]))
		require.NoError(t, err)
		assert.Equal(t, base, result.BaseCommit.SHA)
		assert.Equal(t, head, result.HeadCommit.SHA)
		assert.True(t, strings.HasPrefix(result.Summary, "Changes between "+base[:7]+" and "+head[:7]+":"))
	})
}

func TestSingleParentAdditionsMatchRepositoryStats(t *testing.T) {
	t.Parallel()

	tr := testrepo.New(t)
	tr.WriteFile("x.txt", numberedLines(30))
	tr.WriteFile("y.txt", "y\n")

	ids := []string{tr.Commit("c0")}

	tr.WriteFile("x.txt", strings.Replace(numberedLines(30), "line 15\n", "fifteen\nextra\n", 1))
	ids = append(ids, tr.Commit("c1"))

	tr.WriteFile("y.txt", "y\nz\n")
	tr.WriteFile("x.txt", strings.Replace(numberedLines(30), "line 2\n", "", 1))
	ids = append(ids, tr.Commit("c2"))

	eachEngine(t, tr.Path, history.DefaultOptions(), func(t *testing.T, engine *history.Engine) {
		ctx := context.Background()

		for i := 1; i < len(ids); i++ {
			diff, err := engine.CommitDiff(ctx, ids[i])
			require.NoError(t, err)

			summary, err := engine.SummarizeDiff(ctx, ids[i-1], ids[i])
			require.NoError(t, err)

			additions, deletions := 0, 0

			for _, change := range diff.Changes {
				additions += change.Additions
				deletions += change.Deletions

				text := change.DiffText()
				assert.Equal(t, change.Additions, countPrefixed(text, '+'), change.Path)
				assert.Equal(t, change.Deletions, countPrefixed(text, '-'), change.Path)
			}

			assert.Equal(t, summary.Stats.Insertions, additions)
			assert.Equal(t, summary.Stats.Deletions, deletions)
			assert.Equal(t, summary.Changes, diff.Changes)
		}
	})
}

func countPrefixed(text string, prefix byte) int {
	count := 0

	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "@@ ") {
			continue
		}

		if line != "" && line[0] == prefix {
			count++
		}
	}

	return count
}

// mergeHistory builds c1, c2, s1 (side branch off c2), c3, M = merge(c3, s1),
// c4, c5 with strictly increasing commit times. lib.rs is touched by c1, c2,
// s1, c4 and c5; M's diff against c3 touches it as well.
func mergeHistory(t *testing.T) (*testrepo.Repo, map[string]string) {
	t.Helper()

	tr := testrepo.New(t)
	ids := map[string]string{}

	tr.WriteFile("lib.rs", "a\n")
	ids["c1"] = tr.Commit("c1")

	tr.WriteFile("lib.rs", "a\nb\n")
	ids["c2"] = tr.Commit("c2")

	tr.WriteFile("lib.rs", "a\nb\nc\n")
	ids["s1"] = tr.CommitDetached("s1", ids["c2"])

	tr.WriteFile("lib.rs", "a\nb\n")
	tr.WriteFile("other.txt", "other\n")
	ids["c3"] = tr.Commit("c3")

	tr.WriteFile("lib.rs", "a\nb\nc\n")
	ids["merge"] = tr.Merge("merge side", ids["c3"], ids["s1"])

	tr.WriteFile("lib.rs", "a\nb\nc\nd\n")
	ids["c4"] = tr.Commit("c4")

	tr.WriteFile("lib.rs", "a\nb\nc\nd\ne\n")
	ids["c5"] = tr.Commit("c5")

	return tr, ids
}

func shas(records []history.CommitRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.SHA)
	}

	return out
}

func TestCommitsAffectingLimitSkipsMerge(t *testing.T) {
	t.Parallel()

	tr, ids := mergeHistory(t)

	eachEngine(t, tr.Path, history.DefaultOptions(), func(t *testing.T, engine *history.Engine) {
		ctx := context.Background()

		result, err := engine.CommitsAffecting(ctx, "lib.rs", 2)
		require.NoError(t, err)
		assert.Equal(t, "lib.rs", result.File)
		assert.Equal(t, []string{ids["c5"], ids["c4"]}, shas(result.Commits))

		result, err = engine.CommitsAffecting(ctx, "lib.rs", 3)
		require.NoError(t, err)
		assert.Equal(t, []string{ids["c5"], ids["c4"], ids["s1"]}, shas(result.Commits))

		result, err = engine.CommitsAffecting(ctx, "lib.rs", history.UseDefaultLimit)
		require.NoError(t, err)
		assert.Equal(t, []string{ids["c5"], ids["c4"], ids["s1"], ids["c2"], ids["c1"]}, shas(result.Commits))
		assert.NotContains(t, shas(result.Commits), ids["merge"])

		result, err = engine.CommitsAffecting(ctx, "other.txt", 10)
		require.NoError(t, err)
		assert.Equal(t, []string{ids["c3"]}, shas(result.Commits))
	})
}

func TestCommitsAffectingReturnedCommitsTouchFile(t *testing.T) {
	t.Parallel()

	tr, _ := mergeHistory(t)

	eachEngine(t, tr.Path, history.DefaultOptions(), func(t *testing.T, engine *history.Engine) {
		ctx := context.Background()

		result, err := engine.CommitsAffecting(ctx, "lib.rs", 4)
		require.NoError(t, err)
		require.LessOrEqual(t, len(result.Commits), 4)

		for _, record := range result.Commits {
			diff, diffErr := engine.CommitDiff(ctx, record.SHA)
			require.NoError(t, diffErr)

			touched := false
			for _, change := range diff.Changes {
				touched = touched || change.Path == "lib.rs"
			}

			assert.True(t, touched, record.SHA)
		}
	})
}

func TestCommitsAffectingLimits(t *testing.T) {
	t.Parallel()

	tr := testrepo.New(t)
	for i := range 6 {
		tr.WriteFile("f.txt", fmt.Sprint(i))
		tr.Commit(fmt.Sprint("commit ", i))
	}

	opts := history.DefaultOptions()
	opts.DefaultLimit = 4
	opts.MaxLimit = 5

	eachEngine(t, tr.Path, opts, func(t *testing.T, engine *history.Engine) {
		ctx := context.Background()

		result, err := engine.CommitsAffecting(ctx, "f.txt", history.UseDefaultLimit)
		require.NoError(t, err)
		assert.Len(t, result.Commits, 4)

		result, err = engine.CommitsAffecting(ctx, "f.txt", 0)
		require.NoError(t, err)
		assert.NotNil(t, result.Commits)
		assert.Empty(t, result.Commits)

		result, err = engine.CommitsAffecting(ctx, "f.txt", 100)
		require.NoError(t, err)
		assert.Len(t, result.Commits, 5)

		result, err = engine.CommitsAffecting(ctx, "f.txt", 1)
		require.NoError(t, err)
		assert.Len(t, result.Commits, 1)

		result, err = engine.CommitsAffecting(ctx, "never-existed.txt", 10)
		require.NoError(t, err)
		assert.NotNil(t, result.Commits)
		assert.Empty(t, result.Commits)

		_, err = engine.CommitsAffecting(ctx, "../outside", 10)
		require.ErrorIs(t, err, history.ErrFileNotFound)
	})

	engine := history.NewEngine(nil, opts)
	assert.Equal(t, 4, engine.EffectiveLimit(history.UseDefaultLimit))
	assert.Equal(t, 0, engine.EffectiveLimit(0))
	assert.Equal(t, 5, engine.EffectiveLimit(9))
}

func TestCommitsAffectingEmptyRepository(t *testing.T) {
	t.Parallel()

	tr := testrepo.New(t)

	eachEngine(t, tr.Path, history.DefaultOptions(), func(t *testing.T, engine *history.Engine) {
		result, err := engine.CommitsAffecting(context.Background(), "anything", 5)
		require.NoError(t, err)
		assert.Empty(t, result.Commits)
	})
}

func TestFileAtCommit(t *testing.T) {
	t.Parallel()

	tr := testrepo.New(t)
	tr.WriteFile("src/lib.rs", "pub fn one() {}\n")
	first := tr.Commit("first")
	tr.WriteFile("src/lib.rs", "pub fn two() {}\n")
	tr.WriteBytes("data.bin", []byte{0xff, 0xfe, 0x00, 0x01})
	second := tr.Commit("second")

	eachEngine(t, tr.Path, history.DefaultOptions(), func(t *testing.T, engine *history.Engine) {
		ctx := context.Background()

		old, err := engine.FileAtCommit(ctx, "src/lib.rs", first)
		require.NoError(t, err)
		assert.Equal(t, "pub fn one() {}\n", old.Content)
		assert.Equal(t, "src/lib.rs", old.File)
		assert.Equal(t, first, old.Commit.SHA)
		assert.Equal(t, "Rust", old.Language)
		assert.Equal(t, len("pub fn one() {}\n"), old.Size)

		current, err := engine.FileAtCommit(ctx, "./src/lib.rs", second[:7])
		require.NoError(t, err)
		assert.Equal(t, "pub fn two() {}\n", current.Content)

		_, err = engine.FileAtCommit(ctx, "data.bin", first)
		require.ErrorIs(t, err, history.ErrFileNotFound)
		assert.Contains(t, err.Error(), "data.bin at commit "+first)

		_, err = engine.FileAtCommit(ctx, "data.bin", second)
		require.ErrorIs(t, err, history.ErrNonTextContent)

		_, err = engine.FileAtCommit(ctx, "src", second)
		require.ErrorIs(t, err, history.ErrFileNotFound)

		_, err = engine.FileAtCommit(ctx, "src/lib.rs", "zzzz")
		require.ErrorIs(t, err, history.ErrInvalidCommit)

		_, err = engine.FileAtCommit(ctx, "", second)
		require.ErrorIs(t, err, history.ErrFileNotFound)
	})
}

func TestBlame(t *testing.T) {
	t.Parallel()

	tr := testrepo.New(t)
	tr.WriteFile("notes.txt", "alpha\nbeta\n")
	first := tr.Commit("first")
	tr.WriteFile("notes.txt", "alpha\nBETA\ngamma\n")
	second := tr.Commit("second")

	eachEngine(t, tr.Path, history.DefaultOptions(), func(t *testing.T, engine *history.Engine) {
		result, err := engine.Blame(context.Background(), "notes.txt")
		require.NoError(t, err)
		assert.Equal(t, "notes.txt", result.File)
		require.Len(t, result.Lines, 3)

		for i, line := range result.Lines {
			assert.Equal(t, i+1, line.LineNumber)
		}

		assert.Equal(t, "alpha", result.Lines[0].Content)
		assert.Equal(t, first, result.Lines[0].Commit.SHA)
		assert.Equal(t, "BETA", result.Lines[1].Content)
		assert.Equal(t, second, result.Lines[1].Commit.SHA)
		assert.Equal(t, "gamma", result.Lines[2].Content)
		assert.Equal(t, second, result.Lines[2].Commit.SHA)
		assert.Equal(t, result.Lines[1].Commit, result.Lines[2].Commit)
	})
}

func TestBlameLineCountMatchesFile(t *testing.T) {
	t.Parallel()

	tr := testrepo.New(t)
	tr.WriteFile("a.txt", numberedLines(7))
	tr.WriteFile("crlf.txt", "one\r\ntwo\r\nthree")
	tr.Commit("files")

	eachEngine(t, tr.Path, history.DefaultOptions(), func(t *testing.T, engine *history.Engine) {
		ctx := context.Background()

		result, err := engine.Blame(ctx, "a.txt")
		require.NoError(t, err)
		require.Len(t, result.Lines, 7)

		for i, line := range result.Lines {
			assert.Equal(t, i+1, line.LineNumber)
			assert.Equal(t, fmt.Sprintf("line %d", i+1), line.Content)
		}

		result, err = engine.Blame(ctx, "crlf.txt")
		require.NoError(t, err)
		require.Len(t, result.Lines, 3)
		assert.Equal(t, "two", result.Lines[1].Content)
		assert.Equal(t, "three", result.Lines[2].Content)
	})
}

func TestBlameUsesLiveContent(t *testing.T) {
	t.Parallel()

	tr := testrepo.New(t)
	tr.WriteFile("f.txt", "committed\n")
	id := tr.Commit("first")
	tr.WriteFile("f.txt", "edited\nunattributed\n")

	eachEngine(t, tr.Path, history.DefaultOptions(), func(t *testing.T, engine *history.Engine) {
		result, err := engine.Blame(context.Background(), "f.txt")
		require.NoError(t, err)
		require.Len(t, result.Lines, 1)
		assert.Equal(t, "edited", result.Lines[0].Content)
		assert.Equal(t, id, result.Lines[0].Commit.SHA)
	})
}

func TestBlameErrors(t *testing.T) {
	t.Parallel()

	tr := testrepo.New(t)
	tr.WriteFile("tracked.txt", "x\n")
	tr.WriteFile("dir/inner.txt", "y\n")
	tr.Commit("first")
	tr.WriteFile("untracked.txt", "z\n")
	tr.WriteBytes("latin1.txt", []byte{'c', 'a', 'f', 0xe9, '\n'})

	eachEngine(t, tr.Path, history.DefaultOptions(), func(t *testing.T, engine *history.Engine) {
		ctx := context.Background()

		_, err := engine.Blame(ctx, "missing.txt")
		require.ErrorIs(t, err, history.ErrFileNotFound)

		_, err = engine.Blame(ctx, "untracked.txt")
		require.ErrorIs(t, err, history.ErrFileNotFound)

		_, err = engine.Blame(ctx, "dir")
		require.ErrorIs(t, err, history.ErrFileNotFound)

		_, err = engine.Blame(ctx, "../../etc/passwd")
		require.ErrorIs(t, err, history.ErrFileNotFound)

		_, err = engine.Blame(ctx, "latin1.txt")
		require.ErrorIs(t, err, history.ErrNonTextContent)

		result, err := engine.Blame(ctx, filepath.Join(tr.Path, "dir", "inner.txt"))
		require.NoError(t, err)
		require.Len(t, result.Lines, 1)
	})
}

func TestBlameBareRepository(t *testing.T) {
	t.Parallel()

	path := testrepo.NewBare(t)

	eachEngine(t, path, history.DefaultOptions(), func(t *testing.T, engine *history.Engine) {
		_, err := engine.Blame(context.Background(), "f.txt")
		require.ErrorIs(t, err, history.ErrRepositoryAccess)
	})
}

func TestOpenFailureIsRepositoryAccess(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "nope")

	eachEngine(t, missing, history.DefaultOptions(), func(t *testing.T, engine *history.Engine) {
		ctx := context.Background()

		_, err := engine.CommitDiff(ctx, "abcd")
		require.ErrorIs(t, err, history.ErrRepositoryAccess)
		assert.Equal(t, history.KindRepositoryAccess, history.KindOf(err))

		require.ErrorIs(t, engine.Ping(ctx), history.ErrRepositoryAccess)
	})
}

func TestEngineSpans(t *testing.T) {
	t.Parallel()

	tr := testrepo.New(t)
	tr.WriteFile("a.txt", "a\n")
	id := tr.Commit("only")

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	opts := history.DefaultOptions()
	opts.Tracer = provider.Tracer("test")

	engine := history.NewEngine(gitaccess.NewOpener(tr.Path, gitaccess.BackendLibgit2), opts)

	_, err := engine.CommitDiff(context.Background(), id)
	require.NoError(t, err)

	_, err = engine.FileAtCommit(context.Background(), "missing", id)
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "history.commit_diff", spans[0].Name())
	assert.Equal(t, "history.file_at_commit", spans[1].Name())
	assert.Equal(t, "Error", spans[1].Status().Code.String())
}

func TestEngineConcurrentCalls(t *testing.T) {
	t.Parallel()

	tr, ids := mergeHistory(t)

	opts := history.DefaultOptions()
	opts.MaxConcurrent = 2

	engine := history.NewEngine(gitaccess.NewOpener(tr.Path, gitaccess.BackendLibgit2), opts)

	group, ctx := errgroup.WithContext(context.Background())

	for range 8 {
		group.Go(func() error {
			result, err := engine.CommitsAffecting(ctx, "lib.rs", 2)
			if err != nil {
				return err
			}

			if len(result.Commits) != 2 || result.Commits[0].SHA != ids["c5"] {
				return fmt.Errorf("unexpected result %v", shas(result.Commits))
			}

			return nil
		})
	}

	require.NoError(t, group.Wait())
}

func TestEngineCanceledWhileWaiting(t *testing.T) {
	t.Parallel()

	tr := testrepo.New(t)
	tr.WriteFile("a.txt", "a\n")
	id := tr.Commit("only")

	opts := history.DefaultOptions()
	opts.MaxConcurrent = 1

	release := make(chan struct{})
	opened := make(chan struct{})

	blocking := func(ctx context.Context) (gitaccess.Repository, error) {
		close(opened)
		<-release

		return gitaccess.Open(tr.Path, gitaccess.BackendLibgit2)
	}

	engine := history.NewEngine(blocking, opts)

	done := make(chan error, 1)

	go func() {
		_, err := engine.CommitDiff(context.Background(), id)
		done <- err
	}()

	<-opened

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.CommitDiff(ctx, id)
	require.ErrorIs(t, err, history.ErrRepositoryAccess)

	close(release)
	require.NoError(t, <-done)
}
