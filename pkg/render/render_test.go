package render_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/timemachine/pkg/history"
	"github.com/Sumatoshi-tech/timemachine/pkg/render"
)

const ansiEscape = "\x1b["

var now = time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC)

func commit(sha, message, timestamp string) history.CommitRecord {
	return history.CommitRecord{
		SHA:       sha,
		Message:   message,
		Author:    "Ada Lovelace",
		Email:     "ada@example.com",
		Timestamp: timestamp,
	}
}

func diffText(s string) *string {
	return &s
}

func sampleDiff() *history.CommitDiff {
	return &history.CommitDiff{
		Commit: commit("0123456789abcdef0123456789abcdef01234567", "Add greeting\n\nLonger body.\n", "2024-03-01T10:00:00+00:00"),
		Changes: []history.FileChange{
			{
				Path:       "README.md",
				ChangeType: history.ChangeModified,
				Diff:       diffText("@@ -1,1 +1,2 @@\n Hello\n+World\n"),
				Additions:  1,
			},
			{Path: "logo.png", ChangeType: history.ChangeAdded, Diff: diffText("")},
		},
	}
}

func printWith(t *testing.T, opts render.Options, fn func(*render.Printer) error) string {
	t.Helper()

	if opts.Now == nil {
		opts.Now = func() time.Time { return now }
	}

	var buf bytes.Buffer

	require.NoError(t, fn(render.NewPrinter(&buf, opts)))

	return buf.String()
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want render.Format
	}{
		{"", render.FormatText},
		{"text", render.FormatText},
		{"JSON", render.FormatJSON},
		{"yaml", render.FormatYAML},
		{"yml", render.FormatYAML},
	}

	for _, tt := range tests {
		got, err := render.ParseFormat(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := render.ParseFormat("xml")
	require.ErrorIs(t, err, render.ErrUnknownFormat)
}

func TestCommitDiffText(t *testing.T) {
	t.Parallel()

	out := printWith(t, render.Options{}, func(p *render.Printer) error { return p.CommitDiff(sampleDiff()) })

	assert.Contains(t, out, "commit 0123456789abcdef0123456789abcdef01234567\n")
	assert.Contains(t, out, "Author: Ada Lovelace <ada@example.com>\n")
	assert.Contains(t, out, "(3 days ago)")
	assert.Contains(t, out, "    Add greeting\n")
	assert.Contains(t, out, "    Longer body.\n")
	assert.Contains(t, out, "MODIFIED README.md (+1 -0)\n@@ -1,1 +1,2 @@\n Hello\n+World\n")
	assert.Contains(t, out, "ADDED logo.png (+0 -0)\n    (no textual diff)\n")
	assert.NotContains(t, out, ansiEscape)
}

func TestCommitDiffColor(t *testing.T) {
	t.Parallel()

	out := printWith(t, render.Options{Color: true}, func(p *render.Printer) error { return p.CommitDiff(sampleDiff()) })

	assert.Contains(t, out, ansiEscape)
	assert.Contains(t, out, "+World")
	assert.NotContains(t, out, "\n+World\n")
}

func TestBlameTable(t *testing.T) {
	t.Parallel()

	result := &history.BlameResult{
		File: "main.go",
		Lines: []history.BlameLine{
			{LineNumber: 1, Content: "package main", Commit: commit("aaaaaaaaaaaa", "init", "2024-03-04T09:00:00+00:00")},
			{LineNumber: 2, Content: "func main() {}", Commit: commit("bbbbbbbbbbbb", "main", "2024-02-04T10:00:00+00:00")},
		},
	}

	out := printWith(t, render.Options{}, func(p *render.Printer) error { return p.Blame(result) })

	assert.Contains(t, out, "aaaaaaaa")
	assert.NotContains(t, out, "aaaaaaaaa")
	assert.Contains(t, out, "package main")
	assert.Contains(t, out, "1 hour ago")
	assert.Contains(t, out, "4 weeks ago")
}

func TestCommitsTable(t *testing.T) {
	t.Parallel()

	result := &history.CommitsAffectingResult{
		File: "main.go",
		Commits: []history.CommitRecord{
			commit("aaaaaaaaaaaa", "Second\n\nbody", "2024-03-02T10:00:00+00:00"),
			commit("bbbbbbbbbbbb", "First", "2024-03-01T10:00:00+00:00"),
		},
	}

	out := printWith(t, render.Options{}, func(p *render.Printer) error { return p.Commits(result) })

	assert.Contains(t, out, "Second")
	assert.NotContains(t, out, "body")
	assert.Contains(t, out, "Total: 2 commits")

	empty := printWith(t, render.Options{}, func(p *render.Printer) error {
		return p.Commits(&history.CommitsAffectingResult{File: "none.go"})
	})
	assert.Equal(t, "No commits touch none.go\n", empty)
}

func TestSummaryText(t *testing.T) {
	t.Parallel()

	result := &history.DiffSummary{
		Summary: "Changes between 0123456 and 89abcde: 1 files changed, 1 insertions(+), 0 deletions(-)",
		Changes: sampleDiff().Changes[:1],
		Stats:   history.DiffStats{FilesChanged: 1, Insertions: 1},
	}

	out := printWith(t, render.Options{}, func(p *render.Printer) error { return p.Summary(result) })

	assert.True(t, strings.HasPrefix(out, result.Summary+"\n\n"))
	assert.Contains(t, out, "modified")
	assert.Contains(t, out, "README.md")
	assert.Contains(t, out, "1 files")
}

func TestFileText(t *testing.T) {
	t.Parallel()

	result := &history.FileAtCommitResult{
		File:     "main.go",
		Commit:   commit("0123456789abcdef", "init", "2024-03-01T10:00:00+00:00"),
		Content:  "package main\n\nfunc main() {}\n",
		Language: "Go",
		Size:     2048,
	}

	plain := printWith(t, render.Options{}, func(p *render.Printer) error { return p.File(result) })
	assert.Equal(t, "main.go @ 01234567 · Go · 2.0 KiB\npackage main\n\nfunc main() {}\n", plain)

	colored := printWith(t, render.Options{Color: true}, func(p *render.Printer) error { return p.File(result) })
	assert.Contains(t, colored, ansiEscape)
	assert.Contains(t, colored, "func")
	assert.NotContains(t, colored, "package main\n\nfunc main() {}\n")
}

func TestStructuredFormats(t *testing.T) {
	t.Parallel()

	diff := sampleDiff()

	out := printWith(t, render.Options{Format: render.FormatJSON}, func(p *render.Printer) error { return p.CommitDiff(diff) })

	var decoded history.CommitDiff

	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, *diff, decoded)

	out = printWith(t, render.Options{Format: render.FormatYAML}, func(p *render.Printer) error { return p.CommitDiff(diff) })
	assert.Contains(t, out, "change_type: MODIFIED")

	var fromYAML history.CommitDiff

	require.NoError(t, yaml.Unmarshal([]byte(out), &fromYAML))
	assert.Equal(t, diff.Commit, fromYAML.Commit)
	assert.Equal(t, diff.Changes[0].DiffText(), fromYAML.Changes[0].DiffText())
}

func TestActivity(t *testing.T) {
	t.Parallel()

	points := render.Activity([]history.CommitRecord{
		commit("c", "", "2024-03-02T23:30:00+00:00"),
		commit("b", "", "2024-03-02T08:00:00+00:00"),
		commit("a", "", "2024-03-01T10:00:00+00:00"),
		commit("x", "", "garbage"),
	})

	assert.Equal(t, []render.ActivityPoint{
		{Day: "2024-03-01", Commits: 1},
		{Day: "2024-03-02", Commits: 2},
	}, points)
}

func TestActivityChart(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	err := render.ActivityChart(&buf, &history.CommitsAffectingResult{
		File: "main.go",
		Commits: []history.CommitRecord{
			commit("b", "", "2024-03-02T08:00:00+00:00"),
			commit("a", "", "2024-03-01T10:00:00+00:00"),
		},
	})
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "echarts")
	assert.Contains(t, html, "2024-03-01")
	assert.Contains(t, html, "Commits per day")
}
