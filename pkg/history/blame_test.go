package history

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitLines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"empty", "", nil},
		{"trailing newline", "a\nb\n", []string{"a", "b"}},
		{"no trailing newline", "a\nb", []string{"a", "b"}},
		{"crlf", "a\r\nb\r\n", []string{"a", "b"}},
		{"blank lines", "\n\nx\n", []string{"", "", "x"}},
		{"single newline", "\n", []string{""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, splitLines(tt.content))
		})
	}
}

func TestCleanRepoPath(t *testing.T) {
	t.Parallel()

	valid := map[string]string{
		"a.txt":         "a.txt",
		"./src/lib.rs":  "src/lib.rs",
		"src//x/../y.c": "src/y.c",
	}

	for in, want := range valid {
		got, err := cleanRepoPath(in, in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	for _, in := range []string{"", " ", ".", "..", "../x", "a/../../x", ".git", ".git/config", "/etc/passwd"} {
		_, err := cleanRepoPath(in, in)
		require.ErrorIs(t, err, ErrFileNotFound, in)
	}
}

func TestWorkdirRelative(t *testing.T) {
	t.Parallel()

	workdir := t.TempDir()

	got, err := workdirRelative(workdir+string(filepath.Separator), filepath.Join(workdir, "pkg", "a.go"))
	require.NoError(t, err)
	assert.Equal(t, "pkg/a.go", got)

	got, err = workdirRelative(workdir, "pkg/a.go")
	require.NoError(t, err)
	assert.Equal(t, "pkg/a.go", got)

	_, err = workdirRelative(workdir, filepath.Join(filepath.Dir(workdir), "elsewhere.txt"))
	require.ErrorIs(t, err, ErrFileNotFound)

	_, err = workdirRelative(workdir, "")
	require.ErrorIs(t, err, ErrFileNotFound)
}
