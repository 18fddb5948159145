package history

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/Sumatoshi-tech/timemachine/pkg/gitaccess"
)

// assembleBlame pairs every line of the live file with the commit blame
// attributes it to. Lines without attribution are left out.
func assembleBlame(ctx context.Context, repo gitaccess.Repository, file string) ([]BlameLine, error) {
	workdir := repo.Workdir()
	if workdir == "" {
		return nil, categorize(ErrRepositoryAccess, "blame requires a working tree", nil)
	}

	rel, err := workdirRelative(workdir, file)
	if err != nil {
		return nil, err
	}

	content, err := readLiveFile(filepath.Join(workdir, filepath.FromSlash(rel)), file)
	if err != nil {
		return nil, err
	}

	blame, err := repo.Blame(ctx, rel)

	switch {
	case errors.Is(err, gitaccess.ErrNotFound):
		return nil, categorize(ErrFileNotFound, file+" is not tracked at HEAD", err)
	case err != nil:
		return nil, categorize(ErrRepositoryAccess, "blame "+file, err)
	}

	lines := splitLines(content)
	out := make([]BlameLine, 0, len(lines))
	records := make(map[string]CommitRecord)

	for i, text := range lines {
		id, ok := blame.CommitAt(i + 1)
		if !ok {
			continue
		}

		record, ok := records[id]
		if !ok {
			record, err = commitRecord(ctx, repo, id)
			if err != nil {
				return nil, err
			}

			records[id] = record
		}

		out = append(out, BlameLine{LineNumber: i + 1, Content: text, Commit: record})
	}

	return out, nil
}

func commitRecord(ctx context.Context, repo gitaccess.Repository, id string) (CommitRecord, error) {
	commit, err := repo.ResolveCommit(ctx, id)
	if err != nil {
		return CommitRecord{}, categorize(ErrRepositoryAccess, "load commit "+id, err)
	}
	defer commit.Free()

	return NormalizeCommit(commit), nil
}

// workdirRelative turns file into a slash-separated path relative to the
// working tree. Absolute paths must lie inside it.
func workdirRelative(workdir, file string) (string, error) {
	if strings.TrimSpace(file) == "" {
		return "", categorize(ErrFileNotFound, "empty path", nil)
	}

	candidate := filepath.FromSlash(file)
	if filepath.IsAbs(candidate) {
		rel, err := filepath.Rel(filepath.Clean(workdir), filepath.Clean(candidate))
		if err != nil {
			return "", categorize(ErrFileNotFound, file, err)
		}

		candidate = rel
	}

	return cleanRepoPath(filepath.ToSlash(candidate), file)
}

// cleanRepoPath normalises a repository-relative path and rejects paths
// that leave the repository.
func cleanRepoPath(path, original string) (string, error) {
	cleaned := filepath.ToSlash(filepath.Clean(filepath.FromSlash(path)))

	switch {
	case strings.TrimSpace(path) == "", cleaned == ".":
		return "", categorize(ErrFileNotFound, "empty path", nil)
	case cleaned == "..", strings.HasPrefix(cleaned, "../"), strings.HasPrefix(cleaned, "/"):
		return "", categorize(ErrFileNotFound, original+" is outside the repository", nil)
	case cleaned == ".git", strings.HasPrefix(cleaned, ".git/"):
		return "", categorize(ErrFileNotFound, original, nil)
	}

	return cleaned, nil
}

func readLiveFile(fullPath, file string) (string, error) {
	info, err := os.Stat(fullPath)

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", categorize(ErrFileNotFound, file, nil)
	case err != nil:
		return "", categorize(ErrRepositoryAccess, "stat "+file, err)
	case info.IsDir():
		return "", categorize(ErrFileNotFound, file+" is a directory", nil)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", categorize(ErrRepositoryAccess, "read "+file, err)
	}

	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s", ErrNonTextContent, file)
	}

	return string(data), nil
}

// splitLines splits on \n, drops a trailing \r from each line and does not
// report an empty final line after a terminating newline.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}

	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}

	return lines
}
