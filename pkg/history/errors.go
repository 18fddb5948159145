package history

import (
	"errors"
	"fmt"
)

// Error categories surfaced by the engine. Every error returned by an
// Engine method wraps exactly one of them.
var (
	// ErrRepositoryAccess covers failures opening or reading the repository.
	ErrRepositoryAccess = errors.New("repository access error")
	// ErrFileNotFound is returned when a path is absent from the working tree or a commit.
	ErrFileNotFound = errors.New("file not found")
	// ErrInvalidCommit is returned for ids that are malformed or resolve to no commit.
	ErrInvalidCommit = errors.New("invalid commit identifier")
	// ErrNonTextContent is returned when file content is not valid UTF-8.
	ErrNonTextContent = errors.New("content is not valid UTF-8 text")
	// ErrOther covers internal inconsistencies.
	ErrOther = errors.New("internal error")
)

// Kind is the category of an engine error.
type Kind int

// Error kinds.
const (
	KindNone Kind = iota
	KindRepositoryAccess
	KindFileNotFound
	KindInvalidCommit
	KindNonTextContent
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindRepositoryAccess:
		return "repository_access"
	case KindFileNotFound:
		return "file_not_found"
	case KindInvalidCommit:
		return "invalid_commit"
	case KindNonTextContent:
		return "non_text_content"
	default:
		return "other"
	}
}

// KindOf classifies err. Errors that wrap none of the categories are KindOther.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidCommit):
		return KindInvalidCommit
	case errors.Is(err, ErrFileNotFound):
		return KindFileNotFound
	case errors.Is(err, ErrNonTextContent):
		return KindNonTextContent
	case errors.Is(err, ErrRepositoryAccess):
		return KindRepositoryAccess
	default:
		return KindOther
	}
}

// categorize wraps the accessor error text under sentinel. The original
// error is rendered with %v so accessor types stay internal to the engine.
func categorize(sentinel error, context string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", sentinel, context)
	}

	return fmt.Errorf("%w: %s: %v", sentinel, context, err)
}
