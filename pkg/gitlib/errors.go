package gitlib

import (
	"errors"
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// Sentinel errors translated from libgit2 error codes.
var (
	// ErrNotFound is returned when an object, reference or path does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAmbiguous is returned when an abbreviated id matches several objects.
	ErrAmbiguous = errors.New("ambiguous object id")
	// ErrUnbornHead is returned when HEAD points to a branch without commits.
	ErrUnbornHead = errors.New("HEAD has no commits")
	// ErrBareRepository is returned for working-tree operations on a bare repository.
	ErrBareRepository = errors.New("bare repository")
	// ErrInvalidHash is returned when a string is not a valid hex object id.
	ErrInvalidHash = errors.New("invalid object id")
)

// classify maps libgit2 error codes onto the package sentinels so callers
// can use errors.Is after the error has been wrapped.
func classify(err error) error {
	var gitErr *git2go.GitError
	if !errors.As(err, &gitErr) {
		return err
	}

	switch gitErr.Code {
	case git2go.ErrorCodeNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, gitErr.Message)
	case git2go.ErrorCodeAmbiguous:
		return fmt.Errorf("%w: %s", ErrAmbiguous, gitErr.Message)
	case git2go.ErrorCodeUnbornBranch:
		return fmt.Errorf("%w: %s", ErrUnbornHead, gitErr.Message)
	case git2go.ErrorCodeBareRepo:
		return fmt.Errorf("%w: %s", ErrBareRepository, gitErr.Message)
	default:
		return err
	}
}
