// Package gitlib wraps the libgit2 bindings with the repository primitives
// needed to answer history queries: commit lookup, trees, blobs, tree diffs,
// revision walks and blame.
package gitlib

import (
	"encoding/hex"
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// Constants for hash operations.
const (
	// HashSize is the size of a SHA-1 hash in bytes.
	HashSize = 20
	// HashHexSize is the size of a hex-encoded SHA-1 hash.
	HashHexSize = 40
	// MinPrefixSize is the shortest abbreviated id accepted for lookups.
	MinPrefixSize = 4
)

// Hash represents a git object hash (SHA-1).
type Hash [HashSize]byte

// ParseHash parses a full 40-character hex object id.
func ParseHash(hexStr string) (Hash, error) {
	if len(hexStr) != HashHexSize {
		return Hash{}, fmt.Errorf("%w: %q has %d characters", ErrInvalidHash, hexStr, len(hexStr))
	}

	var hash Hash

	_, err := hex.Decode(hash[:], []byte(hexStr))
	if err != nil {
		return Hash{}, fmt.Errorf("%w: %q: %v", ErrInvalidHash, hexStr, err)
	}

	return hash, nil
}

// ParseHashPrefix parses an abbreviated hex object id. The returned hash is
// zero-padded and the length is the number of significant hex digits.
func ParseHashPrefix(prefix string) (Hash, int, error) {
	if len(prefix) < MinPrefixSize || len(prefix) > HashHexSize {
		return Hash{}, 0, fmt.Errorf("%w: %q has %d characters", ErrInvalidHash, prefix, len(prefix))
	}

	padded := make([]byte, HashHexSize)
	copy(padded, prefix)

	for i := len(prefix); i < HashHexSize; i++ {
		padded[i] = '0'
	}

	hash, err := ParseHash(string(padded))
	if err != nil {
		return Hash{}, 0, err
	}

	return hash, len(prefix), nil
}

// HashFromOid converts a libgit2 Oid to Hash.
func HashFromOid(oid *git2go.Oid) Hash {
	var h Hash
	if oid != nil {
		copy(h[:], oid[:])
	}

	return h
}

// String returns the hex representation of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero returns true if the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// ToOid converts Hash back to libgit2 Oid.
func (h Hash) ToOid() *git2go.Oid {
	oid := new(git2go.Oid)
	copy(oid[:], h[:])

	return oid
}
