package verification

import (
	"strings"
	"time"
)

// Record describes the outcome of verifying one cached archive.
type Record struct {
	// Expected is the digest published in the manifest.
	Expected string
	// Actual is the digest of the file at Path, empty if it was never hashed.
	Actual string
	// Path is the cache location of the archive.
	Path string
	// Size is the file size in bytes.
	Size int64
	// ModTime is the file modification time.
	ModTime time.Time
	// Downloaded reports whether this run had to fetch the archive.
	Downloaded bool
}

// NormalizeDigest trims and lowercases a hex digest for comparison.
func NormalizeDigest(digest string) string {
	return strings.ToLower(strings.TrimSpace(digest))
}

// Verified reports whether the actual digest matches the expected one.
// Both sides must be non-empty, comparison ignores hex case.
func (r *Record) Verified() bool {
	if r == nil {
		return false
	}

	expected, actual := NormalizeDigest(r.Expected), NormalizeDigest(r.Actual)

	return expected != "" && expected == actual
}

// Clone returns a copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}

	cloned := *r

	return &cloned
}
