package digest

import (
	"crypto"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	// Register SHA-512 with the crypto package.
	_ "crypto/sha512"
)

const (
	// Algorithm is the hash used for every archive and manifest.
	Algorithm crypto.Hash = crypto.SHA512

	// chunkSize is the read buffer used while streaming a file.
	chunkSize = 64 << 10
)

var errHashUnavailable = errors.New("hash function unavailable")

// IOError reports a file that could not be read while hashing.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("hash %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// IsIOError reports whether err is, or wraps, an *IOError.
func IsIOError(err error) bool {
	var e *IOError
	return errors.As(err, &e)
}

// FileSHA512 streams the file at path through SHA-512 and returns the lowercase hex digest.
func FileSHA512(path string) (string, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", &IOError{Path: path, Err: err}
	}

	defer func() {
		_ = file.Close()
	}()

	sum, err := Reader(file)
	if err != nil {
		return "", &IOError{Path: path, Err: err}
	}

	return sum, nil
}

// Reader consumes r in fixed-size chunks and returns its lowercase hex SHA-512.
func Reader(r io.Reader) (string, error) {
	if !Algorithm.Available() {
		return "", fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	hasher := Algorithm.New()
	buf := make([]byte, chunkSize)

	if _, err := io.CopyBuffer(hasher, onlyReader{r}, buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// onlyReader hides WriterTo so io.CopyBuffer honors the chunk size.
type onlyReader struct {
	io.Reader
}
