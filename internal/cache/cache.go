package cache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/gofrs/flock"
)

const (
	// lockSuffix is appended to the cache path to form its lock file.
	lockSuffix = ".lock"

	// lockRetryDelay is how often a held lock is polled.
	lockRetryDelay = time.Second

	// DefaultDirMode is used when the cache directory has to be created.
	DefaultDirMode os.FileMode = 0o755
)

var (
	// ErrNoFileName is returned when the URL path has no usable final segment.
	ErrNoFileName = errors.New("url has no file name")

	errLockNotAcquired = errors.New("cache entry lock not acquired")
)

// FileNameFromURL returns the final non-empty segment of the URL path, ignoring query and fragment.
func FileNameFromURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", rawURL, err)
	}

	name := path.Base(strings.TrimRight(parsed.Path, "/"))
	switch name {
	case "", ".", "/", "..":
		return "", fmt.Errorf("%q: %w", rawURL, ErrNoFileName)
	}

	return name, nil
}

// Path derives the cache location of rawURL under dir. The result never leaves dir.
func Path(dir, rawURL string) (string, error) {
	name, err := FileNameFromURL(rawURL)
	if err != nil {
		return "", err
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve cache directory: %w", err)
	}

	joined, err := securejoin.SecureJoin(absDir, name)
	if err != nil {
		return "", fmt.Errorf("join cache path: %w", err)
	}

	return joined, nil
}

// Lock takes an exclusive lock on the cache entry at cachePath, waiting until ctx is done.
// The returned function releases it.
func Lock(ctx context.Context, cachePath string) (func() error, error) {
	if err := os.MkdirAll(filepath.Dir(cachePath), DefaultDirMode); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	fileLock := flock.New(cachePath + lockSuffix)

	locked, err := fileLock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", fileLock.Path(), err)
	}

	if !locked {
		return nil, fmt.Errorf("%s: %w", fileLock.Path(), errLockNotAcquired)
	}

	return fileLock.Unlock, nil
}
