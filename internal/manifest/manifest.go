package manifest

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/jbr-fetch/internal/domain/verification"
)

// Extension is appended to an archive name to form its manifest name.
const Extension = ".checksum"

// DefaultFileMode is used for manifests written by Write.
const DefaultFileMode os.FileMode = 0o644

// maxLineLength caps the first line; digests and file names are far shorter.
const maxLineLength = 64 << 10

var (
	// ErrManifest is returned for empty or malformed manifests.
	ErrManifest = errors.New("malformed checksum manifest")

	errEmptyManifest = errors.New("manifest is empty")
	errNoDigest      = errors.New("first line has no digest token")
	errNotHex        = errors.New("digest is not hexadecimal")
)

// Parse returns the lowercase digest from the first token of the first line of r.
func Parse(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineLength)

	if !scanner.Scan() {
		err := scanner.Err()
		if errors.Is(err, bufio.ErrTooLong) {
			return "", fmt.Errorf("%w: %w", ErrManifest, err)
		}

		if err != nil {
			return "", fmt.Errorf("read manifest: %w", err)
		}

		return "", fmt.Errorf("%w: %w", ErrManifest, errEmptyManifest)
	}

	fields := strings.Fields(scanner.Text())
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: %w", ErrManifest, errNoDigest)
	}

	digest := verification.NormalizeDigest(fields[0])
	if _, err := hex.DecodeString(digest); err != nil {
		return "", fmt.Errorf("%w: %w: %q", ErrManifest, errNotHex, fields[0])
	}

	return digest, nil
}

// ParseFile opens path and parses it with Parse.
func ParseFile(path string) (string, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("open manifest: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	return Parse(file)
}

// Format renders a manifest line for digest and the base name of filename.
func Format(digest, filename string) string {
	return verification.NormalizeDigest(digest) + " " + filepath.Base(filename) + "\n"
}

// Write stores a manifest for filename at path.
func Write(path, digest, filename string) error {
	if err := os.WriteFile(filepath.Clean(path), []byte(Format(digest, filename)), DefaultFileMode); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}
