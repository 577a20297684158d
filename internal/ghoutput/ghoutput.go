package ghoutput

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultFileMode is used when the output file does not exist yet.
const DefaultFileMode os.FileMode = 0o600

// ErrInvalidOutput is returned for keys or values that would break the key=value format.
var ErrInvalidOutput = errors.New("invalid step output")

// Append writes "key=value\n" to the file at path. An empty path does nothing.
func Append(path, key, value string) error {
	if path == "" {
		return nil
	}

	if key == "" || strings.ContainsAny(key, "=\r\n") {
		return fmt.Errorf("key %q: %w", key, ErrInvalidOutput)
	}

	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("value for %q contains a line break: %w", key, ErrInvalidOutput)
	}

	file, err := os.OpenFile(filepath.Clean(path), os.O_APPEND|os.O_CREATE|os.O_WRONLY, DefaultFileMode)
	if err != nil {
		return fmt.Errorf("open step output: %w", err)
	}

	if _, err = fmt.Fprintf(file, "%s=%s\n", key, value); err != nil {
		_ = file.Close()

		return fmt.Errorf("write step output: %w", err)
	}

	if err = file.Close(); err != nil {
		return fmt.Errorf("close step output: %w", err)
	}

	return nil
}
