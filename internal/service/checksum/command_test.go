package checksum

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/jbr-fetch/internal/manifest"
)

// TestRun_WritesManifestsNextToArchives produces manifests the fetcher can parse.
func TestRun_WritesManifestsNextToArchives(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archive := filepath.Join(dir, "jbrsdk-21.tar.gz")
	contents := []byte("archive contents")
	require.NoError(t, os.WriteFile(archive, contents, 0o600))

	written, err := Run(context.Background(), &Options{Files: []string{archive}})
	require.NoError(t, err)
	require.Equal(t, []string{archive + manifest.Extension}, written)

	sum := sha512.Sum512(contents)

	got, err := manifest.ParseFile(written[0])
	require.NoError(t, err)
	require.Equal(t, hex.EncodeToString(sum[:]), got)
}

// TestRun_OutputDir writes manifests into a separate, created directory.
func TestRun_OutputDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archive := filepath.Join(dir, "jbr.zip")
	require.NoError(t, os.WriteFile(archive, []byte("zip"), 0o600))

	out := filepath.Join(dir, "out", "manifests")

	written, err := Run(context.Background(), &Options{Files: []string{archive}, OutputDir: out})
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(out, "jbr.zip"+manifest.Extension)}, written)
	require.FileExists(t, written[0])
}

// TestRun_Errors covers missing input, missing files and directories.
func TestRun_Errors(t *testing.T) {
	t.Parallel()

	_, err := Run(context.Background(), &Options{})
	require.ErrorIs(t, err, errNoFiles)

	dir := t.TempDir()

	_, err = Run(context.Background(), &Options{Files: []string{filepath.Join(dir, "missing.tar.gz")}})
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = Run(context.Background(), &Options{Files: []string{dir}})
	require.ErrorIs(t, err, errNotRegular)
}
