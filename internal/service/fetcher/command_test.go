package fetcher

import (
	"bytes"
	"context"
	"crypto/sha512"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/jbr-fetch/internal/config"
	"github.com/oshokin/jbr-fetch/internal/fetch"
	"github.com/oshokin/jbr-fetch/internal/manifest"
)

const archiveName = "jbrsdk-21.0.5-linux-x64-b631.8.tar.gz"

// fixture serves one archive and its manifest and counts the requests for each.
type fixture struct {
	ts           *httptest.Server
	archive      []byte
	archiveHits  atomic.Int32
	manifestHits atomic.Int32
	cacheDir     string
	outputPath   string
}

func sha512Hex(data []byte) string {
	sum := sha512.Sum512(data)
	return hex.EncodeToString(sum[:])
}

func newFixture(t *testing.T, archive []byte, manifestBody string) *fixture {
	t.Helper()

	dir := t.TempDir()
	f := &fixture{
		archive:    archive,
		cacheDir:   filepath.Join(dir, "toolcache"),
		outputPath: filepath.Join(dir, "github_output"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/intellij-jbr/"+archiveName, func(w http.ResponseWriter, _ *http.Request) {
		f.archiveHits.Add(1)
		_, _ = w.Write(f.archive)
	})
	mux.HandleFunc("/intellij-jbr/"+archiveName+manifest.Extension, func(w http.ResponseWriter, _ *http.Request) {
		f.manifestHits.Add(1)
		_, _ = w.Write([]byte(manifestBody))
	})

	f.ts = httptest.NewServer(mux)
	t.Cleanup(f.ts.Close)

	return f
}

func (f *fixture) env() map[string]string {
	return map[string]string{
		config.EnvToolCache:    f.cacheDir,
		config.EnvArtifactURL:  f.ts.URL + "/intellij-jbr/" + archiveName,
		config.EnvChecksumURL:  f.ts.URL + "/intellij-jbr/" + archiveName + manifest.Extension,
		config.EnvGitHubOutput: f.outputPath,
	}
}

func (f *fixture) options(env map[string]string, stdout *bytes.Buffer) *Options {
	return &Options{
		Lookup: func(key string) (string, bool) {
			value, ok := env[key]
			return value, ok
		},
		Stdout:     stdout,
		HTTPClient: f.ts.Client(),
	}
}

func (f *fixture) cachePath() string {
	return filepath.Join(f.cacheDir, archiveName)
}

func (f *fixture) seedCache(t *testing.T, contents []byte) {
	t.Helper()

	require.NoError(t, os.MkdirAll(f.cacheDir, 0o755))
	require.NoError(t, os.WriteFile(f.cachePath(), contents, 0o600))
}

// TestRun_CachedArchiveMatches succeeds without downloading when the cache is already valid.
func TestRun_CachedArchiveMatches(t *testing.T) {
	t.Parallel()

	archive := []byte("jbr archive v21")
	f := newFixture(t, archive, sha512Hex(archive)+"  "+archiveName+"\n")
	f.seedCache(t, archive)

	var stdout bytes.Buffer

	record, err := Run(context.Background(), f.options(f.env(), &stdout))
	require.NoError(t, err)
	require.True(t, record.Verified())
	require.False(t, record.Downloaded)
	require.Equal(t, f.cachePath(), record.Path)
	require.EqualValues(t, len(archive), record.Size)

	require.Zero(t, f.archiveHits.Load())
	require.EqualValues(t, 1, f.manifestHits.Load())

	require.Contains(t, stdout.String(), "Downloaded JBR to: "+f.cachePath()+"\n")
	require.Contains(t, stdout.String(), "File size: 15 bytes (15 B)")

	output, err := os.ReadFile(f.outputPath)
	require.NoError(t, err)
	require.Equal(t, "jbrLocation="+f.cachePath()+"\n", string(output))
}

// TestRun_StaleCacheIsReplaced downloads once when the cached digest is stale.
func TestRun_StaleCacheIsReplaced(t *testing.T) {
	t.Parallel()

	archive := []byte("jbr archive v21.0.5")
	f := newFixture(t, archive, strings.ToUpper(sha512Hex(archive))+" "+archiveName)
	f.seedCache(t, []byte("jbr archive v21.0.4"))

	var stdout bytes.Buffer

	record, err := Run(context.Background(), f.options(f.env(), &stdout))
	require.NoError(t, err)
	require.True(t, record.Downloaded)
	require.EqualValues(t, 1, f.archiveHits.Load())

	contents, err := os.ReadFile(f.cachePath())
	require.NoError(t, err)
	require.Equal(t, archive, contents)
}

// TestRun_EmptyCacheDownloads creates the tool cache directory and fetches the archive.
func TestRun_EmptyCacheDownloads(t *testing.T) {
	t.Parallel()

	archive := bytes.Repeat([]byte("x"), 200_000)
	f := newFixture(t, archive, sha512Hex(archive)+" "+archiveName)

	var stdout bytes.Buffer

	record, err := Run(context.Background(), f.options(f.env(), &stdout))
	require.NoError(t, err)
	require.True(t, record.Downloaded)
	require.Contains(t, stdout.String(), "File size: 200000 bytes (195 KiB)")
}

// TestRun_MismatchAfterDownload fails without a success summary when the fresh download is wrong.
func TestRun_MismatchAfterDownload(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []byte("tampered archive"), sha512Hex([]byte("genuine archive"))+" "+archiveName)

	var stdout bytes.Buffer

	record, err := Run(context.Background(), f.options(f.env(), &stdout))
	require.ErrorIs(t, err, ErrChecksumMismatch)
	require.Nil(t, record)
	require.Empty(t, stdout.String())
	require.EqualValues(t, 1, f.archiveHits.Load())
}

// TestRun_MissingEnvironment fails before any request for each required variable.
func TestRun_MissingEnvironment(t *testing.T) {
	t.Parallel()

	for _, key := range []string{config.EnvToolCache, config.EnvArtifactURL, config.EnvChecksumURL} {
		key := key
		t.Run(key, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, []byte("archive"), sha512Hex([]byte("archive")))

			env := f.env()
			delete(env, key)

			var stdout bytes.Buffer

			_, err := Run(context.Background(), f.options(env, &stdout))
			require.ErrorIs(t, err, config.ErrMissingEnvironment)
			require.ErrorContains(t, err, key)
			require.Zero(t, f.archiveHits.Load())
			require.Zero(t, f.manifestHits.Load())
			require.NoFileExists(t, f.outputPath)
		})
	}
}

// TestRun_EmptyManifest reports a parse failure and never requests the archive.
func TestRun_EmptyManifest(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []byte("archive"), "")

	var stdout bytes.Buffer

	_, err := Run(context.Background(), f.options(f.env(), &stdout))
	require.ErrorIs(t, err, manifest.ErrManifest)
	require.Zero(t, f.archiveHits.Load())
	require.Empty(t, stdout.String())
}

// TestRun_ManifestUnavailable surfaces transport failures as network errors.
func TestRun_ManifestUnavailable(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []byte("archive"), "")

	env := f.env()
	env[config.EnvChecksumURL] = f.ts.URL + "/intellij-jbr/missing.checksum"

	var stdout bytes.Buffer

	_, err := Run(context.Background(), f.options(env, &stdout))
	require.True(t, fetch.IsNetworkError(err))
	require.Zero(t, f.archiveHits.Load())
}

// TestRun_ArchiveUnavailable keeps the stale cache and prints no summary when the archive download fails.
func TestRun_ArchiveUnavailable(t *testing.T) {
	t.Parallel()

	archive := []byte("jbr archive v21.0.5")
	stale := []byte("jbr archive v21.0.4")
	f := newFixture(t, archive, sha512Hex(archive)+" "+archiveName)
	f.seedCache(t, stale)

	env := f.env()
	env[config.EnvArtifactURL] = f.ts.URL + "/missing/" + archiveName

	var stdout bytes.Buffer

	record, err := Run(context.Background(), f.options(env, &stdout))
	require.True(t, fetch.IsNetworkError(err))
	require.Nil(t, record)
	require.Empty(t, stdout.String())
	require.Zero(t, f.archiveHits.Load())
	require.EqualValues(t, 1, f.manifestHits.Load())

	contents, err := os.ReadFile(f.cachePath())
	require.NoError(t, err)
	require.Equal(t, stale, contents)
}

// TestRun_RepeatedRunsAreIdempotent produces identical output and never fetches a valid cached archive.
func TestRun_RepeatedRunsAreIdempotent(t *testing.T) {
	t.Parallel()

	archive := []byte("jbr archive v21")
	f := newFixture(t, archive, sha512Hex(archive)+" "+archiveName)
	f.seedCache(t, archive)

	var first, second bytes.Buffer

	_, err := Run(context.Background(), f.options(f.env(), &first))
	require.NoError(t, err)

	_, err = Run(context.Background(), f.options(f.env(), &second))
	require.NoError(t, err)

	require.Equal(t, first.String(), second.String())
	require.Zero(t, f.archiveHits.Load())
	require.EqualValues(t, 2, f.manifestHits.Load())
}

// TestRun_CachePathIsDirectory refuses to treat a directory as the archive.
func TestRun_CachePathIsDirectory(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []byte("archive"), sha512Hex([]byte("archive")))
	require.NoError(t, os.MkdirAll(f.cachePath(), 0o755))

	var stdout bytes.Buffer

	_, err := Run(context.Background(), f.options(f.env(), &stdout))
	require.ErrorIs(t, err, errCachePathIsDirectory)
	require.Zero(t, f.archiveHits.Load())
}

// TestRun_RemovesTemporaryManifest leaves no manifest copy behind on success or failure.
func TestRun_RemovesTemporaryManifest(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	archive := []byte("archive")

	ok := newFixture(t, archive, sha512Hex(archive))

	var stdout bytes.Buffer

	_, err := Run(context.Background(), ok.options(ok.env(), &stdout))
	require.NoError(t, err)

	bad := newFixture(t, archive, "zz not-hex")

	_, err = Run(context.Background(), bad.options(bad.env(), &stdout))
	require.Error(t, err)

	leftovers, err := filepath.Glob(filepath.Join(tmp, "jbr-checksum-*"))
	require.NoError(t, err)
	require.Empty(t, leftovers)
}
