package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/oshokin/jbr-fetch/internal/cache"
	"github.com/oshokin/jbr-fetch/internal/config"
	"github.com/oshokin/jbr-fetch/internal/digest"
	"github.com/oshokin/jbr-fetch/internal/domain/verification"
	"github.com/oshokin/jbr-fetch/internal/fetch"
	"github.com/oshokin/jbr-fetch/internal/ghoutput"
	"github.com/oshokin/jbr-fetch/internal/logger"
	"github.com/oshokin/jbr-fetch/internal/manifest"
)

// ErrChecksumMismatch is returned when the archive still differs from the manifest after a fresh download.
var ErrChecksumMismatch = errors.New("checksum verification failed")

var errCachePathIsDirectory = errors.New("cache path is a directory")

// Options are inputs accepted by the fetcher entry point.
type Options struct {
	// ConfigPath is the optional path to a settings YAML file.
	ConfigPath string
	// OutputName overrides the GITHUB_OUTPUT key.
	OutputName string
	// LogLevel overrides the level from the settings file.
	LogLevel string
	// Timeout overrides the per-download HTTP timeout.
	Timeout time.Duration
	// Lookup resolves environment variables, os.LookupEnv when nil.
	Lookup config.LookupFunc
	// Stdout receives the success summary, os.Stdout when nil.
	Stdout io.Writer
	// HTTPClient replaces the default HTTP client.
	HTTPClient *http.Client
}

// runner holds the state of a single fetch.
// It is unexported; call Run(ctx, Options) from callers.
type runner struct {
	cfg          *config.Config       // Resolved settings.
	client       *fetch.Client        // HTTP downloads.
	stdout       io.Writer            // Where the summary goes.
	record       *verification.Record // Digests and file facts gathered so far.
	manifestPath string               // Temporary copy of the checksum manifest.
}

// Run executes the fetch and returns the verification record on success.
func Run(ctx context.Context, opts *Options) (*verification.Record, error) {
	ctx = logger.WithName(ctx, "jbr-fetch")

	r, err := newRunner(opts)
	if err != nil {
		return nil, err
	}

	defer r.cleanup(ctx)

	if err = r.Run(ctx); err != nil {
		return nil, err
	}

	return r.record.Clone(), nil
}

// newRunner resolves configuration. It never touches the network,
// so missing variables fail before any request is made.
func newRunner(opts *Options) (*runner, error) {
	if opts == nil {
		opts = new(Options)
	}

	cfg, err := config.Resolve(opts.ConfigPath, opts.Lookup)
	if err != nil {
		return nil, fmt.Errorf("resolve configuration: %w", err)
	}

	if opts.OutputName != "" {
		cfg.OutputName = opts.OutputName
	}

	if opts.Timeout > 0 {
		cfg.Timeout = opts.Timeout
	}

	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	if cfg.LogLevel != "" {
		level, levelErr := logger.ParseLogLevel(cfg.LogLevel)
		if levelErr != nil {
			return nil, levelErr
		}

		logger.SetLevel(level)
	}

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	return &runner{
		cfg:    cfg,
		client: fetch.New(fetch.WithHTTPClient(opts.HTTPClient), fetch.WithTimeout(cfg.Timeout)),
		stdout: stdout,
		record: new(verification.Record),
	}, nil
}

// Run performs the workflow:
// 1) Derive the cache path and publish it.
// 2) Lock the cache entry.
// 3) Fetch the expected digest.
// 4) Hash the cached archive, download it once if it does not match.
// 5) Report.
func (r *runner) Run(ctx context.Context) error {
	cachePath, err := cache.Path(r.cfg.ToolCache, r.cfg.ArtifactURL)
	if err != nil {
		return fmt.Errorf("derive cache path: %w", err)
	}

	r.record.Path = cachePath
	ctx = logger.WithKV(ctx, "path", cachePath)

	if err = ghoutput.Append(r.cfg.GitHubOutput, r.cfg.OutputName, cachePath); err != nil {
		return err
	}

	lockCtx, cancel := context.WithTimeout(ctx, r.cfg.LockTimeout)
	defer cancel()

	unlock, err := cache.Lock(lockCtx, cachePath)
	if err != nil {
		return err
	}

	defer func() {
		if unlockErr := unlock(); unlockErr != nil {
			logger.WarnKV(ctx, "Unable to release cache lock", "error", unlockErr)
		}
	}()

	logger.InfoKV(ctx, "Downloading checksum manifest", "url", r.cfg.ChecksumURL)

	if r.record.Expected, err = r.expectedDigest(ctx); err != nil {
		return err
	}

	if err = r.ensureVerified(ctx); err != nil {
		return err
	}

	return r.report(ctx)
}

// expectedDigest downloads the manifest to a temporary file and parses it.
func (r *runner) expectedDigest(ctx context.Context) (string, error) {
	tmp, err := os.CreateTemp("", "jbr-checksum-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temporary manifest: %w", err)
	}

	r.manifestPath = tmp.Name()
	_ = tmp.Close()

	if _, err = r.client.Download(ctx, r.cfg.ChecksumURL, r.manifestPath); err != nil {
		return "", fmt.Errorf("download checksum manifest: %w", err)
	}

	expected, err := manifest.ParseFile(r.manifestPath)
	if err != nil {
		return "", fmt.Errorf("parse checksum manifest: %w", err)
	}

	logger.DebugKV(ctx, "Expected digest", "sha512", expected)

	return expected, nil
}

// ensureVerified reuses a matching cached archive or downloads it exactly once.
func (r *runner) ensureVerified(ctx context.Context) error {
	actual, err := r.cachedDigest(ctx)
	if err != nil {
		return err
	}

	r.record.Actual = actual
	if r.record.Verified() {
		logger.Info(ctx, "Cached archive matches the manifest, skipping download")
		return nil
	}

	logger.InfoKV(ctx, "Downloading archive", "url", r.cfg.ArtifactURL)

	started := time.Now()

	if err = r.client.Replace(ctx, r.cfg.ArtifactURL, r.record.Path); err != nil {
		return fmt.Errorf("download archive: %w", err)
	}

	r.record.Downloaded = true

	if r.record.Actual, err = digest.FileSHA512(r.record.Path); err != nil {
		return err
	}

	logger.DebugKV(ctx, "Downloaded archive digest", "sha512", r.record.Actual, "took", time.Since(started))

	if !r.record.Verified() {
		return fmt.Errorf("%w: %s: expected %s, got %s",
			ErrChecksumMismatch, r.record.Path, r.record.Expected, r.record.Actual)
	}

	return nil
}

// cachedDigest hashes an existing cached archive. A missing file yields an empty digest.
func (r *runner) cachedDigest(ctx context.Context) (string, error) {
	info, err := os.Stat(r.record.Path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Info(ctx, "No cached archive found")
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("stat cached archive: %w", err)
	}

	if info.IsDir() {
		return "", fmt.Errorf("%s: %w", r.record.Path, errCachePathIsDirectory)
	}

	actual, err := digest.FileSHA512(r.record.Path)
	if err != nil {
		return "", err
	}

	logger.DebugKV(ctx, "Cached archive digest", "sha512", actual)

	return actual, nil
}

// cleanup removes the temporary manifest.
func (r *runner) cleanup(ctx context.Context) {
	if r.manifestPath == "" {
		return
	}

	if err := os.Remove(r.manifestPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WarnKV(ctx, "Unable to remove temporary manifest", "path", r.manifestPath, "error", err)
	}
}
