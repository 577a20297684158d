package checksum

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/oshokin/jbr-fetch/internal/digest"
	"github.com/oshokin/jbr-fetch/internal/logger"
	"github.com/oshokin/jbr-fetch/internal/manifest"
)

// Options contains inputs for the checksum entry point.
type Options struct {
	// Files are the archives to describe.
	Files []string
	// OutputDir receives the manifests; empty writes each one next to its archive.
	OutputDir string
}

var (
	errNoFiles    = errors.New("no files to describe")
	errNotRegular = errors.New("not a regular file")
)

// Run writes "<file>.checksum" for every input and returns the manifest paths.
func Run(ctx context.Context, opts *Options) ([]string, error) {
	ctx = logger.WithName(ctx, "jbr-checksum")

	if opts == nil || len(opts.Files) == 0 {
		return nil, errNoFiles
	}

	if opts.OutputDir != "" {
		if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}

	written := make([]string, 0, len(opts.Files))

	for _, fileName := range opts.Files {
		manifestPath, err := describe(ctx, fileName, opts.OutputDir)
		if err != nil {
			return written, err
		}

		written = append(written, manifestPath)
	}

	printNextSteps(ctx, written)

	return written, nil
}

// describe hashes one archive and writes its manifest.
func describe(ctx context.Context, fileName, outputDir string) (string, error) {
	info, err := os.Stat(fileName)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", fileName, err)
	}

	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s: %w", fileName, errNotRegular)
	}

	sum, err := digest.FileSHA512(fileName)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(fileName)
	if outputDir != "" {
		dir = outputDir
	}

	manifestPath := filepath.Join(dir, filepath.Base(fileName)+manifest.Extension)
	if err = manifest.Write(manifestPath, sum, fileName); err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "Wrote checksum manifest", "archive", fileName, "manifest", manifestPath)

	return manifestPath, nil
}

// printNextSteps logs which manifests have to be published next to their archives.
func printNextSteps(ctx context.Context, manifests []string) {
	sorted := append([]string(nil), manifests...)
	sort.Strings(sorted)

	var builder strings.Builder

	builder.WriteString("Upload the following manifests next to their archives and point JBR_CHECKSUM_URL at them:\n")
	builder.WriteString(strings.Join(sorted, ",\n"))

	logger.Info(ctx, builder.String())
}
