package fetcher

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/oshokin/jbr-fetch/internal/logger"
)

// report fills file facts into the record and prints the summary.
func (r *runner) report(ctx context.Context) error {
	info, err := os.Stat(r.record.Path)
	if err != nil {
		return fmt.Errorf("stat archive: %w", err)
	}

	r.record.Size = info.Size()
	r.record.ModTime = info.ModTime()

	logger.InfoKV(ctx, "Archive verified",
		"size", humanize.IBytes(uint64(max(r.record.Size, 0))),
		"downloaded", r.record.Downloaded)

	_, err = fmt.Fprintf(r.stdout,
		"Downloaded JBR to: %s\nFile size: %d bytes (%s), Last modified: %s\n",
		r.record.Path,
		r.record.Size,
		humanize.IBytes(uint64(max(r.record.Size, 0))),
		r.record.ModTime.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	return nil
}
