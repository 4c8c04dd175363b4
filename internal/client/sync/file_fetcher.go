package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/openmined/scriptsync/internal/scriptsdk"
	"github.com/openmined/scriptsync/internal/utils"
)

// FetchOutcome is the result of fetching a single file. It succeeded iff Err is nil.
type FetchOutcome struct {
	Path  string
	Bytes int64
	Err   error
}

func (o FetchOutcome) Succeeded() bool {
	return o.Err == nil
}

// FileFetcher downloads one published file into the script directory.
// On failure no local file is created or modified.
type FileFetcher interface {
	Fetch(ctx context.Context, name string) FetchOutcome
}

type fileDownloader interface {
	DownloadFile(ctx context.Context, name string, destPath string) (int64, error)
}

var _ fileDownloader = (*scriptsdk.SDK)(nil)

type SDKFileFetcher struct {
	client     fileDownloader
	scriptsDir string
}

func NewFileFetcher(client fileDownloader, scriptsDir string) *SDKFileFetcher {
	return &SDKFileFetcher{client: client, scriptsDir: scriptsDir}
}

func (f *SDKFileFetcher) Fetch(ctx context.Context, name string) FetchOutcome {
	outcome := FetchOutcome{Path: name}

	destPath, err := utils.SafeJoin(f.scriptsDir, name)
	if err != nil {
		outcome.Err = fmt.Errorf("%w: %q: %w", ErrInvalidPath, name, err)
		return outcome
	}

	start := time.Now()
	n, err := f.client.DownloadFile(ctx, name, destPath)
	if err != nil {
		if errors.Is(err, scriptsdk.ErrFileNotFound) {
			slog.Warn("fetch file missing on origin", "name", name)
		}
		outcome.Err = err
		return outcome
	}

	outcome.Bytes = n
	slog.Debug("fetched", "name", name, "size", humanize.Bytes(uint64(n)), "took", time.Since(start))
	return outcome
}
