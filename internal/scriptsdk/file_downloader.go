package scriptsdk

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/openmined/scriptsync/internal/utils"
)

// FileMode is the permission downloaded files get
const FileMode os.FileMode = 0o644

// FetchFile returns the full content of a published file. The body is buffered in memory;
// scripts are small and a complete body is what makes the later write all-or-nothing.
func (s *SDK) FetchFile(ctx context.Context, name string) ([]byte, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		Get(s.filePath(name))

	if err := handleAPIError(resp, err, "fetch file "+name); err != nil {
		return nil, err
	}
	if resp.GetStatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: fetch file %s: %d", ErrUnexpectedStatus, name, resp.GetStatusCode())
	}

	body, err := resp.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: fetch file %s: read body: %w", ErrRequestFailed, name, err)
	}
	return body, nil
}

// DownloadFile fetches name and moves it into destPath only once it has been fully received.
// It returns the number of bytes written. On any failure destPath is left untouched.
func (s *SDK) DownloadFile(ctx context.Context, name string, destPath string) (int64, error) {
	body, err := s.FetchFile(ctx, name)
	if err != nil {
		return 0, err
	}

	if err := utils.WriteFileAtomic(destPath, body, FileMode); err != nil {
		return 0, fmt.Errorf("sdk: download file %s: %w", name, err)
	}

	return int64(len(body)), nil
}
