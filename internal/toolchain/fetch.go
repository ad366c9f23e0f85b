package toolchain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/sgloader/sgloader-packager/internal/logger"
)

// errBadHTTPStatus is returned when the download endpoint answers anything but 200.
var errBadHTTPStatus = errors.New("unexpected http status")

// HTTPFetcher downloads files over HTTP(S) with a single GET per file.
type HTTPFetcher struct {
	// client is the HTTP client used for downloads.
	client *http.Client
}

// NewHTTPFetcher creates a Fetcher using the provided client,
// or http.DefaultClient when nil.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}

	return &HTTPFetcher{client: client}
}

// Download fetches url and streams the response body to dest.
// Any transport error or non-200 status fails the download; there are no retries.
func (f *HTTPFetcher) Download(ctx context.Context, url, dest string) error {
	logger.InfoKV(ctx, "Downloading file", "url", url, "dest", dest)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return err
	}

	response, err := f.client.Do(req)
	if err != nil {
		return err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("%s, %s: %w", url, response.Status, errBadHTTPStatus)
	}

	out, err := os.Create(filepath.Clean(dest))
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, response.Body); err != nil {
		_ = out.Close()
		return fmt.Errorf("write %s: %w", dest, err)
	}

	return out.Close()
}
