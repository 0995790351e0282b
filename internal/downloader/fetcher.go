package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	errs "followsync/pkg/errors"
)

// maxAssetSize caps a single image download
const maxAssetSize = 32 << 20

// HTTPFetcher downloads assets over HTTP with a per-request timeout
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	maxSize   int64
}

// NewHTTPFetcher creates a fetcher whose requests time out after timeout
func NewHTTPFetcher(timeout time.Duration, userAgent string) *HTTPFetcher {
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		maxSize:   maxAssetSize,
	}
}

// DownloadAsset returns the full body of url. A non-2xx status, an empty
// body, a body shorter than its Content-Length or one larger than the size
// cap is an error.
func (f *HTTPFetcher) DownloadAsset(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeUnknown, err, "failed to create request")
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "asset request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errs.New(errs.FromStatusCode(resp.StatusCode), resp.StatusCode,
			fmt.Sprintf("unexpected status %d for asset", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "failed to read asset body")
	}
	if int64(len(data)) > f.maxSize {
		return nil, errs.New(errs.ErrorTypeNetwork, resp.StatusCode,
			fmt.Sprintf("asset body exceeds %d bytes", f.maxSize))
	}
	if len(data) == 0 {
		return nil, errs.New(errs.ErrorTypeNetwork, resp.StatusCode, "empty asset body")
	}
	if resp.ContentLength > 0 && int64(len(data)) < resp.ContentLength {
		return nil, errs.New(errs.ErrorTypeNetwork, resp.StatusCode,
			fmt.Sprintf("short asset body: %d of %d bytes", len(data), resp.ContentLength))
	}

	return data, nil
}
