package mirror

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"

	"followsync/pkg/canonical"
	errs "followsync/pkg/errors"
	"followsync/pkg/logger"
	"followsync/pkg/models"
)

// maxBodySize caps how much of a mirror response is read
const maxBodySize = 8 << 20

// Options configures a Client
type Options struct {
	Mirrors       []string
	ProfilePath   string
	Timeout       time.Duration
	UserAgent     string
	BannerDefault string
}

// Client fetches profiles from an ordered list of mirrors
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	mirrors    []string
	profile    string
	parser     *Parser
	logger     logger.Logger
	now        func() time.Time
}

// NewClient creates a mirror client. The mirror list is copied and never
// changes for the life of the client.
func NewClient(opts Options, canon *canonical.Canonicalizer, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	mirrors := make([]string, 0, len(opts.Mirrors))
	for _, m := range opts.Mirrors {
		mirrors = append(mirrors, strings.TrimRight(m, "/"))
	}

	profilePath := opts.ProfilePath
	if profilePath == "" {
		profilePath = "/i/user/"
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		headers: map[string]string{
			"User-Agent":      opts.UserAgent,
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
			"Accept-Encoding": "gzip, deflate, br, zstd",
			"Cache-Control":   "no-cache",
		},
		mirrors: mirrors,
		profile: profilePath,
		parser:  NewParser(canon, opts.BannerDefault),
		logger:  log.WithField("component", "mirror"),
		now:     models.Now,
	}
}

// Mirrors returns the configured mirror bases in priority order
func (c *Client) Mirrors() []string {
	out := make([]string, len(c.mirrors))
	copy(out, c.mirrors)
	return out
}

// ProfileURL returns the profile-by-id endpoint of base for id
func (c *Client) ProfileURL(base string, id models.AccountID) string {
	return base + c.profile + id
}

// FetchProfile tries each mirror in order and returns the record from the
// first one that answers with a parseable page. Each mirror gets exactly one
// attempt; once one succeeds the rest are not contacted.
func (c *Client) FetchProfile(ctx context.Context, id models.AccountID) (*models.ProfileRecord, error) {
	var lastErr error

	for _, base := range c.mirrors {
		rec, status, err := c.fetchFrom(ctx, base, id)
		logger.LogMirrorAttempt(c.logger, id, base, status, err)
		if err != nil {
			lastErr = err
			continue
		}
		return rec, nil
	}

	if lastErr == nil {
		lastErr = errs.New(errs.ErrorTypeUnknown, 0, "no mirrors configured")
	}
	return nil, &errs.Error{
		Type:    errs.ErrorTypeAllMirrorsFailed,
		Message: fmt.Sprintf("%d mirrors tried for %s, last error: %v", len(c.mirrors), id, lastErr),
		Err:     lastErr,
	}
}

func (c *Client) fetchFrom(ctx context.Context, base string, id models.AccountID) (*models.ProfileRecord, int, error) {
	endpoint := c.ProfileURL(base, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, errs.Wrap(errs.ErrorTypeUnknown, err, "failed to create request")
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, resp.StatusCode, errs.New(errs.FromStatusCode(resp.StatusCode), resp.StatusCode,
			fmt.Sprintf("unexpected status from %s", base))
	}

	body, err := decodeBody(resp)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	defer body.Close()

	rec, err := c.parser.Parse(io.LimitReader(body, maxBodySize), base, id)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	rec.FetchedFrom = base
	rec.FetchedAt = c.now()

	return rec, resp.StatusCode, nil
}

// doRequest performs an HTTP request with the configured headers
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		if value != "" {
			req.Header.Set(key, value)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "request failed")
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// decodeBody unwraps the response according to its Content-Encoding. The
// transport does not do this because Accept-Encoding is set explicitly.
func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))

	switch encoding {
	case "", "identity":
		return io.NopCloser(resp.Body), nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, errs.Wrap(errs.ErrorTypeParsing, err, "invalid gzip body")
		}
		return zr, nil
	case "deflate":
		zr, err := zlib.NewReader(resp.Body)
		if err != nil {
			return nil, errs.Wrap(errs.ErrorTypeParsing, err, "invalid deflate body")
		}
		return zr, nil
	case "br":
		return io.NopCloser(brotli.NewReader(resp.Body)), nil
	case "zstd":
		zr, err := zstd.NewReader(resp.Body)
		if err != nil {
			return nil, errs.Wrap(errs.ErrorTypeParsing, err, "invalid zstd body")
		}
		return zr.IOReadCloser(), nil
	default:
		return nil, errs.New(errs.ErrorTypeParsing, resp.StatusCode, "unsupported content encoding "+encoding)
	}
}
