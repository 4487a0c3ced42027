package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/clapp-dev/clapp/internal/branding"
	"github.com/clapp-dev/clapp/internal/manifest"
)

// Defaults for network calls.
const (
	DefaultTimeout         = 10 * time.Second
	DefaultDownloadTimeout = 60 * time.Second
	DefaultRetries         = 2
)

// Client talks to the remote package index.
type Client struct {
	indexURL        string
	timeout         time.Duration
	downloadTimeout time.Duration
	retries         int
	httpClient      *http.Client
	logger          *zap.Logger
	rest            *resty.Client
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each index request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithDownloadTimeout bounds each archive download.
func WithDownloadTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.downloadTimeout = d
		}
	}
}

// WithRetries sets how many times a failed request is retried.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithHTTPClient replaces the retrying transport with hc (useful for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger used for warnings and debug traces.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a Client for the index at indexURL.
func NewClient(indexURL string, opts ...Option) *Client {
	c := &Client{
		indexURL:        indexURL,
		timeout:         DefaultTimeout,
		downloadTimeout: DefaultDownloadTimeout,
		retries:         DefaultRetries,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	hc := c.httpClient
	if hc == nil {
		rc := retryablehttp.NewClient()
		rc.RetryMax = c.retries
		rc.RetryWaitMin = 200 * time.Millisecond
		rc.RetryWaitMax = 2 * time.Second
		rc.Logger = nil
		rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
		hc = rc.StandardClient()
	}

	c.rest = resty.NewWithClient(hc).
		SetHeader("User-Agent", branding.CLIName()+"-client")
	return c
}

// IndexURL returns the index location this client reads.
func (c *Client) IndexURL() string {
	return c.indexURL
}

// FetchIndex downloads and decodes the index document. Records that do not
// look like valid manifests are dropped with a warning.
func (c *Client) FetchIndex(ctx context.Context) (*Index, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.logger.Debug("fetching index", zap.String("url", c.indexURL))
	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(c.indexURL)
	if err != nil {
		return nil, fmt.Errorf("fetching index: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, &HTTPError{URL: c.indexURL, StatusCode: resp.StatusCode()}
	}

	return decodeIndex(resp.Body(), c.indexURL, c.logger)
}

// decodeIndex checks the document shape against the index schema and maps
// every acceptable record. Relative download URLs are resolved against
// indexURL so that an index published without a base URL stays usable.
func decodeIndex(body []byte, indexURL string, logger *zap.Logger) (*Index, error) {
	base, err := url.Parse(indexURL)
	if err != nil {
		return nil, fmt.Errorf("parsing index url: %w", err)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decoding index: %w", err)
	}
	if err := checkDocument(inst); err != nil {
		return nil, err
	}

	var doc struct {
		Packages  []json.RawMessage `json:"packages"`
		UpdatedAt string            `json:"updated_at"`
		Count     int               `json:"count"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decoding index: %w", err)
	}

	idx := &Index{
		Packages:  make([]Record, 0, len(doc.Packages)),
		UpdatedAt: doc.UpdatedAt,
		Count:     doc.Count,
	}
	for i, raw := range doc.Packages {
		rec, err := decodeRecord(raw)
		if err != nil {
			logger.Warn("skipping index record", zap.Int("position", i), zap.Error(err))
			continue
		}
		if rec.DownloadURL, err = resolveDownloadURL(base, rec.DownloadURL); err != nil {
			logger.Warn("skipping index record", zap.Int("position", i), zap.Error(err))
			continue
		}
		idx.Packages = append(idx.Packages, rec)
	}
	return idx, nil
}

func resolveDownloadURL(base *url.URL, raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("download_url %q: %w", raw, err)
	}
	if ref.IsAbs() {
		return raw, nil
	}
	return base.ResolveReference(ref).String(), nil
}

func decodeRecord(raw json.RawMessage) (Record, error) {
	var rec Record
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return rec, err
	}
	if err := checkRecord(inst); err != nil {
		return rec, err
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return rec, err
	}
	if rec.Description == "" {
		rec.Description = manifest.DefaultDescription
	}
	if rec.Dependencies == nil {
		rec.Dependencies = []string{}
	}
	return rec, nil
}

// GetPackageInfo returns the index record named name. Fetch failures are
// logged and reported as not found.
func (c *Client) GetPackageInfo(ctx context.Context, name string) (*Record, bool) {
	idx, err := c.FetchIndex(ctx)
	if err != nil {
		c.logger.Warn("remote index unavailable", zap.String("package", name), zap.Error(err))
		return nil, false
	}
	return idx.Find(name)
}

// ListRemotePackages returns every record of the index, or nothing when the
// index cannot be fetched.
func (c *Client) ListRemotePackages(ctx context.Context) []Record {
	idx, err := c.FetchIndex(ctx)
	if err != nil {
		c.logger.Warn("remote index unavailable", zap.Error(err))
		return nil
	}
	return idx.Packages
}

// SearchPackages returns the records whose name, description or language
// contains query, ignoring case. An empty query matches everything.
func (c *Client) SearchPackages(ctx context.Context, query string) []Record {
	return Search(c.ListRemotePackages(ctx), query)
}

// Search filters records by a case-insensitive substring query. The query is
// not trimmed, so only the empty string matches every record.
func Search(records []Record, query string) []Record {
	fold := cases.Fold()
	q := fold.String(query)

	out := make([]Record, 0, len(records))
	for _, r := range records {
		if q == "" ||
			strings.Contains(fold.String(r.Name), q) ||
			strings.Contains(fold.String(r.Description), q) ||
			strings.Contains(fold.String(r.Language), q) {
			out = append(out, r)
		}
	}
	return out
}

// CheckConnectivity reports whether the index endpoint answers with a 2xx
// status within the index timeout.
func (c *Client) CheckConnectivity(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.rest.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(c.indexURL)
	if err != nil {
		c.logger.Debug("connectivity check failed", zap.Error(err))
		return false
	}
	if body := resp.RawBody(); body != nil {
		body.Close()
	}
	return resp.IsSuccess()
}

// Download streams src into destPath. A non-2xx status yields *HTTPError.
// destPath is removed if the download does not complete.
func (c *Client) Download(ctx context.Context, src, destPath string) (err error) {
	ctx, cancel := context.WithTimeout(ctx, c.downloadTimeout)
	defer cancel()

	c.logger.Debug("downloading", zap.String("url", src), zap.String("dest", destPath))
	resp, err := c.rest.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(src)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", src, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if !resp.IsSuccess() {
		return &HTTPError{URL: src, StatusCode: resp.StatusCode()}
	}

	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("creating download file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing download file: %w", cerr)
		}
		if err != nil {
			os.Remove(destPath)
		}
	}()

	if _, err := io.Copy(f, body); err != nil {
		return fmt.Errorf("reading download stream: %w", err)
	}
	return nil
}
