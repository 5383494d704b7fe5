package instagram

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"time"

	"igarchive/pkg/errors"
	"igarchive/pkg/logger"
	"igarchive/pkg/storage"
)

// AssetRequest carries the browser session's credentials for one CDN fetch
type AssetRequest struct {
	URL       string
	UserAgent string
	Referer   string
	Cookies   []*http.Cookie
}

// Asset is an open asset response. The caller closes Body.
type Asset struct {
	Body        io.ReadCloser
	FileName    string
	ContentType string
}

// Client fetches media assets with the same identity as the browser session
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	logger     logger.Logger
}

// NewClient creates an asset client. A zero timeout means none.
func NewClient(timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"Accept":          "*/*",
			"Accept-Language": "en-US,en;q=0.9",
			"Sec-Fetch-Dest":  "empty",
			"Sec-Fetch-Mode":  "cors",
			"Sec-Fetch-Site":  "cross-site",
		},
		logger: log,
	}
}

// WithHTTPClient swaps the underlying transport, mainly for tests
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// OpenAsset issues the authenticated GET and returns the streaming body.
// Non-2xx statuses, network errors and malformed Content-Disposition
// headers all come back as transient fetch errors.
func (c *Client) OpenAsset(ctx context.Context, ar AssetRequest) (*Asset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ar.URL, nil)
	if err != nil {
		return nil, errors.NewTransientFetch(ar.URL, 0, err)
	}

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if ar.UserAgent != "" {
		req.Header.Set("User-Agent", ar.UserAgent)
	}
	if ar.Referer != "" {
		req.Header.Set("Referer", ar.Referer)
	}
	for _, ck := range ar.Cookies {
		req.AddCookie(ck)
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}

	if err := c.checkResponseStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	name, err := AssetFileName(resp.Header, ar.URL)
	if err != nil {
		resp.Body.Close()
		return nil, errors.NewTransientFetch(ar.URL, resp.StatusCode, err)
	}

	return &Asset{
		Body:        resp.Body,
		FileName:    name,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.DebugWithFields("HTTP request failed", map[string]interface{}{
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errors.NewTransientFetch(req.URL.String(), 0, err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})
	return resp, nil
}

func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}
	return errors.NewTransientFetch(resp.Request.URL.String(), resp.StatusCode,
		fmt.Errorf("unexpected status %s", resp.Status))
}

// AssetFileName picks the on-disk name for an asset: the Content-Disposition
// filename, else the last segment of the URL path. It returns "" when
// neither yields a usable name.
func AssetFileName(h http.Header, rawURL string) (string, error) {
	if cd := h.Get("Content-Disposition"); cd != "" {
		_, params, err := mime.ParseMediaType(cd)
		if err != nil {
			return "", fmt.Errorf("content-disposition: %w", err)
		}
		if name := storage.SanitizeFileName(params["filename"]); name != "" {
			return name, nil
		}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", nil
	}
	return storage.SanitizeFileName(path.Base(u.Path)), nil
}
