// Package fetch retrieves the documents the analysis pipeline consumes. The
// pipeline itself never performs network I/O; it only sees the Document shape
// returned here, and every failure comes back as an unsuccessful Document
// rather than an error.
package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"scraping-analyzer/internal/evidence"
)

// Kind selects which document to retrieve for a resource.
type Kind string

const (
	KindRobots Kind = "robots"
	KindTOS    Kind = "tos"
	KindMain   Kind = "main"
)

const maxBodyBytes = 5 * 1024 * 1024

var tosPaths = []string{"/terms", "/terms-of-service", "/tos", "/terms-and-conditions"}

// Config drives client behaviour.
type Config struct {
	Timeout   time.Duration
	UserAgent string
}

// Client fetches documents over HTTP with a bounded timeout and body size.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient constructs a document client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = "scraping-analyzer/1.0"
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
	}
}

// Fetch retrieves the requested document kind for the resource URL.
func (c *Client) Fetch(ctx context.Context, rawURL string, kind Kind) evidence.Document {
	switch kind {
	case KindRobots:
		target, err := resolvePath(rawURL, "/robots.txt")
		if err != nil {
			return failed(rawURL, err)
		}
		return c.get(ctx, target)
	case KindTOS:
		for _, path := range tosPaths {
			target, err := resolvePath(rawURL, path)
			if err != nil {
				continue
			}
			if doc := c.get(ctx, target); doc.Success {
				return doc
			}
		}
		return evidence.Document{Success: false, Error: "no terms of service found", URL: rawURL, Headers: map[string]string{}}
	default:
		return c.get(ctx, rawURL)
	}
}

func (c *Client) get(ctx context.Context, target string) evidence.Document {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return failed(target, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return failed(target, err)
	}
	defer resp.Body.Close()

	headers := make(map[string]string, len(resp.Header))
	for name := range resp.Header {
		headers[name] = resp.Header.Get(name)
	}

	if resp.StatusCode != http.StatusOK {
		return evidence.Document{Success: false, Error: resp.Status, URL: target, Headers: headers}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return failed(target, err)
	}

	return evidence.Document{
		Success: true,
		Content: string(body),
		URL:     target,
		Headers: headers,
	}
}

func failed(target string, err error) evidence.Document {
	return evidence.Document{Success: false, Error: err.Error(), URL: target, Headers: map[string]string{}}
}

// resolvePath rebuilds the URL with the given absolute path, dropping any
// query or fragment.
func resolvePath(rawURL, path string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	parsed.Path = path
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String(), nil
}
