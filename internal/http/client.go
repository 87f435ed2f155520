// Package http provides the single-shot HTTP client used to fetch business
// websites during enrichment.
package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PentesterFlow/LeadCrawler/internal/errors"
	"golang.org/x/net/html/charset"
)

// DefaultUserAgent is a desktop Chrome user agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/143.0.0.0 Safari/537.36"

// Client fetches pages with a fixed timeout and body limit.
type Client struct {
	client       *http.Client
	userAgent    string
	headers      map[string]string
	maxBodyBytes int64
}

// ClientConfig holds configuration for the client.
type ClientConfig struct {
	Timeout             time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxBodyBytes        int64
	UserAgent           string
	Headers             map[string]string
	SkipTLSVerify       bool
}

// DefaultClientConfig returns the defaults for website fetches.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:             10 * time.Second,
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 2,
		MaxBodyBytes:        5 * 1024 * 1024,
		UserAgent:           DefaultUserAgent,
	}
}

// NewClient creates a client from config.
func NewClient(config ClientConfig) *Client {
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = 5 * 1024 * 1024
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: config.SkipTLSVerify,
		},
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		userAgent:    config.UserAgent,
		headers:      config.Headers,
		maxBodyBytes: config.MaxBodyBytes,
	}
}

// Response is a fetched page.
type Response struct {
	URL         string
	FinalURL    string
	StatusCode  int
	ContentType string
	Body        string
	Duration    time.Duration
}

// Get performs a single GET. Any status code is accepted; the body is
// decoded to UTF-8 when a charset is declared or detectable and kept as-is
// otherwise. Binary content types are reported as enrichment errors.
func (c *Client) Get(ctx context.Context, targetURL string) (*Response, error) {
	start := time.Now()
	result := &Response{URL: targetURL}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return result, errors.NewParseError(targetURL, "request_creation", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return result, errors.Categorize(err, targetURL, "get", errors.Enrichment)
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	result.FinalURL = resp.Request.URL.String()
	result.ContentType = resp.Header.Get("Content-Type")

	if isBinaryContentType(result.ContentType) {
		result.Duration = time.Since(start)
		return result, errors.NewEnrichmentError(targetURL, "binary content type "+result.ContentType, nil)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
	if err != nil {
		result.Duration = time.Since(start)
		return result, errors.Categorize(err, targetURL, "body_read", errors.Enrichment)
	}

	result.Body = decodeBody(raw, result.ContentType)
	result.Duration = time.Since(start)
	return result, nil
}

// decodeBody converts raw to UTF-8, falling back to the raw bytes when no
// decoder applies.
func decodeBody(raw []byte, contentType string) string {
	r, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return string(raw)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}

var binaryPrefixes = []string{
	"image/",
	"audio/",
	"video/",
	"font/",
	"application/octet-stream",
	"application/pdf",
	"application/zip",
}

func isBinaryContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	for _, p := range binaryPrefixes {
		if strings.HasPrefix(ct, p) {
			return true
		}
	}
	return false
}

// IsHTML reports whether the response looks like an HTML document.
func (r *Response) IsHTML() bool {
	ct := strings.ToLower(r.ContentType)
	if strings.Contains(ct, "html") {
		return true
	}
	if ct != "" {
		return false
	}
	head := strings.ToLower(r.Body)
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html")
}

// Close releases idle connections.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}
