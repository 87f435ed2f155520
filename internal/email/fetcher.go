package email

import (
	"context"
	"strings"

	"github.com/PentesterFlow/LeadCrawler/internal/errors"
	"github.com/PentesterFlow/LeadCrawler/internal/http"
	"github.com/PentesterFlow/LeadCrawler/internal/logger"
	"github.com/PentesterFlow/LeadCrawler/internal/metrics"
)

// Fetcher downloads a business website and returns the first business
// email it carries. It never reports failure to the caller.
type Fetcher struct {
	client  *http.Client
	log     *logger.Logger
	metrics *metrics.Collector
}

// NewFetcher creates a fetcher. log and m may be nil.
func NewFetcher(client *http.Client, log *logger.Logger, m *metrics.Collector) *Fetcher {
	if client == nil {
		client = http.NewClient(http.DefaultClientConfig())
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Fetcher{client: client, log: log.WithComponent("enrich"), metrics: m}
}

// FetchBusinessEmail fetches url once and scans it for a business address.
// It returns "" when url is not an http(s) address, when the fetch fails
// for any reason, or when the page has no business address.
func (f *Fetcher) FetchBusinessEmail(ctx context.Context, url string) string {
	if url == "" || !strings.HasPrefix(url, "http") {
		return ""
	}

	resp, err := f.client.Get(ctx, url)
	if err != nil {
		if !errors.IsCancelled(err) {
			f.log.WithError(err).Debugf("website fetch failed: %s", url)
		}
		f.metrics.RecordFetch(resp.Duration, 0, false, true)
		return ""
	}

	addr := FirstBusinessAddress(resp.Body, resp.IsHTML())
	f.metrics.RecordFetch(resp.Duration, len(resp.Body), addr != "", false)
	f.log.FetchEvent(url, addr != "", resp.Duration)
	return addr
}

// Close releases the underlying client's idle connections.
func (f *Fetcher) Close() {
	f.client.Close()
}
