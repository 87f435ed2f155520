// Package metrics collects run counters for the listing harvester.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector collects and aggregates metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	passes          atomic.Int64
	scrolls         atomic.Int64
	listingsSeen    atomic.Int64
	listingsOpened  atomic.Int64
	listingsSaved   atomic.Int64
	errorsTotal     atomic.Int64
	fetchesTotal    atomic.Int64
	emailsFound     atomic.Int64
	fetchFailures   atomic.Int64
	fetchBytesTotal atomic.Int64

	fetchTimeSum atomic.Int64
	fetchTimeNum atomic.Int64

	// <100, <250, <500, <1000, <2500, <5000, <10000, >=10000 (ms)
	fetchTimeBuckets [8]atomic.Int64

	skipCounts  map[string]*atomic.Int64
	errorCounts map[string]*atomic.Int64
	mu          sync.RWMutex

	startTime time.Time
}

// New creates a new metrics collector.
func New() *Collector {
	return &Collector{
		skipCounts:  make(map[string]*atomic.Int64),
		errorCounts: make(map[string]*atomic.Int64),
		startTime:   time.Now(),
	}
}

// RecordPass records one enumeration pass over the visible listings.
func (c *Collector) RecordPass() {
	if c != nil {
		c.passes.Add(1)
	}
}

// RecordScroll records one wheel scroll of the results panel.
func (c *Collector) RecordScroll() {
	if c != nil {
		c.scrolls.Add(1)
	}
}

// RecordListingSeen records a visible listing handle.
func (c *Collector) RecordListingSeen() {
	if c != nil {
		c.listingsSeen.Add(1)
	}
}

// RecordListingOpened records a listing whose detail view was opened.
func (c *Collector) RecordListingOpened() {
	if c != nil {
		c.listingsOpened.Add(1)
	}
}

// RecordListingSaved records a committed record.
func (c *Collector) RecordListingSaved() {
	if c != nil {
		c.listingsSaved.Add(1)
	}
}

// RecordSkip records a listing rejected for reason.
func (c *Collector) RecordSkip(reason string) {
	if c == nil {
		return
	}
	inc(&c.mu, c.skipCounts, reason)
}

// RecordError records a per-listing error by type.
func (c *Collector) RecordError(errorType string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	inc(&c.mu, c.errorCounts, errorType)
}

// RecordFetch records one enrichment fetch.
func (c *Collector) RecordFetch(d time.Duration, bytes int, found bool, failed bool) {
	if c == nil {
		return
	}
	c.fetchesTotal.Add(1)
	c.fetchBytesTotal.Add(int64(bytes))
	if found {
		c.emailsFound.Add(1)
	}
	if failed {
		c.fetchFailures.Add(1)
	}

	ms := d.Milliseconds()
	c.fetchTimeSum.Add(ms)
	c.fetchTimeNum.Add(1)
	c.fetchTimeBuckets[bucket(ms)].Add(1)
}

func inc(mu *sync.RWMutex, m map[string]*atomic.Int64, key string) {
	mu.RLock()
	ctr := m[key]
	mu.RUnlock()
	if ctr == nil {
		mu.Lock()
		if ctr = m[key]; ctr == nil {
			ctr = &atomic.Int64{}
			m[key] = ctr
		}
		mu.Unlock()
	}
	ctr.Add(1)
}

func bucket(ms int64) int {
	switch {
	case ms < 100:
		return 0
	case ms < 250:
		return 1
	case ms < 500:
		return 2
	case ms < 1000:
		return 3
	case ms < 2500:
		return 4
	case ms < 5000:
		return 5
	case ms < 10000:
		return 6
	default:
		return 7
	}
}

// AverageFetchTime returns the mean enrichment fetch duration.
func (c *Collector) AverageFetchTime() time.Duration {
	num := c.fetchTimeNum.Load()
	if num == 0 {
		return 0
	}
	return time.Duration(c.fetchTimeSum.Load()/num) * time.Millisecond
}

// Snapshot returns a point-in-time copy of all metrics.
func (c *Collector) Snapshot() *Snapshot {
	if c == nil {
		return &Snapshot{SkipCounts: map[string]int64{}, ErrorCounts: map[string]int64{}}
	}

	s := &Snapshot{
		Timestamp:        time.Now(),
		Uptime:           time.Since(c.startTime),
		Passes:           c.passes.Load(),
		Scrolls:          c.scrolls.Load(),
		ListingsSeen:     c.listingsSeen.Load(),
		ListingsOpened:   c.listingsOpened.Load(),
		ListingsSaved:    c.listingsSaved.Load(),
		ErrorsTotal:      c.errorsTotal.Load(),
		FetchesTotal:     c.fetchesTotal.Load(),
		EmailsFound:      c.emailsFound.Load(),
		FetchFailures:    c.fetchFailures.Load(),
		FetchBytesTotal:  c.fetchBytesTotal.Load(),
		AverageFetchTime: c.AverageFetchTime(),
		SkipCounts:       make(map[string]int64),
		ErrorCounts:      make(map[string]int64),
		FetchTimeHist:    make([]int64, len(c.fetchTimeBuckets)),
	}

	c.mu.RLock()
	for k, v := range c.skipCounts {
		s.SkipCounts[k] = v.Load()
	}
	for k, v := range c.errorCounts {
		s.ErrorCounts[k] = v.Load()
	}
	c.mu.RUnlock()

	for i := range c.fetchTimeBuckets {
		s.FetchTimeHist[i] = c.fetchTimeBuckets[i].Load()
	}

	return s
}

// Snapshot represents a point-in-time view of metrics.
type Snapshot struct {
	Timestamp        time.Time        `json:"timestamp"`
	Uptime           time.Duration    `json:"uptime"`
	Passes           int64            `json:"passes"`
	Scrolls          int64            `json:"scrolls"`
	ListingsSeen     int64            `json:"listings_seen"`
	ListingsOpened   int64            `json:"listings_opened"`
	ListingsSaved    int64            `json:"listings_saved"`
	ErrorsTotal      int64            `json:"errors_total"`
	FetchesTotal     int64            `json:"fetches_total"`
	EmailsFound      int64            `json:"emails_found"`
	FetchFailures    int64            `json:"fetch_failures"`
	FetchBytesTotal  int64            `json:"fetch_bytes_total"`
	AverageFetchTime time.Duration    `json:"average_fetch_time"`
	SkipCounts       map[string]int64 `json:"skip_counts"`
	ErrorCounts      map[string]int64 `json:"error_counts"`
	FetchTimeHist    []int64          `json:"fetch_time_histogram"`
}

// SkippedTotal sums skips over all reasons.
func (s *Snapshot) SkippedTotal() int64 {
	var n int64
	for _, v := range s.SkipCounts {
		n += v
	}
	return n
}

// EmailHitRate returns the share of fetches that produced an email (0-1).
func (s *Snapshot) EmailHitRate() float64 {
	if s.FetchesTotal == 0 {
		return 0
	}
	return float64(s.EmailsFound) / float64(s.FetchesTotal)
}

// Summary returns the fields logged at the end of a run.
func (s *Snapshot) Summary() map[string]interface{} {
	return map[string]interface{}{
		"uptime":            s.Uptime.Round(time.Second).String(),
		"passes":            s.Passes,
		"scrolls":           s.Scrolls,
		"listings_seen":     s.ListingsSeen,
		"listings_opened":   s.ListingsOpened,
		"listings_saved":    s.ListingsSaved,
		"listings_skipped":  s.SkippedTotal(),
		"errors_total":      s.ErrorsTotal,
		"fetches":           s.FetchesTotal,
		"email_hit_rate":    s.EmailHitRate(),
		"avg_fetch_time_ms": s.AverageFetchTime.Milliseconds(),
	}
}
