// Package crawler harvests business listings from an infinite-scroll
// results page, enriches them with a website email and appends them to a
// CSV table.
package crawler

import (
	"errors"
	"time"

	"github.com/PentesterFlow/LeadCrawler/internal/metrics"
	"github.com/PentesterFlow/LeadCrawler/internal/state"
)

// Reasons a listing is rejected by the record builder.
var (
	ErrNoName           = errors.New("listing has no name")
	ErrNoWebsite        = errors.New("listing has no website")
	ErrDuplicateWebsite = errors.New("duplicate website")
	ErrDuplicateContact = errors.New("duplicate contact")
)

// Skip reasons recorded in metrics and results.
const (
	SkipNoWebsite        = "no_website"
	SkipDuplicateWebsite = "duplicate_website"
	SkipDuplicateContact = "duplicate_contact"
	SkipNoName           = "no_name"
	SkipError            = "error"
)

// skipReason maps a builder rejection to its skip reason.
func skipReason(err error) string {
	switch {
	case errors.Is(err, ErrNoWebsite):
		return SkipNoWebsite
	case errors.Is(err, ErrDuplicateWebsite):
		return SkipDuplicateWebsite
	case errors.Is(err, ErrDuplicateContact):
		return SkipDuplicateContact
	case errors.Is(err, ErrNoName):
		return SkipNoName
	default:
		return SkipError
	}
}

// State is a phase of the crawl.
type State int

const (
	StateInit State = iota
	StateNavigating
	StatePassLoop
	StateScrollWait
	StateDone
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateNavigating:
		return "navigating"
	case StatePassLoop:
		return "pass_loop"
	case StateScrollWait:
		return "scroll_wait"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// StopReason explains why a crawl finished.
type StopReason string

const (
	StopBudget    StopReason = "budget_reached"
	StopStalled   StopReason = "stalled"
	StopCancelled StopReason = "cancelled"
)

// CrawlResult summarizes a finished crawl.
type CrawlResult struct {
	Target      string            `json:"target"`
	OutputPath  string            `json:"output_path"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt time.Time         `json:"completed_at"`
	Budget      int               `json:"budget"`
	Saved       int               `json:"saved"`
	Skipped     map[string]int    `json:"skipped"`
	Errors      []CrawlError      `json:"errors,omitempty"`
	Passes      int               `json:"passes"`
	Scrolls     int               `json:"scrolls"`
	FinalState  State             `json:"final_state"`
	StopReason  StopReason        `json:"stop_reason"`
	Ledger      state.LedgerStats `json:"ledger"`
	Metrics     *metrics.Snapshot `json:"metrics,omitempty"`
}

// Duration returns how long the crawl ran.
func (r *CrawlResult) Duration() time.Duration {
	if r.CompletedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// SkippedTotal returns the number of listings rejected for any reason.
func (r *CrawlResult) SkippedTotal() int {
	total := 0
	for _, n := range r.Skipped {
		total += n
	}
	return total
}

// CrawlError represents a per-listing error that did not stop the crawl.
type CrawlError struct {
	Listing   string    `json:"listing"`
	Operation string    `json:"operation"`
	Type      string    `json:"type"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}
