package crawler

import (
	"context"
	"time"

	"github.com/PentesterFlow/LeadCrawler/internal/browser"
	"github.com/PentesterFlow/LeadCrawler/internal/errors"
	"github.com/PentesterFlow/LeadCrawler/internal/parser"
	"github.com/PentesterFlow/LeadCrawler/internal/state"
)

// Enricher looks up a business email on a website. It returns "" when
// none is found or the lookup fails.
type Enricher interface {
	FetchBusinessEmail(ctx context.Context, url string) string
}

// Builder opens one listing handle and materializes its record.
type Builder struct {
	ledger    *state.Ledger
	enricher  Enricher
	selectors Selectors
	timing    TimingConfig
}

// NewBuilder creates a builder that checks identities against ledger.
func NewBuilder(ledger *state.Ledger, enricher Enricher, selectors Selectors, timing TimingConfig) *Builder {
	return &Builder{
		ledger:    ledger,
		enricher:  enricher,
		selectors: selectors,
		timing:    timing,
	}
}

// Build opens handle on page and reads its detail pane. It returns
// ErrNoWebsite, ErrDuplicateWebsite or ErrDuplicateContact for rejected
// listings and a *errors.CrawlError when the UI fails. The ledger is only
// read.
func (b *Builder) Build(ctx context.Context, page browser.Page, handle browser.Element, name string) (state.Listing, error) {
	if err := handle.ScrollIntoView(ctx); err != nil {
		return state.Listing{}, errors.Categorize(err, name, "scroll_into_view", errors.UI)
	}
	if err := sleep(ctx, b.timing.SettleDelay); err != nil {
		return state.Listing{}, errors.NewCancelledError(name, "settle")
	}
	if err := handle.Click(ctx); err != nil {
		return state.Listing{}, errors.Categorize(err, name, "click", errors.UI)
	}
	if err := sleep(ctx, b.timing.DetailDelay); err != nil {
		return state.Listing{}, errors.NewCancelledError(name, "detail_wait")
	}

	raw, err := b.readAttribute(ctx, page, b.selectors.Website, "href")
	if err != nil {
		return state.Listing{}, errors.Categorize(err, name, "read_website", errors.UI)
	}
	website := parser.CanonicalizeRedirectURL(raw)
	if website == "" {
		return state.Listing{}, ErrNoWebsite
	}
	normalized := parser.NormalizeForIdentity(website)
	if b.ledger.HasWebsite(normalized) {
		return state.Listing{}, ErrDuplicateWebsite
	}

	l := state.Listing{
		RawName:           name,
		Name:              parser.CleanText(name),
		Website:           website,
		NormalizedWebsite: normalized,
	}

	if l.Phone, err = b.readText(ctx, page, b.selectors.Phone, state.MissingField); err != nil {
		return state.Listing{}, errors.Categorize(err, name, "read_phone", errors.UI)
	}
	if l.Address, err = b.readText(ctx, page, b.selectors.Address, state.MissingField); err != nil {
		return state.Listing{}, errors.Categorize(err, name, "read_address", errors.UI)
	}
	if l.Reviews, err = b.readText(ctx, page, b.selectors.Reviews, state.MissingReviews); err != nil {
		return state.Listing{}, errors.Categorize(err, name, "read_reviews", errors.UI)
	}

	if l.SourceURL, err = page.URL(ctx); err != nil {
		return state.Listing{}, errors.Categorize(err, name, "read_url", errors.Navigation)
	}
	l.Latitude, l.Longitude, _ = parser.ExtractLatLng(l.SourceURL)

	l.Email = b.enricher.FetchBusinessEmail(ctx, website)
	if ctx.Err() != nil {
		return state.Listing{}, errors.NewCancelledError(name, "enrich")
	}

	if b.ledger.HasContact(l.ContactKey()) {
		return state.Listing{}, ErrDuplicateContact
	}

	return l, nil
}

// readText returns the text of the first match of selector, or fallback
// when nothing matches.
func (b *Builder) readText(ctx context.Context, page browser.Page, selector, fallback string) (string, error) {
	el, ok, err := page.Query(ctx, selector)
	if err != nil {
		return "", err
	}
	if !ok {
		return fallback, nil
	}
	return el.Text(ctx)
}

func (b *Builder) readAttribute(ctx context.Context, page browser.Page, selector, name string) (string, error) {
	el, ok, err := page.Query(ctx, selector)
	if err != nil || !ok {
		return "", err
	}
	v, _, err := el.Attribute(ctx, name)
	return v, err
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
