package crawler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PentesterFlow/LeadCrawler/internal/browser"
	"github.com/PentesterFlow/LeadCrawler/internal/email"
	"github.com/PentesterFlow/LeadCrawler/internal/errors"
	"github.com/PentesterFlow/LeadCrawler/internal/http"
	"github.com/PentesterFlow/LeadCrawler/internal/logger"
	"github.com/PentesterFlow/LeadCrawler/internal/metrics"
	"github.com/PentesterFlow/LeadCrawler/internal/output"
	"github.com/PentesterFlow/LeadCrawler/internal/parser"
	"github.com/PentesterFlow/LeadCrawler/internal/progress"
	"github.com/PentesterFlow/LeadCrawler/internal/state"
)

// maxRecordedErrors caps CrawlResult.Errors.
const maxRecordedErrors = 500

// Crawler is the main crawler orchestrator.
type Crawler struct {
	config   *Config
	browser  *browser.Browser
	page     browser.Page
	enricher Enricher
	writer   output.Writer
	ledger   *state.Ledger
	builder  *Builder
	scroller *ScrollDriver
	logger   *logger.Logger
	logLevel *logger.Level
	metrics  *metrics.Collector

	ownsBrowser bool
	fetcher     *email.Fetcher

	mu        sync.RWMutex
	running   atomic.Bool
	state     atomic.Int32
	saved     atomic.Int64
	cancel    context.CancelFunc
	startTime time.Time
	results   *CrawlResult
	cleanOnce sync.Once

	// Progress display
	progress     *progress.Display
	showProgress bool
}

// New creates a new crawler with the given options.
func New(opts ...Option) (*Crawler, error) {
	c := &Crawler{
		config: DefaultConfig(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	// Validate config
	if err := c.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if c.logger == nil {
		logLevel := logger.InfoLevel
		if c.config.Debug {
			logLevel = logger.DebugLevel
		} else if !c.config.Verbose {
			logLevel = logger.WarnLevel
		}
		if c.logLevel != nil {
			logLevel = *c.logLevel
		}
		cfg := logger.DefaultConfig()
		cfg.Level = logLevel
		cfg.Component = "crawler"
		c.logger = logger.New(cfg)
	}

	if c.metrics == nil {
		c.metrics = metrics.New()
	}

	return c, nil
}

// initialize sets up every component the run needs. Failures here are
// fatal.
func (c *Crawler) initialize(ctx context.Context) error {
	c.setState(StateInit)
	c.ledger = state.NewLedger(c.config.MaxResults)

	if c.writer == nil {
		w, err := output.NewWriter(c.config.Output)
		if err != nil {
			return errors.NewStorageError(c.config.Output.FilePath, "create_writer", err)
		}
		c.writer = w
	}
	if err := c.writer.EnsureHeader(); err != nil {
		return errors.NewStorageError(c.config.Output.FilePath, "write_header", err)
	}

	if c.showProgress {
		c.progress = progress.New()
	}
	c.writer = output.NewProgressWriter(c.writer, c.onRecordWritten)

	if c.enricher == nil {
		clientConfig := http.DefaultClientConfig()
		clientConfig.Timeout = c.config.Enrichment.Timeout
		clientConfig.UserAgent = c.config.Enrichment.UserAgent
		clientConfig.MaxBodyBytes = c.config.Enrichment.MaxBodyBytes
		if c.config.Browser.Locale != "" {
			clientConfig.Headers = map[string]string{"Accept-Language": c.config.Browser.Locale}
		}
		c.fetcher = email.NewFetcher(http.NewClient(clientConfig), c.logger, c.metrics)
		c.enricher = c.fetcher
	}

	if c.page == nil {
		if c.browser == nil {
			b, err := browser.New(c.config.Browser)
			if err != nil {
				return err
			}
			c.browser = b
			c.ownsBrowser = true
		}
		p, err := c.browser.NewPage(ctx)
		if err != nil {
			return err
		}
		c.page = p
	}

	c.builder = NewBuilder(c.ledger, c.enricher, c.config.Selectors, c.config.Timing)
	c.scroller = NewScrollDriver(c.page, c.ledger, c.config.Scroll, c.config.Timing.ScrollDelay, c.logger, c.metrics)

	return nil
}

// Start runs the crawl until the result budget is met, the feed stalls or
// ctx is cancelled.
func (c *Crawler) Start(ctx context.Context) (*CrawlResult, error) {
	if c.running.Load() {
		return nil, fmt.Errorf("crawler is already running")
	}

	c.mu.Lock()
	ctx, c.cancel = context.WithCancel(ctx)
	c.startTime = time.Now()
	c.running.Store(true)
	c.results = &CrawlResult{
		Target:     c.config.Target,
		OutputPath: c.config.Output.FilePath,
		StartedAt:  c.startTime,
		Budget:     c.config.MaxResults,
		Skipped:    make(map[string]int),
	}
	c.mu.Unlock()

	defer func() {
		c.cancel()
		c.running.Store(false)
	}()

	// Initialize components
	if err := c.initialize(ctx); err != nil {
		c.cleanup()
		return nil, err
	}
	defer c.cleanup()

	if c.progress != nil {
		c.progress.Start(c.config.Target, c.config.MaxResults)
		defer func() {
			c.progress.Stop()
			c.progress.PrintSummary(c.config.Output.FilePath)
		}()
	}

	c.setState(StateNavigating)
	c.logger.Infof("Navigating to %s", c.config.Target)
	if err := c.page.Navigate(ctx, c.config.Target, c.config.Timing.NavigationTimeout); err != nil {
		return nil, errors.Categorize(err, c.config.Target, "navigate", errors.Navigation)
	}
	if _, err := c.page.WaitElement(ctx, c.config.Selectors.Listing, c.config.Timing.ListingWaitTimeout); err != nil {
		if ctx.Err() != nil {
			return c.finish(StopCancelled), nil
		}
		c.logger.WithError(err).Warn("No listings appeared yet, continuing")
	}

	budget := int64(c.config.MaxResults)
	for c.saved.Load() < budget {
		if ctx.Err() != nil {
			return c.finish(StopCancelled), nil
		}

		c.setState(StatePassLoop)
		c.runPass(ctx)

		if c.saved.Load() >= budget {
			break
		}
		if ctx.Err() != nil {
			return c.finish(StopCancelled), nil
		}
		if c.scroller.EndPass() {
			continue
		}

		c.setState(StateScrollWait)
		if err := c.scroller.Scroll(ctx); err != nil {
			if errors.IsCancelled(err) {
				return c.finish(StopCancelled), nil
			}
			c.recordError(errors.Categorize(err, "", "scroll", errors.UI))
		}
		c.mu.Lock()
		c.results.Scrolls = c.scroller.Scrolls()
		c.mu.Unlock()
		c.updateProgress()

		if c.scroller.Stalled() {
			c.logger.Warnf("No new listings after %d scrolls, stopping", c.scroller.Idle())
			return c.finish(StopStalled), nil
		}
	}

	return c.finish(StopBudget), nil
}

// runPass enumerates the listing handles currently in the feed and
// processes each in order.
func (c *Crawler) runPass(ctx context.Context) {
	c.metrics.RecordPass()
	c.mu.Lock()
	c.results.Passes++
	pass := c.results.Passes
	c.mu.Unlock()

	c.scroller.BeginPass()

	handles, err := c.page.Elements(ctx, c.config.Selectors.Listing)
	if err != nil {
		if ctx.Err() == nil {
			c.recordError(errors.Categorize(err, "", "enumerate", errors.UI))
		}
		return
	}

	c.logger.WithField("pass", pass).Debugf("Enumerated %d listings", len(handles))

	budget := int64(c.config.MaxResults)
	for _, h := range handles {
		if c.saved.Load() >= budget || ctx.Err() != nil {
			return
		}
		c.metrics.RecordListingSeen()
		c.processListing(ctx, h)
	}
}

// processListing handles one listing. Any failure costs only this listing.
func (c *Crawler) processListing(ctx context.Context, h browser.Element) {
	var name string
	defer func() {
		if r := recover(); r != nil {
			c.recordError(errors.NewCrawlError(errors.Unknown, name, "process", "recovered panic", fmt.Errorf("%v", r)))
		}
	}()

	name, err := c.readName(ctx, h)
	if err != nil {
		if err == ErrNoName {
			c.logger.Debug("Listing handle has no name, ignoring")
		} else if ctx.Err() == nil {
			c.recordError(errors.Categorize(err, "", "read_name", errors.UI))
		}
		return
	}

	if !c.scroller.Consider(name) {
		return
	}
	c.metrics.RecordListingOpened()
	log := c.logger.WithListing(name)
	log.Debug("Opening listing")

	listing, err := c.builder.Build(ctx, c.page, h, name)
	if err != nil {
		switch reason := skipReason(err); {
		case reason != SkipError:
			c.skip(log, reason)
		case errors.IsCancelled(err) || ctx.Err() != nil:
			log.Debug("Listing abandoned on cancellation")
		default:
			c.recordError(errors.Categorize(err, name, "build", errors.UI))
		}
		return
	}

	if !c.ledger.TryAccept(&listing) {
		if c.ledger.HasWebsite(listing.NormalizedWebsite) {
			c.skip(log, SkipDuplicateWebsite)
		} else {
			c.skip(log, SkipDuplicateContact)
		}
		return
	}

	if err := c.writer.WriteRecord(toRecord(&listing)); err != nil {
		c.recordError(errors.NewStorageError(name, "append", err))
		return
	}

	log.SavedEvent(c.Saved(), c.config.MaxResults, listing.Website, listing.Email)
}

// onRecordWritten counts a committed row.
func (c *Crawler) onRecordWritten(*output.Record) {
	saved := c.saved.Add(1)
	c.metrics.RecordListingSaved()
	c.mu.Lock()
	c.results.Saved = int(saved)
	c.mu.Unlock()
	c.updateProgress()
}

func (c *Crawler) readName(ctx context.Context, h browser.Element) (string, error) {
	el, ok, err := h.Query(ctx, c.config.Selectors.Name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNoName
	}
	return el.Text(ctx)
}

// toRecord converts an accepted listing to its output row. Coordinates are
// written only as a pair.
func toRecord(l *state.Listing) *output.Record {
	r := &output.Record{
		Name:    parser.CleanText(l.Name),
		Website: parser.CleanText(l.Website),
		Phone:   parser.CleanText(l.Phone),
		Address: parser.CleanText(l.Address),
		Reviews: parser.CleanText(l.Reviews),
		Email:   parser.CleanText(l.Email),
		MapsURL: parser.CleanText(l.SourceURL),
	}
	if l.HasCoordinates() {
		r.Latitude = l.Latitude
		r.Longitude = l.Longitude
	}
	return r
}

func (c *Crawler) skip(log *logger.Logger, reason string) {
	c.metrics.RecordSkip(reason)
	c.mu.Lock()
	c.results.Skipped[reason]++
	c.mu.Unlock()
	log.SkipEvent(reason)
	c.updateProgress()
}

func (c *Crawler) recordError(err *errors.CrawlError) {
	if err == nil {
		return
	}
	c.metrics.RecordError(err.Type.String())
	log := c.logger
	if err.Target != "" {
		log = log.WithListing(err.Target)
	}
	log.ErrorEvent(err, err.Operation)

	c.mu.Lock()
	if len(c.results.Errors) < maxRecordedErrors {
		c.results.Errors = append(c.results.Errors, CrawlError{
			Listing:   err.Target,
			Operation: err.Operation,
			Type:      err.Type.String(),
			Error:     err.Error(),
			Timestamp: time.Now(),
		})
	}
	c.mu.Unlock()
	c.updateProgress()
}

func (c *Crawler) updateProgress() {
	if c.progress == nil {
		return
	}
	snap := c.metrics.Snapshot()
	c.progress.Update(int(c.saved.Load()), int(snap.SkippedTotal()), int(snap.ErrorsTotal), int(snap.Scrolls))
}

// finish stamps the result and logs the final statistics.
func (c *Crawler) finish(reason StopReason) *CrawlResult {
	c.setState(StateDone)
	snap := c.metrics.Snapshot()

	c.mu.Lock()
	c.results.CompletedAt = time.Now()
	c.results.FinalState = StateDone
	c.results.StopReason = reason
	c.results.Scrolls = c.scroller.Scrolls()
	c.results.Ledger = c.ledger.Stats()
	c.results.Metrics = snap
	result := c.results
	c.mu.Unlock()

	stats := snap.Summary()
	stats["stop_reason"] = string(reason)
	c.logger.StatsEvent(stats)
	c.logger.WithDuration(result.Duration()).Infof("Crawl finished: %s", reason)

	return result
}

// cleanup releases the page, any browser this crawler launched and the
// writer.
func (c *Crawler) cleanup() {
	c.cleanOnce.Do(func() {
		if c.page != nil {
			c.logger.Debug("Closing page...")
			if err := c.page.Close(); err != nil {
				c.logger.WithError(err).Debug("Page close failed")
			}
		}
		if c.browser != nil && c.ownsBrowser {
			c.logger.Debug("Closing browser...")
			if err := c.browser.Close(); err != nil {
				c.logger.WithError(err).Debug("Browser close failed")
			}
		}
		if c.writer != nil {
			if err := c.writer.Flush(); err != nil {
				c.logger.WithError(err).Warn("Output flush failed")
			}
		}
		if c.fetcher != nil {
			c.fetcher.Close()
		}
	})
}

// Stop cancels a running crawl.
func (c *Crawler) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

// IsRunning returns whether the crawler is running.
func (c *Crawler) IsRunning() bool {
	return c.running.Load()
}

// State returns the current crawl phase.
func (c *Crawler) State() State {
	return State(c.state.Load())
}

func (c *Crawler) setState(s State) {
	c.state.Store(int32(s))
	c.logger.Debugf("State -> %s", s)
}

// Saved returns the number of records written so far.
func (c *Crawler) Saved() int {
	return int(c.saved.Load())
}

// Metrics returns the metrics collector.
func (c *Crawler) Metrics() *metrics.Collector {
	return c.metrics
}

// MetricsSnapshot returns a snapshot of current metrics.
func (c *Crawler) MetricsSnapshot() *metrics.Snapshot {
	return c.metrics.Snapshot()
}

// Config returns the crawler configuration.
func (c *Crawler) Config() *Config {
	return c.config
}
