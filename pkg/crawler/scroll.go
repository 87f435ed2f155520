package crawler

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/PentesterFlow/LeadCrawler/internal/browser"
	"github.com/PentesterFlow/LeadCrawler/internal/errors"
	"github.com/PentesterFlow/LeadCrawler/internal/logger"
	"github.com/PentesterFlow/LeadCrawler/internal/metrics"
	"github.com/PentesterFlow/LeadCrawler/internal/state"
)

// ScrollDriver decides which handles a pass opens and wheels the results
// feed when a pass turns up nothing new.
//
// A handle is opened whenever its name has not been accepted. Novelty is
// not judged by the accepted names alone: a name counts as new only the
// first time it is seen in the run. Rejected listings never enter the
// accepted names, so judging by those alone would treat them as new on
// every pass and the feed would never scroll.
type ScrollDriver struct {
	page    browser.Page
	ledger  *state.Ledger
	config  ScrollConfig
	delay   time.Duration
	log     *logger.Logger
	metrics *metrics.Collector

	attempted map[string]struct{}
	foundNew  bool
	idle      int
	scrolls   int

	// throttles the idle scroll log line
	idleLog rate.Sometimes
}

// NewScrollDriver creates a driver for page.
func NewScrollDriver(page browser.Page, ledger *state.Ledger, config ScrollConfig, delay time.Duration, log *logger.Logger, m *metrics.Collector) *ScrollDriver {
	if log == nil {
		log = logger.Nop()
	}
	return &ScrollDriver{
		page:      page,
		ledger:    ledger,
		config:    config,
		delay:     delay,
		log:       log.WithComponent("scroll"),
		metrics:   m,
		attempted: make(map[string]struct{}),
		idleLog:   rate.Sometimes{First: 1, Interval: 30 * time.Second},
	}
}

// BeginPass starts a new enumeration of the feed.
func (d *ScrollDriver) BeginPass() {
	d.foundNew = false
}

// Consider reports whether the handle named name should be opened.
func (d *ScrollDriver) Consider(name string) bool {
	if d.ledger.SeenName(name) {
		return false
	}
	if _, ok := d.attempted[name]; !ok {
		d.attempted[name] = struct{}{}
		d.foundNew = true
	}
	return true
}

// EndPass reports whether the pass found a new handle. A productive pass
// resets the idle count.
func (d *ScrollDriver) EndPass() bool {
	if d.foundNew {
		d.idle = 0
	}
	return d.foundNew
}

// Scroll moves the pointer over the feed, wheels it down and waits for
// more listings to load. A failed gesture is returned after the wait.
func (d *ScrollDriver) Scroll(ctx context.Context) error {
	d.scrolls++
	d.idle++
	d.metrics.RecordScroll()

	idle := d.idle
	d.idleLog.Do(func() {
		d.log.Infof("No new listings, scrolling feed (idle scrolls: %d)", idle)
	})

	gestureErr := d.gesture(ctx)

	if err := sleep(ctx, d.delay); err != nil {
		return errors.NewCancelledError("", "scroll_wait")
	}
	return gestureErr
}

func (d *ScrollDriver) gesture(ctx context.Context) error {
	if err := d.page.MoveMouse(ctx, d.config.PointerX, d.config.PointerY); err != nil {
		return errors.Categorize(err, "", "move_mouse", errors.UI)
	}
	if err := d.page.Wheel(ctx, 0, d.config.DeltaY); err != nil {
		return errors.Categorize(err, "", "wheel", errors.UI)
	}
	return nil
}

// Stalled reports whether the idle scroll limit has been reached.
func (d *ScrollDriver) Stalled() bool {
	return d.config.MaxIdleScrolls > 0 && d.idle >= d.config.MaxIdleScrolls
}

// Scrolls returns the number of scrolls performed.
func (d *ScrollDriver) Scrolls() int {
	return d.scrolls
}

// Idle returns the current run of consecutive idle scrolls.
func (d *ScrollDriver) Idle() int {
	return d.idle
}
