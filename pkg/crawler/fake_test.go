package crawler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/PentesterFlow/LeadCrawler/internal/browser"
)

// fakeListing is one entry of a fake results feed.
type fakeListing struct {
	name    string // empty: no name control
	website string // empty: no website control
	phone   string
	address string
	reviews string
	url     string // page address once the listing is open

	clickErr  error
	panicText bool
}

// fakePage is an in-memory results feed that reveals step more listings on
// every wheel scroll.
type fakePage struct {
	mu       sync.Mutex
	listings []fakeListing
	visible  int
	step     int
	selected int

	navigated string
	navErr    error
	wheels    int
	moves     [][2]float64
	closed    bool
	clicks    map[string]int
}

func newFakePage(visible, step int, listings ...fakeListing) *fakePage {
	if visible > len(listings) {
		visible = len(listings)
	}
	return &fakePage{
		listings: listings,
		visible:  visible,
		step:     step,
		selected: -1,
		clicks:   make(map[string]int),
	}
}

func (p *fakePage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigated = url
	return p.navErr
}

func (p *fakePage) WaitElement(ctx context.Context, selector string, timeout time.Duration) (browser.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.visible == 0 {
		return nil, errors.New("timeout waiting for " + selector)
	}
	return &fakeHandle{page: p, idx: 0}, nil
}

func (p *fakePage) Elements(ctx context.Context, selector string) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]browser.Element, 0, p.visible)
	for i := 0; i < p.visible; i++ {
		out = append(out, &fakeHandle{page: p, idx: i})
	}
	return out, nil
}

func (p *fakePage) Query(ctx context.Context, selector string) (browser.Element, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.selected < 0 {
		return nil, false, nil
	}
	l := p.listings[p.selected]

	var v string
	switch {
	case strings.Contains(selector, "authority"):
		if l.website == "" {
			return nil, false, nil
		}
		return &fakeNode{attrs: map[string]string{"href": l.website}}, true, nil
	case strings.Contains(selector, "phone"):
		v = l.phone
	case strings.Contains(selector, "address"):
		v = l.address
	case strings.Contains(selector, "F7nice"):
		v = l.reviews
	}
	if v == "" {
		return nil, false, nil
	}
	return &fakeNode{text: v}, true, nil
}

func (p *fakePage) URL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.selected >= 0 && p.listings[p.selected].url != "" {
		return p.listings[p.selected].url, nil
	}
	return p.navigated, nil
}

func (p *fakePage) MoveMouse(ctx context.Context, x, y float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.moves = append(p.moves, [2]float64{x, y})
	return nil
}

func (p *fakePage) Wheel(ctx context.Context, dx, dy float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.wheels++
	p.visible += p.step
	if p.visible > len(p.listings) {
		p.visible = len(p.listings)
	}
	return nil
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePage) clickCount(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clicks[name]
}

// fakeHandle is a listing handle in the feed.
type fakeHandle struct {
	page *fakePage
	idx  int
}

func (h *fakeHandle) listing() fakeListing {
	h.page.mu.Lock()
	defer h.page.mu.Unlock()
	return h.page.listings[h.idx]
}

func (h *fakeHandle) Query(ctx context.Context, selector string) (browser.Element, bool, error) {
	l := h.listing()
	if l.name == "" {
		return nil, false, nil
	}
	return &fakeNode{text: l.name, panicText: l.panicText}, true, nil
}

func (h *fakeHandle) Text(ctx context.Context) (string, error) {
	return h.listing().name, nil
}

func (h *fakeHandle) Attribute(ctx context.Context, name string) (string, bool, error) {
	return "", false, nil
}

func (h *fakeHandle) ScrollIntoView(ctx context.Context) error {
	return ctx.Err()
}

func (h *fakeHandle) Click(ctx context.Context) error {
	l := h.listing()
	if l.clickErr != nil {
		return l.clickErr
	}
	h.page.mu.Lock()
	defer h.page.mu.Unlock()
	h.page.selected = h.idx
	h.page.clicks[l.name]++
	return nil
}

// fakeNode is a detail pane control.
type fakeNode struct {
	text      string
	attrs     map[string]string
	panicText bool
}

func (n *fakeNode) Query(ctx context.Context, selector string) (browser.Element, bool, error) {
	return nil, false, nil
}

func (n *fakeNode) Text(ctx context.Context) (string, error) {
	if n.panicText {
		panic("detached node")
	}
	return n.text, nil
}

func (n *fakeNode) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, ok := n.attrs[name]
	return v, ok, nil
}

func (n *fakeNode) ScrollIntoView(ctx context.Context) error { return nil }

func (n *fakeNode) Click(ctx context.Context) error { return nil }

// fakeEnricher returns canned emails and records every lookup.
type fakeEnricher struct {
	mu     sync.Mutex
	emails map[string]string
	calls  []string
	hook   func(url string)
}

func (e *fakeEnricher) FetchBusinessEmail(ctx context.Context, url string) string {
	e.mu.Lock()
	e.calls = append(e.calls, url)
	hook := e.hook
	v := e.emails[url]
	e.mu.Unlock()
	if hook != nil {
		hook(url)
	}
	return v
}

func (e *fakeEnricher) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

var (
	_ browser.Page    = (*fakePage)(nil)
	_ browser.Element = (*fakeHandle)(nil)
	_ browser.Element = (*fakeNode)(nil)
	_ Enricher        = (*fakeEnricher)(nil)
)
