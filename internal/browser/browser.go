// Package browser drives Chrome through Rod for the listing crawler.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

// Config defines browser configuration.
type Config struct {
	Headless          bool          `json:"headless" yaml:"headless"`
	Bin               string        `json:"bin,omitempty" yaml:"bin,omitempty"`
	Locale            string        `json:"locale" yaml:"locale"`
	UserAgent         string        `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	ViewportWidth     int           `json:"viewport_width" yaml:"viewport_width"`
	ViewportHeight    int           `json:"viewport_height" yaml:"viewport_height"`
	IgnoreHTTPSErrors bool          `json:"ignore_https_errors" yaml:"ignore_https_errors"`
	SlowMotion        time.Duration `json:"slow_motion,omitempty" yaml:"slow_motion,omitempty"`
}

// DefaultConfig returns a headed English-locale desktop browser.
func DefaultConfig() Config {
	return Config{
		Headless:       false,
		Locale:         "en-GB",
		ViewportWidth:  1366,
		ViewportHeight: 900,
	}
}

// Browser wraps a Rod browser instance.
type Browser struct {
	browser *rod.Browser
	config  Config
	mu      sync.Mutex
	closed  bool
}

// New launches and connects to a browser.
func New(config Config) (*Browser, error) {
	l := launcher.New().Headless(config.Headless)

	if config.Bin != "" {
		l = l.Bin(config.Bin)
	}
	if config.Locale != "" {
		l = l.Set("lang", config.Locale)
	}
	if config.IgnoreHTTPSErrors {
		l = l.Set("ignore-certificate-errors", "true")
	}

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if config.SlowMotion > 0 {
		browser = browser.SlowMotion(config.SlowMotion)
	}
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	return &Browser{browser: browser, config: config}, nil
}

// NewPage opens a blank tab configured with the viewport, user agent and
// Accept-Language of the browser config.
func (b *Browser) NewPage(ctx context.Context) (Page, error) {
	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if b.config.ViewportWidth > 0 && b.config.ViewportHeight > 0 {
		_ = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:  b.config.ViewportWidth,
			Height: b.config.ViewportHeight,
		})
	}

	if b.config.UserAgent != "" {
		_ = proto.NetworkSetUserAgentOverride{
			UserAgent:      b.config.UserAgent,
			AcceptLanguage: b.config.Locale,
		}.Call(page)
	}

	if b.config.Locale != "" {
		_ = proto.NetworkSetExtraHTTPHeaders{Headers: proto.NetworkHeaders{
			"Accept-Language": gson.New(b.config.Locale),
		}}.Call(page)
	}

	return &rodPage{page: page}, nil
}

// Close closes the browser. Later calls are no-ops.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.browser.Close()
}
