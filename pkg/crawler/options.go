package crawler

import (
	"time"

	"github.com/PentesterFlow/LeadCrawler/internal/browser"
	"github.com/PentesterFlow/LeadCrawler/internal/logger"
	"github.com/PentesterFlow/LeadCrawler/internal/metrics"
	"github.com/PentesterFlow/LeadCrawler/internal/output"
)

// Option is a functional option for configuring the Crawler.
type Option func(*Crawler) error

// WithConfig sets the entire configuration.
func WithConfig(config *Config) Option {
	return func(c *Crawler) error {
		c.config = config
		return nil
	}
}

// WithTarget sets the results page to harvest.
func WithTarget(url string) Option {
	return func(c *Crawler) error {
		c.config.Target = url
		return nil
	}
}

// WithMaxResults sets the number of records to write before stopping.
func WithMaxResults(n int) Option {
	return func(c *Crawler) error {
		if n < 1 {
			n = 1
		}
		c.config.MaxResults = n
		return nil
	}
}

// WithOutputFile sets the CSV file path.
func WithOutputFile(path string) Option {
	return func(c *Crawler) error {
		c.config.Output.FilePath = path
		return nil
	}
}

// WithHeadless sets headless browser mode.
func WithHeadless(headless bool) Option {
	return func(c *Crawler) error {
		c.config.Browser.Headless = headless
		return nil
	}
}

// WithFetchTimeout sets the enrichment fetch timeout.
func WithFetchTimeout(timeout time.Duration) Option {
	return func(c *Crawler) error {
		c.config.Enrichment.Timeout = timeout
		return nil
	}
}

// WithMaxIdleScrolls ends the crawl after n consecutive scrolls that load
// nothing new. Zero disables the limit.
func WithMaxIdleScrolls(n int) Option {
	return func(c *Crawler) error {
		if n < 0 {
			n = 0
		}
		c.config.Scroll.MaxIdleScrolls = n
		return nil
	}
}

// WithTiming replaces the UI delays and timeouts.
func WithTiming(timing TimingConfig) Option {
	return func(c *Crawler) error {
		c.config.Timing = timing
		return nil
	}
}

// WithVerbose enables verbose logging.
func WithVerbose(verbose bool) Option {
	return func(c *Crawler) error {
		c.config.Verbose = verbose
		return nil
	}
}

// WithDebug enables debug mode.
func WithDebug(debug bool) Option {
	return func(c *Crawler) error {
		c.config.Debug = debug
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Crawler) error {
		c.logger = l
		return nil
	}
}

// WithLogLevel sets the log level.
func WithLogLevel(level logger.Level) Option {
	return func(c *Crawler) error {
		if c.logger != nil {
			c.logger.SetLevel(level)
		}
		c.logLevel = &level
		return nil
	}
}

// WithMetrics sets a custom metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Crawler) error {
		c.metrics = m
		return nil
	}
}

// WithProgress enables/disables progress bar display.
func WithProgress(enabled bool) Option {
	return func(c *Crawler) error {
		c.showProgress = enabled
		return nil
	}
}

// WithPage drives an existing page instead of launching a browser. The
// crawler closes it when done.
func WithPage(p browser.Page) Option {
	return func(c *Crawler) error {
		c.page = p
		return nil
	}
}

// WithBrowser uses an already launched browser.
func WithBrowser(b *browser.Browser) Option {
	return func(c *Crawler) error {
		c.browser = b
		return nil
	}
}

// WithEnricher sets the website email lookup.
func WithEnricher(e Enricher) Option {
	return func(c *Crawler) error {
		c.enricher = e
		return nil
	}
}

// WithWriter sets the record writer, replacing the configured CSV file.
func WithWriter(w output.Writer) Option {
	return func(c *Crawler) error {
		c.writer = w
		return nil
	}
}
