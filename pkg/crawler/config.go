package crawler

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/PentesterFlow/LeadCrawler/internal/browser"
	"github.com/PentesterFlow/LeadCrawler/internal/output"
	"gopkg.in/yaml.v3"
)

// DefaultTarget is the search results page harvested when no target is set.
const DefaultTarget = "https://www.google.com/maps/search/spa+in+Russia/@57.4464695,29.1888173,5z/data=!3m1!4b1?entry=ttu&g_ep=EgoyMDI2MDEwNC4wIKXMDSoKLDEwMDc5MjA2N0gBUAM%3D=en"

// Config holds all crawler configuration.
type Config struct {
	// Search results page to harvest
	Target string `json:"target" yaml:"target"`

	// Number of records to write before stopping
	MaxResults int `json:"max_results" yaml:"max_results"`

	// Output configuration
	Output output.Config `json:"output" yaml:"output"`

	// Browser configuration
	Browser browser.Config `json:"browser" yaml:"browser"`

	// Website fetches for email enrichment
	Enrichment EnrichmentConfig `json:"enrichment" yaml:"enrichment"`

	// CSS selectors for the listing feed and detail pane
	Selectors Selectors `json:"selectors" yaml:"selectors"`

	// Waits around UI interactions
	Timing TimingConfig `json:"timing" yaml:"timing"`

	// Infinite scroll behaviour
	Scroll ScrollConfig `json:"scroll" yaml:"scroll"`

	// Verbose logging
	Verbose bool `json:"verbose" yaml:"verbose"`

	// Debug mode
	Debug bool `json:"debug" yaml:"debug"`
}

// EnrichmentConfig configures the website fetch.
type EnrichmentConfig struct {
	Timeout      time.Duration `json:"timeout" yaml:"timeout"`
	UserAgent    string        `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	MaxBodyBytes int64         `json:"max_body_bytes" yaml:"max_body_bytes"`
}

// Selectors locate the listing handles and the detail controls.
type Selectors struct {
	Listing string `json:"listing" yaml:"listing"`
	Name    string `json:"name" yaml:"name"`
	Website string `json:"website" yaml:"website"`
	Phone   string `json:"phone" yaml:"phone"`
	Address string `json:"address" yaml:"address"`
	Reviews string `json:"reviews" yaml:"reviews"`
}

// TimingConfig holds navigation timeouts and the fixed UI delays.
type TimingConfig struct {
	NavigationTimeout  time.Duration `json:"navigation_timeout" yaml:"navigation_timeout"`
	ListingWaitTimeout time.Duration `json:"listing_wait_timeout" yaml:"listing_wait_timeout"`

	// After scrolling a handle into view, before clicking it
	SettleDelay time.Duration `json:"settle_delay" yaml:"settle_delay"`

	// After clicking a handle, before reading the detail pane
	DetailDelay time.Duration `json:"detail_delay" yaml:"detail_delay"`

	// After a wheel scroll, before the next pass
	ScrollDelay time.Duration `json:"scroll_delay" yaml:"scroll_delay"`
}

// ScrollConfig holds the wheel gesture used to load more listings.
type ScrollConfig struct {
	PointerX float64 `json:"pointer_x" yaml:"pointer_x"`
	PointerY float64 `json:"pointer_y" yaml:"pointer_y"`
	DeltaY   float64 `json:"delta_y" yaml:"delta_y"`

	// Consecutive idle scrolls before giving up. Zero scrolls forever.
	MaxIdleScrolls int `json:"max_idle_scrolls" yaml:"max_idle_scrolls"`
}

// DefaultSelectors returns the selectors for the Google Maps results feed.
func DefaultSelectors() Selectors {
	return Selectors{
		Listing: `div[role="article"]`,
		Name:    `div.qBF1Pd`,
		Website: `a[data-item-id="authority"]`,
		Phone:   `button[data-item-id^="phone"]`,
		Address: `button[data-item-id="address"]`,
		Reviews: `div.F7nice`,
	}
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Target:     DefaultTarget,
		MaxResults: 1000,
		Output: output.Config{
			Format:   "csv",
			FilePath: "results.csv",
		},
		Browser: browser.DefaultConfig(),
		Enrichment: EnrichmentConfig{
			Timeout:      10 * time.Second,
			MaxBodyBytes: 5 * 1024 * 1024,
		},
		Selectors: DefaultSelectors(),
		Timing: TimingConfig{
			NavigationTimeout:  60 * time.Second,
			ListingWaitTimeout: 20 * time.Second,
			SettleDelay:        1 * time.Second,
			DetailDelay:        2 * time.Second,
			ScrollDelay:        4 * time.Second,
		},
		Scroll: ScrollConfig{
			PointerX: 200,
			PointerY: 400,
			DeltaY:   3000,
		},
	}
}

// LoadFromFile loads configuration from a file (JSON or YAML).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, config); err != nil {
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	return config, nil
}

// SaveToFile saves configuration to a file. A .json extension selects
// JSON, anything else YAML.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Target == "" {
		return fmt.Errorf("target URL is required")
	}

	if c.MaxResults < 1 {
		return fmt.Errorf("max results must be at least 1")
	}

	if c.Output.FilePath == "" {
		return fmt.Errorf("output file path is required")
	}

	if c.Output.Format != "" && c.Output.Format != "csv" {
		return fmt.Errorf("unsupported output format %q", c.Output.Format)
	}

	if c.Selectors.Listing == "" || c.Selectors.Name == "" {
		return fmt.Errorf("listing and name selectors are required")
	}

	if c.Enrichment.Timeout <= 0 {
		return fmt.Errorf("enrichment timeout must be positive")
	}

	if c.Timing.SettleDelay < 0 || c.Timing.DetailDelay < 0 || c.Timing.ScrollDelay < 0 {
		return fmt.Errorf("delays must not be negative")
	}

	if c.Scroll.MaxIdleScrolls < 0 {
		return fmt.Errorf("max idle scrolls must not be negative")
	}

	return nil
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	data, _ := json.Marshal(c)
	clone := &Config{}
	json.Unmarshal(data, clone)
	return clone
}
