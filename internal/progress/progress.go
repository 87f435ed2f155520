// Package progress renders a saved/budget bar while harvesting.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Display manages the progress bar.
type Display struct {
	mu      sync.Mutex
	out     io.Writer
	started bool
	stopped bool

	saved   atomic.Int64
	skipped atomic.Int64
	errors  atomic.Int64
	scrolls atomic.Int64
	budget  int

	startTime time.Time
	target    string
	lastLine  string
}

// New creates a display writing to stderr.
func New() *Display {
	return NewWithWriter(os.Stderr)
}

// NewWithWriter creates a display writing to w.
func NewWithWriter(w io.Writer) *Display {
	return &Display{out: w}
}

// Start begins the display for a run against target with the given budget.
func (d *Display) Start(target string, budget int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return
	}
	d.started = true
	d.startTime = time.Now()
	d.target = target
	d.budget = budget
}

// Update redraws the bar with current counts.
func (d *Display) Update(saved, skipped, errors, scrolls int) {
	d.saved.Store(int64(saved))
	d.skipped.Store(int64(skipped))
	d.errors.Store(int64(errors))
	d.scrolls.Store(int64(scrolls))

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started || d.stopped {
		return
	}

	pct := 0
	if d.budget > 0 {
		pct = saved * 100 / d.budget
		if pct > 100 {
			pct = 100
		}
	}

	elapsed := time.Since(d.startTime)
	rate := float64(0)
	if elapsed.Minutes() > 0 {
		rate = float64(saved) / elapsed.Minutes()
	}

	const barWidth = 30
	filled := pct * barWidth / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	line := fmt.Sprintf("\r[%s] %3d%% | Saved: %d/%d | Skipped: %d | Errors: %d | Scrolls: %d | %.1f/min | %s",
		bar, pct, saved, d.budget, skipped, errors, scrolls, rate, formatDuration(elapsed))

	if len(line) < len(d.lastLine) {
		fmt.Fprint(d.out, "\r"+strings.Repeat(" ", len(d.lastLine)))
	}
	fmt.Fprint(d.out, line)
	d.lastLine = line
}

// Stop ends the display.
func (d *Display) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || !d.started {
		return
	}
	d.stopped = true
	fmt.Fprintln(d.out)
}

// PrintSummary prints the final counts.
func (d *Display) PrintSummary(outputPath string) {
	duration := time.Since(d.startTime)

	fmt.Fprintln(d.out)
	fmt.Fprintln(d.out, "╔══════════════════════════════════════════════════════════════╗")
	fmt.Fprintln(d.out, "║                      Harvest Complete                        ║")
	fmt.Fprintln(d.out, "╚══════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(d.out)
	fmt.Fprintf(d.out, "  Target:     %s\n", truncate(d.target, 60))
	fmt.Fprintf(d.out, "  Output:     %s\n", outputPath)
	fmt.Fprintf(d.out, "  Duration:   %s\n", formatDuration(duration))
	fmt.Fprintf(d.out, "  Saved:      %d/%d\n", d.saved.Load(), d.budget)
	fmt.Fprintf(d.out, "  Skipped:    %d\n", d.skipped.Load())
	fmt.Fprintf(d.out, "  Errors:     %d\n", d.errors.Load())
	fmt.Fprintf(d.out, "  Scrolls:    %d\n", d.scrolls.Load())
	fmt.Fprintln(d.out)
}

// Stats returns the last reported counts.
func (d *Display) Stats() (saved, skipped, errors, scrolls int64) {
	return d.saved.Load(), d.skipped.Load(), d.errors.Load(), d.scrolls.Load()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
