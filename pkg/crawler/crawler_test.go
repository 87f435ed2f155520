package crawler

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	crawlerrors "github.com/PentesterFlow/LeadCrawler/internal/errors"
	"github.com/PentesterFlow/LeadCrawler/internal/logger"
	"github.com/PentesterFlow/LeadCrawler/internal/output"
	"github.com/PentesterFlow/LeadCrawler/internal/state"
)

func testConfig(t *testing.T, budget int) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Target = "https://maps.example/search/spa"
	cfg.MaxResults = budget
	cfg.Output.FilePath = filepath.Join(t.TempDir(), "leads.csv")
	cfg.Timing = TimingConfig{}
	cfg.Scroll.MaxIdleScrolls = 3
	return cfg
}

func newTestCrawler(t *testing.T, cfg *Config, page *fakePage, enricher *fakeEnricher, opts ...Option) *Crawler {
	t.Helper()
	if enricher == nil {
		enricher = &fakeEnricher{}
	}
	base := []Option{
		WithConfig(cfg),
		WithLogger(logger.Nop()),
		WithPage(page),
		WithEnricher(enricher),
	}
	c, err := New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

// readRows returns the data rows of the CSV at path, checking the BOM and
// header on the way.
func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "\ufeff") {
		t.Fatal("output should start with a UTF-8 BOM")
	}

	rows, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(content, "\ufeff"))).ReadAll()
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(rows) == 0 || strings.Join(rows[0], ",") != strings.Join(output.Columns, ",") {
		t.Fatalf("header = %v", rows)
	}
	return rows[1:]
}

func listingN(i int) fakeListing {
	n := string(rune('A' + i))
	return fakeListing{
		name:    "Spa " + n,
		website: "https://spa-" + strings.ToLower(n) + ".example/",
		phone:   "+7 495 000-00-0" + string(rune('0'+i)),
		address: "Street " + n,
		reviews: "4.5(10)",
		url:     "https://maps.example/place/spa/data=!3d55.75!4d37.6" + string(rune('0'+i)),
	}
}

// =============================================================================
// New Tests
// =============================================================================

func TestNew_Defaults(t *testing.T) {
	c, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.Config().Target != DefaultTarget {
		t.Errorf("Target = %q", c.Config().Target)
	}
	if c.Metrics() == nil {
		t.Error("metrics should be initialized")
	}
	if c.IsRunning() {
		t.Error("new crawler should not be running")
	}
	if c.State() != StateInit {
		t.Errorf("State() = %v, want init", c.State())
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	if _, err := New(WithTarget("")); err == nil {
		t.Error("New() should reject an empty target")
	}
}

// =============================================================================
// Start Tests
// =============================================================================

func TestCrawler_StopsAtBudget(t *testing.T) {
	cfg := testConfig(t, 3)
	page := newFakePage(2, 2, listingN(0), listingN(1), listingN(2), listingN(3), listingN(4))
	enricher := &fakeEnricher{emails: map[string]string{"https://spa-a.example": "info@spa-a.example"}}
	c := newTestCrawler(t, cfg, page, enricher)

	result, err := c.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	rows := readRows(t, cfg.Output.FilePath)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if result.Saved != 3 || c.Saved() != 3 {
		t.Errorf("Saved = %d, want 3", result.Saved)
	}
	if result.StopReason != StopBudget {
		t.Errorf("StopReason = %v, want budget", result.StopReason)
	}
	if result.FinalState != StateDone || c.State() != StateDone {
		t.Errorf("FinalState = %v", result.FinalState)
	}
	if result.Scrolls != 1 {
		t.Errorf("Scrolls = %d, want 1", result.Scrolls)
	}
	if page.clickCount("Spa D") != 0 {
		t.Error("listings past the budget should not be opened")
	}
	if !page.closed {
		t.Error("page should be closed")
	}
	if page.navigated != cfg.Target {
		t.Errorf("navigated to %q", page.navigated)
	}

	first := rows[0]
	if len(first) != len(output.Columns) {
		t.Fatalf("row has %d fields", len(first))
	}
	want := []string{"Spa A", "https://spa-a.example", "+7 495 000-00-00", "Street A", "4.5(10)",
		"55.75", "37.60", "info@spa-a.example", "https://maps.example/place/spa/data=!3d55.75!4d37.60"}
	for i := range want {
		if first[i] != want[i] {
			t.Errorf("column %s = %q, want %q", output.Columns[i], first[i], want[i])
		}
	}
	for _, row := range rows {
		for i, field := range row {
			if field == "" && output.Columns[i] != "email" {
				t.Errorf("column %s empty in %v", output.Columns[i], row)
			}
		}
	}

	if result.Ledger.Names != 3 || result.Ledger.Websites != 3 || result.Ledger.Contacts != 3 {
		t.Errorf("Ledger = %+v", result.Ledger)
	}
	if result.Metrics == nil || result.Metrics.ListingsSaved != 3 {
		t.Errorf("Metrics = %+v", result.Metrics)
	}
}

func TestCrawler_RedirectDedup(t *testing.T) {
	cfg := testConfig(t, 5)
	cfg.Scroll.MaxIdleScrolls = 2
	page := newFakePage(3, 0,
		fakeListing{name: "Acme Spa", website: "https://acme.io/", url: "https://maps.example/a"},
		fakeListing{name: "Acme Spa Centre", website: "https://www.google.com/url?q=https%3A%2F%2Facme.io&sa=U", url: "https://maps.example/b"},
		fakeListing{name: "Acme Spa Annex", website: "http://ACME.io", url: "https://maps.example/c"},
	)
	enricher := &fakeEnricher{}
	c := newTestCrawler(t, cfg, page, enricher)

	result, err := c.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	rows := readRows(t, cfg.Output.FilePath)
	if len(rows) != 1 || rows[0][0] != "Acme Spa" {
		t.Fatalf("rows = %v, want only Acme Spa", rows)
	}
	if result.Skipped[SkipDuplicateWebsite] < 2 {
		t.Errorf("Skipped = %v", result.Skipped)
	}
	if enricher.callCount() != 1 {
		t.Errorf("enricher called %d times, want 1", enricher.callCount())
	}
	if result.StopReason != StopStalled {
		t.Errorf("StopReason = %v, want stalled", result.StopReason)
	}
	if result.Scrolls != 2 {
		t.Errorf("Scrolls = %d, want 2", result.Scrolls)
	}
}

func TestCrawler_RejectedListingsDoNotBlockScrolling(t *testing.T) {
	cfg := testConfig(t, 1)
	page := newFakePage(1, 1,
		fakeListing{name: "No Site Spa"},
		listingN(1),
	)
	c := newTestCrawler(t, cfg, page, nil)

	result, err := c.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	rows := readRows(t, cfg.Output.FilePath)
	if len(rows) != 1 || rows[0][0] != "Spa B" {
		t.Fatalf("rows = %v", rows)
	}
	if result.Skipped[SkipNoWebsite] == 0 {
		t.Errorf("Skipped = %v, want no_website", result.Skipped)
	}
	if page.wheels == 0 {
		t.Error("feed should have been scrolled")
	}
}

func TestCrawler_NamelessHandlesIgnored(t *testing.T) {
	cfg := testConfig(t, 1)
	page := newFakePage(2, 0, fakeListing{website: "https://ghost.example"}, listingN(1))
	c := newTestCrawler(t, cfg, page, nil)

	result, err := c.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if result.Saved != 1 {
		t.Errorf("Saved = %d, want 1", result.Saved)
	}
	if len(result.Errors) != 0 {
		t.Errorf("Errors = %v", result.Errors)
	}
}

func TestCrawler_ClickFailureSkipsListing(t *testing.T) {
	cfg := testConfig(t, 1)
	broken := listingN(0)
	broken.clickErr = errors.New("element detached")
	page := newFakePage(2, 0, broken, listingN(1))
	c := newTestCrawler(t, cfg, page, nil)

	result, err := c.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	rows := readRows(t, cfg.Output.FilePath)
	if len(rows) != 1 || rows[0][0] != "Spa B" {
		t.Fatalf("rows = %v", rows)
	}
	if len(result.Errors) != 1 || result.Errors[0].Type != "ui" || result.Errors[0].Operation != "click" {
		t.Errorf("Errors = %+v", result.Errors)
	}
}

func TestCrawler_RecoversFromPanic(t *testing.T) {
	cfg := testConfig(t, 1)
	bad := listingN(0)
	bad.panicText = true
	page := newFakePage(2, 0, bad, listingN(1))
	c := newTestCrawler(t, cfg, page, nil)

	result, err := c.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if result.Saved != 1 {
		t.Errorf("Saved = %d, want 1", result.Saved)
	}
	if len(result.Errors) == 0 || !strings.Contains(result.Errors[0].Error, "recovered panic") {
		t.Errorf("Errors = %+v", result.Errors)
	}
}

func TestCrawler_StallsOnEmptyFeed(t *testing.T) {
	cfg := testConfig(t, 5)
	cfg.Scroll.MaxIdleScrolls = 2
	page := newFakePage(0, 0)
	c := newTestCrawler(t, cfg, page, nil)

	result, err := c.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if result.StopReason != StopStalled {
		t.Errorf("StopReason = %v, want stalled", result.StopReason)
	}
	if page.wheels != 2 {
		t.Errorf("wheels = %d, want 2", page.wheels)
	}
	for _, m := range page.moves {
		if m != [2]float64{200, 400} {
			t.Errorf("pointer moved to %v", m)
		}
	}
	if rows := readRows(t, cfg.Output.FilePath); len(rows) != 0 {
		t.Errorf("rows = %v", rows)
	}
}

func TestCrawler_CancelledDuringEnrichment(t *testing.T) {
	cfg := testConfig(t, 5)
	page := newFakePage(2, 0, listingN(0), listingN(1))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	enricher := &fakeEnricher{hook: func(string) { cancel() }}
	c := newTestCrawler(t, cfg, page, enricher)

	result, err := c.Start(ctx)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if result.StopReason != StopCancelled {
		t.Errorf("StopReason = %v, want cancelled", result.StopReason)
	}
	if result.Saved != 0 {
		t.Errorf("Saved = %d, want 0", result.Saved)
	}
	if rows := readRows(t, cfg.Output.FilePath); len(rows) != 0 {
		t.Errorf("partial record written: %v", rows)
	}
	if !page.closed {
		t.Error("page should be closed on cancellation")
	}
}

func TestCrawler_NavigationFailureIsFatal(t *testing.T) {
	cfg := testConfig(t, 1)
	page := newFakePage(0, 0)
	page.navErr = errors.New("net::ERR_NAME_NOT_RESOLVED")
	c := newTestCrawler(t, cfg, page, nil)

	_, err := c.Start(context.Background())
	if err == nil {
		t.Fatal("Start() should fail when navigation fails")
	}
	if crawlerrors.GetErrorType(err) != crawlerrors.Navigation {
		t.Errorf("error type = %v, want navigation", crawlerrors.GetErrorType(err))
	}
	if !page.closed {
		t.Error("page should be closed after a fatal error")
	}
}

func TestCrawler_HeaderFailureIsFatal(t *testing.T) {
	cfg := testConfig(t, 1)
	cfg.Output.FilePath = filepath.Join(t.TempDir(), "dir")
	if err := os.Mkdir(cfg.Output.FilePath, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Output.FilePath, "x"), nil, 0644); err != nil {
		t.Fatal(err)
	}
	cfg.Output.FilePath = filepath.Join(cfg.Output.FilePath, "x", "leads.csv")

	c := newTestCrawler(t, cfg, newFakePage(0, 0), nil)
	_, err := c.Start(context.Background())
	if crawlerrors.GetErrorType(err) != crawlerrors.Storage {
		t.Errorf("error = %v, want storage error", err)
	}
}

func TestCrawler_AppendsToExistingFile(t *testing.T) {
	cfg := testConfig(t, 1)
	w := output.NewCSVWriter(cfg.Output.FilePath)
	if err := w.EnsureHeader(); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteRecord(&output.Record{Name: "Earlier Run"}); err != nil {
		t.Fatal(err)
	}

	page := newFakePage(1, 0, listingN(0))
	c := newTestCrawler(t, cfg, page, nil)
	if _, err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	rows := readRows(t, cfg.Output.FilePath)
	if len(rows) != 2 || rows[0][0] != "Earlier Run" || rows[1][0] != "Spa A" {
		t.Errorf("rows = %v", rows)
	}
}

func TestCrawler_AlreadyRunning(t *testing.T) {
	c := newTestCrawler(t, testConfig(t, 1), newFakePage(0, 0), nil)
	c.running.Store(true)

	if _, err := c.Start(context.Background()); err == nil {
		t.Error("Start() should fail while running")
	}
}

func TestCrawler_Stop(t *testing.T) {
	c := newTestCrawler(t, testConfig(t, 1), newFakePage(0, 0), nil)
	if err := c.Stop(); err != nil {
		t.Errorf("Stop() before Start error = %v", err)
	}
}

// =============================================================================
// Record Tests
// =============================================================================

func TestToRecord_CleansFields(t *testing.T) {
	rec := toRecord(&state.Listing{
		Name:      "Acme\nSpa",
		Website:   "https://acme.io",
		Phone:     "\t+7 000\r\n",
		Address:   "Line 1\nLine 2",
		Reviews:   state.MissingReviews,
		Latitude:  "55.75",
		Longitude: "37.61",
		SourceURL: "https://maps.example/place/acme ",
	})

	if rec.Name != "Acme Spa" {
		t.Errorf("Name = %q", rec.Name)
	}
	if rec.Phone != "+7 000" {
		t.Errorf("Phone = %q", rec.Phone)
	}
	if rec.Address != "Line 1 Line 2" {
		t.Errorf("Address = %q", rec.Address)
	}
	if rec.MapsURL != "https://maps.example/place/acme" {
		t.Errorf("MapsURL = %q", rec.MapsURL)
	}
	if rec.Reviews != "0" || rec.Latitude != "55.75" || rec.Longitude != "37.61" {
		t.Errorf("record = %+v", rec)
	}
}

func TestToRecord_CoordinatesOnlyAsPair(t *testing.T) {
	tests := []struct {
		name     string
		lat, lng string
		wantLat  string
		wantLng  string
	}{
		{"both", "55.75", "37.61", "55.75", "37.61"},
		{"latitude only", "55.75", "", "", ""},
		{"longitude only", "", "37.61", "", ""},
		{"neither", "", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := toRecord(&state.Listing{Name: "Acme", Latitude: tt.lat, Longitude: tt.lng})
			if rec.Latitude != tt.wantLat || rec.Longitude != tt.wantLng {
				t.Errorf("coordinates = %q, %q, want %q, %q", rec.Latitude, rec.Longitude, tt.wantLat, tt.wantLng)
			}
		})
	}
}

func TestCrawler_LogsScopedToListing(t *testing.T) {
	var buf bytes.Buffer
	page := newFakePage(2, 0,
		fakeListing{name: "Acme Spa", website: "https://acme.io"},
		fakeListing{name: "Acme Spa Two", website: "https://acme.io/"},
	)
	cfg := testConfig(t, 5)
	cfg.Scroll.MaxIdleScrolls = 1

	c := newTestCrawler(t, cfg, page, nil,
		WithLogger(logger.New(logger.Config{Level: logger.DebugLevel, Output: &buf})))
	if _, err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	var skipped map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]interface{}
		if json.Unmarshal([]byte(line), &entry) != nil {
			continue
		}
		if entry["message"] == "Listing skipped" {
			skipped = entry
		}
	}
	if skipped == nil {
		t.Fatalf("no skip event logged:\n%s", buf.String())
	}
	if skipped["listing"] != "Acme Spa Two" || skipped["reason"] != SkipDuplicateWebsite {
		t.Errorf("skip event = %v", skipped)
	}
}
