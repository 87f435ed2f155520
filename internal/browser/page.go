package browser

import (
	"context"
	"time"
)

// Page is the listing page surface the crawler drives.
type Page interface {
	// Navigate opens url and waits for DOMContentLoaded up to timeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) error

	// WaitElement waits up to timeout for selector to match.
	WaitElement(ctx context.Context, selector string, timeout time.Duration) (Element, error)

	// Elements returns every element currently matching selector.
	Elements(ctx context.Context, selector string) ([]Element, error)

	// Query returns the first element matching selector without waiting.
	Query(ctx context.Context, selector string) (Element, bool, error)

	// URL returns the page's current address.
	URL(ctx context.Context) (string, error)

	// MoveMouse moves the pointer to viewport coordinates.
	MoveMouse(ctx context.Context, x, y float64) error

	// Wheel dispatches a wheel scroll at the pointer.
	Wheel(ctx context.Context, dx, dy float64) error

	Close() error
}

// Element is a handle to a node on the page.
type Element interface {
	// Query returns the first descendant matching selector without waiting.
	Query(ctx context.Context, selector string) (Element, bool, error)

	Text(ctx context.Context) (string, error)

	// Attribute returns the attribute value and whether it is present.
	Attribute(ctx context.Context, name string) (string, bool, error)

	ScrollIntoView(ctx context.Context) error

	// Click performs a single left click.
	Click(ctx context.Context) error
}
