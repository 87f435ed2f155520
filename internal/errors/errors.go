// Package errors provides the error taxonomy used while harvesting listings.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// ErrorType categorizes errors for recovery decisions.
type ErrorType int

const (
	// Unknown is an uncategorized error.
	Unknown ErrorType = iota
	// UI is a missing or unresponsive control on the listing page.
	UI
	// Navigation is a failed page load or settle.
	Navigation
	// Timeout is a deadline hit while waiting on the UI or the network.
	Timeout
	// Network is a connection-level failure (DNS, refused, reset).
	Network
	// Enrichment is a website fetch that produced no usable body.
	Enrichment
	// Parse is malformed input where a fallback value applies.
	Parse
	// Storage is a failure writing the output table.
	Storage
	// Cancelled is context cancellation.
	Cancelled
)

// String returns the string representation of ErrorType.
func (t ErrorType) String() string {
	switch t {
	case UI:
		return "ui"
	case Navigation:
		return "navigation"
	case Timeout:
		return "timeout"
	case Network:
		return "network"
	case Enrichment:
		return "enrichment"
	case Parse:
		return "parse"
	case Storage:
		return "storage"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTransient reports whether the failure is expected to clear on its own
// and should only cost the current listing.
func (t ErrorType) IsTransient() bool {
	switch t {
	case UI, Navigation, Timeout, Network, Enrichment:
		return true
	default:
		return false
	}
}

// CrawlError is a categorized harvesting error.
type CrawlError struct {
	Type      ErrorType
	Target    string // listing name or URL
	Operation string
	Message   string
	Cause     error
}

// Error implements the error interface.
func (e *CrawlError) Error() string {
	msg := fmt.Sprintf("%s error during %s", e.Type, e.Operation)
	if e.Target != "" {
		msg += " on " + e.Target
	}
	msg += ": " + e.Message
	if e.Cause != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *CrawlError) Unwrap() error {
	return e.Cause
}

// Is matches another CrawlError of the same type.
func (e *CrawlError) Is(target error) bool {
	t, ok := target.(*CrawlError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// NewCrawlError creates a new CrawlError.
func NewCrawlError(errType ErrorType, target, operation, message string, cause error) *CrawlError {
	return &CrawlError{
		Type:      errType,
		Target:    target,
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}

// NewUIError creates an error for a control that could not be found or used.
func NewUIError(target, operation string, cause error) *CrawlError {
	return NewCrawlError(UI, target, operation, "ui control unavailable", cause)
}

// NewNavigationError creates a navigation error.
func NewNavigationError(target, operation string, cause error) *CrawlError {
	return NewCrawlError(Navigation, target, operation, "navigation failed", cause)
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(target, operation string, cause error) *CrawlError {
	return NewCrawlError(Timeout, target, operation, "timed out", cause)
}

// NewNetworkError creates a network error.
func NewNetworkError(target, operation string, cause error) *CrawlError {
	return NewCrawlError(Network, target, operation, "network failure", cause)
}

// NewEnrichmentError creates an enrichment error.
func NewEnrichmentError(target, message string, cause error) *CrawlError {
	return NewCrawlError(Enrichment, target, "enrich", message, cause)
}

// NewParseError creates a parse error.
func NewParseError(target, operation string, cause error) *CrawlError {
	return NewCrawlError(Parse, target, operation, "parsing failed", cause)
}

// NewStorageError creates a storage error.
func NewStorageError(target, operation string, cause error) *CrawlError {
	return NewCrawlError(Storage, target, operation, "write failed", cause)
}

// NewCancelledError creates a cancelled error.
func NewCancelledError(target, operation string) *CrawlError {
	return NewCrawlError(Cancelled, target, operation, "operation cancelled", context.Canceled)
}

// Categorize wraps a generic error into a CrawlError. UI operations that
// fail for reasons other than cancellation, deadlines or the network are
// reported as fallback errors of type fallback.
func Categorize(err error, target, operation string, fallback ErrorType) *CrawlError {
	if err == nil {
		return nil
	}

	var crawlErr *CrawlError
	if errors.As(err, &crawlErr) {
		return crawlErr
	}

	if errors.Is(err, context.Canceled) {
		return NewCrawlError(Cancelled, target, operation, "operation cancelled", err)
	}
	if isTimeout(err) {
		return NewTimeoutError(target, operation, err)
	}
	if isNetworkError(err) {
		return NewNetworkError(target, operation, err)
	}

	switch fallback {
	case UI:
		return NewUIError(target, operation, err)
	case Navigation:
		return NewNavigationError(target, operation, err)
	}
	return NewCrawlError(fallback, target, operation, err.Error(), err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "deadline exceeded")
}

func isNetworkError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset") ||
		strings.Contains(s, "no such host")
}

// IsTransient reports whether err only costs the current listing.
func IsTransient(err error) bool {
	var crawlErr *CrawlError
	if errors.As(err, &crawlErr) {
		return crawlErr.Type.IsTransient()
	}
	return false
}

// IsCancelled reports whether err stems from context cancellation.
func IsCancelled(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	return GetErrorType(err) == Cancelled
}

// GetErrorType extracts the error type from an error.
func GetErrorType(err error) ErrorType {
	var crawlErr *CrawlError
	if errors.As(err, &crawlErr) {
		return crawlErr.Type
	}
	return Unknown
}
