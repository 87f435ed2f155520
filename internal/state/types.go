// Package state holds the per-run identity ledger and the listing records
// it deduplicates.
package state

import "strings"

// Sentinels stored when a detail control is absent.
const (
	MissingField   = "N/A"
	MissingReviews = "0"
)

// Listing is a fully materialized candidate record for one listing.
type Listing struct {
	// RawName is the name as read from the listing handle; the names set
	// is keyed on it.
	RawName           string
	Name              string
	Website           string
	NormalizedWebsite string
	Phone             string
	Address           string
	Reviews           string
	Latitude          string
	Longitude         string
	Email             string
	SourceURL         string
}

// HasCoordinates reports whether both coordinates are set.
func (l *Listing) HasCoordinates() bool {
	return l.Latitude != "" && l.Longitude != ""
}

// ContactKey is the composite fingerprint used for contact deduplication.
// Absent coordinates contribute empty components.
func (l *Listing) ContactKey() string {
	return strings.Join([]string{
		l.RawName,
		l.Website,
		l.Phone,
		l.Address,
		l.Latitude,
		l.Longitude,
	}, "|")
}
