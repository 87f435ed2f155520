package state

import "sync"

// Ledger tracks every identity key committed during a run. It starts empty
// and is never persisted.
type Ledger struct {
	mu       sync.Mutex
	names    *Deduplicator
	websites *Deduplicator
	contacts *Deduplicator
}

// LedgerStats reports the size of each identity set.
type LedgerStats struct {
	Names    int `json:"names"`
	Websites int `json:"websites"`
	Contacts int `json:"contacts"`
}

// NewLedger creates an empty ledger sized for expected accepted records.
func NewLedger(expected int) *Ledger {
	return &Ledger{
		names:    NewDeduplicator(expected),
		websites: NewDeduplicator(expected),
		contacts: NewDeduplicator(expected),
	}
}

// SeenName reports whether a record with this raw name was accepted.
func (l *Ledger) SeenName(name string) bool {
	return l.names.HasSeen(name)
}

// HasWebsite reports whether a record with this normalized website was
// accepted.
func (l *Ledger) HasWebsite(normalized string) bool {
	return l.websites.HasSeen(normalized)
}

// HasContact reports whether a record with this contact key was accepted.
func (l *Ledger) HasContact(key string) bool {
	return l.contacts.HasSeen(key)
}

// TryAccept admits c unless its normalized website or contact key is
// already present. On success all three keys are recorded together; on
// failure nothing changes. The name never blocks acceptance.
func (l *Ledger) TryAccept(c *Listing) bool {
	key := c.ContactKey()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.websites.HasSeen(c.NormalizedWebsite) || l.contacts.HasSeen(key) {
		return false
	}

	l.names.Add(c.RawName)
	l.websites.Add(c.NormalizedWebsite)
	l.contacts.Add(key)
	return true
}

// Stats returns the set sizes.
func (l *Ledger) Stats() LedgerStats {
	return LedgerStats{
		Names:    l.names.Count(),
		Websites: l.websites.Count(),
		Contacts: l.contacts.Count(),
	}
}
