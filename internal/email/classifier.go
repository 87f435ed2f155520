// Package email finds business contact addresses on company websites.
package email

import "strings"

// freeMailDomains are consumer mailbox providers; addresses on them are not
// treated as business contacts.
var freeMailDomains = map[string]struct{}{
	"gmail.com":   {},
	"yahoo.com":   {},
	"hotmail.com": {},
	"outlook.com": {},
	"aol.com":     {},
	"icloud.com":  {},
	"live.com":    {},
}

// placeholderAddresses appear in templates and form hints.
var placeholderAddresses = map[string]struct{}{
	"user@domain.com":     {},
	"example@example.com": {},
	"test@test.com":       {},
}

// IsBusinessEmail reports whether addr is neither a placeholder nor hosted
// on a free-mail domain.
func IsBusinessEmail(addr string) bool {
	addr = strings.ToLower(strings.TrimSpace(addr))
	if addr == "" {
		return false
	}
	if _, ok := placeholderAddresses[addr]; ok {
		return false
	}
	domain := addr
	if i := strings.LastIndexByte(addr, '@'); i >= 0 {
		domain = addr[i+1:]
	}
	_, free := freeMailDomains[domain]
	return !free
}
