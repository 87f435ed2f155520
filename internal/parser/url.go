package parser

import (
	"net/url"
	"strings"
)

// redirectMarker identifies the search engine's outbound redirect wrapper.
const redirectMarker = "google.com/url"

// CanonicalizeRedirectURL unwraps an outbound redirect link to its target and
// strips trailing slashes. A redirect without a q parameter yields "". Input
// that cannot be parsed is returned trimmed.
func CanonicalizeRedirectURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}

	if strings.Contains(u, redirectMarker) {
		if parsed, err := url.Parse(u); err == nil {
			u = parsed.Query().Get("q")
			// targets are sometimes escaped twice
			if d, err := url.PathUnescape(u); err == nil {
				u = d
			}
		}
	}

	return strings.TrimRight(u, "/")
}

// NormalizeForIdentity reduces a website to the form used for duplicate
// detection: lowercase, no http/https scheme, no trailing slash. Trimming
// repeats until the value stops changing.
func NormalizeForIdentity(website string) string {
	u := strings.ToLower(website)
	for {
		prev := u
		u = strings.TrimSpace(u)
		switch {
		case strings.HasPrefix(u, "https://"):
			u = u[len("https://"):]
		case strings.HasPrefix(u, "http://"):
			u = u[len("http://"):]
		}
		u = strings.TrimRight(u, "/")
		if u == prev {
			return u
		}
	}
}
