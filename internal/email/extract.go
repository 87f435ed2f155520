package email

import (
	"regexp"
	"strings"

	"github.com/PentesterFlow/LeadCrawler/internal/parser"
)

var addressPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// ExtractAddresses returns every address in text, lowercased and trimmed,
// deduplicated in first-seen order.
func ExtractAddresses(text string) []string {
	matches := addressPattern.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.ToLower(strings.TrimSpace(m))
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// FirstBusinessAddress scans body for the first business address. When the
// raw scan finds none and html is set, mailto links and then the visible
// text of the parsed document are tried.
func FirstBusinessAddress(body string, html bool) string {
	if addr := firstBusiness(ExtractAddresses(body)); addr != "" {
		return addr
	}
	if !html {
		return ""
	}

	doc, err := parser.ParseHTMLText(body)
	if err != nil {
		return ""
	}

	mailtos := make([]string, 0, len(doc.Mailtos))
	for _, m := range doc.Mailtos {
		mailtos = append(mailtos, ExtractAddresses(m)...)
	}
	if addr := firstBusiness(mailtos); addr != "" {
		return addr
	}
	return firstBusiness(ExtractAddresses(doc.Visible))
}

func firstBusiness(addrs []string) string {
	for _, a := range addrs {
		if IsBusinessEmail(a) {
			return a
		}
	}
	return ""
}
