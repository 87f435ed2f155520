package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTMLText holds the parts of an HTML page that can carry contact addresses.
type HTMLText struct {
	// Mailtos are the addresses of mailto: links, query strings removed,
	// in document order.
	Mailtos []string
	// Visible is the document text with script, style and noscript removed
	// and entities decoded.
	Visible string
}

// ParseHTMLText extracts mailto targets and visible text from an HTML body.
func ParseHTMLText(body string) (*HTMLText, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	out := &HTMLText{Mailtos: make([]string, 0)}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if len(href) < len("mailto:") || !strings.EqualFold(href[:len("mailto:")], "mailto:") {
			return
		}
		addr := href[len("mailto:"):]
		if i := strings.IndexByte(addr, '?'); i >= 0 {
			addr = addr[:i]
		}
		if addr = strings.TrimSpace(addr); addr != "" {
			out.Mailtos = append(out.Mailtos, addr)
		}
	})

	doc.Find("script, style, noscript").Remove()
	out.Visible = doc.Text()

	return out, nil
}
