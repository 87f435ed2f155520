// Package parser normalizes the raw strings read from listing pages and
// fetched websites.
package parser

import "strings"

var controlReplacer = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ")

// CleanText replaces line breaks and tabs with spaces and trims the result.
func CleanText(v string) string {
	if v == "" {
		return ""
	}
	return strings.TrimSpace(controlReplacer.Replace(v))
}
