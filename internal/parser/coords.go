package parser

import "regexp"

var coordsPattern = regexp.MustCompile(`!3d([-+]?\d+\.\d+)!4d([-+]?\d+\.\d+)`)

// ExtractLatLng finds the "!3d<lat>!4d<lng>" marker in a map URL. Either both
// coordinates are returned or neither.
func ExtractLatLng(s string) (lat, lng string, ok bool) {
	m := coordsPattern.FindStringSubmatch(s)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}
