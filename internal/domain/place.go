package domain

import (
	"regexp"
	"strings"
)

// placePrefixRe matches the feed's relative-location prefix:
// "<distance> km <compass> <place>", e.g. "5 km SW Napoli" -> "Napoli".
var placePrefixRe = regexp.MustCompile(`^\d+(?:\.\d+)?\s*km\s+[NSEW]{1,3}\s+(.+)$`)

// NormalizePlace strips the leading distance-and-bearing prefix from a feed
// place string and trims surrounding whitespace. Input without the prefix is
// returned trimmed but otherwise unchanged. Idempotent:
// NormalizePlace(NormalizePlace(s)) == NormalizePlace(s).
func NormalizePlace(raw string) string {
	place := strings.TrimSpace(raw)
	if m := placePrefixRe.FindStringSubmatch(place); m != nil {
		return strings.TrimSpace(m[1])
	}
	return place
}
