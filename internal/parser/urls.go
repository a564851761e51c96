package parser

import (
	"net/url"
	"regexp"

	"github.com/mrinal140420/phishing-email-sentinel/internal/core"
)

// urlPattern deliberately matches permissively: anything after an
// http(s) scheme up to whitespace or a URL-breaking delimiter.
var urlPattern = regexp.MustCompile("https?://[^\\s<>\"{}|\\\\^`\\[\\]]+")

// ExtractURLs scans both body variants for URLs, deduplicates by exact
// string preserving first-seen order, and derives each URL's domain
// from its authority component. Entries whose domain comes back empty
// are dropped.
func ExtractURLs(plainText, html string) []core.URLRecord {
	seen := make(map[string]struct{})
	var records []core.URLRecord
	for _, text := range []string{plainText, html} {
		for _, match := range urlPattern.FindAllString(text, -1) {
			if _, ok := seen[match]; ok {
				continue
			}
			seen[match] = struct{}{}
			parsed, err := url.Parse(match)
			if err != nil || parsed.Host == "" {
				continue
			}
			records = append(records, core.URLRecord{URL: match, Domain: parsed.Host})
		}
	}
	return records
}
