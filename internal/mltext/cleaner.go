package mltext

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

var (
	urlRe        = regexp.MustCompile(`http\S+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Cleaner prepares email text for classifier inference: header
// stripping, markup removal, URL removal, whitespace normalization and
// UTF-8 sanitization. This cleaning belongs to the classifier side of
// the contract, not to the scan pipeline.
type Cleaner struct {
	maxSize int
	logger  *zap.Logger
}

// NewCleaner creates a Cleaner. maxSize caps the cleaned text in
// bytes; zero or negative disables the cap.
func NewCleaner(maxSize int, logger *zap.Logger) *Cleaner {
	return &Cleaner{maxSize: maxSize, logger: logger}
}

// Clean runs the full preparation over raw email text
func (c *Cleaner) Clean(raw string) string {
	// Header block, if any, ends at the first empty line
	if idx := strings.Index(raw, "\n\n"); idx >= 0 {
		raw = raw[idx+2:]
	}

	text := StripHTML(raw)
	text = urlRe.ReplaceAllString(text, " ")
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)
	text = c.SanitizeUTF8(text)
	return c.Truncate(text)
}

// Truncate caps text at the configured byte limit without splitting a
// UTF-8 sequence.
func (c *Cleaner) Truncate(text string) string {
	if c.maxSize <= 0 || len(text) <= c.maxSize {
		return text
	}
	truncated := text[:c.maxSize]
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}
	if c.logger != nil {
		c.logger.Debug("Classifier text truncated",
			zap.Int("original_size", len(text)),
			zap.Int("truncated_size", len(truncated)),
			zap.Int("max_size", c.maxSize))
	}
	return truncated
}

// SanitizeUTF8 drops invalid UTF-8 sequences from the text
func (c *Cleaner) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}
	result := make([]rune, 0, len(text))
	for i, r := range text {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(text[i:]); size == 1 {
				continue
			}
		}
		result = append(result, r)
	}
	return string(result)
}

// StripHTML extracts the text content of an HTML fragment, separating
// element texts with spaces. Plain text passes through unchanged, so
// it is safe to run on mixed plain/HTML input.
func StripHTML(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	tokenizer := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skipDepth := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "script", "style":
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "script", "style":
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(tokenizer.Text())
				b.WriteByte(' ')
			}
		}
	}
}
