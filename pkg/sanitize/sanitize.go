// Package sanitize normalizes untrusted user input before validation and
// screens it for common injection patterns. The pattern checks are
// heuristics: they catch casual abuse, not a determined attacker, and the
// service never executes or reflects user input regardless.
package sanitize

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// MaxTextLength bounds any single sanitized text value.
const MaxTextLength = 10000

// strict strips all HTML. Safe for concurrent use.
var strict = bluemonday.StrictPolicy()

// Text strips markup, decodes residual entities, trims surrounding
// whitespace and truncates to MaxTextLength. Applying Text to its own
// output returns the same string.
func Text(s string) string {
	if s == "" {
		return ""
	}

	// Strip and decode to a fixed point: decoding can surface
	// entity-encoded markup, which must not survive as live tags.
	cleaned := s
	for i := 0; i < 8; i++ {
		next := html.UnescapeString(strict.Sanitize(cleaned))
		if next == cleaned {
			break
		}
		cleaned = next
	}
	cleaned = strings.TrimSpace(cleaned)

	if len(cleaned) > MaxTextLength {
		cut := MaxTextLength
		for cut > 0 && !utf8.RuneStart(cleaned[cut]) {
			cut--
		}
		cleaned = strings.TrimSpace(cleaned[:cut])
	}

	return cleaned
}

// emailPattern is deliberately conservative: a single @, no spaces, and a
// dotted domain with a 2+ letter TLD. Full RFC 5322 addresses that fail it
// are rejected, which is acceptable for a contact form.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Email sanitizes and validates an email address. Returns the lowercased
// address, or "" when the input does not look like an email.
func Email(s string) string {
	cleaned := Text(s)
	if cleaned == "" || !emailPattern.MatchString(cleaned) {
		return ""
	}
	return strings.ToLower(cleaned)
}

var xssPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script[^>]*>`),
	regexp.MustCompile(`(?i)</script>`),
	regexp.MustCompile(`(?i)<iframe[^>]*>`),
	regexp.MustCompile(`(?i)javascript\s*:`),
	regexp.MustCompile(`(?i)vbscript\s*:`),
	regexp.MustCompile(`(?i)\bon(load|error|click|mouseover|focus|submit)\s*=`),
	regexp.MustCompile(`(?i)\beval\s*\(`),
	regexp.MustCompile(`(?i)expression\s*\(`),
	regexp.MustCompile(`(?i)<embed[^>]*>`),
	regexp.MustCompile(`(?i)<object[^>]*>`),
	regexp.MustCompile(`(?i)data\s*:\s*text/html`),
}

// ContainsXSS reports whether s matches a known script-injection pattern.
func ContainsXSS(s string) bool {
	for _, p := range xssPatterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

var sqlPatterns = []*regexp.Regexp{
	// keyword followed by another keyword, as in "UNION SELECT" or
	// "DROP TABLE"; lone keywords in prose stay legal.
	regexp.MustCompile(`(?i)\b(union\s+(all\s+)?select|select\s+.+\s+from|insert\s+into|delete\s+from|drop\s+(table|database)|update\s+\w+\s+set|truncate\s+table)\b`),
	// quote-break tautologies
	regexp.MustCompile(`(?i)('|")\s*(or|and)\s+('|")?\d`),
	regexp.MustCompile(`(?i)\b(or|and)\s+\d+\s*=\s*\d+`),
	// comment and statement terminators used to cut queries short
	regexp.MustCompile(`(--|#|/\*)\s*$`),
	regexp.MustCompile(`;\s*(select|insert|update|delete|drop)\b`),
	regexp.MustCompile(`(?i)\b(exec|execute)\s*\(`),
	regexp.MustCompile(`(?i)\bwaitfor\s+delay\b`),
}

// ContainsSQLInjection reports whether s matches a known SQL-injection
// pattern.
func ContainsSQLInjection(s string) bool {
	for _, p := range sqlPatterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}
