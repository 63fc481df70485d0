// Package sanitize cleans text and URLs taken from untrusted documents.
// Nothing here returns an error: input that cannot be cleaned is reported as
// absent.
package sanitize

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/purell"
)

var (
	tagPattern    = regexp.MustCompile(`<[^>]*>`)
	entityPattern = regexp.MustCompile(`&#?[a-zA-Z0-9]+;`)

	entityReplacer = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&#x27;", "'",
		"&apos;", "'",
		"&nbsp;", " ",
	)
)

// Text strips markup, decodes the common HTML entities, drops any other
// entity and every control character except newline and tab, and trims the
// result. An empty result means the field is absent and is returned as "".
func Text(input string) string {
	s := tagPattern.ReplaceAllString(input, "")
	s = entityReplacer.Replace(s)
	s = entityPattern.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// OptionalText applies Text to an optional field and returns nil when the
// field is missing or cleans down to nothing.
func OptionalText(input *string) *string {
	if input == nil {
		return nil
	}
	s := Text(*input)
	if s == "" {
		return nil
	}
	return &s
}

// URL parses input as an absolute http or https URL and returns its canonical
// serialization, or "" if it is not acceptable. Anything whose serialized form
// mentions a javascript: scheme, wherever it sits, is rejected.
func URL(input string) string {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if u.Host == "" || u.Opaque != "" {
		return ""
	}
	if u.Path == "" {
		u.Path = "/"
	}

	normalized := purell.NormalizeURL(u, purell.FlagsSafe)
	if strings.Contains(strings.ToLower(normalized), "javascript:") {
		return ""
	}
	return normalized
}

// OptionalURL applies URL to an optional field and returns nil when the field
// is missing or invalid.
func OptionalURL(input *string) *string {
	if input == nil {
		return nil
	}
	s := URL(*input)
	if s == "" {
		return nil
	}
	return &s
}
