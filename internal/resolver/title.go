package resolver

import (
	"net/url"
	"path"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const fallbackTitle = "video"

// TitleFromURL builds a readable title from the last path element of a page
// URL, falling back to the host name.
func TitleFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fallbackTitle
	}
	base := path.Base(strings.TrimSuffix(parsed.Path, "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "." || base == "/" {
		base = ""
	}
	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range base {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.' || r == '+':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	title := strings.TrimSpace(cleaned.String())
	if title == "" {
		title = strings.TrimPrefix(parsed.Hostname(), "www.")
	}
	if title == "" {
		return fallbackTitle
	}
	return cases.Title(language.Und).String(title)
}

// cleanTitle collapses whitespace in a title taken from page markup.
func cleanTitle(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
