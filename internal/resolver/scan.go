package resolver

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// scriptMediaPattern finds absolute media URLs embedded in inline scripts and
// JSON player configs.
var scriptMediaPattern = regexp.MustCompile(`https?://[^\s"'<>\\]+?\.(?:m3u8|mp4|webm)(?:\?[^\s"'<>\\]*)?`)

// pageScan is everything a single HTML document contributes.
type pageScan struct {
	title     string
	thumbnail string
	duration  string
	// candidates are absolute URLs in discovery order, unfiltered.
	candidates []string
	frames     []string
}

func scanDocument(doc *goquery.Document, base *url.URL) pageScan {
	var scan pageScan
	add := func(raw string) {
		if abs := absoluteURL(base, raw); abs != "" {
			scan.candidates = append(scan.candidates, abs)
		}
	}

	doc.Find("video[src], video source[src], source[src]").Each(func(_ int, sel *goquery.Selection) {
		add(sel.AttrOr("src", ""))
	})
	doc.Find(`meta[property="og:video"], meta[property="og:video:url"], meta[property="og:video:secure_url"]`).Each(func(_ int, sel *goquery.Selection) {
		add(sel.AttrOr("content", ""))
	})
	doc.Find("script").Each(func(_ int, sel *goquery.Selection) {
		text := strings.ReplaceAll(sel.Text(), `\/`, "/")
		for _, match := range scriptMediaPattern.FindAllString(text, -1) {
			add(match)
		}
	})
	doc.Find("iframe[src]").Each(func(_ int, sel *goquery.Selection) {
		if abs := absoluteURL(base, sel.AttrOr("src", "")); abs != "" {
			scan.frames = append(scan.frames, abs)
		}
	})

	scan.title = cleanTitle(metaContent(doc, "og:title"))
	if scan.title == "" {
		scan.title = cleanTitle(doc.Find("title").First().Text())
	}

	thumb := metaContent(doc, "og:image")
	if thumb == "" {
		thumb = doc.Find("video[poster]").First().AttrOr("poster", "")
	}
	scan.thumbnail = absoluteURL(base, thumb)

	duration := metaContent(doc, "video:duration")
	if duration == "" {
		duration = metaContent(doc, "og:video:duration")
	}
	scan.duration = formatDuration(duration)
	return scan
}

func metaContent(doc *goquery.Document, property string) string {
	sel := doc.Find(`meta[property="` + property + `"]`).First()
	if sel.Length() == 0 {
		sel = doc.Find(`meta[name="` + property + `"]`).First()
	}
	return strings.TrimSpace(sel.AttrOr("content", ""))
}

// absoluteURL resolves raw against base and keeps only http(s) results.
func absoluteURL(base *url.URL, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "blob:") || strings.HasPrefix(raw, "data:") {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}

// formatDuration renders a duration given in whole seconds; other values are
// passed through unchanged.
func formatDuration(raw string) string {
	if raw == "" {
		return ""
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return raw
	}
	return (time.Duration(seconds) * time.Second).String()
}
