package media

import (
	"net/url"
	"path"
	"slices"
	"strings"
)

// SourceType names the transfer engine a source needs.
type SourceType string

const (
	SourceHLS    SourceType = "hls"
	SourceDirect SourceType = "direct"
)

// QualityAuto marks a source whose rendition could not be inferred.
const QualityAuto = "auto"

// mediaExtensions are path suffixes that mark a URL as a stream rather than a
// page.
var mediaExtensions = []string{".m3u8", ".mp4", ".m4v", ".webm", ".mkv", ".mov"}

// VideoSource is one playable stream discovered on a page.
type VideoSource struct {
	URL     string     `json:"url"`
	Quality string     `json:"quality"`
	Type    SourceType `json:"source_type"`
}

// IsHLS reports whether the source should be handled by the manifest engine.
func (s VideoSource) IsHLS() bool {
	return s.Type == SourceHLS || strings.Contains(strings.ToLower(s.URL), ".m3u8")
}

// VideoInfo is the result of resolving a page.
type VideoInfo struct {
	URL       string        `json:"url"`
	Title     string        `json:"title"`
	Thumbnail string        `json:"thumbnail"`
	Duration  string        `json:"duration"`
	Qualities []string      `json:"qualities"`
	Sources   []VideoSource `json:"sources"`
}

// SelectSource picks the source to download. A concrete quality wins when a
// source carries exactly that label; "", "auto" and "best" (or no match) fall
// back to the first source. ok is false when sources is empty.
func SelectSource(sources []VideoSource, quality string) (VideoSource, bool) {
	if len(sources) == 0 {
		return VideoSource{}, false
	}
	switch q := strings.TrimSpace(quality); q {
	case "", QualityAuto, "best":
	default:
		for _, source := range sources {
			if source.Quality == q {
				return source, true
			}
		}
	}
	return sources[0], true
}

// SourceFromURL treats an http(s) URL whose path names a media file as its
// own single source, so it can be downloaded without resolving a page.
func SourceFromURL(rawURL string) (VideoSource, bool) {
	rawURL = strings.TrimSpace(rawURL)
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return VideoSource{}, false
	}
	ext := strings.ToLower(path.Ext(parsed.Path))
	if !slices.Contains(mediaExtensions, ext) {
		return VideoSource{}, false
	}
	source := VideoSource{URL: rawURL, Quality: ExtractQuality(rawURL), Type: SourceDirect}
	if ext == ".m3u8" {
		source.Type = SourceHLS
	}
	return source, true
}
