package media

import "strings"

// segmentPatterns mark URLs that are media fragments rather than a playable
// entry point.
var segmentPatterns = []string{".dts", ".ts", "/480p/video", "/720p/video", "/1080p/video"}

// IsAdURL reports whether rawURL contains any of the ad patterns,
// case-insensitively.
func IsAdURL(rawURL string, patterns []string) bool {
	return containsAny(rawURL, patterns)
}

// IsSegmentURL reports whether rawURL looks like a single segment of a stream.
func IsSegmentURL(rawURL string) bool {
	return containsAny(rawURL, segmentPatterns)
}

func containsAny(value string, patterns []string) bool {
	lower := strings.ToLower(value)
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}
