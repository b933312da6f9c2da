package media

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

var knownQualities = []string{"1080", "720", "480", "360"}

// ExtractQuality infers a rendition label from the path and query of a URL,
// returning "auto" when no known height appears in them.
func ExtractQuality(rawURL string) string {
	subject := rawURL
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Host != "" {
		subject = parsed.EscapedPath() + "?" + parsed.RawQuery
	}
	for _, height := range knownQualities {
		if strings.Contains(subject, height) {
			return height + "p"
		}
	}
	return QualityAuto
}

// OrderQualities returns the distinct quality labels of sources ordered from
// highest to lowest, with "auto" last. An empty input yields ["auto"].
func OrderQualities(sources []VideoSource) []string {
	labels := lo.Uniq(lo.FilterMap(sources, func(s VideoSource, _ int) (string, bool) {
		q := strings.TrimSpace(s.Quality)
		return q, q != "" && q != QualityAuto
	}))
	sort.SliceStable(labels, func(i, j int) bool {
		return qualityHeight(labels[i]) > qualityHeight(labels[j])
	})
	return append(labels, QualityAuto)
}

func qualityHeight(label string) int {
	height, err := strconv.Atoi(strings.TrimSuffix(strings.ToLower(label), "p"))
	if err != nil {
		return 0
	}
	return height
}
