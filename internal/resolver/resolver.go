package resolver

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"

	"streamgrab/internal/config"
	"streamgrab/internal/logging"
	"streamgrab/internal/media"
	"streamgrab/internal/services"
	"streamgrab/internal/transfer"
)

const (
	component = "resolver"

	maxPageBytes     = 8 << 20
	defaultMaxFrames = 3
)

// Resolver discovers the sources behind a page URL.
type Resolver interface {
	Resolve(ctx context.Context, pageURL string) (media.VideoInfo, error)
}

// Options tunes a PageResolver.
type Options struct {
	// Timeout bounds the whole resolution including iframe fetches.
	Timeout    time.Duration
	AdPatterns []string
	// MaxFrames caps how many iframes are fetched when the page itself has no
	// sources. Zero uses the default; negative disables iframe scanning.
	MaxFrames int
	Logger    *slog.Logger
}

// PageResolver scans static HTML for media URLs.
type PageResolver struct {
	client     *transfer.Client
	timeout    time.Duration
	adPatterns []string
	maxFrames  int
	logger     *slog.Logger
}

// New builds a PageResolver that fetches pages with client.
func New(client *transfer.Client, opts Options) *PageResolver {
	maxFrames := opts.MaxFrames
	if maxFrames == 0 {
		maxFrames = defaultMaxFrames
	}
	return &PageResolver{
		client:     client,
		timeout:    opts.Timeout,
		adPatterns: opts.AdPatterns,
		maxFrames:  max(maxFrames, 0),
		logger:     logging.NewComponentLogger(opts.Logger, component),
	}
}

// NewFromConfig wires a PageResolver from the [resolver] config section.
func NewFromConfig(cfg *config.Config, client *transfer.Client, logger *slog.Logger) *PageResolver {
	return New(client, Options{
		Timeout:    cfg.ResolverTimeout(),
		AdPatterns: cfg.Resolver.AdPatterns,
		Logger:     logger,
	})
}

// Resolve fetches pageURL and returns its title, thumbnail and sources. A page
// without any usable source yields services.ErrNoSources.
func (r *PageResolver) Resolve(ctx context.Context, pageURL string) (media.VideoInfo, error) {
	pageURL = strings.TrimSpace(pageURL)
	base, err := url.Parse(pageURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return media.VideoInfo{}, services.Wrap(services.ErrParse, component, "parse url", pageURL, err)
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	scan, err := r.scanPage(ctx, base, "")
	if err != nil {
		return media.VideoInfo{}, err
	}
	sources := r.filterSources(scan.candidates)

	frames := lo.Reject(scan.frames, func(frame string, _ int) bool {
		return media.IsAdURL(frame, r.adPatterns)
	})
	for i, frame := range frames {
		if len(sources) > 0 || i >= r.maxFrames {
			break
		}
		frameURL, _ := url.Parse(frame)
		frameScan, err := r.scanPage(ctx, frameURL, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				return media.VideoInfo{}, err
			}
			r.logger.Debug("iframe scan failed",
				logging.String("frame_url", frame),
				logging.Error(err),
			)
			continue
		}
		sources = r.filterSources(frameScan.candidates)
		if scan.thumbnail == "" {
			scan.thumbnail = frameScan.thumbnail
		}
		if scan.duration == "" {
			scan.duration = frameScan.duration
		}
	}

	if len(sources) == 0 {
		return media.VideoInfo{}, services.Wrap(services.ErrNoSources, component, "resolve", pageURL, nil)
	}

	title := scan.title
	if title == "" {
		title = TitleFromURL(pageURL)
	}
	info := media.VideoInfo{
		URL:       pageURL,
		Title:     title,
		Thumbnail: scan.thumbnail,
		Duration:  scan.duration,
		Qualities: media.OrderQualities(sources),
		Sources:   sources,
	}
	r.logger.Info("page resolved",
		logging.String("url", pageURL),
		logging.String("title", info.Title),
		logging.Int("sources", len(sources)),
	)
	return info, nil
}

func (r *PageResolver) scanPage(ctx context.Context, pageURL *url.URL, referer string) (pageScan, error) {
	body, err := r.client.Fetch(ctx, pageURL.String(), referer, maxPageBytes)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return pageScan{}, services.Wrap(services.ErrBrowser, component, "load page", "timed out loading "+pageURL.String(), err)
		}
		return pageScan{}, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return pageScan{}, services.Wrap(services.ErrParse, component, "parse html", pageURL.String(), err)
	}
	return scanDocument(doc, pageURL), nil
}

func (r *PageResolver) filterSources(candidates []string) []media.VideoSource {
	kept := lo.Filter(lo.Uniq(candidates), func(candidate string, _ int) bool {
		return !media.IsAdURL(candidate, r.adPatterns) && !media.IsSegmentURL(candidate)
	})
	return lo.Map(kept, func(candidate string, _ int) media.VideoSource {
		source := media.VideoSource{
			URL:     candidate,
			Quality: media.ExtractQuality(candidate),
			Type:    media.SourceDirect,
		}
		if source.IsHLS() {
			source.Type = media.SourceHLS
		}
		return source
	})
}
