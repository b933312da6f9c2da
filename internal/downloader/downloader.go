// Package downloader turns a queue item into a finished file. An item without
// sources is resolved as a page unless its URL names a media file. A source is
// then selected by quality and handed to the manifest or direct engine.
package downloader

import (
	"context"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"

	"streamgrab/internal/config"
	"streamgrab/internal/fileutil"
	"streamgrab/internal/logging"
	"streamgrab/internal/media"
	"streamgrab/internal/queue"
	"streamgrab/internal/resolver"
	"streamgrab/internal/services"
	"streamgrab/internal/transfer"
)

const component = "downloader"

// Downloader implements queue.Runner.
type Downloader struct {
	downloadDir    string
	defaultQuality string
	resolver       resolver.Resolver
	hls            transfer.Engine
	direct         transfer.Engine
	logger         *slog.Logger
}

var _ queue.Runner = (*Downloader)(nil)

// New assembles a Downloader from explicit collaborators.
func New(cfg *config.Config, res resolver.Resolver, hls, direct transfer.Engine, logger *slog.Logger) *Downloader {
	return &Downloader{
		downloadDir:    cfg.Paths.DownloadDir,
		defaultQuality: cfg.Download.DefaultQuality,
		resolver:       res,
		hls:            hls,
		direct:         direct,
		logger:         logging.NewComponentLogger(logger, component),
	}
}

// NewFromConfig builds the shared HTTP client, both engines and the page
// resolver from configuration.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Downloader {
	client := transfer.NewClient(transfer.ClientOptions{
		UserAgent:             cfg.Download.UserAgent,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout(),
		RequestsPerSecond:     cfg.Download.RequestsPerSecond,
	})
	return New(cfg,
		resolver.NewFromConfig(cfg, client, logger),
		transfer.NewHLSEngine(client, cfg.Paths.TempDir, cfg.RemuxBinary(), logger),
		transfer.NewDirectEngine(client, logger),
		logger,
	)
}

// Resolver exposes the page resolver used for items without sources.
func (d *Downloader) Resolver() resolver.Resolver {
	return d.resolver
}

// Run downloads item and returns the final file path.
func (d *Downloader) Run(ctx context.Context, item queue.Item, progress media.ProgressFunc) (string, error) {
	ctx = services.WithItemID(ctx, item.ID)
	logger := d.logger.With(logging.String(logging.FieldItemID, item.ID))

	sources := item.Sources
	title := item.Title
	if len(sources) == 0 {
		if source, ok := media.SourceFromURL(item.URL); ok {
			sources = []media.VideoSource{source}
			if strings.TrimSpace(title) == "" {
				title = resolver.TitleFromURL(item.URL)
			}
		}
	}
	if len(sources) == 0 {
		progress.Report(media.Progress{Message: "Resolving page"})
		info, err := d.resolver.Resolve(ctx, item.URL)
		if err != nil {
			return "", err
		}
		sources = info.Sources
		if strings.TrimSpace(title) == "" {
			title = info.Title
		}
	}

	quality := strings.TrimSpace(item.Quality)
	if quality == "" {
		quality = d.defaultQuality
	}
	source, ok := media.SelectSource(sources, quality)
	if !ok {
		return "", services.Wrap(services.ErrNoSources, component, "select source", item.URL, nil)
	}

	output, err := d.OutputPath(item, title)
	if err != nil {
		return "", err
	}
	req := transfer.Request{
		URL:        source.URL,
		OutputPath: output,
		Referer:    refererFor(item.URL, source.URL),
	}

	engine := d.direct
	engineName := string(media.SourceDirect)
	if source.IsHLS() {
		engine = d.hls
		engineName = string(media.SourceHLS)
	}
	logger.Info("source selected",
		logging.String("source_url", source.URL),
		logging.String("quality", source.Quality),
		logging.String("engine", engineName),
		logging.String("output", output),
	)
	return engine.Download(ctx, req, progress)
}

// OutputPath returns the preferred destination for item. The name is the
// sanitized OutputFilename, else title. The engines claim the name when the
// file is finished and fall back to a " (n)" variant if it is taken.
func (d *Downloader) OutputPath(item queue.Item, title string) (string, error) {
	dir := strings.TrimSpace(item.OutputDir)
	if dir == "" {
		dir = d.downloadDir
	}
	expanded, err := config.ExpandPath(dir)
	if err != nil {
		return "", services.Wrap(services.ErrIO, component, "resolve output directory", dir, err)
	}
	name := strings.TrimSpace(item.OutputFilename)
	if name == "" {
		name = title
	}
	base := filepath.Join(expanded, fileutil.SanitizeFilename(name))
	return transfer.FinalPath(base), nil
}

// refererFor sends the page URL as referer unless it is the media URL itself
// or not a web URL.
func refererFor(pageURL, sourceURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return ""
	}
	if pageURL == sourceURL {
		return ""
	}
	return pageURL
}
