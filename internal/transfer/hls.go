package transfer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/grafov/m3u8"

	"streamgrab/internal/fileutil"
	"streamgrab/internal/logging"
	"streamgrab/internal/media"
	"streamgrab/internal/services"
)

const (
	hlsComponent = "hls"
	// maxPlaylistBytes bounds manifest bodies; real playlists are far smaller.
	maxPlaylistBytes = 16 << 20
)

// HLSEngine downloads HLS streams.
type HLSEngine struct {
	client      *Client
	tempDir     string
	remuxBinary string
	logger      *slog.Logger
}

// NewHLSEngine constructs the manifest engine. Temporary segment and remux
// files are created in tempDir.
func NewHLSEngine(client *Client, tempDir, remuxBinary string, logger *slog.Logger) *HLSEngine {
	return &HLSEngine{
		client:      client,
		tempDir:     tempDir,
		remuxBinary: remuxBinary,
		logger:      logging.NewComponentLogger(logger, hlsComponent),
	}
}

// Download fetches req.URL as a playlist, assembles its segments in order,
// and remuxes them into the final MP4.
func (e *HLSEngine) Download(ctx context.Context, req Request, progress media.ProgressFunc) (string, error) {
	logger := logging.WithContext(ctx, e.logger)
	finalPath := FinalPath(req.OutputPath)

	playlist, base, err := e.mediaPlaylist(ctx, req.URL, req.Referer)
	if err != nil {
		return "", err
	}
	segments := playlistSegments(playlist)
	if len(segments) == 0 {
		return "", services.Wrap(services.ErrNoSources, hlsComponent, "read playlist", "playlist has no segments", nil)
	}
	if method := encryptionMethod(playlist, segments); method != "" {
		return "", services.Wrap(services.ErrDownloadFailed, hlsComponent, "read playlist", fmt.Sprintf("encrypted stream (%s) is not supported", method), nil)
	}

	if err := os.MkdirAll(e.tempDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrIO, hlsComponent, "create temp directory", e.tempDir, err)
	}
	token := uuid.NewString()
	assembled := filepath.Join(e.tempDir, "segments_"+token+".ts")
	remuxed := filepath.Join(e.tempDir, "remux_"+token+OutputExtension)
	defer func() {
		for _, path := range []string{assembled, remuxed} {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				logger.Debug("temp cleanup failed", logging.String("path", path), logging.Error(err))
			}
		}
	}()

	logger.Info("hls download started",
		logging.String(logging.FieldEventType, "hls_started"),
		logging.String("playlist", base.String()),
		logging.Int("segments", len(segments)),
	)

	if err := e.assemble(ctx, segments, base, req.Referer, assembled, progress); err != nil {
		return "", err
	}

	progress.Report(media.Progress{Percent: pendingCeiling, Message: "Remuxing"})
	if err := remux(ctx, e.remuxBinary, assembled, remuxed); err != nil {
		return "", err
	}

	if err := ensureParent(hlsComponent, finalPath); err != nil {
		return "", err
	}
	placed, err := fileutil.PlaceFile(remuxed, finalPath)
	if err != nil {
		return "", services.Wrap(services.ErrIO, hlsComponent, "move output", finalPath, err)
	}
	finalPath = placed

	progress.Report(media.Progress{Percent: 100, Message: "Download complete"})
	logger.Info("hls download completed",
		logging.String(logging.FieldEventType, "hls_completed"),
		logging.String("output", finalPath),
	)
	return finalPath, nil
}

// mediaPlaylist fetches rawURL and, when it is a master playlist, follows the
// highest-bandwidth variant. The returned URL is the base for segment URIs.
func (e *HLSEngine) mediaPlaylist(ctx context.Context, rawURL, referer string) (*m3u8.MediaPlaylist, *url.URL, error) {
	playlist, listType, base, err := e.fetchPlaylist(ctx, rawURL, referer)
	if err != nil {
		return nil, nil, err
	}
	switch listType {
	case m3u8.MEDIA:
		return playlist.(*m3u8.MediaPlaylist), base, nil
	case m3u8.MASTER:
		variant := SelectVariant(playlist.(*m3u8.MasterPlaylist))
		if variant == nil {
			return nil, nil, services.Wrap(services.ErrNoSources, hlsComponent, "select variant", "master playlist lists no variants", nil)
		}
		variantURL, err := resolveURI(base, variant.URI)
		if err != nil {
			return nil, nil, err
		}
		e.logger.Debug("selected variant",
			logging.String("uri", variantURL.String()),
			logging.Int64("bandwidth", int64(variant.Bandwidth)),
		)
		child, childType, childBase, err := e.fetchPlaylist(ctx, variantURL.String(), referer)
		if err != nil {
			return nil, nil, err
		}
		if childType != m3u8.MEDIA {
			return nil, nil, services.Wrap(services.ErrParse, hlsComponent, "decode variant", "variant is not a media playlist", nil)
		}
		return child.(*m3u8.MediaPlaylist), childBase, nil
	default:
		return nil, nil, services.Wrap(services.ErrParse, hlsComponent, "decode playlist", "unknown playlist type", nil)
	}
}

func (e *HLSEngine) fetchPlaylist(ctx context.Context, rawURL, referer string) (m3u8.Playlist, m3u8.ListType, *url.URL, error) {
	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, 0, nil, services.Wrap(services.ErrParse, hlsComponent, "parse url", rawURL, err)
	}
	body, err := e.client.Fetch(ctx, rawURL, referer, maxPlaylistBytes)
	if err != nil {
		return nil, 0, nil, err
	}
	if !bytes.HasPrefix(bytes.TrimSpace(bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))), []byte("#EXTM3U")) {
		return nil, 0, nil, services.Wrap(services.ErrParse, hlsComponent, "decode playlist", "missing #EXTM3U header", nil)
	}
	playlist, listType, err := m3u8.DecodeFrom(bytes.NewReader(body), false)
	if err != nil {
		return nil, 0, nil, services.Wrap(services.ErrParse, hlsComponent, "decode playlist", rawURL, err)
	}
	return playlist, listType, base, nil
}

// SelectVariant returns the variant with the greatest bandwidth, preferring
// the first listed on ties. I-frame only renditions are ignored.
func SelectVariant(master *m3u8.MasterPlaylist) *m3u8.Variant {
	if master == nil {
		return nil
	}
	var best *m3u8.Variant
	for _, variant := range master.Variants {
		if variant == nil || variant.Iframe || strings.TrimSpace(variant.URI) == "" {
			continue
		}
		if best == nil || variant.Bandwidth > best.Bandwidth {
			best = variant
		}
	}
	return best
}

func playlistSegments(playlist *m3u8.MediaPlaylist) []*m3u8.MediaSegment {
	count := int(playlist.Count())
	segments := make([]*m3u8.MediaSegment, 0, count)
	for i := 0; i < count && i < len(playlist.Segments); i++ {
		if seg := playlist.Segments[i]; seg != nil && strings.TrimSpace(seg.URI) != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}

func encryptionMethod(playlist *m3u8.MediaPlaylist, segments []*m3u8.MediaSegment) string {
	encrypted := func(key *m3u8.Key) bool {
		return key != nil && key.Method != "" && !strings.EqualFold(key.Method, "NONE")
	}
	if encrypted(playlist.Key) {
		return playlist.Key.Method
	}
	for _, seg := range segments {
		if encrypted(seg.Key) {
			return seg.Key.Method
		}
	}
	return ""
}

func resolveURI(base *url.URL, ref string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return nil, services.Wrap(services.ErrParse, hlsComponent, "resolve uri", ref, err)
	}
	return base.ResolveReference(parsed), nil
}

// assemble appends every segment body to dest strictly in playlist order.
func (e *HLSEngine) assemble(ctx context.Context, segments []*m3u8.MediaSegment, base *url.URL, referer, dest string, progress media.ProgressFunc) error {
	file, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return services.Wrap(services.ErrIO, hlsComponent, "create segment file", dest, err)
	}
	defer file.Close()
	writer := bufio.NewWriterSize(file, 256<<10)

	total := len(segments)
	var written int64
	for i, seg := range segments {
		segURL, err := resolveURI(base, seg.URI)
		if err != nil {
			return err
		}
		n, err := e.copySegment(ctx, writer, segURL.String(), referer)
		if err != nil {
			return fmt.Errorf("segment %d/%d: %w", i+1, total, err)
		}
		written += n
		progress.Report(media.Progress{
			Percent: percentOf(int64(i+1), int64(total)),
			Message: fmt.Sprintf("Downloading segment %d/%d", i+1, total),
			Bytes:   written,
		})
	}

	if err := writer.Flush(); err != nil {
		return services.Wrap(services.ErrIO, hlsComponent, "flush segment file", dest, err)
	}
	if err := file.Close(); err != nil {
		return services.Wrap(services.ErrIO, hlsComponent, "close segment file", dest, err)
	}
	return nil
}

func (e *HLSEngine) copySegment(ctx context.Context, w io.Writer, rawURL, referer string) (int64, error) {
	resp, err := e.client.Get(ctx, rawURL, referer)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	n, err := io.Copy(&taggedWriter{w: w, component: hlsComponent}, resp.Body)
	if err != nil {
		if errors.Is(err, services.ErrIO) {
			return n, err
		}
		return n, services.Wrap(services.ErrNetwork, hlsComponent, "read segment", rawURL, err)
	}
	return n, nil
}
