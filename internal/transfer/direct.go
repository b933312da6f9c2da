package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"streamgrab/internal/fileutil"
	"streamgrab/internal/logging"
	"streamgrab/internal/media"
	"streamgrab/internal/services"
)

const (
	directComponent = "direct"
	chunkSize       = 32 << 10
	partialSuffix   = ".part"
)

// DirectEngine downloads a single HTTP resource.
type DirectEngine struct {
	client *Client
	logger *slog.Logger
}

// NewDirectEngine constructs the direct transfer engine.
func NewDirectEngine(client *Client, logger *slog.Logger) *DirectEngine {
	return &DirectEngine{client: client, logger: logging.NewComponentLogger(logger, directComponent)}
}

// Download streams req.URL into a partial file unique to this call and moves
// it to a free final name once the body has been fully written. Progress is
// only reported when the server declares a content length.
func (e *DirectEngine) Download(ctx context.Context, req Request, progress media.ProgressFunc) (string, error) {
	logger := logging.WithContext(ctx, e.logger)
	finalPath := FinalPath(req.OutputPath)
	partial := finalPath + "." + uuid.NewString() + partialSuffix

	resp, err := e.client.Get(ctx, req.URL, req.Referer)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := ensureParent(directComponent, finalPath); err != nil {
		return "", err
	}
	file, err := os.OpenFile(partial, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", services.Wrap(services.ErrIO, directComponent, "create file", partial, err)
	}
	succeeded := false
	defer func() {
		if succeeded {
			return
		}
		_ = file.Close()
		if err := os.Remove(partial); err != nil && !os.IsNotExist(err) {
			logger.Debug("partial cleanup failed", logging.String("path", partial), logging.Error(err))
		}
	}()

	total := resp.ContentLength
	logger.Info("direct download started",
		logging.String(logging.FieldEventType, "direct_started"),
		logging.String("size", sizeLabel(total)),
	)

	var downloaded int64
	buf := make([]byte, chunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := file.Write(buf[:n]); err != nil {
				return "", services.Wrap(services.ErrIO, directComponent, "write", partial, err)
			}
			downloaded += int64(n)
			if total > 0 {
				progress.Report(media.Progress{
					Percent: percentOf(downloaded, total),
					Message: fmt.Sprintf("Downloaded %s of %s", humanize.Bytes(uint64(downloaded)), humanize.Bytes(uint64(total))),
					Bytes:   downloaded,
					Total:   total,
				})
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return "", services.Wrap(services.ErrNetwork, directComponent, "read body", req.URL, readErr)
		}
	}

	if err := file.Close(); err != nil {
		return "", services.Wrap(services.ErrIO, directComponent, "close file", partial, err)
	}
	if err := ctx.Err(); err != nil {
		_ = os.Remove(partial)
		succeeded = true
		return "", services.Wrap(services.ErrDownloadFailed, directComponent, "finalize file", "interrupted", err)
	}
	placed, err := fileutil.PlaceFile(partial, finalPath)
	if err != nil {
		_ = os.Remove(partial)
		succeeded = true
		return "", services.Wrap(services.ErrIO, directComponent, "finalize file", finalPath, err)
	}
	succeeded = true
	finalPath = placed

	if total > 0 {
		progress.Report(media.Progress{Percent: 100, Message: "Download complete", Bytes: downloaded, Total: total})
	}
	logger.Info("direct download completed",
		logging.String(logging.FieldEventType, "direct_completed"),
		logging.String("output", finalPath),
		logging.String("size", humanize.Bytes(uint64(downloaded))),
	)
	return finalPath, nil
}

func sizeLabel(total int64) string {
	if total <= 0 {
		return "unknown"
	}
	return humanize.Bytes(uint64(total))
}
