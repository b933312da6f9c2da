package transfer

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"streamgrab/internal/fileutil"
	"streamgrab/internal/media"
	"streamgrab/internal/services"
)

// OutputExtension is applied to every finished download regardless of the
// requested filename or the source URL.
const OutputExtension = ".mp4"

// pendingCeiling is the highest percentage reported before the output file is
// in its final place. 100 is reserved for success.
const pendingCeiling = 99

// Request describes one transfer.
type Request struct {
	// URL is the manifest or file to download.
	URL string
	// OutputPath is the destination without regard to extension.
	OutputPath string
	// Referer is sent with every request when non-empty.
	Referer string
}

// Engine downloads a single source and returns the final file path.
type Engine interface {
	Download(ctx context.Context, req Request, progress media.ProgressFunc) (string, error)
}

// FinalPath returns the path a request's output will be written to.
func FinalPath(outputPath string) string {
	return fileutil.WithExtension(outputPath, OutputExtension)
}

func ensureParent(component, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return services.Wrap(services.ErrIO, component, "create output directory", filepath.Dir(path), err)
	}
	return nil
}

// taggedWriter marks write failures as IO errors so they can be told apart
// from body read failures after io.Copy.
type taggedWriter struct {
	w         io.Writer
	component string
}

func (t *taggedWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil {
		return n, services.Wrap(services.ErrIO, t.component, "write", "", err)
	}
	return n, nil
}

func percentOf(done, total int64) float64 {
	pct := float64(done) / float64(max(total, 1)) * 100
	return min(pct, pendingCeiling)
}
