package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Error markers. Every failure that leaves an engine or the resolver wraps
// exactly one of these so the host can render a kind-specific message.
var (
	ErrBrowser        = errors.New("browser error")
	ErrNetwork        = errors.New("network error")
	ErrParse          = errors.New("parse error")
	ErrIO             = errors.New("io error")
	ErrNoSources      = errors.New("no video sources found")
	ErrDownloadFailed = errors.New("download failed")
)

// Kind is the user-facing classification of a failure.
type Kind string

const (
	KindBrowser        Kind = "browser"
	KindNetwork        Kind = "network"
	KindParse          Kind = "parse"
	KindIO             Kind = "io"
	KindNoSources      Kind = "no_sources"
	KindDownloadFailed Kind = "download_failed"
	KindCancelled      Kind = "cancelled"
	KindUnknown        Kind = "unknown"
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrDownloadFailed
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// KindOf classifies err by the marker it carries.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, ErrBrowser):
		return KindBrowser
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	case errors.Is(err, ErrParse):
		return KindParse
	case errors.Is(err, ErrIO):
		return KindIO
	case errors.Is(err, ErrNoSources):
		return KindNoSources
	case errors.Is(err, ErrDownloadFailed):
		return KindDownloadFailed
	default:
		return KindUnknown
	}
}

// Hint returns a short next-step suggestion for the error kind, suitable for
// log error_hint fields and CLI output.
func Hint(err error) string {
	switch KindOf(err) {
	case KindBrowser:
		return "the page could not be inspected; open it in a browser to confirm it plays"
	case KindNetwork:
		return "check connectivity and whether the site requires a referer"
	case KindParse:
		return "the manifest or page format was not recognised"
	case KindIO:
		return "check free space and permissions on the download and temp directories"
	case KindNoSources:
		return "no playable stream was found on the page"
	case KindDownloadFailed:
		return "check that ffmpeg is installed and the stream is not encrypted"
	default:
		return "check logs for details"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
