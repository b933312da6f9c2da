package queue

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"streamgrab/internal/media"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending     Status = "pending"
	StatusDownloading Status = "downloading"
	StatusPaused      Status = "paused"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusCancelled   Status = "cancelled"
)

var allStatuses = []Status{
	StatusPending,
	StatusDownloading,
	StatusPaused,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

// AllStatuses returns every known status in lifecycle order.
func AllStatuses() []Status {
	return slices.Clone(allStatuses)
}

// ParseStatus converts a user supplied string into a Status.
func ParseStatus(value string) (Status, bool) {
	candidate := Status(strings.ToLower(strings.TrimSpace(value)))
	if slices.Contains(allStatuses, candidate) {
		return candidate, true
	}
	return "", false
}

// IsTerminal reports whether the status ends a run.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Startable reports whether Start accepts an item in this status.
func (s Status) Startable() bool {
	return s == StatusPending || s == StatusPaused
}

// Direction selects where Move shifts an item in display order.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// ParseDirection accepts "up" or "down" in any case.
func ParseDirection(value string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(value))) {
	case DirectionUp:
		return DirectionUp, nil
	case DirectionDown:
		return DirectionDown, nil
	default:
		return "", fmt.Errorf("invalid direction %q (want up or down)", value)
	}
}

// Metadata is what a caller supplies when enqueueing a download.
type Metadata struct {
	URL            string              `json:"url"`
	Title          string              `json:"title"`
	Thumbnail      string              `json:"thumbnail,omitempty"`
	Quality        string              `json:"quality,omitempty"`
	OutputDir      string              `json:"output_dir,omitempty"`
	OutputFilename string              `json:"output_filename,omitempty"`
	Sources        []media.VideoSource `json:"sources,omitempty"`
}

// Item is one queued download.
type Item struct {
	ID             string              `json:"id"`
	URL            string              `json:"url"`
	Title          string              `json:"title"`
	Thumbnail      string              `json:"thumbnail,omitempty"`
	Quality        string              `json:"quality,omitempty"`
	OutputDir      string              `json:"output_dir,omitempty"`
	OutputFilename string              `json:"output_filename,omitempty"`
	Status         Status              `json:"status"`
	Progress       float64             `json:"progress"`
	Speed          string              `json:"speed,omitempty"`
	ETA            string              `json:"eta,omitempty"`
	Error          string              `json:"error,omitempty"`
	FilePath       string              `json:"file_path,omitempty"`
	AddedAt        time.Time           `json:"added_at"`
	Sources        []media.VideoSource `json:"sources,omitempty"`
}

// DisplayTitle falls back to the URL when no title is known.
func (i Item) DisplayTitle() string {
	if title := strings.TrimSpace(i.Title); title != "" {
		return title
	}
	return i.URL
}

func (i Item) clone() Item {
	i.Sources = slices.Clone(i.Sources)
	return i
}

// Event is published to sinks whenever an item changes state or progresses.
type Event struct {
	ID       string  `json:"id"`
	Status   Status  `json:"status"`
	Progress float64 `json:"progress"`
	Speed    string  `json:"speed,omitempty"`
	ETA      string  `json:"eta,omitempty"`
	Message  string  `json:"message,omitempty"`
	FilePath string  `json:"file_path,omitempty"`
}

// Stats summarises the queue by status.
type Stats struct {
	Total         int            `json:"total"`
	Active        int            `json:"active"`
	MaxConcurrent int            `json:"max_concurrent"`
	ByStatus      map[Status]int `json:"by_status"`
}
