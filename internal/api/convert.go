package api

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"

	"streamgrab/internal/deps"
	"streamgrab/internal/history"
	"streamgrab/internal/media"
	"streamgrab/internal/queue"
	"streamgrab/internal/workflow"
)

// FromQueueItem converts a queue item snapshot to its API representation.
func FromQueueItem(item queue.Item) QueueItem {
	dto := QueueItem{
		ID:             item.ID,
		URL:            item.URL,
		Title:          item.Title,
		Thumbnail:      item.Thumbnail,
		Quality:        item.Quality,
		OutputDir:      item.OutputDir,
		OutputFilename: item.OutputFilename,
		Status:         string(item.Status),
		Progress: QueueProgress{
			Percent: item.Progress,
			Speed:   item.Speed,
			ETA:     item.ETA,
		},
		ErrorMessage: item.Error,
		FilePath:     item.FilePath,
		AddedAt:      FormatTime(item.AddedAt),
	}
	if len(item.Sources) > 0 {
		dto.Sources = lo.Map(item.Sources, func(source media.VideoSource, _ int) Source {
			return Source{URL: source.URL, Quality: source.Quality, Type: string(source.Type)}
		})
	}
	return dto
}

// FromQueueItems converts a slice of queue items into API DTOs.
func FromQueueItems(items []queue.Item) []QueueItem {
	if len(items) == 0 {
		return nil
	}
	return lo.Map(items, func(item queue.Item, _ int) QueueItem {
		return FromQueueItem(item)
	})
}

// FromHistoryEntry converts a history record to its API representation.
func FromHistoryEntry(entry history.Entry) HistoryEntry {
	dto := HistoryEntry{
		ID:          entry.ID,
		ItemID:      entry.ItemID,
		URL:         entry.URL,
		Title:       entry.Title,
		Thumbnail:   entry.Thumbnail,
		Quality:     entry.Quality,
		FilePath:    entry.FilePath,
		SizeBytes:   entry.SizeBytes,
		CompletedAt: FormatTime(entry.CompletedAt),
	}
	if entry.SizeBytes > 0 {
		dto.Size = humanize.Bytes(uint64(entry.SizeBytes))
	}
	return dto
}

// FromHistoryEntries converts a slice of history records into API DTOs.
func FromHistoryEntries(entries []history.Entry) []HistoryEntry {
	if len(entries) == 0 {
		return nil
	}
	return lo.Map(entries, func(entry history.Entry, _ int) HistoryEntry {
		return FromHistoryEntry(entry)
	})
}

// FromStats produces a string-keyed queue summary. Every known status is
// present so clients can render a stable set of columns.
func FromStats(stats queue.Stats) QueueStats {
	counts := make(map[string]int, len(stats.ByStatus))
	for _, status := range queue.AllStatuses() {
		counts[string(status)] = stats.ByStatus[status]
	}
	return QueueStats{
		Total:         stats.Total,
		Active:        stats.Active,
		MaxConcurrent: stats.MaxConcurrent,
		Counts:        counts,
	}
}

// FromDispatcherStatus converts the dispatcher summary to its API payload.
func FromDispatcherStatus(summary workflow.StatusSummary) DispatcherStatus {
	return DispatcherStatus{
		Running:    summary.Running,
		AutoStart:  summary.AutoStart,
		Dispatched: summary.Dispatched,
		LastError:  summary.LastError,
	}
}

// FromDependencies converts binary checks to their API payload.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	return lo.Map(statuses, func(dep deps.Status, _ int) DependencyStatus {
		return DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		}
	})
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// ParseTime parses a timestamp produced by FormatTime. Invalid values yield
// the zero time.
func ParseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if parsed, err := time.Parse(dateTimeFormat, value); err == nil {
		return parsed
	}
	if parsed, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return parsed
	}
	return time.Time{}
}
