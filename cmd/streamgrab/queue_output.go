package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"streamgrab/internal/api"
	"streamgrab/internal/queue"
)

var queueListHeaders = []string{"ID", "Title", "Status", "Progress", "Speed", "ETA", "Quality"}

var queueListAligns = []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft}

func buildQueueListRows(items []api.QueueItem, colorize bool) [][]string {
	return lo.Map(items, func(item api.QueueItem, _ int) []string {
		return []string{
			item.ID,
			truncate(displayTitle(item), 48),
			colorizeStatus(item.Status, colorize),
			formatPercent(item.Progress.Percent),
			dashIfEmpty(item.Progress.Speed),
			dashIfEmpty(item.Progress.ETA),
			dashIfEmpty(item.Quality),
		}
	})
}

// buildQueueStatusRows lists non-zero counts in lifecycle order.
func buildQueueStatusRows(counts map[string]int) [][]string {
	rows := make([][]string, 0, len(counts))
	for _, status := range queue.AllStatuses() {
		count := counts[string(status)]
		if count == 0 {
			continue
		}
		rows = append(rows, []string{titleCase(string(status)), strconv.Itoa(count)})
	}
	return rows
}

func describeLines(item api.QueueItem) []string {
	lines := []string{
		fmt.Sprintf("ID:        %s", item.ID),
		fmt.Sprintf("Title:     %s", displayTitle(item)),
		fmt.Sprintf("URL:       %s", item.URL),
		fmt.Sprintf("Status:    %s", item.Status),
		fmt.Sprintf("Progress:  %s", formatPercent(item.Progress.Percent)),
	}
	optional := []struct {
		label string
		value string
	}{
		{"Speed", item.Progress.Speed},
		{"ETA", item.Progress.ETA},
		{"Quality", item.Quality},
		{"Thumbnail", item.Thumbnail},
		{"Output dir", item.OutputDir},
		{"Filename", item.OutputFilename},
		{"File", item.FilePath},
		{"Error", item.ErrorMessage},
		{"Added", item.AddedAt},
	}
	for _, field := range optional {
		if strings.TrimSpace(field.value) == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%-10s %s", field.label+":", field.value))
	}
	if len(item.Sources) > 0 {
		lines = append(lines, "Sources:")
		for _, source := range item.Sources {
			lines = append(lines, fmt.Sprintf("  - [%s/%s] %s", source.Type, source.Quality, source.URL))
		}
	}
	return lines
}

func displayTitle(item api.QueueItem) string {
	if title := strings.TrimSpace(item.Title); title != "" {
		return title
	}
	return item.URL
}

func formatPercent(value float64) string {
	return fmt.Sprintf("%.1f%%", value)
}

func dashIfEmpty(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func titleCase(value string) string {
	if value == "" {
		return value
	}
	return strings.ToUpper(value[:1]) + value[1:]
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
