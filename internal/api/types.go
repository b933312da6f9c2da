package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// QueueItem describes a queue entry in a transport-friendly format.
type QueueItem struct {
	ID             string        `json:"id"`
	URL            string        `json:"url"`
	Title          string        `json:"title"`
	Thumbnail      string        `json:"thumbnail,omitempty"`
	Quality        string        `json:"quality,omitempty"`
	OutputDir      string        `json:"outputDir,omitempty"`
	OutputFilename string        `json:"outputFilename,omitempty"`
	Status         string        `json:"status"`
	Progress       QueueProgress `json:"progress"`
	ErrorMessage   string        `json:"errorMessage,omitempty"`
	FilePath       string        `json:"filePath,omitempty"`
	AddedAt        string        `json:"addedAt,omitempty"`
	Sources        []Source      `json:"sources,omitempty"`
}

// QueueProgress captures transfer progress for a queue entry.
type QueueProgress struct {
	Percent float64 `json:"percent"`
	Speed   string  `json:"speed,omitempty"`
	ETA     string  `json:"eta,omitempty"`
}

// Source is one downloadable stream attached to a queue entry.
type Source struct {
	URL     string `json:"url"`
	Quality string `json:"quality"`
	Type    string `json:"type"`
}

// EnqueueRequest is the payload accepted when adding a download.
type EnqueueRequest struct {
	URL            string `json:"url"`
	Title          string `json:"title,omitempty"`
	Quality        string `json:"quality,omitempty"`
	OutputDir      string `json:"outputDir,omitempty"`
	OutputFilename string `json:"outputFilename,omitempty"`
	// Resolve scans the page before queueing so the item carries its title,
	// thumbnail, and sources up front.
	Resolve bool `json:"resolve,omitempty"`
	// Start dispatches the item immediately instead of waiting for a slot.
	Start bool `json:"start,omitempty"`
}

// QueueStats summarises queue counts keyed by status string.
type QueueStats struct {
	Total         int            `json:"total"`
	Active        int            `json:"active"`
	MaxConcurrent int            `json:"maxConcurrent"`
	Counts        map[string]int `json:"counts"`
}

// DispatcherStatus mirrors the automatic dispatcher state.
type DispatcherStatus struct {
	Running    bool   `json:"running"`
	AutoStart  bool   `json:"autoStart"`
	Dispatched int    `json:"dispatched"`
	LastError  string `json:"lastError,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running       bool               `json:"running"`
	PID           int                `json:"pid"`
	DownloadDir   string             `json:"downloadDir"`
	LockFilePath  string             `json:"lockFilePath"`
	SocketPath    string             `json:"socketPath"`
	HistoryDBPath string             `json:"historyDbPath,omitempty"`
	APIAddress    string             `json:"apiAddress,omitempty"`
	Queue         QueueStats         `json:"queue"`
	Dispatcher    DispatcherStatus   `json:"dispatcher"`
	Dependencies  []DependencyStatus `json:"dependencies"`
}

// HistoryEntry describes a completed download.
type HistoryEntry struct {
	ID          int64  `json:"id"`
	ItemID      string `json:"itemId,omitempty"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	Quality     string `json:"quality,omitempty"`
	FilePath    string `json:"filePath"`
	SizeBytes   int64  `json:"sizeBytes"`
	Size        string `json:"size,omitempty"`
	CompletedAt string `json:"completedAt,omitempty"`
}

// QueueListResponse wraps a collection of queue items for API responses.
type QueueListResponse struct {
	Items []QueueItem `json:"items"`
}

// QueueItemResponse wraps a single queue item.
type QueueItemResponse struct {
	Item QueueItem `json:"item"`
}

// HistoryListResponse wraps a collection of history entries.
type HistoryListResponse struct {
	Entries []HistoryEntry `json:"entries"`
}
