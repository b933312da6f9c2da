package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"streamgrab/internal/config"
	"streamgrab/internal/notifications"
	"streamgrab/internal/queue"
)

type capturedRequest struct {
	title    string
	tags     string
	priority string
	body     string
}

type ntfyRecorder struct {
	mu       sync.Mutex
	requests []capturedRequest
}

func (r *ntfyRecorder) handler(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	r.requests = append(r.requests, capturedRequest{
		title:    req.Header.Get("Title"),
		tags:     req.Header.Get("Tags"),
		priority: req.Header.Get("Priority"),
		body:     string(body),
	})
	r.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (r *ntfyRecorder) all() []capturedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]capturedRequest(nil), r.requests...)
}

func newNtfy(t *testing.T) (*ntfyRecorder, *config.Config) {
	t.Helper()
	rec := &ntfyRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	t.Cleanup(srv.Close)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL + "/streamgrab"
	return rec, &cfg
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyDownloadCompleted(context.Background(), "Clip", "/d/clip.mp4"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	rec, cfg := newNtfy(t)
	svc := notifications.NewService(cfg)
	ctx := context.Background()

	if err := svc.NotifyDownloadCompleted(ctx, " Clip ", "/d/clip.mp4"); err != nil {
		t.Fatalf("completed: %v", err)
	}
	if err := svc.NotifyDownloadFailed(ctx, "Clip", "network error: boom"); err != nil {
		t.Fatalf("failed: %v", err)
	}

	tests := []struct {
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			expectTitle:   "streamgrab - Download Complete",
			expectMessage: "✅ Downloaded: Clip\nFile: /d/clip.mp4",
			expectTags:    "streamgrab,download,completed",
		},
		{
			expectTitle:    "streamgrab - Download Failed",
			expectMessage:  "❌ Download failed: Clip\nnetwork error: boom",
			expectTags:     "streamgrab,download,failed",
			expectPriority: "high",
		},
	}
	got := rec.all()
	if len(got) != len(tests) {
		t.Fatalf("expected %d requests, got %d", len(tests), len(got))
	}
	for i, tc := range tests {
		if got[i].title != tc.expectTitle || got[i].body != tc.expectMessage ||
			got[i].tags != tc.expectTags || got[i].priority != tc.expectPriority {
			t.Fatalf("request %d = %+v, want %+v", i, got[i], tc)
		}
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "topic disabled", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL

	if err := notifications.NewService(&cfg).TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for 403 response")
	}
}

type staticItems map[string]queue.Item

func (s staticItems) Get(id string) (queue.Item, error) {
	item, ok := s[id]
	if !ok {
		return queue.Item{}, queue.ErrNotFound
	}
	return item, nil
}

func TestSinkHonoursToggles(t *testing.T) {
	rec, cfg := newNtfy(t)
	cfg.Notifications.Completed = true
	cfg.Notifications.Failed = false
	items := staticItems{"a": {ID: "a", Title: "Clip A"}}
	sink := notifications.NewSink(cfg, notifications.NewService(cfg), items)

	events := []queue.Event{
		{ID: "a", Status: queue.StatusDownloading, Progress: 40},
		{ID: "a", Status: queue.StatusFailed, Message: "boom"},
		{ID: "a", Status: queue.StatusCompleted, Progress: 100, FilePath: "/d/a.mp4"},
	}
	for _, ev := range events {
		if err := sink.Emit(ev); err != nil {
			t.Fatalf("Emit(%s) failed: %v", ev.Status, err)
		}
	}
	got := rec.all()
	if len(got) != 1 {
		t.Fatalf("expected one notification, got %d", len(got))
	}
	if got[0].body != "✅ Downloaded: Clip A\nFile: /d/a.mp4" {
		t.Fatalf("unexpected body %q", got[0].body)
	}
}
