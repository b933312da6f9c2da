package history_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"streamgrab/internal/history"
	"streamgrab/internal/media"
	"streamgrab/internal/queue"
	"streamgrab/internal/testsupport"
)

func openStore(t *testing.T, maxEntries int) *history.Store {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.History.MaxEntries = maxEntries
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAddListsNewestFirstAndPrunes(t *testing.T) {
	store := openStore(t, 3)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		_, err := store.Add(ctx, history.Entry{
			URL:         "https://example.com/" + strconv.Itoa(i),
			Title:       "Clip " + strconv.Itoa(i),
			FilePath:    "/downloads/clip" + strconv.Itoa(i) + ".mp4",
			CompletedAt: base.Add(time.Duration(i) * 500 * time.Millisecond),
		})
		if err != nil {
			t.Fatalf("Add %d failed: %v", i, err)
		}
	}

	entries, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries after pruning, got %d", len(entries))
	}
	for i, want := range []string{"Clip 4", "Clip 3", "Clip 2"} {
		if entries[i].Title != want {
			t.Fatalf("entry %d = %q, want %q", i, entries[i].Title, want)
		}
	}
	if !entries[0].CompletedAt.Equal(base.Add(2 * time.Second)) {
		t.Fatalf("completed_at not preserved: %v", entries[0].CompletedAt)
	}

	limited, err := store.List(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("List(1) = %d entries, %v", len(limited), err)
	}
}

func TestDeleteAndClear(t *testing.T) {
	store := openStore(t, 10)
	ctx := context.Background()

	first, err := store.Add(ctx, history.Entry{URL: "https://example.com/a", FilePath: "/d/a.mp4"})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, err := store.Add(ctx, history.Entry{URL: "https://example.com/b", FilePath: "/d/b.mp4"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := store.Delete(ctx, first.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, first.ID); !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.Get(ctx, first.ID); !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from Get, got %v", err)
	}

	removed, err := store.Clear(ctx)
	if err != nil || removed != 1 {
		t.Fatalf("Clear = %d, %v", removed, err)
	}
	if count, _ := store.Count(ctx); count != 0 {
		t.Fatalf("expected empty history, got %d", count)
	}
}

func TestAddValidatesRequiredFields(t *testing.T) {
	store := openStore(t, 10)
	if _, err := store.Add(context.Background(), history.Entry{FilePath: "/d/a.mp4"}); err == nil {
		t.Fatal("expected error for missing url")
	}
	if _, err := store.Add(context.Background(), history.Entry{URL: "https://example.com"}); err == nil {
		t.Fatal("expected error for missing file path")
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := store.Add(context.Background(), history.Entry{URL: "https://example.com", FilePath: "/d/x.mp4"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	_ = store.Close()

	reopened, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	if count, _ := reopened.Count(context.Background()); count != 1 {
		t.Fatalf("expected 1 entry after reopen, got %d", count)
	}
}

func TestRecorderStoresCompletedItems(t *testing.T) {
	store := openStore(t, 10)
	file := filepath.Join(t.TempDir(), "Clip.mp4")
	if err := os.WriteFile(file, make([]byte, 2048), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	runner := queue.RunnerFunc(func(context.Context, queue.Item, media.ProgressFunc) (string, error) {
		return file, nil
	})
	orchestrator := queue.New(runner, queue.Options{})
	orchestrator.Subscribe(history.NewRecorder(store, orchestrator, nil))

	id := orchestrator.Enqueue(queue.Metadata{URL: "https://example.com/watch", Title: "Clip", Quality: "720p"})
	if err := orchestrator.Start(id); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	orchestrator.Wait()

	entries, err := store.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	got := entries[0]
	if got.ItemID != id || got.Title != "Clip" || got.FilePath != file || got.SizeBytes != 2048 || got.Quality != "720p" {
		t.Fatalf("unexpected entry %+v", got)
	}
}
