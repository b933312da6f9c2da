package downloader_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"streamgrab/internal/downloader"
	"streamgrab/internal/media"
	"streamgrab/internal/queue"
	"streamgrab/internal/services"
	"streamgrab/internal/testsupport"
)

func TestRunResolvesPageAndPicksFirstSourceForBest(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	srv := testsupport.NewStreamServer(t, 3, 512)
	d := downloader.NewFromConfig(cfg, nil)

	pageURL := srv.URL + "/page.html"
	path, err := d.Run(context.Background(), queue.Item{ID: "job-1", URL: pageURL, Quality: "best"}, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if want := filepath.Join(cfg.Paths.DownloadDir, "Fixture Clip.mp4"); path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}
	if got := testsupport.ReadFile(t, path); !bytes.Equal(got, srv.Direct) {
		t.Fatalf("direct download content mismatch (%d bytes)", len(got))
	}
	if got := srv.Referer("/file.mp4"); got != pageURL {
		t.Fatalf("expected page referer, got %q", got)
	}
}

func TestRunSelectsRequestedQualityFromSources(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	srv := testsupport.NewStreamServer(t, 4, 256)
	d := downloader.NewFromConfig(cfg, nil)
	outDir := filepath.Join(testsupport.BaseDir(cfg), "custom")

	item := queue.Item{
		ID:        "job-2",
		URL:       srv.URL + "/page.html",
		Title:     "My Show: Pilot",
		Quality:   "720p",
		OutputDir: outDir,
		Sources: []media.VideoSource{
			{URL: srv.URL + "/file.mp4", Quality: "1080p", Type: media.SourceDirect},
			{URL: srv.URL + "/master.m3u8", Quality: "720p", Type: media.SourceHLS},
		},
	}
	path, err := d.Run(context.Background(), item, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if want := filepath.Join(outDir, "My Show_ Pilot.mp4"); path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}
	if got := testsupport.ReadFile(t, path); !bytes.Equal(got, srv.Concatenated()) {
		t.Fatal("expected the HLS source to be downloaded")
	}
	for _, req := range srv.Requests() {
		if req == "/page.html" || req == "/file.mp4" {
			t.Fatalf("unexpected request %s with pre-resolved sources", req)
		}
	}
}

func TestRunNeverOverwritesExistingFile(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	srv := testsupport.NewStreamServer(t, 1, 64)
	d := downloader.NewFromConfig(cfg, nil)

	existing := filepath.Join(cfg.Paths.DownloadDir, "clip.mp4")
	if err := os.WriteFile(existing, []byte("keep"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	item := queue.Item{
		ID:             "job-3",
		URL:            srv.URL + "/file.mp4",
		OutputFilename: "clip",
		Sources:        []media.VideoSource{{URL: srv.URL + "/file.mp4", Type: media.SourceDirect}},
	}
	path, err := d.Run(context.Background(), item, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if want := filepath.Join(cfg.Paths.DownloadDir, "clip (2).mp4"); path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}
	if got := testsupport.ReadFile(t, existing); string(got) != "keep" {
		t.Fatal("existing file was overwritten")
	}
	if srv.Referer("/file.mp4") != "" {
		t.Fatal("media URL should not be sent as its own referer")
	}
}

func TestConcurrentSameTitleJobsGetDistinctFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	srv := testsupport.NewStreamServer(t, 3, 128)
	release := srv.BlockSegments()
	d := downloader.NewFromConfig(cfg, nil)

	var wg sync.WaitGroup
	paths := make([]string, 2)
	errs := make([]error, 2)
	for i := range paths {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			item := queue.Item{
				ID:      "same-" + string(rune('a'+i)),
				URL:     srv.URL + "/hi/index.m3u8",
				Title:   "Same Title",
				Sources: []media.VideoSource{{URL: srv.URL + "/hi/index.m3u8", Type: media.SourceHLS}},
			}
			paths[i], errs[i] = d.Run(context.Background(), item, nil)
		}(i)
	}

	// Hold segments until both jobs have read the playlist.
	deadline := time.Now().Add(5 * time.Second)
	for countRequests(srv, "/hi/index.m3u8") < 2 {
		if time.Now().After(deadline) {
			release()
			t.Fatal("jobs did not start")
		}
		time.Sleep(10 * time.Millisecond)
	}
	release()
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("job %d failed: %v", i, err)
		}
	}
	got := append([]string(nil), paths...)
	sort.Strings(got)
	want := []string{
		filepath.Join(cfg.Paths.DownloadDir, "Same Title (2).mp4"),
		filepath.Join(cfg.Paths.DownloadDir, "Same Title.mp4"),
	}
	if got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("paths = %v, want %v", got, want)
	}
	for _, path := range got {
		if !bytes.Equal(testsupport.ReadFile(t, path), srv.Concatenated()) {
			t.Fatalf("content mismatch in %s", path)
		}
	}
}

func countRequests(srv *testsupport.StreamServer, path string) int {
	n := 0
	for _, req := range srv.Requests() {
		if req == path {
			n++
		}
	}
	return n
}

func TestRunDownloadsMediaURLWithoutResolving(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	srv := testsupport.NewStreamServer(t, 1, 64)
	d := downloader.NewFromConfig(cfg, nil)

	path, err := d.Run(context.Background(), queue.Item{ID: "job-5", URL: srv.URL + "/file.mp4"}, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if want := filepath.Join(cfg.Paths.DownloadDir, "File.mp4"); path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}
	if got := testsupport.ReadFile(t, path); !bytes.Equal(got, srv.Direct) {
		t.Fatalf("direct download content mismatch (%d bytes)", len(got))
	}
	if got := srv.Referer("/file.mp4"); got != "" {
		t.Fatalf("expected no referer for a bare media URL, got %q", got)
	}
}

func TestRunPageWithoutMediaIsNoSources(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	srv := testsupport.NewStreamServer(t, 1, 64)
	d := downloader.NewFromConfig(cfg, nil)

	_, err := d.Run(context.Background(), queue.Item{ID: "job-4", URL: srv.URL + "/empty.html"}, nil)
	if got := services.KindOf(err); got != services.KindNoSources {
		t.Fatalf("kind = %s, want no_sources (%v)", got, err)
	}
}

func TestOutputPathFallsBackToVideo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := downloader.NewFromConfig(cfg, nil)

	got, err := d.OutputPath(queue.Item{}, " ... ")
	if err != nil {
		t.Fatalf("OutputPath failed: %v", err)
	}
	if want := filepath.Join(cfg.Paths.DownloadDir, "video.mp4"); got != want {
		t.Fatalf("OutputPath = %q, want %q", got, want)
	}
}
