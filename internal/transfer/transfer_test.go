package transfer_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/grafov/m3u8"

	"streamgrab/internal/config"
	"streamgrab/internal/media"
	"streamgrab/internal/services"
	"streamgrab/internal/testsupport"
	"streamgrab/internal/transfer"
)

type progressLog struct {
	mu      sync.Mutex
	reports []media.Progress
}

func (p *progressLog) record(pr media.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports = append(p.reports, pr)
}

func (p *progressLog) all() []media.Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]media.Progress(nil), p.reports...)
}

func (p *progressLog) assertMonotonic(t *testing.T, wantFinal100 bool) {
	t.Helper()
	reports := p.all()
	last := -1.0
	hundreds := 0
	for _, r := range reports {
		if r.Percent < last {
			t.Fatalf("progress went backwards: %v after %v", r.Percent, last)
		}
		if r.Percent == 100 {
			hundreds++
		}
		last = r.Percent
	}
	if wantFinal100 {
		if hundreds != 1 || last != 100 {
			t.Fatalf("expected exactly one final 100%% report, got %d (last %v)", hundreds, last)
		}
		return
	}
	if hundreds != 0 {
		t.Fatalf("expected no 100%% report on failure, got %d", hundreds)
	}
}

func newEngines(t *testing.T, cfg *config.Config) (*transfer.HLSEngine, *transfer.DirectEngine) {
	t.Helper()
	client := transfer.NewClient(transfer.ClientOptions{
		UserAgent:             cfg.Download.UserAgent,
		ResponseHeaderTimeout: 5 * time.Second,
	})
	return transfer.NewHLSEngine(client, cfg.Paths.TempDir, cfg.RemuxBinary(), nil), transfer.NewDirectEngine(client, nil)
}

func TestHLSEngineFollowsHighestBandwidthVariant(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	srv := testsupport.NewStreamServer(t, 5, 4096)
	hls, _ := newEngines(t, cfg)

	var progress progressLog
	referer := "https://pages.example/watch/42"
	out, err := hls.Download(context.Background(), transfer.Request{
		URL:        srv.URL + "/master.m3u8",
		OutputPath: filepath.Join(cfg.Paths.DownloadDir, "clip.ts"),
		Referer:    referer,
	}, progress.record)
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}

	if want := filepath.Join(cfg.Paths.DownloadDir, "clip.mp4"); out != want {
		t.Fatalf("unexpected output path %q, want %q", out, want)
	}
	if got := testsupport.ReadFile(t, out); !bytes.Equal(got, srv.Concatenated()) {
		t.Fatalf("assembled output does not match ordered segment concatenation (%d vs %d bytes)", len(got), len(srv.Concatenated()))
	}

	for _, path := range srv.Requests() {
		if strings.HasPrefix(path, "/lo/") || strings.HasPrefix(path, "/mid/") {
			t.Fatalf("lower bandwidth variant fetched: %s", path)
		}
	}
	if got := srv.Referer("/hi/seg3.ts"); got != referer {
		t.Fatalf("segment referer = %q, want %q", got, referer)
	}

	progress.assertMonotonic(t, true)
	reports := progress.all()
	if !strings.Contains(reports[0].Message, "segment 1/5") {
		t.Fatalf("unexpected first progress message %q", reports[0].Message)
	}
	testsupport.AssertNoTempFiles(t, cfg.Paths.TempDir)
}

func TestSelectVariantPrefersFirstOnTie(t *testing.T) {
	body := "#EXTM3U\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=800\na.m3u8\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=1500\nb.m3u8\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=1500\nc.m3u8\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=1000\nd.m3u8\n"
	playlist, listType, err := m3u8.DecodeFrom(strings.NewReader(body), false)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if listType != m3u8.MASTER {
		t.Fatalf("expected master playlist, got %v", listType)
	}
	variant := transfer.SelectVariant(playlist.(*m3u8.MasterPlaylist))
	if variant == nil || variant.URI != "b.m3u8" {
		t.Fatalf("expected first 1500 variant, got %+v", variant)
	}
	if transfer.SelectVariant(nil) != nil {
		t.Fatal("expected nil for nil master")
	}
}

func TestHLSEngineEmptyPlaylistIsNoSources(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	srv := testsupport.NewStreamServer(t, 1, 16)
	hls, _ := newEngines(t, cfg)

	_, err := hls.Download(context.Background(), transfer.Request{
		URL:        srv.URL + "/mid/index.m3u8",
		OutputPath: filepath.Join(cfg.Paths.DownloadDir, "empty"),
	}, nil)
	if !errors.Is(err, services.ErrNoSources) {
		t.Fatalf("expected no sources error, got %v", err)
	}
}

func TestHLSEngineSegmentFailureAborts(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	srv := testsupport.NewStreamServer(t, 1, 16)
	hls, _ := newEngines(t, cfg)

	var progress progressLog
	out := filepath.Join(cfg.Paths.DownloadDir, "broken")
	_, err := hls.Download(context.Background(), transfer.Request{URL: srv.URL + "/lo/index.m3u8", OutputPath: out}, progress.record)
	if !errors.Is(err, services.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if !strings.Contains(err.Error(), "segment 1/2") {
		t.Fatalf("expected failing segment in message, got %q", err.Error())
	}
	if len(progress.all()) != 0 {
		t.Fatalf("expected no progress before first segment, got %v", progress.all())
	}
	if _, statErr := os.Stat(out + ".mp4"); !os.IsNotExist(statErr) {
		t.Fatalf("expected no output file, stat err=%v", statErr)
	}
	testsupport.AssertNoTempFiles(t, cfg.Paths.TempDir)
}

func TestHLSEngineRejectsNonPlaylist(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html>not a playlist</html>")
	}))
	defer srv.Close()
	hls, _ := newEngines(t, cfg)

	_, err := hls.Download(context.Background(), transfer.Request{URL: srv.URL + "/index.m3u8", OutputPath: filepath.Join(cfg.Paths.DownloadDir, "x")}, nil)
	if !errors.Is(err, services.ErrParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestHLSEngineRejectsEncryptedPlaylist(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXT-X-TARGETDURATION:4\n#EXT-X-KEY:METHOD=AES-128,URI=\"key.bin\"\n#EXTINF:4.0,\nseg0.ts\n#EXT-X-ENDLIST\n")
	}))
	defer srv.Close()
	hls, _ := newEngines(t, cfg)

	_, err := hls.Download(context.Background(), transfer.Request{URL: srv.URL + "/index.m3u8", OutputPath: filepath.Join(cfg.Paths.DownloadDir, "x")}, nil)
	if !errors.Is(err, services.ErrDownloadFailed) {
		t.Fatalf("expected download failed error, got %v", err)
	}
}

func TestHLSEngineRemuxFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFailingRemux())
	srv := testsupport.NewStreamServer(t, 3, 128)
	hls, _ := newEngines(t, cfg)

	var progress progressLog
	_, err := hls.Download(context.Background(), transfer.Request{URL: srv.URL + "/hi/index.m3u8", OutputPath: filepath.Join(cfg.Paths.DownloadDir, "x")}, progress.record)
	if !errors.Is(err, services.ErrDownloadFailed) {
		t.Fatalf("expected download failed error, got %v", err)
	}
	if !strings.Contains(err.Error(), "stub failure") {
		t.Fatalf("expected remux stderr in error, got %q", err.Error())
	}
	progress.assertMonotonic(t, false)
	testsupport.AssertNoTempFiles(t, cfg.Paths.TempDir)
}

func TestHLSEngineMissingRemuxBinary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	srv := testsupport.NewStreamServer(t, 1, 128)
	client := transfer.NewClient(transfer.ClientOptions{})
	hls := transfer.NewHLSEngine(client, cfg.Paths.TempDir, "streamgrab-no-such-ffmpeg", nil)

	_, err := hls.Download(context.Background(), transfer.Request{URL: srv.URL + "/hi/index.m3u8", OutputPath: filepath.Join(cfg.Paths.DownloadDir, "x")}, nil)
	if !errors.Is(err, services.ErrDownloadFailed) {
		t.Fatalf("expected download failed error, got %v", err)
	}
}

func TestHLSEngineCancellationStopsSegmentFetch(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	srv := testsupport.NewStreamServer(t, 3, 128)
	release := srv.BlockSegments()
	defer release()
	hls, _ := newEngines(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := hls.Download(ctx, transfer.Request{URL: srv.URL + "/hi/index.m3u8", OutputPath: filepath.Join(cfg.Paths.DownloadDir, "x")}, nil)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if services.KindOf(err) != services.KindCancelled {
			t.Fatalf("expected cancelled kind, got %v (%v)", services.KindOf(err), err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("download did not stop after cancellation")
	}
	testsupport.AssertNoTempFiles(t, cfg.Paths.TempDir)
}

func TestDirectEngineReportsProgressWithKnownLength(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	srv := testsupport.NewStreamServer(t, 0, 0)
	_, direct := newEngines(t, cfg)

	var progress progressLog
	out, err := direct.Download(context.Background(), transfer.Request{
		URL:        srv.URL + "/file.mp4",
		OutputPath: filepath.Join(cfg.Paths.DownloadDir, "nested", "movie.webm"),
		Referer:    "https://pages.example/",
	}, progress.record)
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if filepath.Ext(out) != ".mp4" || filepath.Base(out) != "movie.mp4" {
		t.Fatalf("expected fixed mp4 extension, got %q", out)
	}
	if !bytes.Equal(testsupport.ReadFile(t, out), srv.Direct) {
		t.Fatal("downloaded body mismatch")
	}
	entries, err := os.ReadDir(filepath.Dir(out))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "movie.mp4" {
		t.Fatalf("expected only movie.mp4 in output dir, got %v", entries)
	}
	if srv.Referer("/file.mp4") != "https://pages.example/" {
		t.Fatalf("referer not forwarded: %q", srv.Referer("/file.mp4"))
	}
	reports := progress.all()
	if len(reports) < 2 {
		t.Fatalf("expected several progress reports, got %d", len(reports))
	}
	if reports[len(reports)-1].Total != int64(len(srv.Direct)) {
		t.Fatalf("unexpected total %d", reports[len(reports)-1].Total)
	}
	progress.assertMonotonic(t, true)
}

func TestDirectEngineKeepsExistingOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	srv := testsupport.NewStreamServer(t, 0, 0)
	_, direct := newEngines(t, cfg)

	existing := filepath.Join(cfg.Paths.DownloadDir, "movie.mp4")
	if err := os.MkdirAll(cfg.Paths.DownloadDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(existing, []byte("keep"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	out, err := direct.Download(context.Background(), transfer.Request{
		URL:        srv.URL + "/file.mp4",
		OutputPath: existing,
	}, nil)
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if filepath.Base(out) != "movie (2).mp4" {
		t.Fatalf("expected suffixed name, got %q", out)
	}
	if string(testsupport.ReadFile(t, existing)) != "keep" {
		t.Fatal("existing output was replaced")
	}
	if !bytes.Equal(testsupport.ReadFile(t, out), srv.Direct) {
		t.Fatal("downloaded body mismatch")
	}
}

func TestDirectEngineSkipsProgressWithoutLength(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	srv := testsupport.NewStreamServer(t, 0, 0)
	_, direct := newEngines(t, cfg)

	var progress progressLog
	out, err := direct.Download(context.Background(), transfer.Request{
		URL:        srv.URL + "/stream.mp4",
		OutputPath: filepath.Join(cfg.Paths.DownloadDir, "stream"),
	}, progress.record)
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if !bytes.Equal(testsupport.ReadFile(t, out), srv.Direct) {
		t.Fatal("downloaded body mismatch")
	}
	if n := len(progress.all()); n != 0 {
		t.Fatalf("expected no fabricated progress, got %d reports", n)
	}
}

func TestDirectEngineHTTPErrorIsNetwork(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	srv := testsupport.NewStreamServer(t, 0, 0)
	_, direct := newEngines(t, cfg)

	out := filepath.Join(cfg.Paths.DownloadDir, "missing")
	_, err := direct.Download(context.Background(), transfer.Request{URL: srv.URL + "/nope.mp4", OutputPath: out}, nil)
	if !errors.Is(err, services.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected status in message, got %q", err.Error())
	}
	entries, _ := os.ReadDir(cfg.Paths.DownloadDir)
	if len(entries) != 0 {
		t.Fatalf("expected no files after failure, found %d", len(entries))
	}
}

func TestClientSendsConfiguredHeaders(t *testing.T) {
	var gotUA, gotReferer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	client := transfer.NewClient(transfer.ClientOptions{UserAgent: "streamgrab-test/1.0", RequestsPerSecond: 100})
	body, err := client.Fetch(context.Background(), srv.URL, "https://ref.example/", 1024)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if string(body) != "ok" {
		t.Fatalf("unexpected body %q", body)
	}
	if gotUA != "streamgrab-test/1.0" || gotReferer != "https://ref.example/" {
		t.Fatalf("unexpected headers ua=%q referer=%q", gotUA, gotReferer)
	}
}
