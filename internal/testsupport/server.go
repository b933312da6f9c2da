package testsupport

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// StreamServer serves a master playlist, a media playlist, its segments, and
// a direct file for engine and end-to-end tests.
//
// Routes:
//
//	/master.m3u8       master playlist with three variants (500, 1500, 1000)
//	/hi/index.m3u8     media playlist listing Segments
//	/lo/index.m3u8     media playlist that 404s every segment
//	/mid/index.m3u8    media playlist with no segments
//	/hi/seg<i>.ts      segment bodies
//	/file.mp4          Direct body with Content-Length
//	/stream.mp4        Direct body without Content-Length
//	/page.html         HTML page pointing at the master playlist and file
//	/embed.html        wrapper page whose only content is an iframe of /page.html
//	/empty.html        HTML page without any media
type StreamServer struct {
	*httptest.Server

	Segments [][]byte
	Direct   []byte

	mu       sync.Mutex
	requests []string
	referers map[string]string
	block    chan struct{}
}

// NewStreamServer starts a fixture server that is closed on test cleanup.
func NewStreamServer(t testing.TB, segmentCount, segmentSize int) *StreamServer {
	t.Helper()
	s := &StreamServer{referers: make(map[string]string)}
	for i := 0; i < segmentCount; i++ {
		s.Segments = append(s.Segments, Segment(i, segmentSize))
	}
	s.Direct = Segment(7, 100<<10)
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// BlockSegments makes every segment response wait until the returned release
// function is called or the request is cancelled.
func (s *StreamServer) BlockSegments() (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.block = ch
	s.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// Requests returns the request paths seen so far.
func (s *StreamServer) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Referer returns the Referer header sent with the last request to path.
func (s *StreamServer) Referer(path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.referers[path]
}

// Concatenated returns every segment body joined in playlist order.
func (s *StreamServer) Concatenated() []byte {
	var out []byte
	for _, seg := range s.Segments {
		out = append(out, seg...)
	}
	return out
}

func (s *StreamServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r.URL.Path)
	s.referers[r.URL.Path] = r.Header.Get("Referer")
	block := s.block
	s.mu.Unlock()

	switch {
	case r.URL.Path == "/master.m3u8":
		fmt.Fprint(w, "#EXTM3U\n"+
			"#EXT-X-STREAM-INF:BANDWIDTH=500,RESOLUTION=640x360\nlo/index.m3u8\n"+
			"#EXT-X-STREAM-INF:BANDWIDTH=1500,RESOLUTION=1920x1080\nhi/index.m3u8\n"+
			"#EXT-X-STREAM-INF:BANDWIDTH=1000,RESOLUTION=1280x720\nmid/index.m3u8\n")
	case r.URL.Path == "/hi/index.m3u8":
		fmt.Fprint(w, mediaPlaylist(len(s.Segments), "seg%d.ts"))
	case r.URL.Path == "/lo/index.m3u8":
		fmt.Fprint(w, mediaPlaylist(2, "missing%d.ts"))
	case r.URL.Path == "/mid/index.m3u8":
		fmt.Fprint(w, "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:4\n#EXT-X-ENDLIST\n")
	case strings.HasPrefix(r.URL.Path, "/hi/seg"):
		if block != nil {
			select {
			case <-block:
			case <-r.Context().Done():
				return
			}
		}
		idx, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/hi/seg"), ".ts"))
		if err != nil || idx < 0 || idx >= len(s.Segments) {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(s.Segments[idx])
	case r.URL.Path == "/file.mp4":
		w.Header().Set("Content-Length", strconv.Itoa(len(s.Direct)))
		_, _ = w.Write(s.Direct)
	case r.URL.Path == "/stream.mp4":
		flusher, _ := w.(http.Flusher)
		for off := 0; off < len(s.Direct); off += 16 << 10 {
			end := min(off+16<<10, len(s.Direct))
			_, _ = w.Write(s.Direct[off:end])
			if flusher != nil {
				flusher.Flush()
			}
		}
	case r.URL.Path == "/page.html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<!doctype html><html><head>
<title>Fixture Clip | Example</title>
<meta property="og:title" content="Fixture Clip">
<meta property="og:image" content="/thumb.jpg">
</head><body>
<video poster="/poster.jpg"><source src="/file.mp4" type="video/mp4"></video>
<script>var player = {"hls": "%s/master.m3u8", "ad": "https://ads.example/adSrc/promo.mp4"};</script>
</body></html>`, s.URL)
	case r.URL.Path == "/embed.html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<!doctype html><html><head><title>Embed Wrapper</title></head>
<body><iframe src="https://ads.example/ad/frame.html"></iframe><iframe src="/page.html"></iframe></body></html>`)
	case r.URL.Path == "/empty.html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<!doctype html><html><head><title>Nothing Here</title></head><body><p>no video</p></body></html>`)
	default:
		http.NotFound(w, r)
	}
}

func mediaPlaylist(count int, pattern string) string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:4\n#EXT-X-MEDIA-SEQUENCE:0\n")
	for i := 0; i < count; i++ {
		b.WriteString("#EXTINF:4.0,\n")
		b.WriteString(fmt.Sprintf(pattern, i))
		b.WriteByte('\n')
	}
	b.WriteString("#EXT-X-ENDLIST\n")
	return b.String()
}
