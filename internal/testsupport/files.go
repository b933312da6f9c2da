package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// Segment returns deterministic payload bytes for segment index i.
func Segment(i, size int) []byte {
	buf := make([]byte, size)
	for j := range buf {
		buf[j] = byte('a' + (i+j)%26)
	}
	return buf
}

// ReadFile returns the contents of path, failing the test on error.
func ReadFile(t testing.TB, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return data
}

// AssertNoTempFiles fails when dir contains any entries.
func AssertNoTempFiles(t testing.TB, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		t.Fatalf("read dir %s: %v", dir, err)
	}
	if len(entries) > 0 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, filepath.Join(dir, e.Name()))
		}
		t.Fatalf("expected no leftover files, found %v", names)
	}
}
