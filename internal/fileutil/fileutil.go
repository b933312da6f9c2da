package fileutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"unicode"
)

// CopyFile streams src to dst using io.Copy with default permissions (0o644).
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// MoveFile renames src to dst, falling back to copy+remove when the two paths
// live on different filesystems. A failure to remove src after a successful
// copy is ignored.
func MoveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return err
	}
	if err := CopyFile(src, dst); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("copy across devices: %w", err)
	}
	_ = os.Remove(src)
	return nil
}

// WithExtension replaces the extension of path with ext (which should include
// the leading dot), appending it when path has none. Only short alphanumeric
// suffixes count as extensions so titles such as "Part 1.5 Recap" survive.
func WithExtension(path, ext string) string {
	base := filepath.Base(path)
	if current := filepath.Ext(base); current != base && isExtension(current) {
		path = strings.TrimSuffix(path, current)
	}
	return path + ext
}

func isExtension(ext string) bool {
	if len(ext) < 2 || len(ext) > 6 {
		return false
	}
	for _, r := range ext[1:] {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// DefaultFilename is used when a title sanitizes to nothing.
const DefaultFilename = "video"

const maxFilenameLength = 200

// SanitizeFilename reduces name to a single safe path component: separators,
// control characters and characters reserved on common filesystems become
// underscores, surrounding dots and spaces are trimmed, and an empty result
// yields DefaultFilename.
func SanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case unicode.IsControl(r):
			continue
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	cleaned := strings.Trim(strings.TrimSpace(b.String()), ". ")
	if len(cleaned) > maxFilenameLength {
		cleaned = strings.TrimSpace(truncateRunes(cleaned, maxFilenameLength))
	}
	if cleaned == "" || cleaned == "." || cleaned == ".." {
		return DefaultFilename
	}
	return cleaned
}

func truncateRunes(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	cut := 0
	for i := range value {
		if i > limit {
			break
		}
		cut = i
	}
	return value[:cut]
}

// maxPlaceAttempts bounds the " (n)" suffixes PlaceFile tries.
const maxPlaceAttempts = 1000

// PlaceFile moves src to dst, or to the first free "<stem> (n)<ext>" variant
// when dst is taken, and returns the path used. Each candidate is claimed with
// an exclusive create before the move, so concurrent callers never land on the
// same name and an existing file is never replaced.
func PlaceFile(src, dst string) (string, error) {
	ext := filepath.Ext(dst)
	stem := strings.TrimSuffix(dst, ext)
	for n := 1; n <= maxPlaceAttempts; n++ {
		candidate := dst
		if n > 1 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, n, ext)
		}
		claim, err := os.OpenFile(candidate, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		_ = claim.Close()
		if err := MoveFile(src, candidate); err != nil {
			_ = os.Remove(candidate)
			return "", err
		}
		return candidate, nil
	}
	return "", fmt.Errorf("no free name for %s after %d attempts", dst, maxPlaceAttempts)
}
