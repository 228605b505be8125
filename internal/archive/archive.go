// Package archive reads export archives: ZIP files holding one or
// more conversation JSON documents plus the media they reference.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// conversationsFile is the well-known name of the conversation dump
// inside an export archive. It may sit at the root or under a folder.
const conversationsFile = "conversations.json"

// Archive wraps an opened export ZIP.
type Archive struct {
	path string
	zr   *zip.ReadCloser
}

// Open opens an export archive for reading.
func Open(path string) (*Archive, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	return &Archive{path: path, zr: zr}, nil
}

// Close releases the underlying ZIP reader.
func (a *Archive) Close() error {
	return a.zr.Close()
}

// Path returns the archive's location on disk.
func (a *Archive) Path() string {
	return a.path
}

// Conversations opens the conversation dump for streaming. The caller
// closes the returned reader.
func (a *Archive) Conversations() (io.ReadCloser, error) {
	for _, f := range a.zr.File {
		if path.Base(f.Name) == conversationsFile {
			rc, err := f.Open()
			if err != nil {
				return nil, fmt.Errorf("open %s: %w", f.Name, err)
			}
			return rc, nil
		}
	}
	return nil, fmt.Errorf("archive %s contains no %s", a.path, conversationsFile)
}

// mediaEntry reports whether a ZIP entry looks like an exported media
// asset. Assets are named after their pointer identifier, either at
// the archive root or under generated-image folders.
func mediaEntry(f *zip.File) bool {
	if f.FileInfo().IsDir() {
		return false
	}
	base := path.Base(f.Name)
	return strings.HasPrefix(base, "file-") || strings.HasPrefix(base, "file_")
}

// ExtractMedia writes every media asset into destDir and registers it
// with the resolver. Extraction failures are logged and skipped, a
// single unreadable asset must not sink the run.
func (a *Archive) ExtractMedia(destDir string, resolver *MediaResolver) (int, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return 0, fmt.Errorf("create media directory: %w", err)
	}

	extracted := 0
	for _, f := range a.zr.File {
		if !mediaEntry(f) {
			continue
		}

		base := path.Base(f.Name)
		dest := filepath.Join(destDir, base)
		if err := extractFile(f, dest); err != nil {
			slog.Warn("failed to extract media asset", "entry", f.Name, "error", err)
			continue
		}

		resolver.AddLocal(base, dest)
		extracted++
	}

	slog.Debug("media extraction complete", "archive", a.path, "extracted", extracted)
	return extracted, nil
}

func extractFile(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open entry: %w", err)
	}
	defer rc.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}
