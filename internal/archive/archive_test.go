package archive

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chatexport/chatexport/internal/models"
)

// writeTestArchive builds a minimal export ZIP on disk.
func writeTestArchive(t *testing.T, entries map[string]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "export.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return path
}

func TestArchiveConversations(t *testing.T) {
	tests := []struct {
		name    string
		entries map[string]string
		wantErr bool
	}{
		{
			name:    "at root",
			entries: map[string]string{"conversations.json": "[]"},
		},
		{
			name:    "nested under folder",
			entries: map[string]string{"export-2024/conversations.json": "[]"},
		},
		{
			name:    "missing",
			entries: map[string]string{"user.json": "{}"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Open(writeTestArchive(t, tt.entries))
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer a.Close()

			rc, err := a.Conversations()
			if tt.wantErr {
				if err == nil {
					rc.Close()
					t.Error("Conversations() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Conversations() error = %v", err)
			}
			defer rc.Close()

			data, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if string(data) != "[]" {
				t.Errorf("content = %q, want []", data)
			}
		})
	}
}

func TestExtractMedia(t *testing.T) {
	a, err := Open(writeTestArchive(t, map[string]string{
		"conversations.json":                    "[]",
		"file-AbCdEf123-diagram.png":            "png-bytes",
		"dalle-generations/file-XyZ987-gen.png": "dalle-bytes",
		"chat.html":                             "<html></html>",
	}))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer a.Close()

	dest := t.TempDir()
	resolver := NewMediaResolver()
	n, err := a.ExtractMedia(dest, resolver)
	if err != nil {
		t.Fatalf("ExtractMedia() error = %v", err)
	}
	if n != 2 {
		t.Errorf("extracted %d assets, want 2", n)
	}
	for _, pointer := range []string{"file-service://file-AbCdEf123", "sediment://file-XyZ987"} {
		ref := &models.MediaReference{Pointer: pointer}
		if !resolver.Resolve(ref) {
			t.Errorf("extracted asset %s not resolvable", pointer)
		}
	}

	// chat.html must not be treated as media
	if _, err := os.Stat(filepath.Join(dest, "chat.html")); !os.IsNotExist(err) {
		t.Error("chat.html was extracted as media")
	}

	data, err := os.ReadFile(filepath.Join(dest, "file-AbCdEf123-diagram.png"))
	if err != nil {
		t.Fatalf("read extracted asset: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("asset content = %q", data)
	}
}

func TestAssetID(t *testing.T) {
	tests := []struct {
		pointer string
		want    string
	}{
		{"file-service://file-AbCdEf123", "file-AbCdEf123"},
		{"sediment://file_00000001", "file_00000001"},
		{"file-NoScheme", "file-NoScheme"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := AssetID(tt.pointer); got != tt.want {
			t.Errorf("AssetID(%q) = %q, want %q", tt.pointer, got, tt.want)
		}
	}
}

func TestMediaResolver(t *testing.T) {
	r := NewMediaResolver()
	r.AddLocal("file-AbCdEf123-diagram.png", "/tmp/media/file-AbCdEf123-diagram.png")
	r.SetRemote("file-Remote999", "drive-id-42")

	tests := []struct {
		name       string
		ref        *models.MediaReference
		wantLocal  string
		wantRemote string
		wantOK     bool
	}{
		{
			name:      "prefix match on extracted file",
			ref:       &models.MediaReference{Pointer: "file-service://file-AbCdEf123"},
			wantLocal: "/tmp/media/file-AbCdEf123-diagram.png",
			wantOK:    true,
		},
		{
			name:       "remote copy",
			ref:        &models.MediaReference{Pointer: "file-service://file-Remote999"},
			wantRemote: "drive-id-42",
			wantOK:     true,
		},
		{
			name:   "no match",
			ref:    &models.MediaReference{Pointer: "file-service://file-Missing"},
			wantOK: false,
		},
		{
			name:   "empty pointer",
			ref:    &models.MediaReference{},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok := r.Resolve(tt.ref)
			if ok != tt.wantOK {
				t.Errorf("Resolve() = %v, want %v", ok, tt.wantOK)
			}
			if tt.ref.LocalPath != tt.wantLocal {
				t.Errorf("LocalPath = %q, want %q", tt.ref.LocalPath, tt.wantLocal)
			}
			if tt.ref.RemoteID != tt.wantRemote {
				t.Errorf("RemoteID = %q, want %q", tt.ref.RemoteID, tt.wantRemote)
			}
		})
	}
}

func TestMediaResolverClaimRemote(t *testing.T) {
	r := NewMediaResolver()

	// Many claimants racing for the same asset: exactly one wins, the
	// rest block until SetRemote and read the winner's ID.
	const claimants = 8
	var (
		wg     sync.WaitGroup
		won    atomic.Int32
		reused atomic.Int32
	)
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, claimed := r.ClaimRemote("file-Shared")
			if claimed {
				won.Add(1)
				time.Sleep(10 * time.Millisecond)
				r.SetRemote("file-Shared", "drive-shared")
				return
			}
			if id == "drive-shared" {
				reused.Add(1)
			}
		}()
	}
	wg.Wait()

	if won.Load() != 1 {
		t.Errorf("claims won = %d, want 1", won.Load())
	}
	if reused.Load() != claimants-1 {
		t.Errorf("claimants reusing the ID = %d, want %d", reused.Load(), claimants-1)
	}
}

func TestMediaResolverReleaseRemote(t *testing.T) {
	r := NewMediaResolver()

	if _, claimed := r.ClaimRemote("file-X"); !claimed {
		t.Fatal("first claim should win")
	}
	r.ReleaseRemote("file-X")

	// A released claim leaves no recorded copy; the next claimant
	// takes over the upload.
	if _, claimed := r.ClaimRemote("file-X"); !claimed {
		t.Error("claim after release should win again")
	}
}
