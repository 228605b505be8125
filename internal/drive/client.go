// Package drive wraps the Google Drive v3 API for uploading rendered
// conversation documents and their media. The API and sign-in flow
// come from the official SDKs; this package only adds folder
// bookkeeping and a linear-back-off retry around transient errors.
package drive

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	folderMimeType = "application/vnd.google-apps.folder"
	docMimeType    = "application/vnd.google-apps.document"
)

// Client is a thin wrapper around the Drive service.
type Client struct {
	svc *gdrive.Service
}

// NewClient builds a Drive client from an OAuth token source.
func NewClient(ctx context.Context, ts oauth2.TokenSource) (*Client, error) {
	svc, err := gdrive.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// EnsureFolder returns the ID of a folder with the given name at the
// Drive root, creating it when absent.
func (c *Client) EnsureFolder(ctx context.Context, name string) (string, error) {
	query := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escapeQuery(name), folderMimeType)

	var list *gdrive.FileList
	err := withRetry(ctx, "list folders", func() error {
		var err error
		list, err = c.svc.Files.List().Q(query).Fields("files(id)").PageSize(1).Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", err
	}
	if len(list.Files) > 0 {
		return list.Files[0].Id, nil
	}

	var created *gdrive.File
	err = withRetry(ctx, "create folder", func() error {
		var err error
		created, err = c.svc.Files.Create(&gdrive.File{
			Name:     name,
			MimeType: folderMimeType,
		}).Fields("id").Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", err
	}

	slog.Info("created drive folder", "name", name, "id", created.Id)
	return created.Id, nil
}

// UploadDocument uploads rendered HTML into the folder. With convert
// set, Drive turns it into a native Google Doc.
func (c *Client) UploadDocument(ctx context.Context, folderID, name string, html []byte, convert bool) (string, error) {
	meta := &gdrive.File{
		Name:    name,
		Parents: []string{folderID},
	}
	if convert {
		meta.MimeType = docMimeType
	}

	var created *gdrive.File
	err := withRetry(ctx, "upload document", func() error {
		var err error
		created, err = c.svc.Files.Create(meta).
			Media(bytes.NewReader(html)).
			Fields("id").
			Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", err
	}
	return created.Id, nil
}

// UploadMedia uploads one extracted asset and returns its file ID.
func (c *Client) UploadMedia(ctx context.Context, folderID, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open media file: %w", err)
	}
	defer f.Close()

	meta := &gdrive.File{
		Name:     filepath.Base(localPath),
		Parents:  []string{folderID},
		MimeType: mediaMimeType(localPath),
	}

	var created *gdrive.File
	err = withRetry(ctx, "upload media", func() error {
		if _, serr := f.Seek(0, 0); serr != nil {
			return serr
		}
		var err error
		created, err = c.svc.Files.Create(meta).
			Media(f).
			Fields("id").
			Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", err
	}
	return created.Id, nil
}

// FileURL builds a directly viewable link for an uploaded file.
func FileURL(id string) string {
	return "https://drive.google.com/uc?id=" + id
}

func mediaMimeType(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// escapeQuery escapes single quotes for Drive query strings.
func escapeQuery(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' || s[i] == '\\' {
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
