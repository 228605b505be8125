// Package render serializes resolved message threads into styled HTML
// documents or Markdown text.
package render

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"path/filepath"
	"strings"
	"time"

	"github.com/chatexport/chatexport/internal/models"
)

//go:embed templates/conversation.html.tmpl
var htmlTemplate string

//go:embed templates/style.css
var styleCSS string

var conversationTmpl = template.Must(template.New("conversation").Parse(htmlTemplate))

// Options controls how media references turn into URLs.
type Options struct {
	// MediaBase prefixes local asset file names, e.g. "media".
	MediaBase string
	// RemoteURL builds a link for an already-uploaded asset. Nil means
	// remote IDs are ignored and only local files are linked.
	RemoteURL func(remoteID string) string
}

type htmlDoc struct {
	Title    string
	Created  string
	Style    template.CSS
	Messages []htmlMessage
}

type htmlMessage struct {
	RoleLabel string
	RoleClass string
	Parts     []htmlPart
}

type htmlPart struct {
	Text        string
	Language    string
	IsCode      bool
	MediaURL    string
	IsVideo     bool
	Placeholder string
}

// HTML renders a thread as a single self-contained document.
func HTML(thread *models.Thread, opts Options) ([]byte, error) {
	doc := htmlDoc{
		Title:   Title(thread.Conversation),
		Created: formatTime(thread.Conversation.CreatedAt),
		Style:   template.CSS(styleCSS),
	}

	for _, msg := range thread.Visible() {
		hm := htmlMessage{
			RoleLabel: roleLabel(msg),
			RoleClass: roleClass(msg.Role),
		}
		for _, part := range msg.Parts {
			hm.Parts = append(hm.Parts, buildPart(part, opts))
		}
		if len(hm.Parts) > 0 {
			doc.Messages = append(doc.Messages, hm)
		}
	}

	var buf bytes.Buffer
	if err := conversationTmpl.Execute(&buf, doc); err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}
	return buf.Bytes(), nil
}

func buildPart(part models.ContentPart, opts Options) htmlPart {
	if part.Media == nil {
		return htmlPart{
			Text:     part.Text,
			Language: part.Language,
			IsCode:   part.Language != "",
		}
	}

	// With a URL builder configured only remote copies count: in
	// upload mode the local file is a temp extraction that goes away,
	// so linking it would put a dead path into a durable document.
	hp := htmlPart{IsVideo: part.Media.Video}
	switch {
	case opts.RemoteURL != nil:
		if part.Media.RemoteID != "" {
			hp.MediaURL = opts.RemoteURL(part.Media.RemoteID)
		} else {
			hp.Placeholder = fmt.Sprintf("[missing media: %s]", part.Media.Pointer)
		}
	case part.Media.LocalPath != "":
		hp.MediaURL = localMediaURL(part.Media.LocalPath, opts.MediaBase)
	default:
		hp.Placeholder = fmt.Sprintf("[missing media: %s]", part.Media.Pointer)
	}
	return hp
}

func localMediaURL(localPath, base string) string {
	name := filepath.Base(localPath)
	if base == "" {
		return name
	}
	return base + "/" + name
}

// Title returns the conversation title, deriving one for untitled
// threads so every output document has a heading.
func Title(conv *models.Conversation) string {
	if strings.TrimSpace(conv.Title) != "" {
		return conv.Title
	}
	if !conv.CreatedAt.IsZero() {
		return "Untitled conversation " + conv.CreatedAt.Format("2006-01-02 15:04")
	}
	return "Untitled conversation"
}

func roleLabel(msg *models.Message) string {
	switch msg.Role {
	case models.RoleUser:
		return "You"
	case models.RoleAssistant:
		return "Assistant"
	case models.RoleTool:
		if msg.AuthorName != "" {
			return msg.AuthorName
		}
		return "Tool"
	default:
		if msg.Role == "" {
			return "Unknown"
		}
		return strings.ToUpper(msg.Role[:1]) + msg.Role[1:]
	}
}

func roleClass(role string) string {
	switch role {
	case models.RoleUser, models.RoleAssistant, models.RoleSystem, models.RoleTool:
		return role
	default:
		return "other"
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("January 2, 2006 15:04")
}
