package render

import (
	"fmt"
	"strings"

	"github.com/chatexport/chatexport/internal/models"
)

// Markdown renders a thread as plain Markdown text. Media references
// become image links against the same URL rules as the HTML renderer.
func Markdown(thread *models.Thread, opts Options) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", Title(thread.Conversation))
	if created := formatTime(thread.Conversation.CreatedAt); created != "" {
		fmt.Fprintf(&b, "_%s_\n\n", created)
	}

	for _, msg := range thread.Visible() {
		if len(msg.Parts) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", roleLabel(msg))
		for _, part := range msg.Parts {
			writeMarkdownPart(&b, part, opts)
		}
	}

	return []byte(b.String())
}

func writeMarkdownPart(b *strings.Builder, part models.ContentPart, opts Options) {
	if part.Media != nil {
		switch {
		case opts.RemoteURL != nil:
			if part.Media.RemoteID != "" {
				fmt.Fprintf(b, "![attachment](%s)\n\n", opts.RemoteURL(part.Media.RemoteID))
			} else {
				fmt.Fprintf(b, "*[missing media: %s]*\n\n", part.Media.Pointer)
			}
		case part.Media.LocalPath != "":
			fmt.Fprintf(b, "![attachment](%s)\n\n", localMediaURL(part.Media.LocalPath, opts.MediaBase))
		default:
			fmt.Fprintf(b, "*[missing media: %s]*\n\n", part.Media.Pointer)
		}
		return
	}

	if part.Language != "" {
		lang := part.Language
		if lang == "output" {
			lang = ""
		}
		fmt.Fprintf(b, "```%s\n%s\n```\n\n", lang, strings.TrimRight(part.Text, "\n"))
		return
	}

	b.WriteString(strings.TrimRight(part.Text, "\n"))
	b.WriteString("\n\n")
}
