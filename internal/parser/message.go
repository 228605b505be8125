package parser

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/chatexport/chatexport/internal/models"
)

// parseMessage probes a raw message body. The shape of content.parts
// varies with content_type (plain strings, asset pointer objects) and
// across export versions, so everything is read through gjson and
// absent fields degrade to zero values instead of failing the node.
func parseMessage(raw []byte) *models.Message {
	body := gjson.ParseBytes(raw)

	msg := &models.Message{
		ID:         body.Get("id").String(),
		Role:       body.Get("author.role").String(),
		AuthorName: body.Get("author.name").String(),
		CreatedAt:  unixFloat(body.Get("create_time").Float()),
		Weight:     1,
		Recipient:  body.Get("recipient").String(),
	}
	if w := body.Get("weight"); w.Exists() {
		msg.Weight = w.Float()
	}

	content := body.Get("content")
	switch content.Get("content_type").String() {
	case "text", "multimodal_text":
		content.Get("parts").ForEach(func(_, part gjson.Result) bool {
			msg.Parts = append(msg.Parts, parsePart(part)...)
			return true
		})
	case "code":
		msg.Parts = append(msg.Parts, models.ContentPart{
			Text:     content.Get("text").String(),
			Language: codeLanguage(content.Get("language").String()),
		})
	case "execution_output":
		msg.Parts = append(msg.Parts, models.ContentPart{
			Text:     content.Get("text").String(),
			Language: "output",
		})
	case "tether_quote":
		var quote strings.Builder
		if title := content.Get("title").String(); title != "" {
			quote.WriteString(title + "\n")
		}
		quote.WriteString(content.Get("text").String())
		msg.Parts = append(msg.Parts, models.ContentPart{Text: quote.String()})
	case "thoughts":
		content.Get("thoughts").ForEach(func(_, thought gjson.Result) bool {
			if text := thought.Get("content").String(); text != "" {
				msg.Parts = append(msg.Parts, models.ContentPart{Text: text})
			}
			return true
		})
	case "user_editable_context":
		// Custom-instructions context, injected by the service. Kept
		// out of rendered output.
		msg.Hidden = true
	default:
		if text := content.Get("text").String(); text != "" {
			msg.Parts = append(msg.Parts, models.ContentPart{Text: text})
		}
	}

	msg.Hidden = msg.Hidden || hiddenMessage(msg, body)
	return msg
}

// parsePart handles one entry of content.parts: either a plain string
// or an asset pointer object.
func parsePart(part gjson.Result) []models.ContentPart {
	if part.Type == gjson.String {
		if part.String() == "" {
			return nil
		}
		return []models.ContentPart{{Text: part.String()}}
	}

	pointer := part.Get("asset_pointer").String()
	if pointer == "" {
		// Audio transcriptions and other wrapped shapes carry their
		// text a level down.
		if text := part.Get("text").String(); text != "" {
			return []models.ContentPart{{Text: text}}
		}
		return nil
	}

	partType := part.Get("content_type").String()
	return []models.ContentPart{{
		Media: &models.MediaReference{
			Pointer: pointer,
			Width:   int(part.Get("width").Int()),
			Height:  int(part.Get("height").Int()),
			Video:   strings.Contains(partType, "video"),
		},
	}}
}

// hiddenMessage applies the export's visibility rules: zero-weight
// nodes, empty or system-internal messages, and tool output addressed
// to the model rather than the user.
func hiddenMessage(msg *models.Message, body gjson.Result) bool {
	if msg.Weight == 0 {
		return true
	}
	if body.Get("metadata.is_visually_hidden_from_conversation").Bool() {
		return true
	}
	if msg.Recipient != "" && msg.Recipient != "all" {
		return true
	}
	if msg.Role == models.RoleSystem && emptyParts(msg.Parts) {
		return true
	}
	return false
}

func emptyParts(parts []models.ContentPart) bool {
	for _, p := range parts {
		if strings.TrimSpace(p.Text) != "" || p.Media != nil {
			return false
		}
	}
	return true
}

// codeLanguage normalizes the export's language tag; "unknown" is the
// export's spelling of "no highlighting".
func codeLanguage(lang string) string {
	if lang == "unknown" {
		return ""
	}
	return lang
}
