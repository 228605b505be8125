package render

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/chatexport/chatexport/internal/models"
)

// Filename derives a safe output file name for a conversation and
// reserves it in taken, appending a numeric suffix on collision.
func Filename(conv *models.Conversation, ext string, taken map[string]bool) string {
	base := slugify(Title(conv))
	if base == "" {
		base = "conversation"
	}

	name := base + ext
	for n := 2; taken[name]; n++ {
		name = fmt.Sprintf("%s-%d%s", base, n, ext)
	}
	taken[name] = true
	return name
}

// slugify lowercases a title and collapses anything unsafe for a file
// name into single dashes.
func slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.Trim(b.String(), "-")
}
