package render

import (
	"strings"
	"testing"
	"time"

	"github.com/chatexport/chatexport/internal/models"
)

func testThread() *models.Thread {
	return &models.Thread{
		Conversation: &models.Conversation{
			Title:     "Trip planning",
			CreatedAt: time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC),
		},
		Messages: []*models.Message{
			{Role: models.RoleSystem, Hidden: true, Parts: []models.ContentPart{{Text: "system prompt"}}},
			{Role: models.RoleUser, Parts: []models.ContentPart{{Text: "Where should I go <in> May?"}}},
			{Role: models.RoleAssistant, Parts: []models.ContentPart{
				{Text: "Lisbon."},
				{Text: "print('pack light')", Language: "python"},
			}},
			{Role: models.RoleUser, Parts: []models.ContentPart{
				{Media: &models.MediaReference{
					Pointer:   "file-service://file-AbC",
					LocalPath: "/tmp/media/file-AbC-list.png",
				}},
			}},
		},
	}
}

func TestHTML(t *testing.T) {
	out, err := HTML(testThread(), Options{MediaBase: "media"})
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}
	html := string(out)

	checks := []string{
		"<title>Trip planning</title>",
		"May 2, 2024",
		`<img src="media/file-AbC-list.png"`,
		`<code class="language-python">`,
		"Where should I go &lt;in&gt; May?", // template escaping
	}
	for _, want := range checks {
		if !strings.Contains(html, want) {
			t.Errorf("output missing %q", want)
		}
	}

	if strings.Contains(html, "system prompt") {
		t.Error("hidden message rendered")
	}
}

func TestHTML_MediaFallbacks(t *testing.T) {
	tests := []struct {
		name string
		ref  *models.MediaReference
		opts Options
		want string
	}{
		{
			name: "remote id with url builder",
			ref:  &models.MediaReference{Pointer: "file-service://file-R", RemoteID: "drive-1"},
			opts: Options{RemoteURL: func(id string) string { return "https://drive.example/" + id }},
			want: `src="https://drive.example/drive-1"`,
		},
		{
			name: "unresolved shows placeholder",
			ref:  &models.MediaReference{Pointer: "file-service://file-Gone"},
			want: "[missing media: file-service://file-Gone]",
		},
		{
			// In remote mode a local path is a temp extraction that is
			// deleted after the run; it must never leak into the document.
			name: "local path ignored in remote mode",
			ref:  &models.MediaReference{Pointer: "file-service://file-L", LocalPath: "/tmp/file-L-pic.png"},
			opts: Options{RemoteURL: func(id string) string { return "https://drive.example/" + id }},
			want: "[missing media: file-service://file-L]",
		},
		{
			name: "video element",
			ref:  &models.MediaReference{Pointer: "sediment://file_V", LocalPath: "/m/file_V.mp4", Video: true},
			want: `<video controls src="file_V.mp4">`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			thread := &models.Thread{
				Conversation: &models.Conversation{Title: "t"},
				Messages: []*models.Message{
					{Role: models.RoleUser, Parts: []models.ContentPart{{Media: tt.ref}}},
				},
			}
			out, err := HTML(thread, tt.opts)
			if err != nil {
				t.Fatalf("HTML() error = %v", err)
			}
			if !strings.Contains(string(out), tt.want) {
				t.Errorf("output missing %q in:\n%s", tt.want, out)
			}
		})
	}
}

func TestMarkdown(t *testing.T) {
	out := string(Markdown(testThread(), Options{MediaBase: "media"}))

	checks := []string{
		"# Trip planning",
		"## You",
		"## Assistant",
		"```python\nprint('pack light')\n```",
		"![attachment](media/file-AbC-list.png)",
	}
	for _, want := range checks {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(out, "system prompt") {
		t.Error("hidden message rendered")
	}
}

func TestTitle(t *testing.T) {
	tests := []struct {
		name string
		conv *models.Conversation
		want string
	}{
		{
			name: "explicit title",
			conv: &models.Conversation{Title: "Hello"},
			want: "Hello",
		},
		{
			name: "untitled with timestamp",
			conv: &models.Conversation{CreatedAt: time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)},
			want: "Untitled conversation 2024-05-02 09:30",
		},
		{
			name: "untitled without timestamp",
			conv: &models.Conversation{Title: "   "},
			want: "Untitled conversation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Title(tt.conv); got != tt.want {
				t.Errorf("Title() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFilename(t *testing.T) {
	taken := make(map[string]bool)

	tests := []struct {
		title string
		want  string
	}{
		{"Trip planning", "trip-planning.html"},
		{"Trip planning", "trip-planning-2.html"},
		{"Trip: planning!!", "trip-planning-3.html"},
		{"日本語", "日本語.html"},
		{"///", "conversation.html"},
	}

	for _, tt := range tests {
		conv := &models.Conversation{Title: tt.title}
		if got := Filename(conv, ".html", taken); got != tt.want {
			t.Errorf("Filename(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}
