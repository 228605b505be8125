// Package models defines the in-memory shapes rebuilt from an export
// archive on every run. Nothing here is persisted.
package models

import "time"

// Conversation is a single exported chat thread: a node map plus a
// pointer to the leaf the thread currently ends at.
type Conversation struct {
	ID          string
	Title       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Nodes       map[string]*MessageNode
	CurrentNode string
}

// MessageNode is one entry in the conversation mapping. Message may be
// nil for synthetic root nodes.
type MessageNode struct {
	ID       string
	Parent   string
	Children []string
	Message  *Message
}

// Message carries the renderable payload of a node.
type Message struct {
	ID         string
	Role       string
	AuthorName string
	CreatedAt  time.Time
	Parts      []ContentPart
	Weight     float64
	Recipient  string
	Hidden     bool
}

// ContentPart is either a run of text or a media reference, never both.
type ContentPart struct {
	Text     string
	Language string // set for code parts
	Media    *MediaReference
}

// MediaReference is an asset pointer plus whatever it resolved to.
// LocalPath is set when the asset was found in the archive, RemoteID
// when a copy already exists on the remote side.
type MediaReference struct {
	Pointer   string
	Width     int
	Height    int
	Video     bool
	LocalPath string
	RemoteID  string
}

// Resolved reports whether the reference points at an actual file.
func (m *MediaReference) Resolved() bool {
	return m != nil && (m.LocalPath != "" || m.RemoteID != "")
}

// Roles used by the export format.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)
