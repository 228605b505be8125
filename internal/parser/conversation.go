// Package parser decodes exported conversation JSON and reconstructs
// linear message threads from the conversation tree.
package parser

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/chatexport/chatexport/internal/models"
)

// rawConversation matches the top-level shape of one entry in
// conversations.json. Message bodies are kept raw and probed
// leniently, the export format has shifted shapes between versions.
type rawConversation struct {
	ID             string             `json:"id"`
	ConversationID string             `json:"conversation_id"`
	Title          string             `json:"title"`
	CreateTime     float64            `json:"create_time"`
	UpdateTime     float64            `json:"update_time"`
	Mapping        map[string]rawNode `json:"mapping"`
	CurrentNode    string             `json:"current_node"`
}

type rawNode struct {
	ID       string          `json:"id"`
	Parent   *string         `json:"parent"`
	Children []string        `json:"children"`
	Message  json.RawMessage `json:"message"`
}

// ParseConversation decodes a single conversation object.
func ParseConversation(data []byte) (*models.Conversation, error) {
	var raw rawConversation
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}
	if len(raw.Mapping) == 0 {
		return nil, fmt.Errorf("conversation %q has no mapping", raw.Title)
	}

	conv := &models.Conversation{
		ID:          raw.ID,
		Title:       raw.Title,
		CreatedAt:   unixFloat(raw.CreateTime),
		UpdatedAt:   unixFloat(raw.UpdateTime),
		Nodes:       make(map[string]*models.MessageNode, len(raw.Mapping)),
		CurrentNode: raw.CurrentNode,
	}
	if conv.ID == "" {
		conv.ID = raw.ConversationID
	}

	for id, node := range raw.Mapping {
		n := &models.MessageNode{
			ID:       id,
			Children: node.Children,
		}
		if node.Parent != nil {
			n.Parent = *node.Parent
		}
		if len(node.Message) > 0 && string(node.Message) != "null" {
			n.Message = parseMessage(node.Message)
		}
		conv.Nodes[id] = n
	}

	return conv, nil
}

// StreamConversations walks a conversations.json array one element at
// a time so a large export is never held in memory at once. fn is
// called per element with either a conversation or the decode error
// for that element; returning an error from fn aborts the stream.
func StreamConversations(r io.Reader, fn func(conv *models.Conversation, err error) error) error {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read array start: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return fmt.Errorf("expected JSON array, got %v", tok)
	}

	for dec.More() {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decode array element: %w", err)
		}
		conv, convErr := ParseConversation(raw)
		if err := fn(conv, convErr); err != nil {
			return err
		}
	}

	// Trailing ']' - errors here mean a truncated file, which the
	// per-element handling above has already survived.
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return fmt.Errorf("read array end: %w", err)
	}
	return nil
}

// Linearize reconstructs the thread ending at the conversation's
// current node by following parent pointers back to the root and
// reversing the result. A missing node stops the walk; a revisited
// node is treated as a cycle and stops it too.
func Linearize(conv *models.Conversation) (*models.Thread, error) {
	cur := conv.CurrentNode
	if cur == "" || conv.Nodes[cur] == nil {
		cur = findLeaf(conv)
	}
	if cur == "" {
		return nil, fmt.Errorf("conversation %q has no leaf node", conv.Title)
	}

	seen := make(map[string]bool, len(conv.Nodes))
	var messages []*models.Message
	for cur != "" && !seen[cur] {
		seen[cur] = true
		node := conv.Nodes[cur]
		if node == nil {
			break
		}
		if node.Message != nil {
			messages = append(messages, node.Message)
		}
		cur = node.Parent
	}

	// Walked leaf-to-root, render order is root-to-leaf.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return &models.Thread{Conversation: conv, Messages: messages}, nil
}

// findLeaf picks any node without children as a fallback when
// current_node is absent or dangling.
func findLeaf(conv *models.Conversation) string {
	for id, node := range conv.Nodes {
		if len(node.Children) == 0 {
			return id
		}
	}
	return ""
}

func unixFloat(secs float64) time.Time {
	if secs <= 0 {
		return time.Time{}
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*float64(time.Second))).UTC()
}
