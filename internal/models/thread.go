package models

// Thread is the linear message sequence reconstructed by walking a
// conversation tree from its current node back to the root.
type Thread struct {
	Conversation *Conversation
	Messages     []*Message
}

// MediaReferences returns every media reference in the thread, in
// render order. The pointers alias the thread's parts so resolving
// them in place is visible to the renderer.
func (t *Thread) MediaReferences() []*MediaReference {
	var refs []*MediaReference
	for _, msg := range t.Messages {
		for i := range msg.Parts {
			if msg.Parts[i].Media != nil {
				refs = append(refs, msg.Parts[i].Media)
			}
		}
	}
	return refs
}

// Visible filters out messages that the export marks as hidden:
// zero-weight nodes, empty system prompts and tool chatter addressed
// to something other than the user.
func (t *Thread) Visible() []*Message {
	visible := make([]*Message, 0, len(t.Messages))
	for _, msg := range t.Messages {
		if msg.Hidden {
			continue
		}
		visible = append(visible, msg)
	}
	return visible
}
