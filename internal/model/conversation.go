// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is the ordered, append-only message buffer for one identity.
// It serializes as a plain JSON array so the persisted form stays compatible
// with what the history views expect.
type Conversation []Message

// Append adds a message to the conversation. Timestamps within a
// conversation are monotonically non-decreasing: a message stamped earlier
// than the current tail is clamped to the tail's timestamp.
func (c Conversation) Append(msg Message) Conversation {
	if last := c.Last(); last != nil && msg.Timestamp.Before(last.Timestamp) {
		msg.Timestamp = last.Timestamp
	}
	return append(c, msg)
}

// Last returns the most recent message, or nil if the conversation is empty.
func (c Conversation) Last() *Message {
	if len(c) == 0 {
		return nil
	}
	return &c[len(c)-1]
}

// Len returns the number of messages.
func (c Conversation) Len() int {
	return len(c)
}

// IsEmpty returns true if there are no messages.
func (c Conversation) IsEmpty() bool {
	return len(c) == 0
}

// Clone creates a copy of the conversation that shares no backing storage
// with the original.
func (c Conversation) Clone() Conversation {
	if c == nil {
		return nil
	}
	out := make(Conversation, len(c))
	copy(out, c)
	return out
}
