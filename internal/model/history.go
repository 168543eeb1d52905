// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// =============================================================================
// HISTORY ENTRY TYPE
// =============================================================================

// HistoryEntry is a server-committed record of one past user/assistant
// exchange. Entries are owned by the remote store: the client never
// constructs one, and never mutates one except via delete-by-id.
type HistoryEntry struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username,omitempty"`
	Model       string    `json:"model"`
	UserMessage string    `json:"user_message"`
	AIResponse  string    `json:"ai_response"`
	Language    string    `json:"language,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Preview returns a single-line truncated preview of the user message.
func (e HistoryEntry) Preview(maxRunes int) string {
	return Message{Content: e.UserMessage}.Preview(maxRunes)
}
