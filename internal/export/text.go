// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"

	"github.com/jeranaias/chatterm/internal/api"
)

// =============================================================================
// TEXT RENDERER
// =============================================================================

// TextRenderer emits a line-oriented plain-text document: a header line,
// then one labelled block per record in server order.
type TextRenderer struct{}

// NewTextRenderer creates a plain-text renderer.
func NewTextRenderer() *TextRenderer {
	return &TextRenderer{}
}

// Render produces the text document. The block layout is fixed: message
// index, date, model, then the user and assistant bodies under "You:" and
// "AI:" labels.
func (r *TextRenderer) Render(payload *api.ExportPayload, _ []byte) ([]byte, error) {
	if payload == nil {
		return nil, fmt.Errorf("export payload is nil")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Chat export for %s on %s\n", payload.User, payload.ExportDate))
	sb.WriteString("\n")

	for i, chat := range payload.Chats {
		sb.WriteString(fmt.Sprintf("--- Message %d ---\n", i+1))
		sb.WriteString(fmt.Sprintf("Date: %s\n", chat.Date))
		sb.WriteString(fmt.Sprintf("Model: %s\n", chat.Model))
		sb.WriteString("You:\n")
		sb.WriteString(chat.UserMessage + "\n")
		sb.WriteString("AI:\n")
		sb.WriteString(chat.AIResponse + "\n")
		sb.WriteString("\n")
	}

	return []byte(sb.String()), nil
}

// FileExtension returns ".txt".
func (r *TextRenderer) FileExtension() string { return ".txt" }

// MimeType returns the plain-text MIME type.
func (r *TextRenderer) MimeType() string { return "text/plain" }
