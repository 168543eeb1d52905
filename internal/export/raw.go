// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"

	"github.com/jeranaias/chatterm/internal/api"
)

// =============================================================================
// RAW RENDERER
// =============================================================================

// RawRenderer emits the export payload as JSON, byte-for-byte identical
// to what the server sent when the wire bytes are available.
type RawRenderer struct{}

// NewRawRenderer creates a raw JSON renderer.
func NewRawRenderer() *RawRenderer {
	return &RawRenderer{}
}

// Render returns the wire bytes unchanged, re-serializing only when the
// caller has no raw copy.
func (r *RawRenderer) Render(payload *api.ExportPayload, raw []byte) ([]byte, error) {
	if len(raw) > 0 {
		return raw, nil
	}
	if payload == nil {
		return nil, fmt.Errorf("export payload is nil")
	}
	return json.Marshal(payload)
}

// FileExtension returns ".json".
func (r *RawRenderer) FileExtension() string { return ".json" }

// MimeType returns the JSON MIME type.
func (r *RawRenderer) MimeType() string { return "application/json" }
