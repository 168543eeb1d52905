// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders the bulk history export payload into
// downloadable documents.
//
// All renderers reproduce the records in the exact order the server sent
// them; no filtering or re-sorting happens client-side. Absent fields
// render as empty strings.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/chatterm/internal/api"
)

// =============================================================================
// RENDERER INTERFACE
// =============================================================================

// DocumentRenderer turns an export payload into one output format.
type DocumentRenderer interface {
	// Render produces the document body. raw carries the untouched wire
	// bytes for renderers that must reproduce them exactly.
	Render(payload *api.ExportPayload, raw []byte) ([]byte, error)

	// FileExtension returns the output file extension (e.g. ".txt").
	FileExtension() string

	// MimeType returns the MIME type of the output.
	MimeType() string
}

// Format names one supported export format.
type Format string

// Supported export formats.
const (
	FormatRaw  Format = "raw"
	FormatText Format = "text"
	FormatPDF  Format = "pdf"
)

// RendererFor returns the renderer for the named format.
func RendererFor(format Format) (DocumentRenderer, error) {
	switch format {
	case FormatRaw:
		return NewRawRenderer(), nil
	case FormatText:
		return NewTextRenderer(), nil
	case FormatPDF:
		return NewPDFRenderer(), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %q", format)
	}
}

// =============================================================================
// FILE OUTPUT
// =============================================================================

// WriteFile renders the payload and writes it under dir, returning the
// output path. The filename carries the export timestamp so repeated
// exports never clobber each other.
func WriteFile(payload *api.ExportPayload, raw []byte, renderer DocumentRenderer, dir string) (string, error) {
	content, err := renderer.Render(payload, raw)
	if err != nil {
		return "", fmt.Errorf("render export: %w", err)
	}

	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	filename := fmt.Sprintf("chat_export_%s_%s%s",
		sanitizeFilename(payload.User),
		time.Now().Format("20060102_150405"),
		renderer.FileExtension(),
	)

	outputPath := filepath.Join(dir, filename)
	if err := os.WriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return outputPath, nil
}

// sanitizeFilename strips characters that are unsafe in filenames.
func sanitizeFilename(name string) string {
	if name == "" {
		return "export"
	}
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return sb.String()
}
