// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/jeranaias/chatterm/internal/api"
)

// =============================================================================
// PDF RENDERER
// =============================================================================

// PDFRenderer emits a paginated PDF with the same header and record
// structure as the text format: bold labels, wrapped body text, and
// automatic page breaks.
type PDFRenderer struct{}

// NewPDFRenderer creates a PDF renderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Layout constants in millimeters on an A4 page.
const (
	pdfMargin    = 15.0
	pdfLineH     = 5.5
	pdfTitleSize = 14.0
	pdfBodySize  = 10.0
)

// Render produces the PDF document.
func (r *PDFRenderer) Render(payload *api.ExportPayload, _ []byte) ([]byte, error) {
	if payload == nil {
		return nil, fmt.Errorf("export payload is nil")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.AddPage()

	usableWidth, _ := pdf.GetPageSize()
	usableWidth -= 2 * pdfMargin

	// Header
	pdf.SetFont("Helvetica", "B", pdfTitleSize)
	pdf.MultiCell(usableWidth, pdfLineH+2,
		fmt.Sprintf("Chat export for %s on %s", payload.User, payload.ExportDate), "", "L", false)
	pdf.Ln(pdfLineH)

	for i, chat := range payload.Chats {
		pdf.SetFont("Helvetica", "B", pdfBodySize)
		pdf.MultiCell(usableWidth, pdfLineH, fmt.Sprintf("--- Message %d ---", i+1), "", "L", false)

		r.labelledLine(pdf, usableWidth, "Date: ", chat.Date)
		r.labelledLine(pdf, usableWidth, "Model: ", chat.Model)
		r.labelledBlock(pdf, usableWidth, "You:", chat.UserMessage)
		r.labelledBlock(pdf, usableWidth, "AI:", chat.AIResponse)
		pdf.Ln(pdfLineH)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("generate pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// labelledLine writes a bold label and its value on one wrapped line.
func (r *PDFRenderer) labelledLine(pdf *fpdf.Fpdf, width float64, label, value string) {
	pdf.SetFont("Helvetica", "B", pdfBodySize)
	labelWidth := pdf.GetStringWidth(label) + 1
	pdf.CellFormat(labelWidth, pdfLineH, label, "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", pdfBodySize)
	pdf.MultiCell(width-labelWidth, pdfLineH, value, "", "L", false)
}

// labelledBlock writes a bold label line followed by a wrapped body.
func (r *PDFRenderer) labelledBlock(pdf *fpdf.Fpdf, width float64, label, body string) {
	pdf.SetFont("Helvetica", "B", pdfBodySize)
	pdf.MultiCell(width, pdfLineH, label, "", "L", false)
	pdf.SetFont("Helvetica", "", pdfBodySize)
	pdf.MultiCell(width, pdfLineH, body, "", "L", false)
}

// FileExtension returns ".pdf".
func (r *PDFRenderer) FileExtension() string { return ".pdf" }

// MimeType returns the PDF MIME type.
func (r *PDFRenderer) MimeType() string { return "application/pdf" }
