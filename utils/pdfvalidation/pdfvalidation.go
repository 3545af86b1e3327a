// Package pdfvalidation checks uploaded PDF documents before they are stored.
package pdfvalidation

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Limits bounds an accepted document
type Limits struct {
	MaxFileSizeMB    int
	MaxPages         int
	DocumentTypeName string // used in error messages
}

// ReceiptLimits applies to expense receipts
var ReceiptLimits = Limits{
	MaxFileSizeMB:    10,
	MaxPages:         20,
	DocumentTypeName: "receipt",
}

// Result describes a checked document. Error is set when Valid is false and is safe to show to clients.
type Result struct {
	Valid     bool
	PageCount int
	FileSize  int64
	Error     string
}

func (l Limits) maxBytes() int64 {
	return int64(l.MaxFileSizeMB) * 1024 * 1024
}

// Validate checks name and content against limits
func Validate(filename string, content []byte, limits Limits) *Result {
	result := &Result{FileSize: int64(len(content))}

	if len(content) == 0 {
		result.Error = "File is empty"
		return result
	}
	if result.FileSize > limits.maxBytes() {
		result.Error = fmt.Sprintf("File size exceeds maximum allowed size of %dMB", limits.MaxFileSizeMB)
		return result
	}
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		result.Error = "Only PDF files are supported"
		return result
	}
	if !bytes.HasPrefix(content, []byte("%PDF-")) {
		result.Error = "Invalid PDF file: missing PDF header"
		return result
	}

	pages, err := PageCount(content)
	if err != nil {
		result.Error = fmt.Sprintf("Failed to read PDF: %v", err)
		return result
	}
	result.PageCount = pages

	switch {
	case pages == 0:
		result.Error = "PDF has no pages"
	case pages > limits.MaxPages:
		result.Error = fmt.Sprintf("PDF has %d pages, which exceeds the maximum of %d pages for a %s",
			pages, limits.MaxPages, limits.DocumentTypeName)
	default:
		result.Valid = true
	}
	return result
}

// trimTrailingGarbage cuts anything after the last %%EOF marker
func trimTrailingGarbage(content []byte) []byte {
	eof := []byte("%%EOF")
	last := bytes.LastIndex(content, eof)
	if last == -1 {
		return content
	}

	end := last + len(eof)
	for end < len(content) && (content[end] == '\n' || content[end] == '\r') {
		end++
	}
	return content[:end]
}

// PageCount parses content and returns its number of pages
func PageCount(content []byte) (int, error) {
	content = trimTrailingGarbage(content)

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return 0, fmt.Errorf("failed to parse PDF: %w", err)
	}
	return reader.NumPage(), nil
}
