package pdfvalidation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// onePagePDF is a minimal well-formed document with a correct xref table
const onePagePDF = "%PDF-1.4\n1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 200] >>\nendobj\nxref\n0 4\n0000000000 65535 f \n0000000009 00000 n \n0000000058 00000 n \n0000000115 00000 n \ntrailer\n<< /Size 4 /Root 1 0 R >>\nstartxref\n186\n%%EOF\n"

func TestValidateAcceptsReceipt(t *testing.T) {
	res := Validate("march-hosting.PDF", []byte(onePagePDF), ReceiptLimits)
	assert.True(t, res.Valid, res.Error)
	assert.Equal(t, 1, res.PageCount)
}

func TestValidateTrailingGarbage(t *testing.T) {
	res := Validate("r.pdf", []byte(onePagePDF+"garbage appended by a scanner"), ReceiptLimits)
	assert.True(t, res.Valid, res.Error)
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name     string
		filename string
		content  string
		limits   Limits
		want     string
	}{
		{"empty", "r.pdf", "", ReceiptLimits, "empty"},
		{"extension", "r.png", onePagePDF, ReceiptLimits, "Only PDF"},
		{"header", "r.pdf", "hello world", ReceiptLimits, "missing PDF header"},
		{"size", "r.pdf", onePagePDF + strings.Repeat(" ", 1024*1024), Limits{MaxFileSizeMB: 1, MaxPages: 1, DocumentTypeName: "receipt"}, "exceeds maximum allowed size"},
		{"pages", "r.pdf", onePagePDF, Limits{MaxFileSizeMB: 1, MaxPages: 0, DocumentTypeName: "receipt"}, "exceeds the maximum of 0 pages"},
		{"corrupt", "r.pdf", "%PDF-1.4\nnot really a pdf", ReceiptLimits, "Failed to read PDF"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Validate(tc.filename, []byte(tc.content), tc.limits)
			assert.False(t, res.Valid)
			assert.Contains(t, res.Error, tc.want)
		})
	}
}
