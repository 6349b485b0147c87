package pdfvalidation

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFLimits defines the validation limits for PDF uploads
type PDFLimits struct {
	MaxFileSizeMB    int
	MaxPages         int
	DocumentTypeName string // For error messages
}

// ImportLimits bounds a question-paper upload; rasterizing and extracting
// hundreds of pages through the document-understanding service is neither
// useful nor affordable
var ImportLimits = PDFLimits{
	MaxFileSizeMB:    50,
	MaxPages:         100,
	DocumentTypeName: "question paper",
}

// ValidationResult contains the result of PDF validation
type ValidationResult struct {
	Valid     bool
	PageCount int
	FileSize  int64
	Error     string
}

// Sanitize fixes common PDF issues like trailing garbage data.
// Many PDFs downloaded from the web have HTML or other data appended after
// %%EOF; this truncates the content at the last valid %%EOF marker.
func Sanitize(content []byte) []byte {
	if len(content) == 0 {
		return content
	}

	if !bytes.HasPrefix(content, []byte("%PDF-")) {
		return content // Not a PDF, return as-is
	}

	eofMarker := []byte("%%EOF")
	lastEOF := bytes.LastIndex(content, eofMarker)
	if lastEOF == -1 {
		// No %%EOF found - PDF is likely truncated, let the parser complain
		return content
	}

	pdfEnd := lastEOF + len(eofMarker)

	// Trailing newlines after %%EOF are valid per PDF spec
	for pdfEnd < len(content) && (content[pdfEnd] == '\n' || content[pdfEnd] == '\r') {
		pdfEnd++
	}

	if pdfEnd < len(content) {
		extraBytes := len(content) - pdfEnd
		if extraBytes > 10 { // More than just whitespace
			log.Printf("PDF Sanitizer: Removing %d bytes of trailing garbage after %%EOF", extraBytes)
			return content[:pdfEnd]
		}
	}

	return content
}

// ValidatePDFBytes validates raw PDF content against the given limits and
// reports the page count when valid
func ValidatePDFBytes(content []byte, limits PDFLimits) *ValidationResult {
	result := &ValidationResult{
		FileSize: int64(len(content)),
	}

	maxSize := int64(limits.MaxFileSizeMB) * 1024 * 1024
	if result.FileSize > maxSize {
		result.Error = fmt.Sprintf("File size exceeds maximum allowed size of %dMB", limits.MaxFileSizeMB)
		return result
	}

	if !bytes.HasPrefix(content, []byte("%PDF-")) {
		result.Error = "File is not a valid PDF document"
		return result
	}

	content = Sanitize(content)

	reader := bytes.NewReader(content)
	pdfReader, err := pdf.NewReader(reader, int64(len(content)))
	if err != nil {
		result.Error = fmt.Sprintf("Failed to parse %s: %v", limits.DocumentTypeName, err)
		return result
	}

	pageCount := pdfReader.NumPage()
	if pageCount == 0 {
		result.Error = "PDF has no pages"
		return result
	}
	if pageCount > limits.MaxPages {
		result.Error = fmt.Sprintf("%s has %d pages, maximum allowed is %d",
			limits.DocumentTypeName, pageCount, limits.MaxPages)
		return result
	}

	result.Valid = true
	result.PageCount = pageCount
	return result
}

// ValidatePDFFile validates an uploaded multipart PDF file and returns its
// content alongside the validation result
func ValidatePDFFile(file *multipart.FileHeader, limits PDFLimits) ([]byte, *ValidationResult, error) {
	if !strings.HasSuffix(strings.ToLower(file.Filename), ".pdf") {
		return nil, &ValidationResult{Error: "Only PDF files are supported", FileSize: file.Size}, nil
	}

	maxSize := int64(limits.MaxFileSizeMB) * 1024 * 1024
	if file.Size > maxSize {
		return nil, &ValidationResult{
			Error:    fmt.Sprintf("File size exceeds maximum allowed size of %dMB", limits.MaxFileSizeMB),
			FileSize: file.Size,
		}, nil
	}

	src, err := file.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}

	return content, ValidatePDFBytes(content, limits), nil
}
