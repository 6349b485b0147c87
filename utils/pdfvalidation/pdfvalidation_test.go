package pdfvalidation

import (
	"bytes"
	"testing"
)

func TestSanitizeTruncatesTrailingGarbage(t *testing.T) {
	pdf := []byte("%PDF-1.4\nsome content\n%%EOF")
	dirty := append(append([]byte{}, pdf...), []byte("\n<html>junk</html>")...)

	got := Sanitize(dirty)
	want := append(append([]byte{}, pdf...), '\n')
	if !bytes.Equal(got, want) {
		t.Errorf("Sanitize = %q, want %q", got, want)
	}
}

func TestSanitizeKeepsCleanPDF(t *testing.T) {
	pdf := []byte("%PDF-1.4\nsome content\n%%EOF\n")
	if got := Sanitize(pdf); !bytes.Equal(got, pdf) {
		t.Errorf("clean PDF changed: %q", got)
	}
}

func TestSanitizeNonPDFPassthrough(t *testing.T) {
	content := []byte("<html>not a pdf %%EOF</html>")
	if got := Sanitize(content); !bytes.Equal(got, content) {
		t.Errorf("non-PDF changed: %q", got)
	}
	if got := Sanitize(nil); got != nil {
		t.Errorf("nil changed: %q", got)
	}
}

func TestValidatePDFBytesRejectsNonPDF(t *testing.T) {
	result := ValidatePDFBytes([]byte("plain text"), ImportLimits)
	if result.Valid {
		t.Error("non-PDF content accepted")
	}
	if result.Error == "" {
		t.Error("no error message for rejected content")
	}
}
