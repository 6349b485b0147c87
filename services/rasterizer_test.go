package services

import (
	"errors"
	"testing"
)

func TestRasterizerRejectsGarbage(t *testing.T) {
	r := NewRasterizer()

	_, err := r.Open([]byte("definitely not a pdf"))
	if err == nil {
		t.Fatal("expected error for non-PDF content")
	}

	var docErr *DocumentFormatError
	if !errors.As(err, &docErr) {
		t.Errorf("got %T, want DocumentFormatError", err)
	}
}

func TestRasterizeAllPropagatesFormatError(t *testing.T) {
	r := NewRasterizer()

	pages, count, err := r.RasterizeAll([]byte{0x00, 0x01, 0x02})
	if err == nil {
		t.Fatal("expected error for invalid content")
	}
	if len(pages) != 0 || count != 0 {
		t.Errorf("got %d pages, count %d for invalid content", len(pages), count)
	}
}
