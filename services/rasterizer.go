package services

import (
	"bytes"
	"fmt"
	"image/png"
	"io"
	"log"

	"github.com/adityarawat/examdesk/utils/pdfvalidation"
	"github.com/gen2brain/go-fitz"
)

// RasterPage is one page of the source document rendered to a PNG image.
// Index is 0-based and stable for the document's lifetime.
type RasterPage struct {
	Index int
	PNG   []byte
}

// Rasterizer converts PDF bytes into per-page raster images
type Rasterizer struct{}

// NewRasterizer creates a new rasterizer
func NewRasterizer() *Rasterizer {
	return &Rasterizer{}
}

// PageSequence is a lazy, ordered, non-restartable sequence of raster pages.
// Re-rasterizing requires calling Rasterizer.Open again with the source bytes.
// Callers must Close it when done.
type PageSequence struct {
	doc    *fitz.Document
	next   int
	count  int
	closed bool
}

// Open parses the PDF and returns a page sequence over its pages
func (r *Rasterizer) Open(content []byte) (*PageSequence, error) {
	if len(content) == 0 {
		return nil, &DocumentFormatError{Reason: "empty content"}
	}

	content = pdfvalidation.Sanitize(content)

	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		return nil, &DocumentFormatError{Reason: "failed to parse PDF", Err: err}
	}

	count := doc.NumPage()
	if count == 0 {
		doc.Close()
		return nil, &DocumentFormatError{Reason: "PDF has no pages"}
	}

	log.Printf("Rasterizer: Opened PDF with %d pages", count)

	return &PageSequence{doc: doc, count: count}, nil
}

// PageCount returns the total number of pages in the document
func (s *PageSequence) PageCount() int {
	return s.count
}

// Next renders and returns the next page. It returns io.EOF once all pages
// have been produced, and a RenderError if the current page cannot be
// rasterized; earlier pages already produced remain valid.
func (s *PageSequence) Next() (*RasterPage, error) {
	if s.closed {
		return nil, fmt.Errorf("page sequence is closed")
	}
	if s.next >= s.count {
		return nil, io.EOF
	}

	index := s.next
	img, err := s.doc.Image(index)
	if err != nil {
		return nil, &RenderError{Page: index, Err: err}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, &RenderError{Page: index, Err: err}
	}

	s.next++
	return &RasterPage{Index: index, PNG: buf.Bytes()}, nil
}

// Close releases the underlying document
func (s *PageSequence) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.doc.Close()
}

// RasterizeAll drains the sequence into a slice. On a RenderError the pages
// rendered so far are returned alongside the error as a valid prefix.
func (r *Rasterizer) RasterizeAll(content []byte) ([]RasterPage, int, error) {
	seq, err := r.Open(content)
	if err != nil {
		return nil, 0, err
	}
	defer seq.Close()

	pages := make([]RasterPage, 0, seq.PageCount())
	for {
		page, err := seq.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return pages, seq.PageCount(), err
		}
		pages = append(pages, *page)
	}

	log.Printf("Rasterizer: Rendered %d pages", len(pages))
	return pages, seq.PageCount(), nil
}
