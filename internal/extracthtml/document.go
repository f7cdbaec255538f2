package extracthtml

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Document is a parsed HTML page. A nil *Document is the Absent sentinel: every
// extraction against it returns the declared default.
type Document struct {
	doc *goquery.Document
	url *url.URL // page address when fetched, nil for files and stdin
}

// NewDocument parses html into a Document.
func NewDocument(html string) (*Document, error) {
	return NewDocumentFromReader(strings.NewReader(html))
}

// NewDocumentFromReader parses an HTML stream into a Document.
func NewDocumentFromReader(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{doc: doc}, nil
}

// Absent reports whether d is the Absent sentinel.
func (d *Document) Absent() bool {
	return d == nil || d.doc == nil
}

// Root returns the document root selection, or nil when d is Absent.
func (d *Document) Root() *goquery.Selection {
	if d.Absent() {
		return nil
	}
	return d.doc.Selection
}

// URL returns the address the page was fetched from, or nil.
func (d *Document) URL() *url.URL {
	if d.Absent() {
		return nil
	}
	return d.url
}
