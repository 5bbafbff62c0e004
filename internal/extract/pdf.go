// Package extract turns source documents into books: ordered page text,
// outline chapters and document info.
package extract

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_extractor.go -package=mocks raggedbooks/internal/extract Extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"raggedbooks/internal/apperr"
	"raggedbooks/internal/book"
	"raggedbooks/internal/contextutil"
)

const (
	maxOutlineDepth = 32
	maxOutlineItems = 10000
	maxNameTreeHops = 64
)

// Extractor loads a document from disk.
type Extractor interface {
	Extract(ctx context.Context, path string) (*book.Book, error)
}

// PDFExtractor extracts books from PDF files.
type PDFExtractor struct{}

// NewPDFExtractor creates a PDF extractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract reads every page of the PDF at path along with its outline and
// info dictionary. Pages keep their 1-based numbers; pages whose text
// cannot be decoded are kept with empty text. A missing title falls back
// to the file name without extension.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (b *book.Book, err error) {
	const op = "extract.pdf"
	logger := contextutil.LoggerFromContext(ctx)

	if _, statErr := os.Stat(path); statErr != nil {
		return nil, apperr.Extraction(op, statErr)
	}

	// The parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			b = nil
			err = apperr.Extraction(op, fmt.Errorf("parse %s: %v", filepath.Base(path), r))
		}
	}()

	f, reader, openErr := pdflib.Open(path)
	if openErr != nil {
		return nil, apperr.Extraction(op, fmt.Errorf("open %s: %w", filepath.Base(path), openErr))
	}
	defer f.Close()

	numPages := reader.NumPage()
	if numPages == 0 {
		return nil, apperr.Extraction(op, fmt.Errorf("%s has no pages", filepath.Base(path)))
	}

	pages := make([]book.Page, 0, numPages)
	fingerprints := make(map[string]int, numPages)
	for i := 1; i <= numPages; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		if _, seen := fingerprints[page.V.String()]; !seen {
			fingerprints[page.V.String()] = i
		}
		text, textErr := page.GetPlainText(nil)
		if textErr != nil {
			logger.WarnContext(ctx, "failed to extract page text", "file", filepath.Base(path), "page", i, "error", textErr)
			text = ""
		}
		pages = append(pages, book.Page{Number: i, Text: text})
	}

	root := reader.Trailer().Key("Root")
	outline := &outlineWalker{
		root:         root,
		fingerprints: fingerprints,
	}
	outline.walk(root.Key("Outlines").Key("First"), 0)
	if outline.unresolved > 0 {
		logger.DebugContext(ctx, "outline entries without a target page", "file", filepath.Base(path), "count", outline.unresolved)
	}

	info := reader.Trailer().Key("Info")
	title := strings.TrimSpace(info.Key("Title").Text())
	if title == "" {
		title = titleFromFilename(path)
	}

	b = &book.Book{
		Title:    title,
		Authors:  strings.TrimSpace(info.Key("Author").Text()),
		Filename: filepath.Base(path),
		Pages:    pages,
		Chapters: outline.chapters,
	}
	logger.DebugContext(ctx, "extracted pdf",
		"file", b.Filename,
		"pages", len(b.Pages),
		"chapters", len(b.Chapters),
	)
	return b, nil
}

// outlineWalker flattens the outline tree into chapters in document order.
type outlineWalker struct {
	root         pdflib.Value
	fingerprints map[string]int
	chapters     []book.Chapter
	visited      int
	unresolved   int
}

func (w *outlineWalker) walk(item pdflib.Value, level int) {
	if level >= maxOutlineDepth {
		return
	}
	for ; !item.IsNull() && w.visited < maxOutlineItems; item = item.Key("Next") {
		w.visited++
		title := item.Key("Title").Text()
		if page, ok := w.targetPage(item); ok {
			w.chapters = append(w.chapters, book.Chapter{Title: title, Level: level, Page: page})
		} else {
			w.unresolved++
		}
		w.walk(item.Key("First"), level+1)
	}
}

// targetPage resolves an outline item's destination to a 1-based page
// number, following GoTo actions and named destinations.
func (w *outlineWalker) targetPage(item pdflib.Value) (int, bool) {
	dest := item.Key("Dest")
	if dest.IsNull() {
		action := item.Key("A")
		if action.Key("S").Name() != "GoTo" {
			return 0, false
		}
		dest = action.Key("D")
	}
	return w.destPage(dest)
}

func (w *outlineWalker) destPage(dest pdflib.Value) (int, bool) {
	switch dest.Kind() {
	case pdflib.Name:
		dest = w.root.Key("Dests").Key(dest.Name())
	case pdflib.String:
		var err error
		dest, err = lookupNameTree(w.root.Key("Names").Key("Dests"), dest.RawString())
		if err != nil {
			return 0, false
		}
	}
	if dest.Kind() == pdflib.Dict {
		dest = dest.Key("D")
	}
	if dest.Kind() != pdflib.Array || dest.Len() == 0 {
		return 0, false
	}

	target := dest.Index(0)
	switch target.Kind() {
	case pdflib.Integer:
		// Remote-style destinations carry a 0-based page index.
		return int(target.Int64()) + 1, true
	case pdflib.Dict:
		page, ok := w.fingerprints[target.String()]
		return page, ok
	default:
		return 0, false
	}
}

var errNameNotFound = errors.New("name not found")

// lookupNameTree finds key in a PDF name tree.
func lookupNameTree(node pdflib.Value, key string) (pdflib.Value, error) {
	return lookupNameTreeDepth(node, key, 0)
}

func lookupNameTreeDepth(node pdflib.Value, key string, depth int) (pdflib.Value, error) {
	if node.IsNull() || depth > maxNameTreeHops {
		return pdflib.Value{}, errNameNotFound
	}
	names := node.Key("Names")
	for i := 0; i+1 < names.Len(); i += 2 {
		if names.Index(i).RawString() == key {
			return names.Index(i + 1), nil
		}
	}
	kids := node.Key("Kids")
	for i := 0; i < kids.Len(); i++ {
		kid := kids.Index(i)
		if limits := kid.Key("Limits"); limits.Len() == 2 {
			if key < limits.Index(0).RawString() || key > limits.Index(1).RawString() {
				continue
			}
		}
		if v, err := lookupNameTreeDepth(kid, key, depth+1); err == nil {
			return v, nil
		}
	}
	return pdflib.Value{}, errNameNotFound
}

func titleFromFilename(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
