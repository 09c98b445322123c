package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// pdfMagic is the 5-byte signature every valid PDF starts with.
var pdfMagic = []byte("%PDF-")

// PDFParser parses PDF documents.
type PDFParser struct {
	content contentBuffer
	reader  *pdf.Reader
}

func NewPDFParser() *PDFParser { return &PDFParser{} }

// Parse opens the bytes as a PDF and extracts text, structure and
// metadata. Encrypted documents are rejected outright; unreadable
// containers fail with ErrDamaged.
func (p *PDFParser) Parse(ctx context.Context, content []byte) (*Result, error) {
	p.reader = nil
	p.content.set(content)

	reader, err := openPDF(content)
	if err != nil {
		return nil, err
	}

	// The library tries the empty user password while opening, so a
	// weakly encrypted document can open successfully. Reject any
	// document that carries an /Encrypt dictionary regardless.
	if pdfIsEncrypted(reader) {
		return nil, fmt.Errorf("%w: pdf: cannot parse encrypted document", ErrEncrypted)
	}
	p.reader = reader

	return &Result{
		Content:   p.extractText(),
		Structure: p.extractStructure(),
		Metadata:  p.ExtractMetadata(),
	}, nil
}

// Validate checks the PDF signature and that the document opens with at
// least one page. It requires content to have been set.
func (p *PDFParser) Validate() error {
	content, err := p.content.bytes()
	if err != nil {
		return err
	}
	if !bytes.HasPrefix(content, pdfMagic) {
		return fmt.Errorf("%w: not a valid PDF file (missing PDF signature)", ErrValidation)
	}
	reader, err := openPDF(content)
	if err != nil {
		return fmt.Errorf("%w: invalid PDF structure: %v", ErrValidation, err)
	}
	if reader.NumPage() == 0 {
		return fmt.Errorf("%w: PDF has no pages", ErrValidation)
	}
	return nil
}

// ExtractMetadata maps the document information dictionary to metadata
// fields and always includes the page count. It never fails; any internal
// error degrades to an empty map.
func (p *PDFParser) ExtractMetadata() (md Metadata) {
	md = Metadata{}
	if p.reader == nil {
		return md
	}
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("pdf: metadata extraction failed", "error", rec)
			md = Metadata{}
		}
	}()

	info := p.reader.Trailer().Key("Info")
	fields := []struct{ key, name string }{
		{"Title", "title"},
		{"Author", "author"},
		{"Subject", "subject"},
		{"Keywords", "keywords"},
		{"Producer", "producer"},
		{"Creator", "creator"},
	}
	for _, f := range fields {
		if s := info.Key(f.key).Text(); s != "" {
			md[f.name] = s
		}
	}
	if d := parsePDFDate(info.Key("CreationDate").Text()); d != "" {
		md["creation_date"] = d
	}
	if d := parsePDFDate(info.Key("ModDate").Text()); d != "" {
		md["modification_date"] = d
	}
	md["page_count"] = p.reader.NumPage()
	return md
}

// extractText concatenates per-page text, pages joined by a blank line.
// A single failing page is logged and skipped; the rest still contribute.
func (p *PDFParser) extractText() string {
	var pages []string
	for i := 1; i <= p.reader.NumPage(); i++ {
		text, err := pdfPageText(p.reader, i)
		if err != nil {
			slog.Warn("pdf: text extraction failed for page", "page", i, "error", err)
			continue
		}
		if text != "" {
			pages = append(pages, text)
		}
	}
	return strings.Join(pages, "\n\n")
}

// extractStructure builds per-page descriptors and flattens the outline
// tree when one exists. Any failure degrades to an empty structure.
func (p *PDFParser) extractStructure() (s PDFStructure) {
	s = PDFStructure{Pages: []PDFPage{}, Sections: []OutlineEntry{}, Images: []PDFImage{}}
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("pdf: structure extraction failed", "error", rec)
			s = PDFStructure{Pages: []PDFPage{}, Sections: []OutlineEntry{}, Images: []PDFImage{}}
		}
	}()

	for i := 1; i <= p.reader.NumPage(); i++ {
		page := p.reader.Page(i)
		w, h := pdfPageSize(page)
		s.Pages = append(s.Pages, PDFPage{
			Number:   i,
			Width:    w,
			Height:   h,
			Rotation: int(pdfInheritedInt(page, "Rotate")),
		})
	}

	if outline := p.reader.Outline(); len(outline.Child) > 0 {
		entries := flattenOutline(outline.Child)
		s.Sections = entries
		s.Outline = entries
	}
	return s
}

// flattenOutline converts the library's outline tree into entries.
func flattenOutline(items []pdf.Outline) []OutlineEntry {
	entries := make([]OutlineEntry, 0, len(items))
	for _, item := range items {
		entry := OutlineEntry{Title: item.Title}
		if len(item.Child) > 0 {
			entry.Children = flattenOutline(item.Child)
		}
		entries = append(entries, entry)
	}
	return entries
}

// openPDF opens content as a PDF, classifying failures into the error
// taxonomy. The library panics on some malformed structures; panics are
// classified through the same rules as returned errors.
func openPDF(content []byte) (reader *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reader = nil
			err = classifyPDFOpenError(fmt.Sprint(rec))
		}
	}()

	reader, oerr := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if oerr != nil {
		if errors.Is(oerr, pdf.ErrInvalidPassword) {
			return nil, fmt.Errorf("%w: pdf: %v", ErrEncrypted, oerr)
		}
		return nil, classifyPDFOpenError(oerr.Error())
	}
	return reader, nil
}

// classifyPDFOpenError maps an open-time failure message to ErrDamaged
// when it indicates a container/format problem, ErrParsing otherwise.
func classifyPDFOpenError(msg string) error {
	lower := strings.ToLower(msg)
	for _, marker := range []string{
		"not a pdf", "invalid header", "malformed", "xref", "startxref",
		"trailer", "seek", "eof", "offset", "corrupt",
	} {
		if strings.Contains(lower, marker) {
			return fmt.Errorf("%w: failed to read PDF: %s", ErrDamaged, msg)
		}
	}
	return fmt.Errorf("%w: pdf: %s", ErrParsing, msg)
}

// pdfIsEncrypted reports whether the document trailer carries an /Encrypt
// dictionary.
func pdfIsEncrypted(reader *pdf.Reader) (encrypted bool) {
	defer func() {
		if recover() != nil {
			encrypted = false
		}
	}()
	return !reader.Trailer().Key("Encrypt").IsNull()
}

// pdfPageText extracts plain text from one page, guarding against
// library panics on broken content streams.
func pdfPageText(reader *pdf.Reader, number int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = fmt.Errorf("page %d: %v", number, rec)
		}
	}()

	page := reader.Page(number)
	if page.V.IsNull() {
		return "", nil
	}
	text, err = page.GetPlainText(nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// pdfPageSize resolves the page MediaBox, walking up the page tree for
// inherited values.
func pdfPageSize(page pdf.Page) (width, height float64) {
	v := page.V
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		if mb := v.Key("MediaBox"); !mb.IsNull() && mb.Len() == 4 {
			width = mb.Index(2).Float64() - mb.Index(0).Float64()
			height = mb.Index(3).Float64() - mb.Index(1).Float64()
			return width, height
		}
		v = v.Key("Parent")
	}
	return 0, 0
}

// pdfInheritedInt resolves an inheritable integer page attribute.
func pdfInheritedInt(page pdf.Page, key string) int64 {
	v := page.V
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		if attr := v.Key(key); !attr.IsNull() {
			return attr.Int64()
		}
		v = v.Key("Parent")
	}
	return 0
}

// parsePDFDate converts a PDF date string (D:YYYYMMDDHHmmSS with optional
// timezone suffix) to ISO-8601. Malformed input yields an empty string.
func parsePDFDate(s string) string {
	s = strings.TrimPrefix(s, "D:")
	if len(s) < 14 {
		return ""
	}
	t, err := time.Parse("20060102150405", s[:14])
	if err != nil {
		return ""
	}
	return t.Format("2006-01-02T15:04:05")
}
