package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// pdfBuilder assembles a tiny but well-formed PDF with a correct xref
// table, so offsets stay valid no matter how the object bodies change.
type pdfBuilder struct {
	buf     bytes.Buffer
	offsets []int
}

func newPDFBuilder() *pdfBuilder {
	b := &pdfBuilder{}
	b.buf.WriteString("%PDF-1.4\n")
	return b
}

func (b *pdfBuilder) obj(body string) {
	b.offsets = append(b.offsets, b.buf.Len())
	b.buf.WriteString(body)
}

func (b *pdfBuilder) finish(trailerExtra string) []byte {
	xref := b.buf.Len()
	fmt.Fprintf(&b.buf, "xref\n0 %d\n", len(b.offsets)+1)
	b.buf.WriteString("0000000000 65535 f \n")
	for _, off := range b.offsets {
		fmt.Fprintf(&b.buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b.buf, "trailer\n<< /Size %d /Root 1 0 R /Info 6 0 R%s >>\nstartxref\n%d\n%%%%EOF\n",
		len(b.offsets)+1, trailerExtra, xref)
	return b.buf.Bytes()
}

func buildPDF(t *testing.T, text string) []byte {
	t.Helper()
	b := newPDFBuilder()
	b.obj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	b.obj("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 612 792] >>\nendobj\n")
	b.obj("3 0 obj\n<< /Type /Page /Parent 2 0 R /Rotate 0 /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>\nendobj\n")
	stream := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
	b.obj(fmt.Sprintf("4 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", len(stream), stream))
	b.obj("5 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")
	b.obj("6 0 obj\n<< /Title (Annual Report) /Author (Jane Dev) /CreationDate (D:20240328123456) >>\nendobj\n")
	return b.finish("")
}

func buildOutlinePDF(t *testing.T) []byte {
	t.Helper()
	b := newPDFBuilder()
	b.obj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R /Outlines 7 0 R >>\nendobj\n")
	b.obj("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 612 792] >>\nendobj\n")
	b.obj("3 0 obj\n<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>\nendobj\n")
	stream := "BT /F1 12 Tf 72 712 Td (Chapter body) Tj ET"
	b.obj(fmt.Sprintf("4 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", len(stream), stream))
	b.obj("5 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")
	b.obj("6 0 obj\n<< /Title (Outlined) >>\nendobj\n")
	b.obj("7 0 obj\n<< /Type /Outlines /First 8 0 R /Last 8 0 R /Count 2 >>\nendobj\n")
	b.obj("8 0 obj\n<< /Title (Chapter 1) /Parent 7 0 R /First 9 0 R /Last 9 0 R /Count 1 >>\nendobj\n")
	b.obj("9 0 obj\n<< /Title (Section 1.1) /Parent 8 0 R >>\nendobj\n")
	return b.finish("")
}

// buildTwoPagePDF returns a document whose second page object is
// syntactically broken (an unterminated string), while the first page
// stays readable.
func buildTwoPagePDF(t *testing.T) []byte {
	t.Helper()
	b := newPDFBuilder()
	b.obj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	b.obj("2 0 obj\n<< /Type /Pages /Kids [3 0 R 7 0 R] /Count 2 /MediaBox [0 0 612 792] >>\nendobj\n")
	b.obj("3 0 obj\n<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>\nendobj\n")
	stream := "BT /F1 12 Tf 72 712 Td (Good page text) Tj ET"
	b.obj(fmt.Sprintf("4 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", len(stream), stream))
	b.obj("5 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")
	b.obj("6 0 obj\n<< /Title (Partially Broken) >>\nendobj\n")
	b.obj("7 0 obj\n<< /Type /Page /Parent 2 0 R /Contents (unterminated\nendobj\n")
	return b.finish("")
}

// buildPDFWithBadInfo returns a document whose information dictionary
// object is unreadable while pages stay intact.
func buildPDFWithBadInfo(t *testing.T) []byte {
	t.Helper()
	b := newPDFBuilder()
	b.obj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	b.obj("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 612 792] >>\nendobj\n")
	b.obj("3 0 obj\n<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>\nendobj\n")
	stream := "BT /F1 12 Tf 72 712 Td (Body without metadata) Tj ET"
	b.obj(fmt.Sprintf("4 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", len(stream), stream))
	b.obj("5 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")
	b.obj("6 0 obj\n<< /Title (unterminated\nendobj\n")
	return b.finish("")
}

func buildEncryptedPDF(t *testing.T) []byte {
	t.Helper()
	b := newPDFBuilder()
	b.obj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	b.obj("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 612 792] >>\nendobj\n")
	b.obj("3 0 obj\n<< /Type /Page /Parent 2 0 R >>\nendobj\n")
	b.obj("4 0 obj\n<< /Length 0 >>\nstream\n\nendstream\nendobj\n")
	b.obj("5 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")
	b.obj("6 0 obj\n<< /Title (locked) >>\nendobj\n")
	// Standard security handler with owner/user hashes that no password
	// (including the empty one) can satisfy.
	garbage := strings.Repeat("01", 32)
	extra := fmt.Sprintf(" /Encrypt << /Filter /Standard /V 1 /R 2 /O <%s> /U <%s> /P -1 >> /ID [<0123456789abcdef0123456789abcdef> <0123456789abcdef0123456789abcdef>]",
		garbage, garbage)
	return b.finish(extra)
}

func TestPDFParse(t *testing.T) {
	doc := buildPDF(t, "Hello PDF parsing world")

	p := NewPDFParser()
	res, err := p.Parse(context.Background(), doc)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if !strings.Contains(res.Content, "Hello PDF parsing world") {
		t.Errorf("content = %q, want the page text", res.Content)
	}

	st, ok := res.Structure.(PDFStructure)
	if !ok {
		t.Fatalf("structure is %T, want PDFStructure", res.Structure)
	}
	if len(st.Pages) != 1 {
		t.Fatalf("pages = %+v, want exactly one", st.Pages)
	}
	page := st.Pages[0]
	if page.Number != 1 {
		t.Errorf("page number = %d, want 1", page.Number)
	}
	if page.Width != 612 || page.Height != 792 {
		t.Errorf("page size = %vx%v, want 612x792", page.Width, page.Height)
	}
	if page.Rotation != 0 {
		t.Errorf("rotation = %d, want 0", page.Rotation)
	}

	if res.Metadata["title"] != "Annual Report" {
		t.Errorf("title = %v, want Annual Report", res.Metadata["title"])
	}
	if res.Metadata["author"] != "Jane Dev" {
		t.Errorf("author = %v, want Jane Dev", res.Metadata["author"])
	}
	if res.Metadata["creation_date"] != "2024-03-28T12:34:56" {
		t.Errorf("creation_date = %v, want 2024-03-28T12:34:56", res.Metadata["creation_date"])
	}
	if res.Metadata["page_count"] != 1 {
		t.Errorf("page_count = %v, want 1", res.Metadata["page_count"])
	}
}

func TestPDFOutline(t *testing.T) {
	p := NewPDFParser()
	res, err := p.Parse(context.Background(), buildOutlinePDF(t))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	st, ok := res.Structure.(PDFStructure)
	if !ok {
		t.Fatalf("structure is %T, want PDFStructure", res.Structure)
	}
	if len(st.Outline) != 1 {
		t.Fatalf("outline = %+v, want one top-level entry", st.Outline)
	}
	chapter := st.Outline[0]
	if chapter.Title != "Chapter 1" {
		t.Errorf("outline title = %q, want Chapter 1", chapter.Title)
	}
	if len(chapter.Children) != 1 || chapter.Children[0].Title != "Section 1.1" {
		t.Errorf("outline children = %+v, want one Section 1.1 entry", chapter.Children)
	}
	if len(st.Sections) != 1 || st.Sections[0].Title != "Chapter 1" {
		t.Errorf("sections = %+v, want the outline entries", st.Sections)
	}

	// A document without bookmarks gets empty lists, not nil panic bait.
	p = NewPDFParser()
	res, err = p.Parse(context.Background(), buildPDF(t, "no bookmarks"))
	if err != nil {
		t.Fatal(err)
	}
	st = res.Structure.(PDFStructure)
	if len(st.Outline) != 0 || len(st.Sections) != 0 {
		t.Errorf("outline/sections = %+v/%+v, want empty", st.Outline, st.Sections)
	}
}

func TestPDFBrokenPageSkipped(t *testing.T) {
	p := NewPDFParser()
	res, err := p.Parse(context.Background(), buildTwoPagePDF(t))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if !strings.Contains(res.Content, "Good page text") {
		t.Errorf("content = %q, want the readable page's text", res.Content)
	}

	// Structure extraction hits the broken page object and degrades to
	// empty defaults rather than failing the parse.
	st, ok := res.Structure.(PDFStructure)
	if !ok {
		t.Fatalf("structure is %T, want PDFStructure", res.Structure)
	}
	if len(st.Pages) != 0 {
		t.Errorf("pages = %+v, want degraded empty list", st.Pages)
	}

	if res.Metadata["page_count"] != 2 {
		t.Errorf("page_count = %v, want 2", res.Metadata["page_count"])
	}
	if res.Metadata["title"] != "Partially Broken" {
		t.Errorf("title = %v, want Partially Broken", res.Metadata["title"])
	}
}

func TestPDFMetadataDegradesToEmpty(t *testing.T) {
	p := NewPDFParser()
	res, err := p.Parse(context.Background(), buildPDFWithBadInfo(t))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if !strings.Contains(res.Content, "Body without metadata") {
		t.Errorf("content = %q, want the page text", res.Content)
	}
	if len(res.Metadata) != 0 {
		t.Errorf("metadata = %+v, want empty map after unreadable info dictionary", res.Metadata)
	}
}

func TestPDFParseDamaged(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
	}{
		{"not_a_pdf", []byte("This is plain text, not a PDF at all.")},
		{"truncated", []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog")},
		{"garbage_after_header", append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte{0xff}, 64)...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPDFParser()
			_, err := p.Parse(context.Background(), tt.content)
			if err == nil {
				t.Fatal("Parse of damaged input succeeded")
			}
			if !errors.Is(err, ErrDamaged) && !errors.Is(err, ErrParsing) {
				t.Errorf("Parse error = %v, want ErrDamaged or ErrParsing", err)
			}
		})
	}
}

func TestPDFParseEncrypted(t *testing.T) {
	p := NewPDFParser()
	_, err := p.Parse(context.Background(), buildEncryptedPDF(t))
	if !errors.Is(err, ErrEncrypted) {
		t.Errorf("Parse of encrypted document = %v, want ErrEncrypted", err)
	}
}

func TestPDFValidate(t *testing.T) {
	p := NewPDFParser()
	if err := p.Validate(); !errors.Is(err, ErrParsing) {
		t.Errorf("Validate without content = %v, want ErrParsing", err)
	}

	if _, err := p.Parse(context.Background(), []byte("not a pdf header")); err == nil {
		t.Fatal("Parse of non-PDF bytes succeeded")
	}
	if err := p.Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("Validate of non-PDF bytes = %v, want ErrValidation", err)
	}

	p = NewPDFParser()
	if _, err := p.Parse(context.Background(), buildPDF(t, "valid")); err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate of valid document = %v, want nil", err)
	}
}

func TestParsePDFDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"D:20240328123456", "2024-03-28T12:34:56"},
		{"D:20240328123456+01'00'", "2024-03-28T12:34:56"},
		{"20240328123456", "2024-03-28T12:34:56"},
		{"D:2024", ""},
		{"invalid", ""},
		{"", ""},
		{"D:20241399999999", ""},
	}
	for _, tt := range tests {
		if got := parsePDFDate(tt.in); got != tt.want {
			t.Errorf("parsePDFDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClassifyPDFOpenError(t *testing.T) {
	tests := []struct {
		msg  string
		want error
	}{
		{"not a PDF file: invalid header", ErrDamaged},
		{"malformed PDF: cannot find startxref", ErrDamaged},
		{"invalid xref table", ErrDamaged},
		{"unexpected EOF", ErrDamaged},
		{"something else entirely", ErrParsing},
	}
	for _, tt := range tests {
		got := classifyPDFOpenError(tt.msg)
		if !errors.Is(got, tt.want) {
			t.Errorf("classifyPDFOpenError(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}
