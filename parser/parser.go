package parser

import "context"

// Result is the uniform output contract every parser produces.
type Result struct {
	// Content is the normalized extracted text.
	Content string `json:"content"`

	// Structure is the format-specific structure descriptor. It holds one
	// of the closed set of descriptor types: PDFStructure, DOCXStructure,
	// TXTStructure, XLSXStructure. Always present on success, even if empty.
	Structure any `json:"structure"`

	// Metadata holds best-effort document metadata. Absent fields are
	// omitted, never null-filled.
	Metadata Metadata `json:"metadata"`

	// Encoding and Confidence are populated by the TXT parser only.
	Encoding   string  `json:"encoding,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Metadata maps metadata field names to string or integer values.
type Metadata map[string]any

// Parser converts raw document bytes into a Result.
//
// A parser instance holds single-document state: Parse resets that state,
// so concurrent Parse calls on one instance are not safe. Instances are
// cheap; create one per document via the Registry.
type Parser interface {
	// Parse decodes content and extracts text, structure and metadata, in
	// that order. It returns a fully populated Result or a typed error
	// from the taxonomy in errors.go, never a partial result.
	Parse(ctx context.Context, content []byte) (*Result, error)

	// Validate checks the content already given to the parser (signature
	// and basic structure). It returns an ErrValidation-wrapped error on
	// failure, and ErrParsing when no content has been set.
	Validate() error

	// ExtractMetadata returns best-effort metadata for the document last
	// given to Parse. It never fails: any internal error degrades to an
	// empty map.
	ExtractMetadata() Metadata
}

// PDFStructure describes the layout of a parsed PDF.
type PDFStructure struct {
	Pages    []PDFPage      `json:"pages"`
	Sections []OutlineEntry `json:"sections"`
	Images   []PDFImage     `json:"images"`
	Outline  []OutlineEntry `json:"outline,omitempty"`
}

// PDFPage describes a single page. Number is 1-based; Width and Height
// come from the page MediaBox in PDF units.
type PDFPage struct {
	Number   int     `json:"number"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation int     `json:"rotation"`
}

// PDFImage is a descriptor for an embedded image XObject.
type PDFImage struct {
	Page int    `json:"page"`
	Name string `json:"name"`
}

// OutlineEntry is one node of a flattened PDF outline (bookmark) tree.
// Entries carry no page number: the reader library does not resolve
// outline destinations to pages.
type OutlineEntry struct {
	Title    string         `json:"title"`
	Children []OutlineEntry `json:"children,omitempty"`
}

// DOCXStructure describes the layout of a parsed DOCX.
type DOCXStructure struct {
	Sections []DOCXSection `json:"sections"`
	Headings []DOCXHeading `json:"headings"`
	Tables   []DOCXTable   `json:"tables"`
	Lists    []DOCXList    `json:"lists"`
}

// DOCXSection describes one document section. Page dimensions are in points.
type DOCXSection struct {
	Number      int     `json:"number"`
	PageWidth   float64 `json:"page_width"`
	PageHeight  float64 `json:"page_height"`
	Orientation string  `json:"orientation"`
}

// DOCXHeading is a paragraph styled "Heading N". Position is the index of
// the paragraph within the document body.
type DOCXHeading struct {
	Level    int    `json:"level"`
	Text     string `json:"text"`
	Position int    `json:"position"`
}

// DOCXTable summarises one table.
type DOCXTable struct {
	Number  int `json:"number"`
	Rows    int `json:"rows"`
	Columns int `json:"columns"`
}

// DOCXList is reserved; DOCX list detection is not performed.
type DOCXList struct {
	Number int `json:"number"`
	Items  int `json:"items"`
}

// TXTStructure describes the inferred structure of a plain-text document.
type TXTStructure struct {
	Headers     []TXTHeading    `json:"headers"`
	Lists       [][]TXTListItem `json:"lists"`
	Paragraphs  []string        `json:"paragraphs"`
	Indentation []TXTIndent     `json:"indentation"`
	Sections    []TXTSection    `json:"sections"`
}

// TXTHeading is a detected heading. Line is 1-based.
type TXTHeading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	Line  int    `json:"line"`
}

// TXTListItem is one bullet or numbered list entry.
type TXTListItem struct {
	Text string `json:"text"`
	Line int    `json:"line"`
	Type string `json:"type"` // "bullet" or "numbered"
}

// TXTIndent records the leading-whitespace width of a non-blank line.
type TXTIndent struct {
	Line  int `json:"line"`
	Level int `json:"level"`
}

// TXTSection groups the lines following a heading until the next heading.
type TXTSection struct {
	Title     string   `json:"title"`
	Level     int      `json:"level"`
	StartLine int      `json:"start_line"`
	Content   []string `json:"content"`
}

// XLSXStructure describes a parsed workbook.
type XLSXStructure struct {
	Sheets []XLSXSheet `json:"sheets"`
}

// XLSXSheet summarises one worksheet.
type XLSXSheet struct {
	Number  int    `json:"number"`
	Name    string `json:"name"`
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`
}
