package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// zipMagic is the ZIP local-file-header signature DOCX/XLSX packages
// start with.
var zipMagic = []byte("PK")

// DOCXParser parses DOCX documents by reading the OOXML package directly.
type DOCXParser struct {
	content contentBuffer
	pkg     *docxPackage
}

func NewDOCXParser() *DOCXParser { return &DOCXParser{} }

// Parse opens the bytes as a DOCX package and extracts text, structure
// and metadata. Unreadable packages fail with ErrCorrupted.
func (p *DOCXParser) Parse(ctx context.Context, content []byte) (*Result, error) {
	p.pkg = nil
	p.content.set(content)

	pkg, err := openDOCX(content)
	if err != nil {
		return nil, err
	}
	p.pkg = pkg

	return &Result{
		Content:   p.extractText(),
		Structure: p.extractStructure(),
		Metadata:  p.ExtractMetadata(),
	}, nil
}

// Validate checks the ZIP signature and that the package opens. A
// document with no paragraphs and no tables is logged, not rejected.
func (p *DOCXParser) Validate() error {
	content, err := p.content.bytes()
	if err != nil {
		return err
	}
	if !bytes.HasPrefix(content, zipMagic) {
		return fmt.Errorf("%w: not a valid DOCX file (missing ZIP signature)", ErrValidation)
	}
	pkg, err := openDOCX(content)
	if err != nil {
		return fmt.Errorf("%w: invalid DOCX structure: %v", ErrValidation, err)
	}
	if len(pkg.doc.Body.Paras) == 0 && len(pkg.doc.Body.Tables) == 0 {
		slog.Warn("docx: document has no paragraphs or tables")
	}
	return nil
}

// ExtractMetadata maps the package core properties to metadata fields and
// always includes paragraph/table/section counts. It never fails.
func (p *DOCXParser) ExtractMetadata() Metadata {
	md := Metadata{}
	if p.pkg == nil {
		return md
	}

	core := p.pkg.core
	for _, f := range []struct{ name, value string }{
		{"title", core.Title},
		{"author", core.Creator},
		{"subject", core.Subject},
		{"keywords", core.Keywords},
		{"category", core.Category},
		{"comments", core.Description},
	} {
		if f.value != "" {
			md[f.name] = f.value
		}
	}
	if d := formatDOCXDate(core.Created); d != "" {
		md["creation_date"] = d
	}
	if d := formatDOCXDate(core.Modified); d != "" {
		md["modification_date"] = d
	}
	if d := formatDOCXDate(core.LastPrinted); d != "" {
		md["last_printed"] = d
	}

	md["paragraph_count"] = len(p.pkg.doc.Body.Paras)
	md["table_count"] = len(p.pkg.doc.Body.Tables)
	md["section_count"] = len(p.pkg.sectionProps())
	return md
}

// extractText joins non-empty paragraph lines with newlines, then appends
// table rows rendered as cell texts joined by " | ".
func (p *DOCXParser) extractText() string {
	var lines []string

	for _, para := range p.pkg.doc.Body.Paras {
		if text := strings.TrimSpace(paraText(para)); text != "" {
			lines = append(lines, text)
		}
	}

	for _, tbl := range p.pkg.doc.Body.Tables {
		for _, row := range tbl.Rows {
			var cells []string
			for _, cell := range row.Cells {
				if text := strings.TrimSpace(cellText(cell)); text != "" {
					cells = append(cells, text)
				}
			}
			if len(cells) > 0 {
				lines = append(lines, strings.Join(cells, " | "))
			}
		}
	}

	return strings.Join(lines, "\n")
}

// extractStructure builds section, heading and table descriptors. Any
// failure degrades to all-empty lists.
func (p *DOCXParser) extractStructure() (s DOCXStructure) {
	s = emptyDOCXStructure()
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("docx: structure extraction failed", "error", rec)
			s = emptyDOCXStructure()
		}
	}()

	for i, sect := range p.pkg.sectionProps() {
		width, height := sect.pageSizePt()
		orientation := "landscape"
		if width < height {
			orientation = "portrait"
		}
		s.Sections = append(s.Sections, DOCXSection{
			Number:      i + 1,
			PageWidth:   width,
			PageHeight:  height,
			Orientation: orientation,
		})
	}

	for i, para := range p.pkg.doc.Body.Paras {
		level, ok := headingStyleLevel(paraStyle(para))
		if !ok {
			continue
		}
		s.Headings = append(s.Headings, DOCXHeading{
			Level:    level,
			Text:     paraText(para),
			Position: i,
		})
	}

	for i, tbl := range p.pkg.doc.Body.Tables {
		s.Tables = append(s.Tables, DOCXTable{
			Number:  i + 1,
			Rows:    len(tbl.Rows),
			Columns: tableColumns(tbl),
		})
	}

	return s
}

func emptyDOCXStructure() DOCXStructure {
	return DOCXStructure{
		Sections: []DOCXSection{},
		Headings: []DOCXHeading{},
		Tables:   []DOCXTable{},
		Lists:    []DOCXList{},
	}
}

// docxPackage is the decoded OOXML package: the main document part plus
// optional core properties.
type docxPackage struct {
	doc  docxDocument
	core docxCoreProps
}

// openDOCX opens content as a DOCX package, classifying failures into the
// error taxonomy.
func openDOCX(content []byte) (*docxPackage, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, classifyDOCXOpenError(err)
	}

	fileIndex := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		fileIndex[f.Name] = f
	}

	docFile := fileIndex["word/document.xml"]
	if docFile == nil {
		return nil, fmt.Errorf("%w: failed to read DOCX: package part word/document.xml not found", ErrCorrupted)
	}

	data, err := readZipFile(docFile)
	if err != nil {
		return nil, classifyDOCXOpenError(err)
	}

	pkg := &docxPackage{}
	if err := xml.Unmarshal(data, &pkg.doc); err != nil {
		return nil, fmt.Errorf("%w: docx: parsing document.xml: %v", ErrParsing, err)
	}

	// Core properties are best-effort; a broken part only loses metadata.
	if coreFile := fileIndex["docProps/core.xml"]; coreFile != nil {
		if data, err := readZipFile(coreFile); err == nil {
			if err := xml.Unmarshal(data, &pkg.core); err != nil {
				slog.Debug("docx: failed to parse core properties", "error", err)
			}
		}
	}

	return pkg, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// classifyDOCXOpenError maps an open failure to ErrCorrupted when the
// message indicates a zip/package problem, ErrParsing otherwise.
func classifyDOCXOpenError(err error) error {
	if errors.Is(err, zip.ErrFormat) || errors.Is(err, zip.ErrChecksum) {
		return fmt.Errorf("%w: failed to read DOCX: %v", ErrCorrupted, err)
	}
	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "zip") || strings.Contains(lower, "package") {
		return fmt.Errorf("%w: invalid DOCX format: %v", ErrCorrupted, err)
	}
	return fmt.Errorf("%w: docx: %v", ErrParsing, err)
}

// sectionProps returns all section properties in document order:
// paragraph-level section breaks first, then the body-level trailing one.
func (p *docxPackage) sectionProps() []docxSectPr {
	var sections []docxSectPr
	for _, para := range p.doc.Body.Paras {
		if para.PPr != nil && para.PPr.SectPr != nil {
			sections = append(sections, *para.PPr.SectPr)
		}
	}
	if p.doc.Body.SectPr != nil {
		sections = append(sections, *p.doc.Body.SectPr)
	}
	return sections
}

// DOCX XML structures (simplified)
type docxDocument struct {
	XMLName xml.Name `xml:"document"`
	Body    docxBody `xml:"body"`
}

type docxBody struct {
	XMLName xml.Name    `xml:"body"`
	Paras   []docxPara  `xml:"p"`
	Tables  []docxTable `xml:"tbl"`
	SectPr  *docxSectPr `xml:"sectPr"`
}

type docxPara struct {
	XMLName xml.Name    `xml:"p"`
	PPr     *docxParaPr `xml:"pPr"`
	Runs    []docxRun   `xml:"r"`
}

type docxParaPr struct {
	PStyle *docxPStyle `xml:"pStyle"`
	SectPr *docxSectPr `xml:"sectPr"`
}

type docxPStyle struct {
	Val string `xml:"val,attr"`
}

type docxRun struct {
	Text []docxText `xml:"t"`
}

type docxText struct {
	Content string `xml:",chardata"`
}

type docxTable struct {
	Grid *docxGrid `xml:"tblGrid"`
	Rows []docxRow `xml:"tr"`
}

type docxGrid struct {
	Cols []struct{} `xml:"gridCol"`
}

type docxRow struct {
	Cells []docxCell `xml:"tc"`
}

type docxCell struct {
	Paras []docxPara `xml:"p"`
}

// docxSectPr carries section layout properties. Page size values are in
// twentieths of a point.
type docxSectPr struct {
	PgSz *docxPgSz `xml:"pgSz"`
}

type docxPgSz struct {
	W int `xml:"w,attr"`
	H int `xml:"h,attr"`
}

func (s docxSectPr) pageSizePt() (width, height float64) {
	if s.PgSz == nil {
		return 0, 0
	}
	return float64(s.PgSz.W) / 20, float64(s.PgSz.H) / 20
}

// docxCoreProps is the docProps/core.xml part. Element namespaces (dc,
// cp, dcterms) are ignored; local names are unambiguous.
type docxCoreProps struct {
	XMLName     xml.Name `xml:"coreProperties"`
	Title       string   `xml:"title"`
	Creator     string   `xml:"creator"`
	Subject     string   `xml:"subject"`
	Keywords    string   `xml:"keywords"`
	Category    string   `xml:"category"`
	Description string   `xml:"description"`
	Created     string   `xml:"created"`
	Modified    string   `xml:"modified"`
	LastPrinted string   `xml:"lastPrinted"`
}

func paraText(para docxPara) string {
	var b strings.Builder
	for _, run := range para.Runs {
		for _, t := range run.Text {
			b.WriteString(t.Content)
		}
	}
	return b.String()
}

func paraStyle(para docxPara) string {
	if para.PPr != nil && para.PPr.PStyle != nil {
		return para.PPr.PStyle.Val
	}
	return ""
}

func cellText(cell docxCell) string {
	var b strings.Builder
	for _, para := range cell.Paras {
		text := strings.TrimSpace(paraText(para))
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(text)
	}
	return b.String()
}

// headingStyleLevel parses the level from a "Heading N" style name
// ("Heading1" and "Heading 1" both occur in the wild). A bare "Heading"
// style counts as level 1.
func headingStyleLevel(style string) (int, bool) {
	lower := strings.ToLower(style)
	if !strings.HasPrefix(lower, "heading") {
		return 0, false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(lower, "heading"))
	if n, err := strconv.Atoi(rest); err == nil && n > 0 {
		return n, true
	}
	return 1, true
}

func tableColumns(tbl docxTable) int {
	if tbl.Grid != nil && len(tbl.Grid.Cols) > 0 {
		return len(tbl.Grid.Cols)
	}
	columns := 0
	for _, row := range tbl.Rows {
		if len(row.Cells) > columns {
			columns = len(row.Cells)
		}
	}
	return columns
}

// formatDOCXDate normalises a W3CDTF core-properties timestamp to
// ISO-8601 without zone. Unparsable input yields an empty string.
func formatDOCXDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02T15:04:05")
		}
	}
	return ""
}
