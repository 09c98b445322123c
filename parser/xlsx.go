package parser

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXParser parses XLSX workbooks. Sheet rows are rendered as cell
// texts joined by " | ", sheets separated by a blank line.
type XLSXParser struct {
	content contentBuffer
	file    *excelize.File
}

func NewXLSXParser() *XLSXParser { return &XLSXParser{} }

func (p *XLSXParser) Parse(ctx context.Context, content []byte) (*Result, error) {
	p.file = nil
	p.content.set(content)

	f, err := openXLSX(content)
	if err != nil {
		return nil, err
	}
	p.file = f

	return &Result{
		Content:   p.extractText(),
		Structure: p.extractStructure(),
		Metadata:  p.ExtractMetadata(),
	}, nil
}

// Validate checks the ZIP signature and that the workbook opens with at
// least one sheet.
func (p *XLSXParser) Validate() error {
	content, err := p.content.bytes()
	if err != nil {
		return err
	}
	if !bytes.HasPrefix(content, zipMagic) {
		return fmt.Errorf("%w: not a valid XLSX file (missing ZIP signature)", ErrValidation)
	}
	f, err := openXLSX(content)
	if err != nil {
		return fmt.Errorf("%w: invalid XLSX structure: %v", ErrValidation, err)
	}
	defer f.Close()
	if len(f.GetSheetList()) == 0 {
		return fmt.Errorf("%w: workbook has no sheets", ErrValidation)
	}
	return nil
}

// ExtractMetadata maps workbook document properties to metadata fields
// and always includes the sheet count. It never fails.
func (p *XLSXParser) ExtractMetadata() Metadata {
	md := Metadata{}
	if p.file == nil {
		return md
	}

	props, err := p.file.GetDocProps()
	if err != nil {
		slog.Error("xlsx: metadata extraction failed", "error", err)
	} else if props != nil {
		for _, f := range []struct{ name, value string }{
			{"title", props.Title},
			{"author", props.Creator},
			{"subject", props.Subject},
			{"keywords", props.Keywords},
			{"category", props.Category},
			{"comments", props.Description},
		} {
			if f.value != "" {
				md[f.name] = f.value
			}
		}
		if d := formatDOCXDate(props.Created); d != "" {
			md["creation_date"] = d
		}
		if d := formatDOCXDate(props.Modified); d != "" {
			md["modification_date"] = d
		}
	}

	md["sheet_count"] = len(p.file.GetSheetList())
	return md
}

func (p *XLSXParser) extractText() string {
	var sheets []string
	for _, sheet := range p.file.GetSheetList() {
		rows, err := p.file.GetRows(sheet)
		if err != nil {
			slog.Warn("xlsx: row extraction failed for sheet", "sheet", sheet, "error", err)
			continue
		}

		var lines []string
		for _, row := range rows {
			var cells []string
			for _, cell := range row {
				if text := strings.TrimSpace(cell); text != "" {
					cells = append(cells, text)
				}
			}
			if len(cells) > 0 {
				lines = append(lines, strings.Join(cells, " | "))
			}
		}
		if len(lines) > 0 {
			sheets = append(sheets, strings.Join(lines, "\n"))
		}
	}
	return strings.Join(sheets, "\n\n")
}

// extractStructure builds per-sheet descriptors. Any failure degrades to
// an empty structure.
func (p *XLSXParser) extractStructure() XLSXStructure {
	s := XLSXStructure{Sheets: []XLSXSheet{}}
	for i, sheet := range p.file.GetSheetList() {
		rows, err := p.file.GetRows(sheet)
		if err != nil {
			slog.Warn("xlsx: structure extraction failed for sheet", "sheet", sheet, "error", err)
			rows = nil
		}
		columns := 0
		for _, row := range rows {
			if len(row) > columns {
				columns = len(row)
			}
		}
		s.Sheets = append(s.Sheets, XLSXSheet{
			Number:  i + 1,
			Name:    sheet,
			Rows:    len(rows),
			Columns: columns,
		})
	}
	return s
}

// openXLSX opens content as a workbook, classifying failures into the
// error taxonomy.
func openXLSX(content []byte) (*excelize.File, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		lower := strings.ToLower(err.Error())
		if strings.Contains(lower, "zip") || strings.Contains(lower, "workbook") {
			return nil, fmt.Errorf("%w: failed to read XLSX: %v", ErrCorrupted, err)
		}
		return nil, fmt.Errorf("%w: xlsx: %v", ErrParsing, err)
	}
	return f, nil
}
