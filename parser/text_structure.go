package parser

import (
	"regexp"
	"strings"
	"unicode"
)

// listItemRE matches bullet (•, *, -) and numbered (N.) list lines.
var listItemRE = regexp.MustCompile(`^\s*(\d+\.|•|\*|-)\s+(.+)$`)

// extractTXTStructure scans lines for headings, sections, lists,
// paragraphs and indentation levels.
//
// Headings are either setext style (a line followed by a line of '=' for
// level 1 or '-' for level 2) or a standalone all-uppercase line longer
// than 3 characters (level 3). Each heading opens a section that collects
// the following non-blank, non-heading lines until the next heading.
func extractTXTStructure(text string) TXTStructure {
	s := TXTStructure{
		Headers:     []TXTHeading{},
		Lists:       [][]TXTListItem{},
		Paragraphs:  []string{},
		Indentation: []TXTIndent{},
		Sections:    []TXTSection{},
	}

	lines := splitLines(text)

	var paragraph []string
	var list []TXTListItem
	inList := false
	section := -1
	skipUnderline := false

	flushParagraph := func() {
		if len(paragraph) > 0 {
			s.Paragraphs = append(s.Paragraphs, strings.Join(paragraph, " "))
			paragraph = nil
		}
	}
	openSection := func(title string, level, line int) {
		s.Headers = append(s.Headers, TXTHeading{Level: level, Text: title, Line: line})
		s.Sections = append(s.Sections, TXTSection{
			Title:     title,
			Level:     level,
			StartLine: line,
			Content:   []string{},
		})
		section = len(s.Sections) - 1
	}
	addToSection := func(line string) {
		if section >= 0 {
			s.Sections[section].Content = append(s.Sections[section].Content, line)
		}
	}

	for i, line := range lines {
		if skipUnderline {
			skipUnderline = false
			continue
		}

		stripped := strings.TrimSpace(line)
		if stripped != "" {
			s.Indentation = append(s.Indentation, TXTIndent{
				Line:  i + 1,
				Level: len(line) - len(strings.TrimLeft(line, " \t")),
			})
		}

		// Setext heading: the next line is entirely '=' or '-'. The
		// underline itself belongs to the heading and is consumed.
		if stripped != "" && i+1 < len(lines) {
			if level, ok := underlineLevel(strings.TrimSpace(lines[i+1])); ok {
				flushParagraph()
				openSection(stripped, level, i+1)
				skipUnderline = true
				continue
			}
		}

		if isAllCapsHeading(stripped) {
			flushParagraph()
			openSection(stripped, 3, i+1)
			continue
		}

		if m := listItemRE.FindStringSubmatch(line); m != nil {
			if !inList {
				inList = true
				list = nil
			}
			itemType := "bullet"
			if m[1][0] >= '0' && m[1][0] <= '9' {
				itemType = "numbered"
			}
			list = append(list, TXTListItem{Text: m[2], Line: i + 1, Type: itemType})
			addToSection(stripped)
			continue
		}
		if inList && stripped == "" {
			s.Lists = append(s.Lists, list)
			inList = false
			list = nil
		}

		if stripped != "" {
			paragraph = append(paragraph, stripped)
			addToSection(stripped)
		} else {
			flushParagraph()
		}
	}

	flushParagraph()
	if inList {
		s.Lists = append(s.Lists, list)
	}

	return s
}

// underlineLevel reports whether a line is a setext underline: non-empty
// and composed entirely of '=' and '-'. '=' anywhere makes it level 1,
// otherwise level 2.
func underlineLevel(line string) (int, bool) {
	if line == "" {
		return 0, false
	}
	hasEquals := false
	for _, c := range line {
		switch c {
		case '=':
			hasEquals = true
		case '-':
		default:
			return 0, false
		}
	}
	if hasEquals {
		return 1, true
	}
	return 2, true
}

// isAllCapsHeading reports whether a line longer than 3 characters is all
// uppercase (with at least one letter).
func isAllCapsHeading(line string) bool {
	if len(line) <= 3 {
		return false
	}
	hasLetter := false
	for _, r := range line {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}
