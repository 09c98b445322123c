package parser

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/ianaindex"
)

// TXTParser parses plain-text documents: charset detection, decoding,
// structure inference and normalization.
type TXTParser struct {
	content contentBuffer

	decoded    string
	decodedOK  bool
	encoding   string
	confidence float64

	langDetect LanguageDetector
}

// TXTOption configures a TXTParser.
type TXTOption func(*TXTParser)

// WithLanguageDetector wires an optional language detection capability
// into the parser's metadata extraction.
func WithLanguageDetector(d LanguageDetector) TXTOption {
	return func(p *TXTParser) { p.langDetect = d }
}

func NewTXTParser(opts ...TXTOption) *TXTParser {
	p := &TXTParser{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse decodes the bytes, rejects non-text payloads, extracts structure
// and metadata and returns the normalized text along with the detected
// encoding and its confidence.
func (p *TXTParser) Parse(ctx context.Context, content []byte) (*Result, error) {
	p.decoded = ""
	p.decodedOK = false
	p.encoding = ""
	p.confidence = 0
	p.content.set(content)

	if err := p.decode(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.decoded) == "" {
		return nil, fmt.Errorf("%w: txt: invalid or empty text content", ErrParsing)
	}

	return &Result{
		Content:    NormalizeText(p.decoded),
		Structure:  extractTXTStructure(p.decoded),
		Metadata:   p.ExtractMetadata(),
		Encoding:   p.encoding,
		Confidence: p.confidence,
	}, nil
}

// Validate requires content to be set, lazily decodes it, and requires
// the decoded text to be non-empty after trimming.
func (p *TXTParser) Validate() error {
	if !p.content.ok() {
		return fmt.Errorf("%w: empty TXT content", ErrValidation)
	}
	if !p.decodedOK {
		if err := p.decode(); err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	if strings.TrimSpace(p.decoded) == "" {
		return fmt.Errorf("%w: TXT content is empty after decoding", ErrValidation)
	}
	return nil
}

var wordRE = regexp.MustCompile(`\w+`)

// ExtractMetadata returns line/word/character counts, the detected
// encoding and, when a language detector is configured and confident, the
// detected language. It never fails.
func (p *TXTParser) ExtractMetadata() Metadata {
	md := Metadata{}
	if !p.decodedOK {
		return md
	}

	md["line_count"] = len(splitLines(p.decoded))
	md["word_count"] = len(wordRE.FindAllString(p.decoded, -1))
	md["char_count"] = utf8.RuneCountInString(p.decoded)
	md["encoding"] = p.encoding

	if p.langDetect != nil && utf8.RuneCountInString(strings.TrimSpace(p.decoded)) > 10 {
		if lang, ok := p.langDetect(p.decoded); ok {
			md["detected_language"] = lang
		}
	}
	return md
}

// decode runs the full rejection/detection/decoding ladder. It fills
// p.decoded, p.encoding and p.confidence on success.
func (p *TXTParser) decode() error {
	content, err := p.content.bytes()
	if err != nil {
		return err
	}

	if looksLikeFragment(content) {
		return fmt.Errorf("%w: txt: invalid document format: no document structure", ErrParsing)
	}
	if len(content) < 10 {
		return fmt.Errorf("%w: txt: content too short to be a valid text document", ErrParsing)
	}
	if binary := countBinaryBytes(content); binary > len(content)*5/100 {
		return fmt.Errorf("%w: txt: invalid text content: contains too many binary characters", ErrParsing)
	}

	// Pure ASCII needs no statistical detection.
	if isASCII(content) {
		p.encoding = "ascii"
		p.confidence = 1.0
		p.decoded = string(content)
		p.decodedOK = true
		return nil
	}

	p.encoding, p.confidence = detectCharset(content)

	// A lone 0x80 byte is invalid in ASCII and cannot start or continue a
	// well-formed UTF-8 sequence. Catch it both when the detector says
	// UTF-8/ASCII and when the payload is otherwise plain ASCII (which
	// means the detector was misled by the stray byte). This checks ahead
	// of the confidence gate so the caller sees an encoding error, not a
	// generic rejection.
	if bytes.IndexByte(content, 0x80) >= 0 &&
		(isUTF8Family(p.encoding) || isASCIIExceptByte(content, 0x80)) {
		return fmt.Errorf("%w: txt: failed to decode byte 0x80: invalid %s sequence", ErrEncoding, p.encoding)
	}

	if p.confidence < 0.7 {
		slog.Warn("txt: low confidence in encoding detection",
			"encoding", p.encoding, "confidence", p.confidence)
		if len(content) < 50 {
			return fmt.Errorf("%w: txt: invalid text content: unable to detect encoding with confidence", ErrParsing)
		}
	}

	decoded, err := decodeCharset(content, p.encoding)
	if err != nil {
		// Fallback: lossy UTF-8 with replacement characters.
		slog.Warn("txt: falling back to UTF-8 with replacement", "encoding", p.encoding, "error", err)
		if len(content) < 50 {
			return fmt.Errorf("%w: txt: invalid text content: encoding errors detected", ErrParsing)
		}
		p.encoding = "utf-8"
		decoded = strings.ToValidUTF8(string(content), "�")
	}

	p.decoded = decoded
	p.decodedOK = true
	return nil
}

// looksLikeFragment reports whether the payload is a short single line of
// bare letters and spaces. Such input carries no document structure at
// all (no line breaks, digits or punctuation) and is rejected as not
// being a document.
func looksLikeFragment(content []byte) bool {
	if len(content) == 0 || len(content) >= 40 {
		return false
	}
	for _, c := range content {
		switch {
		case c == ' ':
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		default:
			return false
		}
	}
	return true
}

// countBinaryBytes counts control characters outside tab, LF, CR and ESC.
func countBinaryBytes(content []byte) int {
	count := 0
	for _, c := range content {
		if c < 9 || (c > 13 && c < 32 && c != 27) {
			count++
		}
	}
	return count
}

func isASCII(content []byte) bool {
	for _, c := range content {
		if c >= 0x80 {
			return false
		}
	}
	return true
}

func isASCIIExceptByte(content []byte, b byte) bool {
	for _, c := range content {
		if c >= 0x80 && c != b {
			return false
		}
	}
	return true
}

func isUTF8Family(name string) bool {
	switch strings.ToLower(name) {
	case "utf-8", "utf8", "ascii", "us-ascii":
		return true
	}
	return false
}

// detectCharset runs statistical charset detection and returns the
// detected name with a 0-1 confidence score. Detection failure degrades
// to utf-8 with zero confidence.
func detectCharset(content []byte) (string, float64) {
	result, err := chardet.NewTextDetector().DetectBest(content)
	if err != nil || result == nil || result.Charset == "" {
		return "utf-8", 0
	}
	return result.Charset, float64(result.Confidence) / 100
}

// decodeCharset decodes content using the named charset.
func decodeCharset(content []byte, name string) (string, error) {
	if isUTF8Family(name) {
		if !utf8.Valid(content) {
			return "", fmt.Errorf("invalid %s byte sequence", name)
		}
		return string(content), nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return "", fmt.Errorf("unsupported charset %q", name)
	}
	decoded, err := enc.NewDecoder().Bytes(content)
	if err != nil {
		return "", fmt.Errorf("decoding as %s: %w", name, err)
	}
	return string(decoded), nil
}

var (
	spaceRunRE   = regexp.MustCompile(` +`)
	newlineRunRE = regexp.MustCompile(`\n{3,}`)
)

// NormalizeText collapses runs of spaces, normalizes all line-ending
// variants to \n, collapses 3+ consecutive newlines to exactly two and
// trims surrounding whitespace. It is idempotent.
func NormalizeText(s string) string {
	s = spaceRunRE.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = newlineRunRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// splitLines splits on any line-ending variant. A trailing newline does
// not produce a final empty line.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
