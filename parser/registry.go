package parser

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Constructor builds a fresh parser instance. The registry hands out a new
// instance per Create call because parsers hold single-document state.
type Constructor func() Parser

// Registry maps file type tokens to parser constructors.
//
// Lookup is case-insensitive and later registrations for the same token
// replace earlier ones, so tests can swap in doubles. All methods are safe
// for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewRegistry returns a registry with the built-in parsers registered:
// pdf, docx, txt and xlsx.
func NewRegistry() *Registry {
	r := &Registry{constructors: make(map[string]Constructor)}
	r.Register("pdf", func() Parser { return NewPDFParser() })
	r.Register("docx", func() Parser { return NewDOCXParser() })
	r.Register("txt", func() Parser { return NewTXTParser(WithLanguageDetector(DetectLanguage)) })
	r.Register("xlsx", func() Parser { return NewXLSXParser() })
	return r
}

// Register adds or replaces the constructor for a file type token.
func (r *Registry) Register(fileType string, c Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[strings.ToLower(fileType)] = c
}

// Create returns a new parser for the given token, or ErrUnsupportedFormat
// when no constructor is registered for it.
func (r *Registry) Create(fileType string) (Parser, error) {
	r.mu.RLock()
	c, ok := r.constructors[strings.ToLower(fileType)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, fileType)
	}
	return c(), nil
}

// Formats returns the registered tokens in sorted order.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	formats := make([]string, 0, len(r.constructors))
	for f := range r.constructors {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}
