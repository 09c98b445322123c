package parser

import "fmt"

// contentBuffer holds the raw bytes for exactly one parse operation.
// The buffer keeps its own copy so later caller mutations cannot leak in.
type contentBuffer struct {
	data   []byte
	loaded bool
}

// set stores a copy of content. Re-setting replaces the previous document
// wholesale, so a reused parser never mixes state between two parses.
func (b *contentBuffer) set(content []byte) {
	b.data = make([]byte, len(content))
	copy(b.data, content)
	b.loaded = true
}

func (b *contentBuffer) reset() {
	b.data = nil
	b.loaded = false
}

func (b *contentBuffer) ok() bool { return b.loaded }

// bytes returns the stored content, or ErrParsing when none has been set.
func (b *contentBuffer) bytes() ([]byte, error) {
	if !b.loaded {
		return nil, fmt.Errorf("%w: no content to validate", ErrParsing)
	}
	return b.data, nil
}
