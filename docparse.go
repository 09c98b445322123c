// Package docparse extracts normalized plain text and structural metadata
// from PDF, DOCX, XLSX and plain-text documents behind a uniform
// {content, structure, metadata} contract.
package docparse

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brunobiangulo/docparse/parser"
	"github.com/brunobiangulo/docparse/store"
)

// Service owns the parser registry and an optional parse-result cache.
// It is the entry point consumed by the surrounding pipeline.
type Service struct {
	cfg      Config
	registry *parser.Registry
	cache    *store.Store
}

// New creates a Service. When the cache is enabled, the SQLite database
// is opened (and created) at the configured path.
func New(cfg Config) (*Service, error) {
	s := &Service{
		cfg:      cfg,
		registry: parser.NewRegistry(),
	}

	if cfg.EnableCache {
		st, err := store.New(cfg.resolveCachePath())
		if err != nil {
			return nil, fmt.Errorf("opening cache: %w", err)
		}
		if err := st.Migrate(context.Background()); err != nil {
			st.Close()
			return nil, fmt.Errorf("migrating cache: %w", err)
		}
		s.cache = st
	}

	return s, nil
}

// Registry exposes the parser registry, e.g. to register custom parsers.
func (s *Service) Registry() *parser.Registry {
	return s.registry
}

// Close releases the cache database, if any.
func (s *Service) Close() error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Close()
}

// Parse parses content as the given file type token ("pdf", "docx",
// "txt", "xlsx" or anything registered) and returns the structured
// result, or a typed error from the parser taxonomy.
func (s *Service) Parse(ctx context.Context, fileType string, content []byte) (*parser.Result, error) {
	return s.parse(ctx, fileType, "", content)
}

// ParseFile reads path and parses it, deriving the file type token from
// the extension.
func (s *Service) ParseFile(ctx context.Context, path string) (*parser.Result, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	fileType := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	return s.parse(ctx, fileType, filepath.Base(path), content)
}

func (s *Service) parse(ctx context.Context, fileType, filename string, content []byte) (*parser.Result, error) {
	if len(content) == 0 {
		return nil, ErrEmptyDocument
	}
	if s.cfg.MaxFileSize > 0 && int64(len(content)) > s.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrDocumentTooLarge, len(content), s.cfg.MaxFileSize)
	}

	hash := contentHash(content)

	if s.cache != nil && s.cfg.ReuseCached {
		if rec, err := s.cache.GetByHash(ctx, hash, fileType); err == nil {
			result, err := recordToResult(rec)
			if err == nil {
				slog.Info("parse: cache hit", "format", fileType, "hash", hash[:12])
				return result, nil
			}
			// An unreadable cached entry behaves like a miss; the fresh
			// parse below overwrites it.
			slog.Warn("parse: cached result unreadable", "format", fileType, "error", err)
		}
	}

	p, err := s.registry.Create(fileType)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := p.Parse(ctx, content)
	if err != nil {
		slog.Warn("parse: failed", "format", fileType, "file", filename, "error", err)
		return nil, err
	}
	slog.Info("parse: complete",
		"format", fileType, "file", filename, "bytes", len(content),
		"chars", len(result.Content), "elapsed", time.Since(start).Round(time.Millisecond))

	if s.cache != nil {
		if err := s.cacheResult(ctx, hash, fileType, filename, result); err != nil {
			// Caching is best-effort; the parse result is still good.
			slog.Warn("parse: caching result failed", "format", fileType, "error", err)
		}
	}

	return result, nil
}

func (s *Service) cacheResult(ctx context.Context, hash, fileType, filename string, result *parser.Result) error {
	structureJSON, err := json.Marshal(result.Structure)
	if err != nil {
		return fmt.Errorf("encoding structure: %w", err)
	}
	metadataJSON, err := json.Marshal(result.Metadata)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}

	_, err = s.cache.Put(ctx, store.Record{
		ContentHash: hash,
		FileType:    fileType,
		Filename:    filename,
		Content:     result.Content,
		Structure:   string(structureJSON),
		Metadata:    string(metadataJSON),
		Encoding:    result.Encoding,
		Confidence:  result.Confidence,
	})
	return err
}

// recordToResult rebuilds a Result from a cached record. The structure
// comes back as generic JSON, not the format-specific descriptor type.
func recordToResult(rec *store.Record) (*parser.Result, error) {
	result := &parser.Result{
		Content:    rec.Content,
		Metadata:   parser.Metadata{},
		Encoding:   rec.Encoding,
		Confidence: rec.Confidence,
	}
	if err := json.Unmarshal([]byte(rec.Structure), &result.Structure); err != nil {
		return nil, fmt.Errorf("decoding cached structure: %w", err)
	}
	if err := json.Unmarshal([]byte(rec.Metadata), &result.Metadata); err != nil {
		return nil, fmt.Errorf("decoding cached metadata: %w", err)
	}
	return result, nil
}

func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
