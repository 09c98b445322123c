package docparse

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brunobiangulo/docparse/parser"
	"github.com/brunobiangulo/docparse/store"
)

const resumeText = "Jane Dev\n========\n\nPROFESSIONAL EXPERIENCE\n\nSenior engineer at Acme Corp.\nBuilt document pipelines.\n"

func newTestService(t *testing.T, cfg Config) *Service {
	t.Helper()
	svc, err := New(cfg)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

func cachedConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.EnableCache = true
	cfg.ReuseCached = true
	cfg.CachePath = filepath.Join(t.TempDir(), "cache.db")
	return cfg
}

func TestServiceParse(t *testing.T) {
	svc := newTestService(t, DefaultConfig())

	res, err := svc.Parse(context.Background(), "txt", []byte(resumeText))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if !strings.Contains(res.Content, "PROFESSIONAL EXPERIENCE") {
		t.Errorf("content = %q, want the section heading", res.Content)
	}
	if res.Encoding != "ascii" {
		t.Errorf("encoding = %q, want ascii", res.Encoding)
	}
}

func TestServiceParseUnsupportedFormat(t *testing.T) {
	svc := newTestService(t, DefaultConfig())

	_, err := svc.Parse(context.Background(), "html", []byte(resumeText))
	if !errors.Is(err, parser.ErrUnsupportedFormat) {
		t.Errorf("Parse = %v, want ErrUnsupportedFormat", err)
	}
}

func TestServiceParseEmptyDocument(t *testing.T) {
	svc := newTestService(t, DefaultConfig())

	_, err := svc.Parse(context.Background(), "txt", nil)
	if !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("Parse = %v, want ErrEmptyDocument", err)
	}
}

func TestServiceParseSizeLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxFileSize = 16
	svc := newTestService(t, cfg)

	_, err := svc.Parse(context.Background(), "txt", []byte(resumeText))
	if !errors.Is(err, ErrDocumentTooLarge) {
		t.Errorf("Parse = %v, want ErrDocumentTooLarge", err)
	}
}

func TestServiceParseFile(t *testing.T) {
	svc := newTestService(t, DefaultConfig())

	path := filepath.Join(t.TempDir(), "resume.TXT")
	if err := os.WriteFile(path, []byte(resumeText), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := svc.ParseFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ParseFile returned error: %v", err)
	}
	if !strings.Contains(res.Content, "Jane Dev") {
		t.Errorf("content = %q, want the document text", res.Content)
	}

	if _, err := svc.ParseFile(context.Background(), filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("ParseFile of missing path succeeded")
	}
}

func TestServiceCacheReuse(t *testing.T) {
	svc := newTestService(t, cachedConfig(t))
	ctx := context.Background()

	first, err := svc.Parse(ctx, "txt", []byte(resumeText))
	if err != nil {
		t.Fatalf("first Parse returned error: %v", err)
	}

	second, err := svc.Parse(ctx, "txt", []byte(resumeText))
	if err != nil {
		t.Fatalf("cached Parse returned error: %v", err)
	}
	if second.Content != first.Content {
		t.Errorf("cached content = %q, want %q", second.Content, first.Content)
	}
	if second.Encoding != first.Encoding || second.Confidence != first.Confidence {
		t.Errorf("cached encoding/confidence = %q/%v, want %q/%v",
			second.Encoding, second.Confidence, first.Encoding, first.Confidence)
	}
	// Cached structure is generic JSON; it must still round-trip as data.
	if second.Structure == nil {
		t.Error("cached structure is nil")
	}
	if second.Metadata["encoding"] != "ascii" {
		t.Errorf("cached metadata encoding = %v, want ascii", second.Metadata["encoding"])
	}
}

func TestServiceCorruptCacheEntryReparsed(t *testing.T) {
	svc := newTestService(t, cachedConfig(t))
	ctx := context.Background()
	content := []byte(resumeText)

	if _, err := svc.Parse(ctx, "txt", content); err != nil {
		t.Fatalf("first Parse returned error: %v", err)
	}

	// Overwrite the cached row with undecodable JSON.
	if _, err := svc.cache.Put(ctx, store.Record{
		ContentHash: contentHash(content),
		FileType:    "txt",
		Content:     "stale cached text",
		Structure:   "{not json",
		Metadata:    "{}",
	}); err != nil {
		t.Fatal(err)
	}

	res, err := svc.Parse(ctx, "txt", content)
	if err != nil {
		t.Fatalf("Parse with corrupt cache entry returned error: %v", err)
	}
	if strings.Contains(res.Content, "stale cached text") {
		t.Error("corrupt cache entry was served instead of reparsing")
	}
	if !strings.Contains(res.Content, "PROFESSIONAL EXPERIENCE") {
		t.Errorf("fresh parse content = %q", res.Content)
	}

	// The reparse repairs the entry, so the next call hits the cache.
	again, err := svc.Parse(ctx, "txt", content)
	if err != nil {
		t.Fatalf("Parse after repair returned error: %v", err)
	}
	if !strings.Contains(again.Content, "PROFESSIONAL EXPERIENCE") {
		t.Errorf("repaired cache content = %q", again.Content)
	}
}

func TestServiceCacheKeyedByFileType(t *testing.T) {
	svc := newTestService(t, cachedConfig(t))
	ctx := context.Background()

	if _, err := svc.Parse(ctx, "txt", []byte(resumeText)); err != nil {
		t.Fatal(err)
	}
	// Same bytes under a different type must not hit the txt cache entry.
	if _, err := svc.Parse(ctx, "pdf", []byte(resumeText)); err == nil {
		t.Error("Parse of text bytes as pdf succeeded; cache leaked across file types")
	}
}

func TestServiceCustomParserRegistration(t *testing.T) {
	svc := newTestService(t, DefaultConfig())

	svc.Registry().Register("csv", func() parser.Parser { return parser.NewTXTParser() })

	res, err := svc.Parse(context.Background(), "csv", []byte(resumeText))
	if err != nil {
		t.Fatalf("Parse with custom parser returned error: %v", err)
	}
	if res.Content == "" {
		t.Error("custom parser produced empty content")
	}
}

func TestResolveCachePath(t *testing.T) {
	cfg := Config{CachePath: "/tmp/explicit.db"}
	if got := cfg.resolveCachePath(); got != "/tmp/explicit.db" {
		t.Errorf("explicit path = %q", got)
	}

	cfg = Config{CacheName: "mine", StorageDir: "local"}
	if got := cfg.resolveCachePath(); got != "mine.db" {
		t.Errorf("local path = %q, want mine.db", got)
	}

	cfg = Config{StorageDir: "home"}
	got := cfg.resolveCachePath()
	if filepath.Base(got) != "docparse.db" {
		t.Errorf("home path = %q, want a docparse.db basename", got)
	}
}
