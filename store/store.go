package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when no cached record matches a lookup.
var ErrNotFound = errors.New("store: record not found")

// Record is one cached parse result. Structure and Metadata hold JSON.
type Record struct {
	ID          int64   `json:"id"`
	ContentHash string  `json:"content_hash"`
	FileType    string  `json:"file_type"`
	Filename    string  `json:"filename,omitempty"`
	Content     string  `json:"content"`
	Structure   string  `json:"structure"`
	Metadata    string  `json:"metadata"`
	Encoding    string  `json:"encoding,omitempty"`
	Confidence  float64 `json:"confidence,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// Store is a SQLite-backed cache of parse results keyed by content hash
// and file type.
type Store struct {
	db *sql.DB
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS parsed_documents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	content_hash TEXT NOT NULL,
	file_type TEXT NOT NULL,
	filename TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL,
	structure TEXT NOT NULL DEFAULT '{}',
	metadata TEXT NOT NULL DEFAULT '{}',
	encoding TEXT NOT NULL DEFAULT '',
	confidence REAL NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(content_hash, file_type)
);

CREATE INDEX IF NOT EXISTS idx_parsed_documents_hash
	ON parsed_documents(content_hash);
`

// New opens (or creates) a SQLite database at the given path and applies
// the base schema.
func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database handle for diagnostic access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Put inserts or replaces the cached result for (content_hash, file_type)
// and returns the row ID.
func (s *Store) Put(ctx context.Context, rec Record) (int64, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO parsed_documents
			(content_hash, file_type, filename, content, structure, metadata, encoding, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_hash, file_type) DO UPDATE SET
			filename = excluded.filename,
			content = excluded.content,
			structure = excluded.structure,
			metadata = excluded.metadata,
			encoding = excluded.encoding,
			confidence = excluded.confidence,
			updated_at = CURRENT_TIMESTAMP
	`, rec.ContentHash, rec.FileType, rec.Filename, rec.Content,
		rec.Structure, rec.Metadata, rec.Encoding, rec.Confidence)
	if err != nil {
		return 0, fmt.Errorf("upserting record: %w", err)
	}

	// last_insert_rowid is stale when the upsert took the UPDATE path, so
	// resolve the row explicitly.
	existing, err := s.GetByHash(ctx, rec.ContentHash, rec.FileType)
	if err != nil {
		return 0, err
	}
	return existing.ID, nil
}

// GetByHash returns the cached record for (content_hash, file_type), or
// ErrNotFound.
func (s *Store) GetByHash(ctx context.Context, contentHash, fileType string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, content_hash, file_type, filename, content, structure,
			metadata, encoding, confidence, created_at, updated_at
		FROM parsed_documents
		WHERE content_hash = ? AND file_type = ?
	`, contentHash, fileType)
	return scanRecord(row)
}

// List returns all cached records, newest first.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content_hash, file_type, filename, content, structure,
			metadata, encoding, confidence, created_at, updated_at
		FROM parsed_documents
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// Delete removes a cached record by ID.
func (s *Store) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM parsed_documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.ContentHash, &rec.FileType, &rec.Filename,
		&rec.Content, &rec.Structure, &rec.Metadata, &rec.Encoding,
		&rec.Confidence, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning record: %w", err)
	}
	return &rec, nil
}
