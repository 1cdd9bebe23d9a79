package index

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/skraidantysagurkai/qna-agent-poc/internal/embedding"
	"github.com/skraidantysagurkai/qna-agent-poc/internal/model"
)

//go:embed schema.sql
var schema string

// dbFile is the database file name inside the persistence directory
const dbFile = "index.db"

// Meta keys
const (
	metaEmbedder  = "embedder"
	metaDimension = "dimension"
)

// store is the SQLite representation of the index
type store struct {
	db   *sql.DB
	path string
}

// openStore opens or creates the database under dir
func openStore(ctx context.Context, dir string) (*store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	path := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &store{db: db, path: path}, nil
}

func (s *store) close() error {
	return s.db.Close()
}

// meta reads a metadata value; found is false when the key is absent
func (s *store) meta(ctx context.Context, key string) (value string, found bool, err error) {
	err = s.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// dimension returns the persisted vector length, 0 if none was recorded
func (s *store) dimension(ctx context.Context) (int, error) {
	raw, found, err := s.meta(ctx, metaDimension)
	if err != nil || !found {
		return 0, err
	}
	dim, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid stored dimension %q: %w", raw, err)
	}
	return dim, nil
}

// loadChunks reads every chunk with its vector, in insertion order
func (s *store) loadChunks(ctx context.Context, dim int) ([]model.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, section_name, source_url, content, embedding
		FROM chunks ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []model.Chunk
	for rows.Next() {
		var (
			c    model.Chunk
			blob []byte
		)
		if err := rows.Scan(&c.ID, &c.Seq, &c.SectionName, &c.SourceURL, &c.Content, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		c.Embedding = embedding.DecodeVector(blob)
		if len(c.Embedding) == 0 || (dim > 0 && len(c.Embedding) != dim) {
			return nil, fmt.Errorf("chunk %s: %w", c.ID, model.ErrDimensionMismatch)
		}
		chunks = append(chunks, c)
	}

	return chunks, rows.Err()
}

// insertChunks writes chunks and the embedder metadata in one transaction
func (s *store) insertChunks(ctx context.Context, chunks []model.Chunk, embedderName string, dim int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, seq, section_name, source_url, content, embedding)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.ID, c.Seq, c.SectionName, c.SourceURL, c.Content, embedding.EncodeVector(c.Embedding)); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", c.ID, err)
		}
	}

	for key, value := range map[string]string{
		metaEmbedder:  embedderName,
		metaDimension: strconv.Itoa(dim),
	} {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO meta (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value); err != nil {
			return fmt.Errorf("writing meta %s: %w", key, err)
		}
	}

	return tx.Commit()
}
