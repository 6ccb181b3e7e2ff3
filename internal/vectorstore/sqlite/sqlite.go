// Package sqlite persists collection vectors in a SQLite database so an index
// built by one run can be searched by the next. Vectors are stored as
// little-endian float32 BLOBs and searched by brute-force cosine similarity.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver

	"medrag/internal/domain"
	"medrag/internal/vectorstore"
)

const schema = `
CREATE TABLE IF NOT EXISTS collections (
    name TEXT PRIMARY KEY,
    dimension INTEGER NOT NULL,
    fingerprint TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS vectors (
    collection TEXT NOT NULL,
    chunk_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    document_id TEXT NOT NULL,
    chunk_index INTEGER NOT NULL,
    title TEXT NOT NULL,
    keywords TEXT NOT NULL,
    content TEXT NOT NULL,
    embedding BLOB NOT NULL,
    PRIMARY KEY (collection, chunk_id)
);
CREATE INDEX IF NOT EXISTS idx_vectors_seq ON vectors(collection, seq);
`

// DB is an open vector database shared by all collections.
type DB struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path.
func Open(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db: db, path: path}, nil
}

// migrate adds the fingerprint column to databases created before it existed.
func migrate(db *sql.DB) error {
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('collections') WHERE name = 'fingerprint'`).Scan(&n); err != nil {
		return fmt.Errorf("inspecting schema: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := db.Exec(`ALTER TABLE collections ADD COLUMN fingerprint TEXT NOT NULL DEFAULT ''`); err != nil {
		return fmt.Errorf("adding fingerprint column: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (d *DB) Close() error { return d.db.Close() }

// Path returns the database file path.
func (d *DB) Path() string { return d.path }

// Collection returns the storage of one named collection.
func (d *DB) Collection(name string) *Storage {
	return &Storage{db: d.db, collection: name}
}

// Storage is one collection inside a DB.
type Storage struct {
	db         *sql.DB
	collection string
	dimension  int
}

// Init records the collection's dimension. A collection persisted with a
// different dimension is emptied first.
func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	var stored int
	err := s.db.QueryRowContext(ctx, `SELECT dimension FROM collections WHERE name = ?`, s.collection).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.ExecContext(ctx, `INSERT INTO collections (name, dimension) VALUES (?, ?)`, s.collection, dimension); err != nil {
			return fmt.Errorf("registering collection: %w", err)
		}
	case err != nil:
		return fmt.Errorf("reading collection: %w", err)
	case stored != dimension:
		if err := s.Clear(ctx); err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO collections (name, dimension) VALUES (?, ?)`, s.collection, dimension); err != nil {
			return fmt.Errorf("registering collection: %w", err)
		}
	}
	s.dimension = dimension
	return nil
}

func (s *Storage) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return vectorstore.ErrLength
	}
	for _, v := range vectors {
		if len(v) != s.dimension {
			return vectorstore.ErrDimension
		}
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var next int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM vectors WHERE collection = ?`, s.collection).Scan(&next); err != nil {
		return fmt.Errorf("reading sequence: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (collection, chunk_id, seq, document_id, chunk_index, title, keywords, content, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, chunk_id) DO UPDATE SET
			document_id = excluded.document_id,
			chunk_index = excluded.chunk_index,
			title = excluded.title,
			keywords = excluded.keywords,
			content = excluded.content,
			embedding = excluded.embedding`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for i, ch := range chunks {
		kw, err := json.Marshal(ch.Keywords)
		if err != nil {
			return err
		}
		next++
		if _, err := stmt.ExecContext(ctx, s.collection, ch.ChunkID, next, ch.DocumentID, ch.Index,
			ch.Title, string(kw), ch.Text, EncodeEmbedding(vectors[i])); err != nil {
			return fmt.Errorf("upserting %s: %w", ch.ChunkID, err)
		}
	}
	return tx.Commit()
}

// Search scans the collection in insertion order and ranks by cosine similarity.
func (s *Storage) Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 3
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, document_id, chunk_index, title, keywords, content, embedding
		FROM vectors WHERE collection = ? ORDER BY seq`, s.collection)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	var vectors [][]float64
	for rows.Next() {
		var ch domain.Chunk
		var kw string
		var blob []byte
		if err := rows.Scan(&ch.ChunkID, &ch.DocumentID, &ch.Index, &ch.Title, &kw, &ch.Text, &blob); err != nil {
			return nil, fmt.Errorf("scanning vector: %w", err)
		}
		if kw != "" && kw != "null" {
			if err := json.Unmarshal([]byte(kw), &ch.Keywords); err != nil {
				return nil, fmt.Errorf("decoding keywords of %s: %w", ch.ChunkID, err)
			}
		}
		vec, err := DecodeEmbedding(blob)
		if err != nil {
			return nil, err
		}
		if len(vec) != len(vector) {
			return nil, vectorstore.ErrDimension
		}
		chunks = append(chunks, ch)
		vectors = append(vectors, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return vectorstore.Rank(vector, chunks, vectors, topK), nil
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vectors WHERE collection = ?`, s.collection).Scan(&n)
	return n, err
}

// Clear removes the collection's vectors and its registration.
func (s *Storage) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM vectors WHERE collection = ?`, s.collection); err != nil {
		return fmt.Errorf("clearing vectors: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, s.collection); err != nil {
		return fmt.Errorf("clearing collection: %w", err)
	}
	return nil
}

// Fingerprint returns the recorded corpus fingerprint, empty for an
// unregistered collection.
func (s *Storage) Fingerprint(ctx context.Context) (string, error) {
	var fp string
	err := s.db.QueryRowContext(ctx, `SELECT fingerprint FROM collections WHERE name = ?`, s.collection).Scan(&fp)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading fingerprint: %w", err)
	}
	return fp, nil
}

// SetFingerprint records fp on the collection registered by Init.
func (s *Storage) SetFingerprint(ctx context.Context, fp string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE collections SET fingerprint = ? WHERE name = ?`, fp, s.collection)
	if err != nil {
		return fmt.Errorf("writing fingerprint: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("collection %s is not initialized", s.collection)
	}
	return nil
}

// EncodeEmbedding stores vec as little-endian float32 values.
func EncodeEmbedding(vec []float64) []byte {
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(float32(v)))
	}
	return b
}

// DecodeEmbedding reverses EncodeEmbedding.
func DecodeEmbedding(b []byte) ([]float64, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d (not multiple of 4)", len(b))
	}
	vec := make([]float64, len(b)/4)
	for i := range vec {
		vec[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:])))
	}
	return vec, nil
}
