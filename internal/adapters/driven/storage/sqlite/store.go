package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/paperlens/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/paperlens/internal/core/domain"
	"github.com/custodia-labs/paperlens/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to the
// document, fingerprint and embedding cache store interfaces through
// wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.paperlens/data/index.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".paperlens", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "index.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// FingerprintStore returns a FingerprintStore interface backed by this store.
func (s *Store) FingerprintStore() driven.FingerprintStore {
	return &fingerprintStore{store: s}
}

// EmbeddingCacheStore returns an EmbeddingCacheStore interface backed by this store.
func (s *Store) EmbeddingCacheStore() driven.EmbeddingCacheStore {
	return &embeddingCacheStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial_schema.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// SaveDocument stores or updates a document.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (id, filename, source_path, title, authors, abstract,
			page_count, byte_size, uploaded_at, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			source_path = excluded.source_path,
			title = excluded.title,
			authors = excluded.authors,
			abstract = excluded.abstract,
			page_count = excluded.page_count,
			byte_size = excluded.byte_size,
			processed_at = excluded.processed_at
	`, doc.ID, doc.Filename, doc.SourcePath, doc.Title, doc.Authors, doc.Abstract,
		doc.PageCount, doc.ByteSize, nullableTime(doc.UploadedAt), nullableTime(doc.ProcessedAt))

	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, filename, source_path, title, authors, abstract,
			page_count, byte_size, uploaded_at, processed_at
		FROM documents WHERE id = ?
	`, id)

	var doc domain.Document
	var uploadedAt, processedAt sql.NullTime

	err := row.Scan(&doc.ID, &doc.Filename, &doc.SourcePath, &doc.Title, &doc.Authors,
		&doc.Abstract, &doc.PageCount, &doc.ByteSize, &uploadedAt, &processedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	if uploadedAt.Valid {
		doc.UploadedAt = uploadedAt.Time
	}
	if processedAt.Valid {
		doc.ProcessedAt = processedAt.Time
	}
	return &doc, nil
}

// ReplaceChunks atomically replaces the chunk set for a document.
// On any failure the transaction rolls back and the prior chunks
// remain visible.
func (s *documentStore) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", domain.ErrStorageFailure, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM document_chunks WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("%w: clearing chunks: %w", domain.ErrStorageFailure, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO document_chunks (id, document_id, content, page_number,
			section_title, section_type, start_position, end_position,
			bounding_box, confidence, embedding, created_at, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%w: preparing statement: %w", domain.ErrStorageFailure, err)
	}
	defer stmt.Close()

	for i, chunk := range chunks {
		var bbox any
		if chunk.Metadata.BoundingBox != nil {
			data, err := json.Marshal(chunk.Metadata.BoundingBox)
			if err != nil {
				return fmt.Errorf("marshalling bounding box: %w", err)
			}
			bbox = string(data)
		}

		embeddingBlob := float32SliceToBytes(chunk.Embedding)

		if _, err := stmt.ExecContext(ctx, chunk.ID, documentID, chunk.Content,
			chunk.Metadata.PageNumber, chunk.Metadata.SectionTitle, string(chunk.Metadata.SectionType),
			chunk.Metadata.StartPosition, chunk.Metadata.EndPosition,
			bbox, chunk.Metadata.Confidence, embeddingBlob, chunk.CreatedAt, i); err != nil {
			return fmt.Errorf("%w: saving chunk: %w", domain.ErrStorageFailure, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %w", domain.ErrStorageFailure, err)
	}
	return nil
}

// ReplaceSections atomically replaces the stored section tree.
func (s *documentStore) ReplaceSections(ctx context.Context, documentID string, sections []domain.Section) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", domain.ErrStorageFailure, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM document_sections WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("%w: clearing sections: %w", domain.ErrStorageFailure, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO document_sections (id, document_id, parent_id, type, title,
			level, content, start_page, end_page, confidence, keywords,
			sentence_count, readability, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%w: preparing statement: %w", domain.ErrStorageFailure, err)
	}
	defer stmt.Close()

	for i, section := range sections {
		keywordsJSON, err := json.Marshal(section.Keywords)
		if err != nil {
			return fmt.Errorf("marshalling keywords: %w", err)
		}

		var parentID any
		if section.ParentID != "" {
			parentID = section.ParentID
		}

		if _, err := stmt.ExecContext(ctx, section.ID, documentID, parentID,
			string(section.Type), section.Title, section.Level, section.Content,
			section.StartPage, section.EndPage, section.Confidence,
			string(keywordsJSON), section.SentenceCount, section.Readability, i); err != nil {
			return fmt.Errorf("%w: saving section: %w", domain.ErrStorageFailure, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %w", domain.ErrStorageFailure, err)
	}
	return nil
}

// GetChunks retrieves all chunks for a document in stored order.
func (s *documentStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, chunkColumns+`
		FROM document_chunks WHERE document_id = ?
		ORDER BY position
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	chunks := []domain.Chunk{}
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// GetChunk retrieves a specific chunk by ID.
func (s *documentStore) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, chunkColumns+`
		FROM document_chunks WHERE id = ?
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying chunk: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("querying chunk: %w", err)
		}
		return nil, domain.ErrNotFound
	}

	return scanChunk(rows)
}

// GetAdjacentChunks returns same-document, same-section-type chunks
// within pageWindow pages of the given chunk, excluding itself.
func (s *documentStore) GetAdjacentChunks(ctx context.Context, chunk *domain.Chunk, pageWindow int) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, chunkColumns+`
		FROM document_chunks
		WHERE document_id = ?
			AND section_type = ?
			AND page_number BETWEEN ? AND ?
			AND id != ?
		ORDER BY position
	`, chunk.DocumentID, string(chunk.Metadata.SectionType),
		chunk.Metadata.PageNumber-pageWindow, chunk.Metadata.PageNumber+pageWindow, chunk.ID)
	if err != nil {
		return nil, fmt.Errorf("querying adjacent chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating adjacent chunks: %w", err)
	}

	return chunks, nil
}

// DeleteDocument removes a document; sections, chunks and the
// fingerprint cascade.
func (s *documentStore) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// Stats computes chunk statistics for a document store-side.
func (s *documentStore) Stats(ctx context.Context, documentID string) (*domain.DocumentStats, error) {
	stats := &domain.DocumentStats{
		SectionDistribution: make(map[domain.SectionType]int),
		PageDistribution:    make(map[int]int),
	}

	row := s.store.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(AVG(LENGTH(content)), 0)
		FROM document_chunks WHERE document_id = ?
	`, documentID)
	if err := row.Scan(&stats.TotalChunks, &stats.AverageChunkSize); err != nil {
		return nil, fmt.Errorf("scanning chunk totals: %w", err)
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT section_type, COUNT(*) FROM document_chunks
		WHERE document_id = ? GROUP BY section_type
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying section distribution: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sectionType string
		var count int
		if err := rows.Scan(&sectionType, &count); err != nil {
			return nil, fmt.Errorf("scanning section distribution: %w", err)
		}
		stats.SectionDistribution[domain.SectionType(sectionType)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating section distribution: %w", err)
	}

	pageRows, err := s.store.db.QueryContext(ctx, `
		SELECT page_number, COUNT(*) FROM document_chunks
		WHERE document_id = ? GROUP BY page_number
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying page distribution: %w", err)
	}
	defer pageRows.Close()

	for pageRows.Next() {
		var page, count int
		if err := pageRows.Scan(&page, &count); err != nil {
			return nil, fmt.Errorf("scanning page distribution: %w", err)
		}
		stats.PageDistribution[page] = count
	}
	if err := pageRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating page distribution: %w", err)
	}

	return stats, nil
}

// ==================== Fingerprint Store ====================

// fingerprintStore implements driven.FingerprintStore.
type fingerprintStore struct {
	store *Store
}

var _ driven.FingerprintStore = (*fingerprintStore)(nil)

// Save stores or overwrites the fingerprint for a document.
func (s *fingerprintStore) Save(ctx context.Context, fp *domain.Fingerprint) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO document_fingerprints (document_id, content_hash, structure_hash,
			embedding_version, last_processed, chunk_count)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			content_hash = excluded.content_hash,
			structure_hash = excluded.structure_hash,
			embedding_version = excluded.embedding_version,
			last_processed = excluded.last_processed,
			chunk_count = excluded.chunk_count
	`, fp.DocumentID, fp.ContentHash, fp.StructureHash, fp.EmbeddingVersion,
		nullableTime(fp.LastProcessed), fp.ChunkCount)

	if err != nil {
		return fmt.Errorf("saving fingerprint: %w", err)
	}
	return nil
}

// Get retrieves the fingerprint for a document.
func (s *fingerprintStore) Get(ctx context.Context, documentID string) (*domain.Fingerprint, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT document_id, content_hash, structure_hash, embedding_version,
			last_processed, chunk_count
		FROM document_fingerprints WHERE document_id = ?
	`, documentID)

	var fp domain.Fingerprint
	var lastProcessed sql.NullTime

	err := row.Scan(&fp.DocumentID, &fp.ContentHash, &fp.StructureHash,
		&fp.EmbeddingVersion, &lastProcessed, &fp.ChunkCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning fingerprint: %w", err)
	}

	if lastProcessed.Valid {
		fp.LastProcessed = lastProcessed.Time
	}
	return &fp, nil
}

// Delete removes the fingerprint for a document.
func (s *fingerprintStore) Delete(ctx context.Context, documentID string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM document_fingerprints WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("deleting fingerprint: %w", err)
	}
	return nil
}

// ==================== Embedding Cache Store ====================

// embeddingCacheStore implements driven.EmbeddingCacheStore.
type embeddingCacheStore struct {
	store *Store
}

var _ driven.EmbeddingCacheStore = (*embeddingCacheStore)(nil)

// Get retrieves a cached vector and its model.
func (s *embeddingCacheStore) Get(ctx context.Context, key string) ([]float32, string, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT vector, model FROM embedding_cache WHERE key = ?", key)

	var blob []byte
	var model string
	err := row.Scan(&blob, &model)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", domain.ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("scanning cache entry: %w", err)
	}

	vector, err := bytesToFloat32Slice(blob)
	if err != nil {
		return nil, "", fmt.Errorf("decoding cached vector: %w", err)
	}
	return vector, model, nil
}

// Put stores a vector under the key.
func (s *embeddingCacheStore) Put(ctx context.Context, key string, vector []float32, model string) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO embedding_cache (key, vector, model)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			vector = excluded.vector,
			model = excluded.model
	`, key, float32SliceToBytes(vector), model)

	if err != nil {
		return fmt.Errorf("saving cache entry: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

// chunkColumns is the shared SELECT prefix for chunk scans.
const chunkColumns = `
	SELECT id, document_id, content, page_number, section_title, section_type,
		start_position, end_position, bounding_box, confidence, embedding, created_at
`

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32. A blob
// whose length is not a multiple of 4 cannot be a stored vector; it is
// rejected rather than silently truncated to a shorter embedding.
func bytesToFloat32Slice(data []byte) ([]float32, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: embedding blob length %d is not a multiple of 4",
			domain.ErrDimensionMismatch, len(data))
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats, nil
}

// scanChunk scans one chunk row.
func scanChunk(rows *sql.Rows) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var sectionType string
	var bbox sql.NullString
	var embeddingBlob []byte
	var createdAt sql.NullTime

	if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Content,
		&chunk.Metadata.PageNumber, &chunk.Metadata.SectionTitle, &sectionType,
		&chunk.Metadata.StartPosition, &chunk.Metadata.EndPosition,
		&bbox, &chunk.Metadata.Confidence, &embeddingBlob, &createdAt); err != nil {
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	chunk.Metadata.SectionType = domain.SectionType(sectionType)
	embedding, err := bytesToFloat32Slice(embeddingBlob)
	if err != nil {
		return nil, fmt.Errorf("decoding embedding for chunk %s: %w", chunk.ID, err)
	}
	chunk.Embedding = embedding

	if bbox.Valid && bbox.String != "" {
		var box domain.BoundingBox
		if err := json.Unmarshal([]byte(bbox.String), &box); err != nil {
			return nil, fmt.Errorf("unmarshalling bounding box: %w", err)
		}
		chunk.Metadata.BoundingBox = &box
	}
	if createdAt.Valid {
		chunk.CreatedAt = createdAt.Time
	}

	return &chunk, nil
}

// nullableTime maps the zero time to NULL.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
