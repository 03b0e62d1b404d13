package sqlite

import (
	"context"
	"database/sql"
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

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/pulseiq/pulseiq-rag/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driven"
)

// DatabaseFile is the file name created inside the data directory.
const DatabaseFile = "pulseiq.db"

// Ensure Store implements the interface.
var _ driven.Store = (*Store)(nil)

// Store is a SQLite-backed driven.Store.
type Store struct {
	db   *sql.DB
	path string
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewStore creates a new SQLite store in the specified data directory.
// If dataDir is empty, defaults to ~/.pulseiq/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".pulseiq", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// Pragmas in the DSN apply to every pooled connection.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// WithSession runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise, including on panic.
func (s *Store) WithSession(ctx context.Context, fn func(driven.Session) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback() //nolint:errcheck
			panic(p)
		}
		if err != nil {
			tx.Rollback() //nolint:errcheck
		}
	}()

	if err = fn(&session{q: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate applies every embedded migration newer than the recorded version.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

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
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}

	return nil
}

// session binds the stores to one transaction.
type session struct {
	q querier
}

func (s *session) Documents() driven.DocumentStore { return &documentStore{q: s.q} }
func (s *session) Chats() driven.ChatStore         { return &chatStore{q: s.q} }

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	q querier
}

var _ driven.DocumentStore = (*documentStore)(nil)

const chunkColumns = "c.id, c.document_id, c.scope, c.content, c.position, c.embedding, c.metadata"

// SaveDocument stores or updates a document.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if !doc.Scope.IsValid() {
		return fmt.Errorf("%w: document %s has no scope", domain.ErrInvalidInput, doc.ID)
	}
	metadataJSON, err := marshalMetadata(doc.Metadata)
	if err != nil {
		return err
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO documents (id, scope, file_name, disease_name, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			scope = excluded.scope,
			file_name = excluded.file_name,
			disease_name = excluded.disease_name,
			metadata = excluded.metadata
	`, doc.ID, doc.Scope.String(), doc.FileName, doc.DiseaseName, metadataJSON, doc.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// SaveChunks stores chunks. The insert copies the scope from the parent
// row, so a chunk whose scope disagrees with its document is rejected.
func (s *documentStore) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	stmt, err := s.q.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, scope, content, position, embedding, metadata)
		SELECT ?, d.id, d.scope, ?, ?, ?, ?
		FROM documents d WHERE d.id = ? AND d.scope = ?
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			position = excluded.position,
			embedding = excluded.embedding,
			metadata = excluded.metadata
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		metadataJSON, err := marshalMetadata(chunk.Metadata)
		if err != nil {
			return err
		}

		res, err := stmt.ExecContext(ctx, chunk.ID, chunk.Content, chunk.Position,
			float32SliceToBytes(chunk.Embedding), metadataJSON, chunk.DocumentID, chunk.Scope.String())
		if err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%w: chunk %s does not match a document in scope %q",
				domain.ErrInvalidInput, chunk.ID, chunk.Scope)
		}
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, scope, file_name, disease_name, metadata, created_at
		FROM documents WHERE id = ?
	`, id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return doc, err
}

// GetChunks retrieves all chunks for a document ordered by position.
func (s *documentStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+chunkColumns+`
		FROM chunks c WHERE c.document_id = ?
		ORDER BY c.position
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	return scanChunks(rows)
}

// DeleteDocument removes a document. Its chunks go with it through the
// foreign key cascade.
func (s *documentStore) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListDocuments returns the documents of one scope, oldest first.
func (s *documentStore) ListDocuments(ctx context.Context, scope domain.Scope) ([]domain.Document, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, scope, file_name, disease_name, metadata, created_at
		FROM documents WHERE scope = ?
		ORDER BY created_at, id
	`, scope.String())
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// ListAllChunks returns every chunk ordered by document creation and position.
func (s *documentStore) ListAllChunks(ctx context.Context) ([]domain.Chunk, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+chunkColumns+`
		FROM chunks c JOIN documents d ON d.id = c.document_id
		ORDER BY d.created_at, d.id, c.position
	`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	return scanChunks(rows)
}

// ==================== Chat Store ====================

// chatStore implements driven.ChatStore.
type chatStore struct {
	q querier
}

var _ driven.ChatStore = (*chatStore)(nil)

const chatColumns = "id, user_id, question, response, personalized_mode, created_at"

// SaveChat appends an entry.
func (s *chatStore) SaveChat(ctx context.Context, entry *domain.ChatEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO chats (`+chatColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.UserID, entry.Question, entry.Response, entry.PersonalizedMode, entry.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving chat: %w", err)
	}
	return nil
}

// ListChats returns a user's entries oldest first.
func (s *chatStore) ListChats(ctx context.Context, userID string) ([]domain.ChatEntry, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+chatColumns+` FROM chats
		WHERE user_id = ?
		ORDER BY created_at, seq
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying chats: %w", err)
	}
	return scanChats(rows)
}

// RecentChats returns at most limit entries, newest first.
func (s *chatStore) RecentChats(ctx context.Context, userID string, limit int) ([]domain.ChatEntry, error) {
	if limit <= 0 {
		return []domain.ChatEntry{}, nil
	}
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+chatColumns+` FROM chats
		WHERE user_id = ?
		ORDER BY created_at DESC, seq DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying chats: %w", err)
	}
	return scanChats(rows)
}

// CountChats returns the number of entries for a user.
func (s *chatStore) CountChats(ctx context.Context, userID string) (int, error) {
	var n int
	if err := s.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM chats WHERE user_id = ?", userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chats: %w", err)
	}
	return n, nil
}

// ==================== Helper Functions ====================

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func marshalMetadata(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshalling metadata: %w", err)
	}
	return string(b), nil
}

func unmarshalMetadata(s string) (map[string]any, error) {
	if s == "" || s == "{}" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("unmarshalling metadata: %w", err)
	}
	return m, nil
}

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

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

func scanDocument(row scanner) (*domain.Document, error) {
	var doc domain.Document
	var scope, metadataJSON string

	if err := row.Scan(&doc.ID, &scope, &doc.FileName, &doc.DiseaseName,
		&metadataJSON, &doc.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	doc.Scope = domain.Scope(scope)

	metadata, err := unmarshalMetadata(metadataJSON)
	if err != nil {
		return nil, err
	}
	doc.Metadata = metadata
	return &doc, nil
}

func scanChunks(rows *sql.Rows) ([]domain.Chunk, error) {
	defer rows.Close()

	chunks := []domain.Chunk{}
	for rows.Next() {
		var chunk domain.Chunk
		var scope, metadataJSON string
		var embeddingBlob []byte

		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &scope, &chunk.Content,
			&chunk.Position, &embeddingBlob, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunk.Scope = domain.Scope(scope)
		chunk.Embedding = bytesToFloat32Slice(embeddingBlob)

		metadata, err := unmarshalMetadata(metadataJSON)
		if err != nil {
			return nil, err
		}
		chunk.Metadata = metadata
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

func scanChats(rows *sql.Rows) ([]domain.ChatEntry, error) {
	defer rows.Close()

	entries := []domain.ChatEntry{}
	for rows.Next() {
		var e domain.ChatEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Question, &e.Response,
			&e.PersonalizedMode, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chat: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chats: %w", err)
	}
	return entries, nil
}
