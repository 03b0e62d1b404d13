package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driven"
	"github.com/pulseiq/pulseiq-rag/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.Store = (*Store)(nil)

// slowQueryThreshold is the duration above which gorm reports a query.
const slowQueryThreshold = 500 * time.Millisecond

// Open connects to PostgreSQL, enables pgvector and migrates the schema.
func Open(ctx context.Context, dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: postgres dsn is empty", domain.ErrInvalidInput)
	}

	level := gormlogger.Warn
	if logger.IsVerbose() {
		level = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.New(gormWriter{}, gormlogger.Config{
			SlowThreshold:             slowQueryThreshold,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := Migrate(db.WithContext(ctx)); err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

// Migrate enables the vector extension and creates or updates all tables.
func Migrate(db *gorm.DB) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("enabling pgvector: %w", err)
	}
	return db.AutoMigrate(
		&documentModel{},
		&chunkModel{},
		&chatModel{},
		&vectorModel{},
	)
}

// gormWriter routes gorm's log lines into the application logger.
type gormWriter struct{}

func (gormWriter) Printf(format string, args ...any) {
	if logger.IsVerbose() {
		logger.Debug(format, args...)
		return
	}
	logger.Warn(format, args...)
}

// Store is a PostgreSQL-backed driven.Store.
type Store struct {
	db *gorm.DB
}

// NewStore wraps an opened database.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithSession runs fn inside a transaction. gorm rolls back when fn
// returns an error or panics.
func (s *Store) WithSession(ctx context.Context, fn func(driven.Session) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&session{tx: tx})
	})
}

// Close releases the connection pool shared with the vector index.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type session struct {
	tx *gorm.DB
}

func (s *session) Documents() driven.DocumentStore { return &documentStore{tx: s.tx} }
func (s *session) Chats() driven.ChatStore         { return &chatStore{tx: s.tx} }

// ==================== Document Store ====================

type documentStore struct {
	tx *gorm.DB
}

var _ driven.DocumentStore = (*documentStore)(nil)

// SaveDocument stores or updates a document.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if !doc.Scope.IsValid() {
		return fmt.Errorf("%w: document %s has no scope", domain.ErrInvalidInput, doc.ID)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	row := fromDocument(doc)
	err := s.tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"scope", "file_name", "disease_name", "metadata"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// SaveChunks stores chunks after checking each against its document's scope.
func (s *documentStore) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	scopes := make(map[string]string)
	rows := make([]chunkModel, len(chunks))
	for i, chunk := range chunks {
		scope, ok := scopes[chunk.DocumentID]
		if !ok {
			var doc documentModel
			err := s.tx.WithContext(ctx).Select("scope").Where("id = ?", chunk.DocumentID).Take(&doc).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("loading document %s: %w", chunk.DocumentID, err)
			}
			scope = doc.Scope
			scopes[chunk.DocumentID] = scope
		}
		if scope == "" || scope != chunk.Scope.String() {
			return fmt.Errorf("%w: chunk %s does not match a document in scope %q",
				domain.ErrInvalidInput, chunk.ID, chunk.Scope)
		}
		rows[i] = fromChunk(chunk)
	}

	err := s.tx.WithContext(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "position", "embedding", "metadata"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("saving chunks: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	var row documentModel
	err := s.tx.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying document: %w", err)
	}
	doc := row.toDomain()
	return &doc, nil
}

// GetChunks retrieves all chunks for a document ordered by position.
func (s *documentStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	var rows []chunkModel
	err := s.tx.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("position").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	return chunksToDomain(rows), nil
}

// DeleteDocument removes a document. The foreign key cascade removes its chunks.
func (s *documentStore) DeleteDocument(ctx context.Context, id string) error {
	res := s.tx.WithContext(ctx).Where("id = ?", id).Delete(&documentModel{})
	if res.Error != nil {
		return fmt.Errorf("deleting document: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListDocuments returns the documents of one scope, oldest first.
func (s *documentStore) ListDocuments(ctx context.Context, scope domain.Scope) ([]domain.Document, error) {
	var rows []documentModel
	err := s.tx.WithContext(ctx).
		Where("scope = ?", scope.String()).
		Order("created_at, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}

	docs := make([]domain.Document, len(rows))
	for i, row := range rows {
		docs[i] = row.toDomain()
	}
	return docs, nil
}

// ListAllChunks returns every chunk ordered by document creation and position.
func (s *documentStore) ListAllChunks(ctx context.Context) ([]domain.Chunk, error) {
	var rows []chunkModel
	err := s.tx.WithContext(ctx).
		Select("chunks.*").
		Joins("JOIN documents ON documents.id = chunks.document_id").
		Order("documents.created_at, documents.id, chunks.position").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	return chunksToDomain(rows), nil
}

func chunksToDomain(rows []chunkModel) []domain.Chunk {
	chunks := make([]domain.Chunk, len(rows))
	for i, row := range rows {
		chunks[i] = row.toDomain()
	}
	return chunks
}

// ==================== Chat Store ====================

type chatStore struct {
	tx *gorm.DB
}

var _ driven.ChatStore = (*chatStore)(nil)

// SaveChat appends an entry.
func (s *chatStore) SaveChat(ctx context.Context, entry *domain.ChatEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	row := fromChat(entry)
	if err := s.tx.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("saving chat: %w", err)
	}
	return nil
}

// ListChats returns a user's entries oldest first.
func (s *chatStore) ListChats(ctx context.Context, userID string) ([]domain.ChatEntry, error) {
	var rows []chatModel
	err := s.tx.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at, seq").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("querying chats: %w", err)
	}
	return chatsToDomain(rows), nil
}

// RecentChats returns at most limit entries, newest first.
func (s *chatStore) RecentChats(ctx context.Context, userID string, limit int) ([]domain.ChatEntry, error) {
	if limit <= 0 {
		return []domain.ChatEntry{}, nil
	}

	var rows []chatModel
	err := s.tx.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, seq DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("querying chats: %w", err)
	}
	return chatsToDomain(rows), nil
}

// CountChats returns the number of entries for a user.
func (s *chatStore) CountChats(ctx context.Context, userID string) (int, error) {
	var n int64
	err := s.tx.WithContext(ctx).Model(&chatModel{}).Where("user_id = ?", userID).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("counting chats: %w", err)
	}
	return int(n), nil
}

func chatsToDomain(rows []chatModel) []domain.ChatEntry {
	entries := make([]domain.ChatEntry, len(rows))
	for i, row := range rows {
		entries[i] = row.toDomain()
	}
	return entries
}
