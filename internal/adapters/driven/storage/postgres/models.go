package postgres

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
)

// jsonMap stores metadata in a jsonb column.
type jsonMap map[string]any

func (j jsonMap) Value() (driver.Value, error) {
	if j == nil {
		return "{}", nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (j *jsonMap) Scan(value any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*j = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scanning jsonb: unexpected type %T", value)
	}
	m := map[string]any{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	if len(m) == 0 {
		*j = nil
		return nil
	}
	*j = m
	return nil
}

type documentModel struct {
	ID          string    `gorm:"primaryKey"`
	Scope       string    `gorm:"not null;index:idx_documents_scope_created,priority:1"`
	FileName    string    `gorm:"not null;default:''"`
	DiseaseName string    `gorm:"not null;default:''"`
	Metadata    jsonMap   `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt   time.Time `gorm:"not null;index:idx_documents_scope_created,priority:2"`
}

func (documentModel) TableName() string { return "documents" }

type chunkModel struct {
	ID         string           `gorm:"primaryKey"`
	DocumentID string           `gorm:"not null;index:idx_chunks_document_position,priority:1"`
	Document   *documentModel   `gorm:"constraint:OnDelete:CASCADE"`
	Scope      string           `gorm:"not null"`
	Content    string           `gorm:"not null"`
	Position   int              `gorm:"not null;index:idx_chunks_document_position,priority:2"`
	Embedding  *pgvector.Vector `gorm:"type:vector"`
	Metadata   jsonMap          `gorm:"type:jsonb;not null;default:'{}'"`
}

func (chunkModel) TableName() string { return "chunks" }

type chatModel struct {
	Seq              int64     `gorm:"primaryKey;autoIncrement"`
	ID               string    `gorm:"uniqueIndex;not null"`
	UserID           string    `gorm:"not null;index:idx_chats_user_created,priority:1"`
	Question         string    `gorm:"not null"`
	Response         string    `gorm:"not null"`
	PersonalizedMode bool      `gorm:"not null;default:false"`
	CreatedAt        time.Time `gorm:"not null;index:idx_chats_user_created,priority:2"`
}

func (chatModel) TableName() string { return "chats" }

type vectorModel struct {
	ID           int64           `gorm:"primaryKey;autoIncrement"`
	PartitionKey string          `gorm:"not null;index"`
	ChunkID      string          `gorm:"not null;default:''"`
	Text         string          `gorm:"not null"`
	Embedding    pgvector.Vector `gorm:"type:vector;not null"`
}

func (vectorModel) TableName() string { return "vector_records" }

func fromDocument(doc *domain.Document) documentModel {
	return documentModel{
		ID:          doc.ID,
		Scope:       doc.Scope.String(),
		FileName:    doc.FileName,
		DiseaseName: doc.DiseaseName,
		Metadata:    jsonMap(doc.Metadata),
		CreatedAt:   doc.CreatedAt.UTC(),
	}
}

func (m documentModel) toDomain() domain.Document {
	return domain.Document{
		ID:          m.ID,
		Scope:       domain.Scope(m.Scope),
		FileName:    m.FileName,
		DiseaseName: m.DiseaseName,
		Metadata:    m.Metadata,
		CreatedAt:   m.CreatedAt.UTC(),
	}
}

func fromChunk(c domain.Chunk) chunkModel {
	m := chunkModel{
		ID:         c.ID,
		DocumentID: c.DocumentID,
		Scope:      c.Scope.String(),
		Content:    c.Content,
		Position:   c.Position,
		Metadata:   jsonMap(c.Metadata),
	}
	if len(c.Embedding) > 0 {
		v := pgvector.NewVector(c.Embedding)
		m.Embedding = &v
	}
	return m
}

func (m chunkModel) toDomain() domain.Chunk {
	c := domain.Chunk{
		ID:         m.ID,
		DocumentID: m.DocumentID,
		Scope:      domain.Scope(m.Scope),
		Content:    m.Content,
		Position:   m.Position,
		Metadata:   m.Metadata,
	}
	if m.Embedding != nil {
		c.Embedding = m.Embedding.Slice()
	}
	return c
}

func fromChat(e *domain.ChatEntry) chatModel {
	return chatModel{
		ID:               e.ID,
		UserID:           e.UserID,
		Question:         e.Question,
		Response:         e.Response,
		PersonalizedMode: e.PersonalizedMode,
		CreatedAt:        e.CreatedAt.UTC(),
	}
}

func (m chatModel) toDomain() domain.ChatEntry {
	return domain.ChatEntry{
		ID:               m.ID,
		UserID:           m.UserID,
		Question:         m.Question,
		Response:         m.Response,
		PersonalizedMode: m.PersonalizedMode,
		CreatedAt:        m.CreatedAt.UTC(),
	}
}
