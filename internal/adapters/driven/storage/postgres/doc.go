// Package postgres provides the PostgreSQL implementations of driven.Store
// and driven.VectorIndex.
//
// Both share one gorm connection pool opened by Open. Tables are created
// with gorm's AutoMigrate after the pgvector extension is enabled:
//
//   - documents, chunks: document metadata and ordered chunks; chunks
//     reference their document with ON DELETE CASCADE
//   - chats: the append-only chat log
//   - vector_records: embedded chunk texts keyed by partition, searched
//     with the pgvector cosine distance operator (<=>)
//
// The vector index is durable, so a restart does not need a rebuild from
// the chunk store.
package postgres
