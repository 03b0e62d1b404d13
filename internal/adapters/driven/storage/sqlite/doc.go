// Package sqlite provides the SQLite implementation of driven.Store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. One database file holds documents, their chunks and
// the chat log:
//
//   - DocumentStore: documents and ordered chunks, with cascading deletes
//   - ChatStore: the append-only chat history
//
// # Sessions
//
// Every unit of work runs in a transaction opened by Store.WithSession and
// closed before it returns. Nothing holds a connection between requests.
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Applied versions are recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.pulseiq/data/pulseiq.db
package sqlite
