package domain

import (
	"strings"
	"time"
)

// ChatEntry is one question/answer exchange in a user's chat log.
// The log is append-only.
type ChatEntry struct {
	ID               string
	UserID           string
	Question         string
	Response         string
	PersonalizedMode bool
	CreatedAt        time.Time
}

// ChatRequest is a question asked by a user, optionally with live
// wearable readings.
type ChatRequest struct {
	UserID    string
	Question  string
	Telemetry *Telemetry
}

// ChatAnswer is the generated answer for a ChatRequest.
type ChatAnswer struct {
	UserID string

	// Personalized is true iff user-partition retrieval returned at least one chunk.
	Personalized bool

	Response string
}

// ValidUserID returns true if id can name a user partition. The global
// partition key is reserved and never accepted as a user ID.
func ValidUserID(id string) bool {
	id = strings.TrimSpace(id)
	return id != "" && Scope(id) != GlobalScope
}
