// Package mcp provides a Model Context Protocol server for PulseIQ.
// It lets AI assistants ask medical questions, query the partitioned
// index and read a user's chat log and digital twin.
package mcp

import "errors"

// Construction errors.
var (
	ErrMissingChatService      = errors.New("mcp: chat service is required")
	ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")
)
