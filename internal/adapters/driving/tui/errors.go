package tui

import "errors"

// ErrMissingChatService is returned when the chat service is not provided.
var ErrMissingChatService = errors.New("tui: chat service is required")

// ErrMissingUserID is returned when the session has no valid user.
var ErrMissingUserID = errors.New("tui: a valid user ID is required")
