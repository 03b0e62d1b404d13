package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driving"
)

const (
	// uriScheme is the custom URI scheme for PulseIQ resources.
	uriScheme = "pulseiq://"

	usersPrefix = uriScheme + "users/"
	chatsSuffix = "/chats"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: usersPrefix + "{userId}" + chatsSuffix,
		Name:        "user-chats",
		Description: "A user's most recent chat exchanges, newest first",
		MIMEType:    "application/json",
	}, s.handleChatsResource)
}

// chatInfo is one entry of the user-chats resource.
type chatInfo struct {
	ID               string `json:"id"`
	Question         string `json:"question"`
	Response         string `json:"response"`
	PersonalizedMode bool   `json:"personalized_mode"`
	CreatedAt        string `json:"created_at"`
}

// handleChatsResource returns the chat log for the user named in the URI.
func (s *Server) handleChatsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.History == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	userID := extractUserID(req.Params.URI)
	if userID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	entries, err := s.ports.History.History(ctx, userID, driving.DefaultHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("listing chats: %w", err)
	}

	infos := make([]chatInfo, len(entries))
	for i, e := range entries {
		infos[i] = chatInfo{
			ID:               e.ID,
			Question:         e.Question,
			Response:         e.Response,
			PersonalizedMode: e.PersonalizedMode,
			CreatedAt:        formatTime(e.CreatedAt),
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling chats: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractUserID extracts the user ID from a URI like pulseiq://users/{userId}/chats.
func extractUserID(uri string) string {
	if len(uri) <= len(usersPrefix)+len(chatsSuffix) ||
		!strings.HasPrefix(uri, usersPrefix) || !strings.HasSuffix(uri, chatsSuffix) {
		return ""
	}
	id := uri[len(usersPrefix) : len(uri)-len(chatsSuffix)]
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
