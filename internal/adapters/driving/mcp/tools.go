package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driving"
)

// ChatInput is the input schema for the chat tool.
type ChatInput struct {
	UserID    string            `json:"user_id" jsonschema:"the user whose medical records personalise the answer"`
	Question  string            `json:"question" jsonschema:"the medical question to answer"`
	WatchData map[string]any `json:"watch_data,omitempty" jsonschema:"optional live wearable readings keyed heartRate, steps, calories, sleep, bloodPressure, spO2, temperature"`
}

// ChatOutput is the output schema for the chat tool.
type ChatOutput struct {
	UserID           string `json:"user_id"`
	PersonalizedMode bool   `json:"personalized_mode"`
	FinalResponse    string `json:"final_response"`
}

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query     string `json:"query" jsonschema:"the text to find similar chunks for"`
	Partition string `json:"partition" jsonschema:"a user id, or global for reference documents"`
	K         *int   `json:"k,omitempty" jsonschema:"maximum number of chunks to return (default 3, values below 1 return nothing)"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Chunks []string `json:"chunks"`
	Count  int      `json:"count"`
}

// DigitalTwinInput is the input schema for the digital_twin tool.
type DigitalTwinInput struct {
	UserID string `json:"user_id" jsonschema:"the user to assess"`
}

// DigitalTwinOutput is the output schema for the digital_twin tool.
type DigitalTwinOutput struct {
	UserID     string `json:"user_id"`
	RiskLevel  string `json:"risk_level"`
	Summary    string `json:"summary"`
	ShowAlert  bool   `json:"show_alert"`
	TotalChats int    `json:"total_chats"`
	LastChat   string `json:"last_chat,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "chat",
		Description: "Answer a medical question using the user's records and reference documents",
	}, s.handleChat)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Return the chunks most similar to a query from one partition",
	}, s.handleRetrieve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "digital_twin",
		Description: "Assess a user's health risk from their chat history",
	}, s.handleDigitalTwin)
}

func (s *Server) handleChat(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ChatInput,
) (*mcp.CallToolResult, ChatOutput, error) {
	telemetry, err := telemetryFrom(input.WatchData)
	if err != nil {
		return nil, ChatOutput{}, err
	}

	answer, err := s.ports.Chat.Chat(ctx, domain.ChatRequest{
		UserID:    input.UserID,
		Question:  input.Question,
		Telemetry: telemetry,
	})
	if err != nil {
		return nil, ChatOutput{}, err
	}

	return nil, ChatOutput{
		UserID:           answer.UserID,
		PersonalizedMode: answer.Personalized,
		FinalResponse:    answer.Response,
	}, nil
}

func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	if input.Partition == "" {
		return nil, RetrieveOutput{}, fmt.Errorf("%w: partition is required", domain.ErrInvalidInput)
	}
	k := driving.DefaultTopK
	if input.K != nil {
		k = *input.K
	}

	chunks, err := s.ports.Retrieval.Retrieve(ctx, input.Query, input.Partition, k)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}
	if chunks == nil {
		chunks = []string{}
	}

	return nil, RetrieveOutput{Chunks: chunks, Count: len(chunks)}, nil
}

func (s *Server) handleDigitalTwin(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DigitalTwinInput,
) (*mcp.CallToolResult, DigitalTwinOutput, error) {
	if s.ports.Twin == nil {
		return nil, DigitalTwinOutput{}, fmt.Errorf("digital twin service not configured")
	}

	report, err := s.ports.Twin.Report(ctx, input.UserID)
	if err != nil {
		return nil, DigitalTwinOutput{}, err
	}

	out := DigitalTwinOutput{
		UserID:     report.UserID,
		RiskLevel:  report.Assessment.Level.String(),
		Summary:    report.Assessment.Summary,
		ShowAlert:  report.Assessment.ShowAlert,
		TotalChats: report.TotalChats,
	}
	if report.LastChat != nil {
		out.LastChat = formatTime(*report.LastChat)
	}
	return nil, out, nil
}

// telemetryFrom decodes free-form watch data through the telemetry JSON shape.
func telemetryFrom(data map[string]any) (*domain.Telemetry, error) {
	if len(data) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: watch_data: %w", domain.ErrInvalidInput, err)
	}
	var t domain.Telemetry
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("%w: watch_data: %w", domain.ErrInvalidInput, err)
	}
	return &t, nil
}
