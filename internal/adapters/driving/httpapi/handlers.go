package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driving"
	"github.com/pulseiq/pulseiq-rag/internal/logger"
)

// Response messages.
const (
	MsgHealthy          = "Medical RAG API is running"
	MsgRecordProcessed  = "Medical record processed successfully"
	MsgGlobalProcessed  = "Global medical document processed successfully"
	MsgChatSaved        = "Chat saved successfully"
	MsgNoTextExtracted  = "No text could be extracted"
	serviceName         = "PulseIQ Medical RAG API"
	failedSaveChat      = "Failed to save chat"
	failedDigitalTwin   = "Failed to get digital twin"
	failedChatHistory   = "Failed to get chat history"
	failedChat          = "Failed to generate answer"
	failedUpload        = "Failed to process document"
	missingFileMessage  = "file is required"
	missingUserMessage  = "user_id is required"
	missingDiseaseLabel = "disease_name is required"
)

// ==================== Request/response bodies ====================

type chatRequest struct {
	UserID    string            `json:"user_id"`
	Question  string            `json:"question"`
	WatchData *domain.Telemetry `json:"watch_data"`
}

type chatResponse struct {
	UserID           string `json:"user_id"`
	PersonalizedMode bool   `json:"personalized_mode"`
	FinalResponse    string `json:"final_response"`
}

type saveChatRequest struct {
	UserID           string `json:"user_id"`
	Question         string `json:"question"`
	Response         string `json:"response"`
	PersonalizedMode bool   `json:"personalized_mode"`
}

type twinResponse struct {
	UserID     string  `json:"user_id"`
	RiskLevel  string  `json:"risk_level"`
	Summary    string  `json:"summary"`
	ShowAlert  bool    `json:"show_alert"`
	TotalChats int     `json:"total_chats"`
	LastChat   *string `json:"last_chat"`
}

type historyEntry struct {
	ID               string `json:"id"`
	Question         string `json:"question"`
	Response         string `json:"response"`
	PersonalizedMode bool   `json:"personalized_mode"`
	CreatedAt        string `json:"created_at"`
}

type historyResponse struct {
	UserID     string         `json:"user_id"`
	TotalChats int            `json:"total_chats"`
	Chats      []historyEntry `json:"chats"`
}

// ==================== Handlers ====================

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":      serviceName,
		"status":       "running",
		"health_check": "/health",
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": MsgHealthy})
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	answer, err := s.services.Chat.Chat(c.Request.Context(), domain.ChatRequest{
		UserID:    req.UserID,
		Question:  req.Question,
		Telemetry: req.WatchData,
	})
	if err != nil {
		logger.Error("Chat for %q failed: %v", req.UserID, err)
		abortWithError(c, statusFor(err), fmt.Sprintf("%s: %v", failedChat, err))
		return
	}

	c.JSON(http.StatusOK, chatResponse{
		UserID:           answer.UserID,
		PersonalizedMode: answer.Personalized,
		FinalResponse:    answer.Response,
	})
}

func (s *Server) handleUploadMedicalRecord(c *gin.Context) {
	userID := formOrQuery(c, "user_id")
	if userID == "" {
		abortWithError(c, http.StatusBadRequest, missingUserMessage)
		return
	}
	raw, ok := readUpload(c)
	if !ok {
		return
	}

	result, err := s.services.Ingestion.IngestUserRecord(c.Request.Context(), userID, raw)
	if err != nil {
		s.uploadFailed(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":              MsgRecordProcessed,
		"user_id":              userID,
		"total_chunks_created": result.ChunksAdded,
	})
}

func (s *Server) handleUploadGlobalDoc(c *gin.Context) {
	disease := formOrQuery(c, "disease_name")
	if disease == "" {
		abortWithError(c, http.StatusBadRequest, missingDiseaseLabel)
		return
	}
	raw, ok := readUpload(c)
	if !ok {
		return
	}

	result, err := s.services.Ingestion.IngestGlobalDocument(c.Request.Context(), disease, raw)
	if err != nil {
		s.uploadFailed(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      MsgGlobalProcessed,
		"disease_name": disease,
		"chunks_added": result.ChunksAdded,
	})
}

func (s *Server) uploadFailed(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrExtractionEmpty) {
		abortWithError(c, statusFor(err), MsgNoTextExtracted)
		return
	}
	logger.Error("Upload failed: %v", err)
	abortWithError(c, statusFor(err), fmt.Sprintf("%s: %v", failedUpload, err))
}

func (s *Server) handleSaveChat(c *gin.Context) {
	var req saveChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("%s: invalid request body: %v", failedSaveChat, err))
		return
	}

	entry, err := s.services.History.SaveChat(c.Request.Context(), domain.ChatEntry{
		UserID:           req.UserID,
		Question:         req.Question,
		Response:         req.Response,
		PersonalizedMode: req.PersonalizedMode,
	})
	if err != nil {
		abortWithError(c, statusFor(err), fmt.Sprintf("%s: %v", failedSaveChat, err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": MsgChatSaved,
		"chat_id": entry.ID,
		"user_id": entry.UserID,
	})
}

func (s *Server) handleDigitalTwin(c *gin.Context) {
	userID := c.Param("user_id")

	report, err := s.services.Twin.Report(c.Request.Context(), userID)
	if err != nil {
		c.AbortWithStatusJSON(statusFor(err), gin.H{
			"error":   fmt.Sprintf("%s: %v", failedDigitalTwin, err),
			"user_id": userID,
		})
		return
	}

	c.JSON(http.StatusOK, newTwinResponse(report))
}

func (s *Server) handleChatHistory(c *gin.Context) {
	userID := c.Param("user_id")

	limit := driving.DefaultHistoryLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, fmt.Sprintf("%s: invalid limit %q", failedChatHistory, v))
			return
		}
		limit = n
	}

	entries, err := s.services.History.History(c.Request.Context(), userID, limit)
	if err != nil {
		abortWithError(c, statusFor(err), fmt.Sprintf("%s: %v", failedChatHistory, err))
		return
	}

	chats := make([]historyEntry, len(entries))
	for i, e := range entries {
		chats[i] = historyEntry{
			ID:               e.ID,
			Question:         e.Question,
			Response:         e.Response,
			PersonalizedMode: e.PersonalizedMode,
			CreatedAt:        formatTime(e.CreatedAt),
		}
	}

	c.JSON(http.StatusOK, historyResponse{
		UserID:     userID,
		TotalChats: len(chats),
		Chats:      chats,
	})
}

// ==================== Helpers ====================

func newTwinResponse(r *domain.TwinReport) twinResponse {
	out := twinResponse{
		UserID:     r.UserID,
		RiskLevel:  r.Assessment.Level.String(),
		Summary:    r.Assessment.Summary,
		ShowAlert:  r.Assessment.ShowAlert,
		TotalChats: r.TotalChats,
	}
	if r.LastChat != nil {
		ts := formatTime(*r.LastChat)
		out.LastChat = &ts
	}
	return out
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// formOrQuery reads key from the multipart form, falling back to the query string.
func formOrQuery(c *gin.Context, key string) string {
	if v := strings.TrimSpace(c.PostForm(key)); v != "" {
		return v
	}
	return strings.TrimSpace(c.Query(key))
}

// readUpload reads the "file" part. On failure it writes the error
// response and returns false.
func readUpload(c *gin.Context) (*domain.RawDocument, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, missingFileMessage)
		return nil, false
	}
	if header.Size > MaxUploadBytes {
		abortWithError(c, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file exceeds %d bytes", MaxUploadBytes))
		return nil, false
	}

	f, err := header.Open()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("open upload: %v", err))
		return nil, false
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, MaxUploadBytes+1))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("read upload: %v", err))
		return nil, false
	}

	return &domain.RawDocument{
		FileName: header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Content:  content,
	}, true
}
