package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/malonaz/polychat/internal/llm"
	"github.com/malonaz/polychat/internal/model"
	"github.com/malonaz/polychat/internal/store"
	"github.com/malonaz/polychat/internal/types"
)

type chatMessage struct {
	Role    string `json:"role" binding:"required,oneof=user assistant"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []*chatMessage `json:"messages" binding:"required,min=1,dive,required"`
}

type imageRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

func (s *Server) handleListModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": model.List(), "default": model.DefaultID})
}

func (s *Server) handleListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": s.store.List()})
}

func (s *Server) handleGetSession(c *gin.Context) {
	session, err := s.store.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, session)
}

func (s *Server) handlePutSession(c *gin.Context) {
	session := &types.Session{}
	if err := c.ShouldBindJSON(session); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	session.ID = c.Param("id")
	if err := session.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if session.Title == "" {
		session.Title = types.DeriveTitle(session.Turns)
	}
	if session.Timestamp.IsZero() {
		session.Timestamp = time.Now().UTC()
	}
	session.Model = model.Parse(session.Model).ID
	if err := s.store.Save(session); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, session)
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	if err := s.store.Delete(c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleClearSessions(c *gin.Context) {
	if err := s.store.Clear(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// handleSendChat replies to a conversation held by the caller.
func (s *Server) handleSendChat(c *gin.Context) {
	request := &chatRequest{}
	if err := c.ShouldBindJSON(request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	messages := make([]*llm.Message, 0, len(request.Messages))
	for _, message := range request.Messages {
		if message == nil || !types.Role(message.Role).Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "messages must be user or assistant messages"})
			return
		}
		messages = append(messages, &llm.Message{Role: message.Role, Content: message.Content})
	}
	if last := messages[len(messages)-1]; last.Role != llm.UserRole || strings.TrimSpace(last.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "the last message must be a non-empty user message"})
		return
	}

	client, m := s.clients(request.Model)
	ctx, cancel := s.providerContext(c)
	defer cancel()
	reply, err := client.SendMessage(ctx, messages)
	if err != nil {
		s.log.Error("sending message", "model", m.ID, "error", err)
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply, "model": m.ID})
}

func (s *Server) handleGenerateImage(c *gin.Context) {
	request := &imageRequest{}
	if err := c.ShouldBindJSON(request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if s.images == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image generation is not configured"})
		return
	}
	ctx, cancel := s.providerContext(c)
	defer cancel()
	url, err := s.images.Generate(ctx, request.Prompt)
	if err != nil {
		s.log.Error("generating image", "error", err)
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// statusOf maps a provider failure to a response status.
func statusOf(err error) int {
	if llm.IsConfigurationError(err) {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}
