package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sistempim/pimserver/internal/app/models"
	"github.com/sistempim/pimserver/internal/app/models/dto"
	"github.com/sistempim/pimserver/internal/app/services"
	"github.com/sistempim/pimserver/internal/middleware"
)

// ChatController handles two-party chat sessions
type ChatController struct {
	chatService services.ChatService
}

// NewChatController creates a new ChatController
func NewChatController(chatService services.ChatService) *ChatController {
	return &ChatController{
		chatService: chatService,
	}
}

// OpenSession godoc
// @Summary Open (or reuse) the chat session with another user
// @Description The session id is derived from the pair, so both sides always land in the same conversation
// @Tags chats
// @Produce json
// @Security BearerAuth
// @Param uid path string true "Other participant uid"
// @Success 200 {object} dto.SessionResponse
// @Router /chats/with/{uid} [post]
func (c *ChatController) OpenSession(ctx *gin.Context) {
	sessionID, err := c.chatService.OpenSession(ctx.Request.Context(), currentUID(ctx), ctx.Param("uid"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.SessionResponse{SessionID: sessionID})
}

// ListMessages godoc
// @Summary List a session's messages oldest-first
// @Tags chats
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "Session id"
// @Success 200 {array} models.ChatMessage
// @Failure 403 {object} dto.ErrorResponse "Not a participant"
// @Router /chats/{sessionId}/messages [get]
func (c *ChatController) ListMessages(ctx *gin.Context) {
	messages, err := c.chatService.ListMessages(ctx.Request.Context(), ctx.Param("sessionId"), currentUID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	ctx.JSON(http.StatusOK, messages)
}

// SendMessage godoc
// @Summary Append a message to a session
// @Description Whitespace-only text is accepted but writes nothing (changed=false)
// @Tags chats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "Session id"
// @Param request body dto.SendMessageRequest true "Message"
// @Success 200 {object} dto.ChangedResponse
// @Failure 403 {object} dto.ErrorResponse "Not a participant"
// @Router /chats/{sessionId}/messages [post]
func (c *ChatController) SendMessage(ctx *gin.Context) {
	var req dto.SendMessageRequest
	if !bindJSON(ctx, &req) {
		return
	}

	sent, err := c.chatService.SendMessage(ctx.Request.Context(), ctx.Param("sessionId"), currentUID(ctx), req.Text)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.ChangedResponse{Changed: sent})
}
