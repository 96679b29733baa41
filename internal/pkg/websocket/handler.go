package websocket

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sistempim/pimserver/internal/app/services"
	"github.com/sistempim/pimserver/internal/middleware"
)

// Topic prefixes. The suffix identifies the session or recipient.
const (
	chatTopicPrefix         = "chat:"
	notificationTopicPrefix = "notifications:"
)

// Handler upgrades WebSocket connections and bridges hub topics to the
// chat and notification streams. One stream per topic is held open while
// the topic has clients.
type Handler struct {
	hub                 *Hub
	chatService         services.ChatService
	notificationService services.NotificationService
	logger              zerolog.Logger

	mu      sync.Mutex
	cancels map[string]func()
}

// NewHandler creates a new WebSocket handler and installs its topic
// hooks on the hub.
func NewHandler(
	hub *Hub,
	chatService services.ChatService,
	notificationService services.NotificationService,
	logger zerolog.Logger,
) *Handler {
	h := &Handler{
		hub:                 hub,
		chatService:         chatService,
		notificationService: notificationService,
		logger:              logger,
		cancels:             make(map[string]func()),
	}
	hub.SetTopicHooks(h.openTopic, h.closeTopic)
	return h
}

// HandleChat godoc
// @Summary Stream a chat session's messages over WebSocket
// @Description Upgrades to WebSocket; every frame is the full ascending message list of the session
// @Tags chats
// @Security BearerAuth
// @Param sessionId path string true "Session id"
// @Success 101 {string} string "Switching Protocols to WebSocket"
// @Failure 403 {object} dto.ErrorResponse "Not a participant"
// @Router /chats/{sessionId}/ws [get]
func (h *Handler) HandleChat(c *gin.Context) {
	sessionID := c.Param("sessionId")
	uid := c.GetString(middleware.ContextUID)

	// Participant check before the upgrade, with a throwaway probe read.
	if _, err := h.chatService.ListMessages(c.Request.Context(), sessionID, uid); err != nil {
		middleware.HandleAPIError(c, err)
		return
	}

	h.serve(c, uid, chatTopicPrefix+sessionID)
}

// HandleNotifications godoc
// @Summary Stream own notification inbox over WebSocket
// @Description Upgrades to WebSocket; every frame is the full inbox newest-first
// @Tags notifications
// @Security BearerAuth
// @Success 101 {string} string "Switching Protocols to WebSocket"
// @Router /notifications/ws [get]
func (h *Handler) HandleNotifications(c *gin.Context) {
	uid := c.GetString(middleware.ContextUID)
	h.serve(c, uid, notificationTopicPrefix+uid)
}

func (h *Handler) serve(c *gin.Context, uid, topic string) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().Err(err).Str("topic", topic).Str("uid", uid).Msg("Failed to upgrade connection to WebSocket")
		return
	}

	client := &Client{
		hub:    h.hub,
		conn:   conn,
		send:   make(chan []byte, 16),
		uid:    uid,
		topic:  topic,
		logger: h.logger,
	}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()

	h.logger.Info().
		Str("topic", topic).
		Str("uid", uid).
		Str("remoteAddr", conn.RemoteAddr().String()).
		Msg("WebSocket connection established")
}

// openTopic starts the backing store stream for a topic that just gained
// its first client.
func (h *Handler) openTopic(topic string) {
	ctx := context.Background()

	switch {
	case strings.HasPrefix(topic, chatTopicPrefix):
		sessionID := strings.TrimPrefix(topic, chatTopicPrefix)
		// Stream under a synthetic participant: access was already
		// checked per client before the upgrade.
		participant, _, _ := strings.Cut(sessionID, "_")
		stream, err := h.chatService.StreamMessages(ctx, sessionID, participant)
		if err != nil {
			h.logger.Error().Err(err).Str("topic", topic).Msg("Failed to open chat stream")
			return
		}
		h.rememberCancel(topic, stream.Cancel)
		go h.pumpChat(topic, stream)

	case strings.HasPrefix(topic, notificationTopicPrefix):
		uid := strings.TrimPrefix(topic, notificationTopicPrefix)
		stream, err := h.notificationService.Stream(ctx, uid)
		if err != nil {
			h.logger.Error().Err(err).Str("topic", topic).Msg("Failed to open notification stream")
			return
		}
		h.rememberCancel(topic, stream.Cancel)
		go h.pumpNotifications(topic, stream)

	default:
		h.logger.Warn().Str("topic", topic).Msg("Unknown stream topic")
	}
}

// closeTopic releases the store stream of a topic whose last client left.
func (h *Handler) closeTopic(topic string) {
	h.mu.Lock()
	cancel, ok := h.cancels[topic]
	delete(h.cancels, topic)
	h.mu.Unlock()

	if ok {
		cancel()
		h.logger.Debug().Str("topic", topic).Msg("Stream released")
	}
}

func (h *Handler) rememberCancel(topic string, cancel func()) {
	h.mu.Lock()
	h.cancels[topic] = cancel
	h.mu.Unlock()
}

func (h *Handler) pumpChat(topic string, stream *services.MessageStream) {
	for snapshot := range stream.Snapshots() {
		data, err := json.Marshal(snapshot)
		if err != nil {
			h.logger.Error().Err(err).Str("topic", topic).Msg("Failed to marshal chat snapshot")
			continue
		}
		h.hub.Broadcast(topic, data)
	}
}

func (h *Handler) pumpNotifications(topic string, stream *services.NotificationStream) {
	for snapshot := range stream.Snapshots() {
		data, err := json.Marshal(snapshot)
		if err != nil {
			h.logger.Error().Err(err).Str("topic", topic).Msg("Failed to marshal notification snapshot")
			continue
		}
		h.hub.Broadcast(topic, data)
	}
}

// Close releases every open stream. Used on server shutdown.
func (h *Handler) Close() {
	h.mu.Lock()
	cancels := make([]func(), 0, len(h.cancels))
	for _, cancel := range h.cancels {
		cancels = append(cancels, cancel)
	}
	h.cancels = make(map[string]func())
	h.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}
