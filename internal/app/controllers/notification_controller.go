package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sistempim/pimserver/internal/app/models"
	"github.com/sistempim/pimserver/internal/app/models/dto"
	"github.com/sistempim/pimserver/internal/app/services"
	"github.com/sistempim/pimserver/internal/middleware"
)

// NotificationController handles the notification inbox
type NotificationController struct {
	notificationService services.NotificationService
}

// NewNotificationController creates a new NotificationController
func NewNotificationController(notificationService services.NotificationService) *NotificationController {
	return &NotificationController{
		notificationService: notificationService,
	}
}

// List godoc
// @Summary List own notifications newest-first
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Notification
// @Router /notifications [get]
func (c *NotificationController) List(ctx *gin.Context) {
	notifications, err := c.notificationService.List(ctx.Request.Context(), currentUID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	ctx.JSON(http.StatusOK, notifications)
}

// UnreadCount godoc
// @Summary Count own unread notifications
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.UnreadCountResponse
// @Router /notifications/unread-count [get]
func (c *NotificationController) UnreadCount(ctx *gin.Context) {
	count, err := c.notificationService.UnreadCount(ctx.Request.Context(), currentUID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.UnreadCountResponse{Count: count})
}

// MarkRead godoc
// @Summary Mark one notification as read
// @Description Idempotent; changed=false when it was already read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Notification id"
// @Success 200 {object} dto.ChangedResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /notifications/{id}/read [post]
func (c *NotificationController) MarkRead(ctx *gin.Context) {
	changed, err := c.notificationService.MarkRead(ctx.Request.Context(), currentUID(ctx), ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.ChangedResponse{Changed: changed})
}

// MarkAllRead godoc
// @Summary Mark every unread notification as read
// @Description Covers the unread set as of the call; entries arriving meanwhile stay unread
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.MarkedResponse
// @Router /notifications/read-all [post]
func (c *NotificationController) MarkAllRead(ctx *gin.Context) {
	marked, err := c.notificationService.MarkAllRead(ctx.Request.Context(), currentUID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.MarkedResponse{Marked: marked})
}

// Notify godoc
// @Summary Send a notification to a user
// @Tags notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.NotifyRequest true "Notification"
// @Success 201 {object} dto.CreatedResponse
// @Router /notifications [post]
func (c *NotificationController) Notify(ctx *gin.Context) {
	var req dto.NotifyRequest
	if !bindJSON(ctx, &req) {
		return
	}

	id, err := c.notificationService.Notify(ctx.Request.Context(), req.RecipientUID, req.Title, req.Body, models.NotificationKind(req.Kind))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.CreatedResponse{ID: id})
}
