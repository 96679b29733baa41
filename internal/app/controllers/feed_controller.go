package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sistempim/pimserver/internal/app/models"
	"github.com/sistempim/pimserver/internal/app/models/dto"
	"github.com/sistempim/pimserver/internal/app/services"
	"github.com/sistempim/pimserver/internal/middleware"
)

// FeedController handles the public post feed
type FeedController struct {
	feedService    services.FeedService
	profileService services.ProfileService
}

// NewFeedController creates a new FeedController
func NewFeedController(feedService services.FeedService, profileService services.ProfileService) *FeedController {
	return &FeedController{
		feedService:    feedService,
		profileService: profileService,
	}
}

// Create godoc
// @Summary Publish a feed post
// @Tags feed
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreatePostRequest true "Post"
// @Success 201 {object} models.Post
// @Router /feed [post]
func (c *FeedController) Create(ctx *gin.Context) {
	var req dto.CreatePostRequest
	if !bindJSON(ctx, &req) {
		return
	}

	author, err := c.profileService.GetProfile(ctx.Request.Context(), currentUID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	post, err := c.feedService.CreatePost(ctx.Request.Context(), author, req.Content, req.MediaURL)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, post)
}

// List godoc
// @Summary List feed posts newest-first
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum results"
// @Success 200 {array} models.Post
// @Router /feed [get]
func (c *FeedController) List(ctx *gin.Context) {
	limit := 0
	if limitStr := ctx.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil {
			limit = parsed
		}
	}

	posts, err := c.feedService.ListPosts(ctx.Request.Context(), limit)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if posts == nil {
		posts = []models.Post{}
	}
	ctx.JSON(http.StatusOK, posts)
}

// ToggleLike godoc
// @Summary Toggle own like on a post
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post id"
// @Success 200 {object} dto.LikedResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /feed/{id}/like [post]
func (c *FeedController) ToggleLike(ctx *gin.Context) {
	liked, err := c.feedService.ToggleLike(ctx.Request.Context(), ctx.Param("id"), currentUID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.LikedResponse{Liked: liked})
}

// Delete godoc
// @Summary Delete own post
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post id"
// @Success 200 {object} dto.SuccessResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /feed/{id} [delete]
func (c *FeedController) Delete(ctx *gin.Context) {
	if err := c.feedService.DeletePost(ctx.Request.Context(), ctx.Param("id"), currentUID(ctx)); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.SuccessResponse{Message: "Post deleted"})
}
