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

// ProfileController handles profile and follow graph operations
type ProfileController struct {
	profileService      services.ProfileService
	relationshipService services.RelationshipService
}

// NewProfileController creates a new ProfileController
func NewProfileController(profileService services.ProfileService, relationshipService services.RelationshipService) *ProfileController {
	return &ProfileController{
		profileService:      profileService,
		relationshipService: relationshipService,
	}
}

// GetMe godoc
// @Summary Get own profile
// @Tags profiles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UserProfile
// @Router /profiles/me [get]
func (c *ProfileController) GetMe(ctx *gin.Context) {
	profile, err := c.profileService.GetProfile(ctx.Request.Context(), currentUID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, profile)
}

// GetProfile godoc
// @Summary Get a profile by uid
// @Tags profiles
// @Produce json
// @Security BearerAuth
// @Param uid path string true "User uid"
// @Success 200 {object} models.UserProfile
// @Failure 404 {object} dto.ErrorResponse
// @Router /profiles/{uid} [get]
func (c *ProfileController) GetProfile(ctx *gin.Context) {
	profile, err := c.profileService.GetProfile(ctx.Request.Context(), ctx.Param("uid"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, profile)
}

// UpdateMe godoc
// @Summary Update own profile
// @Description Merge the provided fields into the profile; absent fields stay untouched
// @Tags profiles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpdateProfileRequest true "Profile fields"
// @Success 200 {object} models.UserProfile
// @Router /profiles/me [patch]
func (c *ProfileController) UpdateMe(ctx *gin.Context) {
	var req dto.UpdateProfileRequest
	if !bindJSON(ctx, &req) {
		return
	}

	uid := currentUID(ctx)
	update := services.ProfileUpdate{
		Name:     req.Name,
		PhotoURL: req.PhotoURL,
		Gender:   req.Gender,
		Bio:      req.Bio,
		JobTitle: req.JobTitle,
		Skills:   req.Skills,
	}
	if err := c.profileService.UpsertProfile(ctx.Request.Context(), uid, update); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	profile, err := c.profileService.GetProfile(ctx.Request.Context(), uid)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, profile)
}

// Search godoc
// @Summary Search profiles by name prefix
// @Tags profiles
// @Produce json
// @Security BearerAuth
// @Param q query string true "Name prefix"
// @Param limit query int false "Maximum results" default(5)
// @Success 200 {array} models.UserProfile
// @Router /profiles/search [get]
func (c *ProfileController) Search(ctx *gin.Context) {
	limit := 0
	if limitStr := ctx.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil {
			limit = parsed
		}
	}

	profiles, err := c.profileService.SearchByNamePrefix(ctx.Request.Context(), ctx.Query("q"), limit)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if profiles == nil {
		profiles = []models.UserProfile{}
	}
	ctx.JSON(http.StatusOK, profiles)
}

// Follow godoc
// @Summary Follow a user
// @Description Idempotent; changed=false when already following
// @Tags profiles
// @Produce json
// @Security BearerAuth
// @Param uid path string true "Target uid"
// @Success 200 {object} dto.ChangedResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /profiles/{uid}/follow [post]
func (c *ProfileController) Follow(ctx *gin.Context) {
	changed, err := c.relationshipService.Follow(ctx.Request.Context(), currentUID(ctx), ctx.Param("uid"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.ChangedResponse{Changed: changed})
}

// Unfollow godoc
// @Summary Unfollow a user
// @Description Idempotent; changed=false when not following
// @Tags profiles
// @Produce json
// @Security BearerAuth
// @Param uid path string true "Target uid"
// @Success 200 {object} dto.ChangedResponse
// @Router /profiles/{uid}/follow [delete]
func (c *ProfileController) Unfollow(ctx *gin.Context) {
	changed, err := c.relationshipService.Unfollow(ctx.Request.Context(), currentUID(ctx), ctx.Param("uid"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.ChangedResponse{Changed: changed})
}

// IsFollowing godoc
// @Summary Check whether the caller follows a user
// @Tags profiles
// @Produce json
// @Security BearerAuth
// @Param uid path string true "Target uid"
// @Success 200 {object} dto.FollowingResponse
// @Router /profiles/{uid}/follow [get]
func (c *ProfileController) IsFollowing(ctx *gin.Context) {
	following, err := c.relationshipService.IsFollowing(ctx.Request.Context(), currentUID(ctx), ctx.Param("uid"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.FollowingResponse{Following: following})
}

// ListFollowing godoc
// @Summary List the profiles the caller follows
// @Tags profiles
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.UserProfile
// @Router /profiles/me/following [get]
func (c *ProfileController) ListFollowing(ctx *gin.Context) {
	profiles, err := c.relationshipService.ListFollowing(ctx.Request.Context(), currentUID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if profiles == nil {
		profiles = []models.UserProfile{}
	}
	ctx.JSON(http.StatusOK, profiles)
}
