package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sistempim/pimserver/internal/app/models"
	"github.com/sistempim/pimserver/internal/app/models/dto"
	"github.com/sistempim/pimserver/internal/app/services"
	"github.com/sistempim/pimserver/internal/middleware"
)

// ClassroomController handles classroom and roster operations
type ClassroomController struct {
	classroomService services.ClassroomService
	profileService   services.ProfileService
}

// NewClassroomController creates a new ClassroomController
func NewClassroomController(classroomService services.ClassroomService, profileService services.ProfileService) *ClassroomController {
	return &ClassroomController{
		classroomService: classroomService,
		profileService:   profileService,
	}
}

// Create godoc
// @Summary Create a classroom
// @Description Teacher only; a fresh unique join code is assigned
// @Tags classrooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateClassroomRequest true "Classroom data"
// @Success 201 {object} models.Classroom
// @Router /classrooms [post]
func (c *ClassroomController) Create(ctx *gin.Context) {
	var req dto.CreateClassroomRequest
	if !bindJSON(ctx, &req) {
		return
	}

	owner, err := c.profileService.GetProfile(ctx.Request.Context(), currentUID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	classroom, err := c.classroomService.CreateClassroom(ctx.Request.Context(), owner, services.ClassroomInput{
		Name:     req.Name,
		Subject:  req.Subject,
		Room:     req.Room,
		Schedule: req.Schedule,
		Color:    req.Color,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, classroom)
}

// Join godoc
// @Summary Join a classroom by code
// @Tags classrooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.JoinClassroomRequest true "Join code"
// @Success 200 {object} models.Classroom
// @Failure 404 {object} dto.ErrorResponse "Unknown code"
// @Failure 409 {object} dto.ErrorResponse "Already a member"
// @Router /classrooms/join [post]
func (c *ClassroomController) Join(ctx *gin.Context) {
	var req dto.JoinClassroomRequest
	if !bindJSON(ctx, &req) {
		return
	}

	student, err := c.profileService.GetProfile(ctx.Request.Context(), currentUID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	classroom, err := c.classroomService.JoinByCode(ctx.Request.Context(), student, req.JoinCode)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, classroom)
}

// List godoc
// @Summary List own classrooms
// @Description Teachers see the classrooms they own, students the ones they joined
// @Tags classrooms
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Classroom
// @Router /classrooms [get]
func (c *ClassroomController) List(ctx *gin.Context) {
	role := models.RoleType(ctx.GetString(middleware.ContextRole))
	classrooms, err := c.classroomService.ListForUser(ctx.Request.Context(), currentUID(ctx), role)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if classrooms == nil {
		classrooms = []models.Classroom{}
	}
	ctx.JSON(http.StatusOK, classrooms)
}

// Get godoc
// @Summary Get a classroom by id
// @Tags classrooms
// @Produce json
// @Security BearerAuth
// @Param id path string true "Classroom id"
// @Success 200 {object} models.Classroom
// @Failure 404 {object} dto.ErrorResponse
// @Router /classrooms/{id} [get]
func (c *ClassroomController) Get(ctx *gin.Context) {
	classroom, err := c.classroomService.GetClassroom(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, classroom)
}

// Delete godoc
// @Summary Delete a classroom
// @Description Owner only; removes the wall content as well
// @Tags classrooms
// @Produce json
// @Security BearerAuth
// @Param id path string true "Classroom id"
// @Success 200 {object} dto.SuccessResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /classrooms/{id} [delete]
func (c *ClassroomController) Delete(ctx *gin.Context) {
	if err := c.classroomService.DeleteClassroom(ctx.Request.Context(), ctx.Param("id"), currentUID(ctx)); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.SuccessResponse{Message: "Classroom deleted"})
}

// RemoveStudent godoc
// @Summary Remove a student from the roster
// @Description Owner only; removing an absent student is a no-op
// @Tags classrooms
// @Produce json
// @Security BearerAuth
// @Param id path string true "Classroom id"
// @Param uid path string true "Student uid"
// @Success 200 {object} dto.ChangedResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /classrooms/{id}/students/{uid} [delete]
func (c *ClassroomController) RemoveStudent(ctx *gin.Context) {
	changed, err := c.classroomService.RemoveStudent(ctx.Request.Context(), ctx.Param("id"), currentUID(ctx), ctx.Param("uid"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.ChangedResponse{Changed: changed})
}

// PostAnnouncement godoc
// @Summary Post to the classroom wall
// @Description Members and the owner may post; the roster is notified
// @Tags classrooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Classroom id"
// @Param request body dto.AnnouncementRequest true "Announcement"
// @Success 201 {object} models.Announcement
// @Router /classrooms/{id}/announcements [post]
func (c *ClassroomController) PostAnnouncement(ctx *gin.Context) {
	var req dto.AnnouncementRequest
	if !bindJSON(ctx, &req) {
		return
	}

	author, err := c.profileService.GetProfile(ctx.Request.Context(), currentUID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	announcement, err := c.classroomService.PostAnnouncement(ctx.Request.Context(), ctx.Param("id"), author, req.Content, req.Kind)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, announcement)
}

// ListAnnouncements godoc
// @Summary List wall posts newest-first
// @Tags classrooms
// @Produce json
// @Security BearerAuth
// @Param id path string true "Classroom id"
// @Success 200 {array} models.Announcement
// @Router /classrooms/{id}/announcements [get]
func (c *ClassroomController) ListAnnouncements(ctx *gin.Context) {
	announcements, err := c.classroomService.ListAnnouncements(ctx.Request.Context(), ctx.Param("id"), currentUID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if announcements == nil {
		announcements = []models.Announcement{}
	}
	ctx.JSON(http.StatusOK, announcements)
}

// DeleteAnnouncement godoc
// @Summary Delete a wall post
// @Description Author or classroom owner only
// @Tags classrooms
// @Produce json
// @Security BearerAuth
// @Param id path string true "Classroom id"
// @Param postId path string true "Announcement id"
// @Success 200 {object} dto.SuccessResponse
// @Router /classrooms/{id}/announcements/{postId} [delete]
func (c *ClassroomController) DeleteAnnouncement(ctx *gin.Context) {
	err := c.classroomService.DeleteAnnouncement(ctx.Request.Context(), ctx.Param("id"), ctx.Param("postId"), currentUID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.SuccessResponse{Message: "Announcement deleted"})
}

// CreateAssignment godoc
// @Summary Create an assignment
// @Description Owner only; the roster is notified
// @Tags classrooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Classroom id"
// @Param request body dto.AssignmentRequest true "Assignment"
// @Success 201 {object} models.Assignment
// @Router /classrooms/{id}/assignments [post]
func (c *ClassroomController) CreateAssignment(ctx *gin.Context) {
	var req dto.AssignmentRequest
	if !bindJSON(ctx, &req) {
		return
	}

	dueDate, err := time.Parse(time.RFC3339, req.DueDate)
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "dueDate must be RFC3339").WithField("dueDate")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	assignment, err := c.classroomService.CreateAssignment(ctx.Request.Context(), ctx.Param("id"), currentUID(ctx), req.Title, req.Description, dueDate)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, assignment)
}

// ListAssignments godoc
// @Summary List assignments by due date
// @Tags classrooms
// @Produce json
// @Security BearerAuth
// @Param id path string true "Classroom id"
// @Success 200 {array} models.Assignment
// @Router /classrooms/{id}/assignments [get]
func (c *ClassroomController) ListAssignments(ctx *gin.Context) {
	assignments, err := c.classroomService.ListAssignments(ctx.Request.Context(), ctx.Param("id"), currentUID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if assignments == nil {
		assignments = []models.Assignment{}
	}
	ctx.JSON(http.StatusOK, assignments)
}

// DeleteAssignment godoc
// @Summary Delete an assignment
// @Description Owner only
// @Tags classrooms
// @Produce json
// @Security BearerAuth
// @Param id path string true "Classroom id"
// @Param assignmentId path string true "Assignment id"
// @Success 200 {object} dto.SuccessResponse
// @Router /classrooms/{id}/assignments/{assignmentId} [delete]
func (c *ClassroomController) DeleteAssignment(ctx *gin.Context) {
	err := c.classroomService.DeleteAssignment(ctx.Request.Context(), ctx.Param("id"), ctx.Param("assignmentId"), currentUID(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.SuccessResponse{Message: "Assignment deleted"})
}
