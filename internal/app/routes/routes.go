package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/sistempim/pimserver/internal/app/controllers"
	"github.com/sistempim/pimserver/internal/app/models"
	"github.com/sistempim/pimserver/internal/middleware"
	"github.com/sistempim/pimserver/internal/pkg/websocket"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	authController *controllers.AuthController,
	profileController *controllers.ProfileController,
	chatController *controllers.ChatController,
	notificationController *controllers.NotificationController,
	classroomController *controllers.ClassroomController,
	feedController *controllers.FeedController,
	wsHandler *websocket.Handler,
	authMiddleware *middleware.AuthMiddleware,
) {
	// API version group
	v1 := router.Group("/api/v1")

	// --- Public Auth routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/register", authController.Register)
		auth.POST("/login", authController.Login)
	}

	// --- Authenticated Routes Group ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())
	{
		// Profiles and the follow graph
		profiles := authenticated.Group("/profiles")
		{
			profiles.GET("/me", profileController.GetMe)
			profiles.PATCH("/me", profileController.UpdateMe)
			profiles.GET("/me/following", profileController.ListFollowing)
			profiles.GET("/search", profileController.Search)
			profiles.GET("/:uid", profileController.GetProfile)
			profiles.POST("/:uid/follow", profileController.Follow)
			profiles.DELETE("/:uid/follow", profileController.Unfollow)
			profiles.GET("/:uid/follow", profileController.IsFollowing)
		}

		// Two-party chat sessions
		chats := authenticated.Group("/chats")
		{
			chats.POST("/with/:uid", chatController.OpenSession)
			chats.GET("/:sessionId/messages", chatController.ListMessages)
			chats.POST("/:sessionId/messages", chatController.SendMessage)
			chats.GET("/:sessionId/ws", wsHandler.HandleChat)
		}

		// Notification inbox
		notifications := authenticated.Group("/notifications")
		{
			notifications.GET("", notificationController.List)
			notifications.POST("", notificationController.Notify)
			notifications.GET("/unread-count", notificationController.UnreadCount)
			notifications.POST("/read-all", notificationController.MarkAllRead)
			notifications.POST("/:id/read", notificationController.MarkRead)
			notifications.GET("/ws", wsHandler.HandleNotifications)
		}

		// Classrooms
		classrooms := authenticated.Group("/classrooms")
		{
			classrooms.GET("", classroomController.List)
			classrooms.POST("/join", classroomController.Join)
			classrooms.GET("/:id", classroomController.Get)
			classrooms.GET("/:id/announcements", classroomController.ListAnnouncements)
			classrooms.POST("/:id/announcements", classroomController.PostAnnouncement)
			classrooms.DELETE("/:id/announcements/:postId", classroomController.DeleteAnnouncement)
			classrooms.GET("/:id/assignments", classroomController.ListAssignments)

			// Teacher-only routes
			classroomsTeacherProtected := classrooms.Group("")
			classroomsTeacherProtected.Use(authMiddleware.RoleRequired(string(models.RoleTeacher)))
			{
				classroomsTeacherProtected.POST("", classroomController.Create)
				classroomsTeacherProtected.DELETE("/:id", classroomController.Delete)
				classroomsTeacherProtected.DELETE("/:id/students/:uid", classroomController.RemoveStudent)
				classroomsTeacherProtected.POST("/:id/assignments", classroomController.CreateAssignment)
				classroomsTeacherProtected.DELETE("/:id/assignments/:assignmentId", classroomController.DeleteAssignment)
			}
		}

		// Public post feed
		feed := authenticated.Group("/feed")
		{
			feed.GET("", feedController.List)
			feed.POST("", feedController.Create)
			feed.POST("/:id/like", feedController.ToggleLike)
			feed.DELETE("/:id", feedController.Delete)
		}
	}

	// Health check endpoint (public)
	v1.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
}
