package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard-api/controllers"
	"taskboard-api/middleware"
	"taskboard-api/services"
)

// Handlers is everything SetupRoutes mounts.
type Handlers struct {
	Notifications *controllers.NotificationController
	Preferences   *controllers.PreferenceController
	Activity      *controllers.ActivityController
	Internal      *controllers.InternalEventController

	Users           services.UserDirectory
	JWTSecret       string
	InternalKeyHash string
}

func SetupRoutes(router *gin.Engine, h Handlers) {
	v1 := router.Group("/api/v1")
	{
		public := v1.Group("")
		{
			public.GET("/health", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{
					"status":  "ok",
					"message": "Taskboard notification API is running",
				})
			})
		}

		auth := middleware.AuthMiddleware(h.JWTSecret, h.Users)

		protected := v1.Group("")
		protected.Use(auth)
		{
			notifications := protected.Group("/notifications")
			{
				notifications.GET("", h.Notifications.List)
				notifications.GET("/counter", h.Notifications.Counter)
				notifications.PATCH("/read-all", h.Notifications.MarkAllRead)
				notifications.PATCH("/:id/read", h.Notifications.MarkRead)
				notifications.DELETE("/:id", h.Notifications.Delete)
			}

			protected.GET("/notification-preferences", h.Preferences.Get)
			protected.PUT("/notification-preferences", h.Preferences.Update)

			protected.GET("/activities/:entityType/:entityId", h.Activity.List)
		}

		// Browsers' EventSource cannot send headers, so the stream also accepts ?access_token=.
		v1.GET("/notifications/stream", middleware.StreamTokenFromQuery(), auth, h.Notifications.Stream)

		internal := v1.Group("/internal")
		internal.Use(middleware.InternalKeyMiddleware(h.InternalKeyHash))
		{
			events := internal.Group("/events")
			{
				events.POST("/tasks/:taskId/commented", h.Internal.TaskCommented)
				events.POST("/tasks/:taskId/assigned", h.Internal.TaskAssigned)
				events.POST("/tasks/:taskId/due-soon", h.Internal.TaskDueSoon)
				events.POST("/tasks/:taskId/followed", h.Internal.TaskFollowed)

				events.POST("/projects/:projectId/created", h.Internal.ProjectCreated)
				events.POST("/projects/:projectId/members", h.Internal.MemberAdded)
				events.POST("/projects/:projectId/archived", h.Internal.ProjectArchived)

				events.POST("/projects/:projectId/join-requests/:requestId/received", h.Internal.JoinRequestReceived)
				events.POST("/projects/:projectId/join-requests/:requestId/approved", h.Internal.JoinRequestApproved)
				events.POST("/projects/:projectId/join-requests/:requestId/rejected", h.Internal.JoinRequestRejected)
			}

			internal.POST("/reports/:reportId/action", h.Internal.ActionReport)
			internal.POST("/payments/webhook", h.Internal.PaymentWebhook)
		}
	}
}
