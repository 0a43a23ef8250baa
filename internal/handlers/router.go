package handlers

import (
	"time"

	"todo-manager/backend/internal/middleware"
	"todo-manager/backend/internal/monitoring"
	"todo-manager/backend/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RouterDeps bundles everything the HTTP surface needs.
type RouterDeps struct {
	DB        *gorm.DB
	Monitor   *monitoring.Monitor
	RateLimit *middleware.RateLimiter

	Auth     services.AuthService
	Register services.RegisterService
	Users    *services.UserService
	Projects *services.ProjectService
	Sections *services.SectionService
	Tasks    *services.TaskService
	Tags     *services.TagService
	Comments *services.CommentService
	Digest   *services.DigestService
	Admin    *services.AdminPolicy
	Stats    *services.DashboardService
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	if deps.Monitor != nil {
		r.Use(deps.Monitor.Middleware())
		r.GET("/health", deps.Monitor.HealthHandler())
		r.GET("/health/live", deps.Monitor.LivenessHandler())
		r.GET("/metrics", deps.Monitor.MetricsHandler())
	}

	if deps.RateLimit != nil {
		r.Use(deps.RateLimit.Middleware())
	}

	authHandler := NewAuthHandler(deps.DB, deps.Auth)
	registerHandler := NewRegisterHandler(deps.DB, deps.Register)
	refreshHandler := NewRefreshHandler(deps.DB, deps.Auth)
	logoutHandler := NewLogoutHandler(deps.DB, deps.Auth)
	userHandler := NewUserHandler(deps.DB, deps.Users)
	projectHandler := NewProjectHandler(deps.DB, deps.Projects)
	sectionHandler := NewSectionHandler(deps.DB, deps.Sections)
	taskHandler := NewTaskHandler(deps.DB, deps.Tasks)
	tagHandler := NewTagHandler(deps.DB, deps.Tags)
	commentHandler := NewCommentHandler(deps.DB, deps.Comments)
	emailHandler := NewEmailHandler(deps.DB, deps.Digest)
	adminHandler := NewAdminHandler(deps.DB, deps.Admin, deps.Stats)

	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", registerHandler.Registration)
		auth.POST("/token", authHandler.Token)
		auth.POST("/refresh", refreshHandler.Refresh)
		auth.POST("/logout", logoutHandler.Logout)
	}

	authed := api.Group("", middleware.Authz())
	{
		authed.GET("/users/me", userHandler.Me)
		authed.PATCH("/users/me/profile", userHandler.UpdateProfile)

		projects := authed.Group("/projects")
		{
			projects.GET("", projectHandler.List)
			projects.POST("", projectHandler.Create)
			projects.POST("/bulk_update", projectHandler.BulkUpdate)
			projects.GET("/:id", projectHandler.Get)
			projects.PATCH("/:id", projectHandler.Update)
			projects.DELETE("/:id", projectHandler.Delete)
		}

		sections := authed.Group("/sections")
		{
			sections.GET("", sectionHandler.List)
			sections.POST("", sectionHandler.Create)
			sections.POST("/bulk_update", sectionHandler.BulkUpdate)
			sections.GET("/:id", sectionHandler.Get)
			sections.PATCH("/:id", sectionHandler.Update)
			sections.DELETE("/:id", sectionHandler.Delete)
			sections.POST("/:id/duplicate", sectionHandler.Duplicate)
		}

		tasks := authed.Group("/tasks")
		{
			tasks.GET("", taskHandler.List)
			tasks.POST("", taskHandler.Create)
			tasks.POST("/bulk_update", taskHandler.BulkUpdate)
			tasks.GET("/:id", taskHandler.Get)
			tasks.PATCH("/:id", taskHandler.Update)
			tasks.DELETE("/:id", taskHandler.Delete)
			tasks.POST("/:id/duplicate", taskHandler.Duplicate)
			tasks.POST("/:id/generate_occurrences", taskHandler.GenerateOccurrences)
			tasks.POST("/:id/refresh_due_date", taskHandler.RefreshDueDate)
			tasks.GET("/:id/comments", commentHandler.ListForTask)
		}

		tags := authed.Group("/tags")
		{
			tags.GET("", tagHandler.List)
			tags.POST("/assign", tagHandler.Assign)
			tags.GET("/:slug", tagHandler.Get)
			tags.DELETE("/:slug", tagHandler.Delete)
		}

		comments := authed.Group("/comments")
		{
			comments.POST("", commentHandler.Create)
			comments.DELETE("/:id", commentHandler.Delete)
		}

		admin := authed.Group("/admin", middleware.RequireAdmin())
		{
			admin.GET("/dashboard", adminHandler.Dashboard)
			admin.GET("/tasks", adminHandler.ListTasks)
			admin.PATCH("/tasks/:id", adminHandler.UpdateTask)
			admin.DELETE("/tasks/:id", adminHandler.DeleteTask)
			admin.GET("/projects", adminHandler.ListProjects)
			admin.DELETE("/projects/:id", adminHandler.DeleteProject)
			admin.GET("/users", adminHandler.ListUsers)
			admin.PATCH("/users/:id/active", adminHandler.SetUserActive)
			admin.GET("/tags", adminHandler.ListTags)
		}
	}

	// Scheduler hook; stays open so an external cron can hit it, and it
	// leaks nothing beyond send counts.
	api.POST("/email/daily-digest", emailHandler.DailyDigest)

	return r
}
