package api

import (
	"github.com/gin-gonic/gin"

	"github.com/djhunter67/study-site/internal/handlers"
	"github.com/djhunter67/study-site/internal/middleware"
)

func registerUserRoutes(r *gin.Engine, deps Dependencies) {
	handler := handlers.NewUserHandler(deps.Users)

	users := r.Group("/api/v1/users")
	users.Use(middleware.Auth(deps.Codec))
	{
		users.GET("", handler.List)
		users.GET("/:id", handler.Get)
		users.POST("", handler.Create)
		users.PUT("/:id", handler.Update)
		users.DELETE("/:id", handler.Delete)
	}
}
