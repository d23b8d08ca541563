package api

import (
	"github.com/gin-gonic/gin"

	"github.com/djhunter67/study-site/internal/handlers"
	"github.com/djhunter67/study-site/internal/middleware"
)

func registerAuthRoutes(r *gin.Engine, deps Dependencies) {
	handler := handlers.NewAuthHandler(deps.Users, deps.Codec, deps.AccessTTL)

	auth := r.Group("/api/auth")
	{
		auth.POST("/login", handler.Login)
	}

	authed := r.Group("/api/auth")
	authed.Use(middleware.Auth(deps.Codec))
	{
		authed.GET("/me", handler.Me)
		authed.POST("/logout", handler.Logout)
	}
}
