package api

import (
	"github.com/gin-gonic/gin"

	"github.com/djhunter67/study-site/internal/handlers"
)

func registerRegistrationRoutes(r *gin.Engine, deps Dependencies) {
	handler := handlers.NewRegistrationHandler(deps.Registration)

	register := r.Group("/register")
	{
		register.POST("", handler.Register)
		register.GET("/confirm", handler.Confirm)
		register.POST("/resend", handler.Resend)
	}
}
