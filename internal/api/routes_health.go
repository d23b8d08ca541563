package api

import (
	"github.com/gin-gonic/gin"

	"github.com/djhunter67/study-site/internal/handlers"
)

func registerHealthRoutes(r *gin.Engine, deps Dependencies) {
	r.GET("/health", handlers.Health())
	r.GET("/health/live", handlers.Health())
	r.GET("/health/ready", handlers.Ready(deps.DB, deps.Cache))
}
