package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/djhunter67/study-site/internal/cache"
	"github.com/djhunter67/study-site/pkg/response"
)

// Health returns a simple status payload useful for liveness checks.
func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	}
}

// Ready reports readiness by probing the database and, when configured, the cache.
func Ready(db *gorm.DB, store cache.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}
		healthy := true

		if db != nil {
			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.PingContext(requestContext(c))
			}
			if err != nil {
				checks["database"] = "unavailable"
				healthy = false
			} else {
				checks["database"] = "ok"
			}
		}

		if store != nil {
			probe := "health:probe"
			if err := store.Set(requestContext(c), probe, []byte("1"), time.Minute); err != nil {
				checks["cache"] = "unavailable"
				healthy = false
			} else {
				checks["cache"] = "ok"
			}
		}

		status := http.StatusOK
		state := "ready"
		if !healthy {
			status = http.StatusServiceUnavailable
			state = "degraded"
		}

		c.JSON(status, response.Response{
			Success: healthy,
			Data:    gin.H{"status": state, "checks": checks},
		})
	}
}
