package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/djhunter67/study-site/internal/cache"
	"github.com/djhunter67/study-site/internal/middleware"
	"github.com/djhunter67/study-site/internal/services"
	"github.com/djhunter67/study-site/internal/tokens"
)

// Dependencies carries the wired services the router mounts handlers on.
type Dependencies struct {
	DB           *gorm.DB
	Cache        cache.Store
	Codec        *tokens.Codec
	Users        *services.UserService
	Registration *services.RegistrationService
	RateStore    middleware.RateStore
	AccessTTL    time.Duration

	// RateLimitPerMinute caps requests per (IP,path); zero disables limiting.
	RateLimitPerMinute int
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.Codec == nil {
		return nil, fmt.Errorf("credential codec must be provided")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("user service must be provided")
	}
	if deps.Registration == nil {
		return nil, fmt.Errorf("registration service must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())

	if deps.RateLimitPerMinute > 0 {
		store := deps.RateStore
		if store == nil {
			store = middleware.NewMemoryRateStore()
		}
		r.Use(middleware.RateLimitWithStore(store, deps.RateLimitPerMinute, time.Minute))
	}

	r.NoRoute(middleware.NotFoundHandler)

	registerHealthRoutes(r, deps)
	registerRegistrationRoutes(r, deps)
	registerAuthRoutes(r, deps)
	registerUserRoutes(r, deps)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r, nil
}
