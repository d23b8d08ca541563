package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/djhunter67/study-site/internal/api"
	"github.com/djhunter67/study-site/internal/app"
	"github.com/djhunter67/study-site/internal/app/maintenance"
	"github.com/djhunter67/study-site/internal/cache"
	"github.com/djhunter67/study-site/internal/database"
	"github.com/djhunter67/study-site/internal/middleware"
	"github.com/djhunter67/study-site/internal/services"
	"github.com/djhunter67/study-site/internal/tokens"
	"github.com/djhunter67/study-site/pkg/logger"
	"github.com/djhunter67/study-site/pkg/mail"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB      *gorm.DB
	Redis   cache.Store
	Cleaner *maintenance.Cleaner
	Router  *gin.Engine
}

// bootstrapRuntime initialises the database, cache, services, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	success := false
	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}
	stack.DB = db

	store := stack.pickStore(cfg, log)

	codec, records, err := buildTokenLayer(cfg, store)
	if err != nil {
		return nil, err
	}

	userSvc, registrationSvc, err := buildServices(cfg, db, codec, records)
	if err != nil {
		return nil, err
	}

	if cfg.Maintenance.Enabled {
		stack.Cleaner = maintenance.NewCleaner(db,
			maintenance.WithCacheSchedule(cfg.Maintenance.CacheSchedule),
			maintenance.WithAccountSchedule(cfg.Maintenance.AccountSchedule),
			maintenance.WithUnconfirmedRetention(cfg.Maintenance.UnconfirmedRetention),
		)
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	stack.Router, err = api.NewRouter(api.Dependencies{
		DB:                 db,
		Cache:              store,
		Codec:              codec,
		Users:              userSvc,
		Registration:       registrationSvc,
		RateStore:          middleware.NewCacheRateStore(store),
		AccessTTL:          cfg.Auth.Tokens.AccessTTL,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// pickStore connects Redis when configured and falls back to the database
// store when it is disabled or unreachable. A failed Redis dial is not fatal.
func (s *runtimeStack) pickStore(cfg *app.Config, log *zap.Logger) cache.Store {
	if !cfg.Cache.Redis.Enabled {
		return cache.NewDatabaseStore(s.DB)
	}

	client, err := cache.NewRedisClient(cfg.Cache.RedisClientConfig())
	if err != nil {
		log.Warn("redis unavailable; falling back to database-backed operations", zap.Error(err))
		return cache.NewDatabaseStore(s.DB)
	}

	s.Redis = client
	log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
	return client
}

func buildTokenLayer(cfg *app.Config, store cache.Store) (*tokens.Codec, *tokens.InvalidationStore, error) {
	privateKey, publicKey, err := app.SigningKeys(cfg.Auth.Tokens)
	if err != nil {
		return nil, nil, fmt.Errorf("decode signing keys: %w", err)
	}

	codec, err := tokens.NewCodec(tokens.CodecConfig{
		PrivateKey: privateKey,
		PublicKey:  publicKey,
		Issuer:     cfg.Auth.Tokens.Issuer,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("initialise credential codec: %w", err)
	}

	records, err := tokens.NewInvalidationStore(store)
	if err != nil {
		return nil, nil, fmt.Errorf("initialise invalidation store: %w", err)
	}

	return codec, records, nil
}

func buildServices(cfg *app.Config, db *gorm.DB, codec *tokens.Codec, records *tokens.InvalidationStore) (*services.UserService, *services.RegistrationService, error) {
	userSvc, err := services.NewUserService(db)
	if err != nil {
		return nil, nil, fmt.Errorf("initialise user service: %w", err)
	}

	confirmationSvc, err := services.NewConfirmationService(db, codec, records,
		services.WithConfirmationTTL(cfg.Auth.Tokens.ConfirmationTTL))
	if err != nil {
		return nil, nil, fmt.Errorf("initialise confirmation service: %w", err)
	}

	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, nil, fmt.Errorf("initialise mailer: %w", err)
	}

	registrationSvc, err := services.NewRegistrationService(userSvc, confirmationSvc, mail.NewGateway(mailer),
		services.RegistrationConfig{
			BaseURL:      cfg.Registration.ConfirmURL,
			EmailFailure: services.EmailFailurePolicy(cfg.Registration.EmailFailure),
		})
	if err != nil {
		return nil, nil, fmt.Errorf("initialise registration service: %w", err)
	}

	return userSvc, registrationSvc, nil
}

// Shutdown stops background jobs first so no cleanup runs against a closed
// database, then releases the cache connection and the database pool.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		if stopCtx := s.Cleaner.Stop(); stopCtx != nil {
			ctx = stopCtx
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if rc, ok := s.Redis.(*cache.RedisClient); ok && rc != nil {
		if err := rc.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func openDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)

	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.AutoMigrateAll(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	logger.WithModule("database").Info("database connected", zap.String("driver", dbCfg.Driver))
	return db, nil
}

// convertDatabaseConfig maps the file-format config onto the database
// package's flat connection settings. Unknown drivers pass through so that
// database.Open reports them.
func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
	}

	server := func(host string, port int, name, user, password string) {
		dbCfg.Host = strings.TrimSpace(host)
		dbCfg.Port = port
		dbCfg.Name = strings.TrimSpace(name)
		dbCfg.User = strings.TrimSpace(user)
		dbCfg.Password = strings.TrimSpace(password)
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		pg := cfg.Database.Postgres
		server(pg.Host, pg.Port, pg.Database, pg.Username, pg.Password)
	case "mysql":
		my := cfg.Database.MySQL
		server(my.Host, my.Port, my.Database, my.Username, my.Password)
	}

	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("underlying sql DB unavailable for closing", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("database close", zap.Error(err))
	}
}
