package services

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/djhunter67/study-site/internal/cache"
	"github.com/djhunter67/study-site/internal/models"
	"github.com/djhunter67/study-site/internal/tokens"
	"github.com/djhunter67/study-site/pkg/mail"
)

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.CacheEntry{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

// confirmationHarness wires a confirmation service against an in-memory
// database with an adjustable clock.
type confirmationHarness struct {
	db      *gorm.DB
	codec   *tokens.Codec
	records *tokens.InvalidationStore
	svc     *ConfirmationService
	current *time.Time
}

func newConfirmationHarness(t *testing.T, opts ...ConfirmationOption) *confirmationHarness {
	t.Helper()

	db := openServiceTestDB(t)

	current := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	_, private, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	codec, err := tokens.NewCodec(tokens.CodecConfig{
		PrivateKey: private,
		Issuer:     "study-site",
		Clock:      func() time.Time { return current },
	})
	require.NoError(t, err)

	records, err := tokens.NewInvalidationStore(cache.NewDatabaseStore(db))
	require.NoError(t, err)

	svc, err := NewConfirmationService(db, codec, records, opts...)
	require.NoError(t, err)

	return &confirmationHarness{
		db:      db,
		codec:   codec,
		records: records,
		svc:     svc,
		current: &current,
	}
}

func (h *confirmationHarness) createUser(t *testing.T, email string) *models.User {
	t.Helper()

	user := &models.User{Email: email, Password: "hashed"}
	require.NoError(t, h.db.Create(user).Error)
	return user
}

// capturedTemplate remembers a single gateway dispatch.
type capturedTemplate struct {
	Template  string
	Recipient string
	Fields    mail.TemplateFields
}

type captureGateway struct {
	sent []capturedTemplate
	err  error
}

func (g *captureGateway) SendTemplate(_ context.Context, templateName, recipient string, fields mail.TemplateFields) error {
	if g.err != nil {
		return g.err
	}
	g.sent = append(g.sent, capturedTemplate{Template: templateName, Recipient: recipient, Fields: fields})
	return nil
}

var errGatewayDown = errors.New("gateway down")
