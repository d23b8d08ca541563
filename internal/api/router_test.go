package api

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/djhunter67/study-site/internal/cache"
	"github.com/djhunter67/study-site/internal/models"
	"github.com/djhunter67/study-site/internal/services"
	"github.com/djhunter67/study-site/internal/tokens"
	"github.com/djhunter67/study-site/pkg/mail"
	"github.com/djhunter67/study-site/pkg/response"
)

type recordedEmail struct {
	Template  string
	Recipient string
	Fields    mail.TemplateFields
}

type recordingGateway struct {
	sent []recordedEmail
	err  error
}

func (g *recordingGateway) SendTemplate(_ context.Context, templateName, recipient string, fields mail.TemplateFields) error {
	if g.err != nil {
		return g.err
	}
	g.sent = append(g.sent, recordedEmail{Template: templateName, Recipient: recipient, Fields: fields})
	return nil
}

type testStack struct {
	router  *gin.Engine
	db      *gorm.DB
	gateway *recordingGateway
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.CacheEntry{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	_, private, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	codec, err := tokens.NewCodec(tokens.CodecConfig{PrivateKey: private, Issuer: "study-site"})
	require.NoError(t, err)

	store := cache.NewDatabaseStore(db)
	records, err := tokens.NewInvalidationStore(store)
	require.NoError(t, err)

	users, err := services.NewUserService(db)
	require.NoError(t, err)
	confirmations, err := services.NewConfirmationService(db, codec, records)
	require.NoError(t, err)

	gateway := &recordingGateway{}
	registration, err := services.NewRegistrationService(users, confirmations, gateway, services.RegistrationConfig{
		BaseURL: "https://study.example.com/register/confirm",
	})
	require.NoError(t, err)

	router, err := NewRouter(Dependencies{
		DB:           db,
		Cache:        store,
		Codec:        codec,
		Users:        users,
		Registration: registration,
		AccessTTL:    time.Hour,
	})
	require.NoError(t, err)

	return &testStack{router: router, db: db, gateway: gateway}
}

func (s *testStack) doJSON(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()

	var payload response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	return payload
}

func TestRegisterConfirmLoginFlow(t *testing.T) {
	s := newTestStack(t)

	// Register
	w := s.doJSON(t, http.MethodPost, "/register", "", gin.H{
		"email":      "jane@example.com",
		"password":   "s3cret-pass",
		"first_name": "Jane",
		"last_name":  "Doe",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	payload := decodeResponse(t, w)
	require.True(t, payload.Success)
	require.Len(t, s.gateway.sent, 1)

	// Login before confirmation is rejected
	w = s.doJSON(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "jane@example.com",
		"password": "s3cret-pass",
	})
	require.Equal(t, http.StatusForbidden, w.Code)

	// Confirm with the emailed credential
	link := s.gateway.sent[0].Fields.Link
	parsed, err := url.Parse(link)
	require.NoError(t, err)
	token := parsed.Query().Get("token")
	require.NotEmpty(t, token)

	w = s.doJSON(t, http.MethodGet, "/register/confirm?token="+url.QueryEscape(token), "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Redeeming the same link again conflicts
	w = s.doJSON(t, http.MethodGet, "/register/confirm?token="+url.QueryEscape(token), "", nil)
	require.Equal(t, http.StatusConflict, w.Code)

	// Login now succeeds and yields an access credential
	w = s.doJSON(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "jane@example.com",
		"password": "s3cret-pass",
	})
	require.Equal(t, http.StatusOK, w.Code)
	payload = decodeResponse(t, w)
	data := payload.Data.(map[string]any)
	access := data["tokens"].(map[string]any)["access_token"].(string)
	require.NotEmpty(t, access)

	// The access credential authenticates /api/auth/me
	w = s.doJSON(t, http.MethodGet, "/api/auth/me", access, nil)
	require.Equal(t, http.StatusOK, w.Code)
	payload = decodeResponse(t, w)
	me := payload.Data.(map[string]any)
	require.Equal(t, "jane@example.com", me["email"])
	require.Equal(t, true, me["is_active"])
}

func TestRegisterAcceptsFormEncoding(t *testing.T) {
	s := newTestStack(t)

	form := url.Values{}
	form.Set("email", "form@example.com")
	form.Set("password", "s3cret-pass")
	form.Set("first_name", "Form")

	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, s.gateway.sent, 1)
	require.Equal(t, "form@example.com", s.gateway.sent[0].Recipient)
}

func TestRegisterValidation(t *testing.T) {
	s := newTestStack(t)

	w := s.doJSON(t, http.MethodPost, "/register", "", gin.H{
		"email":    "not-an-email",
		"password": "s3cret-pass",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = s.doJSON(t, http.MethodPost, "/register", "", gin.H{
		"email":    "short@example.com",
		"password": "short",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterDuplicateConflict(t *testing.T) {
	s := newTestStack(t)

	body := gin.H{"email": "jane@example.com", "password": "s3cret-pass"}
	w := s.doJSON(t, http.MethodPost, "/register", "", body)
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.doJSON(t, http.MethodPost, "/register", "", body)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestConfirmRejectsBadTokens(t *testing.T) {
	s := newTestStack(t)

	w := s.doJSON(t, http.MethodGet, "/register/confirm", "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = s.doJSON(t, http.MethodGet, "/register/confirm?token=garbage", "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	payload := decodeResponse(t, w)
	require.Equal(t, "TOKEN_MALFORMED", payload.Error.Code)
}

func TestResendInvalidatesEarlierLink(t *testing.T) {
	s := newTestStack(t)

	w := s.doJSON(t, http.MethodPost, "/register", "", gin.H{
		"email":    "jane@example.com",
		"password": "s3cret-pass",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	first := s.gateway.sent[0].Fields.Token

	w = s.doJSON(t, http.MethodPost, "/register/resend", "", gin.H{"email": "jane@example.com"})
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, s.gateway.sent, 2)
	second := s.gateway.sent[1].Fields.Token

	w = s.doJSON(t, http.MethodGet, "/register/confirm?token="+url.QueryEscape(first), "", nil)
	require.Equal(t, http.StatusConflict, w.Code)

	w = s.doJSON(t, http.MethodGet, "/register/confirm?token="+url.QueryEscape(second), "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Unknown addresses get the same accepted response.
	w = s.doJSON(t, http.MethodPost, "/register/resend", "", gin.H{"email": "nobody@example.com"})
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, s.gateway.sent, 2)
}

func TestUsersCRUDRequiresAuth(t *testing.T) {
	s := newTestStack(t)

	w := s.doJSON(t, http.MethodGet, "/api/v1/users", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUsersCRUD(t *testing.T) {
	s := newTestStack(t)

	// Bootstrap an active admin user and log in.
	w := s.doJSON(t, http.MethodPost, "/register", "", gin.H{
		"email":    "admin@example.com",
		"password": "s3cret-pass",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	parsed, err := url.Parse(s.gateway.sent[0].Fields.Link)
	require.NoError(t, err)
	w = s.doJSON(t, http.MethodGet, "/register/confirm?token="+url.QueryEscape(parsed.Query().Get("token")), "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.doJSON(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "admin@example.com",
		"password": "s3cret-pass",
	})
	require.Equal(t, http.StatusOK, w.Code)
	access := decodeResponse(t, w).Data.(map[string]any)["tokens"].(map[string]any)["access_token"].(string)

	// Create
	w = s.doJSON(t, http.MethodPost, "/api/v1/users", access, gin.H{
		"email":      "member@example.com",
		"password":   "another-pass",
		"first_name": "Member",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeResponse(t, w).Data.(map[string]any)
	memberID := created["id"].(string)

	// Get
	w = s.doJSON(t, http.MethodGet, "/api/v1/users/"+memberID, access, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// List
	w = s.doJSON(t, http.MethodGet, "/api/v1/users?page=1&per_page=10", access, nil)
	require.Equal(t, http.StatusOK, w.Code)
	listPayload := decodeResponse(t, w)
	require.NotNil(t, listPayload.Meta)
	require.Equal(t, 2, listPayload.Meta.Total)

	// Update
	w = s.doJSON(t, http.MethodPut, "/api/v1/users/"+memberID, access, gin.H{
		"first_name": "Renamed",
	})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decodeResponse(t, w).Data.(map[string]any)
	require.Equal(t, "Renamed", updated["first_name"])

	// Delete
	w = s.doJSON(t, http.MethodDelete, "/api/v1/users/"+memberID, access, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.doJSON(t, http.MethodGet, "/api/v1/users/"+memberID, access, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestStack(t)

	w := s.doJSON(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.doJSON(t, http.MethodGet, "/health/live", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.doJSON(t, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.doJSON(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
}
