package middleware

import (
	"crypto/ed25519"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/djhunter67/study-site/internal/tokens"
)

func newAuthRouter(t *testing.T) (*gin.Engine, *tokens.Codec) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	_, private, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	codec, err := tokens.NewCodec(tokens.CodecConfig{PrivateKey: private, Issuer: "study-site"})
	require.NoError(t, err)

	r := gin.New()
	r.Use(Auth(codec))
	r.GET("/protected", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(CtxUserIDKey))
	})

	return r, codec
}

func TestAuthMiddlewareAcceptsAccessCredential(t *testing.T) {
	r, codec := newAuthRouter(t)

	token, _, err := codec.Issue(tokens.PurposeAccess, "user-123", time.Hour)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "user-123", w.Body.String())
}

func TestAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	r, _ := newAuthRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareRejectsConfirmationCredential(t *testing.T) {
	r, codec := newAuthRouter(t)

	token, _, err := codec.Issue(tokens.PurposeConfirm, "user-123", time.Hour)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
}

func TestAuthMiddlewareRejectsGarbage(t *testing.T) {
	r, _ := newAuthRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}
