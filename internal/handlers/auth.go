package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/djhunter67/study-site/internal/middleware"
	"github.com/djhunter67/study-site/internal/services"
	"github.com/djhunter67/study-site/internal/tokens"
	"github.com/djhunter67/study-site/pkg/errors"
	"github.com/djhunter67/study-site/pkg/metrics"
	"github.com/djhunter67/study-site/pkg/response"
)

// DefaultAccessTTL is the fallback lifetime of issued access credentials.
const DefaultAccessTTL = 15 * time.Minute

// AuthHandler manages authentication flows (login/me/logout).
type AuthHandler struct {
	users     *services.UserService
	codec     *tokens.Codec
	accessTTL time.Duration
}

func NewAuthHandler(users *services.UserService, codec *tokens.Codec, accessTTL time.Duration) *AuthHandler {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	return &AuthHandler{users: users, codec: codec, accessTTL: accessTTL}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Authenticate(requestContext(c), req.Email, req.Password)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, err)
		return
	}

	token, _, err := h.codec.Issue(tokens.PurposeAccess, user.ID, h.accessTTL)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, errors.ErrInternalServer)
		return
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()

	response.Success(c, http.StatusOK, gin.H{
		"tokens": tokenResponse{
			AccessToken: token,
			ExpiresIn:   int(h.accessTTL.Seconds()),
		},
		"user": gin.H{
			"id":         user.ID,
			"email":      user.Email,
			"first_name": user.FirstName,
			"last_name":  user.LastName,
			"is_active":  user.IsActive,
		},
	})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	user, err := h.users.GetByID(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user)
}

// POST /api/auth/logout
//
// Access credentials are stateless, so logout is client-side; the endpoint
// exists so clients have a uniform place to end a session.
func (h *AuthHandler) Logout(c *gin.Context) {
	if c.GetString(middleware.CtxUserIDKey) == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": "logged_out"})
}
