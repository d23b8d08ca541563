package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/djhunter67/study-site/internal/tokens"
	"github.com/djhunter67/study-site/pkg/errors"
	"github.com/djhunter67/study-site/pkg/response"
)

const (
	CtxClaimsKey = "authClaims"
	CtxUserIDKey = "userID"

	bearerScheme = "Bearer "
)

// bearerToken extracts the credential from the Authorization header.
// The scheme comparison is case-insensitive per RFC 7235.
func bearerToken(c *gin.Context) (string, bool) {
	authz := c.GetHeader("Authorization")
	if len(authz) <= len(bearerScheme) {
		return "", false
	}
	if !strings.EqualFold(authz[:len(bearerScheme)], bearerScheme) {
		return "", false
	}
	return strings.TrimSpace(authz[len(bearerScheme):]), true
}

func abortUnauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	response.Error(c, errors.ErrUnauthorized)
	c.Abort()
}

// Auth enforces bearer authentication. Only credentials issued for the
// access purpose get past it; confirmation or reset credentials are rejected.
func Auth(codec *tokens.Codec) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c)
			return
		}

		// All verification failures collapse to a plain 401
		claims, err := codec.Verify(token, tokens.PurposeAccess)
		if err != nil {
			abortUnauthorized(c)
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.Subject)
		c.Next()
	}
}
