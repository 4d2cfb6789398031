package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mwodeola/mwodeola-server/internal/server/auth"
)

// Context keys set by the token middleware.
const (
	ContextUserIDKey   = "user_id"
	ContextRawTokenKey = "raw_token"
)

func extractBearer(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// requireToken verifies the bearer token, checks its type and stores the
// user id and the raw token on the gin context. Refresh tokens get the
// blacklist check inside TokenService.Verify.
func (s *Server) requireToken(tokenType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "missing token"})
			return
		}

		claims, err := s.tokens.Verify(c.Request.Context(), token)
		if err != nil {
			s.writeError(c, err)
			return
		}
		if claims.TokenType != tokenType {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "wrong token type"})
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextRawTokenKey, token)
		c.Next()
	}
}

func (s *Server) requireAccessToken() gin.HandlerFunc {
	return s.requireToken(auth.TokenTypeAccess)
}

func (s *Server) requireRefreshToken() gin.HandlerFunc {
	return s.requireToken(auth.TokenTypeRefresh)
}

func userID(c *gin.Context) string {
	return c.GetString(ContextUserIDKey)
}

func rawToken(c *gin.Context) string {
	return c.GetString(ContextRawTokenKey)
}
