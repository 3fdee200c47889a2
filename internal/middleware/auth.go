package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"caterly/internal/auth"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware accepts an access token from the Authorization header or,
// for browser clients, from the accessToken cookie.
func AuthMiddleware(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerOrCookie(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		claims, err := tokens.ValidateAccess(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		slog.Debug("authenticated", "user_id", claims.UserID, "role", claims.Role)

		// Attach user info to request context
		c.Set("userID", claims.UserID)
		c.Set("userEmail", claims.Email)
		c.Set("userRole", claims.Role)
		c.Next()
	}
}

func bearerOrCookie(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.Split(header, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}

	if cookie, err := c.Cookie(auth.AccessCookie); err == nil && cookie != "" {
		return cookie, true
	}
	return "", false
}
