// Package middleware provides the gin middleware for the API surface.
package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	headerAPIKey   = "X-API-Key"
	headerAuth     = "Authorization"
	headerUserID   = "X-User-ID"
	headerUserPlan = "X-User-Plan"
	bearerPrefix   = "Bearer "
)

// Context keys set by RequireAPIKey for downstream handlers.
const (
	ContextUserID   = "user_id"
	ContextUserPlan = "user_plan"
)

// APIKeyAuth validates service API keys and attaches the caller identity
// forwarded by the gateway.
type APIKeyAuth struct {
	apiKeys map[string]bool
	logger  *slog.Logger
}

// NewAPIKeyAuth creates the auth middleware. With no keys configured all
// requests are rejected.
func NewAPIKeyAuth(apiKeys []string, logger *slog.Logger) *APIKeyAuth {
	if logger == nil {
		logger = slog.Default()
	}

	keyMap := make(map[string]bool, len(apiKeys))
	for _, key := range apiKeys {
		if key != "" {
			keyMap[key] = true
		}
	}

	return &APIKeyAuth{apiKeys: keyMap, logger: logger}
}

// RequireAPIKey checks X-API-Key then Authorization: Bearer, and stores the
// gateway-forwarded user identity (X-User-ID, X-User-Plan) on the context.
func (a *APIKeyAuth) RequireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := extractAPIKey(c)

		if !a.isValidAPIKey(apiKey) {
			a.logger.Warn("unauthorized request - invalid or missing API key",
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"remote_addr", c.ClientIP(),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"code": "unauthorized", "message": "invalid or missing API key"},
			})
			return
		}

		userID := c.GetHeader(headerUserID)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"code": "unauthorized", "message": "missing " + headerUserID + " header"},
			})
			return
		}
		plan := c.GetHeader(headerUserPlan)
		if plan == "" {
			plan = "free"
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextUserPlan, strings.ToLower(plan))
		c.Next()
	}
}

func extractAPIKey(c *gin.Context) string {
	if apiKey := c.GetHeader(headerAPIKey); apiKey != "" {
		return apiKey
	}
	authHeader := c.GetHeader(headerAuth)
	if strings.HasPrefix(authHeader, bearerPrefix) {
		return strings.TrimPrefix(authHeader, bearerPrefix)
	}
	return ""
}

// isValidAPIKey compares in constant time to avoid leaking key prefixes.
func (a *APIKeyAuth) isValidAPIKey(providedKey string) bool {
	if providedKey == "" || len(a.apiKeys) == 0 {
		return false
	}
	for validKey := range a.apiKeys {
		if subtle.ConstantTimeCompare([]byte(providedKey), []byte(validKey)) == 1 {
			return true
		}
	}
	return false
}
