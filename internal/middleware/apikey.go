package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// The managed auth provider sits outside this service; its boundary here is
// an API key that maps to an owner id. Owner-facing routes trust that
// mapping, the redirect path never uses it.

const ownerContextKey = "owner_id"

// APIKeyConfig configures owner authentication.
type APIKeyConfig struct {
	// ValidKeys maps API keys to owner ids.
	ValidKeys map[string]string
	// HeaderName for the API key (default: X-API-Key).
	HeaderName string
}

var DefaultAPIKeyConfig = APIKeyConfig{
	HeaderName: "X-API-Key",
}

type APIKey struct {
	config APIKeyConfig
}

func NewAPIKey(config APIKeyConfig) *APIKey {
	if config.HeaderName == "" {
		config.HeaderName = DefaultAPIKeyConfig.HeaderName
	}
	return &APIKey{config: config}
}

// Middleware authenticates the request and stores the resolved owner id in
// the gin context.
func (ak *APIKey) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(ak.config.HeaderName)

		// Query parameter fallback
		if apiKey == "" {
			apiKey = c.Query("api_key")
		}

		// Authorization: Bearer fallback
		if apiKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				apiKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if apiKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "missing_api_key",
				"message": "API key required. Pass it via the X-API-Key header, the api_key query parameter or Authorization: Bearer",
			})
			c.Abort()
			return
		}

		// Constant-time comparison against every known key
		var ownerID string
		valid := false
		for validKey, owner := range ak.config.ValidKeys {
			if subtle.ConstantTimeCompare([]byte(apiKey), []byte(validKey)) == 1 {
				valid = true
				ownerID = owner
				break
			}
		}

		if !valid {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_api_key",
				"message": "Invalid API key",
			})
			c.Abort()
			return
		}

		c.Set(ownerContextKey, ownerID)
		c.Next()
	}
}

// RequireOwner builds the middleware for owner-facing routes.
func RequireOwner(validKeys map[string]string) gin.HandlerFunc {
	ak := NewAPIKey(APIKeyConfig{
		ValidKeys:  validKeys,
		HeaderName: DefaultAPIKeyConfig.HeaderName,
	})
	return ak.Middleware()
}

// OwnerFromContext returns the authenticated owner id.
func OwnerFromContext(c *gin.Context) (string, bool) {
	owner, exists := c.Get(ownerContextKey)
	if !exists {
		return "", false
	}
	id, ok := owner.(string)
	return id, ok && id != ""
}
