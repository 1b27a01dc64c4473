package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/subvoc/subvoc/pkg/models"
)

const (
	// AuthContextKey is the gin context key holding the
	// authenticated account.
	AuthContextKey = "account"

	apiKeyHeader = "X-API-Key"
)

// AccountResolver looks up an account by its API key.
// *database.Repository satisfies it.
type AccountResolver interface {
	GetAccountByAPIKey(ctx context.Context, apiKey string) (*models.Account, error)
}

// APIKeyAuth authenticates requests via the X-API-Key header and puts
// the resolved account on the context. Inactive accounts are rejected.
func APIKeyAuth(resolver AccountResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(apiKeyHeader)
		if apiKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "API key required"})
			c.Abort()
			return
		}

		account, err := resolver.GetAccountByAPIKey(c.Request.Context(), apiKey)
		if err != nil || account == nil || !account.IsActive {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			c.Abort()
			return
		}

		c.Set(AuthContextKey, account)
		c.Next()
	}
}

// GetAccount retrieves the authenticated account from the context.
func GetAccount(c *gin.Context) (*models.Account, bool) {
	value, exists := c.Get(AuthContextKey)
	if !exists {
		return nil, false
	}
	account, ok := value.(*models.Account)
	return account, ok
}
