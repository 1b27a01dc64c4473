package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subvoc/subvoc/pkg/models"
)

type fakeResolver struct {
	accounts map[string]*models.Account
}

func (f *fakeResolver) GetAccountByAPIKey(_ context.Context, apiKey string) (*models.Account, error) {
	account, ok := f.accounts[apiKey]
	if !ok {
		return nil, errors.New("record not found")
	}
	return account, nil
}

func authRouter(resolver AccountResolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(APIKeyAuth(resolver))
	router.GET("/whoami", func(c *gin.Context) {
		account, ok := GetAccount(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no account"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": account.ID})
	})
	return router
}

func TestAPIKeyAuth(t *testing.T) {
	resolver := &fakeResolver{accounts: map[string]*models.Account{
		"good-key": {ID: "acct-1", IsActive: true},
	}}
	router := authRouter(resolver)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-API-Key", "good-key")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "acct-1")
}

func TestAPIKeyAuthMissingKey(t *testing.T) {
	router := authRouter(&fakeResolver{accounts: map[string]*models.Account{}})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPIKeyAuthUnknownKey(t *testing.T) {
	router := authRouter(&fakeResolver{accounts: map[string]*models.Account{}})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-API-Key", "bad-key")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPIKeyAuthInactiveAccount(t *testing.T) {
	resolver := &fakeResolver{accounts: map[string]*models.Account{
		"dormant": {ID: "acct-2", IsActive: false},
	}}
	router := authRouter(resolver)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-API-Key", "dormant")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
