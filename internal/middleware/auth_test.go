package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayfare/api/internal/apperr"
	"wayfare/api/internal/config"
	"wayfare/api/internal/models"
	"wayfare/api/internal/service"
)

type staticAccountStore struct {
	status models.AuthStatus
	found  bool
}

func (s *staticAccountStore) Create(context.Context, models.Account) error { return nil }
func (s *staticAccountStore) FindByEmail(context.Context, string) (models.Account, error) {
	return models.Account{}, apperr.NotFound("account not found")
}
func (s *staticAccountStore) FindByPhone(context.Context, string) (models.Account, error) {
	return models.Account{}, apperr.NotFound("account not found")
}
func (s *staticAccountStore) GetByID(context.Context, string) (models.Account, error) {
	return models.Account{}, apperr.NotFound("account not found")
}
func (s *staticAccountStore) GetAuthStatus(context.Context, string) (models.AuthStatus, error) {
	if !s.found {
		return models.AuthStatus{}, apperr.NotFound("account not found")
	}
	return s.status, nil
}
func (s *staticAccountStore) SetRefreshTokenHash(context.Context, string, []byte) error { return nil }
func (s *staticAccountStore) SetSelectedCity(context.Context, string, string) error     { return nil }

type noCities struct{}

func (noCities) CityExists(context.Context, string) (bool, error) { return false, nil }

func newAuthRouter(store *staticAccountStore) (*gin.Engine, *service.AuthService) {
	gin.SetMode(gin.TestMode)
	cfg := &config.AppConfig{
		Security: config.SecurityConfig{
			JWTAccessSecret:  "mw-access-secret",
			JWTRefreshSecret: "mw-refresh-secret",
			JWTAccessTTL:     time.Minute,
			JWTRefreshTTL:    time.Hour,
		},
	}
	auth := service.NewAuthService(store, noCities{}, cfg, zerolog.Nop())

	router := gin.New()
	protected := router.Group("/", Auth(auth))
	protected.GET("/whoami", func(c *gin.Context) {
		actor, _ := Actor(c)
		c.JSON(http.StatusOK, gin.H{"role": string(actor.Role)})
	})
	adminOnly := router.Group("/admin", Auth(auth), RequireRoles(models.RolePlatformAdmin, models.RoleSuperAdmin))
	adminOnly.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	return router, auth
}

func issueAccess(t *testing.T, auth *service.AuthService, role models.Role) string {
	t.Helper()
	pair, err := auth.IssueTokens("acc_1", role)
	require.NoError(t, err)
	return pair.AccessToken
}

func TestAuthMiddlewareMissingToken(t *testing.T) {
	router, _ := newAuthRouter(&staticAccountStore{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareLiveRole(t *testing.T) {
	store := &staticAccountStore{
		found: true,
		status: models.AuthStatus{
			ID:       "acc_1",
			Role:     models.RoleCityModerator,
			IsActive: true,
		},
	}
	router, auth := newAuthRouter(store)

	// Token says tourist; the database role wins.
	token := issueAccess(t, auth, models.RoleTourist)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), string(models.RoleCityModerator))
}

func TestAuthMiddlewareSuspended(t *testing.T) {
	store := &staticAccountStore{
		found: true,
		status: models.AuthStatus{
			ID:          "acc_1",
			Role:        models.RoleTourist,
			IsActive:    true,
			IsSuspended: true,
		},
	}
	router, auth := newAuthRouter(store)
	token := issueAccess(t, auth, models.RoleTourist)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRolesMiddleware(t *testing.T) {
	store := &staticAccountStore{
		found: true,
		status: models.AuthStatus{
			ID:       "acc_1",
			Role:     models.RoleTourist,
			IsActive: true,
		},
	}
	router, auth := newAuthRouter(store)
	token := issueAccess(t, auth, models.RoleTourist)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Promote in the store and the same token now passes.
	store.status.Role = models.RolePlatformAdmin
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
