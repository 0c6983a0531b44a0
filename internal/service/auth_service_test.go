package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayfare/api/internal/apperr"
	"wayfare/api/internal/config"
	"wayfare/api/internal/models"
)

type memAccountStore struct {
	accounts map[string]*models.Account
}

func newMemAccountStore() *memAccountStore {
	return &memAccountStore{accounts: make(map[string]*models.Account)}
}

func (m *memAccountStore) Create(_ context.Context, account models.Account) error {
	m.accounts[account.ID] = &account
	return nil
}

func (m *memAccountStore) FindByEmail(_ context.Context, email string) (models.Account, error) {
	for _, a := range m.accounts {
		if a.Email != nil && *a.Email == email && a.DeletedAt == nil {
			return *a, nil
		}
	}
	return models.Account{}, apperr.NotFound("account not found")
}

func (m *memAccountStore) FindByPhone(_ context.Context, phone string) (models.Account, error) {
	for _, a := range m.accounts {
		if a.Phone != nil && *a.Phone == phone && a.DeletedAt == nil {
			return *a, nil
		}
	}
	return models.Account{}, apperr.NotFound("account not found")
}

func (m *memAccountStore) GetByID(_ context.Context, id string) (models.Account, error) {
	a, ok := m.accounts[id]
	if !ok || a.DeletedAt != nil {
		return models.Account{}, apperr.NotFound("account not found")
	}
	return *a, nil
}

func (m *memAccountStore) GetAuthStatus(_ context.Context, id string) (models.AuthStatus, error) {
	a, ok := m.accounts[id]
	if !ok {
		return models.AuthStatus{}, apperr.NotFound("account not found")
	}
	return models.AuthStatus{
		ID:             a.ID,
		Role:           a.Role,
		IsActive:       a.IsActive,
		IsSuspended:    a.IsSuspended,
		SuspendedUntil: a.SuspendedUntil,
		DeletedAt:      a.DeletedAt,
	}, nil
}

func (m *memAccountStore) SetRefreshTokenHash(_ context.Context, id string, hash []byte) error {
	a, ok := m.accounts[id]
	if !ok {
		return apperr.NotFound("account not found")
	}
	a.RefreshTokenHash = hash
	return nil
}

func (m *memAccountStore) SetSelectedCity(_ context.Context, id string, cityID string) error {
	a, ok := m.accounts[id]
	if !ok {
		return apperr.NotFound("account not found")
	}
	a.SelectedCityID = &cityID
	return nil
}

type memCityChecker struct {
	cities map[string]bool
}

func (m *memCityChecker) CityExists(_ context.Context, id string) (bool, error) {
	return m.cities[id], nil
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Security: config.SecurityConfig{
			JWTAccessSecret:  "access-secret-for-tests",
			JWTRefreshSecret: "refresh-secret-for-tests",
			JWTAccessTTL:     15 * time.Minute,
			JWTRefreshTTL:    30 * 24 * time.Hour,
		},
	}
}

func newTestAuthService() (*AuthService, *memAccountStore) {
	store := newMemAccountStore()
	cities := &memCityChecker{cities: map[string]bool{"city_1": true}}
	svc := NewAuthService(store, cities, testConfig(), zerolog.Nop())
	return svc, store
}

func registerTourist(t *testing.T, svc *AuthService) (TokenPair, string) {
	t.Helper()
	pair, err := svc.Register(context.Background(), RegisterInput{
		Email:    "tourist@example.com",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)

	actor, err := svc.Authorize(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	return pair, actor.AccountID
}

func TestRegisterLoginAuthorize(t *testing.T) {
	svc, _ := newTestAuthService()
	ctx := context.Background()

	pair, err := svc.Register(ctx, RegisterInput{Email: "User@Example.com", Password: "hunter2hunter2"})
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	// Email is normalized, so the original casing still logs in.
	loginPair, err := svc.Login(ctx, LoginInput{Email: "user@example.com", Password: "hunter2hunter2"})
	require.NoError(t, err)

	actor, err := svc.Authorize(ctx, loginPair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleTourist, actor.Role)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestAuthService()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "dup@example.com", Password: "hunter2hunter2"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Email: "dup@example.com", Password: "other-password"})
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestRegisterRequiresContact(t *testing.T) {
	svc, _ := newTestAuthService()

	_, err := svc.Register(context.Background(), RegisterInput{Password: "hunter2hunter2"})
	assert.True(t, apperr.IsKind(err, apperr.KindBadRequest))
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestAuthService()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "a@example.com", Password: "hunter2hunter2"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginInput{Email: "a@example.com", Password: "wrong"})
	assert.True(t, apperr.IsKind(err, apperr.KindUnauthorized))

	// Unknown account gets the same answer as a wrong password.
	_, err = svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "whatever"})
	assert.True(t, apperr.IsKind(err, apperr.KindUnauthorized))
}

func TestAuthorizeUsesLiveRole(t *testing.T) {
	svc, store := newTestAuthService()
	ctx := context.Background()

	pair, id := registerTourist(t, svc)

	// Role changes in the store after token issuance.
	store.accounts[id].Role = models.RolePartner

	actor, err := svc.Authorize(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RolePartner, actor.Role, "stale token role must not win")
}

func TestAuthorizeDeletedAccount(t *testing.T) {
	svc, store := newTestAuthService()

	pair, id := registerTourist(t, svc)
	now := time.Now()
	store.accounts[id].DeletedAt = &now

	_, err := svc.Authorize(context.Background(), pair.AccessToken)
	assert.True(t, apperr.IsKind(err, apperr.KindUnauthorized))
}

func TestAuthorizeInactiveAccount(t *testing.T) {
	svc, store := newTestAuthService()

	pair, id := registerTourist(t, svc)
	store.accounts[id].IsActive = false

	_, err := svc.Authorize(context.Background(), pair.AccessToken)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestAuthorizeSuspensionBoundary(t *testing.T) {
	svc, store := newTestAuthService()
	frozen := time.Now()
	svc.now = func() time.Time { return frozen }

	pair, id := registerTourist(t, svc)
	store.accounts[id].IsSuspended = true

	// Indefinite suspension blocks.
	store.accounts[id].SuspendedUntil = nil
	_, err := svc.Authorize(context.Background(), pair.AccessToken)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	// Future deadline still blocks.
	future := frozen.Add(time.Hour)
	store.accounts[id].SuspendedUntil = &future
	_, err = svc.Authorize(context.Background(), pair.AccessToken)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	// A deadline in the past means the suspension has lapsed.
	past := frozen.Add(-time.Second)
	store.accounts[id].SuspendedUntil = &past
	_, err = svc.Authorize(context.Background(), pair.AccessToken)
	assert.NoError(t, err)
}

func TestRefreshRotation(t *testing.T) {
	svc, _ := newTestAuthService()
	ctx := context.Background()

	pair, _ := registerTourist(t, svc)

	rotated, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// The replaced token is single-use.
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.True(t, apperr.IsKind(err, apperr.KindUnauthorized))

	// The rotated one still works.
	_, err = svc.Refresh(ctx, rotated.RefreshToken)
	assert.NoError(t, err)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc, _ := newTestAuthService()

	pair, _ := registerTourist(t, svc)

	_, err := svc.Refresh(context.Background(), pair.AccessToken)
	assert.True(t, apperr.IsKind(err, apperr.KindUnauthorized))
}

func TestSecondLoginInvalidatesFirstRefresh(t *testing.T) {
	svc, _ := newTestAuthService()
	ctx := context.Background()

	first, _ := registerTourist(t, svc)

	second, err := svc.Login(ctx, LoginInput{Email: "tourist@example.com", Password: "hunter2hunter2"})
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, first.RefreshToken)
	assert.True(t, apperr.IsKind(err, apperr.KindUnauthorized), "older session's refresh must be dead")

	_, err = svc.Refresh(ctx, second.RefreshToken)
	assert.NoError(t, err)
}

func TestLogoutKillsRefresh(t *testing.T) {
	svc, _ := newTestAuthService()
	ctx := context.Background()

	pair, id := registerTourist(t, svc)

	require.NoError(t, svc.Logout(ctx, id))

	_, err := svc.Refresh(ctx, pair.RefreshToken)
	assert.True(t, apperr.IsKind(err, apperr.KindUnauthorized))

	// Logout is idempotent.
	assert.NoError(t, svc.Logout(ctx, id))
	assert.NoError(t, svc.Logout(ctx, "missing-account"))
}

func TestLogoutDoesNotKillAccessToken(t *testing.T) {
	// Access tokens stay valid until expiry; only the refresh path dies.
	svc, _ := newTestAuthService()
	ctx := context.Background()

	pair, id := registerTourist(t, svc)
	require.NoError(t, svc.Logout(ctx, id))

	_, err := svc.Authorize(ctx, pair.AccessToken)
	assert.NoError(t, err)
}

func TestSetSelectedCity(t *testing.T) {
	svc, _ := newTestAuthService()
	ctx := context.Background()

	_, id := registerTourist(t, svc)

	account, err := svc.SetSelectedCity(ctx, id, "city_1")
	require.NoError(t, err)
	require.NotNil(t, account.SelectedCityID)
	assert.Equal(t, "city_1", *account.SelectedCityID)

	_, err = svc.SetSelectedCity(ctx, id, "city_unknown")
	assert.True(t, apperr.IsKind(err, apperr.KindBadRequest))
}

func TestRequireRole(t *testing.T) {
	tourist := AuthContext{AccountID: "a", Role: models.RoleTourist}
	admin := AuthContext{AccountID: "b", Role: models.RoleSuperAdmin}

	assert.True(t, RequireRole(tourist), "empty allow-list admits any authenticated caller")
	assert.True(t, RequireRole(admin, models.RoleSuperAdmin))
	assert.False(t, RequireRole(tourist, models.RolePartner, models.RolePlatformAdmin))
}
