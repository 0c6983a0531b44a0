package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"wayfare/api/internal/apperr"
	"wayfare/api/internal/config"
	"wayfare/api/internal/ids"
	"wayfare/api/internal/models"
	"wayfare/api/internal/security"
)

// AccountStore is the account persistence surface the auth component needs.
type AccountStore interface {
	Create(ctx context.Context, account models.Account) error
	FindByEmail(ctx context.Context, email string) (models.Account, error)
	FindByPhone(ctx context.Context, phone string) (models.Account, error)
	GetByID(ctx context.Context, id string) (models.Account, error)
	GetAuthStatus(ctx context.Context, id string) (models.AuthStatus, error)
	SetRefreshTokenHash(ctx context.Context, id string, hash []byte) error
	SetSelectedCity(ctx context.Context, id string, cityID string) error
}

type CityChecker interface {
	CityExists(ctx context.Context, id string) (bool, error)
}

type AuthService struct {
	accounts AccountStore
	cities   CityChecker
	cfg      *config.AppConfig
	log      zerolog.Logger
	now      func() time.Time
}

func NewAuthService(accounts AccountStore, cities CityChecker, cfg *config.AppConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		accounts: accounts,
		cities:   cities,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthContext is the caller identity every protected operation receives
// explicitly. Role is always the live database role, never the token's.
type AuthContext struct {
	AccountID string
	Role      models.Role
}

// IssueTokens produces the two independently-signed, independently-expiring
// tokens for an account. It does not persist anything; callers store the
// refresh hash themselves.
func (s *AuthService) IssueTokens(accountID string, role models.Role) (TokenPair, error) {
	access, err := security.GenerateToken(
		s.cfg.Security.JWTAccessSecret, security.TokenClassAccess,
		accountID, string(role), s.cfg.Security.JWTAccessTTL,
	)
	if err != nil {
		return TokenPair{}, apperr.Internal(err)
	}

	refresh, err := security.GenerateToken(
		s.cfg.Security.JWTRefreshSecret, security.TokenClassRefresh,
		accountID, string(role), s.cfg.Security.JWTRefreshTTL,
	)
	if err != nil {
		return TokenPair{}, apperr.Internal(err)
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// storeRefreshHash persists the argon2id hash of the refresh token, making it
// the single valid refresh token for the account.
func (s *AuthService) storeRefreshHash(ctx context.Context, accountID string, refreshToken string) error {
	hash, err := security.HashSecret(refreshToken)
	if err != nil {
		return apperr.Internal(err)
	}
	return s.accounts.SetRefreshTokenHash(ctx, accountID, hash)
}

type RegisterInput struct {
	Email    string
	Phone    string
	Password string
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (TokenPair, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	input.Phone = strings.TrimSpace(input.Phone)

	if input.Email == "" && input.Phone == "" {
		return TokenPair{}, apperr.BadRequest("either email or phone is required")
	}
	if input.Password == "" {
		return TokenPair{}, apperr.BadRequest("password is required")
	}

	if input.Email != "" {
		if _, err := s.accounts.FindByEmail(ctx, input.Email); err == nil {
			return TokenPair{}, apperr.Conflict("email already in use")
		} else if !apperr.IsKind(err, apperr.KindNotFound) {
			return TokenPair{}, err
		}
	}
	if input.Phone != "" {
		if _, err := s.accounts.FindByPhone(ctx, input.Phone); err == nil {
			return TokenPair{}, apperr.Conflict("phone already in use")
		} else if !apperr.IsKind(err, apperr.KindNotFound) {
			return TokenPair{}, err
		}
	}

	passwordHash, err := security.HashSecret(input.Password)
	if err != nil {
		return TokenPair{}, apperr.Internal(err)
	}

	account := models.Account{
		ID:                 ids.New(),
		PasswordHash:       passwordHash,
		Role:               models.RoleTourist,
		VerificationStatus: models.VerificationUnverified,
		IsActive:           true,
	}
	if input.Email != "" {
		account.Email = &input.Email
	}
	if input.Phone != "" {
		account.Phone = &input.Phone
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		return TokenPair{}, err
	}

	tokens, err := s.IssueTokens(account.ID, account.Role)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.storeRefreshHash(ctx, account.ID, tokens.RefreshToken); err != nil {
		return TokenPair{}, err
	}

	s.log.Info().Str("account_id", account.ID).Msg("account registered")
	return tokens, nil
}

type LoginInput struct {
	Email    string
	Phone    string
	Password string
}

// Login issues a fresh token pair and persists the new refresh hash, which
// invalidates any previously issued refresh token (single active session).
func (s *AuthService) Login(ctx context.Context, input LoginInput) (TokenPair, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	input.Phone = strings.TrimSpace(input.Phone)

	if input.Email == "" && input.Phone == "" {
		return TokenPair{}, apperr.BadRequest("either email or phone is required")
	}

	var (
		account models.Account
		err     error
	)
	if input.Email != "" {
		account, err = s.accounts.FindByEmail(ctx, input.Email)
	} else {
		account, err = s.accounts.FindByPhone(ctx, input.Phone)
	}
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return TokenPair{}, apperr.Unauthorized("invalid credentials")
		}
		return TokenPair{}, err
	}

	ok, err := security.VerifySecret(input.Password, account.PasswordHash)
	if err != nil || !ok {
		return TokenPair{}, apperr.Unauthorized("invalid credentials")
	}

	tokens, err := s.IssueTokens(account.ID, account.Role)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.storeRefreshHash(ctx, account.ID, tokens.RefreshToken); err != nil {
		return TokenPair{}, err
	}

	return tokens, nil
}

// Refresh rotates the token pair. The presented token must be a valid
// refresh-class JWT and must match the single stored hash; the old token is
// single-use.
func (s *AuthService) Refresh(ctx context.Context, presentedToken string) (TokenPair, error) {
	claims, err := security.ParseToken(presentedToken, s.cfg.Security.JWTRefreshSecret, security.TokenClassRefresh)
	if err != nil {
		return TokenPair{}, apperr.Unauthorized("invalid refresh token")
	}

	account, err := s.accounts.GetByID(ctx, claims.Subject)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return TokenPair{}, apperr.Unauthorized("invalid refresh token")
		}
		return TokenPair{}, err
	}
	if account.RefreshTokenHash == nil {
		return TokenPair{}, apperr.Unauthorized("invalid refresh token")
	}

	ok, err := security.VerifySecret(presentedToken, account.RefreshTokenHash)
	if err != nil || !ok {
		return TokenPair{}, apperr.Unauthorized("invalid refresh token")
	}

	tokens, err := s.IssueTokens(account.ID, account.Role)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.storeRefreshHash(ctx, account.ID, tokens.RefreshToken); err != nil {
		return TokenPair{}, err
	}

	return tokens, nil
}

// Logout clears the stored refresh hash, invalidating every outstanding
// refresh token for the account. Calling it repeatedly is harmless.
func (s *AuthService) Logout(ctx context.Context, accountID string) error {
	err := s.accounts.SetRefreshTokenHash(ctx, accountID, nil)
	if err != nil && apperr.IsKind(err, apperr.KindNotFound) {
		return nil
	}
	return err
}

// Authorize verifies an access token and re-derives live authorization state.
// Tokens are bearer identity only: role and status come from the store on
// every call, so demotions and suspensions take effect before expiry.
func (s *AuthService) Authorize(ctx context.Context, accessToken string) (AuthContext, error) {
	claims, err := security.ParseToken(accessToken, s.cfg.Security.JWTAccessSecret, security.TokenClassAccess)
	if err != nil {
		return AuthContext{}, apperr.Unauthorized("invalid or expired token")
	}

	status, err := s.accounts.GetAuthStatus(ctx, claims.Subject)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return AuthContext{}, apperr.Unauthorized("account not found")
		}
		return AuthContext{}, err
	}
	if status.DeletedAt != nil {
		return AuthContext{}, apperr.Unauthorized("account not found")
	}

	if !status.IsActive {
		return AuthContext{}, apperr.Forbidden("account is inactive")
	}
	if status.SuspendedNow(s.now()) {
		return AuthContext{}, apperr.Forbidden("account is suspended")
	}

	return AuthContext{AccountID: status.ID, Role: status.Role}, nil
}

// RequireRole is the pure role check; an empty allow-list admits any
// authenticated caller.
func RequireRole(ctx AuthContext, allowed ...models.Role) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, role := range allowed {
		if ctx.Role == role {
			return true
		}
	}
	return false
}

func (s *AuthService) Me(ctx context.Context, accountID string) (models.Account, error) {
	return s.accounts.GetByID(ctx, accountID)
}

func (s *AuthService) SetSelectedCity(ctx context.Context, accountID string, cityID string) (models.Account, error) {
	ok, err := s.cities.CityExists(ctx, cityID)
	if err != nil {
		return models.Account{}, err
	}
	if !ok {
		return models.Account{}, apperr.BadRequest("cityId must reference an existing city")
	}

	if err := s.accounts.SetSelectedCity(ctx, accountID, cityID); err != nil {
		return models.Account{}, err
	}
	return s.accounts.GetByID(ctx, accountID)
}
