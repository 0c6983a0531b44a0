package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"wayfare/api/internal/apperr"
	"wayfare/api/internal/models"
)

// AccountAdminStore extends account persistence with the operations only
// administrators reach.
type AccountAdminStore interface {
	GetByID(ctx context.Context, id string) (models.Account, error)
	List(ctx context.Context, query string, limit, offset int) ([]models.Account, int, error)
	UpdateRole(ctx context.Context, id string, role models.Role) (models.Account, error)
	SetSuspension(ctx context.Context, id string, suspended bool, until *time.Time) (models.Account, error)
}

// AdminService covers account administration. Role changes are reserved for
// super admins; suspensions are open to the wider admin roles.
type AdminService struct {
	accounts AccountAdminStore
	log      zerolog.Logger
}

func NewAdminService(accounts AccountAdminStore, log zerolog.Logger) *AdminService {
	return &AdminService{accounts: accounts, log: log}
}

type ListAccountsInput struct {
	Query string
	Page  PageRequest
}

func (s *AdminService) ListAccounts(ctx context.Context, actor AuthContext, input ListAccountsInput) ([]models.Account, PageMeta, error) {
	if !RequireRole(actor, models.RolePlatformAdmin, models.RoleSuperAdmin) {
		return nil, PageMeta{}, apperr.Forbidden("insufficient role")
	}

	page, limit, offset := input.Page.Normalize()
	accounts, total, err := s.accounts.List(ctx, input.Query, limit, offset)
	if err != nil {
		return nil, PageMeta{}, err
	}
	return accounts, pageMeta(page, limit, offset, len(accounts), total), nil
}

func (s *AdminService) UpdateRole(ctx context.Context, actor AuthContext, accountID string, role models.Role) (models.Account, error) {
	if !RequireRole(actor, models.RoleSuperAdmin) {
		return models.Account{}, apperr.Forbidden("only super admins may change roles")
	}
	if !models.ValidRole(role) {
		return models.Account{}, apperr.Validation(apperr.FieldError{Field: "role", Problem: "unknown role"})
	}
	if accountID == actor.AccountID && role != models.RoleSuperAdmin {
		return models.Account{}, apperr.BadRequest("cannot demote own account")
	}

	account, err := s.accounts.UpdateRole(ctx, accountID, role)
	if err != nil {
		return models.Account{}, err
	}
	s.log.Info().
		Str("actor_id", actor.AccountID).
		Str("account_id", accountID).
		Str("role", string(role)).
		Msg("account role changed")
	return account, nil
}

type SuspendInput struct {
	AccountID string
	// Until nil means indefinite.
	Until *time.Time
}

func (s *AdminService) Suspend(ctx context.Context, actor AuthContext, input SuspendInput) (models.Account, error) {
	if !RequireRole(actor, models.RolePlatformAdmin, models.RoleSuperAdmin) {
		return models.Account{}, apperr.Forbidden("insufficient role")
	}
	if input.AccountID == actor.AccountID {
		return models.Account{}, apperr.BadRequest("cannot suspend own account")
	}

	target, err := s.accounts.GetByID(ctx, input.AccountID)
	if err != nil {
		return models.Account{}, err
	}
	if target.Role == models.RoleSuperAdmin && actor.Role != models.RoleSuperAdmin {
		return models.Account{}, apperr.Forbidden("cannot suspend a super admin")
	}

	account, err := s.accounts.SetSuspension(ctx, input.AccountID, true, input.Until)
	if err != nil {
		return models.Account{}, err
	}

	evt := s.log.Info().
		Str("actor_id", actor.AccountID).
		Str("account_id", input.AccountID)
	if input.Until != nil {
		evt = evt.Time("until", *input.Until)
	}
	evt.Msg("account suspended")
	return account, nil
}

func (s *AdminService) Unsuspend(ctx context.Context, actor AuthContext, accountID string) (models.Account, error) {
	if !RequireRole(actor, models.RolePlatformAdmin, models.RoleSuperAdmin) {
		return models.Account{}, apperr.Forbidden("insufficient role")
	}

	account, err := s.accounts.SetSuspension(ctx, accountID, false, nil)
	if err != nil {
		return models.Account{}, err
	}
	s.log.Info().
		Str("actor_id", actor.AccountID).
		Str("account_id", accountID).
		Msg("account unsuspended")
	return account, nil
}
