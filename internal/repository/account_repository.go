package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"wayfare/api/internal/apperr"
	"wayfare/api/internal/models"
)

const accountColumns = `
	id, email, phone, password_hash, refresh_token_hash, role, verification_status,
	is_active, is_suspended, suspended_until, selected_city_id, partner_id,
	deleted_at, created_at, updated_at
`

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func scanAccount(row pgx.Row) (models.Account, error) {
	var a models.Account
	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.Phone,
		&a.PasswordHash,
		&a.RefreshTokenHash,
		&a.Role,
		&a.VerificationStatus,
		&a.IsActive,
		&a.IsSuspended,
		&a.SuspendedUntil,
		&a.SelectedCityID,
		&a.PartnerID,
		&a.DeletedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	return a, err
}

func (r *AccountRepository) Create(ctx context.Context, account models.Account) error {
	const query = `
		INSERT INTO accounts (
			id, email, phone, password_hash, refresh_token_hash, role, verification_status,
			is_active, is_suspended, suspended_until, selected_city_id, partner_id,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		account.ID,
		account.Email,
		account.Phone,
		account.PasswordHash,
		account.RefreshTokenHash,
		account.Role,
		account.VerificationStatus,
		account.IsActive,
		account.IsSuspended,
		account.SuspendedUntil,
		account.SelectedCityID,
		account.PartnerID,
	)
	return translate(err, "create account")
}

// FindByEmail matches non-deleted accounts only; soft-deleted rows keep
// their identifier but no longer participate in uniqueness or login.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (models.Account, error) {
	const query = `
		SELECT ` + accountColumns + `
		FROM accounts WHERE email = $1 AND deleted_at IS NULL
	`
	account, err := scanAccount(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, apperr.NotFound("account not found")
		}
		return models.Account{}, translate(err, "find account by email")
	}
	return account, nil
}

func (r *AccountRepository) FindByPhone(ctx context.Context, phone string) (models.Account, error) {
	const query = `
		SELECT ` + accountColumns + `
		FROM accounts WHERE phone = $1 AND deleted_at IS NULL
	`
	account, err := scanAccount(r.pool.QueryRow(ctx, query, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, apperr.NotFound("account not found")
		}
		return models.Account{}, translate(err, "find account by phone")
	}
	return account, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (models.Account, error) {
	const query = `
		SELECT ` + accountColumns + `
		FROM accounts WHERE id = $1 AND deleted_at IS NULL
	`
	account, err := scanAccount(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, apperr.NotFound("account not found")
		}
		return models.Account{}, translate(err, "get account")
	}
	return account, nil
}

// GetAuthStatus returns the authorization slice of an account, including
// soft-deleted rows so the caller can tell "deleted" apart from "never
// existed" when it needs to.
func (r *AccountRepository) GetAuthStatus(ctx context.Context, id string) (models.AuthStatus, error) {
	const query = `
		SELECT id, role, is_active, is_suspended, suspended_until, deleted_at
		FROM accounts WHERE id = $1
	`
	var s models.AuthStatus
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.Role,
		&s.IsActive,
		&s.IsSuspended,
		&s.SuspendedUntil,
		&s.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.AuthStatus{}, apperr.NotFound("account not found")
		}
		return models.AuthStatus{}, translate(err, "get auth status")
	}
	return s, nil
}

// SetRefreshTokenHash stores the single active refresh-token hash for the
// account; a nil hash clears it (logout).
func (r *AccountRepository) SetRefreshTokenHash(ctx context.Context, id string, hash []byte) error {
	const query = `
		UPDATE accounts SET refresh_token_hash = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	cmd, err := r.pool.Exec(ctx, query, id, hash)
	if err != nil {
		return translate(err, "set refresh token hash")
	}
	if cmd.RowsAffected() == 0 {
		return apperr.NotFound("account not found")
	}
	return nil
}

func (r *AccountRepository) UpdateRole(ctx context.Context, id string, role models.Role) (models.Account, error) {
	const query = `
		UPDATE accounts SET role = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + accountColumns

	account, err := scanAccount(r.pool.QueryRow(ctx, query, id, role))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, apperr.NotFound("account not found")
		}
		return models.Account{}, translate(err, "update role")
	}
	return account, nil
}

func (r *AccountRepository) SetSuspension(ctx context.Context, id string, suspended bool, until *time.Time) (models.Account, error) {
	const query = `
		UPDATE accounts SET is_suspended = $2, suspended_until = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + accountColumns

	account, err := scanAccount(r.pool.QueryRow(ctx, query, id, suspended, until))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, apperr.NotFound("account not found")
		}
		return models.Account{}, translate(err, "set suspension")
	}
	return account, nil
}

func (r *AccountRepository) SetSelectedCity(ctx context.Context, id string, cityID string) error {
	const query = `
		UPDATE accounts SET selected_city_id = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	cmd, err := r.pool.Exec(ctx, query, id, cityID)
	if err != nil {
		return translate(err, "set selected city")
	}
	if cmd.RowsAffected() == 0 {
		return apperr.NotFound("account not found")
	}
	return nil
}

func (r *AccountRepository) List(ctx context.Context, q string, limit, offset int) ([]models.Account, int, error) {
	const query = `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE deleted_at IS NULL
		  AND ($1 = '' OR email ILIKE '%' || $1 || '%' OR phone ILIKE '%' || $1 || '%')
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, q, limit, offset)
	if err != nil {
		return nil, 0, translate(err, "list accounts")
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, 0, translate(err, "scan account")
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, translate(err, "list accounts")
	}

	const countQuery = `
		SELECT COUNT(*) FROM accounts
		WHERE deleted_at IS NULL
		  AND ($1 = '' OR email ILIKE '%' || $1 || '%' OR phone ILIKE '%' || $1 || '%')
	`
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, q).Scan(&total); err != nil {
		return nil, 0, translate(err, "count accounts")
	}

	return accounts, total, nil
}

// SweepExpiredSuspensions lifts suspensions whose expiry has passed.
// Indefinite suspensions (null suspended_until) are untouched.
func (r *AccountRepository) SweepExpiredSuspensions(ctx context.Context, now time.Time) (int64, error) {
	const query = `
		UPDATE accounts
		SET is_suspended = FALSE, suspended_until = NULL, updated_at = NOW()
		WHERE is_suspended = TRUE AND suspended_until IS NOT NULL AND suspended_until <= $1
	`
	cmd, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, translate(err, "sweep suspensions")
	}
	return cmd.RowsAffected(), nil
}
