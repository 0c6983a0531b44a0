package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"wayfare/api/internal/apperr"
	"wayfare/api/internal/models"
)

type PartnerRepository struct {
	pool *pgxpool.Pool
}

func NewPartnerRepository(pool *pgxpool.Pool) *PartnerRepository {
	return &PartnerRepository{pool: pool}
}

func (r *PartnerRepository) GetByOwner(ctx context.Context, ownerID string) (models.Partner, error) {
	const query = `
		SELECT id, name, owner_id, deleted_at, created_at, updated_at
		FROM partners
		WHERE owner_id = $1 AND deleted_at IS NULL
	`
	var p models.Partner
	err := r.pool.QueryRow(ctx, query, ownerID).Scan(
		&p.ID, &p.Name, &p.OwnerID, &p.DeletedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Partner{}, apperr.NotFound("partner profile not found")
		}
		return models.Partner{}, translate(err, "get partner by owner")
	}
	return p, nil
}

// Create inserts the partner profile and links accounts.partner_id in one
// transaction, so an account never points at a half-created profile.
func (r *PartnerRepository) Create(ctx context.Context, partner models.Partner) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return translate(err, "begin create partner")
	}
	defer tx.Rollback(ctx)

	const insertQuery = `
		INSERT INTO partners (id, name, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
	`
	if _, err := tx.Exec(ctx, insertQuery, partner.ID, partner.Name, partner.OwnerID); err != nil {
		return translate(err, "create partner")
	}

	const linkQuery = `
		UPDATE accounts SET partner_id = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	cmd, err := tx.Exec(ctx, linkQuery, partner.OwnerID, partner.ID)
	if err != nil {
		return translate(err, "link partner to account")
	}
	if cmd.RowsAffected() == 0 {
		return apperr.NotFound("account not found")
	}

	if err := tx.Commit(ctx); err != nil {
		return translate(err, "commit create partner")
	}
	return nil
}
