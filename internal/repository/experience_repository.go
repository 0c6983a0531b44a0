package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"wayfare/api/internal/apperr"
	"wayfare/api/internal/ids"
	"wayfare/api/internal/models"
)

// Experience columns; location is unpacked into lat/lng at select time so
// the model never carries raw PostGIS values.
const experienceColumns = `
	id, title, description, city_id, category_id, partner_id,
	price_from_cents, currency, rating_avg, rating_count,
	status, is_published, is_featured, rejection_reason, published_at,
	CASE WHEN location IS NULL THEN NULL ELSE ST_Y(location::geometry) END,
	CASE WHEN location IS NULL THEN NULL ELSE ST_X(location::geometry) END,
	deleted_at, created_at, updated_at
`

type ExperienceRepository struct {
	pool *pgxpool.Pool
}

func NewExperienceRepository(pool *pgxpool.Pool) *ExperienceRepository {
	return &ExperienceRepository{pool: pool}
}

func scanExperience(row pgx.Row) (models.Experience, error) {
	var (
		e        models.Experience
		lat, lng *float64
	)
	err := row.Scan(
		&e.ID,
		&e.Title,
		&e.Description,
		&e.CityID,
		&e.CategoryID,
		&e.PartnerID,
		&e.PriceFromCents,
		&e.Currency,
		&e.RatingAvg,
		&e.RatingCount,
		&e.Status,
		&e.IsPublished,
		&e.IsFeatured,
		&e.RejectionReason,
		&e.PublishedAt,
		&lat,
		&lng,
		&e.DeletedAt,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return models.Experience{}, err
	}
	if lat != nil && lng != nil {
		e.Location = &models.GeoPoint{Lat: *lat, Lng: *lng}
	}
	return e, nil
}

func (r *ExperienceRepository) loadMedia(ctx context.Context, experienceIDs []string) (map[string][]models.ExperienceMedia, error) {
	if len(experienceIDs) == 0 {
		return map[string][]models.ExperienceMedia{}, nil
	}

	const query = `
		SELECT id, experience_id, url, sort_order
		FROM experience_media
		WHERE experience_id = ANY($1) AND deleted_at IS NULL
		ORDER BY sort_order ASC
	`
	rows, err := r.pool.Query(ctx, query, experienceIDs)
	if err != nil {
		return nil, translate(err, "load media")
	}
	defer rows.Close()

	media := make(map[string][]models.ExperienceMedia, len(experienceIDs))
	for rows.Next() {
		var m models.ExperienceMedia
		if err := rows.Scan(&m.ID, &m.ExperienceID, &m.URL, &m.SortOrder); err != nil {
			return nil, translate(err, "scan media")
		}
		media[m.ExperienceID] = append(media[m.ExperienceID], m)
	}
	return media, rows.Err()
}

func (r *ExperienceRepository) attachMedia(ctx context.Context, experience *models.Experience) error {
	media, err := r.loadMedia(ctx, []string{experience.ID})
	if err != nil {
		return err
	}
	experience.Media = media[experience.ID]
	return nil
}

func insertMedia(ctx context.Context, tx pgx.Tx, experienceID string, urls []string) error {
	const query = `
		INSERT INTO experience_media (id, experience_id, url, sort_order, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`
	for idx, url := range urls {
		if _, err := tx.Exec(ctx, query, ids.New(), experienceID, url, idx); err != nil {
			return err
		}
	}
	return nil
}

func (r *ExperienceRepository) Create(ctx context.Context, experience models.Experience, mediaURLs []string) (models.Experience, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return models.Experience{}, translate(err, "begin create experience")
	}
	defer tx.Rollback(ctx)

	const query = `
		INSERT INTO experiences (
			id, title, description, city_id, category_id, partner_id,
			price_from_cents, currency, status, is_published, is_featured,
			location, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE, FALSE,
			CASE WHEN $10::float8 IS NULL THEN NULL
			     ELSE ST_SetSRID(ST_MakePoint($11::float8, $10::float8), 4326)::geography END,
			NOW(), NOW()
		)
	`
	var lat, lng *float64
	if experience.Location != nil {
		lat, lng = &experience.Location.Lat, &experience.Location.Lng
	}

	_, err = tx.Exec(ctx, query,
		experience.ID,
		experience.Title,
		experience.Description,
		experience.CityID,
		experience.CategoryID,
		experience.PartnerID,
		experience.PriceFromCents,
		experience.Currency,
		models.ExperienceStatusDraft,
		lat,
		lng,
	)
	if err != nil {
		return models.Experience{}, translate(err, "create experience")
	}

	if err := insertMedia(ctx, tx, experience.ID, mediaURLs); err != nil {
		return models.Experience{}, translate(err, "create experience media")
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Experience{}, translate(err, "commit create experience")
	}

	return r.GetByID(ctx, experience.ID)
}

func (r *ExperienceRepository) GetByID(ctx context.Context, id string) (models.Experience, error) {
	const query = `
		SELECT ` + experienceColumns + `
		FROM experiences WHERE id = $1 AND deleted_at IS NULL
	`
	experience, err := scanExperience(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Experience{}, apperr.NotFound("experience not found")
		}
		return models.Experience{}, translate(err, "get experience")
	}
	if err := r.attachMedia(ctx, &experience); err != nil {
		return models.Experience{}, err
	}
	return experience, nil
}

func (r *ExperienceRepository) GetPublished(ctx context.Context, id string) (models.Experience, error) {
	experience, err := r.GetByID(ctx, id)
	if err != nil {
		return models.Experience{}, err
	}
	if experience.Status != models.ExperienceStatusPublished {
		return models.Experience{}, apperr.NotFound("experience not found")
	}
	return experience, nil
}

// exists reports whether a non-deleted experience row is present, optionally
// scoped to an owning partner. Used to disambiguate a failed conditional
// update: missing row means NotFound, present row means wrong state.
func (r *ExperienceRepository) exists(ctx context.Context, id string, partnerID *string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM experiences
			WHERE id = $1 AND deleted_at IS NULL
			  AND ($2::text IS NULL OR partner_id = $2)
		)
	`
	var ok bool
	if err := r.pool.QueryRow(ctx, query, id, partnerID).Scan(&ok); err != nil {
		return false, translate(err, "experience exists")
	}
	return ok, nil
}

// transitionConflict turns a zero-row conditional update into the right
// taxonomy error.
func (r *ExperienceRepository) transitionConflict(ctx context.Context, id string, partnerID *string, wrongState string) error {
	ok, err := r.exists(ctx, id, partnerID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("experience not found")
	}
	return apperr.BadRequest(wrongState)
}

// UpdateDraftParams carries partner-editable fields. Nil pointers leave the
// column untouched; ClearCategory and ReplaceMedia make the two clearable
// aspects explicit.
type UpdateDraftParams struct {
	Title          *string
	Description    *string
	CityID         *string
	CategoryID     *string
	ClearCategory  bool
	PriceFromCents *int64
	Currency       *string
	MediaURLs      []string
	ReplaceMedia   bool
}

// UpdateDraft edits an owned draft experience. The row is locked for the
// duration of the transaction so a concurrent submit cannot interleave with
// the field writes.
func (r *ExperienceRepository) UpdateDraft(ctx context.Context, id string, partnerID string, params UpdateDraftParams) (models.Experience, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return models.Experience{}, translate(err, "begin update draft")
	}
	defer tx.Rollback(ctx)

	const lockQuery = `
		SELECT ` + experienceColumns + `
		FROM experiences
		WHERE id = $1 AND partner_id = $2 AND deleted_at IS NULL
		FOR UPDATE
	`
	current, err := scanExperience(tx.QueryRow(ctx, lockQuery, id, partnerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Experience{}, apperr.NotFound("experience not found")
		}
		return models.Experience{}, translate(err, "lock experience")
	}
	if current.Status != models.ExperienceStatusDraft {
		return models.Experience{}, apperr.BadRequest("only draft experiences can be edited")
	}

	if params.Title != nil {
		current.Title = *params.Title
	}
	if params.Description != nil {
		current.Description = params.Description
	}
	if params.CityID != nil {
		current.CityID = *params.CityID
	}
	if params.ClearCategory {
		current.CategoryID = nil
	} else if params.CategoryID != nil {
		current.CategoryID = params.CategoryID
	}
	if params.PriceFromCents != nil {
		current.PriceFromCents = params.PriceFromCents
	}
	if params.Currency != nil {
		current.Currency = params.Currency
	}

	const updateQuery = `
		UPDATE experiences
		SET title = $2, description = $3, city_id = $4, category_id = $5,
		    price_from_cents = $6, currency = $7, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL AND status = 'draft'
	`
	cmd, err := tx.Exec(ctx, updateQuery,
		current.ID,
		current.Title,
		current.Description,
		current.CityID,
		current.CategoryID,
		current.PriceFromCents,
		current.Currency,
	)
	if err != nil {
		return models.Experience{}, translate(err, "update draft")
	}
	if cmd.RowsAffected() == 0 {
		return models.Experience{}, apperr.BadRequest("only draft experiences can be edited")
	}

	if params.ReplaceMedia {
		if _, err := tx.Exec(ctx, `DELETE FROM experience_media WHERE experience_id = $1`, current.ID); err != nil {
			return models.Experience{}, translate(err, "clear media")
		}
		if err := insertMedia(ctx, tx, current.ID, params.MediaURLs); err != nil {
			return models.Experience{}, translate(err, "replace media")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Experience{}, translate(err, "commit update draft")
	}

	return r.GetByID(ctx, id)
}

// Submit moves an owned draft into the review queue. Single conditional
// update keyed on (id, owner, non-deleted, status=draft); exactly one of two
// racing submits can match.
func (r *ExperienceRepository) Submit(ctx context.Context, id string, partnerID string) (models.Experience, error) {
	const query = `
		UPDATE experiences
		SET status = 'pending_review', is_published = FALSE, rejection_reason = NULL,
		    updated_at = NOW()
		WHERE id = $1 AND partner_id = $2 AND deleted_at IS NULL AND status = 'draft'
		RETURNING ` + experienceColumns

	experience, err := scanExperience(r.pool.QueryRow(ctx, query, id, partnerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Experience{}, r.transitionConflict(ctx, id, &partnerID,
				"only draft experiences can be submitted")
		}
		return models.Experience{}, translate(err, "submit experience")
	}
	if err := r.attachMedia(ctx, &experience); err != nil {
		return models.Experience{}, err
	}
	return experience, nil
}

func (r *ExperienceRepository) Approve(ctx context.Context, id string) (models.Experience, error) {
	const query = `
		UPDATE experiences
		SET status = 'published', is_published = TRUE, is_featured = TRUE,
		    published_at = NOW(), rejection_reason = NULL, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL AND status = 'pending_review'
		RETURNING ` + experienceColumns

	experience, err := scanExperience(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Experience{}, r.transitionConflict(ctx, id, nil,
				"only pending_review experiences can be approved")
		}
		return models.Experience{}, translate(err, "approve experience")
	}
	if err := r.attachMedia(ctx, &experience); err != nil {
		return models.Experience{}, err
	}
	return experience, nil
}

func (r *ExperienceRepository) Reject(ctx context.Context, id string, reason *string) (models.Experience, error) {
	const query = `
		UPDATE experiences
		SET status = 'draft', is_published = FALSE, is_featured = FALSE,
		    published_at = NULL, rejection_reason = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL AND status = 'pending_review'
		RETURNING ` + experienceColumns

	experience, err := scanExperience(r.pool.QueryRow(ctx, query, id, reason))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Experience{}, r.transitionConflict(ctx, id, nil,
				"only pending_review experiences can be rejected")
		}
		return models.Experience{}, translate(err, "reject experience")
	}
	if err := r.attachMedia(ctx, &experience); err != nil {
		return models.Experience{}, err
	}
	return experience, nil
}

// Publish is the direct admin path that bypasses the review queue
// (draft or unpublished straight to published).
func (r *ExperienceRepository) Publish(ctx context.Context, id string) (models.Experience, error) {
	const query = `
		UPDATE experiences
		SET status = 'published', is_published = TRUE, published_at = NOW(),
		    rejection_reason = NULL, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL AND status IN ('draft', 'unpublished')
		RETURNING ` + experienceColumns

	experience, err := scanExperience(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Experience{}, r.transitionConflict(ctx, id, nil,
				"only draft or unpublished experiences can be published directly")
		}
		return models.Experience{}, translate(err, "publish experience")
	}
	if err := r.attachMedia(ctx, &experience); err != nil {
		return models.Experience{}, err
	}
	return experience, nil
}

func (r *ExperienceRepository) Unpublish(ctx context.Context, id string) (models.Experience, error) {
	const query = `
		UPDATE experiences
		SET status = 'unpublished', is_published = FALSE, published_at = NULL,
		    updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL AND status = 'published'
		RETURNING ` + experienceColumns

	experience, err := scanExperience(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Experience{}, r.transitionConflict(ctx, id, nil,
				"only published experiences can be unpublished")
		}
		return models.Experience{}, translate(err, "unpublish experience")
	}
	if err := r.attachMedia(ctx, &experience); err != nil {
		return models.Experience{}, err
	}
	return experience, nil
}

func (r *ExperienceRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `
		UPDATE experiences SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return translate(err, "soft delete experience")
	}
	if cmd.RowsAffected() == 0 {
		return apperr.NotFound("experience not found")
	}
	return nil
}

type ListPublishedParams struct {
	CityID       *string
	CategoryID   *string
	FeaturedOnly bool
	Limit        int
	Offset       int
}

func (r *ExperienceRepository) ListPublished(ctx context.Context, params ListPublishedParams) ([]models.Experience, int, error) {
	const query = `
		SELECT ` + experienceColumns + `
		FROM experiences
		WHERE deleted_at IS NULL AND status = 'published'
		  AND ($1::text IS NULL OR city_id = $1)
		  AND ($2::text IS NULL OR category_id = $2)
		  AND (NOT $3 OR is_featured = TRUE)
		ORDER BY updated_at DESC
		LIMIT $4 OFFSET $5
	`
	const countQuery = `
		SELECT COUNT(*)
		FROM experiences
		WHERE deleted_at IS NULL AND status = 'published'
		  AND ($1::text IS NULL OR city_id = $1)
		  AND ($2::text IS NULL OR category_id = $2)
		  AND (NOT $3 OR is_featured = TRUE)
	`
	return r.list(ctx, query, countQuery,
		params.CityID, params.CategoryID, params.FeaturedOnly, params.Limit, params.Offset)
}

type ListByPartnerParams struct {
	PartnerID string
	Status    *models.ExperienceStatus
	Limit     int
	Offset    int
}

func (r *ExperienceRepository) ListByPartner(ctx context.Context, params ListByPartnerParams) ([]models.Experience, int, error) {
	const query = `
		SELECT ` + experienceColumns + `
		FROM experiences
		WHERE deleted_at IS NULL AND partner_id = $1
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY updated_at DESC
		LIMIT $3 OFFSET $4
	`
	const countQuery = `
		SELECT COUNT(*)
		FROM experiences
		WHERE deleted_at IS NULL AND partner_id = $1
		  AND ($2::text IS NULL OR status = $2)
	`
	return r.list(ctx, query, countQuery,
		params.PartnerID, params.Status, params.Limit, params.Offset)
}

func (r *ExperienceRepository) ListPending(ctx context.Context, limit, offset int) ([]models.Experience, int, error) {
	const query = `
		SELECT ` + experienceColumns + `
		FROM experiences
		WHERE deleted_at IS NULL AND status = 'pending_review'
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2
	`
	const countQuery = `
		SELECT COUNT(*) FROM experiences
		WHERE deleted_at IS NULL AND status = 'pending_review'
	`
	return r.list(ctx, query, countQuery, limit, offset)
}

type ListAdminParams struct {
	CityID     *string
	CategoryID *string
	Query      string
	Limit      int
	Offset     int
}

// ListAdmin includes every non-deleted status.
func (r *ExperienceRepository) ListAdmin(ctx context.Context, params ListAdminParams) ([]models.Experience, int, error) {
	const query = `
		SELECT ` + experienceColumns + `
		FROM experiences
		WHERE deleted_at IS NULL
		  AND ($1::text IS NULL OR city_id = $1)
		  AND ($2::text IS NULL OR category_id = $2)
		  AND ($3 = '' OR title ILIKE '%' || $3 || '%')
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`
	const countQuery = `
		SELECT COUNT(*)
		FROM experiences
		WHERE deleted_at IS NULL
		  AND ($1::text IS NULL OR city_id = $1)
		  AND ($2::text IS NULL OR category_id = $2)
		  AND ($3 = '' OR title ILIKE '%' || $3 || '%')
	`
	return r.list(ctx, query, countQuery,
		params.CityID, params.CategoryID, params.Query, params.Limit, params.Offset)
}

// list runs a select/count pair sharing the same filter args; the count query
// receives all args except the trailing limit/offset.
func (r *ExperienceRepository) list(ctx context.Context, query, countQuery string, args ...any) ([]models.Experience, int, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, translate(err, "list experiences")
	}
	defer rows.Close()

	var experiences []models.Experience
	var expIDs []string
	for rows.Next() {
		experience, err := scanExperience(rows)
		if err != nil {
			return nil, 0, translate(err, "scan experience")
		}
		experiences = append(experiences, experience)
		expIDs = append(expIDs, experience.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, translate(err, "list experiences")
	}

	media, err := r.loadMedia(ctx, expIDs)
	if err != nil {
		return nil, 0, err
	}
	for i := range experiences {
		experiences[i].Media = media[experiences[i].ID]
	}

	countArgs := args[:len(args)-2]
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, translate(err, "count experiences")
	}

	return experiences, total, nil
}

// AdminUpdateParams mirrors UpdateDraftParams but is status-independent;
// admins may correct fields on any non-deleted experience.
type AdminUpdateParams = UpdateDraftParams

func (r *ExperienceRepository) UpdateAdmin(ctx context.Context, id string, params AdminUpdateParams) (models.Experience, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return models.Experience{}, translate(err, "begin admin update")
	}
	defer tx.Rollback(ctx)

	const lockQuery = `
		SELECT ` + experienceColumns + `
		FROM experiences
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE
	`
	current, err := scanExperience(tx.QueryRow(ctx, lockQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Experience{}, apperr.NotFound("experience not found")
		}
		return models.Experience{}, translate(err, "lock experience")
	}

	if params.Title != nil {
		current.Title = *params.Title
	}
	if params.Description != nil {
		current.Description = params.Description
	}
	if params.CityID != nil {
		current.CityID = *params.CityID
	}
	if params.ClearCategory {
		current.CategoryID = nil
	} else if params.CategoryID != nil {
		current.CategoryID = params.CategoryID
	}
	if params.PriceFromCents != nil {
		current.PriceFromCents = params.PriceFromCents
	}
	if params.Currency != nil {
		current.Currency = params.Currency
	}

	const updateQuery = `
		UPDATE experiences
		SET title = $2, description = $3, city_id = $4, category_id = $5,
		    price_from_cents = $6, currency = $7, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	if _, err := tx.Exec(ctx, updateQuery,
		current.ID,
		current.Title,
		current.Description,
		current.CityID,
		current.CategoryID,
		current.PriceFromCents,
		current.Currency,
	); err != nil {
		return models.Experience{}, translate(err, "admin update experience")
	}

	if params.ReplaceMedia {
		if _, err := tx.Exec(ctx, `DELETE FROM experience_media WHERE experience_id = $1`, current.ID); err != nil {
			return models.Experience{}, translate(err, "clear media")
		}
		if err := insertMedia(ctx, tx, current.ID, params.MediaURLs); err != nil {
			return models.Experience{}, translate(err, "replace media")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Experience{}, translate(err, "commit admin update")
	}

	return r.GetByID(ctx, id)
}
