package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"wayfare/api/internal/apperr"
	"wayfare/api/internal/models"
)

// CatalogRepository serves the shared read-mostly reference data: countries,
// cities and categories. Mutations are admin-only and rare.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func (r *CatalogRepository) CreateCountry(ctx context.Context, country models.Country) error {
	const query = `
		INSERT INTO countries (id, name, iso_code2, iso_code3, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
	`
	_, err := r.pool.Exec(ctx, query, country.ID, country.Name, country.ISOCode2, country.ISOCode3)
	return translate(err, "create country")
}

func (r *CatalogRepository) ListCountries(ctx context.Context) ([]models.Country, error) {
	const query = `
		SELECT id, name, iso_code2, iso_code3, deleted_at, created_at, updated_at
		FROM countries WHERE deleted_at IS NULL
		ORDER BY name ASC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, translate(err, "list countries")
	}
	defer rows.Close()

	var countries []models.Country
	for rows.Next() {
		var c models.Country
		if err := rows.Scan(&c.ID, &c.Name, &c.ISOCode2, &c.ISOCode3, &c.DeletedAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, translate(err, "scan country")
		}
		countries = append(countries, c)
	}
	return countries, rows.Err()
}

func (r *CatalogRepository) CreateCity(ctx context.Context, city models.City) error {
	const query = `
		INSERT INTO cities (id, name, country_id, hero_image_url, location, created_at, updated_at)
		VALUES (
			$1, $2, $3, $4,
			CASE WHEN $5::float8 IS NULL THEN NULL
			     ELSE ST_SetSRID(ST_MakePoint($6::float8, $5::float8), 4326)::geography END,
			NOW(), NOW()
		)
	`
	var lat, lng *float64
	if city.Location != nil {
		lat, lng = &city.Location.Lat, &city.Location.Lng
	}
	_, err := r.pool.Exec(ctx, query, city.ID, city.Name, city.CountryID, city.HeroImageURL, lat, lng)
	return translate(err, "create city")
}

const cityColumns = `
	c.id, c.name, c.country_id, c.hero_image_url,
	CASE WHEN c.location IS NULL THEN NULL ELSE ST_Y(c.location::geometry) END,
	CASE WHEN c.location IS NULL THEN NULL ELSE ST_X(c.location::geometry) END,
	c.deleted_at, c.created_at, c.updated_at,
	co.id, co.name, co.iso_code2, co.iso_code3, co.deleted_at, co.created_at, co.updated_at
`

func scanCity(row pgx.Row) (models.City, error) {
	var (
		c        models.City
		co       models.Country
		lat, lng *float64
	)
	err := row.Scan(
		&c.ID, &c.Name, &c.CountryID, &c.HeroImageURL,
		&lat, &lng,
		&c.DeletedAt, &c.CreatedAt, &c.UpdatedAt,
		&co.ID, &co.Name, &co.ISOCode2, &co.ISOCode3, &co.DeletedAt, &co.CreatedAt, &co.UpdatedAt,
	)
	if err != nil {
		return models.City{}, err
	}
	if lat != nil && lng != nil {
		c.Location = &models.GeoPoint{Lat: *lat, Lng: *lng}
	}
	c.Country = &co
	return c, nil
}

func (r *CatalogRepository) ListCities(ctx context.Context) ([]models.City, error) {
	const query = `
		SELECT ` + cityColumns + `
		FROM cities c
		JOIN countries co ON co.id = c.country_id
		WHERE c.deleted_at IS NULL
		ORDER BY c.name ASC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, translate(err, "list cities")
	}
	defer rows.Close()

	var cities []models.City
	for rows.Next() {
		city, err := scanCity(rows)
		if err != nil {
			return nil, translate(err, "scan city")
		}
		cities = append(cities, city)
	}
	return cities, rows.Err()
}

func (r *CatalogRepository) CityExists(ctx context.Context, id string) (bool, error) {
	const query = `
		SELECT EXISTS (SELECT 1 FROM cities WHERE id = $1 AND deleted_at IS NULL)
	`
	var ok bool
	if err := r.pool.QueryRow(ctx, query, id).Scan(&ok); err != nil {
		return false, translate(err, "city exists")
	}
	return ok, nil
}

// NearbyCities runs the within-radius geosearch against the geography index.
func (r *CatalogRepository) NearbyCities(ctx context.Context, point models.GeoPoint, radiusMeters int, limit int) ([]models.NearbyCity, error) {
	const query = `
		SELECT ` + cityColumns + `,
		       ST_Distance(c.location, ST_SetSRID(ST_MakePoint($2, $1), 4326)::geography)
		FROM cities c
		JOIN countries co ON co.id = c.country_id
		WHERE c.deleted_at IS NULL
		  AND c.location IS NOT NULL
		  AND ST_DWithin(c.location, ST_SetSRID(ST_MakePoint($2, $1), 4326)::geography, $3)
		ORDER BY ST_Distance(c.location, ST_SetSRID(ST_MakePoint($2, $1), 4326)::geography) ASC
		LIMIT $4
	`
	rows, err := r.pool.Query(ctx, query, point.Lat, point.Lng, radiusMeters, limit)
	if err != nil {
		return nil, translate(err, "nearby cities")
	}
	defer rows.Close()

	var cities []models.NearbyCity
	for rows.Next() {
		var (
			c        models.City
			co       models.Country
			lat, lng *float64
			distance float64
		)
		if err := rows.Scan(
			&c.ID, &c.Name, &c.CountryID, &c.HeroImageURL,
			&lat, &lng,
			&c.DeletedAt, &c.CreatedAt, &c.UpdatedAt,
			&co.ID, &co.Name, &co.ISOCode2, &co.ISOCode3, &co.DeletedAt, &co.CreatedAt, &co.UpdatedAt,
			&distance,
		); err != nil {
			return nil, translate(err, "scan nearby city")
		}
		if lat != nil && lng != nil {
			c.Location = &models.GeoPoint{Lat: *lat, Lng: *lng}
		}
		c.Country = &co
		cities = append(cities, models.NearbyCity{City: c, DistanceMeters: distance})
	}
	return cities, rows.Err()
}

func (r *CatalogRepository) CreateCategory(ctx context.Context, category models.Category) error {
	const query = `
		INSERT INTO categories (id, name, slug, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
	`
	_, err := r.pool.Exec(ctx, query, category.ID, category.Name, category.Slug)
	return translate(err, "create category")
}

func (r *CatalogRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	const query = `
		SELECT id, name, slug, deleted_at, created_at, updated_at
		FROM categories WHERE deleted_at IS NULL
		ORDER BY name ASC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, translate(err, "list categories")
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.DeletedAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, translate(err, "scan category")
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *CatalogRepository) GetCity(ctx context.Context, id string) (models.City, error) {
	const query = `
		SELECT ` + cityColumns + `
		FROM cities c
		JOIN countries co ON co.id = c.country_id
		WHERE c.id = $1 AND c.deleted_at IS NULL
	`
	city, err := scanCity(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.City{}, apperr.NotFound("city not found")
		}
		return models.City{}, translate(err, "get city")
	}
	return city, nil
}
