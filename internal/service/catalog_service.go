package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"wayfare/api/internal/apperr"
	"wayfare/api/internal/cache"
	"wayfare/api/internal/config"
	"wayfare/api/internal/ids"
	"wayfare/api/internal/models"
)

// ReferenceCache is the cache surface the catalog component needs.
type ReferenceCache interface {
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any)
	Invalidate(ctx context.Context, keys ...string)
}

type CatalogStore interface {
	CreateCountry(ctx context.Context, country models.Country) error
	ListCountries(ctx context.Context) ([]models.Country, error)
	CreateCity(ctx context.Context, city models.City) error
	ListCities(ctx context.Context) ([]models.City, error)
	GetCity(ctx context.Context, id string) (models.City, error)
	NearbyCities(ctx context.Context, point models.GeoPoint, radiusMeters int, limit int) ([]models.NearbyCity, error)
	CreateCategory(ctx context.Context, category models.Category) error
	ListCategories(ctx context.Context) ([]models.Category, error)
}

// CatalogService serves reference data through a read-through redis cache;
// admin writes invalidate the affected key. The cache is never authoritative.
type CatalogService struct {
	catalog CatalogStore
	cache   ReferenceCache
	cfg     *config.AppConfig
	log     zerolog.Logger
}

func NewCatalogService(catalog CatalogStore, catalogCache ReferenceCache, cfg *config.AppConfig, log zerolog.Logger) *CatalogService {
	return &CatalogService{
		catalog: catalog,
		cache:   catalogCache,
		cfg:     cfg,
		log:     log,
	}
}

func (s *CatalogService) ListCountries(ctx context.Context) ([]models.Country, error) {
	var cached []models.Country
	if ok := s.cache.Get(ctx, cache.KeyCountries, &cached); ok {
		return cached, nil
	}

	countries, err := s.catalog.ListCountries(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, cache.KeyCountries, countries)
	return countries, nil
}

type CreateCountryInput struct {
	Name     string
	ISOCode2 string
	ISOCode3 *string
}

func (s *CatalogService) CreateCountry(ctx context.Context, input CreateCountryInput) (models.Country, error) {
	if strings.TrimSpace(input.Name) == "" {
		return models.Country{}, apperr.Validation(apperr.FieldError{Field: "name", Problem: "required"})
	}
	if len(input.ISOCode2) != 2 {
		return models.Country{}, apperr.Validation(apperr.FieldError{Field: "isoCode2", Problem: "must be 2 characters"})
	}

	country := models.Country{
		ID:       ids.New(),
		Name:     strings.TrimSpace(input.Name),
		ISOCode2: strings.ToUpper(input.ISOCode2),
	}
	if input.ISOCode3 != nil {
		upper := strings.ToUpper(*input.ISOCode3)
		country.ISOCode3 = &upper
	}

	if err := s.catalog.CreateCountry(ctx, country); err != nil {
		return models.Country{}, err
	}
	s.cache.Invalidate(ctx, cache.KeyCountries)
	return country, nil
}

func (s *CatalogService) ListCities(ctx context.Context) ([]models.City, error) {
	var cached []models.City
	if ok := s.cache.Get(ctx, cache.KeyCities, &cached); ok {
		return cached, nil
	}

	cities, err := s.catalog.ListCities(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, cache.KeyCities, cities)
	return cities, nil
}

type CreateCityInput struct {
	Name         string
	CountryID    string
	HeroImageURL *string
	Location     *models.GeoPoint
}

func (s *CatalogService) CreateCity(ctx context.Context, input CreateCityInput) (models.City, error) {
	if strings.TrimSpace(input.Name) == "" {
		return models.City{}, apperr.Validation(apperr.FieldError{Field: "name", Problem: "required"})
	}
	if input.CountryID == "" {
		return models.City{}, apperr.Validation(apperr.FieldError{Field: "countryId", Problem: "required"})
	}

	city := models.City{
		ID:           ids.New(),
		Name:         strings.TrimSpace(input.Name),
		CountryID:    input.CountryID,
		HeroImageURL: input.HeroImageURL,
		Location:     input.Location,
	}
	if err := s.catalog.CreateCity(ctx, city); err != nil {
		return models.City{}, err
	}
	s.cache.Invalidate(ctx, cache.KeyCities)
	return s.catalog.GetCity(ctx, city.ID)
}

type NearbyCitiesInput struct {
	Lat          float64
	Lng          float64
	RadiusMeters int
	Limit        int
}

func (s *CatalogService) NearbyCities(ctx context.Context, input NearbyCitiesInput) ([]models.NearbyCity, error) {
	if input.Lat < -90 || input.Lat > 90 {
		return nil, apperr.Validation(apperr.FieldError{Field: "lat", Problem: "must be between -90 and 90"})
	}
	if input.Lng < -180 || input.Lng > 180 {
		return nil, apperr.Validation(apperr.FieldError{Field: "lng", Problem: "must be between -180 and 180"})
	}
	if input.RadiusMeters < 1 || input.RadiusMeters > s.cfg.Catalog.NearbyMaxMeter {
		return nil, apperr.Validation(apperr.FieldError{Field: "radiusMeters", Problem: "out of range"})
	}

	limit := input.Limit
	if limit < 1 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	return s.catalog.NearbyCities(ctx, models.GeoPoint{Lat: input.Lat, Lng: input.Lng}, input.RadiusMeters, limit)
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	var cached []models.Category
	if ok := s.cache.Get(ctx, cache.KeyCategories, &cached); ok {
		return cached, nil
	}

	categories, err := s.catalog.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, cache.KeyCategories, categories)
	return categories, nil
}

type CreateCategoryInput struct {
	Name string
	Slug string
}

func (s *CatalogService) CreateCategory(ctx context.Context, input CreateCategoryInput) (models.Category, error) {
	if strings.TrimSpace(input.Name) == "" {
		return models.Category{}, apperr.Validation(apperr.FieldError{Field: "name", Problem: "required"})
	}
	if strings.TrimSpace(input.Slug) == "" {
		return models.Category{}, apperr.Validation(apperr.FieldError{Field: "slug", Problem: "required"})
	}

	category := models.Category{
		ID:   ids.New(),
		Name: strings.TrimSpace(input.Name),
		Slug: strings.ToLower(strings.TrimSpace(input.Slug)),
	}
	if err := s.catalog.CreateCategory(ctx, category); err != nil {
		return models.Category{}, err
	}
	s.cache.Invalidate(ctx, cache.KeyCategories)
	return category, nil
}

// WarmCache re-populates the reference-data keys; used by the scheduler.
func (s *CatalogService) WarmCache(ctx context.Context) {
	s.cache.Invalidate(ctx, cache.KeyCountries, cache.KeyCities, cache.KeyCategories)
	if _, err := s.ListCountries(ctx); err != nil {
		s.log.Warn().Err(err).Msg("warm countries cache failed")
	}
	if _, err := s.ListCities(ctx); err != nil {
		s.log.Warn().Err(err).Msg("warm cities cache failed")
	}
	if _, err := s.ListCategories(ctx); err != nil {
		s.log.Warn().Err(err).Msg("warm categories cache failed")
	}
}
