package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"wayfare/api/internal/apperr"
	"wayfare/api/internal/models"
	"wayfare/api/internal/service"
)

type countryResponse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	ISOCode2 string  `json:"isoCode2"`
	ISOCode3 *string `json:"isoCode3"`
}

func toCountryResponse(c models.Country) countryResponse {
	return countryResponse{ID: c.ID, Name: c.Name, ISOCode2: c.ISOCode2, ISOCode3: c.ISOCode3}
}

type cityResponse struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	CountryID    string           `json:"countryId"`
	Country      *countryResponse `json:"country,omitempty"`
	HeroImageURL *string          `json:"heroImageUrl"`
	Location     *geoPointPayload `json:"location"`
}

func toCityResponse(city models.City) cityResponse {
	resp := cityResponse{
		ID:           city.ID,
		Name:         city.Name,
		CountryID:    city.CountryID,
		HeroImageURL: city.HeroImageURL,
	}
	if city.Country != nil {
		country := toCountryResponse(*city.Country)
		resp.Country = &country
	}
	if city.Location != nil {
		resp.Location = &geoPointPayload{Lat: city.Location.Lat, Lng: city.Location.Lng}
	}
	return resp
}

func (h HandlerSet) ListCountries(c *gin.Context) {
	countries, err := h.catalogService.ListCountries(c.Request.Context())
	if err != nil {
		sendError(c, err)
		return
	}
	out := make([]countryResponse, 0, len(countries))
	for _, country := range countries {
		out = append(out, toCountryResponse(country))
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

type createCountryRequest struct {
	Name     string  `json:"name" binding:"required"`
	ISOCode2 string  `json:"isoCode2" binding:"required,len=2"`
	ISOCode3 *string `json:"isoCode3"`
}

func (h HandlerSet) CreateCountry(c *gin.Context) {
	var req createCountryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendBindError(c, err)
		return
	}

	country, err := h.catalogService.CreateCountry(c.Request.Context(), service.CreateCountryInput{
		Name:     req.Name,
		ISOCode2: req.ISOCode2,
		ISOCode3: req.ISOCode3,
	})
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCountryResponse(country))
}

func (h HandlerSet) ListCities(c *gin.Context) {
	cities, err := h.catalogService.ListCities(c.Request.Context())
	if err != nil {
		sendError(c, err)
		return
	}
	out := make([]cityResponse, 0, len(cities))
	for _, city := range cities {
		out = append(out, toCityResponse(city))
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

type createCityRequest struct {
	Name         string           `json:"name" binding:"required"`
	CountryID    string           `json:"countryId" binding:"required"`
	HeroImageURL *string          `json:"heroImageUrl"`
	Location     *geoPointPayload `json:"location"`
}

func (h HandlerSet) CreateCity(c *gin.Context) {
	var req createCityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendBindError(c, err)
		return
	}

	input := service.CreateCityInput{
		Name:         req.Name,
		CountryID:    req.CountryID,
		HeroImageURL: req.HeroImageURL,
	}
	if req.Location != nil {
		input.Location = &models.GeoPoint{Lat: req.Location.Lat, Lng: req.Location.Lng}
	}

	city, err := h.catalogService.CreateCity(c.Request.Context(), input)
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCityResponse(city))
}

func (h HandlerSet) NearbyCities(c *gin.Context) {
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lng, lngErr := strconv.ParseFloat(c.Query("lng"), 64)
	if latErr != nil || lngErr != nil {
		sendError(c, apperr.Validation(
			apperr.FieldError{Field: "lat", Problem: "required number"},
			apperr.FieldError{Field: "lng", Problem: "required number"},
		))
		return
	}

	radius, err := strconv.Atoi(c.DefaultQuery("radiusMeters", "10000"))
	if err != nil {
		sendError(c, apperr.Validation(apperr.FieldError{Field: "radiusMeters", Problem: "must be an integer"}))
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	cities, err := h.catalogService.NearbyCities(c.Request.Context(), service.NearbyCitiesInput{
		Lat:          lat,
		Lng:          lng,
		RadiusMeters: radius,
		Limit:        limit,
	})
	if err != nil {
		sendError(c, err)
		return
	}

	type nearbyCityResponse struct {
		cityResponse
		DistanceMeters float64 `json:"distanceMeters"`
	}
	out := make([]nearbyCityResponse, 0, len(cities))
	for _, city := range cities {
		out = append(out, nearbyCityResponse{
			cityResponse:   toCityResponse(city.City),
			DistanceMeters: city.DistanceMeters,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

type categoryResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (h HandlerSet) ListCategories(c *gin.Context) {
	categories, err := h.catalogService.ListCategories(c.Request.Context())
	if err != nil {
		sendError(c, err)
		return
	}
	out := make([]categoryResponse, 0, len(categories))
	for _, category := range categories {
		out = append(out, categoryResponse{ID: category.ID, Name: category.Name, Slug: category.Slug})
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

type createCategoryRequest struct {
	Name string `json:"name" binding:"required"`
	Slug string `json:"slug" binding:"required"`
}

func (h HandlerSet) CreateCategory(c *gin.Context) {
	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendBindError(c, err)
		return
	}

	category, err := h.catalogService.CreateCategory(c.Request.Context(), service.CreateCategoryInput{
		Name: req.Name,
		Slug: req.Slug,
	})
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusCreated, categoryResponse{ID: category.ID, Name: category.Name, Slug: category.Slug})
}
