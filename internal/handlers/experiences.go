package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"wayfare/api/internal/apperr"
	"wayfare/api/internal/middleware"
	"wayfare/api/internal/models"
	"wayfare/api/internal/repository"
	"wayfare/api/internal/service"
)

type geoPointPayload struct {
	Lat float64 `json:"lat" binding:"min=-90,max=90"`
	Lng float64 `json:"lng" binding:"min=-180,max=180"`
}

type experienceMediaResponse struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	SortOrder int    `json:"sortOrder"`
}

type experienceResponse struct {
	ID              string                    `json:"id"`
	Title           string                    `json:"title"`
	Description     *string                   `json:"description"`
	CityID          string                    `json:"cityId"`
	CategoryID      *string                   `json:"categoryId"`
	PartnerID       *string                   `json:"partnerId"`
	Status          string                    `json:"status"`
	IsPublished     bool                      `json:"isPublished"`
	IsFeatured      bool                      `json:"isFeatured"`
	PriceFromCents  *int64                    `json:"priceFromCents"`
	Currency        *string                   `json:"currency"`
	RatingAvg       float64                   `json:"ratingAvg"`
	RatingCount     int                       `json:"ratingCount"`
	RejectionReason *string                   `json:"rejectionReason,omitempty"`
	Location        *geoPointPayload          `json:"location"`
	Media           []experienceMediaResponse `json:"media"`
	PublishedAt     *string                   `json:"publishedAt"`
	CreatedAt       string                    `json:"createdAt"`
	UpdatedAt       string                    `json:"updatedAt"`
}

func toExperienceResponse(e models.Experience) experienceResponse {
	resp := experienceResponse{
		ID:              e.ID,
		Title:           e.Title,
		Description:     e.Description,
		CityID:          e.CityID,
		CategoryID:      e.CategoryID,
		PartnerID:       e.PartnerID,
		Status:          string(e.Status),
		IsPublished:     e.IsPublished,
		IsFeatured:      e.IsFeatured,
		PriceFromCents:  e.PriceFromCents,
		Currency:        e.Currency,
		RatingAvg:       e.RatingAvg,
		RatingCount:     e.RatingCount,
		RejectionReason: e.RejectionReason,
		Media:           make([]experienceMediaResponse, 0, len(e.Media)),
		CreatedAt:       e.CreatedAt.Format(timeFormat),
		UpdatedAt:       e.UpdatedAt.Format(timeFormat),
	}
	if e.Location != nil {
		resp.Location = &geoPointPayload{Lat: e.Location.Lat, Lng: e.Location.Lng}
	}
	if e.PublishedAt != nil {
		published := e.PublishedAt.Format(timeFormat)
		resp.PublishedAt = &published
	}
	for _, m := range e.Media {
		resp.Media = append(resp.Media, experienceMediaResponse{ID: m.ID, URL: m.URL, SortOrder: m.SortOrder})
	}
	return resp
}

type pageMetaResponse struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasMore bool `json:"hasMore"`
}

func toPageMeta(meta service.PageMeta) pageMetaResponse {
	return pageMetaResponse{Page: meta.Page, Limit: meta.Limit, Total: meta.Total, HasMore: meta.HasMore}
}

func experienceListResponse(items []models.Experience, meta service.PageMeta) gin.H {
	out := make([]experienceResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toExperienceResponse(item))
	}
	return gin.H{"items": out, "meta": toPageMeta(meta)}
}

func pageFromQuery(c *gin.Context) service.PageRequest {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return service.PageRequest{Page: page, Limit: limit}
}

func optionalQuery(c *gin.Context, key string) *string {
	if val := c.Query(key); val != "" {
		return &val
	}
	return nil
}

func (h HandlerSet) ListPublicExperiences(c *gin.Context) {
	input := service.PublicListInput{
		CityID:      optionalQuery(c, "cityId"),
		CategoryID:  optionalQuery(c, "categoryId"),
		PageRequest: pageFromQuery(c),
	}
	if raw := c.Query("featured"); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			sendError(c, apperr.Validation(apperr.FieldError{Field: "featured", Problem: "must be a boolean"}))
			return
		}
		input.Featured = &featured
	}

	items, meta, err := h.workflowService.ListPublic(c.Request.Context(), input)
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, experienceListResponse(items, meta))
}

func (h HandlerSet) GetPublicExperience(c *gin.Context) {
	experience, err := h.workflowService.GetPublic(c.Request.Context(), c.Param("id"))
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, toExperienceResponse(experience))
}

type createExperienceRequest struct {
	Title          string           `json:"title" binding:"required"`
	Description    *string          `json:"description"`
	CityID         string           `json:"cityId" binding:"required"`
	CategoryID     *string          `json:"categoryId"`
	PriceFromCents *int64           `json:"priceFromCents"`
	Currency       *string          `json:"currency"`
	Location       *geoPointPayload `json:"location"`
	MediaURLs      []string         `json:"mediaUrls"`
}

func (h HandlerSet) CreateExperience(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		sendError(c, apperr.Unauthorized("authentication required"))
		return
	}

	var req createExperienceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendBindError(c, err)
		return
	}

	input := service.CreateExperienceInput{
		Title:          req.Title,
		Description:    req.Description,
		CityID:         req.CityID,
		CategoryID:     req.CategoryID,
		PriceFromCents: req.PriceFromCents,
		Currency:       req.Currency,
		MediaURLs:      req.MediaURLs,
	}
	if req.Location != nil {
		input.Location = &models.GeoPoint{Lat: req.Location.Lat, Lng: req.Location.Lng}
	}

	experience, err := h.workflowService.Create(c.Request.Context(), actor, input)
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toExperienceResponse(experience))
}

type editExperienceRequest struct {
	Title          *string  `json:"title"`
	Description    *string  `json:"description"`
	CityID         *string  `json:"cityId"`
	CategoryID     *string  `json:"categoryId"`
	ClearCategory  bool     `json:"clearCategory"`
	PriceFromCents *int64   `json:"priceFromCents"`
	Currency       *string  `json:"currency"`
	MediaURLs      []string `json:"mediaUrls"`
	ReplaceMedia   bool     `json:"replaceMedia"`
}

func (req editExperienceRequest) toParams() repository.UpdateDraftParams {
	return repository.UpdateDraftParams{
		Title:          req.Title,
		Description:    req.Description,
		CityID:         req.CityID,
		CategoryID:     req.CategoryID,
		ClearCategory:  req.ClearCategory,
		PriceFromCents: req.PriceFromCents,
		Currency:       req.Currency,
		MediaURLs:      req.MediaURLs,
		ReplaceMedia:   req.ReplaceMedia,
	}
}

func (h HandlerSet) EditExperience(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		sendError(c, apperr.Unauthorized("authentication required"))
		return
	}

	var req editExperienceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendBindError(c, err)
		return
	}

	experience, err := h.workflowService.Edit(c.Request.Context(), actor, c.Param("id"), req.toParams())
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, toExperienceResponse(experience))
}

func (h HandlerSet) SubmitExperience(c *gin.Context) {
	h.transition(c, h.workflowService.Submit)
}

func (h HandlerSet) ApproveExperience(c *gin.Context) {
	h.transition(c, h.workflowService.Approve)
}

func (h HandlerSet) PublishExperience(c *gin.Context) {
	h.transition(c, h.workflowService.Publish)
}

func (h HandlerSet) UnpublishExperience(c *gin.Context) {
	h.transition(c, h.workflowService.Unpublish)
}

func (h HandlerSet) transition(c *gin.Context, op func(ctx context.Context, actor service.AuthContext, id string) (models.Experience, error)) {
	actor, ok := middleware.Actor(c)
	if !ok {
		sendError(c, apperr.Unauthorized("authentication required"))
		return
	}

	experience, err := op(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, toExperienceResponse(experience))
}

type rejectExperienceRequest struct {
	Reason *string `json:"reason"`
}

func (h HandlerSet) RejectExperience(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		sendError(c, apperr.Unauthorized("authentication required"))
		return
	}

	var req rejectExperienceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendBindError(c, err)
		return
	}

	experience, err := h.workflowService.Reject(c.Request.Context(), actor, c.Param("id"), req.Reason)
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, toExperienceResponse(experience))
}

func (h HandlerSet) DeleteExperience(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		sendError(c, apperr.Unauthorized("authentication required"))
		return
	}

	if err := h.workflowService.SoftDelete(c.Request.Context(), actor, c.Param("id")); err != nil {
		sendError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) ListOwnExperiences(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		sendError(c, apperr.Unauthorized("authentication required"))
		return
	}

	var status *models.ExperienceStatus
	if raw := c.Query("status"); raw != "" {
		parsed := models.ExperienceStatus(raw)
		if !models.ValidExperienceStatus(parsed) {
			sendError(c, apperr.Validation(apperr.FieldError{Field: "status", Problem: "unknown status"}))
			return
		}
		status = &parsed
	}

	items, meta, err := h.workflowService.ListOwn(c.Request.Context(), actor, status, pageFromQuery(c))
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, experienceListResponse(items, meta))
}
