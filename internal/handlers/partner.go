package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wayfare/api/internal/apperr"
	"wayfare/api/internal/middleware"
	"wayfare/api/internal/models"
)

type partnerResponse struct {
	ID        string `json:"id"`
	OwnerID   string `json:"ownerId"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
}

func toPartnerResponse(p models.Partner) partnerResponse {
	return partnerResponse{
		ID:        p.ID,
		OwnerID:   p.OwnerID,
		Name:      p.Name,
		CreatedAt: p.CreatedAt.Format(timeFormat),
	}
}

type createPartnerProfileRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h HandlerSet) CreatePartnerProfile(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		sendError(c, apperr.Unauthorized("authentication required"))
		return
	}

	var req createPartnerProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendBindError(c, err)
		return
	}

	partner, err := h.partnerService.CreateProfile(c.Request.Context(), actor, req.Name)
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPartnerResponse(partner))
}

func (h HandlerSet) GetPartnerProfile(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		sendError(c, apperr.Unauthorized("authentication required"))
		return
	}

	partner, err := h.partnerService.GetProfile(c.Request.Context(), actor)
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPartnerResponse(partner))
}
