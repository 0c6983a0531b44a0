package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"wayfare/api/internal/apperr"
	"wayfare/api/internal/middleware"
	"wayfare/api/internal/models"
	"wayfare/api/internal/service"
)

func (h HandlerSet) AdminListAccounts(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		sendError(c, apperr.Unauthorized("authentication required"))
		return
	}

	accounts, meta, err := h.adminService.ListAccounts(c.Request.Context(), actor, service.ListAccountsInput{
		Query: c.Query("q"),
		Page:  pageFromQuery(c),
	})
	if err != nil {
		sendError(c, err)
		return
	}

	out := make([]accountResponse, 0, len(accounts))
	for _, account := range accounts {
		out = append(out, toAccountResponse(account))
	}
	c.JSON(http.StatusOK, gin.H{"items": out, "meta": toPageMeta(meta)})
}

type updateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

func (h HandlerSet) AdminUpdateRole(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		sendError(c, apperr.Unauthorized("authentication required"))
		return
	}

	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendBindError(c, err)
		return
	}

	account, err := h.adminService.UpdateRole(c.Request.Context(), actor, c.Param("id"), models.Role(req.Role))
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAccountResponse(account))
}

type suspendRequest struct {
	Until *time.Time `json:"until"`
}

func (h HandlerSet) AdminSuspendAccount(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		sendError(c, apperr.Unauthorized("authentication required"))
		return
	}

	var req suspendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendBindError(c, err)
		return
	}

	account, err := h.adminService.Suspend(c.Request.Context(), actor, service.SuspendInput{
		AccountID: c.Param("id"),
		Until:     req.Until,
	})
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAccountResponse(account))
}

func (h HandlerSet) AdminUnsuspendAccount(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		sendError(c, apperr.Unauthorized("authentication required"))
		return
	}

	account, err := h.adminService.Unsuspend(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAccountResponse(account))
}

func (h HandlerSet) AdminListExperiences(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		sendError(c, apperr.Unauthorized("authentication required"))
		return
	}

	items, meta, err := h.workflowService.ListAdmin(c.Request.Context(), actor, service.AdminListInput{
		CityID:      optionalQuery(c, "cityId"),
		CategoryID:  optionalQuery(c, "categoryId"),
		Query:       c.Query("q"),
		PageRequest: pageFromQuery(c),
	})
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, experienceListResponse(items, meta))
}

func (h HandlerSet) AdminListPending(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		sendError(c, apperr.Unauthorized("authentication required"))
		return
	}

	items, meta, err := h.workflowService.ListPending(c.Request.Context(), actor, pageFromQuery(c))
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, experienceListResponse(items, meta))
}

func (h HandlerSet) AdminGetExperience(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		sendError(c, apperr.Unauthorized("authentication required"))
		return
	}

	experience, err := h.workflowService.GetAdmin(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, toExperienceResponse(experience))
}

func (h HandlerSet) AdminUpdateExperience(c *gin.Context) {
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

	experience, err := h.workflowService.UpdateAdmin(c.Request.Context(), actor, c.Param("id"), req.toParams())
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, toExperienceResponse(experience))
}
