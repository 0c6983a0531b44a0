package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wayfare/api/internal/apperr"
	"wayfare/api/internal/middleware"
	"wayfare/api/internal/models"
	"wayfare/api/internal/service"
)

type signUpRequest struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required,min=8"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (h HandlerSet) SignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendBindError(c, err)
		return
	}

	pair, err := h.authService.Register(c.Request.Context(), service.RegisterInput{
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		sendError(c, err)
		return
	}

	c.JSON(http.StatusCreated, tokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendBindError(c, err)
		return
	}

	pair, err := h.authService.Login(c.Request.Context(), service.LoginInput{
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		sendError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

func (h HandlerSet) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendBindError(c, err)
		return
	}

	pair, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		sendError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h HandlerSet) Logout(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		sendError(c, apperr.Unauthorized("authentication required"))
		return
	}

	if err := h.authService.Logout(c.Request.Context(), actor.AccountID); err != nil {
		sendError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type accountResponse struct {
	ID                 string  `json:"id"`
	Email              *string `json:"email"`
	Phone              *string `json:"phone"`
	Role               string  `json:"role"`
	VerificationStatus string  `json:"verificationStatus"`
	IsActive           bool    `json:"isActive"`
	IsSuspended        bool    `json:"isSuspended"`
	SuspendedUntil     *string `json:"suspendedUntil,omitempty"`
	SelectedCityID     *string `json:"selectedCityId"`
	PartnerID          *string `json:"partnerId"`
	CreatedAt          string  `json:"createdAt"`
}

func toAccountResponse(a models.Account) accountResponse {
	resp := accountResponse{
		ID:                 a.ID,
		Email:              a.Email,
		Phone:              a.Phone,
		Role:               string(a.Role),
		VerificationStatus: string(a.VerificationStatus),
		IsActive:           a.IsActive,
		IsSuspended:        a.IsSuspended,
		SelectedCityID:     a.SelectedCityID,
		PartnerID:          a.PartnerID,
		CreatedAt:          a.CreatedAt.Format(timeFormat),
	}
	if a.SuspendedUntil != nil {
		until := a.SuspendedUntil.Format(timeFormat)
		resp.SuspendedUntil = &until
	}
	return resp
}

func (h HandlerSet) Me(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		sendError(c, apperr.Unauthorized("authentication required"))
		return
	}

	account, err := h.authService.Me(c.Request.Context(), actor.AccountID)
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAccountResponse(account))
}

type setCityRequest struct {
	CityID string `json:"cityId" binding:"required"`
}

func (h HandlerSet) SetSelectedCity(c *gin.Context) {
	actor, ok := middleware.Actor(c)
	if !ok {
		sendError(c, apperr.Unauthorized("authentication required"))
		return
	}

	var req setCityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendBindError(c, err)
		return
	}

	account, err := h.authService.SetSelectedCity(c.Request.Context(), actor.AccountID, req.CityID)
	if err != nil {
		sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAccountResponse(account))
}
