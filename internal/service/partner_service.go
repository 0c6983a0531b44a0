package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"wayfare/api/internal/apperr"
	"wayfare/api/internal/ids"
	"wayfare/api/internal/models"
)

// PartnerService manages partner profiles: one non-deleted profile per
// owning account.
type PartnerService struct {
	partners PartnerStore
	log      zerolog.Logger
}

func NewPartnerService(partners PartnerStore, log zerolog.Logger) *PartnerService {
	return &PartnerService{partners: partners, log: log}
}

func (s *PartnerService) CreateProfile(ctx context.Context, actor AuthContext, name string) (models.Partner, error) {
	if !RequireRole(actor, models.RolePartner, models.RolePartnerManager) {
		return models.Partner{}, apperr.Forbidden("partner role required")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return models.Partner{}, apperr.Validation(apperr.FieldError{Field: "name", Problem: "required"})
	}

	if _, err := s.partners.GetByOwner(ctx, actor.AccountID); err == nil {
		return models.Partner{}, apperr.Conflict("partner profile already exists for this account")
	} else if !apperr.IsKind(err, apperr.KindNotFound) {
		return models.Partner{}, err
	}

	partner := models.Partner{
		ID:      ids.New(),
		Name:    name,
		OwnerID: actor.AccountID,
	}
	if err := s.partners.Create(ctx, partner); err != nil {
		return models.Partner{}, err
	}

	s.log.Info().Str("partner_id", partner.ID).Str("owner_id", actor.AccountID).Msg("partner profile created")
	return partner, nil
}

func (s *PartnerService) GetProfile(ctx context.Context, actor AuthContext) (models.Partner, error) {
	return s.partners.GetByOwner(ctx, actor.AccountID)
}
