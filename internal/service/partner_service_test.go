package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayfare/api/internal/apperr"
	"wayfare/api/internal/models"
)

func newTestPartnerService() *PartnerService {
	partners := &memPartnerStore{partners: map[string]models.Partner{}}
	return NewPartnerService(partners, zerolog.Nop())
}

func TestCreateProfile(t *testing.T) {
	svc := newTestPartnerService()
	ctx := context.Background()

	partner, err := svc.CreateProfile(ctx, partnerActor, "  Alpine Tours  ")
	require.NoError(t, err)
	assert.Equal(t, "Alpine Tours", partner.Name)
	assert.Equal(t, partnerActor.AccountID, partner.OwnerID)

	got, err := svc.GetProfile(ctx, partnerActor)
	require.NoError(t, err)
	assert.Equal(t, partner.ID, got.ID)
}

func TestCreateProfileOnePerAccount(t *testing.T) {
	svc := newTestPartnerService()
	ctx := context.Background()

	_, err := svc.CreateProfile(ctx, partnerActor, "Alpine Tours")
	require.NoError(t, err)

	_, err = svc.CreateProfile(ctx, partnerActor, "Second Brand")
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestCreateProfileGuards(t *testing.T) {
	svc := newTestPartnerService()
	ctx := context.Background()

	_, err := svc.CreateProfile(ctx, touristActor, "Alpine Tours")
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	_, err = svc.CreateProfile(ctx, partnerActor, "   ")
	assert.True(t, apperr.IsKind(err, apperr.KindBadRequest))
}

func TestGetProfileMissing(t *testing.T) {
	svc := newTestPartnerService()

	_, err := svc.GetProfile(context.Background(), partnerActor)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}
