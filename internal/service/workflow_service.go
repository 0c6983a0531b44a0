package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"wayfare/api/internal/apperr"
	"wayfare/api/internal/ids"
	"wayfare/api/internal/models"
	"wayfare/api/internal/repository"
)

// ExperienceStore is the persistence surface for the publication workflow.
// Transition methods are compare-and-swap: they apply only if the row still
// holds the expected starting status, and report NotFound vs BadRequest when
// it does not.
type ExperienceStore interface {
	Create(ctx context.Context, experience models.Experience, mediaURLs []string) (models.Experience, error)
	GetByID(ctx context.Context, id string) (models.Experience, error)
	GetPublished(ctx context.Context, id string) (models.Experience, error)
	UpdateDraft(ctx context.Context, id string, partnerID string, params repository.UpdateDraftParams) (models.Experience, error)
	UpdateAdmin(ctx context.Context, id string, params repository.AdminUpdateParams) (models.Experience, error)
	Submit(ctx context.Context, id string, partnerID string) (models.Experience, error)
	Approve(ctx context.Context, id string) (models.Experience, error)
	Reject(ctx context.Context, id string, reason *string) (models.Experience, error)
	Publish(ctx context.Context, id string) (models.Experience, error)
	Unpublish(ctx context.Context, id string) (models.Experience, error)
	SoftDelete(ctx context.Context, id string) error
	ListPublished(ctx context.Context, params repository.ListPublishedParams) ([]models.Experience, int, error)
	ListByPartner(ctx context.Context, params repository.ListByPartnerParams) ([]models.Experience, int, error)
	ListPending(ctx context.Context, limit, offset int) ([]models.Experience, int, error)
	ListAdmin(ctx context.Context, params repository.ListAdminParams) ([]models.Experience, int, error)
}

type PartnerStore interface {
	GetByOwner(ctx context.Context, ownerID string) (models.Partner, error)
	Create(ctx context.Context, partner models.Partner) error
}

// TransitionEvent names the workflow events gated by the permission table.
type TransitionEvent string

const (
	EventCreate    TransitionEvent = "create"
	EventEdit      TransitionEvent = "edit"
	EventSubmit    TransitionEvent = "submit"
	EventApprove   TransitionEvent = "approve"
	EventReject    TransitionEvent = "reject"
	EventPublish   TransitionEvent = "publish"
	EventUnpublish TransitionEvent = "unpublish"
	EventDelete    TransitionEvent = "delete"
)

// eventRoles is the single place transition permissions live; routes only
// establish identity.
var eventRoles = map[TransitionEvent][]models.Role{
	EventCreate:    {models.RolePartner, models.RolePartnerManager, models.RolePlatformAdmin, models.RoleSuperAdmin},
	EventEdit:      {models.RolePartner, models.RolePartnerManager},
	EventSubmit:    {models.RolePartner, models.RolePartnerManager},
	EventApprove:   {models.RolePlatformAdmin, models.RoleSuperAdmin},
	EventReject:    {models.RolePlatformAdmin, models.RoleSuperAdmin},
	EventPublish:   {models.RolePlatformAdmin, models.RoleSuperAdmin},
	EventUnpublish: {models.RolePlatformAdmin, models.RoleSuperAdmin},
	EventDelete:    {models.RolePlatformAdmin, models.RoleSuperAdmin},
}

func permitted(event TransitionEvent, role models.Role) bool {
	for _, allowed := range eventRoles[event] {
		if allowed == role {
			return true
		}
	}
	return false
}

func isAdminRole(role models.Role) bool {
	return role == models.RolePlatformAdmin || role == models.RoleSuperAdmin
}

type WorkflowService struct {
	experiences ExperienceStore
	partners    PartnerStore
	log         zerolog.Logger
}

func NewWorkflowService(experiences ExperienceStore, partners PartnerStore, log zerolog.Logger) *WorkflowService {
	return &WorkflowService{
		experiences: experiences,
		partners:    partners,
		log:         log,
	}
}

// ownedPartner resolves the actor's partner profile for ownership-scoped
// events.
func (s *WorkflowService) ownedPartner(ctx context.Context, actor AuthContext) (models.Partner, error) {
	partner, err := s.partners.GetByOwner(ctx, actor.AccountID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return models.Partner{}, apperr.BadRequest("partner profile not found")
		}
		return models.Partner{}, err
	}
	return partner, nil
}

type CreateExperienceInput struct {
	Title          string
	Description    *string
	CityID         string
	CategoryID     *string
	PriceFromCents *int64
	Currency       *string
	Location       *models.GeoPoint
	MediaURLs      []string
}

// Create starts a new experience in draft. Partner-initiated experiences are
// bound to the actor's partner profile; admin-created ones have no owner
// (platform-seeded content).
func (s *WorkflowService) Create(ctx context.Context, actor AuthContext, input CreateExperienceInput) (models.Experience, error) {
	if !permitted(EventCreate, actor.Role) {
		return models.Experience{}, apperr.Forbidden("role not permitted to create experiences")
	}
	if strings.TrimSpace(input.Title) == "" {
		return models.Experience{}, apperr.Validation(apperr.FieldError{Field: "title", Problem: "required"})
	}
	if input.CityID == "" {
		return models.Experience{}, apperr.Validation(apperr.FieldError{Field: "cityId", Problem: "required"})
	}

	experience := models.Experience{
		ID:             ids.New(),
		Title:          strings.TrimSpace(input.Title),
		Description:    input.Description,
		CityID:         input.CityID,
		CategoryID:     input.CategoryID,
		PriceFromCents: input.PriceFromCents,
		Location:       input.Location,
		Status:         models.ExperienceStatusDraft,
	}
	if input.Currency != nil {
		upper := strings.ToUpper(*input.Currency)
		experience.Currency = &upper
	}

	if !isAdminRole(actor.Role) {
		partner, err := s.ownedPartner(ctx, actor)
		if err != nil {
			return models.Experience{}, err
		}
		experience.PartnerID = &partner.ID
	}

	return s.experiences.Create(ctx, experience, input.MediaURLs)
}

// Edit mutates an owned experience; legal only while it is still a draft.
func (s *WorkflowService) Edit(ctx context.Context, actor AuthContext, id string, params repository.UpdateDraftParams) (models.Experience, error) {
	if !permitted(EventEdit, actor.Role) {
		return models.Experience{}, apperr.Forbidden("role not permitted to edit experiences")
	}
	partner, err := s.ownedPartner(ctx, actor)
	if err != nil {
		return models.Experience{}, err
	}
	if params.Currency != nil {
		upper := strings.ToUpper(*params.Currency)
		params.Currency = &upper
	}
	return s.experiences.UpdateDraft(ctx, id, partner.ID, params)
}

// Submit queues an owned draft for review and clears any prior rejection
// reason.
func (s *WorkflowService) Submit(ctx context.Context, actor AuthContext, id string) (models.Experience, error) {
	if !permitted(EventSubmit, actor.Role) {
		return models.Experience{}, apperr.Forbidden("role not permitted to submit experiences")
	}
	partner, err := s.ownedPartner(ctx, actor)
	if err != nil {
		return models.Experience{}, err
	}
	return s.experiences.Submit(ctx, id, partner.ID)
}

func (s *WorkflowService) Approve(ctx context.Context, actor AuthContext, id string) (models.Experience, error) {
	if !permitted(EventApprove, actor.Role) {
		return models.Experience{}, apperr.Forbidden("role not permitted to approve experiences")
	}
	experience, err := s.experiences.Approve(ctx, id)
	if err != nil {
		return models.Experience{}, err
	}
	s.log.Info().
		Str("experience_id", id).
		Str("actor_id", actor.AccountID).
		Str("event", string(EventApprove)).
		Msg("experience transition")
	return experience, nil
}

func (s *WorkflowService) Reject(ctx context.Context, actor AuthContext, id string, reason *string) (models.Experience, error) {
	if !permitted(EventReject, actor.Role) {
		return models.Experience{}, apperr.Forbidden("role not permitted to reject experiences")
	}
	experience, err := s.experiences.Reject(ctx, id, reason)
	if err != nil {
		return models.Experience{}, err
	}
	s.log.Info().
		Str("experience_id", id).
		Str("actor_id", actor.AccountID).
		Str("event", string(EventReject)).
		Msg("experience transition")
	return experience, nil
}

// Publish is the direct admin path that skips the review queue; it is logged
// as a distinct event because its audit implications differ from approve.
func (s *WorkflowService) Publish(ctx context.Context, actor AuthContext, id string) (models.Experience, error) {
	if !permitted(EventPublish, actor.Role) {
		return models.Experience{}, apperr.Forbidden("role not permitted to publish experiences")
	}
	experience, err := s.experiences.Publish(ctx, id)
	if err != nil {
		return models.Experience{}, err
	}
	s.log.Info().
		Str("experience_id", id).
		Str("actor_id", actor.AccountID).
		Str("event", string(EventPublish)).
		Bool("bypass_review", true).
		Msg("experience transition")
	return experience, nil
}

func (s *WorkflowService) Unpublish(ctx context.Context, actor AuthContext, id string) (models.Experience, error) {
	if !permitted(EventUnpublish, actor.Role) {
		return models.Experience{}, apperr.Forbidden("role not permitted to unpublish experiences")
	}
	experience, err := s.experiences.Unpublish(ctx, id)
	if err != nil {
		return models.Experience{}, err
	}
	s.log.Info().
		Str("experience_id", id).
		Str("actor_id", actor.AccountID).
		Str("event", string(EventUnpublish)).
		Msg("experience transition")
	return experience, nil
}

func (s *WorkflowService) SoftDelete(ctx context.Context, actor AuthContext, id string) error {
	if !permitted(EventDelete, actor.Role) {
		return apperr.Forbidden("role not permitted to delete experiences")
	}
	return s.experiences.SoftDelete(ctx, id)
}

// PageRequest carries caller-supplied pagination; Normalize applies the
// bounds checks (limit capped at 100) and converts to limit/offset.
type PageRequest struct {
	Page  int
	Limit int
}

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

func (p PageRequest) Normalize() (page, limit, offset int) {
	page = p.Page
	if page < 1 {
		page = 1
	}
	limit = p.Limit
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit, (page - 1) * limit
}

type PageMeta struct {
	Page    int
	Limit   int
	Total   int
	HasMore bool
}

func pageMeta(page, limit, offset, count, total int) PageMeta {
	return PageMeta{
		Page:    page,
		Limit:   limit,
		Total:   total,
		HasMore: offset+count < total,
	}
}

type PublicListInput struct {
	CityID     *string
	CategoryID *string
	// Featured defaults to true on the public surface: the home feed only
	// shows featured published experiences unless the caller opts out.
	Featured *bool
	PageRequest
}

func (s *WorkflowService) ListPublic(ctx context.Context, input PublicListInput) ([]models.Experience, PageMeta, error) {
	page, limit, offset := input.Normalize()

	featuredOnly := true
	if input.Featured != nil {
		featuredOnly = *input.Featured
	}

	items, total, err := s.experiences.ListPublished(ctx, repository.ListPublishedParams{
		CityID:       input.CityID,
		CategoryID:   input.CategoryID,
		FeaturedOnly: featuredOnly,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		return nil, PageMeta{}, err
	}
	return items, pageMeta(page, limit, offset, len(items), total), nil
}

func (s *WorkflowService) GetPublic(ctx context.Context, id string) (models.Experience, error) {
	return s.experiences.GetPublished(ctx, id)
}

func (s *WorkflowService) GetAdmin(ctx context.Context, actor AuthContext, id string) (models.Experience, error) {
	if !isAdminRole(actor.Role) {
		return models.Experience{}, apperr.Forbidden("admin role required")
	}
	return s.experiences.GetByID(ctx, id)
}

func (s *WorkflowService) ListOwn(ctx context.Context, actor AuthContext, status *models.ExperienceStatus, req PageRequest) ([]models.Experience, PageMeta, error) {
	partner, err := s.ownedPartner(ctx, actor)
	if err != nil {
		return nil, PageMeta{}, err
	}

	page, limit, offset := req.Normalize()
	items, total, err := s.experiences.ListByPartner(ctx, repository.ListByPartnerParams{
		PartnerID: partner.ID,
		Status:    status,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, PageMeta{}, err
	}
	return items, pageMeta(page, limit, offset, len(items), total), nil
}

func (s *WorkflowService) ListPending(ctx context.Context, actor AuthContext, req PageRequest) ([]models.Experience, PageMeta, error) {
	if !isAdminRole(actor.Role) {
		return nil, PageMeta{}, apperr.Forbidden("admin role required")
	}
	page, limit, offset := req.Normalize()
	items, total, err := s.experiences.ListPending(ctx, limit, offset)
	if err != nil {
		return nil, PageMeta{}, err
	}
	return items, pageMeta(page, limit, offset, len(items), total), nil
}

type AdminListInput struct {
	CityID     *string
	CategoryID *string
	Query      string
	PageRequest
}

func (s *WorkflowService) ListAdmin(ctx context.Context, actor AuthContext, input AdminListInput) ([]models.Experience, PageMeta, error) {
	if !isAdminRole(actor.Role) {
		return nil, PageMeta{}, apperr.Forbidden("admin role required")
	}
	page, limit, offset := input.Normalize()
	items, total, err := s.experiences.ListAdmin(ctx, repository.ListAdminParams{
		CityID:     input.CityID,
		CategoryID: input.CategoryID,
		Query:      input.Query,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return nil, PageMeta{}, err
	}
	return items, pageMeta(page, limit, offset, len(items), total), nil
}

func (s *WorkflowService) UpdateAdmin(ctx context.Context, actor AuthContext, id string, params repository.AdminUpdateParams) (models.Experience, error) {
	if !isAdminRole(actor.Role) {
		return models.Experience{}, apperr.Forbidden("admin role required")
	}
	if params.Currency != nil {
		upper := strings.ToUpper(*params.Currency)
		params.Currency = &upper
	}
	return s.experiences.UpdateAdmin(ctx, id, params)
}
