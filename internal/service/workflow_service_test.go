package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayfare/api/internal/apperr"
	"wayfare/api/internal/ids"
	"wayfare/api/internal/models"
	"wayfare/api/internal/repository"
)

// memExperienceStore reproduces the conditional-update semantics of the SQL
// store: transitions apply only when the row still holds the expected status,
// and a failed transition is reported as NotFound or BadRequest depending on
// whether a matching row exists at all.
type memExperienceStore struct {
	mu          sync.Mutex
	experiences map[string]*models.Experience
}

func newMemExperienceStore() *memExperienceStore {
	return &memExperienceStore{experiences: make(map[string]*models.Experience)}
}

func (m *memExperienceStore) add(e models.Experience) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.experiences[e.ID] = &e
}

func (m *memExperienceStore) Create(_ context.Context, experience models.Experience, mediaURLs []string) (models.Experience, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, url := range mediaURLs {
		experience.Media = append(experience.Media, models.ExperienceMedia{
			ID:           ids.New(),
			ExperienceID: experience.ID,
			URL:          url,
			SortOrder:    i,
		})
	}
	experience.CreatedAt = time.Now()
	experience.UpdatedAt = experience.CreatedAt
	m.experiences[experience.ID] = &experience
	return experience, nil
}

func (m *memExperienceStore) GetByID(_ context.Context, id string) (models.Experience, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.experiences[id]
	if !ok || e.DeletedAt != nil {
		return models.Experience{}, apperr.NotFound("experience not found")
	}
	return *e, nil
}

func (m *memExperienceStore) GetPublished(_ context.Context, id string) (models.Experience, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.experiences[id]
	if !ok || e.DeletedAt != nil || e.Status != models.ExperienceStatusPublished {
		return models.Experience{}, apperr.NotFound("experience not found")
	}
	return *e, nil
}

// transition is the mock CAS: status moves only from one of the expected
// states, everything else is disambiguated the way the SQL layer does.
func (m *memExperienceStore) transition(id string, partnerID *string, from []models.ExperienceStatus, apply func(*models.Experience)) (models.Experience, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.experiences[id]
	if !ok || e.DeletedAt != nil {
		return models.Experience{}, apperr.NotFound("experience not found")
	}
	if partnerID != nil && (e.PartnerID == nil || *e.PartnerID != *partnerID) {
		return models.Experience{}, apperr.NotFound("experience not found")
	}
	for _, status := range from {
		if e.Status == status {
			apply(e)
			e.UpdatedAt = time.Now()
			return *e, nil
		}
	}
	return models.Experience{}, apperr.BadRequest("experience is not in a valid state for this transition")
}

func (m *memExperienceStore) UpdateDraft(_ context.Context, id string, partnerID string, params repository.UpdateDraftParams) (models.Experience, error) {
	return m.transition(id, &partnerID, []models.ExperienceStatus{models.ExperienceStatusDraft}, func(e *models.Experience) {
		if params.Title != nil {
			e.Title = *params.Title
		}
		if params.Description != nil {
			e.Description = params.Description
		}
		if params.Currency != nil {
			e.Currency = params.Currency
		}
	})
}

func (m *memExperienceStore) UpdateAdmin(_ context.Context, id string, params repository.AdminUpdateParams) (models.Experience, error) {
	return m.transition(id, nil, []models.ExperienceStatus{
		models.ExperienceStatusDraft, models.ExperienceStatusPendingReview,
		models.ExperienceStatusPublished, models.ExperienceStatusUnpublished,
	}, func(e *models.Experience) {
		if params.Title != nil {
			e.Title = *params.Title
		}
	})
}

func (m *memExperienceStore) Submit(_ context.Context, id string, partnerID string) (models.Experience, error) {
	return m.transition(id, &partnerID, []models.ExperienceStatus{models.ExperienceStatusDraft}, func(e *models.Experience) {
		e.Status = models.ExperienceStatusPendingReview
		e.RejectionReason = nil
	})
}

func (m *memExperienceStore) Approve(_ context.Context, id string) (models.Experience, error) {
	return m.transition(id, nil, []models.ExperienceStatus{models.ExperienceStatusPendingReview}, func(e *models.Experience) {
		now := time.Now()
		e.Status = models.ExperienceStatusPublished
		e.IsPublished = true
		e.IsFeatured = true
		e.PublishedAt = &now
		e.RejectionReason = nil
	})
}

func (m *memExperienceStore) Reject(_ context.Context, id string, reason *string) (models.Experience, error) {
	return m.transition(id, nil, []models.ExperienceStatus{models.ExperienceStatusPendingReview}, func(e *models.Experience) {
		e.Status = models.ExperienceStatusDraft
		e.IsPublished = false
		e.PublishedAt = nil
		e.RejectionReason = reason
	})
}

func (m *memExperienceStore) Publish(_ context.Context, id string) (models.Experience, error) {
	return m.transition(id, nil, []models.ExperienceStatus{
		models.ExperienceStatusDraft, models.ExperienceStatusUnpublished,
	}, func(e *models.Experience) {
		now := time.Now()
		e.Status = models.ExperienceStatusPublished
		e.IsPublished = true
		e.PublishedAt = &now
	})
}

func (m *memExperienceStore) Unpublish(_ context.Context, id string) (models.Experience, error) {
	return m.transition(id, nil, []models.ExperienceStatus{models.ExperienceStatusPublished}, func(e *models.Experience) {
		e.Status = models.ExperienceStatusUnpublished
		e.IsPublished = false
	})
}

func (m *memExperienceStore) SoftDelete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.experiences[id]
	if !ok || e.DeletedAt != nil {
		return apperr.NotFound("experience not found")
	}
	now := time.Now()
	e.DeletedAt = &now
	return nil
}

func (m *memExperienceStore) list(filter func(*models.Experience) bool, limit, offset int) ([]models.Experience, int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var all []models.Experience
	for _, e := range m.experiences {
		if e.DeletedAt == nil && filter(e) {
			all = append(all, *e)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	total := len(all)
	if offset >= total {
		return nil, total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total
}

func (m *memExperienceStore) ListPublished(_ context.Context, params repository.ListPublishedParams) ([]models.Experience, int, error) {
	items, total := m.list(func(e *models.Experience) bool {
		if e.Status != models.ExperienceStatusPublished {
			return false
		}
		if params.FeaturedOnly && !e.IsFeatured {
			return false
		}
		if params.CityID != nil && e.CityID != *params.CityID {
			return false
		}
		return true
	}, params.Limit, params.Offset)
	return items, total, nil
}

func (m *memExperienceStore) ListByPartner(_ context.Context, params repository.ListByPartnerParams) ([]models.Experience, int, error) {
	items, total := m.list(func(e *models.Experience) bool {
		if e.PartnerID == nil || *e.PartnerID != params.PartnerID {
			return false
		}
		if params.Status != nil && e.Status != *params.Status {
			return false
		}
		return true
	}, params.Limit, params.Offset)
	return items, total, nil
}

func (m *memExperienceStore) ListPending(_ context.Context, limit, offset int) ([]models.Experience, int, error) {
	items, total := m.list(func(e *models.Experience) bool {
		return e.Status == models.ExperienceStatusPendingReview
	}, limit, offset)
	return items, total, nil
}

func (m *memExperienceStore) ListAdmin(_ context.Context, params repository.ListAdminParams) ([]models.Experience, int, error) {
	items, total := m.list(func(e *models.Experience) bool {
		if params.Query != "" && !strings.Contains(strings.ToLower(e.Title), strings.ToLower(params.Query)) {
			return false
		}
		return true
	}, params.Limit, params.Offset)
	return items, total, nil
}

type memPartnerStore struct {
	partners map[string]models.Partner // keyed by owner account id
}

func (m *memPartnerStore) GetByOwner(_ context.Context, ownerID string) (models.Partner, error) {
	p, ok := m.partners[ownerID]
	if !ok {
		return models.Partner{}, apperr.NotFound("partner not found")
	}
	return p, nil
}

func (m *memPartnerStore) Create(_ context.Context, partner models.Partner) error {
	m.partners[partner.OwnerID] = partner
	return nil
}

var (
	partnerActor = AuthContext{AccountID: "acc_partner", Role: models.RolePartner}
	adminActor   = AuthContext{AccountID: "acc_admin", Role: models.RolePlatformAdmin}
	touristActor = AuthContext{AccountID: "acc_tourist", Role: models.RoleTourist}
)

func newTestWorkflow() (*WorkflowService, *memExperienceStore) {
	store := newMemExperienceStore()
	partners := &memPartnerStore{partners: map[string]models.Partner{
		"acc_partner": {ID: "prt_1", OwnerID: "acc_partner", Name: "Alpine Tours"},
	}}
	return NewWorkflowService(store, partners, zerolog.Nop()), store
}

func createDraft(t *testing.T, svc *WorkflowService, actor AuthContext) models.Experience {
	t.Helper()
	experience, err := svc.Create(context.Background(), actor, CreateExperienceInput{
		Title:  "Glacier hike",
		CityID: "city_1",
	})
	require.NoError(t, err)
	require.Equal(t, models.ExperienceStatusDraft, experience.Status)
	return experience
}

func TestCreateBindsPartnerOwnership(t *testing.T) {
	svc, _ := newTestWorkflow()

	experience := createDraft(t, svc, partnerActor)
	require.NotNil(t, experience.PartnerID)
	assert.Equal(t, "prt_1", *experience.PartnerID)

	adminMade, err := svc.Create(context.Background(), adminActor, CreateExperienceInput{
		Title:  "Seeded walk",
		CityID: "city_1",
	})
	require.NoError(t, err)
	assert.Nil(t, adminMade.PartnerID)
}

func TestCreateWithoutPartnerProfile(t *testing.T) {
	store := newMemExperienceStore()
	partners := &memPartnerStore{partners: map[string]models.Partner{}}
	svc := NewWorkflowService(store, partners, zerolog.Nop())

	_, err := svc.Create(context.Background(), partnerActor, CreateExperienceInput{
		Title:  "No profile yet",
		CityID: "city_1",
	})
	assert.True(t, apperr.IsKind(err, apperr.KindBadRequest))
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestWorkflow()
	ctx := context.Background()

	_, err := svc.Create(ctx, partnerActor, CreateExperienceInput{CityID: "city_1"})
	assert.True(t, apperr.IsKind(err, apperr.KindBadRequest))

	_, err = svc.Create(ctx, partnerActor, CreateExperienceInput{Title: "No city"})
	assert.True(t, apperr.IsKind(err, apperr.KindBadRequest))

	_, err = svc.Create(ctx, touristActor, CreateExperienceInput{Title: "Nope", CityID: "city_1"})
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestPermissionTable(t *testing.T) {
	cases := []struct {
		event TransitionEvent
		role  models.Role
		want  bool
	}{
		{EventCreate, models.RolePartner, true},
		{EventCreate, models.RoleSuperAdmin, true},
		{EventCreate, models.RoleTourist, false},
		{EventEdit, models.RolePartnerManager, true},
		{EventEdit, models.RolePlatformAdmin, false},
		{EventSubmit, models.RolePartner, true},
		{EventSubmit, models.RoleVerifiedTourist, false},
		{EventApprove, models.RolePlatformAdmin, true},
		{EventApprove, models.RolePartner, false},
		{EventReject, models.RoleSuperAdmin, true},
		{EventPublish, models.RolePlatformAdmin, true},
		{EventPublish, models.RolePartnerManager, false},
		{EventUnpublish, models.RoleSuperAdmin, true},
		{EventDelete, models.RolePlatformAdmin, true},
		{EventDelete, models.RolePartner, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, permitted(tc.event, tc.role), "%s / %s", tc.event, tc.role)
	}
}

func TestSubmitApproveFlow(t *testing.T) {
	svc, _ := newTestWorkflow()
	ctx := context.Background()

	experience := createDraft(t, svc, partnerActor)

	submitted, err := svc.Submit(ctx, partnerActor, experience.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExperienceStatusPendingReview, submitted.Status)

	published, err := svc.Approve(ctx, adminActor, experience.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExperienceStatusPublished, published.Status)
	assert.True(t, published.IsPublished)
	assert.True(t, published.IsFeatured)
	require.NotNil(t, published.PublishedAt)

	// Now publicly visible.
	got, err := svc.GetPublic(ctx, experience.ID)
	require.NoError(t, err)
	assert.Equal(t, experience.ID, got.ID)
}

func TestRejectResubmitApprove(t *testing.T) {
	svc, _ := newTestWorkflow()
	ctx := context.Background()

	experience := createDraft(t, svc, partnerActor)

	_, err := svc.Submit(ctx, partnerActor, experience.ID)
	require.NoError(t, err)

	reason := "photos missing"
	rejected, err := svc.Reject(ctx, adminActor, experience.ID, &reason)
	require.NoError(t, err)
	assert.Equal(t, models.ExperienceStatusDraft, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "photos missing", *rejected.RejectionReason)

	resubmitted, err := svc.Submit(ctx, partnerActor, experience.ID)
	require.NoError(t, err)
	assert.Nil(t, resubmitted.RejectionReason, "resubmit clears the prior reason")

	_, err = svc.Approve(ctx, adminActor, experience.ID)
	assert.NoError(t, err)
}

func TestApproveStateDisambiguation(t *testing.T) {
	svc, _ := newTestWorkflow()
	ctx := context.Background()

	// Unknown id is NotFound.
	_, err := svc.Approve(ctx, adminActor, "exp_missing")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	// Existing row in the wrong state is BadRequest.
	experience := createDraft(t, svc, partnerActor)
	_, err = svc.Approve(ctx, adminActor, experience.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindBadRequest))
}

func TestConcurrentApproveSingleWinner(t *testing.T) {
	svc, _ := newTestWorkflow()
	ctx := context.Background()

	experience := createDraft(t, svc, partnerActor)
	_, err := svc.Submit(ctx, partnerActor, experience.ID)
	require.NoError(t, err)

	const racers = 16
	results := make(chan error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Approve(ctx, adminActor, experience.ID)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, losses int
	for err := range results {
		if err == nil {
			wins++
		} else {
			assert.True(t, apperr.IsKind(err, apperr.KindBadRequest))
			losses++
		}
	}
	assert.Equal(t, 1, wins, "exactly one approve may apply")
	assert.Equal(t, racers-1, losses)
}

func TestDirectPublishPaths(t *testing.T) {
	svc, _ := newTestWorkflow()
	ctx := context.Background()

	// draft -> published, skipping review.
	experience := createDraft(t, svc, partnerActor)
	published, err := svc.Publish(ctx, adminActor, experience.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExperienceStatusPublished, published.Status)

	// published -> unpublished -> published again.
	unpublished, err := svc.Unpublish(ctx, adminActor, experience.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExperienceStatusUnpublished, unpublished.Status)
	assert.False(t, unpublished.IsPublished)

	_, err = svc.Publish(ctx, adminActor, experience.ID)
	assert.NoError(t, err)

	// publish from pending_review is not a legal direct path.
	second := createDraft(t, svc, partnerActor)
	_, err = svc.Submit(ctx, partnerActor, second.ID)
	require.NoError(t, err)
	_, err = svc.Publish(ctx, adminActor, second.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindBadRequest))
}

func TestEditOnlyDrafts(t *testing.T) {
	svc, _ := newTestWorkflow()
	ctx := context.Background()

	experience := createDraft(t, svc, partnerActor)

	title := "Glacier hike, extended"
	edited, err := svc.Edit(ctx, partnerActor, experience.ID, repository.UpdateDraftParams{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Glacier hike, extended", edited.Title)

	_, err = svc.Submit(ctx, partnerActor, experience.ID)
	require.NoError(t, err)

	_, err = svc.Edit(ctx, partnerActor, experience.ID, repository.UpdateDraftParams{Title: &title})
	assert.True(t, apperr.IsKind(err, apperr.KindBadRequest))
}

func TestOwnershipScoping(t *testing.T) {
	store := newMemExperienceStore()
	partners := &memPartnerStore{partners: map[string]models.Partner{
		"acc_partner": {ID: "prt_1", OwnerID: "acc_partner"},
		"acc_other":   {ID: "prt_2", OwnerID: "acc_other"},
	}}
	svc := NewWorkflowService(store, partners, zerolog.Nop())
	ctx := context.Background()

	experience := createDraft(t, svc, partnerActor)

	otherPartner := AuthContext{AccountID: "acc_other", Role: models.RolePartner}
	_, err := svc.Submit(ctx, otherPartner, experience.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound), "foreign rows look like they do not exist")
}

func TestSoftDeleteHidesEverywhere(t *testing.T) {
	svc, _ := newTestWorkflow()
	ctx := context.Background()

	experience := createDraft(t, svc, partnerActor)
	_, err := svc.Publish(ctx, adminActor, experience.ID)
	require.NoError(t, err)

	require.NoError(t, svc.SoftDelete(ctx, adminActor, experience.ID))

	_, err = svc.GetPublic(ctx, experience.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	_, err = svc.Unpublish(ctx, adminActor, experience.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestListPublicDefaultsToFeatured(t *testing.T) {
	svc, _ := newTestWorkflow()
	ctx := context.Background()

	// Approved experience, featured by the approve path.
	first := createDraft(t, svc, partnerActor)
	_, err := svc.Submit(ctx, partnerActor, first.ID)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, adminActor, first.ID)
	require.NoError(t, err)

	// Directly published one stays unfeatured.
	second := createDraft(t, svc, partnerActor)
	_, err = svc.Publish(ctx, adminActor, second.ID)
	require.NoError(t, err)

	items, meta, err := svc.ListPublic(ctx, PublicListInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, meta.Total)
	require.Len(t, items, 1)
	assert.Equal(t, first.ID, items[0].ID)

	all := false
	items, meta, err = svc.ListPublic(ctx, PublicListInput{Featured: &all})
	require.NoError(t, err)
	assert.Equal(t, 2, meta.Total)
	assert.Len(t, items, 2)
}

func TestPageRequestNormalize(t *testing.T) {
	page, limit, offset := PageRequest{}.Normalize()
	assert.Equal(t, 1, page)
	assert.Equal(t, defaultPageLimit, limit)
	assert.Equal(t, 0, offset)

	page, limit, offset = PageRequest{Page: 3, Limit: 250}.Normalize()
	assert.Equal(t, 3, page)
	assert.Equal(t, maxPageLimit, limit, "limit is capped, not rejected")
	assert.Equal(t, 200, offset)

	_, limit, _ = PageRequest{Page: -5, Limit: -1}.Normalize()
	assert.Equal(t, defaultPageLimit, limit)
}

func TestListOwnFiltersByStatus(t *testing.T) {
	svc, _ := newTestWorkflow()
	ctx := context.Background()

	draft := createDraft(t, svc, partnerActor)
	pending := createDraft(t, svc, partnerActor)
	_, err := svc.Submit(ctx, partnerActor, pending.ID)
	require.NoError(t, err)

	items, meta, err := svc.ListOwn(ctx, partnerActor, nil, PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, meta.Total)
	assert.Len(t, items, 2)

	status := models.ExperienceStatusDraft
	items, meta, err = svc.ListOwn(ctx, partnerActor, &status, PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, meta.Total)
	require.Len(t, items, 1)
	assert.Equal(t, draft.ID, items[0].ID)
}

func TestListPendingAdminOnly(t *testing.T) {
	svc, _ := newTestWorkflow()
	ctx := context.Background()

	experience := createDraft(t, svc, partnerActor)
	_, err := svc.Submit(ctx, partnerActor, experience.ID)
	require.NoError(t, err)

	items, meta, err := svc.ListPending(ctx, adminActor, PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, meta.Total)
	assert.Len(t, items, 1)

	_, _, err = svc.ListPending(ctx, partnerActor, PageRequest{})
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}
