package projects

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ibtikar/ibtikar-backend/internal/gateway"
	"github.com/ibtikar/ibtikar-backend/internal/identity"
)

var (
	company = &identity.Identity{ID: "c1", DisplayName: "Acme", Role: identity.RoleCompany}
	rival   = &identity.Identity{ID: "c2", DisplayName: "Rival", Role: identity.RoleCompany}
	creator = &identity.Identity{ID: "u1", DisplayName: "Maha", Role: identity.RoleCreator}
)

func newSvc() (*Service, *gateway.Memory) {
	gw := gateway.NewMemory()
	return NewService(gw), gw
}

func sampleInput() CreateInput {
	return CreateInput{
		Title:       "Launch video",
		Description: "90 second promo",
		Budget:      5000,
		Deadline:    time.Now().Add(30 * 24 * time.Hour),
		Skills:      []string{"editing", "motion"},
	}
}

func TestCreateRequiresCompany(t *testing.T) {
	svc, _ := newSvc()
	_, err := svc.Create(context.Background(), creator, sampleInput())
	require.ErrorIs(t, err, ErrNotCompany)
}

func TestCreateOpensListing(t *testing.T) {
	svc, _ := newSvc()
	p, err := svc.Create(context.Background(), company, sampleInput())
	require.NoError(t, err)
	require.Equal(t, StatusOpen, p.Status)
	require.Equal(t, "c1", p.CompanyID)
	require.Equal(t, "Acme", p.CompanyName)
	require.NotEmpty(t, p.ID)

	got, err := svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, p.Title, got.Title)
	require.Equal(t, []string{"editing", "motion"}, got.Skills)
}

func TestCreateRejectsNonPositiveBudget(t *testing.T) {
	svc, _ := newSvc()
	in := sampleInput()
	in.Budget = 0
	_, err := svc.Create(context.Background(), company, in)
	require.ErrorIs(t, err, ErrInvalidBudget)
}

func TestGetMissing(t *testing.T) {
	svc, _ := newSvc()
	_, err := svc.Get(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListFiltersByStatus(t *testing.T) {
	svc, _ := newSvc()
	ctx := context.Background()
	p1, err := svc.Create(ctx, company, sampleInput())
	require.NoError(t, err)
	_, err = svc.Create(ctx, company, sampleInput())
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, company, p1.ID, StatusInProgress, "u1")
	require.NoError(t, err)

	open, err := svc.List(ctx, StatusOpen)
	require.NoError(t, err)
	require.Len(t, open, 1)

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestUpdateStatusTransitions(t *testing.T) {
	svc, _ := newSvc()
	ctx := context.Background()
	p, err := svc.Create(ctx, company, sampleInput())
	require.NoError(t, err)

	// open -> completed skips a step
	_, err = svc.UpdateStatus(ctx, company, p.ID, StatusCompleted, "")
	require.ErrorIs(t, err, ErrBadTransition)

	// starting requires a creator
	_, err = svc.UpdateStatus(ctx, company, p.ID, StatusInProgress, "")
	require.ErrorIs(t, err, ErrCreatorRequired)

	started, err := svc.UpdateStatus(ctx, company, p.ID, StatusInProgress, "u1")
	require.NoError(t, err)
	require.Equal(t, "u1", started.CreatorID)

	// the creator dashboard sees it now
	mine, err := svc.ListByCreator(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 1)

	done, err := svc.UpdateStatus(ctx, company, p.ID, StatusCompleted, "")
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, done.Status)
	require.Equal(t, "u1", done.CreatorID)

	_, err = svc.UpdateStatus(ctx, company, p.ID, StatusOpen, "")
	require.ErrorIs(t, err, ErrBadTransition)
}

func TestUpdateStatusOwnership(t *testing.T) {
	svc, _ := newSvc()
	ctx := context.Background()
	p, err := svc.Create(ctx, company, sampleInput())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, rival, p.ID, StatusInProgress, "u1")
	require.ErrorIs(t, err, ErrNotOwner)

	_, err = svc.UpdateStatus(ctx, creator, p.ID, StatusInProgress, "u1")
	require.ErrorIs(t, err, ErrNotCompany)
}
