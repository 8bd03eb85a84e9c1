package payments

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ibtikar/ibtikar-backend/internal/gateway"
	"github.com/ibtikar/ibtikar-backend/internal/identity"
)

var (
	company = &identity.Identity{ID: "c1", Role: identity.RoleCompany}
	creator = &identity.Identity{ID: "u1", Role: identity.RoleCreator}
	admin   = &identity.Identity{ID: "a1", Role: identity.RoleAdmin}
)

func TestCreateAndListByRole(t *testing.T) {
	gw := gateway.NewMemory()
	svc := NewService(gw)
	ctx := context.Background()

	_, err := svc.Create(ctx, company, "p1", "u1", 500)
	require.NoError(t, err)
	_, err = svc.Create(ctx, company, "p2", "u2", 800)
	require.NoError(t, err)

	mine, err := svc.ListFor(ctx, creator)
	require.NoError(t, err)
	require.Len(t, mine, 1, "creators see only what they are owed")

	owed, err := svc.ListFor(ctx, company)
	require.NoError(t, err)
	require.Len(t, owed, 2)

	all, err := svc.ListFor(ctx, admin)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestCreateChecks(t *testing.T) {
	svc := NewService(gateway.NewMemory())
	ctx := context.Background()

	_, err := svc.Create(ctx, creator, "p1", "u1", 500)
	require.ErrorIs(t, err, ErrNotCompany)

	_, err = svc.Create(ctx, company, "p1", "u1", -1)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestComplete(t *testing.T) {
	gw := gateway.NewMemory()
	svc := NewService(gw)
	ctx := context.Background()

	p, err := svc.Create(ctx, company, "p1", "u1", 500)
	require.NoError(t, err)

	tx, err := svc.Complete(ctx, company, p.ID)
	require.NoError(t, err)
	require.Equal(t, p.ID, tx.PaymentID)
	require.Equal(t, 500.0, tx.Amount)
	require.Equal(t, StatusCompleted, tx.Status)

	// payment flipped and transaction persisted
	doc, err := gw.Get(ctx, Collection, p.ID)
	require.NoError(t, err)
	require.Equal(t, "completed", doc["status"])

	txs, err := gw.Query(ctx, TransactionsCollection, []gateway.Filter{gateway.Eq("paymentId", p.ID)}, nil)
	require.NoError(t, err)
	require.Len(t, txs, 1)

	_, err = svc.Complete(ctx, company, p.ID)
	require.ErrorIs(t, err, ErrAlreadyCompleted)
}

func TestCompleteChecks(t *testing.T) {
	gw := gateway.NewMemory()
	svc := NewService(gw)
	ctx := context.Background()

	p, err := svc.Create(ctx, company, "p1", "u1", 500)
	require.NoError(t, err)

	_, err = svc.Complete(ctx, creator, p.ID)
	require.ErrorIs(t, err, ErrNotCompany)

	_, err = svc.Complete(ctx, &identity.Identity{ID: "c9", Role: identity.RoleCompany}, p.ID)
	require.ErrorIs(t, err, ErrNotOwner)

	_, err = svc.Complete(ctx, company, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCompleteTransactionFailureLeavesPaymentPending(t *testing.T) {
	gw := gateway.NewMemory()
	svc := NewService(gw)
	ctx := context.Background()

	p, err := svc.Create(ctx, company, "p1", "u1", 500)
	require.NoError(t, err)

	gw.FailNextPut = context.DeadlineExceeded
	gw.FailCollection = TransactionsCollection
	_, err = svc.Complete(ctx, company, p.ID)
	require.Error(t, err)

	doc, err := gw.Get(ctx, Collection, p.ID)
	require.NoError(t, err)
	require.Equal(t, "pending", doc["status"], "no status flip without a transaction record")
}
