package authprovider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ibtikar/ibtikar-backend/internal/gateway"
)

func TestLocalCreateAndAuthenticate(t *testing.T) {
	gw := gateway.NewMemory()
	p := NewLocal(gw)
	ctx := context.Background()

	var events []*Principal
	remove := p.OnAuthChange(func(pr *Principal) { events = append(events, pr) })
	defer remove()

	created, err := p.CreateAccount(ctx, "A@X.com", "password1")
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	require.NoError(t, p.SignOut(ctx))

	authed, err := p.Authenticate(ctx, "a@x.com", "password1")
	require.NoError(t, err)
	require.Equal(t, created.ID, authed.ID)

	require.Len(t, events, 3)
	require.NotNil(t, events[0])
	require.Nil(t, events[1])
	require.NotNil(t, events[2])
}

func TestLocalInvalidCredentials(t *testing.T) {
	gw := gateway.NewMemory()
	p := NewLocal(gw)
	ctx := context.Background()

	_, err := p.Authenticate(ctx, "nobody@x.com", "whatever1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.True(t, IsAuthError(err))

	_, err = p.CreateAccount(ctx, "a@x.com", "password1")
	require.NoError(t, err)
	_, err = p.Authenticate(ctx, "a@x.com", "wrongpass")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLocalDuplicateAccount(t *testing.T) {
	gw := gateway.NewMemory()
	p := NewLocal(gw)
	ctx := context.Background()

	_, err := p.CreateAccount(ctx, "a@x.com", "password1")
	require.NoError(t, err)
	_, err = p.CreateAccount(ctx, "A@x.com ", "password2")
	require.ErrorIs(t, err, ErrDuplicateAccount)
}

func TestLocalShortPassword(t *testing.T) {
	p := NewLocal(gateway.NewMemory())
	_, err := p.CreateAccount(context.Background(), "a@x.com", "short")
	require.True(t, IsAuthError(err))
}

func TestOnAuthChangeRemove(t *testing.T) {
	p := NewLocal(gateway.NewMemory())
	ctx := context.Background()

	count := 0
	remove := p.OnAuthChange(func(*Principal) { count++ })

	_, err := p.CreateAccount(ctx, "a@x.com", "password1")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	remove()
	remove() // idempotent
	require.NoError(t, p.SignOut(ctx))
	require.Equal(t, 1, count)
}
