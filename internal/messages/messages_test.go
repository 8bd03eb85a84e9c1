package messages

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ibtikar/ibtikar-backend/internal/gateway"
	"github.com/ibtikar/ibtikar-backend/internal/identity"
)

var (
	maha = &identity.Identity{ID: "u1", DisplayName: "Maha", Role: identity.RoleCreator}
	acme = &identity.Identity{ID: "c1", DisplayName: "Acme", Role: identity.RoleCompany}
)

func TestSendValidation(t *testing.T) {
	svc := NewService(gateway.NewMemory())
	ctx := context.Background()

	_, err := svc.Send(ctx, maha, "c1", "   ")
	require.ErrorIs(t, err, ErrEmptyContent)

	_, err = svc.Send(ctx, maha, "", "hello")
	require.ErrorIs(t, err, ErrNoReceiver)
}

func TestConversationBothDirectionsOrdered(t *testing.T) {
	gw := gateway.NewMemory()
	svc := NewService(gw)
	ctx := context.Background()

	// timestamps come from Send, so order by sending order
	_, err := svc.Send(ctx, maha, "c1", "hi")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = svc.Send(ctx, acme, "u1", "hello, saw your reel")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = svc.Send(ctx, maha, "c1", "thanks")
	require.NoError(t, err)

	// a message to someone else stays out of this conversation
	_, err = svc.Send(ctx, maha, "c2", "unrelated")
	require.NoError(t, err)

	conv, err := svc.Conversation(ctx, "u1", "c1")
	require.NoError(t, err)
	require.Len(t, conv, 3)
	require.Equal(t, "hi", conv[0].Content)
	require.Equal(t, "hello, saw your reel", conv[1].Content)
	require.Equal(t, "thanks", conv[2].Content)
	require.Equal(t, "c1", conv[1].SenderID)
}

func TestFeedDeliversAndStopsAfterClose(t *testing.T) {
	gw := gateway.NewMemory()
	svc := NewService(gw)
	feed := NewFeed(gw)
	ctx := context.Background()

	var batches [][]*Message
	err := feed.Open(ctx, "u1", "c1", func(ms []*Message) {
		batches = append(batches, ms)
	})
	require.NoError(t, err)
	require.Len(t, batches, 1, "initial snapshot delivered on open")
	require.Empty(t, batches[0])

	for _, content := range []string{"one", "two", "three"} {
		_, err = svc.Send(ctx, maha, "c1", content)
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}
	require.Len(t, batches, 4)
	last := batches[len(batches)-1]
	require.Len(t, last, 3)
	require.Equal(t, "three", last[2].Content)

	feed.Close()
	feed.Close() // idempotent

	_, err = svc.Send(ctx, acme, "u1", "after close")
	require.NoError(t, err)
	require.Len(t, batches, 4, "no batch after the feed is closed")
}

func TestFeedReleasesPreviousOnReopen(t *testing.T) {
	gw := gateway.NewMemory()
	svc := NewService(gw)
	feed := NewFeed(gw)
	ctx := context.Background()

	var fromC1, fromC2 int
	err := feed.Open(ctx, "u1", "c1", func([]*Message) { fromC1++ })
	require.NoError(t, err)

	err = feed.Open(ctx, "u1", "c2", func([]*Message) { fromC2++ })
	require.NoError(t, err)

	_, err = svc.Send(ctx, maha, "c1", "old peer")
	require.NoError(t, err)
	_, err = svc.Send(ctx, maha, "c2", "new peer")
	require.NoError(t, err)

	require.Equal(t, 1, fromC1, "only the initial snapshot before the switch")
	require.Equal(t, 2, fromC2, "snapshot plus the one write that changed the result")
}
