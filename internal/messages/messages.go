package messages

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ibtikar/ibtikar-backend/internal/gateway"
	"github.com/ibtikar/ibtikar-backend/internal/identity"
)

const Collection = "messages"

var (
	ErrEmptyContent = errors.New("message content is empty")
	ErrNoReceiver   = errors.New("receiver is required")
)

// Message is one direct message between two users.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

func FromDocument(doc gateway.Document) *Message {
	m := &Message{}
	m.ID, _ = doc["id"].(string)
	m.SenderID, _ = doc["senderId"].(string)
	m.ReceiverID, _ = doc["receiverId"].(string)
	m.Content, _ = doc["content"].(string)
	if t, ok := doc["timestamp"].(time.Time); ok {
		m.Timestamp = t
	}
	return m
}

func fromDocuments(docs []gateway.Document) []*Message {
	out := make([]*Message, 0, len(docs))
	for _, d := range docs {
		out = append(out, FromDocument(d))
	}
	return out
}

type Service struct {
	gw gateway.Gateway
}

func NewService(gw gateway.Gateway) *Service { return &Service{gw: gw} }

// conversationFilters matches both directions of a two-party conversation.
func conversationFilters(a, b string) []gateway.Filter {
	return []gateway.Filter{
		gateway.In("senderId", a, b),
		gateway.In("receiverId", a, b),
	}
}

// Conversation returns the full two-way history, oldest first.
func (s *Service) Conversation(ctx context.Context, viewerID, peerID string) ([]*Message, error) {
	docs, err := s.gw.Query(ctx, Collection, conversationFilters(viewerID, peerID), &gateway.Ordering{Field: "timestamp"})
	if err != nil {
		return nil, err
	}
	return fromDocuments(docs), nil
}

// Send writes one message; best-effort, at most once.
func (s *Service) Send(ctx context.Context, ident *identity.Identity, receiverID, content string) (*Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if receiverID == "" {
		return nil, ErrNoReceiver
	}
	doc := gateway.Document{
		"senderId":   ident.ID,
		"receiverId": receiverID,
		"content":    content,
		"timestamp":  time.Now().UTC(),
	}
	id, err := s.gw.Create(ctx, Collection, doc)
	if err != nil {
		return nil, err
	}
	doc["id"] = id
	return FromDocument(doc), nil
}

// Feed is one viewer's live conversation subscription. Opening a different
// peer (or a different viewer re-using the feed) releases the previous
// subscription first, so listeners never leak and no batch for a stale
// conversation is delivered once a new one is selected.
type Feed struct {
	gw    gateway.Gateway
	unsub gateway.Unsubscribe
}

func NewFeed(gw gateway.Gateway) *Feed { return &Feed{gw: gw} }

// Open subscribes to the (viewer, peer) conversation. onBatch receives the
// full ordered history immediately and again after every delivered write.
func (f *Feed) Open(ctx context.Context, viewerID, peerID string, onBatch func([]*Message)) error {
	f.Close()
	unsub, err := f.gw.Subscribe(ctx, Collection, conversationFilters(viewerID, peerID), &gateway.Ordering{Field: "timestamp"}, func(docs []gateway.Document) {
		onBatch(fromDocuments(docs))
	})
	if err != nil {
		return err
	}
	f.unsub = unsub
	return nil
}

// Close releases the current subscription. Idempotent.
func (f *Feed) Close() {
	if f.unsub != nil {
		f.unsub()
		f.unsub = nil
	}
}
