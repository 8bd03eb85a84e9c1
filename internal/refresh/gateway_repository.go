package refresh

import (
	"context"
	"time"

	"github.com/ibtikar/ibtikar-backend/internal/gateway"
)

const sessionsCollection = "refreshSessions"

// GatewayRepository stores sessions through the document gateway, keyed by
// token. The gateway has no delete operation, so revocation writes a
// tombstone; Validate's expiry cleanup covers eventual removal in stores
// that support TTLs.
type GatewayRepository struct {
	gw gateway.Gateway
}

func NewGatewayRepository(gw gateway.Gateway) *GatewayRepository {
	return &GatewayRepository{gw: gw}
}

func (r *GatewayRepository) Create(ctx context.Context, s *Session) error {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	doc := gateway.Document{
		"userId":    s.UserID,
		"expiresAt": s.ExpiresAt,
		"createdAt": s.CreatedAt,
	}
	return r.gw.Put(ctx, sessionsCollection, s.Token, doc, false)
}

func (r *GatewayRepository) GetByToken(ctx context.Context, token string) (*Session, error) {
	doc, err := r.gw.Get(ctx, sessionsCollection, token)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	if revoked, _ := doc["revoked"].(bool); revoked {
		return nil, nil
	}
	s := &Session{Token: token}
	s.UserID, _ = doc["userId"].(string)
	if t, ok := doc["expiresAt"].(time.Time); ok {
		s.ExpiresAt = t
	}
	if t, ok := doc["createdAt"].(time.Time); ok {
		s.CreatedAt = t
	}
	return s, nil
}

func (r *GatewayRepository) DeleteByToken(ctx context.Context, token string) error {
	return r.gw.Put(ctx, sessionsCollection, token, gateway.Document{"revoked": true}, true)
}
