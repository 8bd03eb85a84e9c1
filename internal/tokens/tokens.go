package tokens

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ibtikar/ibtikar-backend/internal/config"
	"github.com/ibtikar/ibtikar-backend/internal/identity"
	"github.com/ibtikar/ibtikar-backend/pkg/middleware"
)

// GenerateAccessToken creates a signed JWT access token for the identity.
// Role travels in the token so handlers can shape responses without an extra
// lookup; it is a convenience, not an authorization decision.
func GenerateAccessToken(cfg *config.Config, ident *identity.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   ident.ID,
		"email": ident.Email,
		"name":  ident.DisplayName,
		"role":  string(ident.Role),
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(cfg.JWT.Secret))
}

// HSVerifier verifies locally issued HS256 access tokens. It satisfies
// middleware.Verifier alongside the optional SSO verifier.
type HSVerifier struct {
	secret []byte
}

func NewHSVerifier(secret string) *HSVerifier {
	return &HSVerifier{secret: []byte(secret)}
}

func (v *HSVerifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return &mapToken{claims: claims}, nil
}

// Chain tries each verifier in order and returns the first success. Used to
// accept both locally issued tokens and SSO id tokens on the same endpoints.
type Chain []middleware.Verifier

func (ch Chain) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	var lastErr error
	for _, v := range ch {
		tok, err := v.Verify(ctx, raw)
		if err == nil {
			return tok, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no verifier configured")
	}
	return nil, lastErr
}

type mapToken struct {
	claims jwt.MapClaims
}

func (t *mapToken) Claims(v interface{}) error {
	b, err := json.Marshal(t.claims)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
