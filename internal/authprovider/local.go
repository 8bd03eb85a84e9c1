package authprovider

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ibtikar/ibtikar-backend/internal/gateway"
)

const accountsCollection = "accounts"

// Local verifies email/password credentials against bcrypt hashes stored in
// the accounts collection. It owns the provider-side session slot: the last
// authenticated principal, cleared on SignOut.
type Local struct {
	gw gateway.Gateway

	mu        sync.Mutex
	current   *Principal
	listeners map[int]func(*Principal)
	nextID    int
}

func NewLocal(gw gateway.Gateway) *Local {
	return &Local{gw: gw, listeners: make(map[int]func(*Principal))}
}

func (l *Local) Authenticate(ctx context.Context, email, password string) (*Principal, error) {
	doc, id, err := l.findAccount(ctx, email)
	if err != nil {
		return nil, &AuthError{Reason: "account lookup failed", Err: err}
	}
	if doc == nil {
		return nil, ErrInvalidCredentials
	}
	hash, _ := doc["passwordHash"].(string)
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	p := &Principal{ID: id, Email: email}
	if dn, ok := doc["displayName"].(string); ok {
		p.DisplayName = dn
	}
	l.setCurrent(p)
	return p, nil
}

func (l *Local) CreateAccount(ctx context.Context, email, password string) (*Principal, error) {
	if len(password) < 8 {
		return nil, &AuthError{Reason: "password too short"}
	}
	existing, _, err := l.findAccount(ctx, email)
	if err != nil {
		return nil, &AuthError{Reason: "account lookup failed", Err: err}
	}
	if existing != nil {
		return nil, ErrDuplicateAccount
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, &AuthError{Reason: "hashing failed", Err: err}
	}
	id, err := l.gw.Create(ctx, accountsCollection, gateway.Document{
		"email":        normalizeEmail(email),
		"passwordHash": string(hash),
		"hashVersion":  "bcrypt",
		"createdAt":    time.Now().UTC(),
	})
	if err != nil {
		return nil, &AuthError{Reason: "account creation failed", Err: err}
	}
	p := &Principal{ID: id, Email: email}
	l.setCurrent(p)
	return p, nil
}

func (l *Local) SignOut(ctx context.Context) error {
	l.setCurrent(nil)
	return nil
}

// ExpireSession simulates a provider-initiated sign-out (token expiry).
func (l *Local) ExpireSession() {
	l.setCurrent(nil)
}

func (l *Local) OnAuthChange(fn func(*Principal)) (remove func()) {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.listeners[id] = fn
	l.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.listeners, id)
			l.mu.Unlock()
		})
	}
}

func (l *Local) setCurrent(p *Principal) {
	l.mu.Lock()
	l.current = p
	fns := make([]func(*Principal), 0, len(l.listeners))
	for _, fn := range l.listeners {
		fns = append(fns, fn)
	}
	l.mu.Unlock()
	for _, fn := range fns {
		fn(p)
	}
}

func (l *Local) findAccount(ctx context.Context, email string) (gateway.Document, string, error) {
	docs, err := l.gw.Query(ctx, accountsCollection, []gateway.Filter{gateway.Eq("email", normalizeEmail(email))}, nil)
	if err != nil {
		return nil, "", err
	}
	if len(docs) == 0 {
		return nil, "", nil
	}
	doc := docs[0]
	id, _ := doc["id"].(string)
	return doc, id, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
