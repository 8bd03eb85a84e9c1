package refresh

import (
	"context"
	"testing"
	"time"
)

// fake repo for testing
type fakeRepo struct {
	store map[string]*Session
}

func (f *fakeRepo) Create(ctx context.Context, s *Session) error {
	if f.store == nil {
		f.store = map[string]*Session{}
	}
	f.store[s.Token] = s
	return nil
}

func (f *fakeRepo) GetByToken(ctx context.Context, token string) (*Session, error) {
	if f.store == nil {
		return nil, nil
	}
	s, ok := f.store[token]
	if !ok {
		return nil, nil
	}
	return s, nil
}

func (f *fakeRepo) DeleteByToken(ctx context.Context, token string) error {
	delete(f.store, token)
	return nil
}

func TestIssueValidateRevoke(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	token, err := svc.Issue(ctx, "u1", time.Hour)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if token == "" {
		t.Fatalf("expected a token")
	}

	sess, err := svc.Validate(ctx, token)
	if err != nil {
		t.Fatalf("validate error: %v", err)
	}
	if sess == nil || sess.UserID != "u1" {
		t.Fatalf("unexpected session: %v", sess)
	}

	if err := svc.Revoke(ctx, token); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	sess2, _ := svc.Validate(ctx, token)
	if sess2 != nil {
		t.Fatalf("expected session removed")
	}
}

func TestValidateExpiredSessionCleansUp(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	token, err := svc.Issue(ctx, "u1", -time.Minute)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	sess, err := svc.Validate(ctx, token)
	if err != nil {
		t.Fatalf("validate error: %v", err)
	}
	if sess != nil {
		t.Fatalf("expected expired session to be rejected")
	}
	if _, ok := repo.store[token]; ok {
		t.Fatalf("expected expired session to be deleted")
	}
}
