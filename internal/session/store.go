package session

import (
	"context"
	"errors"
	"sync"

	"github.com/ibtikar/ibtikar-backend/internal/authprovider"
	"github.com/ibtikar/ibtikar-backend/internal/gateway"
	"github.com/ibtikar/ibtikar-backend/internal/identity"
	"github.com/ibtikar/ibtikar-backend/pkg/logger"
)

// State is the session lifecycle: Unknown before the first provider event,
// then Anonymous or Authenticated.
type State int

const (
	StateUnknown State = iota
	StateAnonymous
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	}
	return "unknown"
}

var (
	// ErrNoCurrentIdentity means an operation requiring a session ran
	// without one. That is a caller bug, not a transient condition.
	ErrNoCurrentIdentity = errors.New("no current identity")

	// ErrProfileMissing means a principal exists but its profile record
	// does not. The store presents no identity rather than inventing one.
	ErrProfileMissing = errors.New("profile record missing for principal")
)

// Snapshot is the externally visible session state.
type Snapshot struct {
	State          State
	Identity       *identity.Identity // non-nil iff State is Authenticated
	Loading        bool               // true only while State is Unknown
	ProfileMissing bool               // principal without a profile record
}

// Store owns the single current Identity, synchronized with the auth
// provider. All mutation goes through Login/Register/Logout/UpdateProfile;
// everyone else reads snapshots. One instance per client context; never a
// package-level global.
type Store struct {
	gw       gateway.Gateway
	provider authprovider.Provider

	// opMu serializes the store's own operations so two UpdateProfile
	// calls cannot interleave their merges.
	opMu sync.Mutex

	mu             sync.Mutex
	state          State
	current        *identity.Identity
	profileMissing bool
	principalTag   string // id the latest provider event was for

	subs    map[int]func(Snapshot)
	nextSub int

	removeListener func()
}

func NewStore(gw gateway.Gateway, provider authprovider.Provider) *Store {
	s := &Store{
		gw:       gw,
		provider: provider,
		state:    StateUnknown,
		subs:     make(map[int]func(Snapshot)),
	}
	s.removeListener = provider.OnAuthChange(s.handleAuthChange)
	return s
}

// Close detaches from the provider. Pending events for this store are dropped.
func (s *Store) Close() {
	if s.removeListener != nil {
		s.removeListener()
	}
}

// Snapshot returns the current visible state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Current returns the current identity or ErrNoCurrentIdentity.
func (s *Store) Current() (*identity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAuthenticated || s.current == nil {
		return nil, ErrNoCurrentIdentity
	}
	return s.current.Clone(), nil
}

// Subscribe registers fn for state changes. fn is invoked immediately with
// the current snapshot, then after every change. The returned func removes
// the subscription and is idempotent.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	snap := s.snapshotLocked()
	s.mu.Unlock()
	fn(snap)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Login delegates credential verification to the provider. The identity
// itself arrives through the provider's auth-change event.
func (s *Store) Login(ctx context.Context, email, password string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	_, err := s.provider.Authenticate(ctx, email, password)
	return err
}

// Register creates a provider account, then provisions the profile record
// with the chosen role and profileComplete=false. When account creation
// succeeds but provisioning fails the caller gets the store error and the
// visible state stays anonymous-like with ProfileMissing set; the account
// is not rolled back.
func (s *Store) Register(ctx context.Context, email, password string, role identity.Role) error {
	if role != identity.RoleCreator && role != identity.RoleCompany {
		return &authprovider.AuthError{Reason: "unsupported role"}
	}
	s.opMu.Lock()
	defer s.opMu.Unlock()

	p, err := s.provider.CreateAccount(ctx, email, password)
	if err != nil {
		return err
	}
	profile := identity.NewProfileDocument(p.Email, p.DisplayName, role)
	if err := ProvisionProfile(ctx, s.gw, p.ID, profile); err != nil {
		return err
	}

	s.mu.Lock()
	if s.principalTag == p.ID {
		s.current = identity.FromDocument(p.ID, profile)
		s.state = StateAuthenticated
		s.profileMissing = false
	}
	snap := s.snapshotLocked()
	fns := s.subscribersLocked()
	s.mu.Unlock()
	publish(fns, snap)
	return nil
}

// ProvisionProfile writes the initial profile record for a freshly created
// principal. On failure the account is kept and the principal is left in the
// recoverable profile-missing state, so the warning here is the only trace of
// what happened.
func ProvisionProfile(ctx context.Context, gw gateway.Gateway, principalID string, profile gateway.Document) error {
	if err := gw.Put(ctx, identity.Collection, principalID, profile, false); err != nil {
		logger.Warnf("registration left principal %s without a profile record: %v", principalID, err)
		return err
	}
	return nil
}

// Logout terminates the provider session; the identity clears when the
// sign-out event resolves.
func (s *Store) Logout(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.provider.SignOut(ctx)
}

// UpdateProfile merges partial into the persisted record and the in-memory
// identity. On store failure the in-memory identity is untouched; after a
// successful return the two agree. Submitting profile fields marks the
// profile complete; nothing ever resets it.
func (s *Store) UpdateProfile(ctx context.Context, partial gateway.Document) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	if s.state != StateAuthenticated || s.current == nil {
		s.mu.Unlock()
		return ErrNoCurrentIdentity
	}
	id := s.current.ID
	s.mu.Unlock()

	fields := identity.ProfilePatch(partial)
	if len(fields) == 0 {
		return nil
	}

	if err := s.gw.Put(ctx, identity.Collection, id, fields, true); err != nil {
		return err
	}

	s.mu.Lock()
	if s.current != nil && s.current.ID == id {
		applyFields(s.current, fields)
	}
	snap := s.snapshotLocked()
	fns := s.subscribersLocked()
	s.mu.Unlock()
	publish(fns, snap)
	return nil
}

// handleAuthChange reacts to provider events. Each profile fetch is tagged
// with the principal id it was issued for; a result whose tag no longer
// matches the latest event is discarded, so a stale fetch can never
// overwrite a newer sign-in or sign-out.
func (s *Store) handleAuthChange(p *authprovider.Principal) {
	if p == nil {
		s.mu.Lock()
		s.principalTag = ""
		s.state = StateAnonymous
		s.current = nil
		s.profileMissing = false
		snap := s.snapshotLocked()
		fns := s.subscribersLocked()
		s.mu.Unlock()
		publish(fns, snap)
		return
	}

	s.mu.Lock()
	s.principalTag = p.ID
	s.mu.Unlock()

	doc, err := s.gw.Get(context.Background(), identity.Collection, p.ID)

	s.mu.Lock()
	if s.principalTag != p.ID {
		// superseded by a later event; discard
		s.mu.Unlock()
		return
	}
	switch {
	case err != nil:
		logger.Errorf("profile fetch for principal %s failed: %v", p.ID, err)
		s.state = StateAnonymous
		s.current = nil
		s.profileMissing = false
	case doc == nil:
		logger.Warnf("integrity: principal %s has no profile record", p.ID)
		s.state = StateAnonymous
		s.current = nil
		s.profileMissing = true
	default:
		s.state = StateAuthenticated
		s.current = identity.FromDocument(p.ID, doc)
		s.profileMissing = false
	}
	snap := s.snapshotLocked()
	fns := s.subscribersLocked()
	s.mu.Unlock()
	publish(fns, snap)
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		State:          s.state,
		Identity:       s.current.Clone(),
		Loading:        s.state == StateUnknown,
		ProfileMissing: s.profileMissing,
	}
}

func (s *Store) subscribersLocked() []func(Snapshot) {
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	return fns
}

func publish(fns []func(Snapshot), snap Snapshot) {
	for _, fn := range fns {
		fn(snap)
	}
}

func applyFields(ident *identity.Identity, fields gateway.Document) {
	for k, v := range fields {
		switch k {
		case "displayName":
			ident.DisplayName, _ = v.(string)
		case "bio":
			ident.Bio, _ = v.(string)
		case "skills":
			ident.Skills = toStringSlice(v)
		case "companySize":
			ident.CompanySize, _ = v.(string)
		case "industry":
			ident.Industry, _ = v.(string)
		case "profileComplete":
			if b, ok := v.(bool); ok && b {
				ident.ProfileComplete = true
			}
		}
	}
}

func toStringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return append([]string(nil), vv...)
	case []any:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
