package guard

import (
	"github.com/ibtikar/ibtikar-backend/internal/session"
)

// Decision is what a protected view should do given the session state.
type Decision int

const (
	// Wait: session state is still unknown; render nothing rather than
	// flashing a protected view or a premature redirect.
	Wait Decision = iota
	// Redirect: anonymous caller, send to the login entry point.
	Redirect
	// Allow: authenticated, render the requested view.
	Allow
)

// LoginPath is the entry point anonymous callers are redirected to.
const LoginPath = "/login"

// Check gates a protected view on session state alone. Role-based checks are
// each view's own concern and are UX affordances only; they are not a
// security boundary. Enforcement belongs to the backing store's own
// authorization rules.
func Check(snap session.Snapshot) Decision {
	switch snap.State {
	case session.StateUnknown:
		return Wait
	case session.StateAuthenticated:
		return Allow
	}
	return Redirect
}
