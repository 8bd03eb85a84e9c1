package identity

import (
	"github.com/ibtikar/ibtikar-backend/internal/gateway"
)

// Role is fixed at registration and never changes afterward.
type Role string

const (
	RoleCreator Role = "creator"
	RoleCompany Role = "company"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCreator, RoleCompany, RoleAdmin:
		return true
	}
	return false
}

// Collection is where profile records live.
const Collection = "users"

// Identity is the application-level user: the provider principal combined
// with its persisted profile record.
type Identity struct {
	ID              string   `json:"id"`
	Email           string   `json:"email"`
	DisplayName     string   `json:"displayName"`
	Role            Role     `json:"role"`
	ProfileComplete bool     `json:"profileComplete"`

	// creator fields
	Bio    string   `json:"bio,omitempty"`
	Skills []string `json:"skills,omitempty"`

	// company fields
	CompanySize string `json:"companySize,omitempty"`
	Industry    string `json:"industry,omitempty"`
}

// FromDocument maps a profile record to an Identity. The id argument wins
// over any id field inside the document.
func FromDocument(id string, doc gateway.Document) *Identity {
	ident := &Identity{ID: id}
	ident.Email, _ = doc["email"].(string)
	ident.DisplayName, _ = doc["displayName"].(string)
	if r, ok := doc["role"].(string); ok {
		ident.Role = Role(r)
	}
	ident.ProfileComplete, _ = doc["profileComplete"].(bool)
	ident.Bio, _ = doc["bio"].(string)
	ident.Skills = toStrings(doc["skills"])
	ident.CompanySize, _ = doc["companySize"].(string)
	ident.Industry, _ = doc["industry"].(string)
	return ident
}

// NewProfileDocument is the record persisted at registration.
func NewProfileDocument(email, displayName string, role Role) gateway.Document {
	return gateway.Document{
		"email":           email,
		"displayName":     displayName,
		"role":            string(role),
		"profileComplete": false,
	}
}

// updatable is the set of profile fields a caller may change after
// registration. Role and email are immutable.
var updatable = map[string]bool{
	"displayName": true,
	"bio":         true,
	"skills":      true,
	"companySize": true,
	"industry":    true,
}

// ProfilePatch filters a partial update down to the updatable fields.
// A non-empty patch also marks the profile complete; nothing ever resets it.
func ProfilePatch(partial gateway.Document) gateway.Document {
	patch := gateway.Document{}
	for k, v := range partial {
		if updatable[k] {
			patch[k] = v
		}
	}
	if len(patch) > 0 {
		patch["profileComplete"] = true
	}
	return patch
}

// Clone returns an independent copy; consumers get read snapshots, never a
// reference that could drift from the store's copy.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	cp := *i
	if i.Skills != nil {
		cp.Skills = append([]string(nil), i.Skills...)
	}
	return &cp
}

func toStrings(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
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
