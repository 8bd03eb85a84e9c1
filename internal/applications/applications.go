package applications

import (
	"context"
	"errors"
	"time"

	"github.com/ibtikar/ibtikar-backend/internal/gateway"
	"github.com/ibtikar/ibtikar-backend/internal/identity"
	"github.com/ibtikar/ibtikar-backend/internal/projects"
)

const Collection = "applications"

const StatusPending = "pending"

var (
	ErrNotCreator     = errors.New("only creator accounts can apply")
	ErrProjectClosed  = errors.New("project is not open for applications")
	ErrAlreadyApplied = errors.New("already applied to this project")
	ErrNotOwner       = errors.New("applications belong to another company")
)

// Application is a creator's pitch for an open project.
type Application struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	CompanyID string    `json:"companyId"`
	CreatorID string    `json:"creatorId"`
	Text      string    `json:"text"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

func FromDocument(doc gateway.Document) *Application {
	a := &Application{}
	a.ID, _ = doc["id"].(string)
	a.ProjectID, _ = doc["projectId"].(string)
	a.CompanyID, _ = doc["companyId"].(string)
	a.CreatorID, _ = doc["creatorId"].(string)
	a.Text, _ = doc["text"].(string)
	a.Status, _ = doc["status"].(string)
	if t, ok := doc["createdAt"].(time.Time); ok {
		a.CreatedAt = t
	}
	return a
}

type Service struct {
	gw       gateway.Gateway
	projects *projects.Service
}

func NewService(gw gateway.Gateway, ps *projects.Service) *Service {
	return &Service{gw: gw, projects: ps}
}

// Apply files a pending application against an open project. The company id
// is denormalized onto the record so the company dashboard can query its
// incoming applications with a single filter.
func (s *Service) Apply(ctx context.Context, ident *identity.Identity, projectID, text string) (*Application, error) {
	if ident.Role != identity.RoleCreator {
		return nil, ErrNotCreator
	}
	p, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.Status != projects.StatusOpen {
		return nil, ErrProjectClosed
	}
	existing, err := s.gw.Query(ctx, Collection, []gateway.Filter{
		gateway.Eq("projectId", projectID),
		gateway.Eq("creatorId", ident.ID),
	}, nil)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, ErrAlreadyApplied
	}
	doc := gateway.Document{
		"projectId": projectID,
		"companyId": p.CompanyID,
		"creatorId": ident.ID,
		"text":      text,
		"status":    StatusPending,
		"createdAt": time.Now().UTC(),
	}
	id, err := s.gw.Create(ctx, Collection, doc)
	if err != nil {
		return nil, err
	}
	doc["id"] = id
	return FromDocument(doc), nil
}

// ListForCompany returns applications filed against the company's projects.
func (s *Service) ListForCompany(ctx context.Context, ident *identity.Identity) ([]*Application, error) {
	return s.query(ctx, []gateway.Filter{gateway.Eq("companyId", ident.ID)})
}

// ListForCreator returns the creator's own applications.
func (s *Service) ListForCreator(ctx context.Context, ident *identity.Identity) ([]*Application, error) {
	return s.query(ctx, []gateway.Filter{gateway.Eq("creatorId", ident.ID)})
}

// ListForProject returns a project's applications to its owning company.
func (s *Service) ListForProject(ctx context.Context, ident *identity.Identity, projectID string) ([]*Application, error) {
	p, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.CompanyID != ident.ID {
		return nil, ErrNotOwner
	}
	return s.query(ctx, []gateway.Filter{gateway.Eq("projectId", projectID)})
}

func (s *Service) query(ctx context.Context, filters []gateway.Filter) ([]*Application, error) {
	docs, err := s.gw.Query(ctx, Collection, filters, &gateway.Ordering{Field: "createdAt", Desc: true})
	if err != nil {
		return nil, err
	}
	out := make([]*Application, 0, len(docs))
	for _, d := range docs {
		out = append(out, FromDocument(d))
	}
	return out, nil
}
