package projects

import (
	"context"
	"errors"
	"time"

	"github.com/ibtikar/ibtikar-backend/internal/gateway"
	"github.com/ibtikar/ibtikar-backend/internal/identity"
)

const Collection = "projects"

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

var (
	ErrNotCompany      = errors.New("only company accounts can manage projects")
	ErrNotOwner        = errors.New("project belongs to another company")
	ErrBadTransition   = errors.New("invalid status transition")
	ErrCreatorRequired = errors.New("starting a project requires the hired creator")
	ErrNotFound        = errors.New("project not found")
	ErrInvalidBudget   = errors.New("budget must be positive")
)

// Project is a company's listing creators apply to.
type Project struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Budget      float64   `json:"budget"`
	Deadline    time.Time `json:"deadline"`
	Skills      []string  `json:"skills"`
	CompanyID   string    `json:"companyId"`
	CompanyName string    `json:"companyName"`
	CreatorID   string    `json:"creatorId,omitempty"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

func FromDocument(doc gateway.Document) *Project {
	p := &Project{}
	p.ID, _ = doc["id"].(string)
	p.Title, _ = doc["title"].(string)
	p.Description, _ = doc["description"].(string)
	if f, ok := doc["budget"].(float64); ok {
		p.Budget = f
	} else if i, ok := doc["budget"].(int); ok {
		p.Budget = float64(i)
	}
	if t, ok := doc["deadline"].(time.Time); ok {
		p.Deadline = t
	}
	p.Skills = toStrings(doc["skills"])
	p.CompanyID, _ = doc["companyId"].(string)
	p.CompanyName, _ = doc["companyName"].(string)
	p.CreatorID, _ = doc["creatorId"].(string)
	if s, ok := doc["status"].(string); ok {
		p.Status = Status(s)
	}
	if t, ok := doc["createdAt"].(time.Time); ok {
		p.CreatedAt = t
	}
	return p
}

// CreateInput is the listing form payload.
type CreateInput struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description" binding:"required"`
	Budget      float64   `json:"budget" binding:"required"`
	Deadline    time.Time `json:"deadline" binding:"required"`
	Skills      []string  `json:"skills"`
}

type Service struct {
	gw gateway.Gateway
}

func NewService(gw gateway.Gateway) *Service { return &Service{gw: gw} }

// Create opens a new listing owned by the calling company.
func (s *Service) Create(ctx context.Context, ident *identity.Identity, in CreateInput) (*Project, error) {
	if ident.Role != identity.RoleCompany {
		return nil, ErrNotCompany
	}
	if in.Budget <= 0 {
		return nil, ErrInvalidBudget
	}
	doc := gateway.Document{
		"title":       in.Title,
		"description": in.Description,
		"budget":      in.Budget,
		"deadline":    in.Deadline.UTC(),
		"skills":      in.Skills,
		"companyId":   ident.ID,
		"companyName": ident.DisplayName,
		"status":      string(StatusOpen),
		"createdAt":   time.Now().UTC(),
	}
	id, err := s.gw.Create(ctx, Collection, doc)
	if err != nil {
		return nil, err
	}
	doc["id"] = id
	return FromDocument(doc), nil
}

func (s *Service) Get(ctx context.Context, id string) (*Project, error) {
	doc, err := s.gw.Get(ctx, Collection, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrNotFound
	}
	return FromDocument(doc), nil
}

// List returns listings, optionally restricted to one status, newest first.
func (s *Service) List(ctx context.Context, status Status) ([]*Project, error) {
	var filters []gateway.Filter
	if status != "" {
		filters = append(filters, gateway.Eq("status", string(status)))
	}
	return s.query(ctx, filters)
}

func (s *Service) ListByCompany(ctx context.Context, companyID string) ([]*Project, error) {
	return s.query(ctx, []gateway.Filter{gateway.Eq("companyId", companyID)})
}

func (s *Service) ListByCreator(ctx context.Context, creatorID string) ([]*Project, error) {
	return s.query(ctx, []gateway.Filter{gateway.Eq("creatorId", creatorID)})
}

func (s *Service) query(ctx context.Context, filters []gateway.Filter) ([]*Project, error) {
	docs, err := s.gw.Query(ctx, Collection, filters, &gateway.Ordering{Field: "createdAt", Desc: true})
	if err != nil {
		return nil, err
	}
	out := make([]*Project, 0, len(docs))
	for _, d := range docs {
		out = append(out, FromDocument(d))
	}
	return out, nil
}

// UpdateStatus advances a listing along open → in_progress → completed.
// Only the owning company may advance it; moving to in_progress records the
// hired creator so their dashboard picks the project up.
func (s *Service) UpdateStatus(ctx context.Context, ident *identity.Identity, id string, next Status, creatorID string) (*Project, error) {
	if ident.Role != identity.RoleCompany {
		return nil, ErrNotCompany
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.CompanyID != ident.ID {
		return nil, ErrNotOwner
	}
	switch {
	case p.Status == StatusOpen && next == StatusInProgress:
		if creatorID == "" {
			return nil, ErrCreatorRequired
		}
	case p.Status == StatusInProgress && next == StatusCompleted:
		creatorID = p.CreatorID
	default:
		return nil, ErrBadTransition
	}
	patch := gateway.Document{"status": string(next)}
	if creatorID != "" {
		patch["creatorId"] = creatorID
	}
	if err := s.gw.Put(ctx, Collection, id, patch, true); err != nil {
		return nil, err
	}
	p.Status = next
	p.CreatorID = creatorID
	return p, nil
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
