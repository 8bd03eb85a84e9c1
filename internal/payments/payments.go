package payments

import (
	"context"
	"errors"
	"time"

	"github.com/ibtikar/ibtikar-backend/internal/gateway"
	"github.com/ibtikar/ibtikar-backend/internal/identity"
)

const (
	Collection             = "payments"
	TransactionsCollection = "transactions"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

var (
	ErrNotCompany       = errors.New("only company accounts can settle payments")
	ErrNotOwner         = errors.New("payment belongs to another company")
	ErrNotFound         = errors.New("payment not found")
	ErrAlreadyCompleted = errors.New("payment already completed")
	ErrInvalidAmount    = errors.New("amount must be positive")
)

// Payment is an amount a company owes a creator for a project.
type Payment struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	CreatorID string    `json:"creatorId"`
	CompanyID string    `json:"companyId"`
	Amount    float64   `json:"amount"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Transaction records a settled payment. Written by Complete; there is no
// charge behind it, settlement against a real payment processor is out of
// scope.
type Transaction struct {
	ID        string    `json:"id"`
	PaymentID string    `json:"paymentId"`
	Amount    float64   `json:"amount"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

func FromDocument(doc gateway.Document) *Payment {
	p := &Payment{}
	p.ID, _ = doc["id"].(string)
	p.ProjectID, _ = doc["projectId"].(string)
	p.CreatorID, _ = doc["creatorId"].(string)
	p.CompanyID, _ = doc["companyId"].(string)
	if f, ok := doc["amount"].(float64); ok {
		p.Amount = f
	}
	if s, ok := doc["status"].(string); ok {
		p.Status = Status(s)
	}
	if t, ok := doc["createdAt"].(time.Time); ok {
		p.CreatedAt = t
	}
	return p
}

type Service struct {
	gw gateway.Gateway
}

func NewService(gw gateway.Gateway) *Service { return &Service{gw: gw} }

// Create opens a pending payment from the calling company to a creator.
func (s *Service) Create(ctx context.Context, ident *identity.Identity, projectID, creatorID string, amount float64) (*Payment, error) {
	if ident.Role != identity.RoleCompany {
		return nil, ErrNotCompany
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	doc := gateway.Document{
		"projectId": projectID,
		"creatorId": creatorID,
		"companyId": ident.ID,
		"amount":    amount,
		"status":    string(StatusPending),
		"createdAt": time.Now().UTC(),
	}
	id, err := s.gw.Create(ctx, Collection, doc)
	if err != nil {
		return nil, err
	}
	doc["id"] = id
	return FromDocument(doc), nil
}

// ListFor returns the caller's payments: creators see what they are owed,
// companies what they owe. Admin sees everything.
func (s *Service) ListFor(ctx context.Context, ident *identity.Identity) ([]*Payment, error) {
	var filters []gateway.Filter
	switch ident.Role {
	case identity.RoleCreator:
		filters = append(filters, gateway.Eq("creatorId", ident.ID))
	case identity.RoleCompany:
		filters = append(filters, gateway.Eq("companyId", ident.ID))
	}
	docs, err := s.gw.Query(ctx, Collection, filters, &gateway.Ordering{Field: "createdAt", Desc: true})
	if err != nil {
		return nil, err
	}
	out := make([]*Payment, 0, len(docs))
	for _, d := range docs {
		out = append(out, FromDocument(d))
	}
	return out, nil
}

// Complete settles a pending payment: records a transaction and flips the
// payment to completed. The transaction write comes first so a failure
// between the two leaves an auditable record rather than a silently settled
// payment.
func (s *Service) Complete(ctx context.Context, ident *identity.Identity, paymentID string) (*Transaction, error) {
	if ident.Role != identity.RoleCompany {
		return nil, ErrNotCompany
	}
	doc, err := s.gw.Get(ctx, Collection, paymentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrNotFound
	}
	p := FromDocument(doc)
	if p.CompanyID != ident.ID {
		return nil, ErrNotOwner
	}
	if p.Status == StatusCompleted {
		return nil, ErrAlreadyCompleted
	}

	now := time.Now().UTC()
	txDoc := gateway.Document{
		"paymentId": paymentID,
		"amount":    p.Amount,
		"status":    string(StatusCompleted),
		"createdAt": now,
	}
	txID, err := s.gw.Create(ctx, TransactionsCollection, txDoc)
	if err != nil {
		return nil, err
	}
	if err := s.gw.Put(ctx, Collection, paymentID, gateway.Document{"status": string(StatusCompleted)}, true); err != nil {
		return nil, err
	}
	return &Transaction{ID: txID, PaymentID: paymentID, Amount: p.Amount, Status: StatusCompleted, CreatedAt: now}, nil
}
