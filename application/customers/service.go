package customers

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"pawnshop/application/activity"
	"pawnshop/common"
	"pawnshop/internal/apperr"
	"pawnshop/internal/auth"
)

const defaultTier = "Standard"

type CreateRequest struct {
	BranchID      string `json:"branch_id"`
	FullName      string `json:"full_name" binding:"required,max=100"`
	ContactNumber string `json:"contact_number" binding:"required,max=50"`
	Address       string `json:"address" binding:"max=255"`
	LoyaltyTier   string `json:"loyalty_tier" binding:"max=20"`
}

// UpdateRequest patches the contact fields; nil fields stay unchanged.
type UpdateRequest struct {
	FullName      *string `json:"full_name"`
	ContactNumber *string `json:"contact_number"`
	Address       *string `json:"address"`
	LoyaltyTier   *string `json:"loyalty_tier"`
}

type ListFilter struct {
	BranchID string
	Search   string
	Limit    int
	Offset   int
}

func (f ListFilter) limit() int {
	switch {
	case f.Limit <= 0:
		return 50
	case f.Limit > 500:
		return 500
	}
	return f.Limit
}

type Page struct {
	Items []common.Customer `json:"items"`
	Total int64             `json:"total"`
}

type Service struct {
	repo *Repository
	log  *zap.Logger
}

// NewService creates a new Service
func NewService(repo *Repository, log *zap.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func (s *Service) Create(ctx context.Context, actor auth.Actor, req CreateRequest) (*common.Customer, error) {
	c := &common.Customer{
		FullName:      strings.TrimSpace(req.FullName),
		ContactNumber: strings.TrimSpace(req.ContactNumber),
		Address:       strings.TrimSpace(req.Address),
		LoyaltyTier:   strings.TrimSpace(req.LoyaltyTier),
	}
	if c.FullName == "" || c.ContactNumber == "" {
		return nil, apperr.InvalidInput("full_name and contact_number must not be blank")
	}
	if c.LoyaltyTier == "" {
		c.LoyaltyTier = defaultTier
	}

	branchID, err := actor.Branch(req.BranchID)
	if err != nil {
		return nil, err
	}
	if branchID == "" {
		return nil, apperr.InvalidInput("branch_id is required")
	}
	c.BranchID = branchID

	err = s.repo.WithTx(ctx, func(tx *Repository) error {
		branch, err := tx.FindBranch(ctx, branchID)
		if err != nil {
			return apperr.FromDB(err, "branch "+branchID)
		}
		if !branch.IsActive {
			return apperr.PermissionDenied("branch is suspended")
		}
		if err := tx.Create(ctx, c); err != nil {
			return apperr.FromDB(err, "customer")
		}
		return activity.Record(tx.DB().WithContext(ctx), actor, activity.Event{
			Action:     activity.CustomerCreate,
			EntityType: "customer",
			EntityID:   c.ID,
			BranchID:   branchID,
			Detail:     map[string]string{"full_name": c.FullName},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("customer created", zap.String("customerId", c.ID), zap.String("branchId", branchID))
	return c, nil
}

func (s *Service) List(ctx context.Context, actor auth.Actor, f ListFilter) (*Page, error) {
	branchID, err := actor.Branch(f.BranchID)
	if err != nil {
		return nil, err
	}
	f.BranchID = branchID
	f.Search = strings.TrimSpace(f.Search)

	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, apperr.FromDB(err, "customers")
	}
	if items == nil {
		items = []common.Customer{}
	}
	return &Page{Items: items, Total: total}, nil
}

// Get returns the customer with its tickets.
func (s *Service) Get(ctx context.Context, actor auth.Actor, id string) (*common.Customer, error) {
	branchID, err := actor.Branch("")
	if err != nil {
		return nil, err
	}
	c, err := s.repo.Get(ctx, id, branchID, true)
	if err != nil {
		return nil, apperr.FromDB(err, "customer "+id)
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, actor auth.Actor, id string, req UpdateRequest) (*common.Customer, error) {
	fields := map[string]any{}
	set := func(column string, v *string, required bool) error {
		if v == nil {
			return nil
		}
		trimmed := strings.TrimSpace(*v)
		if required && trimmed == "" {
			return apperr.InvalidInput("%s must not be empty", column)
		}
		fields[column] = trimmed
		return nil
	}
	if err := set("full_name", req.FullName, true); err != nil {
		return nil, err
	}
	if err := set("contact_number", req.ContactNumber, true); err != nil {
		return nil, err
	}
	if err := set("address", req.Address, false); err != nil {
		return nil, err
	}
	if err := set("loyalty_tier", req.LoyaltyTier, true); err != nil {
		return nil, err
	}

	branchID, err := actor.Branch("")
	if err != nil {
		return nil, err
	}

	var out *common.Customer
	err = s.repo.WithTx(ctx, func(tx *Repository) error {
		c, err := tx.Get(ctx, id, branchID, false)
		if err != nil {
			return apperr.FromDB(err, "customer "+id)
		}
		if len(fields) > 0 {
			if err := tx.Update(ctx, id, fields); err != nil {
				return apperr.FromDB(err, "customer")
			}
			if err := activity.Record(tx.DB().WithContext(ctx), actor, activity.Event{
				Action:     activity.CustomerUpdate,
				EntityType: "customer",
				EntityID:   id,
				BranchID:   c.BranchID,
				Detail:     fields,
			}); err != nil {
				return err
			}
		}
		out, err = tx.Get(ctx, id, branchID, false)
		return apperr.FromDB(err, "customer "+id)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the customer together with its tickets, loans, inventory
// records and transactions.
func (s *Service) Delete(ctx context.Context, actor auth.Actor, id string) error {
	branchID, err := actor.Branch("")
	if err != nil {
		return err
	}

	return s.repo.WithTx(ctx, func(tx *Repository) error {
		c, err := tx.Get(ctx, id, branchID, false)
		if err != nil {
			return apperr.FromDB(err, "customer "+id)
		}
		tickets, err := tx.CountTickets(ctx, id)
		if err != nil {
			return apperr.FromDB(err, "tickets")
		}
		if err := tx.Delete(ctx, id); err != nil {
			return apperr.FromDB(err, "customer "+id)
		}

		s.log.Info("customer deleted", zap.String("customerId", id), zap.Int64("tickets", tickets))
		return activity.Record(tx.DB().WithContext(ctx), actor, activity.Event{
			Action:     activity.CustomerDelete,
			EntityType: "customer",
			EntityID:   id,
			BranchID:   c.BranchID,
			Detail:     map[string]any{"full_name": c.FullName, "tickets": tickets},
		})
	})
}
