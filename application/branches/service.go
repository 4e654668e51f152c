package branches

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pawnshop/application/activity"
	"pawnshop/common"
	"pawnshop/internal/apperr"
	"pawnshop/internal/auth"
	"pawnshop/internal/policy"
)

var defaultInterestCap = decimal.NewFromInt(10)

// Defaults apply to newly onboarded branches.
type Defaults struct {
	InterestRate decimal.Decimal
	InterestCap  decimal.Decimal
	Features     map[string]bool
	InviteTTL    time.Duration
}

type CreateRequest struct {
	Name         string           `json:"name" binding:"required,max=100"`
	Location     string           `json:"location" binding:"max=255"`
	InterestRate *decimal.Decimal `json:"interest_rate"`
	InterestCap  *decimal.Decimal `json:"interest_cap"`
	Features     map[string]bool  `json:"features"`
}

// SettingsRequest updates the per-branch settings; omitted fields stay.
type SettingsRequest struct {
	Name         *string          `json:"name"`
	Location     *string          `json:"location"`
	InterestRate *decimal.Decimal `json:"interest_rate"`
	InterestCap  *decimal.Decimal `json:"interest_cap"`
	Features     map[string]bool  `json:"features"`
}

type InviteRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type Service struct {
	repo     *Repository
	defaults Defaults
	log      *zap.Logger
	now      func() time.Time
}

// NewService creates a new Service
func NewService(repo *Repository, defaults Defaults, log *zap.Logger) *Service {
	if defaults.InterestRate.IsZero() {
		defaults.InterestRate = policy.DefaultInterestRate
	}
	if defaults.InterestCap.IsZero() {
		defaults.InterestCap = defaultInterestCap
	}
	if defaults.InviteTTL <= 0 {
		defaults.InviteTTL = 7 * 24 * time.Hour
	}
	return &Service{repo: repo, defaults: defaults, log: log, now: time.Now}
}

func requirePlatform(actor auth.Actor) error {
	if !actor.IsSuperAdmin() {
		return apperr.PermissionDenied("only platform administrators manage branches")
	}
	return nil
}

func validateRates(rate, limit decimal.Decimal) error {
	if !rate.IsPositive() || !limit.IsPositive() {
		return apperr.InvalidInput("interest rate and cap must be positive")
	}
	if rate.GreaterThan(limit) {
		return apperr.InvalidInput("interest rate %s exceeds the cap %s", rate, limit)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, actor auth.Actor, req CreateRequest) (*common.Branch, error) {
	if err := requirePlatform(actor); err != nil {
		return nil, err
	}

	b := &common.Branch{
		Name:         strings.TrimSpace(req.Name),
		Location:     strings.TrimSpace(req.Location),
		IsActive:     true,
		InterestRate: s.defaults.InterestRate,
		InterestCap:  s.defaults.InterestCap,
		Features:     common.AllFeatures(),
	}
	if b.Name == "" {
		return nil, apperr.InvalidInput("name must not be blank")
	}
	if req.InterestRate != nil {
		b.InterestRate = *req.InterestRate
	}
	if req.InterestCap != nil {
		b.InterestCap = *req.InterestCap
	}
	if err := validateRates(b.InterestRate, b.InterestCap); err != nil {
		return nil, err
	}
	b.Features.Apply(s.defaults.Features)
	b.Features.Apply(req.Features)

	err := s.repo.WithTx(ctx, func(tx *Repository) error {
		if err := tx.Create(ctx, b); err != nil {
			return apperr.FromDB(err, "branch "+b.Name)
		}
		return activity.Record(tx.DB().WithContext(ctx), actor, activity.Event{
			Action:     activity.BranchCreate,
			EntityType: "branch",
			EntityID:   b.ID,
			BranchID:   b.ID,
			Detail:     map[string]any{"name": b.Name},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("branch onboarded", zap.String("branchId", b.ID), zap.String("name", b.Name))
	return b, nil
}

func (s *Service) List(ctx context.Context, actor auth.Actor) ([]Summary, error) {
	if err := requirePlatform(actor); err != nil {
		return nil, err
	}
	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.FromDB(err, "branches")
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, actor auth.Actor, id string) (*common.Branch, error) {
	if _, err := actor.Branch(id); err != nil {
		return nil, err
	}
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperr.FromDB(err, "branch "+id)
	}
	return b, nil
}

// update loads the branch, applies fn and saves it with one activity entry.
func (s *Service) update(ctx context.Context, actor auth.Actor, id string, fn func(b *common.Branch) (activity.Event, error)) (*common.Branch, error) {
	if err := requirePlatform(actor); err != nil {
		return nil, err
	}

	var out *common.Branch
	err := s.repo.WithTx(ctx, func(tx *Repository) error {
		b, err := tx.Get(ctx, id)
		if err != nil {
			return apperr.FromDB(err, "branch "+id)
		}
		ev, err := fn(b)
		if err != nil {
			return err
		}
		if err := tx.Save(ctx, b); err != nil {
			return apperr.FromDB(err, "branch "+b.Name)
		}
		ev.EntityType, ev.EntityID, ev.BranchID = "branch", b.ID, b.ID
		if err := activity.Record(tx.DB().WithContext(ctx), actor, ev); err != nil {
			return err
		}
		out = b
		return nil
	})
	return out, err
}

func (s *Service) UpdateSettings(ctx context.Context, actor auth.Actor, id string, req SettingsRequest) (*common.Branch, error) {
	return s.update(ctx, actor, id, func(b *common.Branch) (activity.Event, error) {
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return activity.Event{}, apperr.InvalidInput("name must not be empty")
			}
			b.Name = name
		}
		if req.Location != nil {
			b.Location = strings.TrimSpace(*req.Location)
		}
		if req.InterestRate != nil {
			b.InterestRate = *req.InterestRate
		}
		if req.InterestCap != nil {
			b.InterestCap = *req.InterestCap
		}
		if err := validateRates(b.InterestRate, b.InterestCap); err != nil {
			return activity.Event{}, err
		}
		b.Features.Apply(req.Features)

		return activity.Event{
			Action: activity.BranchSettings,
			Detail: map[string]any{
				"interest_rate": b.InterestRate,
				"interest_cap":  b.InterestCap,
				"features":      b.Features.Map(),
			},
		}, nil
	})
}

// ToggleSuspension flips the branch between active and suspended.
func (s *Service) ToggleSuspension(ctx context.Context, actor auth.Actor, id string) (*common.Branch, error) {
	return s.update(ctx, actor, id, func(b *common.Branch) (activity.Event, error) {
		b.IsActive = !b.IsActive
		action := activity.BranchSuspend
		if b.IsActive {
			action = activity.BranchReactivate
		}
		s.log.Info("branch suspension toggled", zap.String("branchId", b.ID), zap.Bool("active", b.IsActive))
		return activity.Event{Action: action}, nil
	})
}

// Invite creates a single-use invitation for a branch administrator.
func (s *Service) Invite(ctx context.Context, actor auth.Actor, id string, req InviteRequest) (*common.AdminInvite, error) {
	if err := requirePlatform(actor); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	inv := &common.AdminInvite{
		BranchID:  id,
		Email:     email,
		Role:      common.RoleBranchAdmin,
		Token:     strings.ReplaceAll(uuid.NewString(), "-", ""),
		ExpiresAt: s.now().UTC().Add(s.defaults.InviteTTL),
	}
	err := s.repo.WithTx(ctx, func(tx *Repository) error {
		if _, err := tx.Get(ctx, id); err != nil {
			return apperr.FromDB(err, "branch "+id)
		}
		if err := tx.CreateInvite(ctx, inv); err != nil {
			return apperr.FromDB(err, "invite")
		}
		return activity.Record(tx.DB().WithContext(ctx), actor, activity.Event{
			Action:     activity.BranchInvite,
			EntityType: "invite",
			EntityID:   inv.ID,
			BranchID:   id,
			Detail:     map[string]any{"email": email},
		})
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// Delete removes the tenant and everything it owns. Activity entries stay.
func (s *Service) Delete(ctx context.Context, actor auth.Actor, id string) error {
	if err := requirePlatform(actor); err != nil {
		return err
	}
	return s.repo.WithTx(ctx, func(tx *Repository) error {
		b, err := tx.Get(ctx, id)
		if err != nil {
			return apperr.FromDB(err, "branch "+id)
		}
		if err := tx.Delete(ctx, id); err != nil {
			return apperr.FromDB(err, "branch "+id)
		}
		s.log.Warn("branch deleted", zap.String("branchId", id), zap.String("name", b.Name))
		return activity.Record(tx.DB().WithContext(ctx), actor, activity.Event{
			Action:     activity.BranchDelete,
			EntityType: "branch",
			EntityID:   id,
			BranchID:   id,
			Detail:     map[string]any{"name": b.Name},
		})
	})
}
