package access

import (
	"context"
	"slices"

	"pawnshop/internal/apperr"
	"pawnshop/internal/auth"
	"pawnshop/internal/policy"
)

// View is what GET /v1/me/operations returns.
type View struct {
	Role          string             `json:"role"`
	BranchID      string             `json:"branch_id,omitempty"`
	Impersonating bool               `json:"impersonating"`
	Suspended     bool               `json:"suspended"`
	Operations    []policy.Operation `json:"operations"`
}

type Service struct {
	repo    *Repository
	catalog []policy.Operation
}

// NewService creates a new Service
func NewService(repo *Repository, catalog []policy.Operation) *Service {
	return &Service{repo: repo, catalog: catalog}
}

// Operations evaluates the feature gate for actor against its branch flags.
// A suspended branch exposes nothing to its own staff.
func (s *Service) Operations(ctx context.Context, actor auth.Actor) (View, error) {
	view := View{Role: string(actor.Role), BranchID: actor.BranchID, Impersonating: actor.Impersonating}

	if actor.IsSuperAdmin() && !actor.Impersonating {
		view.Operations = policy.Visible(s.catalog, actor.Gate(), nil)
		return view, nil
	}
	if actor.BranchID == "" {
		view.Operations = []policy.Operation{}
		return view, nil
	}

	branch, err := s.repo.FindBranch(ctx, actor.BranchID)
	if err != nil {
		return view, apperr.FromDB(err, "branch "+actor.BranchID)
	}
	view.Suspended = !branch.IsActive

	if view.Suspended && !actor.IsSuperAdmin() {
		view.Operations = []policy.Operation{}
		return view, nil
	}
	view.Operations = policy.Visible(s.catalog, actor.Gate(), branch.Features.Map())
	return view, nil
}

// Authorize passes when any of ops is visible to actor.
func (s *Service) Authorize(ctx context.Context, actor auth.Actor, ops ...string) error {
	view, err := s.Operations(ctx, actor)
	if err != nil {
		return err
	}
	if view.Suspended && !actor.IsSuperAdmin() {
		return apperr.PermissionDenied("branch is suspended")
	}

	for _, op := range view.Operations {
		if slices.Contains(ops, op.Key) {
			return nil
		}
	}
	return apperr.PermissionDenied("operation %s is not available to %s", ops[0], actor.Role.Label())
}
