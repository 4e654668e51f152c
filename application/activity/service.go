package activity

import (
	"context"

	"pawnshop/common"
	"pawnshop/internal/apperr"
	"pawnshop/internal/auth"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

type Service struct {
	repo *Repository
}

// NewService creates a new Service
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, actor auth.Actor, branchID, action string, limit int) ([]common.ActivityLog, error) {
	branch, err := actor.Branch(branchID)
	if err != nil {
		return nil, err
	}

	switch {
	case limit <= 0:
		limit = defaultLimit
	case limit > maxLimit:
		limit = maxLimit
	}

	entries, err := s.repo.List(ctx, branch, action, limit)
	if err != nil {
		return nil, apperr.FromDB(err, "activity log")
	}
	return entries, nil
}
