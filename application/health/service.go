package health

import (
	"context"
	"time"

	"pawnshop/internal/apperr"
)

const pingTimeout = 2 * time.Second

type Status struct {
	Database string `json:"database"`
	Version  string `json:"version"`
}

type Service struct {
	repo    *Repository
	version string
}

// NewService creates a new Service
func NewService(repo *Repository, version string) *Service {
	return &Service{repo: repo, version: version}
}

func (s *Service) CheckHealth(ctx context.Context) (Status, error) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	status := Status{Database: "ok", Version: s.version}
	if err := s.repo.Ping(ctx); err != nil {
		status.Database = "error"
		return status, apperr.Wrap(apperr.KindUpstreamUnavailable, err, "database unreachable")
	}
	return status, nil
}
