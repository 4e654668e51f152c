package activity

import (
	"context"

	"gorm.io/gorm"

	"pawnshop/common"
)

type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new Repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// List returns the newest entries first. An empty branchID lists every branch.
func (r *Repository) List(ctx context.Context, branchID, action string, limit int) ([]common.ActivityLog, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if branchID != "" {
		q = q.Where("branch_id = ?", branchID)
	}
	if action != "" {
		q = q.Where("action = ?", action)
	}

	var entries []common.ActivityLog
	err := q.Find(&entries).Error
	return entries, err
}
