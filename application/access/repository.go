package access

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

func (r *Repository) FindBranch(ctx context.Context, id string) (*common.Branch, error) {
	var b common.Branch
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}
