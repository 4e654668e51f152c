package staff

import (
	"context"
	"time"

	"github.com/guregu/null/v5"
	"gorm.io/gorm"

	"pawnshop/common"
	"pawnshop/internal/database"
)

type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new Repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(ctx context.Context, fn func(tx *Repository) error) error {
	return database.WithTx(ctx, r.db, func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) DB() *gorm.DB {
	return r.db
}

func (r *Repository) FindBranch(ctx context.Context, id string) (*common.Branch, error) {
	var b common.Branch
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*common.Staff, error) {
	var s common.Staff
	if err := r.db.WithContext(ctx).Where("email = ?", email).Take(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// Get loads a staff member. A non-empty branchID hides other branches.
func (r *Repository) Get(ctx context.Context, id, branchID string) (*common.Staff, error) {
	q := r.db.WithContext(ctx).Where("id = ?", id)
	if branchID != "" {
		q = q.Where("branch_id = ?", branchID)
	}
	var s common.Staff
	if err := q.Take(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// Exists reports whether a staff row with id is still present.
func (r *Repository) Exists(ctx context.Context, id string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&common.Staff{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

func (r *Repository) List(ctx context.Context, branchID string) ([]common.Staff, error) {
	q := r.db.WithContext(ctx).Order("full_name, id")
	if branchID != "" {
		q = q.Where("branch_id = ?", branchID)
	}
	var members []common.Staff
	err := q.Find(&members).Error
	return members, err
}

func (r *Repository) Create(ctx context.Context, s *common.Staff) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&common.Staff{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) SetPassword(ctx context.Context, id, hash string) error {
	return r.db.WithContext(ctx).Model(&common.Staff{}).Where("id = ?", id).Update("password_hash", hash).Error
}

func (r *Repository) CountRole(ctx context.Context, role common.Role) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&common.Staff{}).Where("role = ?", role).Count(&n).Error
	return n, err
}

func (r *Repository) FindInvite(ctx context.Context, token string) (*common.AdminInvite, error) {
	var inv common.AdminInvite
	if err := r.db.WithContext(ctx).Where("token = ?", token).Take(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

// MarkInviteAccepted reports false when another request accepted it first.
func (r *Repository) MarkInviteAccepted(ctx context.Context, id string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&common.AdminInvite{}).
		Where("id = ? AND accepted_at IS NULL", id).
		Update("accepted_at", null.TimeFrom(at))
	return res.RowsAffected == 1, res.Error
}
