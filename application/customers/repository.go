package customers

import (
	"context"

	"gorm.io/gorm"

	"pawnshop/common"
	"pawnshop/internal/cascade"
	"pawnshop/internal/database"
)

type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new Repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx runs fn on a repository bound to a single transaction.
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

func (r *Repository) Create(ctx context.Context, c *common.Customer) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// Get loads a customer, hiding other branches when branchID is set. With
// tickets the customer's tickets are loaded newest first.
func (r *Repository) Get(ctx context.Context, id, branchID string, tickets bool) (*common.Customer, error) {
	q := r.db.WithContext(ctx).Where("id = ?", id)
	if branchID != "" {
		q = q.Where("branch_id = ?", branchID)
	}
	if tickets {
		q = q.Preload("Tickets", func(db *gorm.DB) *gorm.DB {
			return db.Order("pawn_date DESC")
		})
	}

	var c common.Customer
	if err := q.Take(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) List(ctx context.Context, f ListFilter) ([]common.Customer, int64, error) {
	q := r.db.WithContext(ctx).Model(&common.Customer{})
	if f.BranchID != "" {
		q = q.Where("branch_id = ?", f.BranchID)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("full_name LIKE ? OR contact_number LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var customers []common.Customer
	err := q.Order("full_name, id").Limit(f.limit()).Offset(max(f.Offset, 0)).Find(&customers).Error
	return customers, total, err
}

func (r *Repository) Update(ctx context.Context, id string, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&common.Customer{}).Where("id = ?", id).Updates(fields).Error
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	return cascade.Customer(r.db.WithContext(ctx), id)
}

func (r *Repository) CountTickets(ctx context.Context, customerID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&common.Ticket{}).Where("customer_id = ?", customerID).Count(&n).Error
	return n, err
}
