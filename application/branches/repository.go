package branches

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pawnshop/common"
	"pawnshop/internal/cascade"
	"pawnshop/internal/database"
)

// Summary is a branch with its headcounts for the platform overview.
type Summary struct {
	common.Branch
	StaffCount    int64 `json:"staff_count"`
	CustomerCount int64 `json:"customer_count"`
	ActiveTickets int64 `json:"active_tickets"`
}

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

func (r *Repository) Create(ctx context.Context, b *common.Branch) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(b).Error
}

func (r *Repository) Get(ctx context.Context, id string) (*common.Branch, error) {
	var b common.Branch
	if err := r.db.WithContext(ctx).Take(&b, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// Save writes every column, so switched-off flags are persisted too.
func (r *Repository) Save(ctx context.Context, b *common.Branch) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(b).Error
}

func (r *Repository) List(ctx context.Context) ([]Summary, error) {
	var branches []common.Branch
	if err := r.db.WithContext(ctx).Order("name").Find(&branches).Error; err != nil {
		return nil, err
	}

	counts := func(model any, where string, args ...any) (map[string]int64, error) {
		var rows []struct {
			BranchID string
			N        int64
		}
		q := r.db.WithContext(ctx).Model(model).Select("branch_id, COUNT(*) AS n")
		if where != "" {
			q = q.Where(where, args...)
		}
		err := q.Group("branch_id").Scan(&rows).Error
		m := make(map[string]int64, len(rows))
		for _, row := range rows {
			m[row.BranchID] = row.N
		}
		return m, err
	}

	staff, err := counts(&common.Staff{}, "branch_id IS NOT NULL")
	if err != nil {
		return nil, err
	}
	customers, err := counts(&common.Customer{}, "")
	if err != nil {
		return nil, err
	}
	active, err := counts(&common.Ticket{}, "status = ?", common.StatusActive)
	if err != nil {
		return nil, err
	}

	out := make([]Summary, 0, len(branches))
	for _, b := range branches {
		out = append(out, Summary{
			Branch:        b,
			StaffCount:    staff[b.ID],
			CustomerCount: customers[b.ID],
			ActiveTickets: active[b.ID],
		})
	}
	return out, nil
}

func (r *Repository) CreateInvite(ctx context.Context, inv *common.AdminInvite) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	return cascade.Branch(r.db.WithContext(ctx), id)
}
