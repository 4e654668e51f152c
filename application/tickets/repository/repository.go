package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/guregu/null/v5"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pawnshop/application/activity"
	"pawnshop/application/tickets/domain"
	"pawnshop/common"
	"pawnshop/internal/auth"
	"pawnshop/internal/cascade"
	"pawnshop/internal/database"
)

// repository implements domain.Repository on gorm.
type repository struct {
	db *gorm.DB
}

// NewRepository creates a gorm backed ticket Repository
func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(ctx context.Context, fn func(tx domain.Repository) error) error {
	return database.WithTx(ctx, r.db, func(tx *gorm.DB) error {
		return fn(&repository{db: tx})
	})
}

func (r *repository) FindBranch(ctx context.Context, id string) (*common.Branch, error) {
	var b common.Branch
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) FindCustomer(ctx context.Context, id string) (*common.Customer, error) {
	var c common.Customer
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) FindCategoryID(ctx context.Context, name string) (string, bool, error) {
	var cat common.Category
	err := r.db.WithContext(ctx).Where("name = ?", name).Take(&cat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return cat.ID, true, nil
}

func (r *repository) Create(ctx context.Context, t *common.Ticket, loan *common.Loan, inv *common.InventoryRecord, txn *common.Transaction) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(t).Error; err != nil {
		return err
	}

	loan.TicketID, inv.TicketID, txn.TicketID = t.ID, t.ID, t.ID
	for _, row := range []any{loan, inv, txn} {
		if err := db.Create(row).Error; err != nil {
			return err
		}
	}
	return nil
}

// Get loads a ticket with its loan and inventory record. A non-empty branchID
// hides tickets of other branches.
func (r *repository) Get(ctx context.Context, id, branchID string) (*common.Ticket, error) {
	q := r.db.WithContext(ctx).Preload("Loan").Preload("Inventory").Where("id = ?", id)
	if branchID != "" {
		q = q.Where("branch_id = ?", branchID)
	}

	var t common.Ticket
	if err := q.Take(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repository) filtered(ctx context.Context, f domain.ListFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&common.Ticket{})
	if f.BranchID != "" {
		q = q.Where("branch_id = ?", f.BranchID)
	}
	if f.CustomerID != "" {
		q = q.Where("customer_id = ?", f.CustomerID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Expired != nil {
		if *f.Expired {
			q = q.Where("status = ? AND expiry_date < ?", common.StatusActive, f.Now)
		} else {
			q = q.Where("NOT (status = ? AND expiry_date < ?)", common.StatusActive, f.Now)
		}
	}
	return q
}

func (r *repository) List(ctx context.Context, f domain.ListFilter) ([]common.Ticket, int64, error) {
	total, err := r.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}

	var tickets []common.Ticket
	err = r.filtered(ctx, f).
		Order("pawn_date DESC, id").
		Limit(f.GetLimit()).
		Offset(f.GetOffset()).
		Find(&tickets).Error
	return tickets, total, err
}

func (r *repository) Count(ctx context.Context, f domain.ListFilter) (int64, error) {
	var n int64
	err := r.filtered(ctx, f).Count(&n).Error
	return n, err
}

func (r *repository) transition(ctx context.Context, id string, to common.TicketStatus, extra map[string]any, where string, args ...any) (int64, error) {
	updates := map[string]any{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).Model(&common.Ticket{}).
		Where("id = ?", id).
		Where(where, args...).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) MarkRedeemed(ctx context.Context, id string) (int64, error) {
	return r.transition(ctx, id, common.StatusRedeemed, nil, "status = ?", common.StatusActive)
}

func (r *repository) MarkForfeited(ctx context.Context, id string, now time.Time) (int64, error) {
	return r.transition(ctx, id, common.StatusForfeited,
		map[string]any{"forfeiture_date": null.TimeFrom(now)},
		"status = ? AND expiry_date < ?", common.StatusActive, now)
}

func (r *repository) MarkAuction(ctx context.Context, id string) (int64, error) {
	return r.transition(ctx, id, common.StatusAuction, nil, "status = ?", common.StatusForfeited)
}

// ForfeitOverdue forfeits every overdue ACTIVE ticket of the branch and
// returns their ids.
func (r *repository) ForfeitOverdue(ctx context.Context, branchID string, now time.Time) ([]string, error) {
	db := r.db.WithContext(ctx)
	overdue := db.Model(&common.Ticket{}).Where("status = ? AND expiry_date < ?", common.StatusActive, now)
	if branchID != "" {
		overdue = overdue.Where("branch_id = ?", branchID)
	}

	var ids []string
	if err := overdue.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	err := db.Model(&common.Ticket{}).
		Where("id IN ? AND status = ?", ids, common.StatusActive).
		Updates(map[string]any{"status": common.StatusForfeited, "forfeiture_date": null.TimeFrom(now)}).Error
	return ids, err
}

func (r *repository) SetLoanStatus(ctx context.Context, ticketIDs []string, status common.TicketStatus) error {
	return r.db.WithContext(ctx).Model(&common.Loan{}).
		Where("ticket_id IN ?", ticketIDs).
		Update("status", status).Error
}

func (r *repository) DeleteInventory(ctx context.Context, ticketID string) error {
	return r.db.WithContext(ctx).Where("ticket_id = ?", ticketID).Delete(&common.InventoryRecord{}).Error
}

// ListInventoryForAuction flags the custody record, recreating it when it went
// missing.
func (r *repository) ListInventoryForAuction(ctx context.Context, t *common.Ticket, price decimal.Decimal) error {
	db := r.db.WithContext(ctx)
	auction := decimal.NewNullDecimal(price)

	res := db.Model(&common.InventoryRecord{}).
		Where("ticket_id = ?", t.ID).
		Updates(map[string]any{"for_auction": true, "auction_price": auction})
	if res.Error != nil || res.RowsAffected > 0 {
		return res.Error
	}

	return db.Create(&common.InventoryRecord{
		TicketID:        t.ID,
		BranchID:        t.BranchID,
		StorageLocation: "Auction Hold",
		ForAuction:      true,
		AuctionPrice:    auction,
	}).Error
}

func (r *repository) AddTransaction(ctx context.Context, txn *common.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) Delete(ctx context.Context, id string) error {
	return cascade.Tickets(r.db.WithContext(ctx), []string{id})
}

func (r *repository) Record(ctx context.Context, actor auth.Actor, ev activity.Event) error {
	return activity.Record(r.db.WithContext(ctx), actor, ev)
}

func (r *repository) AuctionItems(ctx context.Context, branchID string) ([]domain.AuctionItem, error) {
	q := r.db.WithContext(ctx).
		Table("tickets t").
		Select(`t.id AS ticket_id, t.ticket_number, t.category, t.description, t.weight,
			t.loan_amount, i.auction_price AS starting_bid, c.full_name AS customer_name, i.updated_at AS listed_at`).
		Joins("JOIN inventory i ON i.ticket_id = t.id").
		Joins("JOIN customers c ON c.id = t.customer_id").
		Where("t.status = ? AND i.for_auction = ?", common.StatusAuction, true).
		Order("i.updated_at DESC")
	if branchID != "" {
		q = q.Where("t.branch_id = ?", branchID)
	}

	var items []domain.AuctionItem
	err := q.Scan(&items).Error
	return items, err
}

// ExportRows opens a cursor over the filtered tickets. The caller closes it.
func (r *repository) ExportRows(ctx context.Context, f domain.ListFilter) (*sql.Rows, error) {
	return r.filtered(ctx, f).Order("pawn_date, id").Rows()
}

func (r *repository) ScanTicket(rows *sql.Rows) (common.Ticket, error) {
	var t common.Ticket
	err := r.db.ScanRows(rows, &t)
	return t, err
}
