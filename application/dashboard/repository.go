package dashboard

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"pawnshop/common"
)

// RateBucket is the active principal lent at one interest rate.
type RateBucket struct {
	InterestRate decimal.Decimal
	Principal    decimal.Decimal
}

type statusCount struct {
	Status common.TicketStatus
	N      int64
}

type categoryRow struct {
	Name  string
	N     int64
	Value decimal.Decimal
}

type loanTotalRow struct {
	Status    common.TicketStatus
	N         int64
	Principal decimal.Decimal
	Interest  decimal.Decimal
}

// ActiveItem is one ACTIVE ticket as decision support sees it.
type ActiveItem struct {
	TicketID     string          `json:"ticket_id"`
	TicketNumber string          `json:"ticket_number"`
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	Weight       float64         `json:"weight"`
	LoanAmount   decimal.Decimal `json:"loan_amount"`
	InterestRate decimal.Decimal `json:"interest_rate"`
	CustomerName string          `json:"customer_name"`
	PawnDate     time.Time       `json:"pawn_date"`
	HighRisk     bool            `json:"high_risk"`
	Aging        bool            `json:"aging" gorm:"-"`
}

type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new Repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) tickets(ctx context.Context, branchID string) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&common.Ticket{})
	if branchID != "" {
		q = q.Where("branch_id = ?", branchID)
	}
	return q
}

func (r *Repository) ActivePrincipalByRate(ctx context.Context, branchID string) ([]RateBucket, error) {
	var rows []RateBucket
	err := r.tickets(ctx, branchID).
		Select("interest_rate, SUM(loan_amount) AS principal").
		Where("status = ?", common.StatusActive).
		Group("interest_rate").
		Scan(&rows).Error
	return rows, err
}

func (r *Repository) StatusCounts(ctx context.Context, branchID string) ([]statusCount, error) {
	var rows []statusCount
	err := r.tickets(ctx, branchID).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error
	return rows, err
}

func (r *Repository) ActiveByCategory(ctx context.Context, branchID string) ([]categoryRow, error) {
	var rows []categoryRow
	err := r.tickets(ctx, branchID).
		Select("category AS name, COUNT(*) AS n, SUM(loan_amount) AS value").
		Where("status = ?", common.StatusActive).
		Group("category").
		Order("category").
		Scan(&rows).Error
	return rows, err
}

func (r *Repository) CustomerCount(ctx context.Context, branchID string) (int64, error) {
	q := r.db.WithContext(ctx).Model(&common.Customer{})
	if branchID != "" {
		q = q.Where("branch_id = ?", branchID)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

// ActiveItems lists ACTIVE tickets oldest first.
func (r *Repository) ActiveItems(ctx context.Context, branchID string) ([]ActiveItem, error) {
	q := r.db.WithContext(ctx).
		Table("tickets t").
		Select(`t.id AS ticket_id, t.ticket_number, t.description, t.category, t.weight,
			t.loan_amount, t.interest_rate, c.full_name AS customer_name, t.pawn_date, t.high_risk`).
		Joins("JOIN customers c ON c.id = t.customer_id").
		Where("t.status = ?", common.StatusActive).
		Order("t.pawn_date, t.id")
	if branchID != "" {
		q = q.Where("t.branch_id = ?", branchID)
	}

	var items []ActiveItem
	err := q.Scan(&items).Error
	return items, err
}

func (r *Repository) LoanTotals(ctx context.Context, branchID string) ([]loanTotalRow, error) {
	q := r.db.WithContext(ctx).Model(&common.Loan{}).
		Select("status, COUNT(*) AS n, SUM(principal_amount) AS principal, SUM(interest_amount) AS interest").
		Group("status").
		Order("status")
	if branchID != "" {
		q = q.Where("branch_id = ?", branchID)
	}

	var rows []loanTotalRow
	err := q.Scan(&rows).Error
	return rows, err
}
