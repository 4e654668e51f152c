// Package dbtest provides an in-memory datastore and fixtures for tests.
package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pawnshop/common"
	"pawnshop/internal/database"
)

// Open returns a migrated in-memory sqlite database with foreign keys on.
// Each call gets its own database.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:?_foreign_keys=1"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("Failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get database instance: %v", err)
	}
	// :memory: is per connection
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return db
}

func Branch(t testing.TB, db *gorm.DB, name string) *common.Branch {
	t.Helper()
	b := &common.Branch{
		Name:         name,
		Location:     "Main Street",
		IsActive:     true,
		InterestRate: decimal.RequireFromString("3.5"),
		InterestCap:  decimal.NewFromInt(10),
		Features:     common.AllFeatures(),
	}
	mustCreate(t, db, b)
	return b
}

func Customer(t testing.TB, db *gorm.DB, branchID, name string) *common.Customer {
	t.Helper()
	c := &common.Customer{
		FullName:      name,
		ContactNumber: "0917-" + uuid.NewString()[:7],
		Address:       "Somewhere",
		LoyaltyTier:   "Standard",
		BranchID:      branchID,
	}
	mustCreate(t, db, c)
	return c
}

func Staff(t testing.TB, db *gorm.DB, branchID *string, role common.Role) *common.Staff {
	t.Helper()
	s := &common.Staff{
		FullName:     string(role) + " person",
		Email:        uuid.NewString()[:8] + "@example.com",
		PasswordHash: "x",
		Role:         role,
		BranchID:     branchID,
	}
	mustCreate(t, db, s)
	return s
}

// TicketOpts tweaks the fixture ticket. Zero values take defaults.
type TicketOpts struct {
	Status     common.TicketStatus
	ExpiryDate time.Time
	PawnDate   time.Time
	LoanAmount decimal.Decimal
	Category   string
	RiskScore  int
}

// Ticket writes a ticket with its loan, inventory record and disbursement.
func Ticket(t testing.TB, db *gorm.DB, c *common.Customer, opts TicketOpts) *common.Ticket {
	t.Helper()

	now := time.Now().UTC()
	if opts.Status == "" {
		opts.Status = common.StatusActive
	}
	if opts.PawnDate.IsZero() {
		opts.PawnDate = now
	}
	if opts.ExpiryDate.IsZero() {
		opts.ExpiryDate = opts.PawnDate.AddDate(0, 0, 30)
	}
	if opts.LoanAmount.IsZero() {
		opts.LoanAmount = decimal.NewFromInt(10000)
	}
	if opts.Category == "" {
		opts.Category = "Gold Jewelry"
	}
	if opts.RiskScore == 0 {
		opts.RiskScore = 25
	}

	tk := &common.Ticket{
		TicketNumber: fmt.Sprintf("TKT-TEST-%s", uuid.NewString()[:8]),
		CustomerID:   c.ID,
		BranchID:     c.BranchID,
		Category:     opts.Category,
		Weight:       10,
		LoanAmount:   opts.LoanAmount,
		InterestRate: decimal.RequireFromString("3.5"),
		Status:       opts.Status,
		PawnDate:     opts.PawnDate,
		ExpiryDate:   opts.ExpiryDate,
	}
	mustCreate(t, db, tk)

	mustCreate(t, db, &common.Loan{
		TicketID:        tk.ID,
		BranchID:        tk.BranchID,
		PrincipalAmount: tk.LoanAmount,
		InterestAmount:  tk.LoanAmount.Mul(decimal.RequireFromString("0.035")),
		RiskScore:       opts.RiskScore,
		Status:          tk.Status,
	})
	if tk.Status != common.StatusRedeemed {
		mustCreate(t, db, &common.InventoryRecord{
			TicketID:   tk.ID,
			BranchID:   tk.BranchID,
			ForAuction: tk.Status == common.StatusAuction,
		})
	}
	mustCreate(t, db, &common.Transaction{
		TicketID: tk.ID,
		BranchID: tk.BranchID,
		Type:     common.TransactionDisbursement,
		Amount:   tk.LoanAmount,
	})
	return tk
}

// Count returns the number of rows of model matching the query.
func Count(t testing.TB, db *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	q := db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func mustCreate(t testing.TB, db *gorm.DB, v any) {
	t.Helper()
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("create %T: %v", v, err)
	}
}
