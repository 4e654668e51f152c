package dashboard

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pawnshop/common"
	"pawnshop/internal/apperr"
	"pawnshop/internal/auth"
	"pawnshop/internal/database/dbtest"
)

func seed(t *testing.T) (*Service, auth.Actor) {
	t.Helper()
	db := dbtest.Open(t)

	north := dbtest.Branch(t, db, "North")
	south := dbtest.Branch(t, db, "South")
	c := dbtest.Customer(t, db, north.ID, "Juan")
	now := time.Now().UTC()

	dbtest.Ticket(t, db, c, dbtest.TicketOpts{LoanAmount: decimal.NewFromInt(10000)})
	dbtest.Ticket(t, db, c, dbtest.TicketOpts{
		LoanAmount: decimal.NewFromInt(20000),
		Category:   "Silver Coins",
		PawnDate:   now.AddDate(0, 0, -100),
	})
	dbtest.Ticket(t, db, c, dbtest.TicketOpts{Status: common.StatusRedeemed, LoanAmount: decimal.NewFromInt(5000)})
	dbtest.Ticket(t, db, c, dbtest.TicketOpts{Status: common.StatusForfeited, LoanAmount: decimal.NewFromInt(8000)})

	dbtest.Ticket(t, db, dbtest.Customer(t, db, south.ID, "Maria"), dbtest.TicketOpts{LoanAmount: decimal.NewFromInt(99000)})

	return NewService(NewRepository(db), zap.NewNop()), auth.Actor{Role: common.RoleManager, BranchID: north.ID}
}

func TestStats(t *testing.T) {
	svc, actor := seed(t)

	stats, err := svc.Stats(context.Background(), actor, "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !stats.TotalActiveLoans.Equal(decimal.NewFromInt(30000)) {
		t.Errorf("Expected active loans 30000, got %s", stats.TotalActiveLoans)
	}
	if !stats.ProjectedInterest.Equal(decimal.NewFromInt(1050)) {
		t.Errorf("Expected projected interest 1050, got %s", stats.ProjectedInterest)
	}

	want := map[string]int64{"ACTIVE": 2, "REDEEMED": 1, "FORFEITED": 1, "AUCTION": 0}
	for status, n := range want {
		if stats.StatusCounts[status] != n {
			t.Errorf("Expected %d %s, got %d", n, status, stats.StatusCounts[status])
		}
	}

	if len(stats.Inventory) != 2 {
		t.Fatalf("Expected 2 categories, got %+v", stats.Inventory)
	}
	for _, cat := range stats.Inventory {
		switch cat.Name {
		case "Gold Jewelry":
			if cat.Tag != "gold" || cat.Count != 1 {
				t.Errorf("Unexpected category %+v", cat)
			}
		case "Silver Coins":
			if cat.Tag != "silver" || !cat.Value.Equal(decimal.NewFromInt(20000)) {
				t.Errorf("Unexpected category %+v", cat)
			}
		default:
			t.Errorf("Unexpected category %s", cat.Name)
		}
	}
	if stats.CustomerCount != 1 {
		t.Errorf("Expected 1 customer, got %d", stats.CustomerCount)
	}
}

func TestDecisionSupport(t *testing.T) {
	svc, actor := seed(t)

	ds, err := svc.DecisionSupport(context.Background(), actor, "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(ds.ActiveItems) != 2 || ds.AgingCount != 1 {
		t.Fatalf("Expected 2 items with 1 aging, got %d / %d", len(ds.ActiveItems), ds.AgingCount)
	}
	if !ds.ActiveItems[0].Aging || ds.ActiveItems[0].CustomerName != "Juan" {
		t.Errorf("Expected oldest item first and aging, got %+v", ds.ActiveItems[0])
	}
	if ds.RiskLevel != "Moderate" {
		t.Errorf("Expected Moderate, got %s", ds.RiskLevel)
	}
	if !ds.ProjectedRevenue.Equal(decimal.NewFromInt(1050)) || !ds.TotalValue.Equal(decimal.NewFromInt(30000)) {
		t.Errorf("Unexpected totals %s / %s", ds.ProjectedRevenue, ds.TotalValue)
	}
	if len(ds.Breakdown) != 2 || ds.Breakdown[0].Name != "Silver Coins" {
		t.Errorf("Unexpected breakdown %+v", ds.Breakdown)
	}
}

func TestFinance(t *testing.T) {
	svc, actor := seed(t)

	fin, err := svc.Finance(context.Background(), actor, "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !fin.TotalPrincipal.Equal(decimal.NewFromInt(43000)) || !fin.TotalInterest.Equal(decimal.NewFromInt(1505)) {
		t.Errorf("Unexpected totals %s / %s", fin.TotalPrincipal, fin.TotalInterest)
	}
	if len(fin.ByStatus) != 3 || fin.ByStatus[0].Status != common.StatusActive || fin.ByStatus[0].Count != 2 {
		t.Errorf("Unexpected breakdown %+v", fin.ByStatus)
	}

	platform, _ := svc.Finance(context.Background(), auth.Actor{Role: common.RoleSuperAdmin}, "")
	if !platform.TotalPrincipal.Equal(decimal.NewFromInt(142000)) {
		t.Errorf("Expected platform principal 142000, got %s", platform.TotalPrincipal)
	}
}

func TestRiskLevelOptimal(t *testing.T) {
	db := dbtest.Open(t)
	b := dbtest.Branch(t, db, "North")
	c := dbtest.Customer(t, db, b.ID, "Juan")
	for i := 0; i < 5; i++ {
		dbtest.Ticket(t, db, c, dbtest.TicketOpts{})
	}
	dbtest.Ticket(t, db, c, dbtest.TicketOpts{PawnDate: time.Now().UTC().AddDate(0, 0, -120)})

	ds, err := NewService(NewRepository(db), zap.NewNop()).DecisionSupport(context.Background(), auth.Actor{Role: common.RoleStaff, BranchID: b.ID}, "")
	if err != nil {
		t.Fatal(err)
	}
	if ds.AgingCount != 1 || ds.RiskLevel != "Optimal" {
		t.Errorf("Expected 1 aging of 6 to be Optimal, got %d %s", ds.AgingCount, ds.RiskLevel)
	}
}

func mockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("Failed to open gorm: %v", err)
	}
	return NewService(NewRepository(db), zap.NewNop()), mock
}

func TestUnavailableDatastoreDegrades(t *testing.T) {
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	actor := auth.Actor{Role: common.RoleManager, BranchID: "b1"}

	t.Run("stats", func(t *testing.T) {
		svc, mock := mockService(t)
		mock.ExpectQuery("SELECT").WillReturnError(refused)

		stats, err := svc.Stats(context.Background(), actor, "")
		if err != nil {
			t.Fatalf("Expected degraded result, got %v", err)
		}
		if !stats.Degraded || !stats.TotalActiveLoans.IsZero() || stats.StatusCounts["ACTIVE"] != 0 {
			t.Errorf("Unexpected stats %+v", stats)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Unfulfilled expectations: %v", err)
		}
	})

	t.Run("finance", func(t *testing.T) {
		svc, mock := mockService(t)
		mock.ExpectQuery("SELECT").WillReturnError(refused)

		fin, err := svc.Finance(context.Background(), actor, "")
		if err != nil || !fin.Degraded || len(fin.ByStatus) != 0 {
			t.Errorf("Expected degraded finance, got %+v (%v)", fin, err)
		}
	})

	t.Run("other failures surface", func(t *testing.T) {
		svc, mock := mockService(t)
		mock.ExpectQuery("SELECT").WillReturnError(errors.New("column does not exist"))

		_, err := svc.DecisionSupport(context.Background(), actor, "")
		if apperr.KindOf(err) != apperr.KindInternal {
			t.Errorf("Expected Internal error, got %v", err)
		}
	})
}
