package domain

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"pawnshop/application/activity"
	"pawnshop/common"
	"pawnshop/internal/auth"
	"pawnshop/internal/policy"
	"pawnshop/middleware"
)

// Repository is the ticket datastore. Methods called inside WithTx run on the
// transaction.
type Repository interface {
	WithTx(ctx context.Context, fn func(tx Repository) error) error

	FindBranch(ctx context.Context, id string) (*common.Branch, error)
	FindCustomer(ctx context.Context, id string) (*common.Customer, error)
	// FindCategoryID reports false for names outside the category table.
	FindCategoryID(ctx context.Context, name string) (string, bool, error)

	Create(ctx context.Context, t *common.Ticket, loan *common.Loan, inv *common.InventoryRecord, txn *common.Transaction) error
	Get(ctx context.Context, id, branchID string) (*common.Ticket, error)
	List(ctx context.Context, f ListFilter) ([]common.Ticket, int64, error)
	Count(ctx context.Context, f ListFilter) (int64, error)

	// The Mark methods are conditional updates; they return rows affected.
	MarkRedeemed(ctx context.Context, id string) (int64, error)
	MarkForfeited(ctx context.Context, id string, now time.Time) (int64, error)
	MarkAuction(ctx context.Context, id string) (int64, error)
	ForfeitOverdue(ctx context.Context, branchID string, now time.Time) ([]string, error)

	SetLoanStatus(ctx context.Context, ticketIDs []string, status common.TicketStatus) error
	DeleteInventory(ctx context.Context, ticketID string) error
	ListInventoryForAuction(ctx context.Context, t *common.Ticket, price decimal.Decimal) error
	AddTransaction(ctx context.Context, txn *common.Transaction) error
	Delete(ctx context.Context, id string) error
	Record(ctx context.Context, actor auth.Actor, ev activity.Event) error

	AuctionItems(ctx context.Context, branchID string) ([]AuctionItem, error)
	ExportRows(ctx context.Context, f ListFilter) (*sql.Rows, error)
	ScanTicket(rows *sql.Rows) (common.Ticket, error)
}

type Service interface {
	Estimate(req EstimateRequest) (policy.Appraisal, error)
	Create(ctx context.Context, actor auth.Actor, req CreateRequest) (*Ticket, error)
	Get(ctx context.Context, actor auth.Actor, id string) (*Ticket, error)
	List(ctx context.Context, actor auth.Actor, f ListFilter) (*Page, error)
	Quote(ctx context.Context, actor auth.Actor, id string) (*Quote, error)
	Redeem(ctx context.Context, actor auth.Actor, id string) (*Redemption, error)
	Forfeit(ctx context.Context, actor auth.Actor, id string) (*Ticket, error)
	SweepForfeitures(ctx context.Context, actor auth.Actor, branchID string) (*SweepResult, error)
	ListForAuction(ctx context.Context, actor auth.Actor, id string, req AuctionRequest) (*Ticket, error)
	AuctionItems(ctx context.Context, actor auth.Actor, branchID string) ([]AuctionItem, error)
	Delete(ctx context.Context, actor auth.Actor, id string) error
	Export(ctx context.Context, actor auth.Actor, f ListFilter) middleware.StreamResponse
}
