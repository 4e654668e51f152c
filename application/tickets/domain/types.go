package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"pawnshop/common"
	"pawnshop/internal/policy"
)

// CreateRequest is the body of POST /v1/tickets. LoanAmount overrides the
// appraisal when set.
type CreateRequest struct {
	BranchID        string           `json:"branch_id"`
	CustomerID      string           `json:"customer_id" binding:"required"`
	Category        string           `json:"category" binding:"required"`
	Description     string           `json:"description" binding:"max=255"`
	Weight          float64          `json:"weight"`
	LoanAmount      *decimal.Decimal `json:"loan_amount"`
	StorageLocation string           `json:"storage_location"`
}

type EstimateRequest struct {
	Category string  `json:"category" binding:"required"`
	Weight   float64 `json:"weight"`
}

type AuctionRequest struct {
	Price *decimal.Decimal `json:"price"`
}

// ListFilter narrows GET /v1/tickets and the export. Expired selects ACTIVE
// tickets past their expiry date.
type ListFilter struct {
	BranchID   string
	CustomerID string
	Status     common.TicketStatus
	Expired    *bool
	Now        time.Time
	Limit      int
	Offset     int
}

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

func (f *ListFilter) GetLimit() int {
	switch {
	case f.Limit <= 0:
		return DefaultLimit
	case f.Limit > MaxLimit:
		return MaxLimit
	}
	return f.Limit
}

func (f *ListFilter) GetOffset() int {
	if f.Offset < 0 {
		return 0
	}
	return f.Offset
}

// Ticket is a stored ticket plus the computed expiry flag.
type Ticket struct {
	common.Ticket
	Expired  bool   `json:"expired"`
	RiskBand string `json:"risk_band,omitempty"`
}

type Page struct {
	Items []Ticket `json:"items"`
	Total int64    `json:"total"`
}

type Quote struct {
	TicketID     string            `json:"ticket_id"`
	TicketNumber string            `json:"ticket_number"`
	Expired      bool              `json:"expired"`
	Settlement   policy.Settlement `json:"settlement"`
}

type Redemption struct {
	Ticket     Ticket            `json:"ticket"`
	Settlement policy.Settlement `json:"settlement"`
}

type SweepResult struct {
	Forfeited int `json:"forfeited"`
}

type AuctionItem struct {
	TicketID     string          `json:"ticket_id"`
	TicketNumber string          `json:"ticket_number"`
	Category     string          `json:"category"`
	Description  string          `json:"description"`
	Weight       float64         `json:"weight"`
	LoanAmount   decimal.Decimal `json:"loan_amount"`
	StartingBid  decimal.Decimal `json:"starting_bid"`
	CustomerName string          `json:"customer_name"`
	ListedAt     time.Time       `json:"listed_at"`
}

// ExportRow is one element of the streamed export.
type ExportRow struct {
	TicketNumber string              `json:"ticket_number"`
	CustomerID   string              `json:"customer_id"`
	Category     string              `json:"category"`
	Weight       float64             `json:"weight"`
	LoanAmount   decimal.Decimal     `json:"loan_amount"`
	Status       common.TicketStatus `json:"status"`
	Expired      bool                `json:"expired"`
	HighRisk     bool                `json:"high_risk"`
	PawnDate     string              `json:"pawn_date"`
	ExpiryDate   string              `json:"expiry_date"`
}
