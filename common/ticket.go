package common

import (
	"time"

	"github.com/guregu/null/v5"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Ticket struct {
	ID             string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	TicketNumber   string          `gorm:"size:40;uniqueIndex;not null" json:"ticket_number"`
	CustomerID     string          `gorm:"type:varchar(36);index;not null" json:"customer_id"`
	BranchID       string          `gorm:"type:varchar(36);index;not null" json:"branch_id"`
	Category       string          `gorm:"size:100;not null" json:"category"`
	Description    string          `gorm:"size:255" json:"description"`
	Weight         float64         `gorm:"not null" json:"weight"`
	LoanAmount     decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"loan_amount"`
	InterestRate   decimal.Decimal `gorm:"type:decimal(6,3);not null" json:"interest_rate"`
	Status         TicketStatus    `gorm:"size:20;index;not null" json:"status"`
	HighRisk       bool            `gorm:"not null" json:"high_risk"`
	PawnDate       time.Time       `gorm:"not null" json:"pawn_date"`
	ExpiryDate     time.Time       `gorm:"index;not null" json:"expiry_date"`
	ForfeitureDate null.Time       `json:"forfeiture_date"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	Loan         *Loan            `gorm:"foreignKey:TicketID;constraint:OnDelete:RESTRICT" json:"loan,omitempty"`
	Inventory    *InventoryRecord `gorm:"foreignKey:TicketID;constraint:OnDelete:RESTRICT" json:"inventory,omitempty"`
	Transactions []Transaction    `gorm:"foreignKey:TicketID;constraint:OnDelete:RESTRICT" json:"transactions,omitempty"`
}

func (Ticket) TableName() string {
	return "tickets"
}

func (t *Ticket) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// Expired reports whether an ACTIVE ticket has passed its expiry date.
// There is no stored EXPIRED status.
func (t *Ticket) Expired(now time.Time) bool {
	return t.Status == StatusActive && now.After(t.ExpiryDate)
}

// Loan is created with its ticket and never on its own.
type Loan struct {
	ID              string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	TicketID        string          `gorm:"type:varchar(36);uniqueIndex;not null" json:"ticket_id"`
	BranchID        string          `gorm:"type:varchar(36);index;not null" json:"branch_id"`
	PrincipalAmount decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"principal_amount"`
	InterestAmount  decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"interest_amount"`
	RiskScore       int             `gorm:"not null" json:"risk_score"`
	Status          TicketStatus    `gorm:"size:20;not null" json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (Loan) TableName() string {
	return "loans"
}

func (l *Loan) BeforeCreate(tx *gorm.DB) error {
	ensureID(&l.ID)
	return nil
}

// InventoryRecord is the physical custody record of a pawned item. It exists
// while the ticket is ACTIVE, FORFEITED or AUCTION.
type InventoryRecord struct {
	ID              string              `gorm:"type:varchar(36);primaryKey" json:"id"`
	TicketID        string              `gorm:"type:varchar(36);uniqueIndex;not null" json:"ticket_id"`
	BranchID        string              `gorm:"type:varchar(36);index;not null" json:"branch_id"`
	CategoryID      null.String         `gorm:"type:varchar(36)" json:"category_id"`
	StorageLocation string              `gorm:"size:100" json:"storage_location"`
	ForAuction      bool                `gorm:"not null" json:"for_auction"`
	AuctionPrice    decimal.NullDecimal `gorm:"type:decimal(14,2)" json:"auction_price"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

func (InventoryRecord) TableName() string {
	return "inventory"
}

func (i *InventoryRecord) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

type Transaction struct {
	ID        string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	TicketID  string          `gorm:"type:varchar(36);index;not null" json:"ticket_id"`
	BranchID  string          `gorm:"type:varchar(36);index;not null" json:"branch_id"`
	Type      TransactionType `gorm:"size:20;not null" json:"type"`
	Amount    decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// Category is static reference data ("Gold Jewelry", "Electronics", ...).
type Category struct {
	ID   string `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name string `gorm:"size:100;uniqueIndex;not null" json:"name"`
}

func (Category) TableName() string {
	return "categories"
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
