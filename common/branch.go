package common

import (
	"time"

	"github.com/guregu/null/v5"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Branch is a tenant. Nearly every other row carries its id.
type Branch struct {
	ID           string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name         string          `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Location     string          `gorm:"size:255" json:"location"`
	IsActive     bool            `gorm:"not null" json:"is_active"`
	InterestRate decimal.Decimal `gorm:"type:decimal(6,3);not null" json:"interest_rate"`
	InterestCap  decimal.Decimal `gorm:"type:decimal(6,3);not null" json:"interest_cap"`
	Features     FeatureFlags    `gorm:"embedded;embeddedPrefix:feature_" json:"features"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	Staff     []Staff       `gorm:"foreignKey:BranchID;constraint:OnDelete:RESTRICT" json:"-"`
	Invites   []AdminInvite `gorm:"foreignKey:BranchID;constraint:OnDelete:RESTRICT" json:"-"`
	Customers []Customer    `gorm:"foreignKey:BranchID;constraint:OnDelete:RESTRICT" json:"-"`
	Tickets   []Ticket      `gorm:"foreignKey:BranchID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (Branch) TableName() string {
	return "branches"
}

func (b *Branch) BeforeCreate(tx *gorm.DB) error {
	ensureID(&b.ID)
	return nil
}

// AdminInvite lets a platform administrator onboard the first branch admin.
type AdminInvite struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	BranchID   string    `gorm:"type:varchar(36);index;not null" json:"branch_id"`
	Email      string    `gorm:"size:100;not null" json:"email"`
	Role       Role      `gorm:"size:20;not null" json:"role"`
	Token      string    `gorm:"size:64;uniqueIndex;not null" json:"token"`
	ExpiresAt  time.Time `json:"expires_at"`
	AcceptedAt null.Time `json:"accepted_at"`
	CreatedAt  time.Time `json:"created_at"`
}

func (AdminInvite) TableName() string {
	return "admin_invites"
}

func (i *AdminInvite) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
