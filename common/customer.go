package common

import (
	"time"

	"gorm.io/gorm"
)

type Customer struct {
	ID            string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	FullName      string    `gorm:"size:100;not null;uniqueIndex:idx_customer_identity" json:"full_name"`
	ContactNumber string    `gorm:"size:50;not null;uniqueIndex:idx_customer_identity" json:"contact_number"`
	Address       string    `gorm:"size:255" json:"address"`
	LoyaltyTier   string    `gorm:"size:20;not null" json:"loyalty_tier"`
	BranchID      string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_customer_identity;index" json:"branch_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Tickets []Ticket `gorm:"foreignKey:CustomerID;constraint:OnDelete:RESTRICT" json:"tickets,omitempty"`
}

func (Customer) TableName() string {
	return "customers"
}

func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
