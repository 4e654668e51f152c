package common

import (
	"time"

	"github.com/guregu/null/v5"
	"gorm.io/gorm"
)

// ActivityLog is append-only. No foreign keys, so branch and customer
// deletion never touches it.
type ActivityLog struct {
	ID         string      `gorm:"type:varchar(36);primaryKey" json:"id"`
	BranchID   null.String `gorm:"type:varchar(36);index" json:"branch_id"`
	ActorID    string      `gorm:"type:varchar(36);index" json:"actor_id"`
	ActorName  string      `gorm:"size:100" json:"actor_name"`
	Action     string      `gorm:"size:50;index;not null" json:"action"`
	EntityType string      `gorm:"size:50;not null" json:"entity_type"`
	EntityID   string      `gorm:"type:varchar(36);index" json:"entity_id"`
	Detail     string      `gorm:"type:text" json:"detail"`
	CreatedAt  time.Time   `gorm:"index" json:"created_at"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}

func (a *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
