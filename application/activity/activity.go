package activity

import (
	"fmt"

	"github.com/guregu/null/v5"
	json "github.com/json-iterator/go"
	"gorm.io/gorm"

	"pawnshop/common"
	"pawnshop/internal/auth"
)

const (
	TicketCreate      = "ticket.create"
	TicketRedeem      = "ticket.redeem"
	TicketForfeit     = "ticket.forfeit"
	TicketSweep       = "ticket.forfeit_sweep"
	TicketAuction     = "ticket.auction"
	TicketDelete      = "ticket.delete"
	CustomerCreate    = "customer.create"
	CustomerUpdate    = "customer.update"
	CustomerDelete    = "customer.delete"
	StaffCreate       = "staff.create"
	StaffDelete       = "staff.delete"
	StaffCredential   = "staff.credential"
	BranchCreate      = "branch.create"
	BranchSettings    = "branch.settings"
	BranchSuspend     = "branch.suspend"
	BranchReactivate  = "branch.reactivate"
	BranchDelete      = "branch.delete"
	BranchInvite      = "branch.invite"
	InviteAccept      = "invite.accept"
	PlatformBootstrap = "platform.bootstrap"
)

// Event describes one mutation. Detail is stored as JSON.
type Event struct {
	Action     string
	EntityType string
	EntityID   string
	BranchID   string
	Detail     any
}

// Record appends an entry through tx so it commits or rolls back with the
// change it describes.
func Record(tx *gorm.DB, actor auth.Actor, ev Event) error {
	entry := common.ActivityLog{
		BranchID:   null.NewString(ev.BranchID, ev.BranchID != ""),
		ActorID:    actor.StaffID,
		ActorName:  actor.Name,
		Action:     ev.Action,
		EntityType: ev.EntityType,
		EntityID:   ev.EntityID,
	}
	if ev.Detail != nil {
		detail, err := json.MarshalToString(ev.Detail)
		if err != nil {
			return fmt.Errorf("encoding activity detail: %w", err)
		}
		entry.Detail = detail
	}

	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("recording %s: %w", ev.Action, err)
	}
	return nil
}
