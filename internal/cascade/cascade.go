// Package cascade removes an entity together with everything that references
// it. Every function expects tx to be a transaction; a failing step leaves the
// caller to roll back the whole sequence. Activity logs are never touched.
package cascade

import (
	"fmt"

	"gorm.io/gorm"

	"pawnshop/common"
)

// Tickets deletes loans, inventory records and transactions of the tickets,
// then the tickets themselves.
func Tickets(tx *gorm.DB, ticketIDs []string) error {
	if len(ticketIDs) == 0 {
		return nil
	}

	steps := []struct {
		what  string
		model any
	}{
		{"loans", &common.Loan{}},
		{"inventory records", &common.InventoryRecord{}},
		{"transactions", &common.Transaction{}},
	}
	for _, s := range steps {
		if err := tx.Where("ticket_id IN ?", ticketIDs).Delete(s.model).Error; err != nil {
			return fmt.Errorf("deleting %s: %w", s.what, err)
		}
	}

	if err := tx.Where("id IN ?", ticketIDs).Delete(&common.Ticket{}).Error; err != nil {
		return fmt.Errorf("deleting tickets: %w", err)
	}
	return nil
}

// Customer deletes a customer and all of its tickets. It returns
// gorm.ErrRecordNotFound when the customer does not exist.
func Customer(tx *gorm.DB, customerID string) error {
	ids, err := ticketIDs(tx, "customer_id = ?", customerID)
	if err != nil {
		return err
	}
	if err := Tickets(tx, ids); err != nil {
		return err
	}

	res := tx.Delete(&common.Customer{}, "id = ?", customerID)
	if res.Error != nil {
		return fmt.Errorf("deleting customer: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Branch deletes a tenant with its invites, staff, tickets and customers.
// Settings and feature flags live on the branch row and go with it.
func Branch(tx *gorm.DB, branchID string) error {
	if err := tx.Where("branch_id = ?", branchID).Delete(&common.AdminInvite{}).Error; err != nil {
		return fmt.Errorf("deleting invites: %w", err)
	}
	if err := tx.Where("branch_id = ?", branchID).Delete(&common.Staff{}).Error; err != nil {
		return fmt.Errorf("deleting staff: %w", err)
	}

	ids, err := ticketIDs(tx, "branch_id = ?", branchID)
	if err != nil {
		return err
	}
	if err := Tickets(tx, ids); err != nil {
		return err
	}

	if err := tx.Where("branch_id = ?", branchID).Delete(&common.Customer{}).Error; err != nil {
		return fmt.Errorf("deleting customers: %w", err)
	}

	res := tx.Delete(&common.Branch{}, "id = ?", branchID)
	if res.Error != nil {
		return fmt.Errorf("deleting branch: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func ticketIDs(tx *gorm.DB, query string, arg any) ([]string, error) {
	var ids []string
	if err := tx.Model(&common.Ticket{}).Where(query, arg).Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("collecting tickets: %w", err)
	}
	return ids, nil
}
