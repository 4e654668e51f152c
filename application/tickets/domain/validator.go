package domain

import (
	"strings"

	"pawnshop/common"
	"pawnshop/internal/apperr"
)

func (r *CreateRequest) Normalize() {
	r.CustomerID = strings.TrimSpace(r.CustomerID)
	r.Category = strings.TrimSpace(r.Category)
	r.Description = strings.TrimSpace(r.Description)
	r.StorageLocation = strings.TrimSpace(r.StorageLocation)
	if r.StorageLocation == "" {
		r.StorageLocation = "Main Vault"
	}
}

// Validate checks what the binding tags cannot: a category that trims to
// nothing and a non-positive override. Weight is checked by the estimator.
func (r *CreateRequest) Validate() error {
	if r.Category == "" {
		return apperr.InvalidInput("category must not be blank")
	}
	if r.LoanAmount != nil && !r.LoanAmount.IsPositive() {
		return apperr.InvalidInput("loan_amount must be positive, got %s", r.LoanAmount)
	}
	return nil
}

// ParseStatus accepts an empty string for "any status".
func ParseStatus(s string) (common.TicketStatus, error) {
	if s == "" {
		return "", nil
	}
	status := common.TicketStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", apperr.InvalidInput("unknown status %q", s)
	}
	return status, nil
}
