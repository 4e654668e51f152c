package policy

import (
	"github.com/shopspring/decimal"

	"pawnshop/internal/apperr"
)

var (
	// DefaultInterestRate is a percentage, applied flat (not prorated by days).
	DefaultInterestRate = decimal.RequireFromString("3.5")
	ServiceFee          = decimal.NewFromInt(50)

	hundred = decimal.NewFromInt(100)
)

type Settlement struct {
	Principal  decimal.Decimal `json:"principal"`
	Rate       decimal.Decimal `json:"interest_rate"`
	Interest   decimal.Decimal `json:"interest"`
	ServiceFee decimal.Decimal `json:"service_fee"`
	Total      decimal.Decimal `json:"total"`
}

// Settle computes the redemption amount at the default rate.
func Settle(principal decimal.Decimal) (Settlement, error) {
	return SettleAtRate(principal, DefaultInterestRate)
}

// SettleAtRate computes principal + principal*rate% + service fee in exact
// decimal arithmetic so every caller arrives at the same figures.
func SettleAtRate(principal, ratePercent decimal.Decimal) (Settlement, error) {
	if principal.IsNegative() {
		return Settlement{}, apperr.InvalidInput("principal must not be negative, got %s", principal)
	}
	if ratePercent.IsNegative() {
		return Settlement{}, apperr.InvalidInput("interest rate must not be negative, got %s", ratePercent)
	}

	interest := Interest(principal, ratePercent)
	return Settlement{
		Principal:  principal,
		Rate:       ratePercent,
		Interest:   interest,
		ServiceFee: ServiceFee,
		Total:      principal.Add(interest).Add(ServiceFee),
	}, nil
}

// Interest is principal * ratePercent / 100.
func Interest(principal, ratePercent decimal.Decimal) decimal.Decimal {
	return principal.Mul(ratePercent).Div(hundred)
}
