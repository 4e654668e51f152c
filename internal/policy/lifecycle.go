package policy

import (
	"time"

	"github.com/shopspring/decimal"

	"pawnshop/common"
	"pawnshop/internal/apperr"
)

// DefaultTerm is the loan term when the branch configuration names none.
const DefaultTerm = 30 * 24 * time.Hour

var auctionMarkup = decimal.RequireFromString("1.10")

// CheckTransition validates a status change. There is no way back into ACTIVE.
func CheckTransition(from, to common.TicketStatus) error {
	if !from.Valid() || !to.Valid() {
		return apperr.InvalidInput("unknown ticket status %q -> %q", from, to)
	}

	switch to {
	case common.StatusRedeemed:
		if from == common.StatusActive {
			return nil
		}
	case common.StatusForfeited:
		if from == common.StatusActive || from == common.StatusForfeited {
			return nil
		}
	case common.StatusAuction:
		if from == common.StatusForfeited {
			return nil
		}
	}
	return apperr.InvalidTransition("%s", describeRefusal(from, to))
}

func describeRefusal(from, to common.TicketStatus) string {
	switch from {
	case common.StatusRedeemed:
		return "ticket already redeemed"
	case common.StatusAuction:
		return "ticket is already listed for auction"
	case common.StatusForfeited:
		if to == common.StatusRedeemed {
			return "ticket is forfeited"
		}
	case common.StatusActive:
		if to == common.StatusAuction {
			return "only forfeited tickets can be listed for auction"
		}
	}
	return "ticket cannot move from " + string(from) + " to " + string(to)
}

// CheckForfeit adds the expiry precondition to CheckTransition. A ticket that is
// already FORFEITED passes so callers can treat the call as idempotent.
func CheckForfeit(t *common.Ticket, now time.Time) error {
	if err := CheckTransition(t.Status, common.StatusForfeited); err != nil {
		return err
	}
	if t.Status == common.StatusActive && !now.After(t.ExpiryDate) {
		return apperr.InvalidTransition("ticket has not expired")
	}
	return nil
}

// ExpiryDate returns the due date of a ticket pawned at pawnDate.
func ExpiryDate(pawnDate time.Time, term time.Duration) time.Time {
	if term <= 0 {
		term = DefaultTerm
	}
	return pawnDate.Add(term)
}

// AuctionPrice is the starting bid: the supplied price when positive, else the
// loan amount plus ten percent rounded to whole units.
func AuctionPrice(loanAmount decimal.Decimal, supplied *decimal.Decimal) (decimal.Decimal, error) {
	if supplied != nil {
		if !supplied.IsPositive() {
			return decimal.Zero, apperr.InvalidInput("auction price must be positive, got %s", supplied)
		}
		return *supplied, nil
	}
	return loanAmount.Mul(auctionMarkup).Round(0), nil
}
