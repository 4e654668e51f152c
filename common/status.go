package common

// TicketStatus is the lifecycle state of a pawn ticket.
type TicketStatus string

const (
	StatusActive    TicketStatus = "ACTIVE"
	StatusRedeemed  TicketStatus = "REDEEMED"
	StatusForfeited TicketStatus = "FORFEITED"
	StatusAuction   TicketStatus = "AUCTION"
)

var TicketStatuses = []TicketStatus{StatusActive, StatusRedeemed, StatusForfeited, StatusAuction}

func (s TicketStatus) Valid() bool {
	for _, v := range TicketStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// TransactionType classifies money movements recorded against a ticket.
type TransactionType string

const (
	TransactionDisbursement TransactionType = "DISBURSEMENT"
	TransactionRedemption   TransactionType = "REDEMPTION"
)
