package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"pawnshop/application/activity"
	"pawnshop/application/tickets/domain"
	"pawnshop/common"
	"pawnshop/internal/apperr"
	"pawnshop/internal/auth"
	"pawnshop/internal/policy"
	"pawnshop/internal/stream"
	"pawnshop/middleware"
)

var tracer = otel.Tracer("pawnshop/application/tickets")

type Options struct {
	Term time.Duration
	Now  func() time.Time
	Log  *zap.Logger
}

// service implements the Service interface
type service struct {
	repo domain.Repository
	term time.Duration
	now  func() time.Time
	log  *zap.Logger
}

// NewService creates the ticket lifecycle Service
func NewService(repo domain.Repository, opts Options) domain.Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	return &service{
		repo: repo,
		term: opts.Term,
		now:  func() time.Time { return opts.Now().UTC() },
		log:  opts.Log,
	}
}

func newTicketNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("TKT-%s-%s", now.Format("20060102"), suffix)
}

func (s *service) view(t *common.Ticket) *domain.Ticket {
	v := &domain.Ticket{Ticket: *t, Expired: t.Expired(s.now())}
	if t.Loan != nil {
		v.RiskBand = policy.RiskBand(t.Loan.RiskScore)
	}
	return v
}

func (s *service) Estimate(req domain.EstimateRequest) (policy.Appraisal, error) {
	return policy.Estimate(strings.TrimSpace(req.Category), req.Weight)
}

func (s *service) Create(ctx context.Context, actor auth.Actor, req domain.CreateRequest) (*domain.Ticket, error) {
	ctx, span := tracer.Start(ctx, "tickets.Create")
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	branchID, err := actor.Branch(req.BranchID)
	if err != nil {
		return nil, err
	}
	if branchID == "" {
		return nil, apperr.InvalidInput("branch_id is required")
	}

	appraisal, err := policy.Estimate(req.Category, req.Weight)
	if err != nil {
		return nil, err
	}
	amount := appraisal.RecommendedAmount
	if req.LoanAmount != nil {
		amount = *req.LoanAmount
	}

	now := s.now()
	var ticketID string
	err = s.repo.WithTx(ctx, func(tx domain.Repository) error {
		branch, err := tx.FindBranch(ctx, branchID)
		if err != nil {
			return apperr.FromDB(err, "branch "+branchID)
		}
		if !branch.IsActive {
			return apperr.PermissionDenied("branch is suspended")
		}
		customer, err := tx.FindCustomer(ctx, req.CustomerID)
		if err != nil {
			return apperr.FromDB(err, "customer "+req.CustomerID)
		}
		if customer.BranchID != branch.ID {
			return apperr.InvalidInput("customer %s belongs to another branch", customer.ID)
		}

		ticket := &common.Ticket{
			TicketNumber: newTicketNumber(now),
			CustomerID:   customer.ID,
			BranchID:     branch.ID,
			Category:     req.Category,
			Description:  req.Description,
			Weight:       req.Weight,
			LoanAmount:   amount,
			InterestRate: branch.InterestRate,
			Status:       common.StatusActive,
			HighRisk:     policy.IsHighRisk(appraisal.RiskScore),
			PawnDate:     now,
			ExpiryDate:   policy.ExpiryDate(now, s.term),
		}
		loan := &common.Loan{
			BranchID:        branch.ID,
			PrincipalAmount: amount,
			InterestAmount:  policy.Interest(amount, branch.InterestRate).Round(2),
			RiskScore:       appraisal.RiskScore,
			Status:          common.StatusActive,
		}
		inv := &common.InventoryRecord{BranchID: branch.ID, StorageLocation: req.StorageLocation}
		if id, ok, err := tx.FindCategoryID(ctx, req.Category); err != nil {
			return apperr.FromDB(err, "category")
		} else if ok {
			inv.CategoryID.SetValid(id)
		}
		disbursement := &common.Transaction{BranchID: branch.ID, Type: common.TransactionDisbursement, Amount: amount}

		if err := tx.Create(ctx, ticket, loan, inv, disbursement); err != nil {
			return apperr.FromDB(err, "ticket")
		}
		ticketID = ticket.ID

		return tx.Record(ctx, actor, activity.Event{
			Action:     activity.TicketCreate,
			EntityType: "ticket",
			EntityID:   ticket.ID,
			BranchID:   branch.ID,
			Detail: map[string]any{
				"ticket_number": ticket.TicketNumber,
				"loan_amount":   amount,
				"risk_score":    appraisal.RiskScore,
			},
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.String("ticket.id", ticketID))
	s.log.Info("ticket created", zap.String("ticketId", ticketID), zap.String("branchId", branchID))
	return s.Get(ctx, actor, ticketID)
}

func (s *service) load(ctx context.Context, repo domain.Repository, actor auth.Actor, id string) (*common.Ticket, error) {
	branchID, err := actor.Branch("")
	if err != nil {
		return nil, err
	}
	t, err := repo.Get(ctx, id, branchID)
	if err != nil {
		return nil, apperr.FromDB(err, "ticket "+id)
	}
	return t, nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, id string) (*domain.Ticket, error) {
	t, err := s.load(ctx, s.repo, actor, id)
	if err != nil {
		return nil, err
	}
	return s.view(t), nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, f domain.ListFilter) (*domain.Page, error) {
	branchID, err := actor.Branch(f.BranchID)
	if err != nil {
		return nil, err
	}
	f.BranchID = branchID
	f.Now = s.now()

	tickets, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, apperr.FromDB(err, "tickets")
	}

	page := &domain.Page{Items: make([]domain.Ticket, 0, len(tickets)), Total: total}
	for i := range tickets {
		page.Items = append(page.Items, *s.view(&tickets[i]))
	}
	return page, nil
}

func (s *service) Quote(ctx context.Context, actor auth.Actor, id string) (*domain.Quote, error) {
	t, err := s.load(ctx, s.repo, actor, id)
	if err != nil {
		return nil, err
	}
	if err := policy.CheckTransition(t.Status, common.StatusRedeemed); err != nil {
		return nil, err
	}

	settlement, err := policy.SettleAtRate(t.LoanAmount, t.InterestRate)
	if err != nil {
		return nil, err
	}
	return &domain.Quote{
		TicketID:     t.ID,
		TicketNumber: t.TicketNumber,
		Expired:      t.Expired(s.now()),
		Settlement:   settlement,
	}, nil
}

// refusal explains why a conditional update touched no row.
func (s *service) refusal(ctx context.Context, tx domain.Repository, actor auth.Actor, id string, to common.TicketStatus) error {
	t, err := s.load(ctx, tx, actor, id)
	if err != nil {
		return err
	}
	if err := policy.CheckTransition(t.Status, to); err != nil {
		return err
	}
	if to == common.StatusForfeited {
		if err := policy.CheckForfeit(t, s.now()); err != nil {
			return err
		}
	}
	return apperr.InvalidTransition("ticket changed concurrently, retry")
}

func (s *service) Redeem(ctx context.Context, actor auth.Actor, id string) (*domain.Redemption, error) {
	ctx, span := tracer.Start(ctx, "tickets.Redeem")
	defer span.End()
	span.SetAttributes(attribute.String("ticket.id", id))

	var result domain.Redemption
	err := s.repo.WithTx(ctx, func(tx domain.Repository) error {
		// scope check before the write
		if _, err := s.load(ctx, tx, actor, id); err != nil {
			return err
		}

		n, err := tx.MarkRedeemed(ctx, id)
		if err != nil {
			return apperr.FromDB(err, "ticket "+id)
		}
		if n == 0 {
			return s.refusal(ctx, tx, actor, id, common.StatusRedeemed)
		}

		t, err := s.load(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		settlement, err := policy.SettleAtRate(t.LoanAmount, t.InterestRate)
		if err != nil {
			return err
		}

		if err := tx.DeleteInventory(ctx, id); err != nil {
			return apperr.FromDB(err, "inventory record")
		}
		if err := tx.SetLoanStatus(ctx, []string{id}, common.StatusRedeemed); err != nil {
			return apperr.FromDB(err, "loan")
		}
		if err := tx.AddTransaction(ctx, &common.Transaction{
			TicketID: id,
			BranchID: t.BranchID,
			Type:     common.TransactionRedemption,
			Amount:   settlement.Total,
		}); err != nil {
			return apperr.FromDB(err, "transaction")
		}
		if err := tx.Record(ctx, actor, activity.Event{
			Action:     activity.TicketRedeem,
			EntityType: "ticket",
			EntityID:   id,
			BranchID:   t.BranchID,
			Detail:     map[string]any{"ticket_number": t.TicketNumber, "total": settlement.Total},
		}); err != nil {
			return err
		}

		t, err = s.load(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		result = domain.Redemption{Ticket: *s.view(t), Settlement: settlement}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &result, nil
}

func (s *service) Forfeit(ctx context.Context, actor auth.Actor, id string) (*domain.Ticket, error) {
	ctx, span := tracer.Start(ctx, "tickets.Forfeit")
	defer span.End()

	now := s.now()
	var out *domain.Ticket
	err := s.repo.WithTx(ctx, func(tx domain.Repository) error {
		t, err := s.load(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if err := policy.CheckForfeit(t, now); err != nil {
			return err
		}
		if t.Status == common.StatusForfeited {
			out = s.view(t)
			return nil
		}

		n, err := tx.MarkForfeited(ctx, id, now)
		if err != nil {
			return apperr.FromDB(err, "ticket "+id)
		}
		if n == 0 {
			if again, err := s.load(ctx, tx, actor, id); err == nil && again.Status == common.StatusForfeited {
				out = s.view(again)
				return nil
			}
			return s.refusal(ctx, tx, actor, id, common.StatusForfeited)
		}
		if err := tx.SetLoanStatus(ctx, []string{id}, common.StatusForfeited); err != nil {
			return apperr.FromDB(err, "loan")
		}
		if err := tx.Record(ctx, actor, activity.Event{
			Action:     activity.TicketForfeit,
			EntityType: "ticket",
			EntityID:   id,
			BranchID:   t.BranchID,
			Detail:     map[string]any{"ticket_number": t.TicketNumber},
		}); err != nil {
			return err
		}

		t, err = s.load(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		out = s.view(t)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return out, nil
}

func (s *service) SweepForfeitures(ctx context.Context, actor auth.Actor, branchID string) (*domain.SweepResult, error) {
	branchID, err := actor.Branch(branchID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var result domain.SweepResult
	err = s.repo.WithTx(ctx, func(tx domain.Repository) error {
		ids, err := tx.ForfeitOverdue(ctx, branchID, now)
		if err != nil {
			return apperr.FromDB(err, "tickets")
		}
		result.Forfeited = len(ids)
		if len(ids) == 0 {
			return nil
		}

		if err := tx.SetLoanStatus(ctx, ids, common.StatusForfeited); err != nil {
			return apperr.FromDB(err, "loans")
		}
		return tx.Record(ctx, actor, activity.Event{
			Action:     activity.TicketSweep,
			EntityType: "branch",
			EntityID:   branchID,
			BranchID:   branchID,
			Detail:     map[string]any{"forfeited": len(ids), "ticket_ids": ids},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("forfeiture sweep", zap.String("branchId", branchID), zap.Int("forfeited", result.Forfeited))
	return &result, nil
}

func (s *service) ListForAuction(ctx context.Context, actor auth.Actor, id string, req domain.AuctionRequest) (*domain.Ticket, error) {
	ctx, span := tracer.Start(ctx, "tickets.ListForAuction")
	defer span.End()

	var out *domain.Ticket
	err := s.repo.WithTx(ctx, func(tx domain.Repository) error {
		t, err := s.load(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if err := policy.CheckTransition(t.Status, common.StatusAuction); err != nil {
			return err
		}
		price, err := policy.AuctionPrice(t.LoanAmount, req.Price)
		if err != nil {
			return err
		}

		n, err := tx.MarkAuction(ctx, id)
		if err != nil {
			return apperr.FromDB(err, "ticket "+id)
		}
		if n == 0 {
			return s.refusal(ctx, tx, actor, id, common.StatusAuction)
		}
		if err := tx.ListInventoryForAuction(ctx, t, price); err != nil {
			return apperr.FromDB(err, "inventory record")
		}
		if err := tx.SetLoanStatus(ctx, []string{id}, common.StatusAuction); err != nil {
			return apperr.FromDB(err, "loan")
		}
		if err := tx.Record(ctx, actor, activity.Event{
			Action:     activity.TicketAuction,
			EntityType: "ticket",
			EntityID:   id,
			BranchID:   t.BranchID,
			Detail:     map[string]any{"ticket_number": t.TicketNumber, "starting_bid": price},
		}); err != nil {
			return err
		}

		t, err = s.load(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		out = s.view(t)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return out, nil
}

func (s *service) AuctionItems(ctx context.Context, actor auth.Actor, branchID string) ([]domain.AuctionItem, error) {
	branchID, err := actor.Branch(branchID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.AuctionItems(ctx, branchID)
	if err != nil {
		return nil, apperr.FromDB(err, "auction items")
	}
	if items == nil {
		items = []domain.AuctionItem{}
	}
	return items, nil
}

func (s *service) Delete(ctx context.Context, actor auth.Actor, id string) error {
	return s.repo.WithTx(ctx, func(tx domain.Repository) error {
		t, err := s.load(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(ctx, id); err != nil {
			return apperr.FromDB(err, "ticket "+id)
		}
		return tx.Record(ctx, actor, activity.Event{
			Action:     activity.TicketDelete,
			EntityType: "ticket",
			EntityID:   id,
			BranchID:   t.BranchID,
			Detail:     map[string]any{"ticket_number": t.TicketNumber, "status": t.Status},
		})
	})
}

// Export streams the filtered tickets as a JSON array without loading them
// all at once.
func (s *service) Export(ctx context.Context, actor auth.Actor, f domain.ListFilter) middleware.StreamResponse {
	branchID, err := actor.Branch(f.BranchID)
	if err != nil {
		return middleware.StreamResponse{Error: err}
	}
	f.BranchID = branchID
	f.Now = s.now()

	total, err := s.repo.Count(ctx, f)
	if err != nil {
		return middleware.StreamResponse{Error: apperr.FromDB(err, "tickets")}
	}
	rows, err := s.repo.ExportRows(ctx, f)
	if err != nil {
		return middleware.StreamResponse{Error: apperr.FromDB(err, "tickets")}
	}

	now := f.Now
	streamer := stream.NewDefaultStreamer[common.Ticket]()
	resp := streamer.Stream(ctx, stream.SQLFetcher(rows, s.repo.ScanTicket), func(t common.Ticket) (any, error) {
		return domain.ExportRow{
			TicketNumber: t.TicketNumber,
			CustomerID:   t.CustomerID,
			Category:     t.Category,
			Weight:       t.Weight,
			LoanAmount:   t.LoanAmount,
			Status:       t.Status,
			Expired:      t.Expired(now),
			HighRisk:     t.HighRisk,
			PawnDate:     t.PawnDate.Format(time.DateOnly),
			ExpiryDate:   t.ExpiryDate.Format(time.DateOnly),
		}, nil
	})
	resp.TotalCount = total
	return resp
}
