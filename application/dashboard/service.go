package dashboard

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pawnshop/common"
	"pawnshop/internal/apperr"
	"pawnshop/internal/auth"
	"pawnshop/internal/policy"
)

// AgingAfter marks an active item as aging.
const AgingAfter = 90 * 24 * time.Hour

type CategorySummary struct {
	Name  string          `json:"name"`
	Count int64           `json:"count"`
	Value decimal.Decimal `json:"value"`
	Tag   string          `json:"tag"`
	Color string          `json:"color"`
}

type Stats struct {
	TotalActiveLoans  decimal.Decimal   `json:"total_active_loans"`
	ProjectedInterest decimal.Decimal   `json:"projected_interest"`
	StatusCounts      map[string]int64  `json:"status_counts"`
	Inventory         []CategorySummary `json:"inventory"`
	CustomerCount     int64             `json:"customer_count"`
	Degraded          bool              `json:"degraded,omitempty"`
}

type DecisionSupport struct {
	ActiveItems      []ActiveItem      `json:"active_items"`
	Breakdown        []CategorySummary `json:"breakdown"`
	TotalValue       decimal.Decimal   `json:"total_value"`
	AgingCount       int               `json:"aging_count"`
	RiskLevel        string            `json:"risk_level"`
	ProjectedRevenue decimal.Decimal   `json:"projected_revenue"`
	Degraded         bool              `json:"degraded,omitempty"`
}

type StatusTotal struct {
	Status    common.TicketStatus `json:"status"`
	Count     int64               `json:"count"`
	Principal decimal.Decimal     `json:"principal"`
	Interest  decimal.Decimal     `json:"interest"`
}

type Finance struct {
	ByStatus       []StatusTotal   `json:"by_status"`
	TotalPrincipal decimal.Decimal `json:"total_principal"`
	TotalInterest  decimal.Decimal `json:"total_interest"`
	Degraded       bool            `json:"degraded,omitempty"`
}

type Service struct {
	repo *Repository
	log  *zap.Logger
	now  func() time.Time
}

// NewService creates a new Service
func NewService(repo *Repository, log *zap.Logger) *Service {
	return &Service{repo: repo, log: log, now: time.Now}
}

// tag returns the colour tag shown next to a category.
func tag(category string) (string, string) {
	lower := strings.ToLower(category)
	switch {
	case strings.Contains(lower, "gold"):
		return "gold", "#facc15"
	case strings.Contains(lower, "silver"):
		return "silver", "#94a3b8"
	}
	return "other", "#6366f1"
}

// degrade swallows an unavailable datastore so the read returns zero values.
func (s *Service) degrade(err error, what, branchID string) (bool, error) {
	err = apperr.FromDB(err, what)
	if apperr.Is(err, apperr.KindUpstreamUnavailable) {
		s.log.Warn("dashboard degraded", zap.String("read", what), zap.String("branchId", branchID), zap.Error(err))
		return true, nil
	}
	return false, err
}

func emptyStats() *Stats {
	counts := make(map[string]int64, len(common.TicketStatuses))
	for _, st := range common.TicketStatuses {
		counts[string(st)] = 0
	}
	return &Stats{
		TotalActiveLoans:  decimal.Zero,
		ProjectedInterest: decimal.Zero,
		StatusCounts:      counts,
		Inventory:         []CategorySummary{},
	}
}

func (s *Service) Stats(ctx context.Context, actor auth.Actor, branchID string) (*Stats, error) {
	branchID, err := actor.Branch(branchID)
	if err != nil {
		return nil, err
	}
	out := emptyStats()
	fail := func(err error, what string) (*Stats, error) {
		degraded, err := s.degrade(err, what, branchID)
		if err != nil {
			return nil, err
		}
		zero := emptyStats()
		zero.Degraded = degraded
		return zero, nil
	}

	buckets, err := s.repo.ActivePrincipalByRate(ctx, branchID)
	if err != nil {
		return fail(err, "active loans")
	}
	for _, b := range buckets {
		out.TotalActiveLoans = out.TotalActiveLoans.Add(b.Principal)
		out.ProjectedInterest = out.ProjectedInterest.Add(policy.Interest(b.Principal, b.InterestRate))
	}
	out.ProjectedInterest = out.ProjectedInterest.Round(2)

	counts, err := s.repo.StatusCounts(ctx, branchID)
	if err != nil {
		return fail(err, "ticket counts")
	}
	for _, c := range counts {
		out.StatusCounts[string(c.Status)] = c.N
	}

	categories, err := s.repo.ActiveByCategory(ctx, branchID)
	if err != nil {
		return fail(err, "inventory summary")
	}
	out.Inventory = summarize(categories)

	if out.CustomerCount, err = s.repo.CustomerCount(ctx, branchID); err != nil {
		return fail(err, "customers")
	}
	return out, nil
}

func summarize(rows []categoryRow) []CategorySummary {
	out := make([]CategorySummary, 0, len(rows))
	for _, row := range rows {
		t, color := tag(row.Name)
		out = append(out, CategorySummary{Name: row.Name, Count: row.N, Value: row.Value, Tag: t, Color: color})
	}
	return out
}

func (s *Service) DecisionSupport(ctx context.Context, actor auth.Actor, branchID string) (*DecisionSupport, error) {
	branchID, err := actor.Branch(branchID)
	if err != nil {
		return nil, err
	}
	out := &DecisionSupport{
		ActiveItems:      []ActiveItem{},
		Breakdown:        []CategorySummary{},
		TotalValue:       decimal.Zero,
		RiskLevel:        "Optimal",
		ProjectedRevenue: decimal.Zero,
	}

	items, err := s.repo.ActiveItems(ctx, branchID)
	if err != nil {
		degraded, err := s.degrade(err, "active items", branchID)
		out.Degraded = degraded
		if err != nil {
			return nil, err
		}
		return out, nil
	}

	cutoff := s.now().UTC().Add(-AgingAfter)
	byCategory := map[string]*categoryRow{}
	var order []string
	for i := range items {
		it := &items[i]
		it.Aging = it.PawnDate.Before(cutoff)
		if it.Aging {
			out.AgingCount++
		}
		out.TotalValue = out.TotalValue.Add(it.LoanAmount)
		out.ProjectedRevenue = out.ProjectedRevenue.Add(policy.Interest(it.LoanAmount, it.InterestRate))

		name := it.Category
		if name == "" {
			name = "Others"
		}
		row, ok := byCategory[name]
		if !ok {
			row = &categoryRow{Name: name}
			byCategory[name] = row
			order = append(order, name)
		}
		row.N++
		row.Value = row.Value.Add(it.LoanAmount)
	}

	rows := make([]categoryRow, 0, len(order))
	for _, name := range order {
		rows = append(rows, *byCategory[name])
	}
	out.Breakdown = summarize(rows)
	out.ActiveItems = items
	out.ProjectedRevenue = out.ProjectedRevenue.Round(2)

	// more than a fifth of the items aging
	if out.AgingCount*5 > len(items) {
		out.RiskLevel = "Moderate"
	}
	return out, nil
}

func (s *Service) Finance(ctx context.Context, actor auth.Actor, branchID string) (*Finance, error) {
	branchID, err := actor.Branch(branchID)
	if err != nil {
		return nil, err
	}
	out := &Finance{ByStatus: []StatusTotal{}, TotalPrincipal: decimal.Zero, TotalInterest: decimal.Zero}

	rows, err := s.repo.LoanTotals(ctx, branchID)
	if err != nil {
		degraded, err := s.degrade(err, "loan totals", branchID)
		out.Degraded = degraded
		if err != nil {
			return nil, err
		}
		return out, nil
	}

	for _, row := range rows {
		out.ByStatus = append(out.ByStatus, StatusTotal{
			Status:    row.Status,
			Count:     row.N,
			Principal: row.Principal,
			Interest:  row.Interest,
		})
		out.TotalPrincipal = out.TotalPrincipal.Add(row.Principal)
		out.TotalInterest = out.TotalInterest.Add(row.Interest)
	}
	return out, nil
}
