package policy

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"pawnshop/internal/apperr"
)

// loanToValue is the haircut applied to the metal value of an item.
var loanToValue = decimal.RequireFromString("0.7")

// HighRiskThreshold marks a ticket high risk when its score is above it.
const HighRiskThreshold = 40

type Appraisal struct {
	Category          string          `json:"category"`
	Weight            float64         `json:"weight"`
	RiskScore         int             `json:"risk_score"`
	RiskBand          string          `json:"risk_band"`
	BaseRate          int64           `json:"base_rate"`
	RecommendedAmount decimal.Decimal `json:"recommended_amount"`
}

// Estimate maps (category, weight in grams) to a risk score and an advisory
// loan amount. Lower scores are safer.
func Estimate(category string, weight float64) (Appraisal, error) {
	if math.IsNaN(weight) || math.IsInf(weight, 0) || weight <= 0 {
		return Appraisal{}, apperr.InvalidInput("weight must be a positive number, got %v", weight)
	}

	risk, rate := 45, int64(500)
	switch {
	case strings.Contains(category, "Gold"):
		risk, rate = 25, 3500
		if weight > 50 {
			risk = 15
		}
	case strings.Contains(category, "Silver"):
		risk, rate = 35, 45
		if weight > 100 {
			risk = 20
		}
	}

	amount := decimal.NewFromFloat(weight).
		Mul(decimal.NewFromInt(rate)).
		Mul(loanToValue).
		Round(0)

	return Appraisal{
		Category:          category,
		Weight:            weight,
		RiskScore:         risk,
		RiskBand:          RiskBand(risk),
		BaseRate:          rate,
		RecommendedAmount: amount,
	}, nil
}

func RiskBand(score int) string {
	switch {
	case score < 30:
		return "low"
	case score < 50:
		return "medium"
	}
	return "high"
}

func IsHighRisk(score int) bool {
	return score > HighRiskThreshold
}
