package policy

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"pawnshop/internal/apperr"
)

func TestEstimate(t *testing.T) {
	tests := []struct {
		name     string
		category string
		weight   float64
		risk     int
		rate     int64
		amount   string
	}{
		{"heavy gold", "Gold Jewelry", 60, 15, 3500, "147000"},
		{"light gold", "Gold Jewelry", 10, 25, 3500, "24500"},
		{"gold at threshold", "Gold Bar", 50, 25, 3500, "122500"},
		{"silver coins", "Silver Coins", 50, 35, 45, "1575"},
		{"heavy silver", "Silver Coins", 150, 20, 45, "4725"},
		{"other category", "Electronics", 2, 45, 500, "700"},
		{"fractional weight rounds", "Electronics", 1.01, 45, 500, "354"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Estimate(tt.category, tt.weight)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if got.RiskScore != tt.risk {
				t.Errorf("Expected risk %d, got %d", tt.risk, got.RiskScore)
			}
			if got.BaseRate != tt.rate {
				t.Errorf("Expected rate %d, got %d", tt.rate, got.BaseRate)
			}
			if !got.RecommendedAmount.Equal(decimal.RequireFromString(tt.amount)) {
				t.Errorf("Expected amount %s, got %s", tt.amount, got.RecommendedAmount)
			}
		})
	}
}

func TestEstimate_RejectsBadWeight(t *testing.T) {
	for _, w := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := Estimate("Gold Jewelry", w)
		if !apperr.Is(err, apperr.KindInvalidInput) {
			t.Errorf("weight %v: expected InvalidInput, got %v", w, err)
		}
	}
}

func TestRiskBand(t *testing.T) {
	cases := map[int]string{0: "low", 29: "low", 30: "medium", 49: "medium", 50: "high", 90: "high"}
	for score, want := range cases {
		if got := RiskBand(score); got != want {
			t.Errorf("RiskBand(%d) = %s, want %s", score, got, want)
		}
	}

	if IsHighRisk(40) {
		t.Error("Expected score 40 not to be high risk")
	}
	if !IsHighRisk(45) {
		t.Error("Expected score 45 to be high risk")
	}
}
