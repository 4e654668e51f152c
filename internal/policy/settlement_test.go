package policy

import (
	"testing"

	"github.com/shopspring/decimal"

	"pawnshop/internal/apperr"
)

func TestSettle(t *testing.T) {
	t.Run("default rate", func(t *testing.T) {
		s, err := Settle(decimal.NewFromInt(50000))
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if !s.Interest.Equal(decimal.NewFromInt(1750)) {
			t.Errorf("Expected interest 1750, got %s", s.Interest)
		}
		if !s.ServiceFee.Equal(decimal.NewFromInt(50)) {
			t.Errorf("Expected fee 50, got %s", s.ServiceFee)
		}
		if !s.Total.Equal(decimal.NewFromInt(51800)) {
			t.Errorf("Expected total 51800, got %s", s.Total)
		}
	})

	t.Run("zero principal still pays the fee", func(t *testing.T) {
		s, err := Settle(decimal.Zero)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if !s.Total.Equal(ServiceFee) {
			t.Errorf("Expected total %s, got %s", ServiceFee, s.Total)
		}
	})

	t.Run("cents are exact", func(t *testing.T) {
		s, _ := Settle(decimal.RequireFromString("1234.56"))
		// 1234.56 * 0.035 = 43.2096
		if !s.Total.Equal(decimal.RequireFromString("1327.7696")) {
			t.Errorf("Unexpected total %s", s.Total)
		}
	})

	t.Run("negative principal", func(t *testing.T) {
		_, err := Settle(decimal.NewFromInt(-1))
		if !apperr.Is(err, apperr.KindInvalidInput) {
			t.Errorf("Expected InvalidInput, got %v", err)
		}
	})
}

func TestSettleAtRate(t *testing.T) {
	s, err := SettleAtRate(decimal.NewFromInt(10000), decimal.NewFromInt(5))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !s.Total.Equal(decimal.NewFromInt(10550)) {
		t.Errorf("Expected total 10550, got %s", s.Total)
	}

	if _, err := SettleAtRate(decimal.NewFromInt(1), decimal.NewFromInt(-1)); !apperr.Is(err, apperr.KindInvalidInput) {
		t.Errorf("Expected InvalidInput for negative rate, got %v", err)
	}
}
