package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NotFound("ticket %s", "x"), http.StatusNotFound},
		{InvalidTransition("ticket already redeemed"), http.StatusConflict},
		{ReferentialConflict("customer has tickets"), http.StatusConflict},
		{InvalidInput("bad weight"), http.StatusBadRequest},
		{PermissionDenied("nope"), http.StatusForbidden},
		{Wrap(KindUpstreamUnavailable, errors.New("dial"), "datastore unavailable"), http.StatusServiceUnavailable},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("redeem: %w", InvalidTransition("ticket is forfeited"))
	if !Is(err, KindInvalidTransition) {
		t.Errorf("Expected InvalidTransition through fmt wrapping, got %v", KindOf(err))
	}
	if Is(nil, KindInternal) {
		t.Error("nil must not match any kind")
	}
}

func TestFromDB(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"not found", gorm.ErrRecordNotFound, KindNotFound},
		{"foreign key", gorm.ErrForeignKeyViolated, KindReferentialConflict},
		{"duplicate", gorm.ErrDuplicatedKey, KindInvalidInput},
		{"deadline", context.DeadlineExceeded, KindUpstreamUnavailable},
		{"pg connect", &pgconn.ConnectError{}, KindUpstreamUnavailable},
		{"other", errors.New("syntax error"), KindInternal},
		{"already classified", PermissionDenied("x"), KindPermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(FromDB(tt.err, "ticket")); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}

	if FromDB(nil, "ticket") != nil {
		t.Error("Expected nil for nil error")
	}
}
