package telemetry

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"pawnshop/config"
)

func TestSetup_DisabledWithoutEndpoint(t *testing.T) {
	shutdown := Setup(context.Background(), config.TelemetryConfig{ServiceName: "pawnshop"}, "test", zap.NewNop())
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("Expected no-op shutdown, got %v", err)
	}
}
