package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_DRIVER", "sqlite")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Loans.Term != 30*24*time.Hour {
		t.Errorf("Expected 30 day term, got %v", cfg.Loans.Term)
	}
	if cfg.Loans.DefaultInterestRate.String() != "3.5" {
		t.Errorf("Expected rate 3.5, got %s", cfg.Loans.DefaultInterestRate)
	}
	if cfg.Auth.JWTSecret != devSecret {
		t.Error("Expected development secret when none configured")
	}
	if len(cfg.Settings.Categories) != len(DefaultCategories) {
		t.Errorf("Expected default categories, got %v", cfg.Settings.Categories)
	}
}

func TestLoad_ProductionNeedsSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "short")

	if _, err := Load(""); err == nil {
		t.Fatal("Expected error for short JWT secret")
	}
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_DRIVER", "oracle")

	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "DB_DRIVER") {
		t.Fatalf("Expected DB_DRIVER error, got %v", err)
	}
}

func TestLoad_RejectsMalformedNumbers(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"DB_MAX_OPEN_CONNS", "abc"},
		{"TICKET_TERM_DAYS", "thirty"},
		{"JWT_TTL", "12"},
		{"DB_CONN_MAX_LIFETIME", "forever"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv("APP_ENV", "development")
			t.Setenv("DB_DRIVER", "sqlite")
			t.Setenv(tt.key, tt.value)

			_, err := Load("")
			if err == nil {
				t.Fatalf("Expected error for %s=%q", tt.key, tt.value)
			}
			if !strings.Contains(err.Error(), tt.key) || !strings.Contains(err.Error(), tt.value) {
				t.Errorf("Expected error naming %s and %q, got %v", tt.key, tt.value, err)
			}
		})
	}
}

func TestLoad_SettingsFile(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("TICKET_TERM_DAYS", "60")

	path := filepath.Join(t.TempDir(), "settings.yaml")
	body := "categories:\n  - Gold Jewelry\n  - Cameras\ndefault_features:\n  vault_enabled: false\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(cfg.Settings.Categories) != 2 || cfg.Settings.Categories[1] != "Cameras" {
		t.Errorf("Unexpected categories %v", cfg.Settings.Categories)
	}
	if v, ok := cfg.Settings.DefaultFeatures["vault_enabled"]; !ok || v {
		t.Errorf("Expected vault_enabled=false, got %v", cfg.Settings.DefaultFeatures)
	}
	if cfg.Loans.Term != 60*24*time.Hour {
		t.Errorf("Expected 60 day term, got %v", cfg.Loans.Term)
	}
}

func TestGetDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{"explicit dsn", DatabaseConfig{Driver: "postgres", DSN: "postgres://x"}, "postgres://x"},
		{"sqlite", DatabaseConfig{Driver: "sqlite", DBName: "shop"}, "shop.db?_foreign_keys=1"},
		{"mysql", DatabaseConfig{Driver: "mysql", User: "u", Password: "p", Host: "db", DBName: "shop"},
			"u:p@tcp(db:3306)/shop?charset=utf8mb4&parseTime=True&loc=UTC"},
		{"postgres", DatabaseConfig{Driver: "postgres", User: "u", Password: "p", Host: "db", Port: "6543", DBName: "shop", SSLMode: "disable"},
			"host=db port=6543 user=u password=p dbname=shop sslmode=disable TimeZone=UTC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.GetDSN(); got != tt.want {
				t.Errorf("GetDSN() = %q, want %q", got, tt.want)
			}
		})
	}
}
