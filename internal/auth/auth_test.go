package auth

import (
	"context"
	"database/sql/driver"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pawnshop/common"
	"pawnshop/internal/apperr"
	"pawnshop/middleware"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func anyStaff(context.Context, string) (bool, error) { return true, nil }

func TestIssuer(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Hour)
	branch := "b-1"
	staff := &common.Staff{ID: "s-1", FullName: "Ana", Role: common.RoleManager, BranchID: &branch}

	token, expires, err := issuer.Issue(staff)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if time.Until(expires) <= 0 {
		t.Error("Expected expiry in the future")
	}

	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if claims.StaffID != "s-1" || claims.Role != common.RoleManager || *claims.BranchID != "b-1" {
		t.Errorf("Unexpected claims %+v", claims)
	}

	t.Run("wrong secret", func(t *testing.T) {
		other := NewIssuer("ffffffffffffffffffffffffffffffff", time.Hour)
		if _, err := other.Parse(token); err == nil {
			t.Error("Expected error for foreign signature")
		}
	})

	t.Run("expired", func(t *testing.T) {
		late := NewIssuer(testSecret, time.Hour)
		late.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		if _, err := late.Parse(token); err == nil {
			t.Error("Expected error for expired token")
		}
	})
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !CheckPassword(hash, "correct horse") {
		t.Error("Expected password to match")
	}
	if CheckPassword(hash, "wrong horse") {
		t.Error("Expected mismatch")
	}
	if _, err := HashPassword("short"); !apperr.Is(err, apperr.KindInvalidInput) {
		t.Errorf("Expected InvalidInput, got %v", err)
	}
}

func TestActorBranch(t *testing.T) {
	tests := []struct {
		name      string
		actor     Actor
		requested string
		want      string
		denied    bool
	}{
		{"staff pinned", Actor{Role: common.RoleStaff, BranchID: "b1"}, "", "b1", false},
		{"staff same branch", Actor{Role: common.RoleStaff, BranchID: "b1"}, "b1", "b1", false},
		{"staff other branch", Actor{Role: common.RoleStaff, BranchID: "b1"}, "b2", "", true},
		{"super admin platform", Actor{Role: common.RoleSuperAdmin}, "b2", "b2", false},
		{"super admin all", Actor{Role: common.RoleSuperAdmin}, "", "", false},
		{"super admin impersonating", Actor{Role: common.RoleSuperAdmin, BranchID: "b3", Impersonating: true}, "", "b3", false},
		{"no branch", Actor{Role: common.RoleOwner}, "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.actor.Branch(tt.requested)
			if tt.denied {
				if !apperr.Is(err, apperr.KindPermissionDenied) {
					t.Fatalf("Expected PermissionDenied, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("Branch(%q) = %q, %v; want %q", tt.requested, got, err, tt.want)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	issuer := NewIssuer(testSecret, time.Hour)

	var seen Actor
	r := gin.New()
	r.Use(middleware.RequestInit(), middleware.ResponseInit(zap.NewNop()), Middleware(issuer, anyStaff))
	r.GET("/me", func(c *gin.Context) {
		seen = MustActor(c)
		c.Status(http.StatusNoContent)
	})
	r.GET("/platform", RequireRole(common.RoleSuperAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	token := func(role common.Role, branch *string) string {
		tok, _, err := issuer.Issue(&common.Staff{ID: "s", FullName: "S", Role: role, BranchID: branch})
		if err != nil {
			t.Fatal(err)
		}
		return tok
	}
	do := func(path, tok, impersonate string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
		if impersonate != "" {
			req.Header.Set(ImpersonateHeader, impersonate)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	branch := "b-1"

	if code := do("/me", "", ""); code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", code)
	}
	if code := do("/me", "garbage", ""); code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for bad token, got %d", code)
	}

	if code := do("/me", token(common.RoleStaff, &branch), ""); code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", code)
	}
	if seen.BranchID != "b-1" || seen.Impersonating {
		t.Errorf("Unexpected actor %+v", seen)
	}

	if code := do("/me", token(common.RoleStaff, &branch), "b-2"); code != http.StatusForbidden {
		t.Errorf("Expected 403 when staff impersonates, got %d", code)
	}

	if code := do("/me", token(common.RoleSuperAdmin, nil), "b-9"); code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", code)
	}
	if seen.BranchID != "b-9" || !seen.Impersonating {
		t.Errorf("Expected impersonation of b-9, got %+v", seen)
	}

	if code := do("/platform", token(common.RoleBranchAdmin, &branch), ""); code != http.StatusForbidden {
		t.Errorf("Expected 403 for branch admin on platform route, got %d", code)
	}
	if code := do("/platform", token(common.RoleSuperAdmin, nil), ""); code != http.StatusNoContent {
		t.Errorf("Expected 204 for super admin, got %d", code)
	}
}

func TestMiddleware_DeletedStaff(t *testing.T) {
	gin.SetMode(gin.TestMode)
	issuer := NewIssuer(testSecret, time.Hour)
	branch := "b-1"

	staff := map[string]bool{"s-1": true, "s-2": true}
	var lookupErr error
	lookup := func(_ context.Context, id string) (bool, error) {
		return staff[id], lookupErr
	}

	r := gin.New()
	r.Use(middleware.RequestInit(), middleware.ResponseInit(zap.NewNop()), Middleware(issuer, lookup))
	r.GET("/me", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	do := func(id string) int {
		tok, _, err := issuer.Issue(&common.Staff{ID: id, FullName: "S", Role: common.RoleStaff, BranchID: &branch})
		if err != nil {
			t.Fatal(err)
		}
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := do("s-1"); code != http.StatusNoContent {
		t.Fatalf("Expected 204 for existing staff, got %d", code)
	}

	delete(staff, "s-1")
	if code := do("s-1"); code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for deleted staff, got %d", code)
	}
	if code := do("s-2"); code != http.StatusNoContent {
		t.Errorf("Expected 204 for remaining staff, got %d", code)
	}

	lookupErr = driver.ErrBadConn
	if code := do("s-2"); code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 when the datastore is down, got %d", code)
	}
}
