package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"pawnshop/application/tickets/domain"
	"pawnshop/application/tickets/repository"
	"pawnshop/application/tickets/service"
	"pawnshop/common"
	"pawnshop/internal/auth"
	"pawnshop/internal/database/dbtest"
	"pawnshop/middleware"
)

func openGate(...string) gin.HandlerFunc {
	return func(c *gin.Context) { c.Next() }
}

func newRouter(db *gorm.DB, actor auth.Actor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewService(repository.NewRepository(db), service.Options{Term: 30 * 24 * time.Hour})

	r := gin.New()
	r.Use(middleware.RequestInit(), middleware.ResponseInit(zap.NewNop()))
	api := r.Group("/v1", func(c *gin.Context) { auth.SetActor(c, actor) })
	NewHandler(svc, zap.NewNop()).RegisterRoutes(api, openGate)
	return r
}

func do(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	RequestID string          `json:"requestId"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("Invalid response %s: %v", w.Body.String(), err)
	}
	return env
}

func TestTicketRoutes(t *testing.T) {
	db := dbtest.Open(t)
	branch := dbtest.Branch(t, db, "North")
	customer := dbtest.Customer(t, db, branch.ID, "Juan")
	r := newRouter(db, auth.Actor{StaffID: "s1", Role: common.RoleBranchAdmin, BranchID: branch.ID})

	var ticketID string

	t.Run("create", func(t *testing.T) {
		w := do(r, http.MethodPost, "/v1/tickets", map[string]any{
			"customer_id": customer.ID,
			"category":    "Gold Jewelry",
			"weight":      10.5,
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
		}
		env := decode(t, w)
		var tk domain.Ticket
		if err := json.Unmarshal(env.Data, &tk); err != nil {
			t.Fatal(err)
		}
		if tk.Weight != 10.5 || tk.Status != common.StatusActive || tk.RiskBand != "low" {
			t.Errorf("Unexpected ticket %+v", tk)
		}
		ticketID = tk.ID
	})

	t.Run("invalid payload", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/tickets", bytes.NewBufferString("{"))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})

	t.Run("missing customer", func(t *testing.T) {
		w := do(r, http.MethodPost, "/v1/tickets", map[string]any{"category": "Gold Jewelry", "weight": 1})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("Expected status 400, got %d", w.Code)
		}
		if msg := decode(t, w).Message; msg != "customer_id is required" {
			t.Errorf("Expected 'customer_id is required', got %q", msg)
		}
	})

	t.Run("settlement", func(t *testing.T) {
		w := do(r, http.MethodGet, "/v1/tickets/"+ticketID+"/settlement", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("forfeit before expiry", func(t *testing.T) {
		w := do(r, http.MethodPost, "/v1/tickets/"+ticketID+"/forfeit", nil)
		if w.Code != http.StatusConflict {
			t.Fatalf("Expected status 409, got %d", w.Code)
		}
		if env := decode(t, w); env.Message != "ticket has not expired" {
			t.Errorf("Expected refusal message, got %q", env.Message)
		}
	})

	t.Run("redeem twice", func(t *testing.T) {
		if w := do(r, http.MethodPost, "/v1/tickets/"+ticketID+"/redeem", nil); w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
		}
		w := do(r, http.MethodPost, "/v1/tickets/"+ticketID+"/redeem", nil)
		if w.Code != http.StatusConflict {
			t.Errorf("Expected status 409, got %d", w.Code)
		}
		if env := decode(t, w); env.Message != "ticket already redeemed" {
			t.Errorf("Expected 'ticket already redeemed', got %q", env.Message)
		}
	})

	t.Run("list", func(t *testing.T) {
		w := do(r, http.MethodGet, "/v1/tickets?status=REDEEMED", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		var page domain.Page
		json.Unmarshal(decode(t, w).Data, &page)
		if page.Total != 1 {
			t.Errorf("Expected 1 redeemed ticket, got %d", page.Total)
		}
	})

	t.Run("bad status filter", func(t *testing.T) {
		if w := do(r, http.MethodGet, "/v1/tickets?status=LOST", nil); w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})

	t.Run("foreign branch", func(t *testing.T) {
		if w := do(r, http.MethodGet, "/v1/tickets?branch_id=other", nil); w.Code != http.StatusForbidden {
			t.Errorf("Expected status 403, got %d", w.Code)
		}
	})

	t.Run("missing ticket", func(t *testing.T) {
		if w := do(r, http.MethodGet, "/v1/tickets/ghost", nil); w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", w.Code)
		}
	})

	t.Run("export", func(t *testing.T) {
		dbtest.Ticket(t, db, customer, dbtest.TicketOpts{})
		w := do(r, http.MethodGet, "/v1/tickets/export", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		if got := w.Header().Get("X-Total-Count"); got != "2" {
			t.Errorf("Expected X-Total-Count 2, got %q", got)
		}
		var rows []domain.ExportRow
		if err := json.Unmarshal(w.Body.Bytes(), &rows); err != nil {
			t.Fatalf("Invalid export %s: %v", w.Body.String(), err)
		}
		if len(rows) != 2 {
			t.Errorf("Expected 2 rows, got %d", len(rows))
		}
	})

	t.Run("estimate", func(t *testing.T) {
		w := do(r, http.MethodPost, "/v1/appraisals/estimate", map[string]any{"category": "Silver Coins", "weight": 200})
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		var a struct {
			RiskScore int `json:"risk_score"`
		}
		json.Unmarshal(decode(t, w).Data, &a)
		if a.RiskScore != 20 {
			t.Errorf("Expected risk 20, got %d", a.RiskScore)
		}
	})
}

func TestDeleteRequiresBranchAdmin(t *testing.T) {
	r := newRouter(dbtest.Open(t), auth.Actor{StaffID: "s2", Role: common.RoleStaff, BranchID: "b"})
	if w := do(r, http.MethodDelete, "/v1/tickets/any", nil); w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", w.Code)
	}
}
