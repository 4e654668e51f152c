package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"pawnshop/internal/apperr"
)

func newTestRouter(h gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestInit(), ResponseInit(zap.NewNop()))
	r.GET("/x", h)
	return r
}

func decode(t *testing.T, body string) ResponseAPI {
	t.Helper()
	var resp ResponseAPI
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("invalid envelope %q: %v", body, err)
	}
	return resp
}

func TestSend(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		r := newTestRouter(func(c *gin.Context) {
			c.MustGet("send").(func(Response))(Response{Data: map[string]int{"n": 1}})
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

		if w.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", w.Code)
		}
		resp := decode(t, w.Body.String())
		if resp.Message != "Success" || resp.RequestID == "" {
			t.Errorf("Unexpected envelope %+v", resp)
		}
		if resp.Debug != nil {
			t.Error("Expected no debug block in test mode")
		}
	})

	t.Run("request id is echoed", func(t *testing.T) {
		r := newTestRouter(func(c *gin.Context) {
			c.MustGet("send").(func(Response))(Response{})
		})
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if got := decode(t, w.Body.String()).RequestID; got != "abc-123" {
			t.Errorf("Expected abc-123, got %s", got)
		}
		if w.Header().Get(RequestIDHeader) != "abc-123" {
			t.Error("Expected request id header")
		}
	})
}

func TestFail(t *testing.T) {
	resp := Fail(apperr.InvalidTransition("ticket already redeemed"))
	if resp.Code != http.StatusConflict || resp.Message != "ticket already redeemed" {
		t.Errorf("Unexpected response %+v", resp)
	}

	resp = Fail(errors.New("sql: connection refused at 10.0.0.1"))
	if resp.Code != http.StatusInternalServerError || resp.Message != "Internal server error" {
		t.Errorf("Expected internal details hidden, got %+v", resp)
	}
}

func chunks(parts ...string) <-chan StreamChunk {
	ch := make(chan StreamChunk, len(parts))
	for _, p := range parts {
		b := []byte(p)
		ch <- StreamChunk{JSONBuf: &b}
	}
	close(ch)
	return ch
}

func TestSendStream(t *testing.T) {
	t.Run("chunks are concatenated", func(t *testing.T) {
		released := 0
		r := newTestRouter(func(c *gin.Context) {
			c.MustGet("sendStream").(func(StreamResponse))(StreamResponse{
				TotalCount: 2,
				ChunkChan:  chunks(`[{"a":1}`, `,{"a":2}`, `]`),
				Release:    func(*[]byte) { released++ },
			})
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

		if w.Body.String() != `[{"a":1},{"a":2}]` {
			t.Errorf("Unexpected body %s", w.Body.String())
		}
		if w.Header().Get("X-Total-Count") != "2" {
			t.Errorf("Expected X-Total-Count 2, got %q", w.Header().Get("X-Total-Count"))
		}
		if released != 3 {
			t.Errorf("Expected 3 buffers released, got %d", released)
		}
	})

	t.Run("error before first chunk", func(t *testing.T) {
		ch := make(chan StreamChunk, 1)
		ch <- StreamChunk{Error: apperr.InvalidInput("bad filter")}
		close(ch)

		r := newTestRouter(func(c *gin.Context) {
			c.MustGet("sendStream").(func(StreamResponse))(StreamResponse{TotalCount: -1, ChunkChan: ch})
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), "Stream failed") {
			t.Errorf("Expected error envelope, got %s", w.Body.String())
		}
		if w.Header().Get("X-Total-Count") != "" {
			t.Error("Expected no count header on failure")
		}
	})

	t.Run("upfront error", func(t *testing.T) {
		r := newTestRouter(func(c *gin.Context) {
			c.MustGet("sendStream").(func(StreamResponse))(StreamResponse{Error: apperr.PermissionDenied("no")})
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

		if w.Code != http.StatusForbidden {
			t.Errorf("Expected 403, got %d", w.Code)
		}
	})
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestInit(), Recovery(zap.NewNop()))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", w.Code)
	}
	if decode(t, w.Body.String()).Message != "Internal server error" {
		t.Errorf("Unexpected body %s", w.Body.String())
	}
}
