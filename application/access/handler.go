package access

import (
	"github.com/gin-gonic/gin"

	"pawnshop/internal/auth"
	"pawnshop/middleware"
)

// Gate builds a guard for routes that belong to any of ops.
type Gate func(ops ...string) gin.HandlerFunc

type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler
func NewHandler(service *Service) *Handler {
	return &Handler{svc: service}
}

func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/me/operations", h.MyOperations)
}

func (h *Handler) MyOperations(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	view, err := h.svc.Operations(c.Request.Context(), auth.MustActor(c))
	if err != nil {
		send(middleware.Fail(err))
		return
	}
	send(middleware.Response{Message: "Operations retrieved", Data: view})
}

// RequireOperation rejects the request unless one of ops is visible to the
// actor and its branch is active.
func (h *Handler) RequireOperation(ops ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.svc.Authorize(c.Request.Context(), auth.MustActor(c), ops...); err != nil {
			send := c.MustGet("send").(func(middleware.Response))
			send(middleware.Fail(err))
			return
		}
		c.Next()
	}
}
