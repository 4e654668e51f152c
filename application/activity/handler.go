package activity

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"pawnshop/application/access"
	"pawnshop/internal/auth"
	"pawnshop/internal/policy"
	"pawnshop/middleware"
)

type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler
func NewHandler(service *Service) *Handler {
	return &Handler{svc: service}
}

func (h *Handler) RegisterRoutes(api *gin.RouterGroup, gate access.Gate) {
	api.GET("/activity", gate(policy.OpDashboard, policy.OpPlatformControl), h.List)
}

func (h *Handler) List(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := h.svc.List(c.Request.Context(), auth.MustActor(c), c.Query("branch_id"), c.Query("action"), limit)
	if err != nil {
		send(middleware.Fail(err))
		return
	}

	send(middleware.Response{Message: "Activity retrieved", Data: entries})
}
