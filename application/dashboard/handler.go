package dashboard

import (
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
	dashboard := api.Group("/dashboard")
	{
		dashboard.GET("/stats", gate(policy.OpDashboard), h.Stats)
		dashboard.GET("/decision-support", gate(policy.OpDecision), h.DecisionSupport)
		dashboard.GET("/finance", gate(policy.OpFinance), h.Finance)
	}
}

func (h *Handler) Stats(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	stats, err := h.svc.Stats(c.Request.Context(), auth.MustActor(c), c.Query("branch_id"))
	if err != nil {
		send(middleware.Fail(err))
		return
	}
	send(middleware.Response{Message: "Dashboard stats retrieved", Data: stats})
}

func (h *Handler) DecisionSupport(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	ds, err := h.svc.DecisionSupport(c.Request.Context(), auth.MustActor(c), c.Query("branch_id"))
	if err != nil {
		send(middleware.Fail(err))
		return
	}
	send(middleware.Response{Message: "Decision support retrieved", Data: ds})
}

func (h *Handler) Finance(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	fin, err := h.svc.Finance(c.Request.Context(), auth.MustActor(c), c.Query("branch_id"))
	if err != nil {
		send(middleware.Fail(err))
		return
	}
	send(middleware.Response{Message: "Finance summary retrieved", Data: fin})
}
