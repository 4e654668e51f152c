package branches

import (
	"net/http"

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
	platform := gate(policy.OpBranches)

	branches := api.Group("/branches")
	{
		branches.POST("", platform, h.Create)
		branches.GET("", platform, h.List)
		// branch staff may read their own branch
		branches.GET("/:id", h.Get)
		branches.PUT("/:id/settings", gate(policy.OpBranches, policy.OpSystemSettings), h.UpdateSettings)
		branches.POST("/:id/suspension", platform, h.ToggleSuspension)
		branches.POST("/:id/invites", platform, h.Invite)
		branches.DELETE("/:id", platform, h.Delete)
	}
}

func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		send := c.MustGet("send").(func(middleware.Response))
		send(middleware.BadRequest(err))
		return false
	}
	return true
}

func (h *Handler) Create(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	var req CreateRequest
	if !bind(c, &req) {
		return
	}
	branch, err := h.svc.Create(c.Request.Context(), auth.MustActor(c), req)
	if err != nil {
		send(middleware.Fail(err))
		return
	}
	send(middleware.Response{Code: http.StatusCreated, Message: "Branch created", Data: branch})
}

func (h *Handler) List(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	branches, err := h.svc.List(c.Request.Context(), auth.MustActor(c))
	if err != nil {
		send(middleware.Fail(err))
		return
	}
	send(middleware.Response{Message: "Branches retrieved", Data: branches})
}

func (h *Handler) Get(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	branch, err := h.svc.Get(c.Request.Context(), auth.MustActor(c), c.Param("id"))
	if err != nil {
		send(middleware.Fail(err))
		return
	}
	send(middleware.Response{Message: "Branch retrieved", Data: branch})
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	var req SettingsRequest
	if !bind(c, &req) {
		return
	}
	branch, err := h.svc.UpdateSettings(c.Request.Context(), auth.MustActor(c), c.Param("id"), req)
	if err != nil {
		send(middleware.Fail(err))
		return
	}
	send(middleware.Response{Message: "Branch settings updated", Data: branch})
}

func (h *Handler) ToggleSuspension(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	branch, err := h.svc.ToggleSuspension(c.Request.Context(), auth.MustActor(c), c.Param("id"))
	if err != nil {
		send(middleware.Fail(err))
		return
	}
	msg := "Branch reactivated"
	if !branch.IsActive {
		msg = "Branch suspended"
	}
	send(middleware.Response{Message: msg, Data: branch})
}

func (h *Handler) Invite(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	var req InviteRequest
	if !bind(c, &req) {
		return
	}
	invite, err := h.svc.Invite(c.Request.Context(), auth.MustActor(c), c.Param("id"), req)
	if err != nil {
		send(middleware.Fail(err))
		return
	}
	send(middleware.Response{Code: http.StatusCreated, Message: "Invite created", Data: invite})
}

func (h *Handler) Delete(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	if err := h.svc.Delete(c.Request.Context(), auth.MustActor(c), c.Param("id")); err != nil {
		send(middleware.Fail(err))
		return
	}
	send(middleware.Response{Message: "Branch deleted"})
}
