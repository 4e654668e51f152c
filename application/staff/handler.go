package staff

import (
	"errors"
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

// RegisterRoutes registers staff management under the authenticated api group.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup, gate access.Gate) {
	staff := api.Group("/staff")
	{
		staff.POST("", gate(policy.OpHR), h.Create)
		staff.GET("", gate(policy.OpHR), h.List)
		staff.DELETE("/:id", gate(policy.OpHR), h.Delete)
		// own credential needs no operation
		staff.POST("/:id/credential", h.ChangeCredential)
	}
}

// RegisterAuthRoutes registers the sign-in paths. They must stay outside the
// auth middleware.
func (h *Handler) RegisterAuthRoutes(public *gin.RouterGroup) {
	a := public.Group("/auth")
	{
		a.POST("/login", h.Login)
		a.POST("/bootstrap", h.Bootstrap)
		a.POST("/invites/:token/accept", h.AcceptInvite)
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
	member, err := h.svc.Create(c.Request.Context(), auth.MustActor(c), req)
	if err != nil {
		send(middleware.Fail(err))
		return
	}
	send(middleware.Response{Code: http.StatusCreated, Message: "Staff member created", Data: member})
}

func (h *Handler) List(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	members, err := h.svc.List(c.Request.Context(), auth.MustActor(c), c.Query("branch_id"))
	if err != nil {
		send(middleware.Fail(err))
		return
	}
	send(middleware.Response{Message: "Staff retrieved", Data: members})
}

func (h *Handler) Delete(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	if err := h.svc.Delete(c.Request.Context(), auth.MustActor(c), c.Param("id")); err != nil {
		send(middleware.Fail(err))
		return
	}
	send(middleware.Response{Message: "Staff member deleted"})
}

func (h *Handler) ChangeCredential(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	var req CredentialRequest
	if !bind(c, &req) {
		return
	}
	if err := h.svc.ChangeCredential(c.Request.Context(), auth.MustActor(c), c.Param("id"), req); err != nil {
		send(middleware.Fail(err))
		return
	}
	send(middleware.Response{Message: "Credential updated"})
}

func (h *Handler) Login(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	var req LoginRequest
	if !bind(c, &req) {
		return
	}
	session, err := h.svc.Login(c.Request.Context(), req)
	if errors.Is(err, errBadCredentials) {
		send(middleware.Response{Code: http.StatusUnauthorized, Message: err.Error(), Error: err})
		return
	}
	if err != nil {
		send(middleware.Fail(err))
		return
	}
	send(middleware.Response{Message: "Signed in", Data: session})
}

func (h *Handler) Bootstrap(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	var req BootstrapRequest
	if !bind(c, &req) {
		return
	}
	session, err := h.svc.Bootstrap(c.Request.Context(), req)
	if err != nil {
		send(middleware.Fail(err))
		return
	}
	send(middleware.Response{Code: http.StatusCreated, Message: "Platform bootstrapped", Data: session})
}

func (h *Handler) AcceptInvite(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	var req AcceptInviteRequest
	if !bind(c, &req) {
		return
	}
	session, err := h.svc.AcceptInvite(c.Request.Context(), c.Param("token"), req)
	if err != nil {
		send(middleware.Fail(err))
		return
	}
	send(middleware.Response{Code: http.StatusCreated, Message: "Invite accepted", Data: session})
}
