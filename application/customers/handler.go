package customers

import (
	"net/http"
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
	crm := gate(policy.OpCRM)

	customers := api.Group("/customers")
	{
		customers.POST("", gate(policy.OpCRM, policy.OpLoans), h.Create)
		customers.GET("", gate(policy.OpCRM, policy.OpLoans), h.List)
		customers.GET("/:id", crm, h.Get)
		customers.PATCH("/:id", crm, h.Update)
		customers.DELETE("/:id", crm, h.Delete)
	}
}

func invalidPayload(c *gin.Context, err error) {
	send := c.MustGet("send").(func(middleware.Response))
	send(middleware.BadRequest(err))
}

func (h *Handler) Create(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	customer, err := h.svc.Create(c.Request.Context(), auth.MustActor(c), req)
	if err != nil {
		send(middleware.Fail(err))
		return
	}
	send(middleware.Response{Code: http.StatusCreated, Message: "Customer created", Data: customer})
}

func (h *Handler) List(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	f := ListFilter{BranchID: c.Query("branch_id"), Search: c.Query("q")}
	f.Limit, _ = strconv.Atoi(c.Query("limit"))
	f.Offset, _ = strconv.Atoi(c.Query("offset"))

	page, err := h.svc.List(c.Request.Context(), auth.MustActor(c), f)
	if err != nil {
		send(middleware.Fail(err))
		return
	}
	send(middleware.Response{Message: "Customers retrieved", Data: page})
}

func (h *Handler) Get(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	customer, err := h.svc.Get(c.Request.Context(), auth.MustActor(c), c.Param("id"))
	if err != nil {
		send(middleware.Fail(err))
		return
	}
	send(middleware.Response{Message: "Customer retrieved", Data: customer})
}

func (h *Handler) Update(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	customer, err := h.svc.Update(c.Request.Context(), auth.MustActor(c), c.Param("id"), req)
	if err != nil {
		send(middleware.Fail(err))
		return
	}
	send(middleware.Response{Message: "Customer updated", Data: customer})
}

func (h *Handler) Delete(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	if err := h.svc.Delete(c.Request.Context(), auth.MustActor(c), c.Param("id")); err != nil {
		send(middleware.Fail(err))
		return
	}
	send(middleware.Response{Message: "Customer deleted"})
}
