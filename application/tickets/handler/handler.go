package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pawnshop/application/access"
	"pawnshop/application/tickets/domain"
	"pawnshop/common"
	"pawnshop/internal/apperr"
	"pawnshop/internal/auth"
	"pawnshop/internal/policy"
	"pawnshop/middleware"
)

// Handler handles HTTP requests for tickets
type Handler struct {
	svc domain.Service
	log *zap.Logger
}

// NewHandler creates a new Handler
func NewHandler(service domain.Service, log *zap.Logger) *Handler {
	return &Handler{svc: service, log: log}
}

// RegisterRoutes registers the ticket, appraisal and auction routes under api.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup, gate access.Gate) {
	readable := gate(policy.OpLoans, policy.OpRedemption, policy.OpInventory, policy.OpAuction)

	tickets := api.Group("/tickets")
	{
		tickets.POST("", gate(policy.OpLoans), h.Create)
		tickets.GET("", readable, h.List)
		tickets.GET("/export", gate(policy.OpLoans, policy.OpInventory), h.Export)
		tickets.POST("/forfeitures/sweep", gate(policy.OpInventory), h.SweepForfeitures)
		tickets.GET("/:id", readable, h.Get)
		tickets.GET("/:id/settlement", gate(policy.OpRedemption, policy.OpLoans), h.Settlement)
		tickets.POST("/:id/redeem", gate(policy.OpRedemption), h.Redeem)
		tickets.POST("/:id/forfeit", gate(policy.OpInventory, policy.OpRedemption), h.Forfeit)
		tickets.POST("/:id/auction", gate(policy.OpAuction), h.ListForAuction)
		tickets.DELETE("/:id", gate(policy.OpLoans),
			auth.RequireRole(common.RoleBranchAdmin, common.RoleSuperAdmin), h.Delete)
	}

	api.POST("/appraisals/estimate", gate(policy.OpLoans), h.Estimate)
	api.GET("/auction/items", gate(policy.OpAuction), h.AuctionItems)
}

func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		send := c.MustGet("send").(func(middleware.Response))
		send(middleware.BadRequest(err))
		return false
	}
	return true
}

func listFilter(c *gin.Context) (domain.ListFilter, error) {
	status, err := domain.ParseStatus(c.Query("status"))
	if err != nil {
		return domain.ListFilter{}, err
	}

	f := domain.ListFilter{
		BranchID:   c.Query("branch_id"),
		CustomerID: c.Query("customer_id"),
		Status:     status,
	}
	if raw := c.Query("expired"); raw != "" {
		expired, err := strconv.ParseBool(raw)
		if err != nil {
			return f, apperr.InvalidInput("expired must be true or false")
		}
		f.Expired = &expired
	}
	f.Limit, _ = strconv.Atoi(c.Query("limit"))
	f.Offset, _ = strconv.Atoi(c.Query("offset"))
	return f, nil
}

func (h *Handler) Estimate(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	var req domain.EstimateRequest
	if !bind(c, &req) {
		return
	}
	appraisal, err := h.svc.Estimate(req)
	if err != nil {
		send(middleware.Fail(err))
		return
	}
	send(middleware.Response{Message: "Estimate calculated", Data: appraisal})
}

func (h *Handler) Create(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	var req domain.CreateRequest
	if !bind(c, &req) {
		return
	}
	ticket, err := h.svc.Create(c.Request.Context(), auth.MustActor(c), req)
	if err != nil {
		send(middleware.Fail(err))
		return
	}
	send(middleware.Response{Code: http.StatusCreated, Message: "Ticket created", Data: ticket})
}

func (h *Handler) List(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	f, err := listFilter(c)
	if err != nil {
		send(middleware.Fail(err))
		return
	}
	page, err := h.svc.List(c.Request.Context(), auth.MustActor(c), f)
	if err != nil {
		send(middleware.Fail(err))
		return
	}
	send(middleware.Response{Message: "Tickets retrieved", Data: page})
}

func (h *Handler) Get(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	ticket, err := h.svc.Get(c.Request.Context(), auth.MustActor(c), c.Param("id"))
	if err != nil {
		send(middleware.Fail(err))
		return
	}
	send(middleware.Response{Message: "Ticket retrieved", Data: ticket})
}

func (h *Handler) Settlement(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	quote, err := h.svc.Quote(c.Request.Context(), auth.MustActor(c), c.Param("id"))
	if err != nil {
		send(middleware.Fail(err))
		return
	}
	send(middleware.Response{Message: "Settlement calculated", Data: quote})
}

func (h *Handler) Redeem(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	result, err := h.svc.Redeem(c.Request.Context(), auth.MustActor(c), c.Param("id"))
	if err != nil {
		send(middleware.Fail(err))
		return
	}
	send(middleware.Response{Message: "Ticket redeemed", Data: result})
}

func (h *Handler) Forfeit(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	ticket, err := h.svc.Forfeit(c.Request.Context(), auth.MustActor(c), c.Param("id"))
	if err != nil {
		send(middleware.Fail(err))
		return
	}
	send(middleware.Response{Message: "Ticket forfeited", Data: ticket})
}

func (h *Handler) SweepForfeitures(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	result, err := h.svc.SweepForfeitures(c.Request.Context(), auth.MustActor(c), c.Query("branch_id"))
	if err != nil {
		send(middleware.Fail(err))
		return
	}
	send(middleware.Response{Message: "Overdue tickets forfeited", Data: result})
}

func (h *Handler) ListForAuction(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	var req domain.AuctionRequest
	if c.Request.ContentLength != 0 && !bind(c, &req) {
		return
	}
	ticket, err := h.svc.ListForAuction(c.Request.Context(), auth.MustActor(c), c.Param("id"), req)
	if err != nil {
		send(middleware.Fail(err))
		return
	}
	send(middleware.Response{Message: "Ticket listed for auction", Data: ticket})
}

func (h *Handler) AuctionItems(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	items, err := h.svc.AuctionItems(c.Request.Context(), auth.MustActor(c), c.Query("branch_id"))
	if err != nil {
		send(middleware.Fail(err))
		return
	}
	send(middleware.Response{Message: "Auction items retrieved", Data: items})
}

func (h *Handler) Delete(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	if err := h.svc.Delete(c.Request.Context(), auth.MustActor(c), c.Param("id")); err != nil {
		send(middleware.Fail(err))
		return
	}
	send(middleware.Response{Message: "Ticket deleted"})
}

// Export handles GET /v1/tickets/export
func (h *Handler) Export(c *gin.Context) {
	sendStream := c.MustGet("sendStream").(func(middleware.StreamResponse))
	requestID := c.GetString("requestId")
	startTime := time.Now()

	f, err := listFilter(c)
	if err != nil {
		sendStream(middleware.StreamResponse{Error: err})
		return
	}

	response := h.svc.Export(c.Request.Context(), auth.MustActor(c), f)
	h.log.Info("ticket export started",
		zap.String("requestId", requestID),
		zap.String("status", string(f.Status)),
		zap.Int64("total", response.TotalCount),
		zap.Duration("prepared", time.Since(startTime)),
		zap.Error(response.Error),
	)

	sendStream(response)
}
