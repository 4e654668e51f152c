package health

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pawnshop/middleware"
)

type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler
func NewHandler(service *Service) *Handler {
	return &Handler{svc: service}
}

func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/health", h.HealthCheck)
}

func (h *Handler) HealthCheck(c *gin.Context) {
	send := c.MustGet("send").(func(middleware.Response))

	status, err := h.svc.CheckHealth(c.Request.Context())
	if err != nil {
		send(middleware.Response{
			Code:    http.StatusServiceUnavailable,
			Message: "Health check failed",
			Data:    status,
			Error:   err,
		})
		return
	}

	send(middleware.Response{
		Message: "Health check completed",
		Data:    status,
	})
}
