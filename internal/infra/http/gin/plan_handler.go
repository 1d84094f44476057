package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"rentline/internal/app/dto"
	planssvc "rentline/internal/app/services/plans"
	domainplan "rentline/internal/domain/plan"
)

type PlanHTTP interface {
	Current(c *gin.Context)
	Upgrade(c *gin.Context)
}

type PlanHandler struct {
	Service *planssvc.Service
	Logger  *slog.Logger
}

func (h PlanHandler) Current(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	status, err := h.Service.Current(c.Request.Context(), p.User.ID)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("plan lookup failed", "user_id", p.User.ID, "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, dto.NewPlanStatus(status))
}

type upgradePlanRequest struct {
	PlanType string `json:"planType"`
}

func (h PlanHandler) Upgrade(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req upgradePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	target, err := domainplan.ParseUpgrade(req.PlanType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan type"})
		return
	}
	upgraded, err := h.Service.Upgrade(c.Request.Context(), p.User.ID, target)
	if err != nil {
		if errors.Is(err, domainplan.ErrInvalidPlanType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan type"})
			return
		}
		if h.Logger != nil {
			h.Logger.Error("plan upgrade failed", "user_id", p.User.ID, "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, dto.NewPlan(upgraded))
}

var _ PlanHTTP = (*PlanHandler)(nil)
