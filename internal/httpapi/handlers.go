package httpapi

import (
	"context"
	"net/http"
	"time"

	"comms-gateway/internal/audit"
	"comms-gateway/internal/auth"
	"comms-gateway/internal/comms"
	"comms-gateway/internal/reporting"
	"comms-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups the operator-facing HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Comms     *comms.Service
	Reporting *reporting.Service

	// Audit is optional.
	Audit *audit.Service
}

func actor(c *gin.Context) audit.Actor {
	uid, _ := auth.UserID(c.Request.Context())
	role, _ := auth.Role(c.Request.Context())
	return audit.Actor{UserID: uid, Role: role, IP: c.ClientIP()}
}

type sendMessageRequest struct {
	Content     string `json:"content" binding:"required"`
	PhoneNumber string `json:"phone_number" binding:"required"`
	Type        string `json:"type" binding:"omitempty,oneof=sms whatsapp"`
	LeadID      string `json:"lead_id"`
}

func (h Handlers) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	res, err := h.Comms.SendMessage(c.Request.Context(), comms.SendMessageRequest{
		Content:     req.Content,
		PhoneNumber: req.PhoneNumber,
		Type:        comms.Type(req.Type),
		LeadID:      req.LeadID,
	})
	if err != nil {
		writeError(c, err, "message_sid")
		return
	}
	log := logger.FromGin(c)
	log.Info("message sent", "message_sid", res.MessageSID, "status", res.Status, "type", req.Type)
	if h.Audit != nil {
		channel := req.Type
		if channel == "" {
			channel = string(comms.TypeSMS)
		}
		if err := h.Audit.MessageSent(c.Request.Context(), actor(c), channel, req.LeadID, res.MessageSID); err != nil {
			log.Warn("audit append failed", "err", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message_sid": res.MessageSID})
}

type initiateCallRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
	LeadID      string `json:"lead_id" binding:"required"`
}

func (h Handlers) InitiateCall(c *gin.Context) {
	var req initiateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	res, err := h.Comms.InitiateCall(c.Request.Context(), comms.InitiateCallRequest{
		PhoneNumber: req.PhoneNumber,
		LeadID:      req.LeadID,
	})
	if err != nil {
		writeError(c, err, "call_sid")
		return
	}
	log := logger.FromGin(c)
	log.Info("call initiated", "call_sid", res.CallSID, "status", res.Status, "lead_id", req.LeadID)
	if h.Audit != nil {
		if err := h.Audit.CallInitiated(c.Request.Context(), actor(c), req.LeadID, res.CallSID); err != nil {
			log.Warn("audit append failed", "err", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "call_sid": res.CallSID})
}

func (h Handlers) ListLeads(c *gin.Context) {
	leads, err := h.Comms.ListLeads(c.Request.Context())
	if err != nil {
		writeError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, leads)
}

func (h Handlers) ListCommunications(c *gin.Context) {
	out, err := h.Comms.ListCommunications(c.Request.Context(), c.Param("lead_id"))
	if err != nil {
		writeError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) Analytics(c *gin.Context) {
	out, err := h.Reporting.Analytics(c.Request.Context())
	if err != nil {
		logger.FromGin(c).Error("analytics failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": err.Error(), "kind": comms.KindPersistence})
		return
	}
	c.JSON(http.StatusOK, out)
}

const readyTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz answers 503 until every dependency responds.
func Readyz(deps map[string]Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
		defer cancel()
		for name, d := range deps {
			if err := d.Ping(ctx); err != nil {
				logger.FromGin(c).Warn("readiness check failed", "dependency", name, "err", err)
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "dependency": name})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
