package telephony

import (
	"context"
	"net/http"

	"comms-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
)

// StatusApplier applies a provider status callback to stored records.
type StatusApplier interface {
	ApplyStatusCallback(ctx context.Context, cb StatusCallback) error
}

// InboundRecorder stores an incoming message.
type InboundRecorder interface {
	RecordInbound(ctx context.Context, msg InboundMessage) error
}

// WebhookHandler serves the provider-facing routes: voice instructions for
// connected calls, status callbacks and incoming messages.
//
// No business logic here; parsing and rendering only.
type WebhookHandler struct {
	Status  StatusApplier
	Inbound InboundRecorder

	// Greeting is spoken when an outbound call connects.
	Greeting string
}

// HandleCall answers with the scripted greeting.
// Default shape is {"twiml": "..."}; ?format=xml returns the document itself,
// which is what the provider fetches when the call is answered.
func (h WebhookHandler) HandleCall(c *gin.Context) {
	twiml, err := RenderSay(h.Greeting)
	if err != nil {
		logger.FromGin(c).Error("twiml render failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	if c.Query("format") == "xml" {
		c.Data(http.StatusOK, "application/xml; charset=utf-8", []byte(twiml))
		return
	}
	c.JSON(http.StatusOK, gin.H{"twiml": twiml})
}

// HandleStatusCallback updates the stored record the callback refers to.
// Callbacks that match no record still succeed.
func (h WebhookHandler) HandleStatusCallback(c *gin.Context) {
	log := logger.FromGin(c)

	if h.Status == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "status handler not configured"})
		return
	}

	cb, err := ParseStatusCallback(c.Request)
	if err != nil {
		log.Warn("status callback parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	if err := h.Status.ApplyStatusCallback(c.Request.Context(), cb); err != nil {
		log.Error("status callback failed", "sid", cb.SID(), "kind", cb.Kind(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// HandleInboundMessage records an incoming message and answers with empty TwiML
// so the provider sends no reply.
func (h WebhookHandler) HandleInboundMessage(c *gin.Context) {
	log := logger.FromGin(c)

	if h.Inbound == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "inbound handler not configured"})
		return
	}

	msg, err := ParseInboundMessage(c.Request)
	if err != nil {
		log.Warn("inbound message parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	if err := h.Inbound.RecordInbound(c.Request.Context(), msg); err != nil {
		log.Error("inbound message record failed", "sid", msg.MessageSid, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", []byte(RenderEmpty()))
}
