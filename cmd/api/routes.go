package main

import (
	"time"

	"comms-gateway/internal/auth"
	"comms-gateway/internal/httpapi"
	"comms-gateway/internal/rbac"
	"comms-gateway/internal/telephony"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type routeDeps struct {
	Handlers httpapi.Handlers
	Webhooks telephony.WebhookHandler

	// Auth is nil when operator routes are open.
	Auth  *auth.Manager
	Ready map[string]httpapi.Pinger

	ValidateSignature bool
	TwilioAuthToken   string
	PublicBaseURL     string
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	r.GET("/healthz", httpapi.Healthz)
	r.GET("/readyz", httpapi.Readyz(d.Ready))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	// Provider callbacks. Authenticated by X-Twilio-Signature, never by bearer token.
	twilio := api.Group("")
	if d.ValidateSignature {
		twilio.Use(telephony.RequireSignature(d.TwilioAuthToken, d.PublicBaseURL))
	}
	{
		twilio.POST("/handle-call", d.Webhooks.HandleCall)
		twilio.POST("/webhook/twilio", d.Webhooks.HandleStatusCallback)
		twilio.POST("/webhook/twilio/inbound", d.Webhooks.HandleInboundMessage)
	}

	ops := api.Group("")
	send := []gin.HandlerFunc{}
	read := []gin.HandlerFunc{}
	if d.Auth != nil {
		ops.Use(auth.RequireAccessToken(d.Auth))
		send = append(send, rbac.RequireAnyRole(rbac.RoleAgent))
		read = append(read, rbac.RequireAnyRole(rbac.RoleAgent, rbac.RoleAnalyst))
	}
	{
		ops.POST("/send-message", append(send, d.Handlers.SendMessage)...)
		ops.POST("/initiate-call", append(send, d.Handlers.InitiateCall)...)
		ops.GET("/leads", append(read, d.Handlers.ListLeads)...)
		ops.GET("/communications/:lead_id", append(read, d.Handlers.ListCommunications)...)
		ops.GET("/analytics", append(read, d.Handlers.Analytics)...)
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-Id"},
		ExposeHeaders: []string{"X-Request-Id"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}
