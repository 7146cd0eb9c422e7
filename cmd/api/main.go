package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"comms-gateway/internal/audit"
	"comms-gateway/internal/auth"
	"comms-gateway/internal/calls"
	"comms-gateway/internal/comms"
	"comms-gateway/internal/config"
	"comms-gateway/internal/httpapi"
	"comms-gateway/internal/metrics"
	"comms-gateway/internal/reporting"
	"comms-gateway/internal/supabase"
	"comms-gateway/internal/telephony"
	"comms-gateway/pkg/logger"
	"comms-gateway/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	metrics.Init()

	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	ready := map[string]httpapi.Pinger{}

	store, auditRepo, closer, err := openStore(rootCtx, cfg, log)
	if err != nil {
		log.Error("store init failed", "backend", cfg.Store.Backend, "err", err)
		os.Exit(1)
	}
	if closer != nil {
		closers = append(closers, closer)
	}
	ready["store"] = store

	var limiter comms.CallLimiter = calls.NoopLimiter{}
	if cfg.CallCap.PerLead > 0 {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		closers = append(closers, rdb)
		ready["redis"] = redisPinger{rdb}

		limiter, err = calls.NewRedisLimiter(rdb, cfg.CallCap.PerLead, cfg.CallCap.TTL)
		if err != nil {
			log.Error("call limiter init failed", "err", err)
			os.Exit(1)
		}
		log.Info("per-lead call cap enabled", "limit", cfg.CallCap.PerLead, "ttl", cfg.CallCap.TTL)
	}

	provider, err := telephony.NewTwilioProvider(telephony.TwilioOptions{
		AccountSID: cfg.Twilio.AccountSID,
		AuthToken:  cfg.Twilio.AuthToken,
		BaseURL:    cfg.Twilio.APIBaseURL,
		Timeout:    cfg.HTTP.Timeout,
	})
	if err != nil {
		log.Error("twilio init failed", "err", err)
		os.Exit(1)
	}

	svc := comms.NewService(store, provider, limiter, comms.Options{
		SMSNumber:         cfg.Twilio.PhoneNumber,
		WhatsAppNumber:    cfg.Twilio.WhatsAppNumber,
		CallURL:           cfg.CallbackURL("/api/handle-call?format=xml"),
		StatusCallbackURL: cfg.CallbackURL("/api/webhook/twilio"),
	})

	var authManager *auth.Manager
	if cfg.Auth.JWTSecret != "" {
		authManager, err = auth.NewManager(cfg.Auth)
		if err != nil {
			log.Error("auth init failed", "err", err)
			os.Exit(1)
		}
	} else {
		log.Warn("AUTH_JWT_SECRET not set; operator routes are unauthenticated")
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(metrics.Middleware())
	r.Use(corsMiddleware(cfg.App.CORSAllowOrigins))

	registerRoutes(r, routeDeps{
		Handlers: httpapi.Handlers{
			Comms:     svc,
			Reporting: reporting.NewService(store),
			Audit:     audit.NewService(auditRepo),
		},
		Webhooks: telephony.WebhookHandler{Status: svc, Inbound: svc, Greeting: cfg.App.CallGreeting},
		Auth:     authManager,
		Ready:    ready,

		ValidateSignature: cfg.Twilio.ValidateSignature,
		TwilioAuthToken:   cfg.Twilio.AuthToken,
		PublicBaseURL:     cfg.App.BaseURL,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "store", cfg.Store.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

// openStore builds the configured store and the audit repository that goes with
// it. The returned closer is nil when the backend holds no pooled connections.
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (comms.Store, audit.Repository, io.Closer, error) {
	switch cfg.Store.Backend {
	case config.StorePostgres:
		db, err := utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			return nil, nil, nil, err
		}
		return comms.NewPostgresStore(db), audit.NewPostgresRepo(db), db, nil
	default:
		client, err := supabase.NewClient(supabase.Options{
			URL:     cfg.Supabase.URL,
			Key:     cfg.Supabase.Key,
			Timeout: cfg.HTTP.Timeout,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return comms.NewSupabaseStore(client), audit.NewLogRepo(log), nil, nil
	}
}

type redisPinger struct{ rdb *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.rdb.Ping(ctx).Err() }
