// Command issue-token mints an operator access token signed with AUTH_JWT_SECRET.
//
//	issue-token -user alice -role agent
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"comms-gateway/internal/auth"
	"comms-gateway/internal/config"
	"comms-gateway/internal/rbac"
	"comms-gateway/pkg/logger"

	"github.com/joho/godotenv"
)

func main() {
	user := flag.String("user", "", "operator user id")
	role := flag.String("role", rbac.RoleAgent, "admin, agent or analyst")
	ttl := flag.Duration("ttl", 0, "token lifetime (default JWT_ACCESS_TTL or 12h)")
	flag.Parse()

	_ = godotenv.Load()

	log := logger.New(os.Getenv("APP_ENV"))
	slog.SetDefault(log)

	if *user == "" {
		log.Error("-user is required")
		os.Exit(2)
	}
	if !rbac.IsKnown(*role) {
		log.Error("unknown role", "role", *role)
		os.Exit(2)
	}

	cfg := config.AuthConfig{
		JWTSecret:   os.Getenv("AUTH_JWT_SECRET"),
		JWTIssuer:   os.Getenv("JWT_ISSUER"),
		JWTAudience: os.Getenv("JWT_AUDIENCE"),
	}
	if *ttl > 0 {
		cfg.AccessTokenTTL = *ttl
	} else if v := os.Getenv("JWT_ACCESS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Error("invalid JWT_ACCESS_TTL", "err", err)
			os.Exit(2)
		}
		cfg.AccessTokenTTL = d
	}

	m, err := auth.NewManager(cfg)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}
	tok, err := m.Issue(time.Now(), *user, *role)
	if err != nil {
		log.Error("issue failed", "err", err)
		os.Exit(1)
	}
	log.Info("token issued", "user_id", *user, "role", *role, "ttl", m.TTL())
	fmt.Println(tok)
}
