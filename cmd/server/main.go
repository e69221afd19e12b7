package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/deninthomas/housewarming/internal/admin"
	"github.com/deninthomas/housewarming/internal/api"
	"github.com/deninthomas/housewarming/internal/config"
	"github.com/deninthomas/housewarming/internal/gate"
	"github.com/deninthomas/housewarming/internal/middleware"
	"github.com/deninthomas/housewarming/internal/seed"
	"github.com/deninthomas/housewarming/internal/store"
)

// newRouter assembles the full middleware chain and route set. The OpenAPI
// validator enforces the admin cookie scheme itself, so unauthenticated
// requests to protected routes are turned away before their payloads are
// even looked at; RequireAdmin on the admin routes backs it up.
func newRouter(cfg *config.Config, bboltStore *store.BBoltStore, sessions *admin.Sessions) (*gin.Engine, error) {
	swagger, err := api.GetSwagger()
	if err != nil {
		return nil, fmt.Errorf("loading embedded openapi spec: %w", err)
	}

	validator, err := middleware.NewOpenAPIValidator(swagger, sessions)
	if err != nil {
		return nil, fmt.Errorf("creating openapi validator: %w", err)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst))
	r.Use(validator)

	api.RegisterHandlers(r, api.NewHandler(gate.New(bboltStore), bboltStore))
	admin.RegisterHandlers(r, admin.NewHandler(bboltStore, sessions, cfg.AdminPassword, cfg.InviteExpiry))

	return r, nil
}

func main() {
	cfg := config.Load()

	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)

	if cfg.AdminPassword == "" {
		log.Warn("ADMIN_PASSWORD not set, admin login disabled")
	}

	gin.SetMode(cfg.GinMode)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		log.WithError(err).Fatal("failed to create db directory")
	}

	bboltStore, err := store.NewBBoltStore(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("failed to open bbolt store")
	}
	defer bboltStore.Close()

	if err := seed.LoadFromFile(cfg.SeedFile, bboltStore); err != nil {
		log.WithError(err).Fatal("failed to seed data")
	}

	r, err := newRouter(cfg, bboltStore, admin.NewSessions())
	if err != nil {
		log.WithError(err).Fatal("failed to build router")
	}

	srv := &http.Server{
		Handler: r,
		Addr:    net.JoinHostPort("0.0.0.0", cfg.Port),
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.WithField("signal", fmt.Sprintf("%v", sig)).Info("shutting down server")

	if err := srv.Close(); err != nil {
		log.WithError(err).Error("server close error")
	}
}
