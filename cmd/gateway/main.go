package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	httpmw "github.com/welliohq/wellio-backend/internal/adapters/transport/http/middleware"
	apptoken "github.com/welliohq/wellio-backend/internal/app/auth/token"
	"github.com/welliohq/wellio-backend/internal/gateway"
	"github.com/welliohq/wellio-backend/internal/gateway/ws"
	"github.com/welliohq/wellio-backend/internal/infra/config"
	lg "github.com/welliohq/wellio-backend/internal/infra/log"
	"github.com/welliohq/wellio-backend/internal/infra/server"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	zapLog := lg.Must(os.Getenv("LOG_LEVEL"))
	defer zapLog.Sync()

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("failed to load config", zap.Error(err))
	}

	tokens, err := apptoken.NewManager(cfg)
	if err != nil {
		zapLog.Fatal("failed to init token manager", zap.Error(err))
	}

	upstreams, err := gateway.UpstreamsFromConfig(cfg)
	if err != nil {
		zapLog.Fatal("invalid upstream configuration", zap.Error(err))
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpmw.RequestLogger(zapLog))
	router.Use(httpmw.NewRateLimitPerIP(100, 200, 10_000, time.Hour))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}))

	requireAuth := httpmw.RequireAuth(tokens, zapLog)

	services := make(map[string]string, len(upstreams))
	for _, u := range upstreams {
		services[u.Name] = u.Target.String()

		proxy := gateway.ProxyHandler(u, cfg.UpstreamTimeout, zapLog)
		if u.Protected {
			router.Any(u.Prefix+"/*path", requireAuth, proxy)
		} else {
			router.Any(u.Prefix+"/*path", proxy)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "OK",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"services":  services,
		})
	})

	hub := ws.NewHub()
	router.GET("/ws", ws.Handshake(hub, tokens, cfg.AllowedOrigins, zapLog))

	srv := &http.Server{Addr: cfg.HTTPAddress, Handler: router}
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, ctx := errgroup.WithContext(rootCtx)
	g.Go(func() error {
		return server.Run(ctx, srv, zapLog)
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		zapLog.Info("shutdown signal received")
	case <-ctx.Done():
	}
	cancel()

	if err := g.Wait(); err != nil {
		zapLog.Error("server terminated", zap.Error(err))
	}
}
