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
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	myPostgresRepo "github.com/welliohq/wellio-backend/internal/adapters/db/postgres"
	authhttp "github.com/welliohq/wellio-backend/internal/adapters/transport/http"
	httpmw "github.com/welliohq/wellio-backend/internal/adapters/transport/http/middleware"
	appsvc "github.com/welliohq/wellio-backend/internal/app/auth/service"
	apptoken "github.com/welliohq/wellio-backend/internal/app/auth/token"
	"github.com/welliohq/wellio-backend/internal/cache"
	customErrors "github.com/welliohq/wellio-backend/internal/domain/auth/errors"
	"github.com/welliohq/wellio-backend/internal/domain/auth/model"
	"github.com/welliohq/wellio-backend/internal/domain/auth/repo"
	"github.com/welliohq/wellio-backend/internal/infra/config"
	lg "github.com/welliohq/wellio-backend/internal/infra/log"
	"github.com/welliohq/wellio-backend/internal/infra/server"
	"github.com/welliohq/wellio-backend/internal/migrate"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	zapLog := lg.Must(os.Getenv("LOG_LEVEL"))
	defer zapLog.Sync()

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("failed to load config", zap.Error(err))
	}
	if cfg.DevMode {
		zapLog.Warn("DEV_MODE is enabled: login bypasses the credential store")
	}

	userRepo, cleanup, err := buildUserRepo(cfg, zapLog)
	if err != nil {
		zapLog.Fatal("failed to init credential store", zap.Error(err))
	}
	defer cleanup()

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// a networked cache that cannot connect is fatal: losing shared session
	// state silently would be worse than refusing to start
	c, err := cache.Init(rootCtx, cfg, zapLog)
	if err != nil {
		zapLog.Fatal("failed to init cache", zap.Error(err))
	}
	defer cache.Shutdown()

	tokens, err := apptoken.NewManager(cfg)
	if err != nil {
		zapLog.Fatal("failed to init token manager", zap.Error(err))
	}

	svc := appsvc.New(userRepo, c, tokens, cfg, validator.New(), zapLog)
	handler := authhttp.NewHandler(svc, cfg, zapLog)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpmw.RequestLogger(zapLog))
	router.Use(httpmw.NewRateLimitPerIP(50, 100, 10_000, time.Hour))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}))
	handler.RegisterRoutes(router)

	srv := &http.Server{Addr: cfg.HTTPAddress, Handler: router}
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

func buildUserRepo(cfg *config.Config, zapLog *zap.Logger) (repo.UserRepo, func(), error) {
	if cfg.DatabaseURL == "" {
		if !cfg.DevMode {
			return nil, nil, customErrors.NewInvalidArgument("DATABASE_URL is required outside dev mode")
		}
		zapLog.Warn("no DATABASE_URL: running with no credential store, only dev-mode login works")
		return noStoreRepo{}, func() {}, nil
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	if err := migrate.Up(sqlDB); err != nil {
		sqlDB.Close()
		return nil, nil, err
	}
	return myPostgresRepo.NewPostgresUserRepo(db), func() { sqlDB.Close() }, nil
}

// noStoreRepo backs dev mode when no database is configured. Every operation
// that would need real storage fails loudly.
type noStoreRepo struct{}

func (noStoreRepo) CreateUser(context.Context, model.User) (uuid.UUID, error) {
	return uuid.Nil, customErrors.WrapInternal(customErrors.ErrNotFound, "credential store not configured")
}
func (noStoreRepo) GetUserByEmail(context.Context, string) (model.User, error) {
	return model.User{}, customErrors.ErrNotFound
}
func (noStoreRepo) GetUserByID(context.Context, uuid.UUID) (model.User, error) {
	return model.User{}, customErrors.ErrNotFound
}
func (noStoreRepo) UpdatePassword(context.Context, uuid.UUID, string) error {
	return customErrors.WrapInternal(customErrors.ErrNotFound, "credential store not configured")
}
