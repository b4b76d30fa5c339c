package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/account-service/internal/config"
	"github.com/prperemyshlev/account-service/internal/handler"
	"github.com/prperemyshlev/account-service/internal/service"
	"github.com/prperemyshlev/account-service/internal/utils"
	"github.com/prperemyshlev/account-service/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

type App struct {
	infra  Infrastructure
	config *config.Config
	router *gin.Engine
	server *http.Server
}

func NewApp(infra Infrastructure, cfg *config.Config) (*App, error) {
	logger := infra.Logger()

	jwtManager := utils.NewJWTManager(
		cfg.JWT.AccessTokenSecret,
		cfg.JWT.RefreshTokenSecret,
		cfg.JWT.AccessTokenExpiry.Duration,
		cfg.JWT.RefreshTokenExpiry.Duration,
	)

	authMetrics, err := observability.NewAuthMetrics(infra.MeterProvider().Meter(serviceName))
	if err != nil {
		return nil, fmt.Errorf("failed to create auth metrics: %w", err)
	}

	// a nil *ProfileCache must not reach the interface
	var cache service.UserCache
	if redis := infra.Redis(); redis != nil {
		cache = service.NewProfileCache(redis, cfg.Cache.ProfileTTL.Duration)
	}

	userService := service.NewUserService(
		infra.Users(),
		jwtManager,
		infra.Uploader(),
		cache,
		authMetrics,
		logger,
		service.Options{
			BcryptCost:                     cfg.Security.BCryptCost,
			RevokeSessionsOnPasswordChange: cfg.Security.RevokeSessionsOnPasswordChange,
		},
	)

	userHandler := handler.NewUserHandler(
		userService,
		handler.CookieConfig{Secure: cfg.Cookie.Secure, Domain: cfg.Cookie.Domain},
		cfg.Storage.TempDir,
		logger,
	)
	healthChecker := NewHealthChecker(infra.HealthChecks())

	router := gin.New()
	router.MaxMultipartMemory = cfg.Server.MaxUploadBytes
	router.Use(handler.RecoveryMiddleware(logger))
	router.Use(otelgin.Middleware(serviceName))
	router.Use(handler.LoggerMiddleware(logger))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))
	router.Use(handler.ErrorMiddleware(logger))
	router.Use(handler.BodyLimitMiddleware(cfg.Server.MaxUploadBytes))
	router.NoRoute(handler.NotFoundHandler)

	setupRoutes(router, userHandler, handler.AuthMiddleware(userService), healthChecker, infra.MetricsHandler())

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:  infra,
		config: cfg,
		router: router,
		server: srv,
	}, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func setupRoutes(
	router *gin.Engine,
	userHandler *handler.UserHandler,
	auth gin.HandlerFunc,
	healthChecker *HealthChecker,
	metricsHandler http.Handler,
) {
	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", healthChecker.Handler)

	api := router.Group("/api/v1")
	{
		userHandler.RegisterRoutes(api.Group("/users"), auth)
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		a.infra.Logger().Error("Shutdown error", zap.Error(err))
		return errors.Join(serverErr, err)
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout.Duration)
	defer cancel()

	errs := make(chan error, 2)

	go func() {
		errs <- a.server.Shutdown(ctx)
	}()

	go func() {
		errs <- a.infra.Shutdown(ctx)
	}()

	err := errors.Join(<-errs, <-errs)
	if err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
