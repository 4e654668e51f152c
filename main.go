package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"pawnshop/application/access"
	"pawnshop/application/activity"
	"pawnshop/application/branches"
	"pawnshop/application/customers"
	"pawnshop/application/dashboard"
	"pawnshop/application/health"
	"pawnshop/application/staff"
	ticketHandler "pawnshop/application/tickets/handler"
	ticketRepository "pawnshop/application/tickets/repository"
	ticketService "pawnshop/application/tickets/service"
	"pawnshop/config"
	"pawnshop/internal/auth"
	"pawnshop/internal/database"
	"pawnshop/internal/policy"
	"pawnshop/internal/telemetry"
	"pawnshop/middleware"
)

func main() {
	settingsPath := pflag.String("config", "", "optional YAML settings file (categories, default feature flags)")
	addr := pflag.String("addr", "", "listen address, overrides HTTP_PORT")
	migrateOnly := pflag.Bool("migrate-only", false, "migrate and seed the database, then exit")
	pflag.Parse()

	cfg, err := config.Load(*settingsPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	z := NewLogger(cfg)
	defer z.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := telemetry.Setup(ctx, cfg.Telemetry, cfg.App.Version, z)

	db, err := setupDatabase(ctx, cfg, z)
	if err != nil {
		z.Fatal("database setup failed", zap.Error(err))
	}
	if *migrateOnly {
		z.Info("migration finished")
		return
	}

	listen := *addr
	if listen == "" {
		listen = ":" + cfg.App.Port
	}
	srv := &http.Server{
		Addr:         listen,
		Handler:      otelhttp.NewHandler(SetupRouter(cfg, db, z), "pawnshop"),
		ReadTimeout:  55 * time.Second,
		WriteTimeout: 55 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		z.Info("server starting", zap.String("addr", listen), zap.String("env", cfg.App.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			z.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	z.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		z.Error("server shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		z.Error("tracer shutdown", zap.Error(err))
	}
}

func NewLogger(cfg *config.Config) *zap.Logger {
	var zapLogger *zap.Logger
	var err error

	if cfg.IsProduction() {
		zapLogger, err = zap.NewProduction()
	} else {
		zapLogger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}

	return zapLogger.With(zap.String("version", cfg.App.Version))
}

func setupDatabase(ctx context.Context, cfg *config.Config, z *zap.Logger) (*gorm.DB, error) {
	db, err := database.Open(cfg.Database, z)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	if err := database.SeedCategories(ctx, db, cfg.Settings.Categories); err != nil {
		return nil, err
	}
	z.Info("database ready", zap.String("driver", cfg.Database.Driver))
	return db, nil
}

// SetupRouter wires every feature. /health and /v1/auth are public, the rest
// of /v1 requires a bearer token.
func SetupRouter(cfg *config.Config, db *gorm.DB, z *zap.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.Recovery(z))
	r.Use(middleware.RequestInit())
	r.Use(middleware.ResponseInit(z))
	r.Use(middleware.RequestLogger(z))

	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	healthHandler := health.NewHandler(health.NewService(health.NewRepository(db), cfg.App.Version))

	accessHandler := access.NewHandler(access.NewService(access.NewRepository(db), policy.DefaultCatalog))
	gate := access.Gate(accessHandler.RequireOperation)

	activityHandler := activity.NewHandler(activity.NewService(activity.NewRepository(db)))

	ticketsHandler := ticketHandler.NewHandler(
		ticketService.NewService(ticketRepository.NewRepository(db), ticketService.Options{
			Term: cfg.Loans.Term,
			Log:  z,
		}),
		z,
	)
	customersHandler := customers.NewHandler(customers.NewService(customers.NewRepository(db), z))
	staffRepository := staff.NewRepository(db)
	staffHandler := staff.NewHandler(staff.NewService(staffRepository, issuer, z))
	branchesHandler := branches.NewHandler(branches.NewService(branches.NewRepository(db), branches.Defaults{
		InterestRate: cfg.Loans.DefaultInterestRate,
		Features:     cfg.Settings.DefaultFeatures,
		InviteTTL:    cfg.Auth.InviteTTL,
	}, z))
	dashboardHandler := dashboard.NewHandler(dashboard.NewService(dashboard.NewRepository(db), z))

	healthHandler.RegisterRoutes(r.Group(""))

	public := r.Group("/v1")
	staffHandler.RegisterAuthRoutes(public)

	api := r.Group("/v1", auth.Middleware(issuer, staffRepository.Exists))
	accessHandler.RegisterRoutes(api)
	activityHandler.RegisterRoutes(api, gate)
	ticketsHandler.RegisterRoutes(api, gate)
	customersHandler.RegisterRoutes(api, gate)
	staffHandler.RegisterRoutes(api, gate)
	branchesHandler.RegisterRoutes(api, gate)
	dashboardHandler.RegisterRoutes(api, gate)

	return r
}
