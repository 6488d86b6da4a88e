package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/carpool-identity/internal/config"
	"github.com/iliyamo/carpool-identity/internal/database"
	"github.com/iliyamo/carpool-identity/internal/handler"
	"github.com/iliyamo/carpool-identity/internal/logger"
	"github.com/iliyamo/carpool-identity/internal/middleware"
	"github.com/iliyamo/carpool-identity/internal/queue"
	"github.com/iliyamo/carpool-identity/internal/repository"
	"github.com/iliyamo/carpool-identity/internal/router"
	"github.com/iliyamo/carpool-identity/internal/service"
	"github.com/iliyamo/carpool-identity/internal/utils"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalw("open database", "error", err)
	}
	defer db.Close()
	if cfg.DBMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.Migrate(ctx, db)
		cancel()
		if err != nil {
			log.Fatalw("migrate database", "error", err)
		}
	}

	rdb := config.NewRedisClient(log)
	amqpCfg := config.LoadAMQPConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.SMSConsumerEnabled {
		go func() {
			_ = queue.StartSMSConsumer(ctx, amqpCfg.URL, amqpCfg.Queue, queue.LogDeliverer{Log: log}, log)
		}()
	}

	identities := repository.NewIdentityRepo(db)
	credentials := repository.NewCredentialRepo(db)
	grants := repository.NewGrantRepo(db)
	hasher := utils.NewPasswordHasher(cfg.BcryptCost)

	sessions := service.NewSessionManager(identities)
	authz := service.NewAuthorizer(identities, grants)
	audit := service.NewAuditLogger(repository.NewAuditRepo(db), log, cfg.AuditListMax)
	auth := service.NewAuthenticator(identities, credentials, hasher, sessions,
		service.AuthConfig{JWTSecret: cfg.JWTSecret, AccessTTLMin: cfg.AccessTTLMin}, log)
	staff := service.NewStaffProvisioner(identities, credentials, grants, audit, hasher, log)
	reset := service.NewPasswordResetter(identities, credentials, repository.NewCodeRepo(db),
		queue.NewPublisher(amqpCfg.URL, amqpCfg.Queue, log), hasher, log, service.WithCodeTTL(cfg.OTPTTL))
	mod := service.NewModerator(authz, identities, repository.NewModerationRepo(db), audit, log)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover(log))
	e.Use(middleware.RequestLogger(log))

	router.RegisterRoutes(e, db)
	deps := router.Deps{
		JWTSecret: cfg.JWTSecret,
		Redis:     rdb,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Authz:     authz,
		Log:       log,
		Auth:      handler.NewAuthHandler(auth, identities, authz, log),
		Session:   handler.NewSessionHandler(sessions, log),
		Reset:     handler.NewResetHandler(reset, log),
		Staff:     handler.NewStaffHandler(staff, log),
		Admin:     handler.NewAdminHandler(authz, audit, mod, log),
	}
	router.RegisterAuth(e, deps)
	router.RegisterAdmin(e, deps)

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = e.Shutdown(shutdown)
	}()

	addr := ":" + cfg.Port
	log.Infow("listening", "addr", addr, "env", cfg.Env)
	if err := e.Start(addr); err != nil && ctx.Err() == nil {
		log.Fatalw("server stopped", "error", err)
	}
}
