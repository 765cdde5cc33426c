package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/NiponJaiboon/portfolio-auth-service/internal/config"
	repoPostgres "github.com/NiponJaiboon/portfolio-auth-service/internal/domain/repository/postgres"
	repoRedis "github.com/NiponJaiboon/portfolio-auth-service/internal/domain/repository/redis"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/events"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/events/kafka"
	httpHandler "github.com/NiponJaiboon/portfolio-auth-service/internal/handler/http"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/infrastructure/security"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/service"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/utils/logger"
	"github.com/NiponJaiboon/portfolio-auth-service/migrations"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Environment)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	if err := migrations.Up(cfg.Database.DSN(), log); err != nil {
		log.Fatal("Failed to apply migrations", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPool, err := repoPostgres.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize PostgreSQL connection pool", zap.Error(err))
	}
	defer dbPool.Close()

	redisClient, err := repoRedis.NewClient(cfg.Redis)
	if err != nil {
		log.Fatal("Failed to initialize Redis client", zap.Error(err))
	}
	defer redisClient.Close()

	var publisher kafka.Publisher = kafka.NoopPublisher{}
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Source, log)
		if err != nil {
			log.Fatal("Failed to initialize Kafka producer", zap.Error(err))
		}
		defer producer.Close()
		publisher = producer
	}
	audit := events.NewAuditRecorder(publisher, log)

	// Repositories.
	userRepo := repoPostgres.NewUserRepositoryPostgres(dbPool)
	sessionRepo := repoPostgres.NewSessionRepositoryPostgres(dbPool)
	externalRepo := repoPostgres.NewExternalAccountRepositoryPostgres(dbPool)
	clientRepo := repoPostgres.NewOAuthClientRepositoryPostgres(dbPool)
	scopeRepo := repoPostgres.NewScopeRepositoryPostgres(dbPool)
	consentRepo := repoPostgres.NewConsentRepositoryPostgres(dbPool)
	permissionRepo := repoPostgres.NewPermissionRepositoryPostgres(dbPool)
	conflictStore := repoRedis.NewConflictStoreRedis(redisClient, log)
	verificationStore := repoRedis.NewVerificationStoreRedis(redisClient, log)
	sessionCache := repoRedis.NewSessionCache(redisClient, log, cfg.Sessions.CacheTTL)

	// Security primitives.
	passwordService, err := security.NewArgon2idPasswordService(security.ParamsFromConfig(cfg.Security))
	if err != nil {
		log.Fatal("Failed to initialize password service", zap.Error(err))
	}
	jwtService, err := security.NewJWTService(cfg.JWT)
	if err != nil {
		log.Fatal("Failed to initialize JWT service", zap.Error(err))
	}
	totpService := security.NewTOTPService(cfg.JWT.Issuer)

	// Services.
	roleTable := service.NewRoleTable(cfg.Authorization.Roles)
	verifier := service.NewCredentialVerifier(userRepo, passwordService, audit, cfg.Security, log)
	tokens := service.NewTokenService(jwtService, cfg.JWT.RefreshTokenTTL)
	sessions := service.NewSessionService(sessionRepo, sessionCache, publisher, cfg.Sessions, log)
	authz := service.NewAuthorizationService(clientRepo, scopeRepo, permissionRepo, userRepo, roleTable, passwordService, publisher, log)
	consent := service.NewConsentService(consentRepo, clientRepo, scopeRepo, publisher, log)
	externalAuth := service.NewExternalAuthService(userRepo, externalRepo, audit, publisher, cfg, log)
	linking := service.NewLinkingService(userRepo, externalRepo, conflictStore, passwordService, audit, publisher, cfg.Linking, log)
	authService := service.NewAuthService(userRepo, verifier, sessions, tokens, authz, passwordService, totpService, verificationStore, audit, publisher, cfg, log)

	go sessions.RunCleanupLoop(ctx)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthService:   authService,
		SessionSvc:    sessions,
		ExternalAuth:  externalAuth,
		Linking:       linking,
		Authorization: authz,
		Consent:       consent,
		Tokens:        tokens,
		Health: map[string]httpHandler.Pinger{
			"postgres": dbPool,
			"redis": pingerFunc(func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			}),
		},
		Config: cfg,
		Logger: log,
	})

	httpServer := startHTTPServer(cfg, router, log)

	grpcServer := startGRPCHealthServer(cfg, log)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down servers...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}

	log.Info("Servers exited properly")
}
