package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"chartcloud/internal/config"
	"chartcloud/internal/db"
	"chartcloud/internal/email"
	apihttp "chartcloud/internal/http"
	"chartcloud/internal/metrics"
	"chartcloud/internal/oauth"
	"chartcloud/internal/repository"
	"chartcloud/internal/service"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	accountRepo := repository.NewPgAccountRepository(pool)
	fileRepo := repository.NewPgFileRepository(pool)
	chartRepo := repository.NewPgChartRepository(pool)
	pgLedger := repository.NewPgRevocationLedger(pool)

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	var (
		ledger      service.RevocationLedger = pgLedger
		codeLimiter service.CodeRateLimiter
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			ledger = service.NewRedisRevocationLedger(redisClient)
			codeLimiter = service.NewRedisCodeRateLimiter(redisClient, 10*time.Minute, 3)
		}
		cancel()
	}

	tokenSvc := service.NewTokenService(
		cfg.JWTAccessSecret,
		cfg.JWTRefreshSecret,
		time.Duration(cfg.AccessTokenTTLMin)*time.Minute,
		time.Duration(cfg.RefreshTokenTTLMin)*time.Minute,
	)
	authSvc := service.NewAuthService(logger, accountRepo, tokenSvc, ledger, emailSender, codeLimiter, cfg.HMACSecret)

	githubProvider := oauth.NewGithubProvider(cfg.GithubClientID, cfg.GithubClientSecret)
	googleProvider := oauth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.FrontendURL)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// Poda periódica de entradas de revocación ya vencidas. Cuando el ledger
	// vive en redis, el TTL de cada clave hace este trabajo.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			gcCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			if n, err := pgLedger.DeleteExpired(gcCtx, time.Now().UTC()); err != nil {
				logger.Warn("revocation gc failed", zap.Error(err))
			} else if n > 0 {
				logger.Info("revocation gc", zap.Int64("deleted", n))
			}
			cancel()
		}
	}()

	authHandler := apihttp.NewAuthHandler(logger, authSvc, githubProvider, googleProvider)
	fileHandler := apihttp.NewFileHandler(logger, fileRepo, chartRepo, collector, cfg.MaxUploadSizeKB)
	chartHandler := apihttp.NewChartHandler(logger, chartRepo)
	userHandler := apihttp.NewUserHandler(logger, accountRepo)
	adminHandler := apihttp.NewAdminHandler(logger, accountRepo)

	router := apihttp.NewRouter(
		logger,
		tokenSvc,
		collector,
		metrics.Handler(registry),
		authHandler,
		fileHandler,
		chartHandler,
		userHandler,
		adminHandler,
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
