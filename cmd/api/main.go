package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"booking-api/internal/config"
	"booking-api/internal/db"
	"booking-api/internal/email"
	apihttp "booking-api/internal/http"
	"booking-api/internal/repository"
	"booking-api/internal/service"

	"github.com/joho/godotenv"
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
	if cfg.IsDevelopment() {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	accountRepo := repository.NewPgAccountRepository(pool)

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}
	mailer := email.NewMailer(logger, emailSender, cfg.BaseURL)

	limiter := service.NewRateLimiter(cfg.RateLimitWindow, cfg.RateLimitMax)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory rate limiter", zap.Error(err))
		} else {
			limiter = service.NewRedisRateLimiter(redisClient, logger, cfg.RateLimitWindow, cfg.RateLimitMax)
		}
		cancel()
	}

	jwtSvc, err := service.NewJWTService(service.JWTConfig{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.JWTAccessTTL,
		RefreshTTL:    cfg.JWTRefreshTTL,
		Issuer:        cfg.JWTIssuer,
	})
	if err != nil {
		logger.Fatal("jwt config", zap.Error(err))
	}

	credentials := service.NewCredentialStore(cfg.BcryptCost)
	sessionSvc := service.NewSessionService(accountRepo, jwtSvc)
	accountSvc := service.NewAccountService(service.AccountDeps{
		Logger:       logger,
		Accounts:     accountRepo,
		Credentials:  credentials,
		Verification: service.NewVerificationService(accountRepo),
		Resets:       service.NewPasswordResetService(accountRepo, credentials),
		Sessions:     sessionSvc,
		Mailer:       mailer,
		Limiter:      limiter,
		PhoneRegion:  cfg.DefaultPhoneRegion,
	})
	gate := service.NewAuthGate(jwtSvc)

	accountHandler := apihttp.NewAccountHandler(logger, accountSvc, sessionSvc)
	router := apihttp.NewRouter(logger, gate, accountHandler)

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
