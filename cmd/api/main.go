package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hrbooteh/internal/config"
	"hrbooteh/internal/db"
	"hrbooteh/internal/email"
	apihttp "hrbooteh/internal/http"
	"hrbooteh/internal/repository"
	"hrbooteh/internal/service"

	"github.com/gin-gonic/gin"
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
	defer logger.Sync()

	var (
		userRepo       repository.UserRepository
		assessmentRepo repository.AssessmentRepository
	)
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer pool.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := db.Ping(pingCtx, pool); err != nil {
			logger.Fatal("db ping", zap.Error(err))
		}
		cancel()

		if cfg.AutoMigrate {
			if err := db.Migrate(ctx, pool); err != nil {
				logger.Fatal("db migrate", zap.Error(err))
			}
		}
		userRepo = repository.NewPgUserRepository(pool)
		assessmentRepo = repository.NewPgAssessmentRepository(pool)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory storage")
		userRepo = repository.NewMemoryUserRepository()
		assessmentRepo = repository.NewMemoryAssessmentRepository()
	}

	responder, analyzer, err := service.NewPoliciesFromConfig(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("responder setup", zap.Error(err))
	}

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
			UseTLS:   cfg.SMTPUseTLS,
		})
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	var (
		loginLimiter = service.NewMemoryLoginRateLimiter(cfg.LoginRateWindow, cfg.LoginRateMax)
		tokenStore   service.RefreshTokenStore
		redisClient  *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			loginLimiter = service.NewRedisLoginRateLimiter(redisClient, cfg.LoginRateWindow, cfg.LoginRateMax)
			tokenStore = service.NewRedisRefreshTokenStore(redisClient)
		}
		cancel()
	}
	jwtSvc := service.NewJWTServiceWithStore(
		cfg.JWTSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(cfg.JWTRefreshTTLMinutes)*time.Minute,
		tokenStore,
	)
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}

	opts := []service.AssessmentOption{service.WithResultsCacheSize(cfg.ResultsCacheSize)}
	if cfg.SMTPHost != "" {
		opts = append(opts, service.WithCompletionNotifier(service.NewEmailCompletionNotifier(userRepo, emailSender, logger)))
	}
	assessmentSvc := service.NewAssessmentService(logger, assessmentRepo, responder, analyzer, opts...)
	userSvc := service.NewUserService(logger, userRepo, loginLimiter)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	userHandler := apihttp.NewUserHandler(logger, userSvc, jwtSvc)
	assessmentHandler := apihttp.NewAssessmentHandler(logger, assessmentSvc)
	router := apihttp.NewRouter(logger, cfg.AllowedOrigins, apihttp.JWTAuthMiddleware(jwtSvc), userHandler, assessmentHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("starting server",
			zap.String("port", cfg.HTTPPort),
			zap.String("responder", cfg.ResponderKind),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Un Advance en curso puede estar esperando al LLM.
	shutdownCtx, cancel := context.WithTimeout(ctx, 2*cfg.LLMTimeout+5*time.Second)
	defer cancel()
	logger.Info("shutting down")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
}

