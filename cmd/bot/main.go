package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"sorting-hat/internal/config"
	"sorting-hat/internal/db"
	"sorting-hat/internal/discord"
	"sorting-hat/internal/domain"
	apihttp "sorting-hat/internal/http"
	"sorting-hat/internal/logging"
	"sorting-hat/internal/repository"
	"sorting-hat/internal/service"
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

	ring := logging.NewRing(500)
	logger := logging.NewLogger(ring)
	defer logger.Sync()

	var results repository.ResultRepository
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer pool.Close()
		if err := db.Ping(ctx, pool); err != nil {
			logger.Fatal("db ping", zap.Error(err))
		}
		results = repository.NewPgResultRepository(ctx, pool, logger)
	} else {
		results = repository.NewFileResultRepository(cfg.StoreFile, logger)
	}

	var (
		limiter    service.SortRateLimiter
		tokenStore service.RefreshTokenStore
	)
	limiter = service.NewSortRateLimiter(10*time.Minute, 3)
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
			limiter = service.NewRedisSortRateLimiter(redisClient, 10*time.Minute, 3)
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
		logger.Warn("jwt secret not configured, control surface runs open")
	}

	quizSvc := service.NewSessionService(results, domain.Questions, logger)
	roleSvc := service.NewRoleService(results, logger)
	scanSvc := service.NewScanService(roleSvc, results,
		time.Duration(cfg.ScanGuildIntervalMS)*time.Millisecond, logger)

	bot, err := discord.New(cfg, logger, quizSvc, roleSvc, scanSvc, limiter, results)
	if err != nil {
		logger.Fatal("discord session init", zap.Error(err))
	}
	if err := bot.Start(); err != nil {
		logger.Fatal("discord connect", zap.Error(err))
	}
	defer bot.Stop()

	authHandler := apihttp.NewAuthHandler(logger, jwtSvc, cfg.AdminPasswordHash)
	controlHandler := apihttp.NewControlHandler(logger, bot, results, quizSvc, roleSvc, ring)
	router := apihttp.NewRouter(logger, authHandler, controlHandler, jwtSvc)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting control server", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
}
