package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/futsal-pulse/config"
	"github.com/Dosada05/futsal-pulse/db"
	"github.com/Dosada05/futsal-pulse/handlers"
	"github.com/Dosada05/futsal-pulse/middleware"
	"github.com/Dosada05/futsal-pulse/repositories"
	api "github.com/Dosada05/futsal-pulse/routes"
	"github.com/Dosada05/futsal-pulse/services"
	"github.com/Dosada05/futsal-pulse/storage"
)

// statsSweepInterval — период фонового пересчёта статистики игроков.
const statsSweepInterval = 10 * time.Minute

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	database, err := db.Connect(cfg.MongoURI, cfg.MongoDBName, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Client().Disconnect(context.Background()); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established", slog.String("database", cfg.MongoDBName))

	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureIndexes(indexCtx, database); err != nil {
		cancelIndexes()
		logger.Error("failed to ensure indexes", slog.Any("error", err))
		os.Exit(1)
	}
	cancelIndexes()
	logger.Info("indexes ensured")

	cloudflareUploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	})
	if err != nil {
		logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Cloudflare R2 uploader initialized")

	// Инициализация репозиториев
	userRepo := repositories.NewMongoUserRepository(database)
	teamRepo := repositories.NewMongoTeamRepository(database)
	tournamentRepo := repositories.NewMongoTournamentRepository(database)
	registrationRepo := repositories.NewMongoRegistrationRepository(database)
	matchRepo := repositories.NewMongoMatchRepository(database)
	statRepo := repositories.NewMongoStatRepository(database)
	notificationRepo := repositories.NewMongoNotificationRepository(database)
	reviewRepo := repositories.NewMongoReviewRepository(database)
	announcementRepo := repositories.NewMongoAnnouncementRepository(database)
	logger.Info("repositories initialized")

	// Инициализация сервисов
	authService := services.NewAuthService(userRepo, cfg.JWTSecretKey)
	userService := services.NewUserService(userRepo, cloudflareUploader, logger)
	notificationService := services.NewNotificationService(notificationRepo, teamRepo, userRepo)
	teamService := services.NewTeamService(teamRepo, userRepo, registrationRepo, matchRepo, notificationService)
	invitationService := services.NewInvitationService(teamRepo, userRepo, notificationRepo)
	registrationService := services.NewRegistrationService(registrationRepo, teamRepo, tournamentRepo, notificationService)
	tournamentService := services.NewTournamentService(tournamentRepo, cloudflareUploader, logger)
	statsService := services.NewPlayerStatsService(statRepo, matchRepo)
	matchService := services.NewMatchService(matchRepo, tournamentRepo, teamRepo, userRepo, registrationRepo, statsService)
	reviewService := services.NewReviewService(reviewRepo, tournamentRepo)
	announcementService := services.NewAnnouncementService(announcementRepo, tournamentRepo, registrationRepo, teamRepo, userRepo, notificationService)
	logger.Info("services initialized")

	// Фоновая сверка статистики: завершённые матчи пересчитываются
	// целиком, расхождения после ручных правок журнала затираются.
	go func() {
		ticker := time.NewTicker(statsSweepInterval)
		defer ticker.Stop()
		logger.Info("player stats reconciliation sweep started", slog.Duration("interval", statsSweepInterval))

		for range ticker.C {
			count, err := statsService.RecomputeAll(context.Background(), nil)
			if err != nil {
				logger.Error("stats sweep failed", slog.Any("error", err))
				continue
			}
			logger.Info("stats sweep complete", slog.Int("synced_matches", count))
		}
	}()

	authMiddleware := middleware.NewAuth(cfg.JWTSecretKey)

	router := api.SetupRoutes(api.Handlers{
		Auth:          handlers.NewAuthHandler(authService),
		Users:         handlers.NewUserHandler(userService),
		Teams:         handlers.NewTeamHandler(teamService),
		Invitations:   handlers.NewInvitationHandler(invitationService),
		Registrations: handlers.NewRegistrationHandler(registrationService),
		Tournaments:   handlers.NewTournamentHandler(tournamentService),
		Matches:       handlers.NewMatchHandler(matchService),
		Players:       handlers.NewPlayerHandler(statsService),
		Notifications: handlers.NewNotificationHandler(notificationService),
		Reviews:       handlers.NewReviewHandler(reviewService),
		Announcements: handlers.NewAnnouncementHandler(announcementService),
	}, authMiddleware)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
