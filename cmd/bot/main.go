package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/darsbot-api/internal/bot"
	"github.com/noah-isme/darsbot-api/internal/config"
	"github.com/noah-isme/darsbot-api/internal/database"
	"github.com/noah-isme/darsbot-api/internal/handler"
	"github.com/noah-isme/darsbot-api/internal/middleware"
	"github.com/noah-isme/darsbot-api/internal/models"
	"github.com/noah-isme/darsbot-api/internal/repository"
	"github.com/noah-isme/darsbot-api/internal/router"
	"github.com/noah-isme/darsbot-api/internal/service"
	"github.com/noah-isme/darsbot-api/pkg/bus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Submission{},
		&models.ScoreEvent{},
		&models.ScoreTotal{},
		&models.AdminGrant{},
		&models.ActivityLog{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var notifier service.Notifier = service.NewLogNotifier(logger)
	var busClient *bus.Client
	if cfg.NatsURL != "" {
		conn, err := database.ConnectNATS(cfg.NatsURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer conn.Close()

		busClient = bus.New(conn, cfg.AppName, cfg.BroadcastChatID, logger)
		notifier = busClient
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	scoreRepo := repository.NewScoreRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activity := service.NewActivityService(activityRepo, logger)
	roster := service.NewRosterService(userRepo, adminRepo, cfg.SuperAdminID, cfg.InitialAdminIDs, activity, logger)
	scores := service.NewScoreService(scoreRepo, redisClient, cfg.LeaderboardCacheTTL, logger)
	intake := service.NewIntakeService(submissionRepo, roster, scores, validate, service.IntakeConfig{
		Mode:       cfg.AcceptMode,
		Hashtags:   cfg.ValidHashtags,
		Extensions: cfg.AllowedExtensions,
	}, logger)
	review := service.NewReviewService(submissionRepo, roster, scores, notifier, activity, cfg.FeedbackSessionTTL, logger)
	reports := service.NewReportService(submissionRepo, userRepo, roster, scores, logger)

	if err := roster.Seed(ctx); err != nil {
		log.Fatalf("failed to seed admin roster: %v", err)
	}
	if err := scores.Reconcile(ctx); err != nil {
		log.Fatalf("failed to reconcile score totals: %v", err)
	}

	if busClient != nil {
		dispatcher := bot.New(intake, review, reports, scores, roster, notifier, logger)
		if err := busClient.SubscribeEvents(ctx, dispatcher); err != nil {
			log.Fatalf("failed to subscribe to inbound events: %v", err)
		}
	} else {
		logger.Warn().Msg("nats url not configured, inbound events disabled")
	}

	leaderboardHandler := handler.NewLeaderboardHandler(scores, logger)
	reportHandler := handler.NewReportHandler(review, reports, logger)
	activityHandler := handler.NewActivityHandler(activity, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		LeaderboardHandler: leaderboardHandler,
		ReportHandler:      reportHandler,
		ActivityHandler:    activityHandler,
		JWTMiddleware:      middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(ctx, app)
}

func waitForShutdown(ctx context.Context, app *fiber.App) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
