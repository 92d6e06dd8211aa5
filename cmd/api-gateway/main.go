package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/mentor-scheduling-api/internal/handler"
	"github.com/noah-isme/mentor-scheduling-api/internal/repository"
	"github.com/noah-isme/mentor-scheduling-api/internal/service"
	"github.com/noah-isme/mentor-scheduling-api/migrations"
	"github.com/noah-isme/mentor-scheduling-api/pkg/cache"
	"github.com/noah-isme/mentor-scheduling-api/pkg/config"
	"github.com/noah-isme/mentor-scheduling-api/pkg/database"
	"github.com/noah-isme/mentor-scheduling-api/pkg/jobs"
	"github.com/noah-isme/mentor-scheduling-api/pkg/logger"
)

// @title Mentor Scheduling API
// @version 1.0.0
// @description Mentor availability, slot search and booking engine
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	if cfg.RunMigrations {
		if err := migrations.Up(ctx, db.DB, logr); err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect to redis", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}

	tutorRepo := repository.NewTutorRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	ruleRepo := repository.NewAvailabilityRepository(db)
	blockRepo := repository.NewTimeBlockRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	validate := service.NewValidator()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Calendar.CacheTTL, logr, cfg.Calendar.CacheEnabled && cacheRepo.Enabled())

	var calendar service.CalendarProvider = service.NoopCalendar{}
	if cfg.Calendar.BaseURL != "" {
		calendar = service.NewCalendarHTTPClient(cfg.Calendar.BaseURL, nil)
	}

	busySvc := service.NewBusyService(lessonRepo, blockRepo, calendar, cacheSvc, metrics, logr, service.BusyConfig{
		CalendarTimeout:  cfg.Calendar.Timeout,
		CalendarCacheTTL: cfg.Calendar.CacheTTL,
	})
	slotSvc := service.NewSlotService(tutorRepo, ruleRepo, busySvc, validate, metrics, logr, service.SlotConfig{
		DefaultDuration: cfg.Slots.DefaultDuration,
		DefaultStep:     cfg.Slots.DefaultStep,
		MaxWindow:       cfg.Slots.MaxWindow,
	})
	availabilitySvc := service.NewAvailabilityService(tutorRepo, ruleRepo, validate, logr)
	timeBlockSvc := service.NewTimeBlockService(tutorRepo, blockRepo, validate, logr)
	meetingSvc := service.NewMeetingService(calendar, lessonRepo, metrics, logr, cfg.Calendar.Timeout)

	var meetingQueue *jobs.Queue
	if cfg.Meetings.Enabled {
		meetingQueue = jobs.NewQueue("meetings", meetingSvc.HandleJob, jobs.QueueConfig{
			Workers:    cfg.Meetings.Workers,
			MaxRetries: cfg.Meetings.Retries,
			RetryDelay: 2 * time.Second,
			JobTimeout: cfg.Calendar.Timeout * 2,
			Logger:     logr,
		})
		meetingQueue.Start(ctx)
		meetingSvc.UseQueue(meetingQueue)
	}

	deps := service.BookingDeps{
		Tx:            repository.NewTxManager(db),
		Tutors:        tutorRepo,
		Students:      studentRepo,
		Bookings:      bookingRepo,
		Lessons:       lessonRepo,
		Notifications: notificationRepo,
		Slots:         slotSvc,
		Meetings:      meetingSvc,
	}
	if cfg.Booking.LockEnabled && redisClient != nil {
		deps.Locker = repository.NewLockRepository(redisClient, "mentor-scheduling")
	}
	bookingSvc := service.NewBookingService(deps, validate, metrics, logr, service.BookingConfig{
		DefaultDuration: cfg.Booking.DefaultDuration,
		LockTTL:         cfg.Booking.LockTTL,
		StrictCalendar:  cfg.Calendar.Strict,
	})

	router := newRouter(cfg, logr, routerDeps{
		tokens:       service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer),
		metrics:      metrics,
		health:       handler.NewHealthHandler(db, metrics),
		slots:        handler.NewSlotHandler(slotSvc),
		availability: handler.NewAvailabilityHandler(availabilitySvc),
		timeBlocks:   handler.NewTimeBlockHandler(timeBlockSvc),
		bookings:     handler.NewBookingHandler(bookingSvc),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	if meetingQueue != nil {
		meetingQueue.Stop()
	}
}
