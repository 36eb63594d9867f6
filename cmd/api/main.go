package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"taskboard-api/config"
	"taskboard-api/controllers"
	"taskboard-api/middleware"
	"taskboard-api/routes"
	"taskboard-api/services"
)

func main() {
	settings := config.Load()

	if logFile := config.InitLogging(settings); logFile != nil {
		defer logFile.Close()
	}

	config.InitDB(settings)
	sqlDB, err := config.DB.DB()
	if err != nil {
		logrus.Fatalf("Failed to get database handle: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Push: local hub always, Redis fan-out when configured.
	hub := services.NewHub(0)
	var broker services.Broker = hub
	var locker services.Locker = services.NewMySQLLocker(sqlDB)
	if rdb := config.InitRedis(settings); rdb != nil {
		defer rdb.Close()
		broker = services.NewRedisBroker(rdb)
		locker = services.NewRedisLocker(rdb, 10*time.Minute)
		go func() {
			if err := services.RunRedisRelay(ctx, rdb, hub); err != nil {
				logrus.Errorf("push relay stopped: %v", err)
			}
		}()
	}

	var publisher services.ActivityPublisher
	if settings.AMQPURI != "" {
		conn, ch, err := config.InitAMQP(settings)
		if err != nil {
			logrus.Warnf("Activity mirror disabled: %v", err)
		} else {
			defer conn.Close()
			defer ch.Close()
			publisher = services.NewAMQPActivityPublisher(ch, settings.AMQPExchange)
			logrus.Infof("Activity mirror publishing to exchange %s", settings.AMQPExchange)
		}
	}

	directory := services.NewGormDirectory(config.DB)
	notificationStore := services.NewGormNotificationStore(config.DB)
	preferenceStore := services.NewGormPreferenceStore(config.DB)
	activityLog := services.NewActivityLog(services.NewSQLActivityStore(sqlDB), publisher)
	emailChannel := services.NewEmailChannel(config.NewSMTPMailer(settings), settings.AppBaseURL)

	dispatcher := services.NewNotificationDispatcher(services.DispatcherDeps{
		Notifications: notificationStore,
		Preferences:   preferenceStore,
		Users:         directory,
		Projects:      directory,
		Tasks:         directory,
		Activity:      activityLog,
		Push:          services.NewPushChannel(broker, settings.PushTimeout),
		Email:         emailChannel,
	})
	transactor := services.NewGormTransactor(config.DB, dispatcher)

	scheduler := services.NewDigestScheduler(notificationStore, preferenceStore, directory, emailChannel, locker)
	go scheduler.Start(ctx, settings.DigestTick)

	if settings.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = config.LogWriter

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORSMiddleware(settings.AllowedOrigins))

	routes.SetupRoutes(router, routes.Handlers{
		Notifications: controllers.NewNotificationController(services.NewNotificationService(notificationStore), hub),
		Preferences:   controllers.NewPreferenceController(services.NewPreferenceService(preferenceStore)),
		Activity:      controllers.NewActivityController(activityLog, services.NewActivityAccess(directory)),
		Internal: controllers.NewInternalEventController(
			services.NewEventService(dispatcher, directory, directory),
			services.NewModerationService(transactor),
			services.NewPaymentService(transactor),
		),
		Users:           directory,
		JWTSecret:       settings.JWTSecret,
		InternalKeyHash: settings.InternalKeyHash,
	})

	srv := &http.Server{
		Addr:              ":" + settings.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Open SSE streams end when the process is signalled.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		logrus.Infof("Server starting on port %s (%s)", settings.ServerPort, settings.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Graceful shutdown failed: %v", err)
	}
}
