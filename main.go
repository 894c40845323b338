package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tutorhive/config"
	"tutorhive/cron"
	"tutorhive/database"
	bookingRepoPkg "tutorhive/database/repository/booking"
	paymentRepoPkg "tutorhive/database/repository/payment"
	tutorRepoPkg "tutorhive/database/repository/tutor"
	userRepoPkg "tutorhive/database/repository/user"
	"tutorhive/handlers"
	"tutorhive/middleware"
	"tutorhive/routes"
	"tutorhive/services/notification"
	"tutorhive/services/payment"
	"tutorhive/services/payment/gateway"
	"tutorhive/services/scheduling"
	"tutorhive/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	utils.InitTaskQueue()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	// repositories.
	bookingRepo := bookingRepoPkg.NewMongoBookingRepo()
	paymentRepo := paymentRepoPkg.NewMongoPaymentRepo()
	tutorRepo := tutorRepoPkg.NewCachedTutorRepo(tutorRepoPkg.NewMongoTutorRepo(), utils.GetCacheClient())
	userRepo := userRepoPkg.NewMongoUserRepo()

	// task queue client for notification delivery and session reminders.
	taskClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisTaskDB,
	})
	defer taskClient.Close()

	// services.
	notificationService := &notification.DefaultNotificationService{
		Users:  userRepo,
		Tasks:  taskClient,
		Logger: logger,
	}
	reminderScheduler := &cron.ReminderScheduler{Client: taskClient}

	paymentService := &payment.DefaultPaymentService{
		Payments:    paymentRepo,
		Bookings:    bookingRepo,
		Gateway:     gateway.NewHTTPClient(config.AppConfig.GatewayBaseURL, config.AppConfig.GatewaySecretKey),
		Notifier:    notificationService,
		Reminders:   reminderScheduler,
		Logger:      logger,
		Currency:    config.AppConfig.GatewayCurrency,
		CallbackURL: config.AppConfig.GatewayCallback,
		ReturnURL:   config.AppConfig.GatewayReturnURL,
	}

	schedulingEngine := &scheduling.DefaultSchedulingEngine{
		Bookings: bookingRepo,
		Tutors:   tutorRepo,
		Users:    userRepo,
		Payments: paymentService,
		Notifier: notificationService,
		Logger:   logger,
	}

	bookingHandler := handlers.NewBookingHandler(schedulingEngine, logger)
	tutorHandler := handlers.NewTutorHandler(schedulingEngine, logger)
	paymentHandler := handlers.NewPaymentHandler(paymentService, logger)

	routes.Register(router, bookingHandler, tutorHandler, paymentHandler)

	// Background workers.
	cron.InitReminderWorker(bookingRepo, notificationService)
	utils.StartHealthMonitor(utils.GetCacheClient(), utils.GetTaskQueueClient(), database.MongoClient)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}
	logger.Info("Server exited cleanly")
}
