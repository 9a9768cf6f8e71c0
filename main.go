package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salondesk/config"
	"salondesk/cron"
	"salondesk/database"
	"salondesk/database/repository"
	lockRepo "salondesk/database/repository/lock"
	"salondesk/database/repository/memory"
	"salondesk/handlers"
	"salondesk/routes"
	"salondesk/services/availability"
	"salondesk/services/booking"
	"salondesk/services/channel"
	"salondesk/services/chat"
	"salondesk/services/events"
	"salondesk/services/intelligence"
	"salondesk/services/payment"
	"salondesk/services/tasks"
	"salondesk/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	defer logger.Sync()
	cfg := config.AppConfig

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Redis is optional in memory mode; without it the worker and scheduler do not run.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = utils.GetCacheClient()
		go cron.MonitorRedis(ctx, redisClient, logger)
	}

	repos, healthChecks := buildRepositories(cfg, logger)
	if redisClient != nil {
		healthChecks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	health := utils.NewHealthMonitor(healthChecks)
	health.Start(ctx, time.Minute)

	sessionLocks := buildSessionLocker(cfg.SessionLockMode, repos, redisClient, logger)

	// Domain events.
	var publisher events.Publisher = events.NopPublisher{}
	if brokers := config.KafkaBrokerList(); len(brokers) > 0 {
		kp, err := events.NewKafkaPublisher(brokers, cfg.KafkaTopic)
		if err != nil {
			logger.Sugar().Fatalf("main: failed to create kafka publisher: %v", err)
		}
		defer kp.Close()
		publisher = kp
	}

	// Channel adapters.
	// Without a key, stored access tokens are used as plaintext.
	var tokens *channel.TokenCipher
	if cfg.WhatsAppEncryptionKey != "" {
		c, err := channel.NewTokenCipher(cfg.WhatsAppEncryptionKey)
		if err != nil {
			logger.Sugar().Fatalf("main: invalid WhatsApp encryption key: %v", err)
		}
		tokens = c
	}
	sender := channel.NewGraphSender(cfg.WhatsAppAPIBase, tokens, logger)
	dedupTTL := time.Duration(cfg.MessageDedupTTLMinutes) * time.Minute
	var dedup channel.Deduplicator = channel.NewMemoryDeduplicator(dedupTTL)
	if redisClient != nil {
		dedup = channel.NewRedisDeduplicator(redisClient, dedupTTL)
	}

	// Language model.
	genaiClient, err := intelligence.NewGeminiClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		logger.Sugar().Fatalf("main: %v", err)
	}
	defer genaiClient.Close()
	model := intelligence.NewGeminiModel(genaiClient, cfg.GeminiModel)

	// Services.
	availabilityService := availability.NewAvailabilityService(repos.Directory, repos.Appointments, logger)
	bookingService := booking.NewBookingService(availabilityService, repos.Appointments, repos.Customers, repos.SlotLocks, publisher, logger)

	var paymentService *payment.StripePaymentService
	if cfg.StripeSecretKey != "" {
		stripeClient := client.New(cfg.StripeSecretKey, nil)
		paymentService = payment.NewStripePaymentService(stripeClient.CheckoutSessions, repos.Appointments, publisher, payment.Config{
			WebhookSecret:   cfg.StripeWebhookSecret,
			DefaultCurrency: cfg.PaymentCurrency,
			SuccessURL:      cfg.PaymentSuccessURL,
			CancelURL:       cfg.PaymentCancelURL,
		}, logger)
	} else {
		logger.Warn("STRIPE_SECRET_KEY is not set; payment links are disabled")
	}

	chatConfig := chat.DefaultConfig()
	chatConfig.MaxToolRounds = cfg.ChatMaxToolRounds
	chatConfig.MaxContextTurns = cfg.ChatMaxContextTurns
	chatConfig.SessionTimeout = time.Duration(cfg.ChatSessionTimeoutMinutes) * time.Minute
	chatConfig.StaleAfter = time.Duration(cfg.ChatSessionStaleHours) * time.Hour
	chatConfig.Temperature = cfg.LLMTemperature
	chatConfig.MaxOutputTokens = cfg.LLMMaxOutputTokens
	chatConfig.ModelTimeout = time.Duration(cfg.LLMTimeoutSeconds) * time.Second
	chatConfig.ModelRetries = cfg.LLMMaxRetries
	chatConfig.DefaultRegion = cfg.DefaultPhoneRegion

	orchestrator := &chat.Orchestrator{
		Directory:     repos.Directory,
		Customers:     repos.Customers,
		Conversations: repos.Conversations,
		Availability:  availabilityService,
		Booking:       bookingService,
		Model:         model,
		Sessions:      chat.SessionLocker{Locker: sessionLocks},
		Config:        chatConfig,
		Logger:        logger.Named("chat"),
	}
	// A typed nil would defeat the orchestrator's nil check.
	if paymentService != nil {
		orchestrator.Payments = paymentService
	}

	inbound := &chat.InboundProcessor{
		Directory:     repos.Directory,
		MessageLogs:   repos.MessageLogs,
		Dedup:         dedup,
		Sender:        sender,
		Handler:       orchestrator,
		DefaultRegion: cfg.DefaultPhoneRegion,
		Logger:        logger.Named("inbound"),
	}

	// Background tasks.
	if redisClient != nil {
		redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisQueueDB}
		queue := asynq.NewClient(redisOpt)
		defer queue.Close()

		jobs := &cron.Jobs{
			Reminders: &tasks.ReminderService{
				Directory:       repos.Directory,
				Appointments:    repos.Appointments,
				Customers:       repos.Customers,
				MessageLogs:     repos.MessageLogs,
				Sender:          sender,
				Queue:           queue,
				Window:          time.Duration(cfg.ReminderWindowMinutes) * time.Minute,
				DefaultSchedule: config.DefaultReminderMinutes(),
				Logger:          logger.Named("reminders"),
			},
			Bookings:     bookingService,
			Sessions:     orchestrator,
			MessageLogs:  repos.MessageLogs,
			NoShowBuffer: time.Duration(cfg.NoShowBufferMinutes) * time.Minute,
			LogRetention: time.Duration(cfg.MessageLogRetentionDays) * 24 * time.Hour,
			Logger:       logger.Named("jobs"),
		}
		worker := cron.StartWorker(redisOpt, jobs, logger)
		defer worker.Shutdown()

		scheduler, err := cron.StartScheduler(redisOpt, logger)
		if err != nil {
			logger.Sugar().Fatalf("main: failed to start scheduler: %v", err)
		}
		defer scheduler.Shutdown()
	} else {
		logger.Warn("REDIS_ADDR is not set; reminders and sweeps are disabled")
	}

	// HTTP handlers.
	webhookHandler := handlers.NewWebhookHandler(inbound, cfg.WhatsAppVerifyToken, logger.Named("webhook"))
	chatHandler := handlers.NewChatHandler(orchestrator)
	appointmentHandler := handlers.NewAppointmentHandler(availabilityService, bookingService, repos.Customers, cfg.DefaultPhoneRegion)
	venueHandler := handlers.NewVenueHandler(repos.Directory)

	handlerBundle := &handlers.HandlerBundle{
		Directory:         repos.Directory,
		MaxRequestsPerMin: cfg.MaxRequestsPerMin,
		WhatsAppAppSecret: cfg.WhatsAppAppSecret,

		HealthHandler: handlers.HealthHandler(health),

		VerifyWebhookHandler:  webhookHandler.VerifyWebhookHandler,
		ReceiveWebhookHandler: webhookHandler.ReceiveWebhookHandler,

		SendChatMessageHandler: chatHandler.SendChatMessageHandler,
		ChatHistoryHandler:     chatHandler.ChatHistoryHandler,

		GetSlotsHandler:                appointmentHandler.GetSlotsHandler,
		CreateAppointmentHandler:       appointmentHandler.CreateAppointmentHandler,
		UpdateAppointmentStatusHandler: appointmentHandler.UpdateAppointmentStatusHandler,
		ListAppointmentsHandler:        appointmentHandler.ListAppointmentsHandler,

		GetVenueHandler:            venueHandler.GetVenueHandler,
		UpdateVenueSettingsHandler: venueHandler.UpdateVenueSettingsHandler,
	}
	if paymentService != nil {
		handlerBundle.StripeWebhookHandler = handlers.NewPaymentHandler(paymentService).StripeWebhookHandler
	} else {
		handlerBundle.StripeWebhookHandler = func(c *gin.Context) {
			utils.RespondError(c, utils.NotFound("payments are not configured"))
		}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	routes.RegisterRoutes(router, handlerBundle)

	port := cfg.AppPort
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
	logger.Sugar().Info("main: server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}
	webhookHandler.Wait()
	stop()

	if err := database.Disconnect(shutdownCtx); err != nil {
		logger.Sugar().Warnf("main: mongo disconnect: %v", err)
	}
	logger.Sugar().Info("main: server stopped gracefully")
}

// buildRepositories picks the storage driver and returns the health checks it needs.
func buildRepositories(cfg config.Config, logger *zap.Logger) (*repository.Repositories, map[string]utils.HealthCheck) {
	checks := map[string]utils.HealthCheck{}
	switch cfg.StorageDriver {
	case "memory":
		repos, dir := repository.NewMemoryRepositories()
		memory.SeedDemoSalon(dir)
		logger.Warn("Using in-memory storage seeded with the demo salon", zap.String("salonId", memory.DemoSalonID))
		return repos, checks
	case "mongo", "":
		database.InitDB()
		db := database.Database()
		checks["mongo"] = func(ctx context.Context) error { return database.MongoClient.Ping(ctx, nil) }
		return repository.NewMongoRepositories(db), checks
	default:
		logger.Sugar().Fatalf("main: unknown STORAGE_DRIVER %q", cfg.StorageDriver)
		return nil, nil
	}
}

// buildSessionLocker picks where per-customer session locks live.
func buildSessionLocker(mode string, repos *repository.Repositories, redisClient *redis.Client, logger *zap.Logger) lockRepo.Locker {
	switch mode {
	case "redis":
		if redisClient == nil {
			logger.Sugar().Fatal("main: SESSION_LOCK_MODE=redis requires REDIS_ADDR")
		}
		return lockRepo.NewRedisLocker(redisClient)
	case "mongo":
		return repos.SlotLocks
	default:
		return lockRepo.NewLocalLocker()
	}
}
