package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"budget_alert_bot/internal/app"
	"budget_alert_bot/internal/domain/notification"
	"budget_alert_bot/internal/infra/channel"
	"budget_alert_bot/internal/infra/config"
	idb "budget_alert_bot/internal/infra/database"
	"budget_alert_bot/internal/infra/logger"
	"budget_alert_bot/internal/infra/scheduler"
	"budget_alert_bot/internal/infra/telegram"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	mainLogger := logger.Component("main")

	mainLogger.WithFields(logrus.Fields{
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
		"cache_ttl":   cfg.CacheTTL,
		"sms_mode":    cfg.SMSMode,
	}).Info("Budget Alert Bot starting...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL, idb.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnectAttempts: cfg.DBConnectAttempts,
	}, logger.Component("database"))
	if err != nil {
		mainLogger.Fatalf("Could not connect to database: %v", err)
	}
	defer db.Close()
	if err := idb.EnsureSchema(ctx, db); err != nil {
		mainLogger.Fatalf("Could not prepare database schema: %v", err)
	}
	mainLogger.Info("Database connection established successfully.")

	userRepo := idb.NewPostgresUserRepository(db)
	budgetRepo := idb.NewPostgresBudgetRepository(db)
	expenseRepo := idb.NewPostgresExpenseRepository(db)

	// Initialize Telegram Bot
	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) { // Global error handler
			logCtx := logger.Component("telebot").WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				logCtx = logCtx.WithFields(logrus.Fields{
					"message":   c.Text(),
					"sender_id": c.Sender().ID,
					"chat_id":   c.Chat().ID,
				})
			}
			logCtx.Error("Telegram handler error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		mainLogger.Fatalf("Could not create Telegram bot: %v", err)
	}
	botClient := telegram.NewTelebotAdapter(bot)

	// Notification channels
	channels, closeChannels := buildChannels(cfg, botClient, mainLogger)
	defer closeChannels()

	monitor := app.NewBudgetMonitor(userRepo, budgetRepo, logger.Component("budget_monitor"),
		app.WithDefaultChannels(channels...),
		app.WithNotifyTimeout(cfg.NotifyTimeout),
	)
	budgetService := app.NewBudgetService(budgetRepo, expenseRepo, monitor, logger.Component("budget_service"),
		app.BudgetServiceConfig{PersistRetries: cfg.AlertPersistRetries, RetryDelay: 200 * time.Millisecond},
	)
	userService := app.NewUserService(userRepo)

	cacheScheduler := scheduler.NewCacheScheduler(monitor, budgetService, logger.Component("scheduler"), scheduler.Config{
		CacheTTL:       cfg.CacheTTL,
		CronSpecReap:   cfg.CronSpecReap,
		CronSpecResync: cfg.CronSpecResync,
	})
	if err := cacheScheduler.Start(); err != nil {
		mainLogger.Fatalf("Could not start scheduler: %v", err)
	}

	handlers := telegram.NewCommandHandlers(userService, budgetService, logger.Component("bot_commands"))
	telegram.RegisterBotCommands(ctx, bot, handlers)
	mainLogger.Info("Bot command handlers registered.")

	// Start bot in a goroutine so it doesn't block graceful shutdown handling
	go bot.Start()
	mainLogger.Info("Application setup complete. Bot and scheduler are running.")

	<-ctx.Done() // Block until a signal is received

	mainLogger.Info("Shutting down application...")
	bot.Stop()
	cacheScheduler.Stop()
	mainLogger.Info("Application shut down gracefully.")
}

// buildChannels assembles the default notification channels from configuration.
// The returned func releases any connections the channels hold.
func buildChannels(cfg *config.AppConfig, botClient *telegram.TelebotAdapter, mainLogger *logrus.Entry) ([]notification.Channel, func()) {
	var transport channel.MailTransport
	if cfg.SMTP.Enabled() {
		transport = channel.NewSMTPTransport(channel.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
		mainLogger.WithField("smtp_host", cfg.SMTP.Host).Info("Email alerts will be sent over SMTP.")
	} else {
		transport = channel.NewLogTransport(logger.Component("email"))
		mainLogger.Warn("SMTP_HOST is not set, email alerts will only be logged.")
	}

	var smsSender channel.SMSSender
	switch cfg.SMSMode {
	case config.SMSModeTelegram:
		smsSender = channel.NewTelegramSMSSender(botClient)
	default:
		smsSender = channel.NewSimulatedSMSSender(logger.Component("sms"))
	}

	closeFn := func() {}
	var publisher channel.DashboardPublisher = channel.NewHub()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			mainLogger.Fatalf("Invalid REDIS_URL: %v", err)
		}
		rdb := redis.NewClient(opts)
		publisher = channel.NewRedisPublisher(rdb)
		closeFn = func() {
			if err := rdb.Close(); err != nil {
				mainLogger.WithError(err).Warn("Failed to close Redis client")
			}
		}
		mainLogger.Info("Dashboard updates will be published to Redis.")
	}

	return []notification.Channel{
		channel.NewEmailChannel(transport),
		channel.NewSMSChannel(smsSender),
		channel.NewLogChannel(logger.Component("alerts")),
		channel.NewDashboardChannel(publisher),
	}, closeFn
}
