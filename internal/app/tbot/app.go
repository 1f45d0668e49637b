package tbot

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DenisKhanov/PeakPacer/internal/app/custom"
	"github.com/DenisKhanov/PeakPacer/internal/logcfg"
	"github.com/DenisKhanov/PeakPacer/internal/tg_bot/config"
	"github.com/DenisKhanov/PeakPacer/internal/tg_bot/constant"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

const (
	shutdownTimeout   = 5 * time.Second // Bound for the status server shutdown
	updatesRetryDelay = 3 * time.Second
)

// App represents the application structure responsible for initializing dependencies
// and running the Telegram bot.
type App struct {
	serviceProvider *ServiceProvider // The service provider for dependency injection
	config          *config.Config   // The configuration object for the application
}

// NewApp creates a new instance of the application.
func NewApp(ctx context.Context) (*App, error) {
	app := &App{}
	err := app.initDeps(ctx)
	if err != nil {
		return nil, err
	}
	return app, nil
}

// Run starts the application and runs the Telegram bot until SIGINT or SIGTERM.
func (a *App) Run() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	a.runTelegramBot(ctx)
}

// initDeps initializes all dependencies required by the application.
func (a *App) initDeps(ctx context.Context) error {
	inits := []func(context.Context) error{
		a.initConfig,
		a.initServiceProvider,
	}

	for _, f := range inits {
		err := f(ctx)
		if err != nil {
			return err
		}
	}

	return nil
}

// initConfig initializes the application configuration.
func (a *App) initConfig(_ context.Context) error {
	cfg, err := config.NewConfig()
	if err != nil {
		return err
	}
	logcfg.RunLoggerConfig(cfg.EnvLogsLevel, cfg.EnvLogFileName)
	if err = cfg.Validate(); err != nil {
		return err
	}
	a.config = cfg
	return nil
}

// initServiceProvider initializes the service provider for dependency injection.
func (a *App) initServiceProvider(_ context.Context) error {
	a.serviceProvider = NewServiceProvider(a.config)
	return nil
}

// runTelegramBot starts the Telegram bot with graceful shutdown.
func (a *App) runTelegramBot(ctx context.Context) {
	a.serviceProvider.Notifier().NotifyAsync(constant.TEXT_STARTING_BOT)

	// Initialize bot API
	botAPI, err := a.serviceProvider.BotAPI()
	if err != nil {
		logrus.Fatalf("[ERROR] can't make telegram bot, %v", err)
	}
	botAPI.Debug = logrus.IsLevelEnabled(logrus.DebugLevel)
	logrus.Infof("Bot API created successfully for %s", botAPI.Self.UserName)

	// Initialize bot service
	myBot := a.serviceProvider.BotService(botAPI)
	defer a.serviceProvider.Close()

	if statusServer := a.serviceProvider.StatusServer(myBot); statusServer != nil {
		statusServer.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := statusServer.Shutdown(shutdownCtx); err != nil {
				logrus.WithError(err).Error("Status server shutdown failed")
			}
		}()
	}

	// Configure updates channel
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60 // seconds timeout
	updates := custom.NewUpdatesPoller(botAPI, botAPI.Buffer, updatesRetryDelay).GetUpdatesChan(ctx, updateConfig)

	// Main loop
	for {
		select {
		case <-ctx.Done(): // Wait for shutdown signal
			logrus.Info("Received shutdown signal, shutting down main loop...")
			return
		case update, ok := <-updates: // Telegram updates
			if !ok {
				logrus.Info("Telegram update chan closed")
				return
			}
			myBot.UpdateProcessing(&update)
		}
	}
}
