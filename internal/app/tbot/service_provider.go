// Package tbot provides dependency injection and service management for Telegram bot components.
// It initializes and provides access to the device link, renderers, notifiers and the chat service.
package tbot

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/DenisKhanov/PeakPacer/internal/tg_bot/api"
	botHTTP "github.com/DenisKhanov/PeakPacer/internal/tg_bot/api/http"
	"github.com/DenisKhanov/PeakPacer/internal/tg_bot/config"
	"github.com/DenisKhanov/PeakPacer/internal/tg_bot/device"
	"github.com/DenisKhanov/PeakPacer/internal/tg_bot/infra/browser"
	"github.com/DenisKhanov/PeakPacer/internal/tg_bot/infra/mqtt"
	"github.com/DenisKhanov/PeakPacer/internal/tg_bot/infra/plot"
	"github.com/DenisKhanov/PeakPacer/internal/tg_bot/repository"
	botServ "github.com/DenisKhanov/PeakPacer/internal/tg_bot/service"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// renderTimeout bounds one headless browser session.
const renderTimeout = 60 * time.Second

// ServiceProvider manages the dependency injection for Telegram bot components.
type ServiceProvider struct {
	cfg *config.Config

	// State
	summary  *repository.Summary
	sessions *repository.Sessions

	// Device
	deviceLink *device.Link
	mirror     *mqtt.Mirror

	// Renderers and notifiers
	charts   *api.ThingSpeakCharts
	mailer   *api.WaypointAPI
	plotter  *plot.SummaryChart
	notifier *api.StartupNotifier

	statusServer *botHTTP.StatusServer

	// Bot API
	botAPI *tgbotapi.BotAPI

	// Bot service
	botService *botServ.TgBotServices

	summaryOnce    sync.Once
	sessionsOnce   sync.Once
	deviceOnce     sync.Once
	mirrorOnce     sync.Once
	chartsOnce     sync.Once
	mailerOnce     sync.Once
	plotterOnce    sync.Once
	notifierOnce   sync.Once
	statusOnce     sync.Once
	botAPIOnce     sync.Once
	botServiceOnce sync.Once
}

// NewServiceProvider creates a new instance of the service provider.
func NewServiceProvider(cfg *config.Config) *ServiceProvider {
	if cfg == nil {
		logrus.Fatal("ServiceProvider needs a configuration")
	}
	return &ServiceProvider{cfg: cfg}
}

// Summary returns the device summary counters.
func (s *ServiceProvider) Summary() *repository.Summary {
	s.summaryOnce.Do(func() {
		s.summary = repository.NewSummary()
		logrus.Info("Summary initialized")
	})
	return s.summary
}

// Sessions returns the per-chat conversation state repository.
func (s *ServiceProvider) Sessions() *repository.Sessions {
	s.sessionsOnce.Do(func() {
		s.sessions = repository.NewSessions()
		logrus.Info("Sessions initialized")
	})
	return s.sessions
}

// Mirror returns the MQTT mirror or nil when MQTT_BROKER is empty or unreachable.
func (s *ServiceProvider) Mirror() *mqtt.Mirror {
	s.mirrorOnce.Do(func() {
		if s.cfg.EnvMQTTBroker == "" {
			return
		}
		hostname, _ := os.Hostname()
		mirror, err := mqtt.NewMirror(s.cfg.EnvMQTTBroker, fmt.Sprintf("peakpacer-%s", hostname), s.cfg.EnvMQTTTopic)
		if err != nil {
			logrus.WithError(err).Error("Failed to initialize MQTT mirror")
			return
		}
		s.mirror = mirror
		logrus.Infof("MQTT mirror initialized on %s", s.cfg.EnvMQTTTopic)
	})
	return s.mirror
}

// DeviceLink returns the serial link. When the port cannot be opened the bot keeps
// running with a link that drops every write and never yields lines.
func (s *ServiceProvider) DeviceLink() *device.Link {
	s.deviceOnce.Do(func() {
		link, err := device.Connect(s.cfg.EnvSerialPort, s.cfg.EnvSerialBaud, s.cfg.EnvSerialSettle, s.Summary())
		if err != nil {
			logrus.WithError(err).Errorf("Device on %s is not available", s.cfg.EnvSerialPort)
			link = device.Disabled()
		} else {
			logrus.Infof("Device connected on %s", s.cfg.EnvSerialPort)
		}
		if mirror := s.Mirror(); mirror != nil {
			link.SetMirror(mirror)
		}
		s.deviceLink = link
	})
	return s.deviceLink
}

// Charts returns the ThingSpeak chart renderer.
func (s *ServiceProvider) Charts() *api.ThingSpeakCharts {
	s.chartsOnce.Do(func() {
		chrome := browser.NewChrome(s.cfg.EnvRenderSettle, renderTimeout, api.ChartWidth, api.ChartHeight)
		s.charts = api.NewThingSpeakCharts(s.cfg.EnvThingSpeakEndpoint, s.cfg.EnvThingSpeakChannelID,
			s.cfg.EnvThingSpeakReadKey, chrome)
		logrus.Info("Charts initialized")
	})
	return s.charts
}

// Mailer returns the Waypoint email client.
func (s *ServiceProvider) Mailer() *api.WaypointAPI {
	s.mailerOnce.Do(func() {
		s.mailer = api.NewWaypointAPI(s.cfg.EnvWaypointEndpoint, s.cfg.EnvWaypointUsername, s.cfg.EnvWaypointPassword)
		logrus.Info("Mailer initialized")
	})
	return s.mailer
}

// Plotter returns the local summary chart renderer.
func (s *ServiceProvider) Plotter() *plot.SummaryChart {
	s.plotterOnce.Do(func() {
		s.plotter = plot.NewSummaryChart(api.ChartWidth, api.ChartHeight)
	})
	return s.plotter
}

// Notifier returns the startup notifier.
func (s *ServiceProvider) Notifier() *api.StartupNotifier {
	s.notifierOnce.Do(func() {
		s.notifier = api.NewStartupNotifier(s.cfg.EnvTelegramEndpoint, s.cfg.EnvBotToken, s.cfg.EnvChatID)
	})
	return s.notifier
}

// StatusServer returns the status HTTP server or nil when STATUS_ADDR is empty.
func (s *ServiceProvider) StatusServer(customTime botHTTP.CustomTimeSource) *botHTTP.StatusServer {
	s.statusOnce.Do(func() {
		if s.cfg.EnvStatusAddr == "" {
			return
		}
		s.statusServer = botHTTP.NewStatusServer(s.cfg.EnvStatusAddr, s.Summary(), customTime, s.DeviceLink(), s.Plotter())
		logrus.Info("StatusServer initialized")
	})
	return s.statusServer
}

// BotAPI returns the Telegram Bot API instance.
func (s *ServiceProvider) BotAPI() (*tgbotapi.BotAPI, error) {
	var err error
	s.botAPIOnce.Do(func() {
		s.botAPI, err = tgbotapi.NewBotAPIWithAPIEndpoint(s.cfg.EnvBotToken, s.cfg.EnvTelegramEndpoint+"/bot%s/%s")
		if err != nil {
			logrus.Errorf("Failed to initialize BotAPI: %v", err)
			s.botAPI = nil
		}
	})
	if s.botAPI == nil {
		return nil, fmt.Errorf("bot API not initialized: %w", err)
	}

	logrus.Info("BotApi initialized")
	return s.botAPI, nil
}

// BotService returns the main Telegram bot service.
func (s *ServiceProvider) BotService(botAPI *tgbotapi.BotAPI) *botServ.TgBotServices {
	s.botServiceOnce.Do(func() {
		s.botService = botServ.NewTgBot(
			s.DeviceLink(),
			s.Summary(),
			s.Charts(),
			s.Mailer(),
			s.Plotter(),
			s.Sessions(),
			botAPI,
			botServ.EmailSettings{
				TemplateID: s.cfg.EnvWaypointTemplateID,
				Recipient:  s.cfg.EnvWaypointRecipient,
			},
			s.cfg.EnvDefaultCustom,
			s.cfg.EnvConfirmDelay,
		)
		logrus.Info("BotService initialized")
	})
	return s.botService
}

// Close releases the device link and the MQTT connection.
func (s *ServiceProvider) Close() {
	if s.deviceLink != nil {
		if err := s.deviceLink.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close device link")
		}
	}
	if s.mirror != nil {
		if err := s.mirror.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close MQTT mirror")
		}
	}
}
