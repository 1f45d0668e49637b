package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

// DefaultEnvFile is read when no other file is given with -env.
const DefaultEnvFile = "bot.env"

// Config holds the application configuration parameters.
// Each field corresponds to an expected environment variable.
type Config struct {
	EnvLogsLevel   string `env:"LOG_LEVEL" envDefault:"info"`              // Log level for the application (e.g., debug, info)
	EnvLogFileName string `env:"LOG_FILE_NAME" envDefault:"peakpacer.log"` // File's name for log
	EnvBotToken    string `env:"TOKEN_BOT"`                                // Telegram Bot Token for authentication with the Telegram API
	EnvChatID      int64  `env:"CHAT_ID"`                                  // Chat notified when the bot starts

	EnvSerialPort   string        `env:"SERIAL_PORT" envDefault:"COM6"`
	EnvSerialBaud   int           `env:"SERIAL_BAUD" envDefault:"9600"`
	EnvSerialSettle time.Duration `env:"SERIAL_SETTLE" envDefault:"2s"` // Board reset time after the port opens
	EnvConfirmDelay time.Duration `env:"CONFIRM_DELAY" envDefault:"1s"` // Wait for the custom time confirmation

	EnvThingSpeakEndpoint  string        `env:"THINGSPEAK_ENDPOINT" envDefault:"https://thingspeak.com"`
	EnvThingSpeakChannelID string        `env:"THINGSPEAK_CHANNEL_ID"`
	EnvThingSpeakReadKey   string        `env:"THINGSPEAK_READ_API_KEY"`
	EnvRenderSettle        time.Duration `env:"RENDER_SETTLE" envDefault:"2s"` // Wait for the chart page scripts

	EnvWaypointEndpoint   string `env:"WAYPOINT_ENDPOINT" envDefault:"https://live.waypointapi.com/v1/email_messages"`
	EnvWaypointUsername   string `env:"WAYPOINT_API_USERNAME"`
	EnvWaypointPassword   string `env:"WAYPOINT_API_PASSWORD"`
	EnvWaypointTemplateID string `env:"WAYPOINT_TEMPLATE_ID"`
	EnvWaypointRecipient  string `env:"WAYPOINT_RECIPIENT"`

	EnvTelegramEndpoint string `env:"TELEGRAM_API_ENDPOINT" envDefault:"https://api.telegram.org"`
	EnvStatusAddr       string `env:"STATUS_ADDR"` // Empty disables the status server
	EnvMQTTBroker       string `env:"MQTT_BROKER"` // Empty disables the MQTT mirror
	EnvMQTTTopic        string `env:"MQTT_TOPIC" envDefault:"peakpacer/serial"`
	EnvDefaultCustom    int    `env:"DEFAULT_CUSTOM_TIME" envDefault:"10"`
}

// NewConfig loads the env file named by the -env flag, then parses the environment.
// A missing env file is not an error: variables may come from the process environment.
func NewConfig() (*Config, error) {
	var envFile string
	flag.StringVar(&envFile, "env", DefaultEnvFile, "Path to the env file")
	flag.Parse()
	return Load(envFile)
}

// Load reads envFile when it exists and returns the parsed configuration.
func Load(envFile string) (*Config, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return config, nil
}

// Validate reports every required value that is missing.
func (c *Config) Validate() error {
	var missing []string
	if c.EnvBotToken == "" {
		missing = append(missing, "TOKEN_BOT")
	}
	if c.EnvChatID == 0 {
		missing = append(missing, "CHAT_ID")
	}
	if c.EnvSerialBaud <= 0 {
		missing = append(missing, "SERIAL_BAUD")
	}
	if c.EnvDefaultCustom < 0 {
		missing = append(missing, "DEFAULT_CUSTOM_TIME")
	}
	if len(missing) > 0 {
		return fmt.Errorf("invalid or missing configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
