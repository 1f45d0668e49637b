package custom

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// UpdatesGetter is the long polling call of *tgbotapi.BotAPI.
type UpdatesGetter interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

// UpdatesPoller feeds Telegram updates into a channel until its context is cancelled.
type UpdatesPoller struct {
	api        UpdatesGetter
	buffer     int
	retryDelay time.Duration // Pause after a failed GetUpdates call
}

// NewUpdatesPoller creates a poller with a channel buffer of the given size.
func NewUpdatesPoller(api UpdatesGetter, buffer int, retryDelay time.Duration) *UpdatesPoller {
	return &UpdatesPoller{
		api:        api,
		buffer:     buffer,
		retryDelay: retryDelay,
	}
}

// GetUpdatesChan starts polling. The channel is closed once ctx is done.
func (p *UpdatesPoller) GetUpdatesChan(ctx context.Context, config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	ch := make(chan tgbotapi.Update, p.buffer)

	go func() {
		defer close(ch)
		for {
			if ctx.Err() != nil {
				return
			}
			updates, err := p.api.GetUpdates(config)
			if err != nil {
				logrus.WithError(err).Warnf("Failed to get updates, retrying in %v...", p.retryDelay)
				select {
				case <-ctx.Done():
					return
				case <-time.After(p.retryDelay):
				}
				continue
			}

			for _, update := range updates {
				if update.UpdateID < config.Offset {
					continue
				}
				config.Offset = update.UpdateID + 1
				select {
				case ch <- update:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch
}
