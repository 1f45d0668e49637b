package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// StartupNotifier posts a plain text message through the Telegram sendMessage method.
type StartupNotifier struct {
	endpoint string // Telegram API base, e.g. https://api.telegram.org
	token    string
	chatID   int64
	client   *http.Client
}

// NewStartupNotifier creates a notifier for the configured chat.
func NewStartupNotifier(endpoint, token string, chatID int64) *StartupNotifier {
	return &StartupNotifier{
		endpoint: endpoint,
		token:    token,
		chatID:   chatID,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Notify sends text with a single GET request.
func (n *StartupNotifier) Notify(text string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	query := url.Values{}
	query.Set("chat_id", strconv.FormatInt(n.chatID, 10))
	query.Set("text", text)
	reqURL := fmt.Sprintf("%s/bot%s/sendMessage?%s", n.endpoint, n.token, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	res, err := n.client.Do(req)
	if err != nil {
		// the URL carries the bot token, keep it out of the log
		return fmt.Errorf("failed to execute sendMessage request: %w", errors.Unwrap(err))
	}
	defer func() {
		if err = res.Body.Close(); err != nil {
			logrus.WithError(err).Errorf("Failed to close response body: %v", err)
		}
	}()
	data, _ := io.ReadAll(res.Body)
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("sendMessage returned %d: %s", res.StatusCode, data)
	}
	logrus.Debugf("sendMessage response: %s", data)
	return nil
}

// NotifyAsync sends text in the background and only logs the outcome.
func (n *StartupNotifier) NotifyAsync(text string) {
	go func() {
		if err := n.Notify(text); err != nil {
			logrus.WithError(err).Warn("Startup notification failed")
			return
		}
		logrus.Info("Startup notification sent")
	}()
}
