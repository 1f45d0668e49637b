package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/DenisKhanov/PeakPacer/internal/tg_bot/models"
	"github.com/sirupsen/logrus"
)

// EmailMessageRequest is the body of a Waypoint templated email.
type EmailMessageRequest struct {
	TemplateID string                 `json:"templateId"` // Waypoint template identifier
	To         string                 `json:"to"`         // Recipient address
	Variables  models.SummaryCounters `json:"variables"`  // Template variables
}

// WaypointAPI sends templated emails through the Waypoint email API.
type WaypointAPI struct {
	endpoint string       // Full URL of the email_messages resource
	username string       // Basic auth API key username
	password string       // Basic auth API key password
	client   *http.Client // HTTP client
}

// NewWaypointAPI creates a Waypoint client authenticated with the given API key pair.
func NewWaypointAPI(endpoint, username, password string) *WaypointAPI {
	return &WaypointAPI{
		endpoint: endpoint,
		username: username,
		password: password,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// SendSummaryEmail posts one templated email carrying the counters as variables.
// A transport error or a non-2xx answer is returned as an error; nothing is retried.
func (w *WaypointAPI) SendSummaryEmail(templateID, recipient string, counters models.SummaryCounters) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	body, err := json.Marshal(EmailMessageRequest{
		TemplateID: templateID,
		To:         recipient,
		Variables:  counters,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(w.username, w.password)

	res, err := w.client.Do(req)
	if err != nil {
		logrus.WithError(err).Errorf("Failed to post email to %s", w.endpoint)
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		if err = res.Body.Close(); err != nil {
			logrus.WithError(err).Errorf("Failed to close response body: %v", err)
		}
	}()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		logrus.WithError(err).Error("Failed to read email response")
	}
	logrus.WithField("status", res.StatusCode).Infof("Waypoint response: %s", data)

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}
	return nil
}
