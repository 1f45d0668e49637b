// Package api provides clients for the external web services used by the bot:
// ThingSpeak charts, the Waypoint email API and the Telegram sendMessage endpoint.
package api

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png"
	"net/url"

	"github.com/DenisKhanov/PeakPacer/internal/tg_bot/models"
	"github.com/sirupsen/logrus"
)

// Chart dimensions requested from ThingSpeak.
const (
	ChartWidth  = 600
	ChartHeight = 400
)

// PageRenderer rasterizes a web page into PNG bytes.
type PageRenderer interface {
	Render(pageURL string) ([]byte, error)
}

// ThingSpeakCharts builds chart URLs for a ThingSpeak channel and renders them.
type ThingSpeakCharts struct {
	endpoint  string       // Base URL, e.g. https://thingspeak.com
	channelID string       // Channel holding the Peak Pacer charts
	readKey   string       // Read API key of the channel
	renderer  PageRenderer // Headless browser
}

// NewThingSpeakCharts creates a chart client for the channel.
// Arguments:
//   - endpoint: ThingSpeak base URL.
//   - channelID: channel identifier.
//   - readKey: channel read API key.
//   - renderer: page rasterizer used by Render.
func NewThingSpeakCharts(endpoint, channelID, readKey string, renderer PageRenderer) *ThingSpeakCharts {
	return &ThingSpeakCharts{
		endpoint:  endpoint,
		channelID: channelID,
		readKey:   readKey,
		renderer:  renderer,
	}
}

// BuildURL returns the chart page URL for the selection. The chart number is
// the sum of the type and mode indices.
func (c *ThingSpeakCharts) BuildURL(selection models.Selection) string {
	chartURL := fmt.Sprintf("%s/channels/%s/charts/%d?api_key=%s&width=%d&height=%d",
		c.endpoint, url.PathEscape(c.channelID), selection.ChartNumber(),
		url.QueryEscape(c.readKey), ChartWidth, ChartHeight)
	logrus.WithField("chart", selection.ChartNumber()).Debugf("Chart URL built for %s", selection)
	return chartURL
}

// Render rasterizes the chart page and decodes it.
func (c *ThingSpeakCharts) Render(chartURL string) (image.Image, error) {
	raw, err := c.renderer.Render(chartURL)
	if err != nil {
		return nil, fmt.Errorf("render chart page: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode chart screenshot: %w", err)
	}
	return img, nil
}
