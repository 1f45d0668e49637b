// Package http exposes a small read-only status API next to the bot.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/DenisKhanov/PeakPacer/internal/tg_bot/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// SummarySource provides the device summary counters.
type SummarySource interface {
	Snapshot() models.SummaryCounters
}

// CustomTimeSource provides the custom time confirmed by the device.
type CustomTimeSource interface {
	CustomTime() int
}

// DeviceStatus reports whether the serial link is open.
type DeviceStatus interface {
	Connected() bool
}

// SummaryPlotter draws the counters as a PNG image.
type SummaryPlotter interface {
	Render(counters models.SummaryCounters) ([]byte, error)
}

// SummaryResponse is the body of GET /summary.
type SummaryResponse struct {
	Counters   models.SummaryCounters `json:"counters"`
	Total      int                    `json:"total"`
	CustomTime int                    `json:"customTime"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status          string `json:"status"`
	DeviceConnected bool   `json:"deviceConnected"`
}

// StatusServer serves the health and summary endpoints.
type StatusServer struct {
	server     *http.Server
	summary    SummarySource
	customTime CustomTimeSource
	device     DeviceStatus
	plotter    SummaryPlotter
}

// NewStatusServer creates a server listening on addr.
func NewStatusServer(addr string, summary SummarySource, customTime CustomTimeSource, device DeviceStatus, plotter SummaryPlotter) *StatusServer {
	s := &StatusServer{
		summary:    summary,
		customTime: customTime,
		device:     device,
		plotter:    plotter,
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Router returns the chi router with every status route mounted.
func (s *StatusServer) Router() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(middleware.Logger)
	router.Get("/healthz", s.health)
	router.Get("/summary", s.summaryJSON)
	router.Get("/summary.png", s.summaryPNG)
	return router
}

func (s *StatusServer) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, HealthResponse{Status: "ok", DeviceConnected: s.device.Connected()})
}

func (s *StatusServer) summaryJSON(w http.ResponseWriter, _ *http.Request) {
	counters := s.summary.Snapshot()
	writeJSON(w, SummaryResponse{
		Counters:   counters,
		Total:      counters.Total(),
		CustomTime: s.customTime.CustomTime(),
	})
}

func (s *StatusServer) summaryPNG(w http.ResponseWriter, _ *http.Request) {
	image, err := s.plotter.Render(s.summary.Snapshot())
	if err != nil {
		logrus.WithError(err).Error("Summary chart failed")
		http.Error(w, "summary chart unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if _, err = w.Write(image); err != nil {
		logrus.WithError(err).Warn("Failed to write summary chart")
	}
}

func writeJSON(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.WithError(err).Error("Failed to encode response")
	}
}

// Start serves in the background until Shutdown is called.
func (s *StatusServer) Start() {
	go func() {
		logrus.Infof("Status server listening on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("Status server stopped")
		}
	}()
}

// Shutdown stops the server, waiting for active requests until ctx is done.
func (s *StatusServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
