package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DenisKhanov/PeakPacer/internal/tg_bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendSummaryEmail(t *testing.T) {
	var requests int
	var body map[string]json.RawMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/email_messages", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "user", user)
		assert.Equal(t, "secret", pass)

		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &body))
		_, _ = w.Write([]byte(`{"id":"ep_1"}`))
	}))
	defer server.Close()

	counters := models.SummaryCounters{
		models.CategoryGreen:  2,
		models.CategoryYellow: 0,
		models.CategoryRed:    1,
		models.CategoryCustom: 0,
	}
	waypoint := NewWaypointAPI(server.URL+"/v1/email_messages", "user", "secret")

	require.NoError(t, waypoint.SendSummaryEmail("wptemplate_1", "runner@example.com", counters))

	assert.Equal(t, 1, requests)
	assert.JSONEq(t, `"wptemplate_1"`, string(body["templateId"]))
	assert.JSONEq(t, `"runner@example.com"`, string(body["to"]))
	assert.JSONEq(t, `{"Green":2,"Yellow":0,"Red":1,"Custom":0}`, string(body["variables"]))
}

func TestSendSummaryEmailErrorStatus(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad credentials"}`))
	}))
	defer server.Close()

	waypoint := NewWaypointAPI(server.URL, "user", "wrong")
	err := waypoint.SendSummaryEmail("t", "r", models.SummaryCounters{})

	assert.ErrorContains(t, err, "401")
	assert.Equal(t, 1, requests, "no retry")
}

func TestSendSummaryEmailTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	err := NewWaypointAPI(endpoint, "u", "p").SendSummaryEmail("t", "r", models.SummaryCounters{})

	assert.Error(t, err)
}
