package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pvewatch/pvewatch/pkg/logger"
)

func TestSendWithoutChannelsIsNoOp(t *testing.T) {
	service := NewService(logger.NewDefault())
	assert.False(t, service.Enabled())
	require.NoError(t, service.Send(context.Background(), Notification{
		Title:    "CPU alert: pve1",
		Body:     "CPU usage on pve1 is 91.0% (threshold 80%)",
		Severity: SeverityCritical,
	}))
}

func TestWebhookChannelDelivers(t *testing.T) {
	var received webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	service := NewService(logger.NewDefault(), NewWebhookChannel(server.URL))
	require.NoError(t, service.Send(context.Background(), Notification{
		Title:    "Workload stopped: web",
		Body:     "Workload web (pve1/100) changed from running to stopped",
		Severity: SeverityWarning,
	}))

	assert.Equal(t, "Workload stopped: web", received.Title)
	assert.Equal(t, "warning", received.Severity)
	assert.Equal(t, "#ffc107", received.Color)
	assert.NotEmpty(t, received.ID)
	assert.NotEmpty(t, received.Timestamp)
}

func TestWebhookChannelRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	service := NewService(logger.NewDefault(), NewWebhookChannel(server.URL))
	err := service.Send(context.Background(), Notification{Title: "t", Severity: SeverityInfo})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook")
}

func TestSendAttemptsAllChannels(t *testing.T) {
	var calls int
	okServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer okServer.Close()
	badServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer badServer.Close()

	service := NewService(logger.NewDefault(),
		NewWebhookChannel(badServer.URL),
		NewWebhookChannel(okServer.URL))

	err := service.Send(context.Background(), Notification{Title: "t", Severity: SeverityInfo})
	require.Error(t, err)
	// The healthy channel still got the message
	assert.Equal(t, 1, calls)
}

func TestSeverityColors(t *testing.T) {
	assert.Equal(t, "#28a745", SeverityGood.Color())
	assert.Equal(t, "#ffc107", SeverityWarning.Color())
	assert.Equal(t, "#dc3545", SeverityCritical.Color())
	assert.Equal(t, "#17a2b8", SeverityInfo.Color())
}
