package webhook_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/easeworks/propgen/pkg/models"
	"github.com/easeworks/propgen/pkg/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_Deliver(t *testing.T) {
	t.Parallel()

	var received atomic.Value

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "propgen-webhook/1.0", r.Header.Get("User-Agent"))

		var envelope models.WebhookEnvelope
		require.NoError(t, json.NewDecoder(r.Body).Decode(&envelope))
		received.Store(envelope)

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := webhook.NewNotifier(slog.Default(), 5*time.Second)

	registration := &models.WebhookRegistration{
		ID:  "wh-1",
		URL: server.URL,
	}
	envelope := &models.WebhookEnvelope{
		EventType: "risk_assessment_completed",
		CompanyID: "company-1",
		Result:    map[string]any{"riskAssessmentProcessed": true},
		Timestamp: time.Now().UTC(),
	}

	result := notifier.Deliver(context.Background(), registration, envelope)

	assert.True(t, result.Success)
	assert.Equal(t, "wh-1", result.WebhookID)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Empty(t, result.Error)

	got, ok := received.Load().(models.WebhookEnvelope)
	require.True(t, ok)
	assert.Equal(t, "company-1", got.CompanyID)
	assert.Equal(t, "risk_assessment_completed", got.EventType)
}

func TestNotifier_Deliver_Non2xx(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	notifier := webhook.NewNotifier(slog.Default(), 5*time.Second)

	result := notifier.Deliver(context.Background(), &models.WebhookRegistration{
		ID:  "wh-1",
		URL: server.URL,
	}, &models.WebhookEnvelope{CompanyID: "company-1"})

	assert.False(t, result.Success)
	assert.Equal(t, http.StatusInternalServerError, result.StatusCode)
	assert.NotEmpty(t, result.Error)
}

func TestNotifier_Deliver_Unreachable(t *testing.T) {
	t.Parallel()

	notifier := webhook.NewNotifier(slog.Default(), time.Second)

	result := notifier.Deliver(context.Background(), &models.WebhookRegistration{
		ID:  "wh-1",
		URL: "http://127.0.0.1:1/unreachable",
	}, &models.WebhookEnvelope{CompanyID: "company-1"})

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

// One endpoint failing must not affect deliveries to the others.
func TestNotifier_NotifyAll_IsolatesFailures(t *testing.T) {
	t.Parallel()

	okServer1 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer okServer1.Close()

	failServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failServer.Close()

	okServer2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer okServer2.Close()

	notifier := webhook.NewNotifier(slog.Default(), 5*time.Second)

	registrations := []*models.WebhookRegistration{
		{ID: "wh-1", URL: okServer1.URL},
		{ID: "wh-2", URL: failServer.URL},
		{ID: "wh-3", URL: okServer2.URL},
	}

	results := notifier.NotifyAll(context.Background(), registrations, &models.WebhookEnvelope{CompanyID: "company-1"})

	require.Len(t, results, 3)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.True(t, results[2].Success)
	assert.Equal(t, "wh-2", results[1].WebhookID)
}
