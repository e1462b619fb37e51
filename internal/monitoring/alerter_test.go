package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SM97490/agent-produits-distrisku/internal/config"
)

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold: 0.10,
		MinValidationRate:    80,
	})

	snap := &Snapshot{
		RunsTotal:         20,
		RunsComplete:      19,
		RunsFailed:        1,
		FailRate:          0.05,
		AvgValidationRate: 92,
		LookbackHours:     24,
	}

	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_FailureRate(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.10})

	snap := &Snapshot{
		RunsTotal:     20,
		RunsComplete:  12,
		RunsFailed:    8,
		FailRate:      0.4,
		LookbackHours: 24,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertRunFailureRate, alerts[0].Type)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "40.0%")
	assert.Equal(t, 20, alerts[0].Details["finished"])
}

func TestAlerter_Evaluate_LowValidationRate(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.5, MinValidationRate: 80})

	snap := &Snapshot{
		RunsComplete:      3,
		AvgValidationRate: 62.5,
		RowsProcessed:     120,
		LookbackHours:     24,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertLowValidationRate, alerts[0].Type)
	assert.Equal(t, "medium", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "62.5%")
}

func TestAlerter_Evaluate_MultipleAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.10, MinValidationRate: 80})

	snap := &Snapshot{
		RunsComplete:      5,
		RunsFailed:        5,
		FailRate:          0.5,
		AvgValidationRate: 40,
		LookbackHours:     24,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 2)
	assert.Equal(t, AlertRunFailureRate, alerts[0].Type)
	assert.Equal(t, AlertLowValidationRate, alerts[1].Type)
}

func TestAlerter_Evaluate_MinimumRunsRequired(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.10})

	// Three finished runs are below the minimum for a failure rate alert.
	snap := &Snapshot{
		RunsTotal:     3,
		RunsComplete:  1,
		RunsFailed:    2,
		FailRate:      0.666,
		LookbackHours: 24,
	}

	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_ValidationRateDisabled(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 1})

	assert.Empty(t, a.Evaluate(&Snapshot{RunsComplete: 4, AvgValidationRate: 10}))
}

func TestAlerter_Evaluate_NoRatedRuns(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 1, MinValidationRate: 80})

	assert.Empty(t, a.Evaluate(&Snapshot{RunsRunning: 2}))
}

func TestAlerter_SendAlerts_Webhook(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var alert Alert
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&alert))
		assert.NotEmpty(t, alert.Type)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})

	alerts := []Alert{
		{Type: AlertRunFailureRate, Severity: "high", Message: "test alert 1"},
		{Type: AlertLowValidationRate, Severity: "medium", Message: "test alert 2"},
	}

	sent := a.SendAlerts(context.Background(), alerts)
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_EmptyURL(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})

	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertRunFailureRate, Message: "test"}})
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_EmptyAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{WebhookURL: "http://example.com"})

	assert.Equal(t, 0, a.SendAlerts(context.Background(), nil))
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})

	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertRunFailureRate, Message: "test"}})
	assert.Equal(t, 0, sent)
}
