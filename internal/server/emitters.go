package server

import (
	"time"

	"github.com/sentinelai/sentinel/internal/alerts"
	"github.com/sentinelai/sentinel/internal/realtime"
	"github.com/sentinelai/sentinel/internal/scoring"
)

// realtimeEventEmitter bridges scoring and alert notifications onto the
// WebSocket hub. Payloads are flat maps so the hub's score-based subscription
// filter can inspect them without knowing domain types.
type realtimeEventEmitter struct {
	hub *realtime.Hub
}

func (e *realtimeEventEmitter) ScoreComputed(result *scoring.Result) {
	e.hub.Broadcast(scoreComputedEvent(result))
}

func (e *realtimeEventEmitter) AlertCreated(alert *alerts.Alert) {
	e.hub.Broadcast(alertCreatedEvent(alert))
}

func (e *realtimeEventEmitter) AlertStatusChanged(alert *alerts.Alert, oldStatus alerts.Status, event *alerts.Event) {
	e.hub.Broadcast(alertStatusChangedEvent(alert, oldStatus, event))
}

func scoreComputedEvent(result *scoring.Result) *realtime.Event {
	return &realtime.Event{
		Type: realtime.EventScoreComputed,
		TS:   time.Now().UTC(),
		Data: map[string]any{
			"transaction_id": result.TransactionID,
			"score":          result.Score,
			"risk_level":     string(result.RiskLevel),
			"threshold":      result.Threshold,
			"model_version":  result.ModelVersion,
			"factors":        result.Factors,
		},
	}
}

func alertCreatedEvent(alert *alerts.Alert) *realtime.Event {
	return &realtime.Event{
		Type: realtime.EventAlertCreated,
		TS:   time.Now().UTC(),
		Data: map[string]any{
			"alert_id":       alert.ID,
			"transaction_id": alert.TransactionID,
			"score":          alert.ScoreSnapshot,
			"status":         string(alert.Status),
			"reason":         alert.Reason,
		},
	}
}

func alertStatusChangedEvent(alert *alerts.Alert, oldStatus alerts.Status, event *alerts.Event) *realtime.Event {
	return &realtime.Event{
		Type: realtime.EventAlertStatusChanged,
		TS:   time.Now().UTC(),
		Data: map[string]any{
			"alert_id":       alert.ID,
			"transaction_id": alert.TransactionID,
			"old_status":     string(oldStatus),
			"new_status":     string(alert.Status),
			"actor":          event.Actor,
			"score_snapshot": alert.ScoreSnapshot,
		},
	}
}
