package alerts

import (
	"context"
	"fmt"
	"strings"

	"github.com/sentinelai/sentinel/internal/logging"
	"github.com/sentinelai/sentinel/internal/metrics"
	"github.com/sentinelai/sentinel/internal/traces"
)

// CreationReason is recorded on every alert raised by the scoring pipeline.
const CreationReason = "High score detected"

// Emitter publishes lifecycle notifications after the change is committed.
type Emitter interface {
	AlertStatusChanged(alert *Alert, oldStatus Status, event *Event)
}

// Manager enforces workflow rules on top of a Store and publishes lifecycle
// notifications. Persistence-level invariants (one alert per score, atomic
// event append) live in the Store; the scoring pipeline writes alerts through
// its own commit path. The Manager owns the human-facing rules.
type Manager struct {
	store   Store
	emitter Emitter
}

// NewManager creates an alert manager over the given store.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// WithEmitter attaches a notification emitter.
func (m *Manager) WithEmitter(e Emitter) *Manager {
	m.emitter = e
	return m
}

// UpdateStatus applies an explicit workflow transition.
//
// Closing requires a non-blank comment; the validation happens before any
// write, so a rejected close leaves no trace in the event trail. Reopening a
// closed alert is allowed: analysts do change their minds, and the trail
// records it either way.
func (m *Manager) UpdateStatus(ctx context.Context, alertID string, change StatusChange) (*Alert, error) {
	ctx, span := traces.StartSpan(ctx, "alerts.UpdateStatus", traces.AlertID(alertID))
	defer span.End()

	if !ValidStatus(change.NewStatus) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, change.NewStatus)
	}
	if change.NewStatus == StatusClosed && strings.TrimSpace(change.Comment) == "" {
		return nil, ErrCommentRequired
	}
	if change.Actor == "" {
		change.Actor = "system"
	}

	alert, event, err := m.store.UpdateStatus(ctx, alertID, change)
	if err != nil {
		return nil, err
	}

	metrics.AlertStatusTransitionsTotal.WithLabelValues(string(change.NewStatus)).Inc()
	logging.L(ctx).Info("alert status changed",
		"alert_id", alertID,
		"old_status", event.OldStatus,
		"new_status", change.NewStatus,
		"actor", change.Actor)

	if m.emitter != nil {
		m.emitter.AlertStatusChanged(alert, event.OldStatus, event)
	}
	return alert, nil
}

// Get returns one alert.
func (m *Manager) Get(ctx context.Context, alertID string) (*Alert, error) {
	return m.store.Get(ctx, alertID)
}

// List returns alerts matching the filter plus the unpaginated total.
func (m *Manager) List(ctx context.Context, filter ListFilter) ([]*Alert, int, error) {
	return m.store.List(ctx, filter)
}

// ListEvents returns an alert's audit trail, oldest first.
func (m *Manager) ListEvents(ctx context.Context, alertID string) ([]*Event, error) {
	if _, err := m.store.Get(ctx, alertID); err != nil {
		return nil, err
	}
	return m.store.ListEvents(ctx, alertID)
}
