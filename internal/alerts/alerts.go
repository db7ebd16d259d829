// Package alerts manages the lifecycle of fraud alerts.
//
// An alert is born from a scoring result that crossed the threshold and then
// lives as a case worked by analysts. Rescoring only ever refreshes the score
// snapshot — it never changes status, and it never closes an alert, even when
// the score drops back under the threshold: a case a human may be
// investigating is not buried silently.
//
// Every state-affecting action appends exactly one immutable AlertEvent, so
// the event stream is a complete audit trail; the alert row caches current
// status for O(1) reads.
package alerts

import (
	"context"
	"errors"
	"time"
)

// Status is an alert's position in the review workflow.
type Status string

const (
	StatusToReview           Status = "TO_REVIEW"
	StatusUnderInvestigation Status = "UNDER_INVESTIGATION"
	StatusClosed             Status = "CLOSED"
)

// ValidStatus reports whether s is a known workflow status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusToReview, StatusUnderInvestigation, StatusClosed:
		return true
	}
	return false
}

// Event types recorded in the audit trail.
const (
	EventCreated      = "CREATED"
	EventScoreUpdated = "SCORE_UPDATED"
	EventStatusChange = "STATUS_CHANGE"
)

var (
	ErrAlertNotFound   = errors.New("alert not found")
	ErrInvalidStatus   = errors.New("invalid alert status")
	ErrCommentRequired = errors.New("comment is required when closing an alert")
)

// Alert is a fraud case tied to exactly one scoring result.
type Alert struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transaction_id"`
	RiskScoreID   string    `json:"risk_score_id"`
	ScoreSnapshot int       `json:"score_snapshot"`
	Status        Status    `json:"status"`
	Reason        string    `json:"reason"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Event is one immutable audit record. OldStatus is empty for CREATED.
type Event struct {
	ID            string    `json:"id"`
	AlertID       string    `json:"alert_id"`
	EventType     string    `json:"event_type"`
	OldStatus     Status    `json:"old_status,omitempty"`
	NewStatus     Status    `json:"new_status,omitempty"`
	Message       string    `json:"message,omitempty"`
	Actor         string    `json:"actor,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Outcome describes what ApplyScore did.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"   // new alert raised
	OutcomeUpdated   Outcome = "updated"   // snapshot refreshed on existing alert
	OutcomeUnchanged Outcome = "unchanged" // alert exists, score identical
	OutcomeNone      Outcome = "none"      // below threshold, nothing done
)

// ScoreRef carries the committed scoring result into the alert decision.
type ScoreRef struct {
	TransactionID string
	RiskScoreID   string
	Score         int
	Threshold     int
	CorrelationID string
}

// StatusChange is an explicit, authenticated workflow action.
type StatusChange struct {
	NewStatus     Status
	Comment       string
	Actor         string
	CorrelationID string
}

// ListFilter narrows List results. Handlers always set Limit; stores treat a
// zero or negative Limit as "large" rather than "none".
type ListFilter struct {
	Status   Status // empty = all
	MinScore int    // 0 = all
	SortBy   string // "priority" (score desc, then date desc) or "date"
	Order    string // "asc" | "desc", date sort only
	Offset   int
	Limit    int
}

// Store persists alerts and their event trail.
//
// ApplyScore and UpdateStatus must each be atomic: the alert row and its
// event land together or not at all. Implementations must enforce at most
// one alert per risk score — in Postgres that is a UNIQUE constraint on
// risk_score_id, not an application-level check, so two concurrent scorings
// of the same transaction cannot both create an alert.
type Store interface {
	// ApplyScore creates the alert for ref (TO_REVIEW + CREATED event)
	// when ref.Score >= ref.Threshold and none exists; refreshes the
	// snapshot (+ SCORE_UPDATED event) when one exists and the score
	// changed; does nothing below threshold. The loser of a concurrent
	// creation race must re-read and return the winner's row.
	ApplyScore(ctx context.Context, ref ScoreRef) (*Alert, Outcome, error)

	// UpdateStatus applies an explicit transition: updates status and
	// updated_at and appends one STATUS_CHANGE event atomically. The
	// returned event records the status the alert actually transitioned
	// from, as observed inside the write.
	UpdateStatus(ctx context.Context, alertID string, change StatusChange) (*Alert, *Event, error)

	Get(ctx context.Context, alertID string) (*Alert, error)
	List(ctx context.Context, filter ListFilter) ([]*Alert, int, error)

	// ListEvents returns the full trail for an alert in chronological
	// order.
	ListEvents(ctx context.Context, alertID string) ([]*Event, error)
}
