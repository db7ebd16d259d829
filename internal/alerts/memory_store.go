package alerts

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for development and tests. The single
// mutex gives it the same atomicity guarantees the Postgres store gets from
// transactions and the unique risk_score_id constraint.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*Alert
	byScore map[string]string // risk_score_id -> alert_id
	events  map[string][]*Event
	ordered []string // alert IDs in creation order
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*Alert),
		byScore: make(map[string]string),
		events:  make(map[string][]*Event),
	}
}

func (s *MemoryStore) ApplyScore(ctx context.Context, ref ScoreRef) (*Alert, Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()

	if id, ok := s.byScore[ref.RiskScoreID]; ok {
		alert := s.byID[id]
		if alert.ScoreSnapshot == ref.Score {
			out := *alert
			return &out, OutcomeUnchanged, nil
		}
		old := alert.ScoreSnapshot
		alert.ScoreSnapshot = ref.Score
		alert.UpdatedAt = now
		s.appendEvent(&Event{
			AlertID:       alert.ID,
			EventType:     EventScoreUpdated,
			Message:       fmt.Sprintf("score_snapshot: %d -> %d", old, ref.Score),
			Actor:         "system",
			CorrelationID: ref.CorrelationID,
			CreatedAt:     now,
		})
		out := *alert
		return &out, OutcomeUpdated, nil
	}

	if ref.Score < ref.Threshold {
		return nil, OutcomeNone, nil
	}

	alert := &Alert{
		ID:            uuid.NewString(),
		TransactionID: ref.TransactionID,
		RiskScoreID:   ref.RiskScoreID,
		ScoreSnapshot: ref.Score,
		Status:        StatusToReview,
		Reason:        CreationReason,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.byID[alert.ID] = alert
	s.byScore[ref.RiskScoreID] = alert.ID
	s.ordered = append(s.ordered, alert.ID)
	s.appendEvent(&Event{
		AlertID:       alert.ID,
		EventType:     EventCreated,
		NewStatus:     StatusToReview,
		Message:       CreationReason,
		Actor:         "system",
		CorrelationID: ref.CorrelationID,
		CreatedAt:     now,
	})

	out := *alert
	return &out, OutcomeCreated, nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, alertID string, change StatusChange) (*Alert, *Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	alert, ok := s.byID[alertID]
	if !ok {
		return nil, nil, ErrAlertNotFound
	}

	now := time.Now().UTC()
	old := alert.Status
	alert.Status = change.NewStatus
	alert.UpdatedAt = now

	event := &Event{
		AlertID:       alertID,
		EventType:     EventStatusChange,
		OldStatus:     old,
		NewStatus:     change.NewStatus,
		Message:       change.Comment,
		Actor:         change.Actor,
		CorrelationID: change.CorrelationID,
		CreatedAt:     now,
	}
	s.appendEvent(event)

	outAlert := *alert
	outEvent := *event
	return &outAlert, &outEvent, nil
}

func (s *MemoryStore) Get(ctx context.Context, alertID string) (*Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	alert, ok := s.byID[alertID]
	if !ok {
		return nil, ErrAlertNotFound
	}
	out := *alert
	return &out, nil
}

func (s *MemoryStore) List(ctx context.Context, filter ListFilter) ([]*Alert, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*Alert, 0, len(s.ordered))
	for _, id := range s.ordered {
		a := s.byID[id]
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.MinScore > 0 && a.ScoreSnapshot < filter.MinScore {
			continue
		}
		c := *a
		matched = append(matched, &c)
	}

	sortAlerts(matched, filter)
	total := len(matched)

	if filter.Offset >= total {
		return []*Alert{}, total, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (s *MemoryStore) ListEvents(ctx context.Context, alertID string) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.events[alertID]
	out := make([]*Event, len(events))
	for i, e := range events {
		c := *e
		out[i] = &c
	}
	return out, nil
}

// appendEvent assigns an ID and stores the event. Caller holds the lock.
func (s *MemoryStore) appendEvent(e *Event) {
	e.ID = uuid.NewString()
	s.events[e.AlertID] = append(s.events[e.AlertID], e)
}

func sortAlerts(alerts []*Alert, filter ListFilter) {
	switch filter.SortBy {
	case "priority":
		sort.SliceStable(alerts, func(i, j int) bool {
			if alerts[i].ScoreSnapshot != alerts[j].ScoreSnapshot {
				return alerts[i].ScoreSnapshot > alerts[j].ScoreSnapshot
			}
			return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
		})
	default:
		asc := filter.Order == "asc"
		sort.SliceStable(alerts, func(i, j int) bool {
			if asc {
				return alerts[i].CreatedAt.Before(alerts[j].CreatedAt)
			}
			return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
		})
	}
}
