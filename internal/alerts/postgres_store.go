package alerts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// PostgresStore persists alerts and their event trail in Postgres.
//
// The one-alert-per-score invariant is a UNIQUE constraint on
// alerts.risk_score_id. ApplyScore leans on it with ON CONFLICT DO NOTHING:
// when two scorings race, exactly one INSERT lands and the loser re-reads the
// winner's row inside the same transaction.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Postgres-backed store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ApplyScore(ctx context.Context, ref ScoreRef) (*Alert, Outcome, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, OutcomeNone, fmt.Errorf("begin apply score: %w", err)
	}
	defer tx.Rollback()

	alert, outcome, err := s.ApplyScoreTx(ctx, tx, ref)
	if err != nil {
		return nil, OutcomeNone, err
	}
	if err := tx.Commit(); err != nil {
		return nil, OutcomeNone, fmt.Errorf("commit apply score: %w", err)
	}
	return alert, outcome, nil
}

// ApplyScoreTx runs the alert decision inside the caller's transaction, so
// the triggering score write and the alert writes commit or roll back
// together. It never commits or rolls back tx itself.
func (s *PostgresStore) ApplyScoreTx(ctx context.Context, tx *sql.Tx, ref ScoreRef) (*Alert, Outcome, error) {
	existing, err := s.getByScoreID(ctx, tx, ref.RiskScoreID, true)
	if err != nil && !errors.Is(err, ErrAlertNotFound) {
		return nil, OutcomeNone, err
	}

	if existing != nil {
		outcome, err := s.refreshSnapshot(ctx, tx, existing, ref)
		if err != nil {
			return nil, OutcomeNone, err
		}
		return existing, outcome, nil
	}

	if ref.Score < ref.Threshold {
		return nil, OutcomeNone, nil
	}

	alertID := uuid.NewString()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO alerts (id, transaction_id, risk_score_id, score_snapshot, status, reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (risk_score_id) DO NOTHING`,
		alertID, ref.TransactionID, ref.RiskScoreID, ref.Score, StatusToReview, CreationReason)
	if err != nil {
		return nil, OutcomeNone, fmt.Errorf("insert alert: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, OutcomeNone, fmt.Errorf("insert alert: %w", err)
	}
	if inserted == 0 {
		// Lost the creation race. The winner's row is already visible, so
		// re-read it and refresh the snapshot if our score differs.
		winner, err := s.getByScoreID(ctx, tx, ref.RiskScoreID, true)
		if err != nil {
			return nil, OutcomeNone, err
		}
		outcome, err := s.refreshSnapshot(ctx, tx, winner, ref)
		if err != nil {
			return nil, OutcomeNone, err
		}
		return winner, outcome, nil
	}

	if err := s.insertEvent(ctx, tx, &Event{
		AlertID:       alertID,
		EventType:     EventCreated,
		NewStatus:     StatusToReview,
		Message:       CreationReason,
		Actor:         "system",
		CorrelationID: ref.CorrelationID,
	}); err != nil {
		return nil, OutcomeNone, err
	}

	created, err := s.getByID(ctx, tx, alertID)
	if err != nil {
		return nil, OutcomeNone, err
	}
	return created, OutcomeCreated, nil
}

// refreshSnapshot updates an existing alert's score snapshot in place and
// appends a SCORE_UPDATED event. Status is never touched here. The passed
// alert is mutated to reflect the new snapshot.
func (s *PostgresStore) refreshSnapshot(ctx context.Context, tx *sql.Tx, alert *Alert, ref ScoreRef) (Outcome, error) {
	if alert.ScoreSnapshot == ref.Score {
		return OutcomeUnchanged, nil
	}

	old := alert.ScoreSnapshot
	err := tx.QueryRowContext(ctx, `
		UPDATE alerts SET score_snapshot = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		alert.ID, ref.Score,
	).Scan(&alert.UpdatedAt)
	if err != nil {
		return OutcomeNone, fmt.Errorf("update score snapshot: %w", err)
	}
	alert.ScoreSnapshot = ref.Score

	if err := s.insertEvent(ctx, tx, &Event{
		AlertID:       alert.ID,
		EventType:     EventScoreUpdated,
		Message:       fmt.Sprintf("score_snapshot: %d -> %d", old, ref.Score),
		Actor:         "system",
		CorrelationID: ref.CorrelationID,
	}); err != nil {
		return OutcomeNone, err
	}
	return OutcomeUpdated, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, alertID string, change StatusChange) (*Alert, *Event, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin status update: %w", err)
	}
	defer tx.Rollback()

	alert, err := s.getByIDForUpdate(ctx, tx, alertID)
	if err != nil {
		return nil, nil, err
	}
	old := alert.Status

	err = tx.QueryRowContext(ctx, `
		UPDATE alerts SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		alertID, change.NewStatus,
	).Scan(&alert.UpdatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("update alert status: %w", err)
	}
	alert.Status = change.NewStatus

	event := &Event{
		AlertID:       alertID,
		EventType:     EventStatusChange,
		OldStatus:     old,
		NewStatus:     change.NewStatus,
		Message:       change.Comment,
		Actor:         change.Actor,
		CorrelationID: change.CorrelationID,
	}
	if err := s.insertEvent(ctx, tx, event); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit status update: %w", err)
	}
	return alert, event, nil
}

func (s *PostgresStore) Get(ctx context.Context, alertID string) (*Alert, error) {
	return s.getByID(ctx, s.db, alertID)
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]*Alert, int, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}
	if filter.MinScore > 0 {
		args = append(args, filter.MinScore)
		where = append(where, "score_snapshot >= $"+strconv.Itoa(len(args)))
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM alerts"+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count alerts: %w", err)
	}

	order := " ORDER BY created_at DESC"
	switch {
	case filter.SortBy == "priority":
		order = " ORDER BY score_snapshot DESC, created_at DESC"
	case filter.Order == "asc":
		order = " ORDER BY created_at ASC"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	args = append(args, limit, filter.Offset)
	query := `
		SELECT id, transaction_id, risk_score_id, score_snapshot, status, reason, created_at, updated_at
		FROM alerts` + cond + order +
		" LIMIT $" + strconv.Itoa(len(args)-1) + " OFFSET $" + strconv.Itoa(len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	alerts := []*Alert{}
	for rows.Next() {
		a := &Alert{}
		if err := rows.Scan(&a.ID, &a.TransactionID, &a.RiskScoreID, &a.ScoreSnapshot,
			&a.Status, &a.Reason, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, total, rows.Err()
}

func (s *PostgresStore) ListEvents(ctx context.Context, alertID string) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, alert_id, event_type,
		       COALESCE(old_status, ''), COALESCE(new_status, ''),
		       COALESCE(message, ''), actor, COALESCE(correlation_id, ''), created_at
		FROM alert_events
		WHERE alert_id = $1
		ORDER BY created_at ASC, id ASC`,
		alertID)
	if err != nil {
		return nil, fmt.Errorf("list alert events: %w", err)
	}
	defer rows.Close()

	events := []*Event{}
	for rows.Next() {
		e := &Event{}
		if err := rows.Scan(&e.ID, &e.AlertID, &e.EventType, &e.OldStatus, &e.NewStatus,
			&e.Message, &e.Actor, &e.CorrelationID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// querier lets the single-row readers run against both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) getByID(ctx context.Context, q querier, alertID string) (*Alert, error) {
	return scanAlert(q.QueryRowContext(ctx, `
		SELECT id, transaction_id, risk_score_id, score_snapshot, status, reason, created_at, updated_at
		FROM alerts
		WHERE id = $1`,
		alertID))
}

func (s *PostgresStore) getByIDForUpdate(ctx context.Context, tx *sql.Tx, alertID string) (*Alert, error) {
	return scanAlert(tx.QueryRowContext(ctx, `
		SELECT id, transaction_id, risk_score_id, score_snapshot, status, reason, created_at, updated_at
		FROM alerts
		WHERE id = $1
		FOR UPDATE`,
		alertID))
}

// getByScoreID reads the alert for a risk score. With forUpdate set the row is
// locked so a concurrent snapshot refresh serializes behind us.
func (s *PostgresStore) getByScoreID(ctx context.Context, tx *sql.Tx, riskScoreID string, forUpdate bool) (*Alert, error) {
	query := `
		SELECT id, transaction_id, risk_score_id, score_snapshot, status, reason, created_at, updated_at
		FROM alerts
		WHERE risk_score_id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}
	return scanAlert(tx.QueryRowContext(ctx, query, riskScoreID))
}

func scanAlert(row *sql.Row) (*Alert, error) {
	a := &Alert{}
	err := row.Scan(&a.ID, &a.TransactionID, &a.RiskScoreID, &a.ScoreSnapshot,
		&a.Status, &a.Reason, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAlertNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan alert: %w", err)
	}
	return a, nil
}

// insertEvent writes the event and fills in its generated ID and timestamp,
// so callers hand back the same value the memory store would.
func (s *PostgresStore) insertEvent(ctx context.Context, tx *sql.Tx, e *Event) error {
	e.ID = uuid.NewString()
	err := tx.QueryRowContext(ctx, `
		INSERT INTO alert_events (id, alert_id, event_type, old_status, new_status, message, actor, correlation_id, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7, NULLIF($8, ''), NOW())
		RETURNING created_at`,
		e.ID, e.AlertID, e.EventType,
		string(e.OldStatus), string(e.NewStatus), e.Message, e.Actor, e.CorrelationID,
	).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert alert event: %w", err)
	}
	return nil
}
