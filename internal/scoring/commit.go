package scoring

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/sentinelai/sentinel/internal/alerts"
)

// Committer persists a scoring result and the alert decision it triggers as
// one atomic step. A score row without its alert decision (or the reverse)
// must never be observable, even when one of the writes fails.
type Committer interface {
	Commit(ctx context.Context, rs *RiskScore, threshold int, correlationID string) (*alerts.Alert, alerts.Outcome, error)
}

// PostgresCommitter runs the risk-score upsert and the alert decision inside
// a single database transaction.
type PostgresCommitter struct {
	db     *sql.DB
	alerts *alerts.PostgresStore
}

// NewPostgresCommitter creates a committer over the given database.
func NewPostgresCommitter(db *sql.DB) *PostgresCommitter {
	return &PostgresCommitter{db: db, alerts: alerts.NewPostgresStore(db)}
}

func (c *PostgresCommitter) Commit(ctx context.Context, rs *RiskScore, threshold int, correlationID string) (*alerts.Alert, alerts.Outcome, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, alerts.OutcomeNone, fmt.Errorf("begin scoring commit: %w", err)
	}
	defer tx.Rollback()

	stored, err := upsertRiskScore(ctx, tx, rs)
	if err != nil {
		return nil, alerts.OutcomeNone, err
	}

	// The upsert holds the risk_scores row lock until commit, so concurrent
	// scorings of the same transaction serialize here and each one sees a
	// consistent score/alert pair.
	alert, outcome, err := c.alerts.ApplyScoreTx(ctx, tx, alerts.ScoreRef{
		TransactionID: rs.TransactionID,
		RiskScoreID:   stored.ID,
		Score:         rs.Score,
		Threshold:     threshold,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, alerts.OutcomeNone, err
	}

	if err := tx.Commit(); err != nil {
		return nil, alerts.OutcomeNone, fmt.Errorf("commit scoring result: %w", err)
	}
	return alert, outcome, nil
}

// MemoryCommitter gives the in-memory stores the same all-or-nothing
// contract. Commits serialize on one mutex; a failed alert decision unwinds
// the score upsert before the error surfaces.
type MemoryCommitter struct {
	mu     sync.Mutex
	scores *MemoryStore
	alerts alerts.Store
}

// NewMemoryCommitter creates a committer over in-memory stores.
func NewMemoryCommitter(scores *MemoryStore, alertStore alerts.Store) *MemoryCommitter {
	return &MemoryCommitter{scores: scores, alerts: alertStore}
}

func (c *MemoryCommitter) Commit(ctx context.Context, rs *RiskScore, threshold int, correlationID string) (*alerts.Alert, alerts.Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev, err := c.scores.GetByTransaction(ctx, rs.TransactionID)
	if err != nil && !errors.Is(err, ErrScoreNotFound) {
		return nil, alerts.OutcomeNone, err
	}

	stored, err := c.scores.Upsert(ctx, rs)
	if err != nil {
		return nil, alerts.OutcomeNone, err
	}

	alert, outcome, err := c.alerts.ApplyScore(ctx, alerts.ScoreRef{
		TransactionID: rs.TransactionID,
		RiskScoreID:   stored.ID,
		Score:         rs.Score,
		Threshold:     threshold,
		CorrelationID: correlationID,
	})
	if err != nil {
		c.scores.restore(rs.TransactionID, prev)
		return nil, alerts.OutcomeNone, err
	}
	return alert, outcome, nil
}
