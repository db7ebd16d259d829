package scoring

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// PostgresStore persists scoring results in Postgres. One row per transaction,
// enforced by a unique constraint on transaction_id.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Postgres-backed store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Upsert(ctx context.Context, rs *RiskScore) (*RiskScore, error) {
	return upsertRiskScore(ctx, s.db, rs)
}

// rowQuerier lets the upsert run against both *sql.DB and *sql.Tx.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func upsertRiskScore(ctx context.Context, q rowQuerier, rs *RiskScore) (*RiskScore, error) {
	payload, err := json.Marshal(rs.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal score payload: %w", err)
	}

	id := rs.ID
	if id == "" {
		id = uuid.NewString()
	}

	out := &RiskScore{TransactionID: rs.TransactionID}
	var rawPayload []byte
	err = q.QueryRowContext(ctx, `
		INSERT INTO risk_scores (id, transaction_id, score, model_version, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (transaction_id) DO UPDATE
		SET score = EXCLUDED.score,
		    model_version = EXCLUDED.model_version,
		    payload = EXCLUDED.payload,
		    created_at = NOW()
		RETURNING id, score, model_version, payload, created_at`,
		id, rs.TransactionID, rs.Score, rs.ModelVersion, payload,
	).Scan(&out.ID, &out.Score, &out.ModelVersion, &rawPayload, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert risk score: %w", err)
	}

	if len(rawPayload) > 0 {
		var p Payload
		if err := json.Unmarshal(rawPayload, &p); err == nil {
			out.Payload = &p
		}
	}
	return out, nil
}

func (s *PostgresStore) GetByTransaction(ctx context.Context, transactionID string) (*RiskScore, error) {
	out := &RiskScore{}
	var rawPayload []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, transaction_id, score, model_version, payload, created_at
		FROM risk_scores
		WHERE transaction_id = $1`,
		transactionID,
	).Scan(&out.ID, &out.TransactionID, &out.Score, &out.ModelVersion, &rawPayload, &out.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrScoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get risk score: %w", err)
	}

	if len(rawPayload) > 0 {
		var p Payload
		if err := json.Unmarshal(rawPayload, &p); err == nil {
			out.Payload = &p
		}
	}
	return out, nil
}
