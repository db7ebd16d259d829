//go:build integration

package scoring

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelai/sentinel/internal/alerts"
	"github.com/sentinelai/sentinel/internal/testutil"
)

func seedTransaction(t *testing.T, db *sql.DB, id string) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO transactions (id, occurred_at, created_at, amount, currency, merchant_name, merchant_category, zone, channel, is_online, description)
		VALUES ($1, $2, NOW(), 250.0, 'EUR', 'TechWorld', 'electronics', '', 'web', TRUE, '')`,
		id, time.Date(2026, 3, 14, 3, 0, 0, 0, time.UTC))
	require.NoError(t, err)
}

func TestPostgresScores_UpsertAndGet(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()
	seedTransaction(t, db, "tx-1")

	first, err := store.Upsert(ctx, &RiskScore{
		TransactionID: "tx-1",
		Score:         85,
		ModelVersion:  RulesBaselineVersion,
		Payload: &Payload{
			Factors:    []string{"Very high amount (>= 200)"},
			RiskLevel:  RiskHigh,
			RulesScore: 85,
			FinalScore: 85,
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, 85, first.Score)

	got, err := store.GetByTransaction(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	require.NotNil(t, got.Payload)
	assert.Equal(t, 85, got.Payload.FinalScore)
	assert.Equal(t, RiskHigh, got.Payload.RiskLevel)
}

func TestPostgresScores_UpsertKeepsRowID(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()
	seedTransaction(t, db, "tx-1")

	first, err := store.Upsert(ctx, &RiskScore{TransactionID: "tx-1", Score: 85, ModelVersion: RulesBaselineVersion})
	require.NoError(t, err)

	second, err := store.Upsert(ctx, &RiskScore{TransactionID: "tx-1", Score: 40, ModelVersion: "logreg_v2"})
	require.NoError(t, err)

	// Rescoring overwrites in place; the row identity survives.
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 40, second.Score)
	assert.Equal(t, "logreg_v2", second.ModelVersion)
}

func TestPostgresCommitter_ScoreAndAlertLandTogether(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	committer := NewPostgresCommitter(db)
	ctx := context.Background()
	seedTransaction(t, db, "tx-1")

	alert, outcome, err := committer.Commit(ctx, &RiskScore{
		TransactionID: "tx-1",
		Score:         85,
		ModelVersion:  RulesBaselineVersion,
	}, 70, "req-1")
	require.NoError(t, err)
	require.Equal(t, alerts.OutcomeCreated, outcome)
	require.NotNil(t, alert)

	// One commit produced both rows, and they reference each other.
	stored, err := store.GetByTransaction(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, stored.ID, alert.RiskScoreID)
	assert.Equal(t, 85, alert.ScoreSnapshot)

	// Rescoring below the threshold still commits the score and only
	// refreshes the alert snapshot.
	updated, outcome, err := committer.Commit(ctx, &RiskScore{
		TransactionID: "tx-1",
		Score:         40,
		ModelVersion:  RulesBaselineVersion,
	}, 70, "req-2")
	require.NoError(t, err)
	assert.Equal(t, alerts.OutcomeUpdated, outcome)
	assert.Equal(t, 40, updated.ScoreSnapshot)

	stored, err = store.GetByTransaction(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, 40, stored.Score)
}

func TestPostgresCommitter_BelowThresholdCommitsScoreOnly(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	committer := NewPostgresCommitter(db)
	ctx := context.Background()
	seedTransaction(t, db, "tx-1")

	alert, outcome, err := committer.Commit(ctx, &RiskScore{
		TransactionID: "tx-1",
		Score:         30,
		ModelVersion:  RulesBaselineVersion,
	}, 70, "req-1")
	require.NoError(t, err)
	assert.Equal(t, alerts.OutcomeNone, outcome)
	assert.Nil(t, alert)

	stored, err := store.GetByTransaction(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, 30, stored.Score)
}

func TestPostgresScores_GetMissing(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	_, err := store.GetByTransaction(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrScoreNotFound)
}
