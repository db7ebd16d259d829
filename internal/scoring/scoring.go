// Package scoring implements the fraud-risk scoring pipeline.
//
// Every transaction is scored by a deterministic rule engine; when a trained
// model artifact is available its score is fused in conservatively — the
// final score is the max of both, so the model can reinforce but never
// suppress a rule-detected signal. One scoring result exists per transaction
// (upsert semantics): rescoring overwrites, it does not version.
package scoring

import (
	"context"
	"errors"
	"time"

	"github.com/sentinelai/sentinel/internal/features"
)

// RulesBaselineVersion is the model_version recorded when no model fired.
const RulesBaselineVersion = "rules_v1"

// RiskLevel buckets a 0-100 score for display and filtering.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// RiskLevelFor maps a final score to its level.
func RiskLevelFor(score int) RiskLevel {
	switch {
	case score >= 70:
		return RiskHigh
	case score >= 40:
		return RiskMedium
	default:
		return RiskLow
	}
}

var ErrScoreNotFound = errors.New("risk score not found")

// RiskScore is the persisted scoring result for one transaction.
type RiskScore struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transaction_id"`
	Score         int       `json:"score"`
	ModelVersion  string    `json:"model_version"`
	Payload       *Payload  `json:"payload,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Payload is the audit snapshot stored alongside the score: the exact
// feature inputs, the factors shown to analysts, and both the rule floor and
// the fused final score.
type Payload struct {
	Inputs     *features.Set `json:"inputs"`
	Factors    []string      `json:"factors"`
	RiskLevel  RiskLevel     `json:"risk_level"`
	RulesScore int           `json:"rules_score"`
	FinalScore int           `json:"final_score"`
}

// Store persists scoring results with upsert-by-transaction semantics.
type Store interface {
	// Upsert writes the score for rs.TransactionID, overwriting any
	// previous result. The returned row carries the authoritative ID —
	// on conflict the existing row's ID survives.
	Upsert(ctx context.Context, rs *RiskScore) (*RiskScore, error)

	GetByTransaction(ctx context.Context, transactionID string) (*RiskScore, error)
}
