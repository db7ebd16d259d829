package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/sentinelai/sentinel/internal/alerts"
	"github.com/sentinelai/sentinel/internal/features"
	"github.com/sentinelai/sentinel/internal/logging"
	"github.com/sentinelai/sentinel/internal/metrics"
	"github.com/sentinelai/sentinel/internal/ml"
	"github.com/sentinelai/sentinel/internal/traces"
	"github.com/sentinelai/sentinel/internal/transactions"
)

// Emitter publishes scoring notifications. Emission happens strictly after
// persistence, so a received event always refers to durable state.
type Emitter interface {
	ScoreComputed(result *Result)
	AlertCreated(alert *alerts.Alert)
}

// Result is the outcome of one scoring run.
type Result struct {
	TransactionID string        `json:"transaction_id"`
	Score         int           `json:"score"`
	RiskLevel     RiskLevel     `json:"risk_level"`
	Factors       []string      `json:"factors"`
	ModelVersion  string        `json:"model_version"`
	Threshold     int           `json:"threshold"`
	Alert         *alerts.Alert `json:"alert,omitempty"`
}

// Service runs the scoring pipeline: features, rules, optional model, fusion,
// persistence, alert decision, notification.
type Service struct {
	txStore   transactions.Store
	builder   *features.Builder
	rules     *RuleScorer
	model     ml.Scorer
	committer Committer
	emitter   Emitter
	threshold int
}

// NewService wires the scoring pipeline. model may be nil (rules-only).
func NewService(txStore transactions.Store, builder *features.Builder, rules *RuleScorer,
	model ml.Scorer, committer Committer, threshold int) *Service {
	return &Service{
		txStore:   txStore,
		builder:   builder,
		rules:     rules,
		model:     model,
		committer: committer,
		threshold: threshold,
	}
}

// WithEmitter attaches a notification emitter. Without one, scoring still
// persists and alerts; it just tells nobody.
func (s *Service) WithEmitter(e Emitter) *Service {
	s.emitter = e
	return s
}

// ScoreTransaction scores one transaction end to end.
//
// The rule score is always the floor: when a model fires, the final score is
// max(rules, model). The score row and the alert decision commit as one
// atomic step, and events go out only after that commit, so every
// notification points at state a reader can fetch.
func (s *Service) ScoreTransaction(ctx context.Context, transactionID string) (*Result, error) {
	ctx, span := traces.StartSpan(ctx, "scoring.ScoreTransaction",
		traces.TransactionID(transactionID))
	defer span.End()

	log := logging.L(ctx)
	start := time.Now()

	tx, err := s.txStore.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	feats, err := s.builder.Build(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("build features: %w", err)
	}

	rulesScore, factors := s.rules.Score(feats)

	final := rulesScore
	modelVersion := RulesBaselineVersion
	if s.model != nil {
		if inf, ok := s.model.Infer(feats); ok {
			metrics.ModelInferencesTotal.WithLabelValues("ok").Inc()
			if inf.Score > final {
				final = inf.Score
			}
			modelVersion = inf.ModelVersion
			factors = append([]string{"Model used: " + inf.Kind}, factors...)
			if len(factors) > maxFactors {
				factors = factors[:maxFactors]
			}
		} else {
			metrics.ModelInferencesTotal.WithLabelValues("absent").Inc()
		}
	}

	level := RiskLevelFor(final)
	span.SetAttributes(traces.Score(final), traces.RiskLevel(string(level)))

	alert, outcome, err := s.committer.Commit(ctx, &RiskScore{
		TransactionID: tx.ID,
		Score:         final,
		ModelVersion:  modelVersion,
		Payload: &Payload{
			Inputs:     feats,
			Factors:    factors,
			RiskLevel:  level,
			RulesScore: rulesScore,
			FinalScore: final,
		},
	}, s.threshold, logging.RequestID(ctx))
	if err != nil {
		return nil, fmt.Errorf("persist scoring result: %w", err)
	}

	if outcome == alerts.OutcomeCreated && alert != nil {
		metrics.AlertsCreatedTotal.Inc()
		log.Info("alert created",
			"alert_id", alert.ID,
			"transaction_id", tx.ID,
			"score", final)
	}

	result := &Result{
		TransactionID: tx.ID,
		Score:         final,
		RiskLevel:     level,
		Factors:       factors,
		ModelVersion:  modelVersion,
		Threshold:     s.threshold,
		Alert:         alert,
	}

	metrics.ScoresComputedTotal.WithLabelValues(string(level)).Inc()
	log.Info("transaction scored",
		"transaction_id", tx.ID,
		"score", final,
		"risk_level", level,
		"model_version", modelVersion,
		"alert_outcome", outcome,
		"duration_ms", time.Since(start).Milliseconds())

	if s.emitter != nil {
		s.emitter.ScoreComputed(result)
		if outcome == alerts.OutcomeCreated && alert != nil {
			s.emitter.AlertCreated(alert)
		}
	}
	return result, nil
}
