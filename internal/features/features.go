// Package features derives the flat feature set consumed by the scorers.
//
// Every scoring call recomputes features from the transaction plus rolling
// aggregates; nothing here is persisted on its own (a snapshot rides inside
// the stored scoring result for audit). Both windows end at the transaction's
// occurred_at, never "now", so scoring a backfilled transaction is
// deterministic.
package features

import (
	"context"
	"time"

	"github.com/sentinelai/sentinel/internal/transactions"
)

// Set is the stable feature layout shared by the rule scorer, the model
// vectorizer, and the persisted score snapshot. AvgAmountCategory7d is nil
// when the category has no 7-day history; the rule scorer treats "no
// history" and "zero average" differently, so the distinction must survive
// serialization.
type Set struct {
	Hour                int      `json:"hour"`
	Amount              float64  `json:"amount"`
	Currency            string   `json:"currency"`
	Category            string   `json:"category"`
	MerchantName        string   `json:"merchant_name"`
	Zone                string   `json:"zone"`
	Channel             string   `json:"channel"`
	IsOnline            bool     `json:"is_online"`
	MerchantTxCount24h  int      `json:"merchant_tx_count_24h"`
	AvgAmountCategory7d *float64 `json:"avg_amount_category_7d"`
}

// Aggregates is the point-in-time data-access capability the builder needs.
// transactions.Store satisfies it.
type Aggregates interface {
	CountByMerchant(ctx context.Context, merchant string, since, until time.Time) (int, error)
	AvgAmountByCategory(ctx context.Context, category string, since, until time.Time) (*float64, error)
}

// Builder computes feature sets from a transaction and its rolling context.
type Builder struct {
	agg Aggregates
}

// NewBuilder creates a feature builder backed by the given aggregate reader.
func NewBuilder(agg Aggregates) *Builder {
	return &Builder{agg: agg}
}

// Build derives the feature set for one transaction. Side-effect free:
// identical inputs produce identical features.
func (b *Builder) Build(ctx context.Context, tx *transactions.Transaction) (*Set, error) {
	asOf := tx.OccurredAt

	count, err := b.agg.CountByMerchant(ctx, tx.MerchantName, asOf.Add(-24*time.Hour), asOf)
	if err != nil {
		return nil, err
	}

	avg, err := b.agg.AvgAmountByCategory(ctx, tx.MerchantCategory, asOf.Add(-7*24*time.Hour), asOf)
	if err != nil {
		return nil, err
	}

	return &Set{
		Hour:                asOf.Hour(),
		Amount:              tx.Amount,
		Currency:            tx.Currency,
		Category:            tx.MerchantCategory,
		MerchantName:        tx.MerchantName,
		Zone:                tx.Zone,
		Channel:             tx.Channel,
		IsOnline:            tx.IsOnline,
		MerchantTxCount24h:  count,
		AvgAmountCategory7d: avg,
	}, nil
}
