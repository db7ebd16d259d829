// Package transactions stores card transactions and exposes the point-in-time
// aggregate queries the feature builder needs.
//
// Transactions are immutable once ingested: the scoring core only ever reads
// them. Window aggregates are always computed relative to a reference
// timestamp, never wall-clock time, so replayed or backfilled transactions
// score identically.
package transactions

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("transaction not found")

// Transaction is a single card transaction as recorded at ingestion.
type Transaction struct {
	ID               string    `json:"id"`
	OccurredAt       time.Time `json:"occurred_at"`
	CreatedAt        time.Time `json:"created_at"`
	Amount           float64   `json:"amount"`
	Currency         string    `json:"currency"`
	MerchantName     string    `json:"merchant_name"`
	MerchantCategory string    `json:"merchant_category"`
	Zone             string    `json:"zone,omitempty"`
	Channel          string    `json:"channel"`
	IsOnline         bool      `json:"is_online"`
	Description      string    `json:"description,omitempty"`
}

// Store persists transactions and answers windowed aggregate queries.
//
// Both aggregate queries are bounded above by `until`, which callers set to
// the reference transaction's occurred_at. Rows after `until` must never be
// counted — that would leak future data into a replayed scoring run.
type Store interface {
	Insert(ctx context.Context, tx *Transaction) error
	GetByID(ctx context.Context, id string) (*Transaction, error)

	// CountByMerchant returns the number of transactions at the given
	// merchant with occurred_at in (since, until].
	CountByMerchant(ctx context.Context, merchant string, since, until time.Time) (int, error)

	// AvgAmountByCategory returns the mean amount for the category over
	// (since, until], or nil when the category has no history in the
	// window. Nil and zero are different answers downstream.
	AvgAmountByCategory(ctx context.Context, category string, since, until time.Time) (*float64, error)
}
