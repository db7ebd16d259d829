package transactions

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresStore implements Store with PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed transaction store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Insert(ctx context.Context, tx *Transaction) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO transactions
			(id, occurred_at, created_at, amount, currency, merchant_name,
			 merchant_category, zone, channel, is_online, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, tx.ID, tx.OccurredAt, tx.CreatedAt, tx.Amount, tx.Currency, tx.MerchantName,
		tx.MerchantCategory, nullable(tx.Zone), tx.Channel, tx.IsOnline, nullable(tx.Description))
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (p *PostgresStore) GetByID(ctx context.Context, id string) (*Transaction, error) {
	tx := &Transaction{}
	var zone, description sql.NullString

	err := p.db.QueryRowContext(ctx, `
		SELECT id, occurred_at, created_at, amount, currency, merchant_name,
		       merchant_category, zone, channel, is_online, description
		FROM transactions WHERE id = $1
	`, id).Scan(&tx.ID, &tx.OccurredAt, &tx.CreatedAt, &tx.Amount, &tx.Currency,
		&tx.MerchantName, &tx.MerchantCategory, &zone, &tx.Channel, &tx.IsOnline, &description)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	tx.Zone = zone.String
	tx.Description = description.String
	return tx, nil
}

func (p *PostgresStore) CountByMerchant(ctx context.Context, merchant string, since, until time.Time) (int, error) {
	var count int
	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transactions
		WHERE merchant_name = $1 AND occurred_at > $2 AND occurred_at <= $3
	`, merchant, since, until).Scan(&count)
	return count, err
}

func (p *PostgresStore) AvgAmountByCategory(ctx context.Context, category string, since, until time.Time) (*float64, error) {
	var avg sql.NullFloat64
	err := p.db.QueryRowContext(ctx, `
		SELECT AVG(amount) FROM transactions
		WHERE merchant_category = $1 AND occurred_at > $2 AND occurred_at <= $3
	`, category, since, until).Scan(&avg)
	if err != nil {
		return nil, err
	}
	if !avg.Valid {
		return nil, nil
	}
	v := avg.Float64
	return &v, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
