package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/parceldesk/backend/internal/domain"
)

const transactionColumns = `id, customer_id, distribution_id, type, amount,
	balance_before, balance_after, description, metadata, performed_by, created_at`

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *sql.Tx, t *domain.Transaction) error {
	var metadata []byte
	if t.Metadata != nil {
		var err error
		metadata, err = json.Marshal(t.Metadata)
		if err != nil {
			return fmt.Errorf("Create: marshal metadata: %w", err)
		}
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (
			id, customer_id, distribution_id, type, amount,
			balance_before, balance_after, description, metadata, performed_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.CustomerID, t.DistributionID, t.Type, t.Amount,
		t.BalanceBefore, t.BalanceAfter, t.Description, metadata, t.PerformedBy, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// GetByCustomerID returns the customer's ledger newest first, for the
// statement view.
func (r *TransactionRepository) GetByCustomerID(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]domain.Transaction, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE customer_id = $1`, customerID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("GetByCustomerID: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		WHERE customer_id = $1 ORDER BY created_at DESC, seq DESC LIMIT $2 OFFSET $3`,
		customerID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("GetByCustomerID: %w", err)
	}
	defer rows.Close()

	entries, err := collectTransactions(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("GetByCustomerID: %w", err)
	}
	return entries, total, nil
}

// GetLedger returns the customer's full ledger in creation order, the
// ordering the replay invariant depends on.
func (r *TransactionRepository) GetLedger(ctx context.Context, customerID uuid.UUID) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		WHERE customer_id = $1 ORDER BY created_at, seq`, customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("GetLedger: %w", err)
	}
	defer rows.Close()

	entries, err := collectTransactions(rows)
	if err != nil {
		return nil, fmt.Errorf("GetLedger: %w", err)
	}
	return entries, nil
}

func (r *TransactionRepository) GetByDistributionID(ctx context.Context, distributionID uuid.UUID) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		WHERE distribution_id = $1 ORDER BY created_at, seq`, distributionID,
	)
	if err != nil {
		return nil, fmt.Errorf("GetByDistributionID: %w", err)
	}
	defer rows.Close()

	entries, err := collectTransactions(rows)
	if err != nil {
		return nil, fmt.Errorf("GetByDistributionID: %w", err)
	}
	return entries, nil
}

func collectTransactions(rows *sql.Rows) ([]domain.Transaction, error) {
	var entries []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		entries = append(entries, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return entries, nil
}

func scanTransaction(s scanner) (*domain.Transaction, error) {
	var t domain.Transaction
	var metadata []byte
	err := s.Scan(
		&t.ID, &t.CustomerID, &t.DistributionID, &t.Type, &t.Amount,
		&t.BalanceBefore, &t.BalanceAfter, &t.Description, &metadata,
		&t.PerformedBy, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(metadata) > 0 {
		var m domain.TransactionMetadata
		if err := json.Unmarshal(metadata, &m); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
		t.Metadata = &m
	}
	return &t, nil
}
