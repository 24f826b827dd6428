package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/parceldesk/backend/internal/domain"
)

const distributionColumns = `id, customer_id, package_ids, total_amount, write_off_amount,
	net_amount, amount_collected, credit_applied, account_balance_applied, payment_status,
	write_off_reason, notes, receipt_ref, performed_by, created_at`

type DistributionRepository struct {
	db *sql.DB
}

func NewDistributionRepository(db *sql.DB) *DistributionRepository {
	return &DistributionRepository{db: db}
}

func (r *DistributionRepository) Create(ctx context.Context, tx *sql.Tx, d *domain.Distribution) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO distributions (
			id, customer_id, package_ids, total_amount, write_off_amount,
			net_amount, amount_collected, credit_applied, account_balance_applied,
			payment_status, write_off_reason, notes, receipt_ref, performed_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		d.ID, d.CustomerID, pq.Array(uuidStrings(d.PackageIDs)),
		d.TotalAmount, d.WriteOffAmount, d.NetAmount, d.AmountCollected,
		d.CreditApplied, d.AccountBalanceApplied, d.PaymentStatus,
		d.WriteOffReason, d.Notes, d.ReceiptRef, d.PerformedBy, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *DistributionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Distribution, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+distributionColumns+` FROM distributions WHERE id = $1`, id,
	)
	d, err := scanDistribution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return d, nil
}

func (r *DistributionRepository) GetByCustomerID(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]domain.Distribution, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM distributions WHERE customer_id = $1`, customerID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("GetByCustomerID: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+distributionColumns+` FROM distributions
		WHERE customer_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		customerID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("GetByCustomerID: %w", err)
	}
	defer rows.Close()

	var distributions []domain.Distribution
	for rows.Next() {
		d, err := scanDistribution(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("GetByCustomerID: scan: %w", err)
		}
		distributions = append(distributions, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("GetByCustomerID: rows: %w", err)
	}
	return distributions, total, nil
}

// SetReceiptRef is the single permitted post-creation write on a
// distribution; the monetary fields stay immutable.
func (r *DistributionRepository) SetReceiptRef(ctx context.Context, id uuid.UUID, ref string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE distributions SET receipt_ref = $1 WHERE id = $2 AND receipt_ref IS NULL`,
		ref, id,
	)
	if err != nil {
		return fmt.Errorf("SetReceiptRef: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("SetReceiptRef: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("SetReceiptRef: %w", domain.ErrNotFound)
	}
	return nil
}

func scanDistribution(s scanner) (*domain.Distribution, error) {
	var d domain.Distribution
	var packageIDs pq.StringArray
	err := s.Scan(
		&d.ID, &d.CustomerID, &packageIDs,
		&d.TotalAmount, &d.WriteOffAmount, &d.NetAmount, &d.AmountCollected,
		&d.CreditApplied, &d.AccountBalanceApplied, &d.PaymentStatus,
		&d.WriteOffReason, &d.Notes, &d.ReceiptRef, &d.PerformedBy, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.PackageIDs = make([]uuid.UUID, len(packageIDs))
	for i, raw := range packageIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("scanDistribution: package id %q: %w", raw, err)
		}
		d.PackageIDs[i] = id
	}
	return &d, nil
}
