package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/parceldesk/backend/internal/domain"
)

const packageColumns = `id, customer_id, tracking_number, freight_fee, customs_fee,
	storage_fee, delivery_fee, status, created_at, distributed_at`

type PackageRepository struct {
	db *sql.DB
}

func NewPackageRepository(db *sql.DB) *PackageRepository {
	return &PackageRepository{db: db}
}

func (r *PackageRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Package, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+packageColumns+` FROM packages WHERE id = $1`, id,
	)
	p, err := scanPackage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return p, nil
}

// GetByIDs returns the packages for the given ids. A missing id surfaces as
// ErrNotFound so settlement never proceeds on a partial set.
func (r *PackageRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Package, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+packageColumns+` FROM packages WHERE id = ANY($1) ORDER BY created_at`,
		pq.Array(uuidStrings(ids)),
	)
	if err != nil {
		return nil, fmt.Errorf("GetByIDs: %w", err)
	}
	defer rows.Close()

	var packages []domain.Package
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("GetByIDs: scan: %w", err)
		}
		packages = append(packages, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetByIDs: rows: %w", err)
	}

	if len(packages) != len(ids) {
		return nil, fmt.Errorf("GetByIDs: %d of %d packages found: %w", len(packages), len(ids), domain.ErrNotFound)
	}
	return packages, nil
}

// MarkDistributed transitions the packages to their terminal state inside the
// settlement transaction. Only ready packages transition; if any row was
// concurrently settled the affected count comes up short and the whole
// settlement aborts.
func (r *PackageRepository) MarkDistributed(ctx context.Context, tx *sql.Tx, ids []uuid.UUID, at time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE packages SET status = $1, distributed_at = $2
		WHERE id = ANY($3) AND status = $4`,
		domain.PackageStatusDistributed, at, pq.Array(uuidStrings(ids)), domain.PackageStatusReady,
	)
	if err != nil {
		return fmt.Errorf("MarkDistributed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("MarkDistributed: rows affected: %w", err)
	}
	if rows != int64(len(ids)) {
		return fmt.Errorf("MarkDistributed: %d of %d packages transitioned: %w",
			rows, len(ids), domain.ErrPackageNotReady)
	}
	return nil
}

func (r *PackageRepository) Create(ctx context.Context, p *domain.Package) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO packages (
			id, customer_id, tracking_number, freight_fee, customs_fee,
			storage_fee, delivery_fee, status, created_at, distributed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.CustomerID, p.TrackingNumber, p.FreightFee, p.CustomsFee,
		p.StorageFee, p.DeliveryFee, p.Status, p.CreatedAt, p.DistributedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func scanPackage(s scanner) (*domain.Package, error) {
	var p domain.Package
	err := s.Scan(
		&p.ID, &p.CustomerID, &p.TrackingNumber,
		&p.FreightFee, &p.CustomsFee, &p.StorageFee, &p.DeliveryFee,
		&p.Status, &p.CreatedAt, &p.DistributedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
