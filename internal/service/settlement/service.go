// Package settlement implements the package distribution and balance
// settlement engine: fee aggregation, funding resolution across cash,
// store credit, and the account balance, and the atomic ledger write
// that records the event.
package settlement

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/parceldesk/backend/internal/domain"
	"github.com/parceldesk/backend/internal/event"
)

type customerRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Customer, error)
	UpdateBalances(ctx context.Context, tx *sql.Tx, id uuid.UUID, accountBalance, creditBalance, newVersion int64) error
}

type packageRepo interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Package, error)
	MarkDistributed(ctx context.Context, tx *sql.Tx, ids []uuid.UUID, at time.Time) error
}

type distributionRepo interface {
	Create(ctx context.Context, tx *sql.Tx, d *domain.Distribution) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Distribution, error)
	GetByCustomerID(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]domain.Distribution, int, error)
}

type transactionRepo interface {
	Create(ctx context.Context, tx *sql.Tx, t *domain.Transaction) error
	GetByCustomerID(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]domain.Transaction, int, error)
}

type publisher interface {
	Publish(ctx context.Context, ev event.SettlementCompleted)
}

// Options tunes the orchestrator's conflict-retry policy.
type Options struct {
	MaxRetries   int
	RetryBackoff time.Duration
}

func DefaultOptions() Options {
	return Options{
		MaxRetries:   3,
		RetryBackoff: 50 * time.Millisecond,
	}
}

type Service struct {
	customers     customerRepo
	packages      packageRepo
	distributions distributionRepo
	transactions  transactionRepo
	events        publisher
	db            *sql.DB
	opts          Options
}

func NewService(
	customers customerRepo,
	packages packageRepo,
	distributions distributionRepo,
	transactions transactionRepo,
	events publisher,
	db *sql.DB,
	opts Options,
) *Service {
	return &Service{
		customers:     customers,
		packages:      packages,
		distributions: distributions,
		transactions:  transactions,
		events:        events,
		db:            db,
		opts:          opts,
	}
}

func (s *Service) GetDistribution(ctx context.Context, id uuid.UUID) (*domain.Distribution, error) {
	d, err := s.distributions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetDistribution: %w", err)
	}
	return d, nil
}

func (s *Service) GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	c, err := s.customers.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetCustomer: %w", err)
	}
	return c, nil
}

func (s *Service) GetCustomerStatement(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]domain.Transaction, int, error) {
	entries, total, err := s.transactions.GetByCustomerID(ctx, customerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("GetCustomerStatement: %w", err)
	}
	return entries, total, nil
}

func (s *Service) GetCustomerDistributions(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]domain.Distribution, int, error) {
	distributions, total, err := s.distributions.GetByCustomerID(ctx, customerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("GetCustomerDistributions: %w", err)
	}
	return distributions, total, nil
}
