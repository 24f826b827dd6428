package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/parceldesk/backend/internal/domain"
	"github.com/parceldesk/backend/internal/event"
	"github.com/parceldesk/backend/internal/logging"
	"github.com/parceldesk/backend/internal/metrics"
)

// DistributeRequest is the public settlement call. All amounts are minor
// units. UseAccount is accepted for forward compatibility with clients that
// send it, but the account backstop is unconditional and the flag has no
// observable effect on the outcome.
type DistributeRequest struct {
	PackageIDs     []uuid.UUID
	CashTendered   int64
	PerformedBy    uuid.UUID
	UseCredit      bool
	UseAccount     bool
	WriteOff       int64
	WriteOffReason *string
	Notes          *string
}

// Distribute settles a batch of ready packages: computes what is owed,
// reconciles it against cash, store credit, and the account balance, and
// records the distribution plus its ledger entries in one atomic unit.
// Version conflicts are retried a bounded number of times; receipt and
// notification side effects run after commit and never fail the call.
func (s *Service) Distribute(ctx context.Context, req DistributeRequest) (*domain.Distribution, error) {
	log := logging.FromContext(ctx)

	if len(req.PackageIDs) == 0 {
		return nil, fmt.Errorf("Distribute: %w", domain.ErrEmptyPackageSet)
	}
	if req.CashTendered < 0 {
		return nil, fmt.Errorf("Distribute: %w", domain.ErrNegativeCash)
	}
	if req.WriteOff < 0 {
		return nil, fmt.Errorf("Distribute: %w", domain.ErrNegativeWriteOff)
	}

	packages, err := s.packages.GetByIDs(ctx, req.PackageIDs)
	if err != nil {
		return nil, fmt.Errorf("Distribute: %w", err)
	}

	customerID, totalAmount, err := AggregateFees(packages)
	if err != nil {
		return nil, fmt.Errorf("Distribute: %w", err)
	}

	if req.WriteOff > totalAmount {
		return nil, fmt.Errorf("Distribute: write-off %d > total %d: %w",
			req.WriteOff, totalAmount, domain.ErrWriteOffExceedsTotal)
	}
	netAmount := totalAmount - req.WriteOff

	var d *domain.Distribution
	for attempt := 0; ; attempt++ {
		d, err = s.settle(ctx, req, customerID, totalAmount, netAmount)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrVersionConflict) || attempt >= s.opts.MaxRetries {
			return nil, fmt.Errorf("Distribute: %w", err)
		}
		metrics.SettlementConflicts.Inc()
		log.Warn("settlement conflict, retrying",
			"customer_id", customerID,
			"attempt", attempt+1,
		)
		time.Sleep(s.opts.RetryBackoff * time.Duration(attempt+1))
	}

	metrics.SettlementsTotal.WithLabelValues(string(d.PaymentStatus)).Inc()
	metrics.SettledAmount.Add(float64(d.NetAmount))

	log.Info("settlement completed",
		"distribution_id", d.ID,
		"customer_id", d.CustomerID,
		"packages", len(d.PackageIDs),
		"net_amount", d.NetAmount,
		"payment_status", d.PaymentStatus,
	)

	// Post-commit side effects: best effort, never roll back the settlement.
	s.events.Publish(ctx, event.SettlementCompleted{Distribution: d})

	return d, nil
}

// settle runs one attempt of the atomic unit: lock the customer, resolve
// funding against the balances read under the lock, write the distribution,
// its ledger entries, the balance update, and the package transitions, then
// commit. Any failure rolls back the whole unit.
func (s *Service) settle(ctx context.Context, req DistributeRequest, customerID uuid.UUID, totalAmount, netAmount int64) (*domain.Distribution, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("settle: begin tx: %w", err)
	}
	defer tx.Rollback()

	customer, err := s.customers.GetForUpdate(ctx, tx, customerID)
	if err != nil {
		return nil, fmt.Errorf("settle: %w", err)
	}

	plan := ResolveFunding(FundingInput{
		NetAmount:      netAmount,
		CashTendered:   req.CashTendered,
		CreditBalance:  customer.CreditBalance,
		AccountBalance: customer.AccountBalance,
		UseCredit:      req.UseCredit,
	})

	drafts, newAccountBalance, newCreditBalance := buildLedgerPlan(
		netAmount, req.CashTendered, plan, customer.AccountBalance, customer.CreditBalance,
	)

	now := time.Now().UTC()
	d := &domain.Distribution{
		ID:                    uuid.New(),
		CustomerID:            customerID,
		PackageIDs:            req.PackageIDs,
		TotalAmount:           totalAmount,
		WriteOffAmount:        req.WriteOff,
		NetAmount:             netAmount,
		AmountCollected:       req.CashTendered,
		CreditApplied:         plan.CreditApplied,
		AccountBalanceApplied: plan.AccountApplied,
		PaymentStatus:         plan.Status,
		WriteOffReason:        req.WriteOffReason,
		Notes:                 req.Notes,
		PerformedBy:           req.PerformedBy,
		CreatedAt:             now,
	}

	if err := s.distributions.Create(ctx, tx, d); err != nil {
		return nil, fmt.Errorf("settle: create distribution: %w", err)
	}

	if err := s.writeLedger(ctx, tx, customer, d.ID, req.PerformedBy, drafts, newAccountBalance, newCreditBalance, now); err != nil {
		return nil, fmt.Errorf("settle: %w", err)
	}

	if err := s.packages.MarkDistributed(ctx, tx, req.PackageIDs, now); err != nil {
		return nil, fmt.Errorf("settle: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("settle: commit: %w", err)
	}
	return d, nil
}
