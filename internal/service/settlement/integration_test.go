package settlement_test

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parceldesk/backend/internal/domain"
	"github.com/parceldesk/backend/internal/event"
	"github.com/parceldesk/backend/internal/receipt"
	"github.com/parceldesk/backend/internal/repository"
	"github.com/parceldesk/backend/internal/service/settlement"
	"github.com/parceldesk/backend/internal/testutil"
)

func setupService(t *testing.T, db *sql.DB, subscribers ...event.Subscriber) *settlement.Service {
	t.Helper()
	return settlement.NewService(
		repository.NewCustomerRepository(db),
		repository.NewPackageRepository(db),
		repository.NewDistributionRepository(db),
		repository.NewTransactionRepository(db),
		event.NewPublisher(slog.Default(), subscribers...),
		db,
		settlement.DefaultOptions(),
	)
}

// Spec'd walkthrough: 875.00 account balance, one 100.00 package, exact
// cash. Account balance untouched, two ledger entries, paid.
func TestDistribute_ExactCashPayment(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupService(t, db)
	ctx := context.Background()

	admin := testutil.SeedAdmin(t, db)
	customer := testutil.SeedCustomer(t, db, 87500, 0)
	pkg := testutil.SeedPackage(t, db, customer.ID, 4000, 3000, 2000, 1000)

	d, err := svc.Distribute(ctx, settlement.DistributeRequest{
		PackageIDs:   []uuid.UUID{pkg.ID},
		CashTendered: 10000,
		PerformedBy:  admin.ID,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(10000), d.TotalAmount)
	assert.Equal(t, int64(10000), d.NetAmount)
	assert.Equal(t, int64(10000), d.AmountCollected)
	assert.Equal(t, int64(0), d.CreditApplied)
	assert.Equal(t, int64(0), d.AccountBalanceApplied)
	assert.Equal(t, domain.PaymentStatusPaid, d.PaymentStatus)

	acct, credit := testutil.GetBalances(t, db, customer.ID)
	assert.Equal(t, int64(87500), acct)
	assert.Equal(t, int64(0), credit)

	assert.Equal(t, 2, testutil.CountTransactions(t, db, d.ID))
	assert.Equal(t, domain.PackageStatusDistributed, testutil.GetPackageStatus(t, db, pkg.ID))

	entries, err := repository.NewTransactionRepository(db).GetByDistributionID(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.TransactionTypeCharge, entries[0].Type)
	assert.Equal(t, int64(10000), entries[0].Amount)
	assert.Equal(t, domain.TransactionTypePayment, entries[1].Type)
	assert.Equal(t, int64(10000), entries[1].Amount)
	assert.Equal(t, admin.ID, entries[0].PerformedBy)
}

// 150.00 cash against a 100.00 package: overpayment becomes store credit,
// three ledger entries.
func TestDistribute_Overpayment(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupService(t, db)
	ctx := context.Background()

	admin := testutil.SeedAdmin(t, db)
	customer := testutil.SeedCustomer(t, db, 87500, 0)
	pkg := testutil.SeedPackage(t, db, customer.ID, 10000, 0, 0, 0)

	d, err := svc.Distribute(ctx, settlement.DistributeRequest{
		PackageIDs:   []uuid.UUID{pkg.ID},
		CashTendered: 15000,
		PerformedBy:  admin.ID,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, d.PaymentStatus)

	acct, credit := testutil.GetBalances(t, db, customer.ID)
	assert.Equal(t, int64(87500), acct)
	assert.Equal(t, int64(5000), credit)

	entries, err := repository.NewTransactionRepository(db).GetByDistributionID(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, domain.TransactionTypeCharge, entries[0].Type)
	assert.Equal(t, domain.TransactionTypePayment, entries[1].Type)
	assert.Equal(t, int64(10000), entries[1].Amount, "payment capped at net amount")
	assert.Equal(t, domain.TransactionTypeCredit, entries[2].Type)
	assert.Equal(t, int64(5000), entries[2].Amount)
}

// 50.00 cash against 100.00: shortfall hits the account balance.
func TestDistribute_Underpayment(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupService(t, db)
	ctx := context.Background()

	admin := testutil.SeedAdmin(t, db)
	customer := testutil.SeedCustomer(t, db, 87500, 0)
	pkg := testutil.SeedPackage(t, db, customer.ID, 10000, 0, 0, 0)

	d, err := svc.Distribute(ctx, settlement.DistributeRequest{
		PackageIDs:   []uuid.UUID{pkg.ID},
		CashTendered: 5000,
		PerformedBy:  admin.ID,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPartial, d.PaymentStatus)
	assert.Equal(t, int64(5000), d.AccountBalanceApplied)

	acct, _ := testutil.GetBalances(t, db, customer.ID)
	assert.Equal(t, int64(82500), acct)
	assert.Equal(t, 2, testutil.CountTransactions(t, db, d.ID))
}

// Store credit covers the full 150.00; account untouched.
func TestDistribute_CreditCoversAmount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupService(t, db)
	ctx := context.Background()

	admin := testutil.SeedAdmin(t, db)
	customer := testutil.SeedCustomer(t, db, 50000, 20000)
	pkg := testutil.SeedPackage(t, db, customer.ID, 15000, 0, 0, 0)

	d, err := svc.Distribute(ctx, settlement.DistributeRequest{
		PackageIDs:   []uuid.UUID{pkg.ID},
		CashTendered: 0,
		UseCredit:    true,
		PerformedBy:  admin.ID,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(15000), d.CreditApplied)
	assert.Equal(t, domain.PaymentStatusPaid, d.PaymentStatus)

	acct, credit := testutil.GetBalances(t, db, customer.ID)
	assert.Equal(t, int64(50000), acct)
	assert.Equal(t, int64(5000), credit)

	entries, err := repository.NewTransactionRepository(db).GetByDistributionID(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.NotNil(t, entries[1].Metadata)
	assert.Equal(t, int64(15000), entries[1].Metadata.CreditApplied)
}

// 50.00 credit against 150.00: credit drains to zero and the 100.00
// shortfall lands on the account.
func TestDistribute_CreditExhaustedThenAccount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupService(t, db)
	ctx := context.Background()

	admin := testutil.SeedAdmin(t, db)
	customer := testutil.SeedCustomer(t, db, 50000, 5000)
	pkg := testutil.SeedPackage(t, db, customer.ID, 15000, 0, 0, 0)

	d, err := svc.Distribute(ctx, settlement.DistributeRequest{
		PackageIDs:   []uuid.UUID{pkg.ID},
		CashTendered: 0,
		UseCredit:    true,
		PerformedBy:  admin.ID,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(5000), d.CreditApplied)
	assert.Equal(t, int64(10000), d.AccountBalanceApplied)

	acct, credit := testutil.GetBalances(t, db, customer.ID)
	assert.Equal(t, int64(40000), acct)
	assert.Equal(t, int64(0), credit)
}

// 25.00 write-off against 100.00 total, 60.00 cash: net is 75.00, partial.
func TestDistribute_WriteOff(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupService(t, db)
	ctx := context.Background()

	admin := testutil.SeedAdmin(t, db)
	customer := testutil.SeedCustomer(t, db, 0, 0)
	pkg := testutil.SeedPackage(t, db, customer.ID, 10000, 0, 0, 0)

	reason := "damaged carton"
	d, err := svc.Distribute(ctx, settlement.DistributeRequest{
		PackageIDs:     []uuid.UUID{pkg.ID},
		CashTendered:   6000,
		WriteOff:       2500,
		WriteOffReason: &reason,
		PerformedBy:    admin.ID,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(10000), d.TotalAmount)
	assert.Equal(t, int64(7500), d.NetAmount)
	assert.Equal(t, domain.PaymentStatusPartial, d.PaymentStatus)
	assert.Equal(t, int64(1500), d.AccountBalanceApplied)
}

// Full write-off: nothing owed, no ledger entries, paid.
func TestDistribute_FullWriteOff(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupService(t, db)
	ctx := context.Background()

	admin := testutil.SeedAdmin(t, db)
	customer := testutil.SeedCustomer(t, db, 87500, 0)
	pkg := testutil.SeedPackage(t, db, customer.ID, 10000, 0, 0, 0)

	d, err := svc.Distribute(ctx, settlement.DistributeRequest{
		PackageIDs:   []uuid.UUID{pkg.ID},
		CashTendered: 0,
		WriteOff:     10000,
		PerformedBy:  admin.ID,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(0), d.NetAmount)
	assert.Equal(t, domain.PaymentStatusPaid, d.PaymentStatus)
	assert.Equal(t, 0, testutil.CountTransactions(t, db, d.ID))

	acct, credit := testutil.GetBalances(t, db, customer.ID)
	assert.Equal(t, int64(87500), acct)
	assert.Equal(t, int64(0), credit)
	assert.Equal(t, domain.PackageStatusDistributed, testutil.GetPackageStatus(t, db, pkg.ID))
}

func TestDistribute_MultiplePackagesOneBatch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupService(t, db)
	ctx := context.Background()

	admin := testutil.SeedAdmin(t, db)
	customer := testutil.SeedCustomer(t, db, 0, 0)
	a := testutil.SeedPackage(t, db, customer.ID, 4000, 1000, 500, 500)
	b := testutil.SeedPackage(t, db, customer.ID, 2000, 0, 0, 1000)

	d, err := svc.Distribute(ctx, settlement.DistributeRequest{
		PackageIDs:   []uuid.UUID{a.ID, b.ID},
		CashTendered: 9000,
		PerformedBy:  admin.ID,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(9000), d.TotalAmount)
	assert.Equal(t, domain.PaymentStatusPaid, d.PaymentStatus)
	assert.Equal(t, domain.PackageStatusDistributed, testutil.GetPackageStatus(t, db, a.ID))
	assert.Equal(t, domain.PackageStatusDistributed, testutil.GetPackageStatus(t, db, b.ID))
}

func TestDistribute_ValidationFailuresLeaveNoState(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupService(t, db)
	ctx := context.Background()

	admin := testutil.SeedAdmin(t, db)
	customer := testutil.SeedCustomer(t, db, 10000, 0)
	pkg := testutil.SeedPackage(t, db, customer.ID, 10000, 0, 0, 0)

	tests := []struct {
		name    string
		req     settlement.DistributeRequest
		wantErr error
	}{
		{
			name:    "empty package set",
			req:     settlement.DistributeRequest{CashTendered: 0, PerformedBy: admin.ID},
			wantErr: domain.ErrEmptyPackageSet,
		},
		{
			name:    "negative cash",
			req:     settlement.DistributeRequest{PackageIDs: []uuid.UUID{pkg.ID}, CashTendered: -1, PerformedBy: admin.ID},
			wantErr: domain.ErrNegativeCash,
		},
		{
			name:    "write-off exceeds total",
			req:     settlement.DistributeRequest{PackageIDs: []uuid.UUID{pkg.ID}, WriteOff: 10001, PerformedBy: admin.ID},
			wantErr: domain.ErrWriteOffExceedsTotal,
		},
		{
			name:    "negative write-off",
			req:     settlement.DistributeRequest{PackageIDs: []uuid.UUID{pkg.ID}, WriteOff: -1, PerformedBy: admin.ID},
			wantErr: domain.ErrNegativeWriteOff,
		},
		{
			name:    "unknown package",
			req:     settlement.DistributeRequest{PackageIDs: []uuid.UUID{uuid.New()}, PerformedBy: admin.ID},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Distribute(ctx, tt.req)
			require.ErrorIs(t, err, tt.wantErr)

			acct, credit := testutil.GetBalances(t, db, customer.ID)
			assert.Equal(t, int64(10000), acct)
			assert.Equal(t, int64(0), credit)
			assert.Equal(t, domain.PackageStatusReady, testutil.GetPackageStatus(t, db, pkg.ID))
		})
	}
}

func TestDistribute_MixedCustomersRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupService(t, db)
	ctx := context.Background()

	admin := testutil.SeedAdmin(t, db)
	alice := testutil.SeedCustomer(t, db, 0, 0)
	bob := testutil.SeedCustomer(t, db, 0, 0)
	alicePkg := testutil.SeedPackage(t, db, alice.ID, 1000, 0, 0, 0)
	bobPkg := testutil.SeedPackage(t, db, bob.ID, 1000, 0, 0, 0)

	_, err := svc.Distribute(ctx, settlement.DistributeRequest{
		PackageIDs:   []uuid.UUID{alicePkg.ID, bobPkg.ID},
		CashTendered: 2000,
		PerformedBy:  admin.ID,
	})

	require.ErrorIs(t, err, domain.ErrMixedCustomers)
	assert.Equal(t, domain.PackageStatusReady, testutil.GetPackageStatus(t, db, alicePkg.ID))
	assert.Equal(t, domain.PackageStatusReady, testutil.GetPackageStatus(t, db, bobPkg.ID))
}

// Settlement is not idempotent: the second call on the same packages must
// fail because they are no longer ready.
func TestDistribute_SecondCallFails(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupService(t, db)
	ctx := context.Background()

	admin := testutil.SeedAdmin(t, db)
	customer := testutil.SeedCustomer(t, db, 0, 0)
	pkg := testutil.SeedPackage(t, db, customer.ID, 10000, 0, 0, 0)

	req := settlement.DistributeRequest{
		PackageIDs:   []uuid.UUID{pkg.ID},
		CashTendered: 10000,
		PerformedBy:  admin.ID,
	}

	_, err := svc.Distribute(ctx, req)
	require.NoError(t, err)

	_, err = svc.Distribute(ctx, req)
	require.ErrorIs(t, err, domain.ErrPackageNotReady)

	acct, _ := testutil.GetBalances(t, db, customer.ID)
	assert.Equal(t, int64(0), acct, "second call must not move balances")
}

// Two concurrent settlements for the same customer serialize on the row
// lock; both commit and credit is never double-spent.
func TestDistribute_ConcurrentSameCustomer(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupService(t, db)
	ctx := context.Background()

	admin := testutil.SeedAdmin(t, db)
	customer := testutil.SeedCustomer(t, db, 0, 10000)
	a := testutil.SeedPackage(t, db, customer.ID, 10000, 0, 0, 0)
	b := testutil.SeedPackage(t, db, customer.ID, 10000, 0, 0, 0)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, pkg := range []uuid.UUID{a.ID, b.ID} {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := svc.Distribute(ctx, settlement.DistributeRequest{
				PackageIDs:  []uuid.UUID{id},
				UseCredit:   true,
				PerformedBy: admin.ID,
			})
			errs <- err
		}(pkg)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	// 100.00 credit covers the first settlement; the second finds it empty
	// and draws 100.00 from the account. Order between the two does not
	// matter for the totals.
	acct, credit := testutil.GetBalances(t, db, customer.ID)
	assert.Equal(t, int64(0), credit)
	assert.Equal(t, int64(-10000), acct)
}

// Replaying every ledger entry in creation order reproduces the stored
// balances exactly.
func TestDistribute_LedgerReplayReproducesBalances(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupService(t, db)
	ctx := context.Background()

	admin := testutil.SeedAdmin(t, db)
	const startAcct, startCredit = int64(20000), int64(5000)
	customer := testutil.SeedCustomer(t, db, startAcct, startCredit)

	settleOne := func(fees, cash int64, useCredit bool) {
		t.Helper()
		pkg := testutil.SeedPackage(t, db, customer.ID, fees, 0, 0, 0)
		_, err := svc.Distribute(ctx, settlement.DistributeRequest{
			PackageIDs:   []uuid.UUID{pkg.ID},
			CashTendered: cash,
			UseCredit:    useCredit,
			PerformedBy:  admin.ID,
		})
		require.NoError(t, err)
	}

	settleOne(10000, 10000, false) // exact
	settleOne(10000, 15000, false) // overpay -> +50.00 credit
	settleOne(10000, 0, true)      // credit pays it all
	settleOne(10000, 2000, false)  // 80.00 shortfall
	settleOne(10000, 0, false)     // fully unpaid

	ledger, err := repository.NewTransactionRepository(db).GetLedger(ctx, customer.ID)
	require.NoError(t, err)
	require.NotEmpty(t, ledger)

	acct, credit := startAcct, startCredit
	for _, e := range ledger {
		switch e.Type {
		case domain.TransactionTypeCharge:
			acct -= e.Amount
		case domain.TransactionTypePayment:
			acct += e.Amount
			if e.Metadata != nil {
				credit -= e.Metadata.CreditApplied
			}
		case domain.TransactionTypeCredit:
			credit += e.Amount
		}
	}

	gotAcct, gotCredit := testutil.GetBalances(t, db, customer.ID)
	assert.Equal(t, gotAcct, acct, "account balance replay")
	assert.Equal(t, gotCredit, credit, "credit balance replay")
}

// The receipt subscriber runs after commit and fills in receipt_ref; its
// outcome never affects the settlement result.
func TestDistribute_ReceiptRefPopulatedPostCommit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	distributions := repository.NewDistributionRepository(db)
	svc := setupService(t, db, receipt.NewGenerator(distributions))
	ctx := context.Background()

	admin := testutil.SeedAdmin(t, db)
	customer := testutil.SeedCustomer(t, db, 0, 0)
	pkg := testutil.SeedPackage(t, db, customer.ID, 10000, 0, 0, 0)

	d, err := svc.Distribute(ctx, settlement.DistributeRequest{
		PackageIDs:   []uuid.UUID{pkg.ID},
		CashTendered: 10000,
		PerformedBy:  admin.ID,
	})
	require.NoError(t, err)

	stored, err := distributions.GetByID(ctx, d.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ReceiptRef)
	assert.Contains(t, *stored.ReceiptRef, "RCP-")
}
