package settlement

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/parceldesk/backend/internal/domain"
	"github.com/parceldesk/backend/internal/money"
)

// entryDraft is a ledger entry before it gets an id and a row. Drafts for
// one settlement share a timestamp; creation order is the emission order.
type entryDraft struct {
	Type          domain.TransactionType
	Amount        int64
	BalanceBefore int64
	BalanceAfter  int64
	Description   string
	CreditApplied int64
}

// buildLedgerPlan turns a funding plan into the ordered charge/payment/credit
// entry set plus the customer's new balances. Zero-amount entries are never
// emitted. The net effect on the account balance is exactly minus the
// account-applied shortfall; the net effect on the credit balance is
// overpayment minus consumed credit.
func buildLedgerPlan(netAmount, cashTendered int64, plan FundingPlan, accountBefore, creditBefore int64) ([]entryDraft, int64, int64) {
	var drafts []entryDraft

	account := accountBefore
	if netAmount > 0 {
		drafts = append(drafts, entryDraft{
			Type:          domain.TransactionTypeCharge,
			Amount:        netAmount,
			BalanceBefore: account,
			BalanceAfter:  account - netAmount,
			Description:   fmt.Sprintf("Package distribution charge %s", money.Format(netAmount)),
		})
		account -= netAmount
	}

	payment := min(cashTendered+plan.CreditApplied, netAmount)
	if payment > 0 {
		draft := entryDraft{
			Type:          domain.TransactionTypePayment,
			Amount:        payment,
			BalanceBefore: account,
			BalanceAfter:  account + payment,
			Description:   fmt.Sprintf("Payment %s received", money.Format(payment)),
			CreditApplied: plan.CreditApplied,
		}
		if plan.CreditApplied > 0 {
			draft.Description = fmt.Sprintf("Payment %s received (%s store credit applied)",
				money.Format(payment), money.Format(plan.CreditApplied))
		}
		drafts = append(drafts, draft)
		account += payment
	}

	// Credit consumption is applied here, not as its own entry; it is
	// spending an existing asset, recorded as payment metadata above.
	credit := creditBefore - plan.CreditApplied
	if plan.Overpayment > 0 {
		drafts = append(drafts, entryDraft{
			Type:          domain.TransactionTypeCredit,
			Amount:        plan.Overpayment,
			BalanceBefore: credit,
			BalanceAfter:  credit + plan.Overpayment,
			Description:   fmt.Sprintf("Overpayment %s added to store credit", money.Format(plan.Overpayment)),
		})
		credit += plan.Overpayment
	}

	return drafts, account, credit
}

// writeLedger persists the entry set and the balance update inside the
// caller's transaction. The version CAS on the balance write backs up the
// row lock the caller already holds.
func (s *Service) writeLedger(
	ctx context.Context,
	tx *sql.Tx,
	customer *domain.Customer,
	distributionID, performedBy uuid.UUID,
	drafts []entryDraft,
	newAccountBalance, newCreditBalance int64,
	now time.Time,
) error {
	for _, draft := range drafts {
		entry := &domain.Transaction{
			ID:             uuid.New(),
			CustomerID:     customer.ID,
			DistributionID: distributionID,
			Type:           draft.Type,
			Amount:         draft.Amount,
			BalanceBefore:  draft.BalanceBefore,
			BalanceAfter:   draft.BalanceAfter,
			Description:    draft.Description,
			PerformedBy:    performedBy,
			CreatedAt:      now,
		}
		if draft.Type == domain.TransactionTypePayment && draft.CreditApplied > 0 {
			entry.Metadata = &domain.TransactionMetadata{CreditApplied: draft.CreditApplied}
		}
		if err := s.transactions.Create(ctx, tx, entry); err != nil {
			return fmt.Errorf("writeLedger: %s entry: %w", draft.Type, err)
		}
	}

	if err := s.customers.UpdateBalances(ctx, tx, customer.ID, newAccountBalance, newCreditBalance, customer.Version+1); err != nil {
		return fmt.Errorf("writeLedger: %w", err)
	}
	return nil
}
