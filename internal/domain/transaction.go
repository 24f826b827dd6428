package domain

import (
	"time"

	"github.com/google/uuid"
)

type TransactionType string

const (
	// TransactionTypeCharge debits the account balance by the settlement's
	// net amount.
	TransactionTypeCharge TransactionType = "charge"
	// TransactionTypePayment credits the account balance with the portion of
	// the net amount covered by cash plus applied store credit.
	TransactionTypePayment TransactionType = "payment"
	// TransactionTypeCredit adds an overpayment to the credit balance.
	// Balance before/after on a credit entry refer to the credit balance,
	// not the account balance.
	TransactionTypeCredit TransactionType = "credit"
)

// TransactionMetadata carries context that is not its own ledger entry.
// CreditApplied on a payment entry records how much of the payment amount
// was funded by consuming existing store credit rather than cash.
type TransactionMetadata struct {
	CreditApplied int64 `json:"credit_applied,omitempty"`
}

// Transaction is an append-only ledger entry. Replaying a customer's
// transactions in creation order against their starting balances must
// reproduce the current balances exactly.
type Transaction struct {
	ID             uuid.UUID
	CustomerID     uuid.UUID
	DistributionID uuid.UUID
	Type           TransactionType
	Amount         int64
	BalanceBefore  int64
	BalanceAfter   int64
	Description    string
	Metadata       *TransactionMetadata
	PerformedBy    uuid.UUID
	CreatedAt      time.Time
}
