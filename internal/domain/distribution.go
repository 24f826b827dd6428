package domain

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusUnpaid  PaymentStatus = "unpaid"
)

// Distribution is the immutable record of one settlement event: which
// packages were released, what was owed, and how the amount owed was
// reconciled across cash, store credit, and the account balance.
// Monetary fields are never updated after creation; the only field
// populated later is ReceiptRef, written by the receipt collaborator
// after commit.
type Distribution struct {
	ID                    uuid.UUID
	CustomerID            uuid.UUID
	PackageIDs            []uuid.UUID
	TotalAmount           int64
	WriteOffAmount        int64
	NetAmount             int64
	AmountCollected       int64
	CreditApplied         int64
	AccountBalanceApplied int64
	PaymentStatus         PaymentStatus
	WriteOffReason        *string
	Notes                 *string
	ReceiptRef            *string
	PerformedBy           uuid.UUID
	CreatedAt             time.Time
}
