package domain

import (
	"time"

	"github.com/google/uuid"
)

// Customer carries the two balance pools the settlement engine reconciles
// against. AccountBalance is a signed running balance and may go negative
// (arrears). CreditBalance is a non-negative store-credit pool. Both are
// mutated only through the settlement transaction; Version backs the
// compare-and-swap on that write.
type Customer struct {
	ID             uuid.UUID
	Name           string
	Email          string
	Phone          *string
	AccountBalance int64
	CreditBalance  int64
	Version        int64
	CreatedAt      time.Time
}
