package settlement

import "github.com/parceldesk/backend/internal/domain"

// The account balance unconditionally absorbs any shortfall, so the charge
// is recorded even when the customer cannot presently cover it. The
// use_account flag on the API surface is accepted for forward compatibility
// but is not consulted here; see DistributeRequest.UseAccount.
const accountBackstopUnconditional = true

// FundingInput is a snapshot of everything the resolver needs. All amounts
// are minor units.
type FundingInput struct {
	NetAmount      int64
	CashTendered   int64
	CreditBalance  int64
	AccountBalance int64
	UseCredit      bool
}

// FundingPlan is the resolver's decision: how much each source contributes
// and the resulting payment status.
type FundingPlan struct {
	CreditApplied  int64
	AccountApplied int64
	Overpayment    int64
	Status         domain.PaymentStatus
}

// ResolveFunding decides how a settlement's net amount is funded. Order
// matters: cash first, then opted-in store credit capped by both need and
// availability, then the account balance for whatever remains. The account
// draw is never capped; arrears are allowed. Cash or credit beyond the net
// amount becomes overpayment. Pure function.
func ResolveFunding(in FundingInput) FundingPlan {
	var creditApplied int64
	if in.UseCredit {
		creditApplied = min(in.CreditBalance, max(in.NetAmount-in.CashTendered, 0))
	}

	covered := in.CashTendered + creditApplied
	shortfall := max(in.NetAmount-covered, 0)
	overpayment := max(covered-in.NetAmount, 0)

	var status domain.PaymentStatus
	switch {
	case covered >= in.NetAmount:
		status = domain.PaymentStatusPaid
	case covered == 0 && shortfall == in.NetAmount && in.NetAmount > 0:
		status = domain.PaymentStatusUnpaid
	default:
		status = domain.PaymentStatusPartial
	}

	return FundingPlan{
		CreditApplied:  creditApplied,
		AccountApplied: shortfall,
		Overpayment:    overpayment,
		Status:         status,
	}
}
