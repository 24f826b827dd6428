package settlement

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/parceldesk/backend/internal/domain"
)

// AggregateFees verifies a settlement batch and sums its charges. All
// packages must belong to one customer and be in the ready state. Returns
// that customer's id and the total of the four fee components, in minor
// units. No side effects.
func AggregateFees(packages []domain.Package) (uuid.UUID, int64, error) {
	if len(packages) == 0 {
		return uuid.Nil, 0, fmt.Errorf("AggregateFees: %w", domain.ErrEmptyPackageSet)
	}

	customerID := packages[0].CustomerID
	var total int64
	for i := range packages {
		p := &packages[i]
		if p.CustomerID != customerID {
			return uuid.Nil, 0, fmt.Errorf("AggregateFees: package %s: %w", p.ID, domain.ErrMixedCustomers)
		}
		if p.Status != domain.PackageStatusReady {
			return uuid.Nil, 0, fmt.Errorf("AggregateFees: package %s is %s: %w", p.ID, p.Status, domain.ErrPackageNotReady)
		}
		total += p.TotalFees()
	}
	return customerID, total, nil
}
