package testutil

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/parceldesk/backend/internal/domain"
)

func SeedAdmin(t *testing.T, db *sql.DB) *domain.Admin {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	a := &domain.Admin{
		ID:           uuid.New(),
		Email:        fmt.Sprintf("admin-%s@parceldesk.test", uuid.NewString()[:8]),
		Name:         "Test Admin",
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	_, err = db.Exec(
		`INSERT INTO admins (id, email, name, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.Email, a.Name, a.PasswordHash, a.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	return a
}

func SeedCustomer(t *testing.T, db *sql.DB, accountBalance, creditBalance int64) *domain.Customer {
	t.Helper()

	c := &domain.Customer{
		ID:             uuid.New(),
		Name:           "Test Customer",
		Email:          fmt.Sprintf("customer-%s@parceldesk.test", uuid.NewString()[:8]),
		AccountBalance: accountBalance,
		CreditBalance:  creditBalance,
		Version:        0,
		CreatedAt:      time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO customers (id, name, email, account_balance, credit_balance, version, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.Name, c.Email, c.AccountBalance, c.CreditBalance, c.Version, c.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return c
}

// SeedPackage inserts a ready package with the given fee split.
func SeedPackage(t *testing.T, db *sql.DB, customerID uuid.UUID, freight, customs, storage, delivery int64) *domain.Package {
	t.Helper()
	return SeedPackageWithStatus(t, db, customerID, freight, customs, storage, delivery, domain.PackageStatusReady)
}

func SeedPackageWithStatus(t *testing.T, db *sql.DB, customerID uuid.UUID, freight, customs, storage, delivery int64, status domain.PackageStatus) *domain.Package {
	t.Helper()

	p := &domain.Package{
		ID:             uuid.New(),
		CustomerID:     customerID,
		TrackingNumber: fmt.Sprintf("PD-%s", uuid.NewString()[:12]),
		FreightFee:     freight,
		CustomsFee:     customs,
		StorageFee:     storage,
		DeliveryFee:    delivery,
		Status:         status,
		CreatedAt:      time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO packages (
			id, customer_id, tracking_number, freight_fee, customs_fee,
			storage_fee, delivery_fee, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.CustomerID, p.TrackingNumber, p.FreightFee, p.CustomsFee,
		p.StorageFee, p.DeliveryFee, p.Status, p.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed package: %v", err)
	}
	return p
}

func GetBalances(t *testing.T, db *sql.DB, customerID uuid.UUID) (accountBalance, creditBalance int64) {
	t.Helper()

	err := db.QueryRow(
		`SELECT account_balance, credit_balance FROM customers WHERE id = $1`, customerID,
	).Scan(&accountBalance, &creditBalance)
	if err != nil {
		t.Fatalf("get balances %s: %v", customerID, err)
	}
	return accountBalance, creditBalance
}

func GetPackageStatus(t *testing.T, db *sql.DB, packageID uuid.UUID) domain.PackageStatus {
	t.Helper()

	var status domain.PackageStatus
	err := db.QueryRow(`SELECT status FROM packages WHERE id = $1`, packageID).Scan(&status)
	if err != nil {
		t.Fatalf("get package status %s: %v", packageID, err)
	}
	return status
}

func CountTransactions(t *testing.T, db *sql.DB, distributionID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM transactions WHERE distribution_id = $1`, distributionID,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count transactions for distribution %s: %v", distributionID, err)
	}
	return count
}
