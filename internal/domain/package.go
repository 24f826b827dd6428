package domain

import (
	"time"

	"github.com/google/uuid"
)

type PackageStatus string

const (
	PackageStatusReceived    PackageStatus = "received"
	PackageStatusReady       PackageStatus = "ready"
	PackageStatusDistributed PackageStatus = "distributed"
)

// Package is an inbound shipment awaiting release. Only packages in the
// ready state are eligible for settlement; distribution is terminal.
// All fee amounts are minor units.
type Package struct {
	ID             uuid.UUID
	CustomerID     uuid.UUID
	TrackingNumber string
	FreightFee     int64
	CustomsFee     int64
	StorageFee     int64
	DeliveryFee    int64
	Status         PackageStatus
	CreatedAt      time.Time
	DistributedAt  *time.Time
}

// TotalFees sums the four fee components of a single package.
func (p *Package) TotalFees() int64 {
	return p.FreightFee + p.CustomsFee + p.StorageFee + p.DeliveryFee
}
