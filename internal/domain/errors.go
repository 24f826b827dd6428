package domain

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrEmptyPackageSet      = errors.New("package set is empty")
	ErrMixedCustomers       = errors.New("packages belong to different customers")
	ErrPackageNotReady      = errors.New("package is not ready for distribution")
	ErrNegativeCash         = errors.New("cash tendered must not be negative")
	ErrNegativeWriteOff     = errors.New("write-off must not be negative")
	ErrWriteOffExceedsTotal = errors.New("write-off exceeds total amount")
	ErrVersionConflict      = errors.New("optimistic lock conflict")
	ErrInvalidAmount        = errors.New("invalid monetary amount")
	ErrInvalidRequest       = errors.New("invalid request")
)
