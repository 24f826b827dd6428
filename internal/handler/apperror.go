package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken       = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken       = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidCredentials = &AppError{http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password"}
	ErrInvalidRequest     = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed   = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound   = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError      = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrEmptyPackageSet      = &AppError{http.StatusBadRequest, "EMPTY_PACKAGE_SET", "At least one package is required"}
	ErrMixedCustomers       = &AppError{http.StatusBadRequest, "MIXED_CUSTOMERS", "Packages belong to different customers"}
	ErrPackageNotReady      = &AppError{http.StatusUnprocessableEntity, "PACKAGE_NOT_READY", "Package is not ready for distribution"}
	ErrNegativeCash         = &AppError{http.StatusBadRequest, "NEGATIVE_CASH", "Cash tendered must not be negative"}
	ErrNegativeWriteOff     = &AppError{http.StatusBadRequest, "NEGATIVE_WRITE_OFF", "Write-off must not be negative"}
	ErrWriteOffExceedsTotal = &AppError{http.StatusBadRequest, "WRITE_OFF_EXCEEDS_TOTAL", "Write-off exceeds the total amount"}
	ErrInvalidAmount        = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount is not a valid monetary value"}
	ErrVersionConflict      = &AppError{http.StatusConflict, "VERSION_CONFLICT", "Customer was modified concurrently, please retry"}
)
