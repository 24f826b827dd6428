package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/parceldesk/backend/internal/auth"
	"github.com/parceldesk/backend/internal/domain"
	"github.com/parceldesk/backend/internal/logging"
	"github.com/parceldesk/backend/internal/money"
	"github.com/parceldesk/backend/internal/service/settlement"
)

type settlementService interface {
	Distribute(ctx context.Context, req settlement.DistributeRequest) (*domain.Distribution, error)
	GetDistribution(ctx context.Context, id uuid.UUID) (*domain.Distribution, error)
}

type SettlementHandler struct {
	settlements settlementService
}

func NewSettlementHandler(settlements settlementService) *SettlementHandler {
	return &SettlementHandler{settlements: settlements}
}

type createDistributionRequest struct {
	PackageIDs     []string `json:"package_ids"`
	CashTendered   string   `json:"cash_tendered"`
	UseCredit      bool     `json:"use_credit"`
	UseAccount     bool     `json:"use_account"`
	WriteOff       string   `json:"write_off,omitempty"`
	WriteOffReason *string  `json:"write_off_reason,omitempty"`
	Notes          *string  `json:"notes,omitempty"`
}

type parsedDistribution struct {
	packageIDs   []uuid.UUID
	cashTendered int64
	writeOff     int64
}

func (r createDistributionRequest) parse() (parsedDistribution, []FieldError) {
	var errs []FieldError
	var out parsedDistribution

	if len(r.PackageIDs) == 0 {
		errs = append(errs, FieldError{Field: "package_ids", Message: "at least one package is required"})
	}
	for _, raw := range r.PackageIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			errs = append(errs, FieldError{Field: "package_ids", Message: fmt.Sprintf("%q is not a valid id", raw)})
			continue
		}
		out.packageIDs = append(out.packageIDs, id)
	}

	if r.CashTendered == "" {
		errs = append(errs, FieldError{Field: "cash_tendered", Message: "required"})
	} else {
		cash, err := money.Parse(r.CashTendered)
		switch {
		case err != nil:
			errs = append(errs, FieldError{Field: "cash_tendered", Message: "must be a decimal amount"})
		case cash < 0:
			errs = append(errs, FieldError{Field: "cash_tendered", Message: "must not be negative"})
		default:
			out.cashTendered = cash
		}
	}

	if r.WriteOff != "" {
		writeOff, err := money.Parse(r.WriteOff)
		switch {
		case err != nil:
			errs = append(errs, FieldError{Field: "write_off", Message: "must be a decimal amount"})
		case writeOff < 0:
			errs = append(errs, FieldError{Field: "write_off", Message: "must not be negative"})
		default:
			out.writeOff = writeOff
		}
	}

	return out, errs
}

type distributionDTO struct {
	ID                    uuid.UUID   `json:"id"`
	CustomerID            uuid.UUID   `json:"customer_id"`
	PackageIDs            []uuid.UUID `json:"package_ids"`
	TotalAmount           string      `json:"total_amount"`
	WriteOffAmount        string      `json:"write_off_amount"`
	NetAmount             string      `json:"net_amount"`
	AmountCollected       string      `json:"amount_collected"`
	CreditApplied         string      `json:"credit_applied"`
	AccountBalanceApplied string      `json:"account_balance_applied"`
	PaymentStatus         string      `json:"payment_status"`
	WriteOffReason        *string     `json:"write_off_reason,omitempty"`
	Notes                 *string     `json:"notes,omitempty"`
	ReceiptRef            *string     `json:"receipt_ref,omitempty"`
	PerformedBy           uuid.UUID   `json:"performed_by"`
	CreatedAt             time.Time   `json:"created_at"`
}

func toDistributionDTO(d *domain.Distribution) distributionDTO {
	return distributionDTO{
		ID:                    d.ID,
		CustomerID:            d.CustomerID,
		PackageIDs:            d.PackageIDs,
		TotalAmount:           money.Format(d.TotalAmount),
		WriteOffAmount:        money.Format(d.WriteOffAmount),
		NetAmount:             money.Format(d.NetAmount),
		AmountCollected:       money.Format(d.AmountCollected),
		CreditApplied:         money.Format(d.CreditApplied),
		AccountBalanceApplied: money.Format(d.AccountBalanceApplied),
		PaymentStatus:         string(d.PaymentStatus),
		WriteOffReason:        d.WriteOffReason,
		Notes:                 d.Notes,
		ReceiptRef:            d.ReceiptRef,
		PerformedBy:           d.PerformedBy,
		CreatedAt:             d.CreatedAt,
	}
}

func (h *SettlementHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	adminID, ok := auth.AdminIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req createDistributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	parsed, fields := req.parse()
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	d, err := h.settlements.Distribute(r.Context(), settlement.DistributeRequest{
		PackageIDs:     parsed.packageIDs,
		CashTendered:   parsed.cashTendered,
		PerformedBy:    adminID,
		UseCredit:      req.UseCredit,
		UseAccount:     req.UseAccount,
		WriteOff:       parsed.writeOff,
		WriteOffReason: req.WriteOffReason,
		Notes:          req.Notes,
	})
	if err != nil {
		log.Warn("settlement failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/distributions/%s", d.ID))
	RespondSuccess(w, http.StatusCreated, toDistributionDTO(d))
}

func (h *SettlementHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	d, err := h.settlements.GetDistribution(r.Context(), id)
	if err != nil {
		logging.FromContext(r.Context()).Warn("distribution lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toDistributionDTO(d))
}
