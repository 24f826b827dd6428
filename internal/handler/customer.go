package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/parceldesk/backend/internal/domain"
	"github.com/parceldesk/backend/internal/logging"
	"github.com/parceldesk/backend/internal/money"
)

type customerService interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	GetCustomerStatement(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]domain.Transaction, int, error)
	GetCustomerDistributions(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]domain.Distribution, int, error)
}

type CustomerHandler struct {
	customers customerService
}

func NewCustomerHandler(customers customerService) *CustomerHandler {
	return &CustomerHandler{customers: customers}
}

type customerDTO struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	AccountBalance string    `json:"account_balance"`
	CreditBalance  string    `json:"credit_balance"`
}

type transactionDTO struct {
	ID             uuid.UUID `json:"id"`
	DistributionID uuid.UUID `json:"distribution_id"`
	Type           string    `json:"type"`
	Amount         string    `json:"amount"`
	BalanceBefore  string    `json:"balance_before"`
	BalanceAfter   string    `json:"balance_after"`
	Description    string    `json:"description"`
	CreditApplied  *string   `json:"credit_applied,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type pagedResponse struct {
	Items  any `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func toTransactionDTO(t *domain.Transaction) transactionDTO {
	dto := transactionDTO{
		ID:             t.ID,
		DistributionID: t.DistributionID,
		Type:           string(t.Type),
		Amount:         money.Format(t.Amount),
		BalanceBefore:  money.Format(t.BalanceBefore),
		BalanceAfter:   money.Format(t.BalanceAfter),
		Description:    t.Description,
		CreatedAt:      t.CreatedAt,
	}
	if t.Metadata != nil && t.Metadata.CreditApplied > 0 {
		applied := money.Format(t.Metadata.CreditApplied)
		dto.CreditApplied = &applied
	}
	return dto
}

func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	c, err := h.customers.GetCustomer(r.Context(), id)
	if err != nil {
		logging.FromContext(r.Context()).Warn("customer lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, customerDTO{
		ID:             c.ID,
		Name:           c.Name,
		Email:          c.Email,
		AccountBalance: money.Format(c.AccountBalance),
		CreditBalance:  money.Format(c.CreditBalance),
	})
}

func (h *CustomerHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	limit, offset := pagination(r)
	entries, total, err := h.customers.GetCustomerStatement(r.Context(), id, limit, offset)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	items := make([]transactionDTO, len(entries))
	for i := range entries {
		items[i] = toTransactionDTO(&entries[i])
	}

	RespondSuccess(w, http.StatusOK, pagedResponse{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

func (h *CustomerHandler) Distributions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	limit, offset := pagination(r)
	distributions, total, err := h.customers.GetCustomerDistributions(r.Context(), id, limit, offset)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	items := make([]distributionDTO, len(distributions))
	for i := range distributions {
		items[i] = toDistributionDTO(&distributions[i])
	}

	RespondSuccess(w, http.StatusOK, pagedResponse{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	offset = 0
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
