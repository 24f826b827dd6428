// Package notify posts settlement summaries to an external webhook so the
// notification collaborator can inform the customer. Strictly best effort.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/parceldesk/backend/internal/event"
	"github.com/parceldesk/backend/internal/money"
)

type Client struct {
	url    string
	client *http.Client
}

func NewClient(url string) *Client {
	return &Client{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Name() string { return "notify" }

type settlementPayload struct {
	DistributionID  string `json:"distribution_id"`
	CustomerID      string `json:"customer_id"`
	Packages        int    `json:"packages"`
	NetAmount       string `json:"net_amount"`
	AmountCollected string `json:"amount_collected"`
	CreditApplied   string `json:"credit_applied"`
	AccountApplied  string `json:"account_applied"`
	PaymentStatus   string `json:"payment_status"`
	SettledAt       string `json:"settled_at"`
}

func (c *Client) HandleSettlementCompleted(ctx context.Context, ev event.SettlementCompleted) error {
	if c.url == "" {
		return nil
	}

	d := ev.Distribution
	payload := settlementPayload{
		DistributionID:  d.ID.String(),
		CustomerID:      d.CustomerID.String(),
		Packages:        len(d.PackageIDs),
		NetAmount:       money.Format(d.NetAmount),
		AmountCollected: money.Format(d.AmountCollected),
		CreditApplied:   money.Format(d.CreditApplied),
		AccountApplied:  money.Format(d.AccountBalanceApplied),
		PaymentStatus:   string(d.PaymentStatus),
		SettledAt:       d.CreatedAt.UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("HandleSettlementCompleted: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("HandleSettlementCompleted: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("HandleSettlementCompleted: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("HandleSettlementCompleted: webhook returned %d", resp.StatusCode)
	}
	return nil
}
