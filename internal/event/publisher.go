// Package event delivers post-commit settlement events to in-process
// subscribers. Delivery is best effort: subscriber failures are logged and
// never propagate back to the settlement that produced the event.
package event

import (
	"context"
	"log/slog"

	"github.com/parceldesk/backend/internal/domain"
)

// SettlementCompleted is published after a settlement's atomic unit has
// committed.
type SettlementCompleted struct {
	Distribution *domain.Distribution
}

type Subscriber interface {
	Name() string
	HandleSettlementCompleted(ctx context.Context, ev SettlementCompleted) error
}

type Publisher struct {
	subscribers []Subscriber
	logger      *slog.Logger
}

func NewPublisher(logger *slog.Logger, subscribers ...Subscriber) *Publisher {
	return &Publisher{subscribers: subscribers, logger: logger}
}

func (p *Publisher) Publish(ctx context.Context, ev SettlementCompleted) {
	for _, sub := range p.subscribers {
		if err := sub.HandleSettlementCompleted(ctx, ev); err != nil {
			p.logger.Error("settlement subscriber failed",
				"subscriber", sub.Name(),
				"distribution_id", ev.Distribution.ID,
				"error", err,
			)
		}
	}
}
