// Package receipt assigns receipt references to committed settlements.
// Document rendering itself is handled elsewhere; this subscriber only
// reserves the reference and links it to the distribution.
package receipt

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/parceldesk/backend/internal/event"
)

type distributionRepo interface {
	SetReceiptRef(ctx context.Context, id uuid.UUID, ref string) error
}

type Generator struct {
	distributions distributionRepo
}

func NewGenerator(distributions distributionRepo) *Generator {
	return &Generator{distributions: distributions}
}

func (g *Generator) Name() string { return "receipt" }

func (g *Generator) HandleSettlementCompleted(ctx context.Context, ev event.SettlementCompleted) error {
	ref := Reference(ev.Distribution.ID, ev.Distribution.CreatedAt)
	if err := g.distributions.SetReceiptRef(ctx, ev.Distribution.ID, ref); err != nil {
		return fmt.Errorf("HandleSettlementCompleted: %w", err)
	}
	return nil
}

// Reference builds a human-quotable receipt number like RCP-20260829-1A2B3C4D.
func Reference(distributionID uuid.UUID, createdAt time.Time) string {
	short := strings.ToUpper(strings.ReplaceAll(distributionID.String(), "-", "")[:8])
	return fmt.Sprintf("RCP-%s-%s", createdAt.UTC().Format("20060102"), short)
}
