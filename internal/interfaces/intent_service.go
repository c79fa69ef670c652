package interfaces

import (
	"context"

	"github.com/ternarybob/finquery/internal/models"
)

// IntentService turns a free-text question into a structured intent.
type IntentService interface {
	// Resolve never fails on unrecognised text; the only error is ctx cancellation
	Resolve(ctx context.Context, text string, anchor models.PeriodAnchor) (*models.StructuredIntent, error)
}
