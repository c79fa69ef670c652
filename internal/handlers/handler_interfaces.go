package handlers

import (
	"context"

	"github.com/ternarybob/finquery/internal/models"
	"github.com/ternarybob/finquery/internal/services/aliases"
)

// IndexProvider serves and rebuilds the alias index. *aliases.Holder satisfies it.
type IndexProvider interface {
	Snapshot() *aliases.Snapshot
	Rebuild(ctx context.Context) (aliases.BuildReport, error)
}

// NumberAttributor attributes numbers in text to metric mentions.
// *metrics.Matcher satisfies it.
type NumberAttributor interface {
	AttributeNumbers(text string) ([]models.NumberAttribution, []string)
}
