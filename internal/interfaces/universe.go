package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/finquery/internal/models"
)

// ErrNotFound is returned when a stored record does not exist
var ErrNotFound = errors.New("not found")

// UniverseSource supplies the company universe and override table an alias
// index is built from.
type UniverseSource interface {
	// Name identifies the source in logs and index reports
	Name() string

	// Load returns a fresh copy of the universe
	Load(ctx context.Context) (*models.Universe, error)
}

// UniverseStorage persists an imported universe so the server can rebuild
// the index without the original files.
type UniverseStorage interface {
	UniverseSource

	// ReplaceUniverse deletes all stored records and overrides and saves u
	ReplaceUniverse(ctx context.Context, u *models.Universe) error

	// GetRecord returns the stored record for ticker, or ErrNotFound
	GetRecord(ctx context.Context, ticker string) (*models.UniverseRecord, error)

	// Counts returns the number of stored records and overrides
	Counts(ctx context.Context) (records int, overrides int, err error)
}
