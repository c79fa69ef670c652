package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/finquery/internal/models"
)

// QueryLogStorage stores resolution summaries and per-keyword outcome counts.
type QueryLogStorage interface {
	SaveRecord(ctx context.Context, record *models.QueryLogRecord) error

	// ListRecent returns up to limit records, newest first. An empty outcome matches all.
	ListRecent(ctx context.Context, outcome string, limit int) ([]models.QueryLogRecord, error)

	// IncrementKeyword bumps the counter for keyword under outcome
	IncrementKeyword(ctx context.Context, keyword, outcome string, at time.Time) error

	// TopKeywords returns the highest-count keywords for outcome
	TopKeywords(ctx context.Context, outcome string, limit int) ([]models.KeywordLookup, error)

	// PruneBefore deletes records created before cutoff and returns how many were removed
	PruneBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// QueryRecorder accepts query log records without blocking the caller.
type QueryRecorder interface {
	Record(record *models.QueryLogRecord)
	Close() error
}
