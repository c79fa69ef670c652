package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/finquery/internal/interfaces"
	"github.com/ternarybob/finquery/internal/models"
)

// QueryLogStorage persists resolution summaries and keyword outcome counters.
type QueryLogStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

var _ interfaces.QueryLogStorage = (*QueryLogStorage)(nil)

// NewQueryLogStorage creates a QueryLogStorage.
func NewQueryLogStorage(db *BadgerDB, logger arbor.ILogger) *QueryLogStorage {
	return &QueryLogStorage{db: db, logger: logger}
}

// SaveRecord stores a record under its ID.
func (s *QueryLogStorage) SaveRecord(ctx context.Context, record *models.QueryLogRecord) error {
	if record.ID == "" {
		return fmt.Errorf("query log record has no ID")
	}
	if err := s.db.Store().Upsert(record.ID, record); err != nil {
		return fmt.Errorf("failed to save query log record: %w", err)
	}
	return nil
}

// ListRecent returns up to limit records, newest first.
func (s *QueryLogStorage) ListRecent(ctx context.Context, outcome string, limit int) ([]models.QueryLogRecord, error) {
	query := badgerhold.Where("ID").Ne("")
	if outcome != "" {
		query = badgerhold.Where("Outcome").Eq(outcome)
	}
	query = query.SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []models.QueryLogRecord
	if err := s.db.Store().Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to list query log records: %w", err)
	}
	return records, nil
}

// IncrementKeyword bumps the counter for keyword under outcome.
func (s *QueryLogStorage) IncrementKeyword(ctx context.Context, keyword, outcome string, at time.Time) error {
	if keyword == "" {
		return nil
	}
	store := s.db.Store()
	key := outcome + "|" + keyword

	return store.Badger().Update(func(tx *badgerdb.Txn) error {
		var lookup models.KeywordLookup
		err := store.TxGet(tx, key, &lookup)
		switch {
		case errors.Is(err, badgerhold.ErrNotFound):
			lookup = models.KeywordLookup{Key: key, Keyword: keyword, Outcome: outcome}
		case err != nil:
			return fmt.Errorf("failed to read keyword counter: %w", err)
		}
		lookup.Count++
		lookup.LastSeenAt = at
		if err := store.TxUpsert(tx, key, &lookup); err != nil {
			return fmt.Errorf("failed to save keyword counter: %w", err)
		}
		return nil
	})
}

// TopKeywords returns the highest-count keywords for outcome. An empty
// outcome covers all outcomes.
func (s *QueryLogStorage) TopKeywords(ctx context.Context, outcome string, limit int) ([]models.KeywordLookup, error) {
	query := badgerhold.Where("Keyword").Ne("")
	if outcome != "" {
		query = badgerhold.Where("Outcome").Eq(outcome)
	}
	query = query.SortBy("Count").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var lookups []models.KeywordLookup
	if err := s.db.Store().Find(&lookups, query); err != nil {
		return nil, fmt.Errorf("failed to list keyword counters: %w", err)
	}
	return lookups, nil
}

// PruneBefore deletes records created before cutoff.
func (s *QueryLogStorage) PruneBefore(ctx context.Context, cutoff time.Time) (int, error) {
	query := badgerhold.Where("CreatedAt").Lt(cutoff)
	count, err := s.db.Store().Count(&models.QueryLogRecord{}, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count expired records: %w", err)
	}
	if count == 0 {
		return 0, nil
	}
	if err := s.db.Store().DeleteMatching(&models.QueryLogRecord{}, badgerhold.Where("CreatedAt").Lt(cutoff)); err != nil {
		return 0, fmt.Errorf("failed to prune query log: %w", err)
	}
	s.logger.Info().Int("removed", int(count)).Str("cutoff", cutoff.Format(time.RFC3339)).Msg("Query log pruned")
	return int(count), nil
}
