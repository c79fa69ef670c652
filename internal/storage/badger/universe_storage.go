package badger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/finquery/internal/common"
	"github.com/ternarybob/finquery/internal/interfaces"
	"github.com/ternarybob/finquery/internal/models"
)

// UniverseStorage keeps an imported universe so the alias index can be
// rebuilt without the original files.
type UniverseStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

var _ interfaces.UniverseStorage = (*UniverseStorage)(nil)

// NewUniverseStorage creates a UniverseStorage.
func NewUniverseStorage(db *BadgerDB, logger arbor.ILogger) *UniverseStorage {
	return &UniverseStorage{db: db, logger: logger}
}

// Name identifies the source in logs and index reports.
func (s *UniverseStorage) Name() string {
	return "badger:" + s.db.Path()
}

// Load returns the stored universe in its original file order.
func (s *UniverseStorage) Load(ctx context.Context) (*models.Universe, error) {
	var records []models.UniverseRecord
	if err := s.db.Store().Find(&records, badgerhold.Where("Position").Ge(0).SortBy("Position")); err != nil {
		return nil, fmt.Errorf("failed to load universe records: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var overrides []models.ManualOverride
	if err := s.db.Store().Find(&overrides, badgerhold.Where("Position").Ge(0).SortBy("Position")); err != nil {
		return nil, fmt.Errorf("failed to load overrides: %w", err)
	}
	return &models.Universe{Records: records, Overrides: overrides}, nil
}

// ReplaceUniverse swaps the stored universe for u in a single transaction.
func (s *UniverseStorage) ReplaceUniverse(ctx context.Context, u *models.Universe) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	store := s.db.Store()
	now := time.Now().UTC()

	err := store.Badger().Update(func(tx *badgerdb.Txn) error {
		if err := store.TxDeleteMatching(tx, &models.UniverseRecord{}, nil); err != nil {
			return fmt.Errorf("failed to clear records: %w", err)
		}
		if err := store.TxDeleteMatching(tx, &models.ManualOverride{}, nil); err != nil {
			return fmt.Errorf("failed to clear overrides: %w", err)
		}
		for i, rec := range u.Records {
			rec.Ticker = storageKey(rec.Ticker)
			rec.Position = i
			rec.UpdatedAt = now
			if err := store.TxUpsert(tx, rec.Ticker, &rec); err != nil {
				return fmt.Errorf("failed to save record %s: %w", rec.Ticker, err)
			}
		}
		for i, o := range u.Overrides {
			if o.ID == "" {
				o.ID = o.Key()
			}
			o.Position = i
			if err := store.TxUpsert(tx, o.ID, &o); err != nil {
				return fmt.Errorf("failed to save override %q: %w", o.Phrase, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info().
		Int("records", len(u.Records)).
		Int("overrides", len(u.Overrides)).
		Msg("Universe stored")
	return nil
}

// GetRecord returns the stored record for ticker.
func (s *UniverseStorage) GetRecord(ctx context.Context, ticker string) (*models.UniverseRecord, error) {
	var rec models.UniverseRecord
	err := s.db.Store().Get(storageKey(ticker), &rec)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return &rec, nil
}

// Counts returns the number of stored records and overrides.
func (s *UniverseStorage) Counts(ctx context.Context) (int, int, error) {
	records, err := s.db.Store().Count(&models.UniverseRecord{}, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count records: %w", err)
	}
	overrides, err := s.db.Store().Count(&models.ManualOverride{}, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count overrides: %w", err)
	}
	return int(records), int(overrides), nil
}

// storageKey is the canonical symbol, so "NASDAQ:AAPL" and "aapl" share a key.
func storageKey(ticker string) string {
	if t := common.ParseTicker(ticker); t.IsValid() {
		return t.Symbol()
	}
	return strings.ToUpper(strings.TrimSpace(ticker))
}
