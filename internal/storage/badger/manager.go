package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/finquery/internal/common"
	"github.com/ternarybob/finquery/internal/interfaces"
)

// Manager implements interfaces.StorageManager on a single badger database.
type Manager struct {
	db       *BadgerDB
	universe *UniverseStorage
	queryLog *QueryLogStorage
	logger   arbor.ILogger
}

// NewManager opens the database and creates the storages on top of it.
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}
	return newManager(db, logger), nil
}

func newManager(db *BadgerDB, logger arbor.ILogger) *Manager {
	return &Manager{
		db:       db,
		universe: NewUniverseStorage(db, logger),
		queryLog: NewQueryLogStorage(db, logger),
		logger:   logger,
	}
}

// UniverseStorage returns the universe storage.
func (m *Manager) UniverseStorage() interfaces.UniverseStorage {
	return m.universe
}

// QueryLogStorage returns the query log storage.
func (m *Manager) QueryLogStorage() interfaces.QueryLogStorage {
	return m.queryLog
}

// Close closes the database.
func (m *Manager) Close() error {
	if err := m.db.Close(); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to close badger database")
		return err
	}
	m.logger.Debug().Msg("Badger storage closed")
	return nil
}
