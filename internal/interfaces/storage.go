package interfaces

// StorageManager groups the persistent storages behind one database handle.
type StorageManager interface {
	UniverseStorage() UniverseStorage
	QueryLogStorage() QueryLogStorage
	Close() error
}
