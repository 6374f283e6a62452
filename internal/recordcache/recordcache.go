package recordcache

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

// Records are immutable once posted, so a body cached under its id never
// goes stale. The cache also remembers the last pending record per address
// so `status` can resume tracking after a restart.

const (
	bodyPrefix    = "body:"
	pendingPrefix = "pending:"
)

// Cache wraps a LevelDB connection.
type Cache struct {
	conn *leveldb.DB
}

// Open opens (or creates) a cache at path.
func Open(path string) (*Cache, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open record cache: %w", err)
	}
	return &Cache{conn: db}, nil
}

// OpenMemory returns a cache that lives only as long as the process.
func OpenMemory() (*Cache, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("open record cache: %w", err)
	}
	return &Cache{conn: db}, nil
}

// Close safely closes the LevelDB connection.
func (c *Cache) Close() error {
	return c.conn.Close()
}

// Body returns the cached body for id.
func (c *Cache) Body(id string) ([]byte, bool, error) {
	return c.get(bodyPrefix + id)
}

// PutBody stores a fetched or freshly written body.
func (c *Cache) PutBody(id string, body []byte) error {
	return c.conn.Put([]byte(bodyPrefix+id), body, nil)
}

// Pending returns the last record id written for address.
func (c *Cache) Pending(address string) (string, bool, error) {
	b, ok, err := c.get(pendingPrefix + address)
	return string(b), ok, err
}

// PutPending remembers id as the last write for address.
func (c *Cache) PutPending(address, id string) error {
	return c.conn.Put([]byte(pendingPrefix+address), []byte(id), nil)
}

func (c *Cache) get(key string) ([]byte, bool, error) {
	b, err := c.conn.Get([]byte(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}
