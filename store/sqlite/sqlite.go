// Package sqlite opens the grain SQL store against SQLite.
package sqlite

import (
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"

	"github.com/xraph/grain/store/sqlstore"
)

// MemoryDSN returns a DSN for a named, shared-cache in-memory database.
func MemoryDSN(name string) string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
}

// Open connects to the SQLite database at dsn. SQLite allows one writer at
// a time, so the pool is capped at a single connection unless pool says
// otherwise.
func Open(dsn string, pool sqlstore.PoolConfig) (*sqlstore.Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("grain/sqlite: database path must not be empty")
	}
	if pool.MaxOpenConns == 0 {
		pool.MaxOpenConns = 1
	}
	return sqlstore.Open(sqlite.Open(dsn), "sqlite", pool)
}
