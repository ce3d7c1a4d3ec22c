// Package postgres opens the grain SQL store against PostgreSQL.
package postgres

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"

	"github.com/xraph/grain/store/sqlstore"
)

// Open connects to the PostgreSQL database at dsn.
func Open(dsn string, pool sqlstore.PoolConfig) (*sqlstore.Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("grain/postgres: database URL must not be empty")
	}
	return sqlstore.Open(postgres.Open(dsn), "postgres", pool)
}
