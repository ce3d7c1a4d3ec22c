// Package backend opens a grain store by driver name.
package backend

import (
	"fmt"
	"strings"

	"github.com/xraph/grain/store"
	"github.com/xraph/grain/store/memory"
	"github.com/xraph/grain/store/mongo"
	"github.com/xraph/grain/store/postgres"
	"github.com/xraph/grain/store/sqlite"
	"github.com/xraph/grain/store/sqlstore"
)

// Driver names.
const (
	Memory   = "memory"
	SQLite   = "sqlite"
	Postgres = "postgres"
	Mongo    = "mongo"
)

// Drivers lists every supported driver name.
var Drivers = []string{Memory, SQLite, Postgres, Mongo}

// Options selects and tunes a backend.
type Options struct {
	Driver        string
	DSN           string
	MongoDatabase string
	MaxOpenConns  int
}

// Open returns an unmigrated store for opts.Driver. An empty driver means
// memory.
func Open(opts Options) (store.Store, error) {
	pool := sqlstore.PoolConfig{MaxOpenConns: opts.MaxOpenConns}

	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", Memory:
		return memory.New(), nil
	case SQLite:
		s, err := sqlite.Open(opts.DSN, pool)
		if err != nil {
			return nil, err
		}
		return s, nil
	case Postgres:
		s, err := postgres.Open(opts.DSN, pool)
		if err != nil {
			return nil, err
		}
		return s, nil
	case Mongo:
		s, err := mongo.Open(opts.DSN, opts.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("grain: unknown store driver %q (want one of %s)", opts.Driver, strings.Join(Drivers, ", "))
	}
}
