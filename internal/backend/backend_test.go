package backend_test

import (
	"context"
	"testing"

	"github.com/xraph/grain/internal/backend"
	"github.com/xraph/grain/store/memory"
	"github.com/xraph/grain/store/sqlite"
	"github.com/xraph/grain/store/sqlstore"
)

func TestOpen(t *testing.T) {
	t.Run("empty driver is memory", func(t *testing.T) {
		s, err := backend.Open(backend.Options{})
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := s.(*memory.Store); !ok {
			t.Errorf("store = %T, want *memory.Store", s)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		s, err := backend.Open(backend.Options{Driver: "SQLite", DSN: sqlite.MemoryDSN("backend_test")})
		if err != nil {
			t.Fatal(err)
		}
		defer s.Close()
		if _, ok := s.(*sqlstore.Store); !ok {
			t.Errorf("store = %T, want *sqlstore.Store", s)
		}
		if err := s.Migrate(context.Background()); err != nil {
			t.Errorf("migrate: %v", err)
		}
	})

	t.Run("unknown driver", func(t *testing.T) {
		if _, err := backend.Open(backend.Options{Driver: "oracle"}); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("postgres needs a dsn", func(t *testing.T) {
		if _, err := backend.Open(backend.Options{Driver: backend.Postgres}); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("mongo needs a uri", func(t *testing.T) {
		if _, err := backend.Open(backend.Options{Driver: backend.Mongo}); err == nil {
			t.Error("expected error")
		}
	})
}
