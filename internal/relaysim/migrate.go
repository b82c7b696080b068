package relaysim

import (
	"context"
	"fmt"
	"time"
)

func (s *Server) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`
CREATE TABLE IF NOT EXISTS orders (
  order_hash TEXT PRIMARY KEY,
  chain_id INTEGER NOT NULL,
  swapper TEXT NOT NULL,
  quote_id TEXT NOT NULL,
  deadline INTEGER NOT NULL,
  encoded_order TEXT NOT NULL,
  signature TEXT NOT NULL,
  created_at TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS idx_orders_swapper ON orders(swapper, created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
