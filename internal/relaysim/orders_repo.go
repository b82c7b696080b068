package relaysim

import (
	"context"
	"errors"
	"strings"
	"time"
)

var errDuplicateOrder = errors.New("order already exists")

// StoredOrder relay 已接收的订单
type StoredOrder struct {
	OrderHash    string    `json:"orderHash"`
	ChainID      uint64    `json:"chainId"`
	Swapper      string    `json:"swapper"`
	QuoteID      string    `json:"quoteId"`
	Deadline     uint64    `json:"deadline"`
	EncodedOrder string    `json:"encodedOrder"`
	Signature    string    `json:"signature"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (s *Server) insertOrder(ctx context.Context, o StoredOrder) error {
	res, err := s.db.ExecContext(ctx, `
INSERT OR IGNORE INTO orders (order_hash,chain_id,swapper,quote_id,deadline,encoded_order,signature,created_at)
VALUES (?,?,?,?,?,?,?,?)
`, o.OrderHash, o.ChainID, strings.ToLower(o.Swapper), o.QuoteID, o.Deadline, o.EncodedOrder, o.Signature, o.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errDuplicateOrder
	}
	return nil
}

func (s *Server) listOrders(ctx context.Context, swapper string, limit int) ([]StoredOrder, error) {
	query := `
SELECT order_hash,chain_id,swapper,quote_id,deadline,encoded_order,signature,created_at
FROM orders`
	var args []interface{}
	if swapper != "" {
		query += ` WHERE swapper=?`
		args = append(args, strings.ToLower(swapper))
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []StoredOrder{}
	for rows.Next() {
		var o StoredOrder
		var created string
		if err := rows.Scan(&o.OrderHash, &o.ChainID, &o.Swapper, &o.QuoteID, &o.Deadline, &o.EncodedOrder, &o.Signature, &created); err != nil {
			return nil, err
		}
		o.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, o)
	}
	return out, rows.Err()
}
