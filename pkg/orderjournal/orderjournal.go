package orderjournal

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

const keyPrefix = "order/"

// ErrNotFound 订单不存在
var ErrNotFound = errors.New("orderjournal: order not found")

// Entry 已提交订单的记录
type Entry struct {
	OrderHash    string    `json:"orderHash"`
	QuoteID      string    `json:"quoteId"`
	ChainID      uint64    `json:"chainId"`
	Swapper      string    `json:"swapper"`
	Deadline     uint64    `json:"deadline"`
	EncodedOrder string    `json:"encodedOrder"`
	Signature    string    `json:"signature"`
	Attempts     int       `json:"attempts"`
	SubmittedAt  time.Time `json:"submittedAt"`
}

// Journal 基于 Badger 的订单日志
type Journal struct {
	db *badger.DB
}

type OpenOptions struct {
	Path     string
	InMemory bool // 测试用
}

func Open(opts OpenOptions) (*Journal, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if strings.TrimSpace(opts.Path) == "" {
			return nil, errors.New("orderjournal: path is required")
		}
		bopts = badger.DefaultOptions(opts.Path)
	}
	db, err := badger.Open(bopts.WithLogger(nil))
	if err != nil {
		return nil, err
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Record 写入（或覆盖）一条订单记录
func (j *Journal) Record(e Entry) error {
	if j == nil || j.db == nil {
		return errors.New("orderjournal: not opened")
	}
	hash := strings.ToLower(strings.TrimSpace(e.OrderHash))
	if hash == "" {
		return errors.New("orderjournal: order hash is empty")
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return j.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+hash), b)
	})
}

// Get 按订单哈希读取
func (j *Journal) Get(orderHash string) (*Entry, error) {
	if j == nil || j.db == nil {
		return nil, errors.New("orderjournal: not opened")
	}
	key := []byte(keyPrefix + strings.ToLower(strings.TrimSpace(orderHash)))
	var out Entry
	err := j.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// List 返回全部记录，按提交时间倒序
func (j *Journal) List() ([]Entry, error) {
	if j == nil || j.db == nil {
		return nil, errors.New("orderjournal: not opened")
	}
	var out []Entry
	err := j.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var e Entry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(a, b int) bool {
		return out[a].SubmittedAt.After(out[b].SubmittedAt)
	})
	return out, nil
}
