package orderjournal

import (
	"errors"
	"testing"
	"time"
)

func TestJournal_RecordGetList(t *testing.T) {
	j, err := Open(OpenOptions{InMemory: true})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer j.Close()

	base := time.Unix(1_700_000_000, 0).UTC()
	for i, hash := range []string{"0xAAA", "0xbbb", "0xccc"} {
		err := j.Record(Entry{
			OrderHash:   hash,
			QuoteID:     "q",
			ChainID:     1,
			Deadline:    uint64(100 + i),
			Attempts:    1,
			SubmittedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("record %s: %v", hash, err)
		}
	}

	// 查询不区分大小写
	e, err := j.Get("0xaaa")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if e.OrderHash != "0xAAA" || e.Deadline != 100 {
		t.Fatalf("unexpected entry: %+v", e)
	}

	if _, err := j.Get("0xdead"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	list, err := j.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len=%d", len(list))
	}
	if list[0].OrderHash != "0xccc" || list[2].OrderHash != "0xAAA" {
		t.Fatalf("list not newest first: %v, %v", list[0].OrderHash, list[2].OrderHash)
	}
}

func TestJournal_Errors(t *testing.T) {
	if _, err := Open(OpenOptions{}); err == nil {
		t.Fatalf("expected error without path")
	}
	var j *Journal
	if err := j.Record(Entry{OrderHash: "0x1"}); err == nil {
		t.Fatalf("expected error on nil journal")
	}
	if err := j.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}

	j, err := Open(OpenOptions{InMemory: true})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer j.Close()
	if err := j.Record(Entry{}); err == nil {
		t.Fatalf("expected error for empty hash")
	}
}
