package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"dompet/internal/kv"
)

func TestMemoryStoreSetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	if _, ok, err := s.Get(ctx, kv.KeyBalance); ok || err != nil {
		t.Fatalf("expected missing key, ok=%v err=%v", ok, err)
	}
	if err := s.SetMany(ctx, map[string]string{kv.KeyBalance: "10", kv.KeyTransactions: "[]"}); err != nil {
		t.Fatalf("set many: %v", err)
	}
	if v, ok, _ := s.Get(ctx, kv.KeyBalance); !ok || v != "10" {
		t.Fatalf("unexpected balance %q ok=%v", v, ok)
	}
	if err := s.Delete(ctx, kv.KeyBalance); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if s.Keys() != 1 {
		t.Fatalf("expected 1 key left, got %d", s.Keys())
	}
}

func TestMemoryStoreSeedIsCopied(t *testing.T) {
	seed := map[string]string{"a": "1"}
	s := New(seed)
	seed["a"] = "2"
	if v, _, _ := s.Get(context.Background(), "a"); v != "1" {
		t.Fatalf("store shares seed map: %q", v)
	}
}

func TestNewFromFile(t *testing.T) {
	s, err := NewFromFile("")
	if err != nil || s.Keys() != 0 {
		t.Fatalf("expected empty store, keys=%d err=%v", s.Keys(), err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "seed.env")
	content := "# starting ledger\nbalance=150000\ntransactions='[]'\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s, err = NewFromFile(path)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if v, _, _ := s.Get(context.Background(), kv.KeyBalance); v != "150000" {
		t.Fatalf("unexpected balance %q", v)
	}
	if v, _, _ := s.Get(context.Background(), kv.KeyTransactions); v != "[]" {
		t.Fatalf("unexpected transactions %q", v)
	}

	if _, err := NewFromFile(filepath.Join(dir, "missing.env")); err == nil {
		t.Fatalf("expected error for missing seed file")
	}
}

func TestClosedStore(t *testing.T) {
	s := New(nil)
	_ = s.Close()
	if err := s.Set(context.Background(), "k", "v"); !errors.Is(err, kv.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := s.Ping(context.Background()); !errors.Is(err, kv.ErrClosed) {
		t.Fatalf("expected ping to fail after close, got %v", err)
	}
}

func TestUpdateIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := New(map[string]string{"counter": "0"})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				err := s.Update(ctx, func(get kv.GetFunc) (map[string]string, error) {
					raw, _, _ := get("counter")
					n, _ := strconv.Atoi(raw)
					return map[string]string{"counter": strconv.Itoa(n + 1)}, nil
				})
				if err != nil {
					t.Errorf("update: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if v, _, _ := s.Get(ctx, "counter"); v != "400" {
		t.Fatalf("lost updates: counter=%s", v)
	}
}

func TestUpdateErrorWritesNothing(t *testing.T) {
	ctx := context.Background()
	s := New(map[string]string{kv.KeyBalance: "10"})
	errStop := errors.New("stop")

	err := s.Update(ctx, func(kv.GetFunc) (map[string]string, error) {
		return map[string]string{kv.KeyBalance: "0"}, errStop
	})
	if !errors.Is(err, errStop) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if v, _, _ := s.Get(ctx, kv.KeyBalance); v != "10" {
		t.Fatalf("failed update wrote %q", v)
	}
}
