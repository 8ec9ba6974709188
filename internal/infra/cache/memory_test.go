package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryOnceRunsOnlyOnce(t *testing.T) {
	c := NewMemory()
	calls := 0
	fn := func() error { calls++; return nil }
	for i := 0; i < 3; i++ {
		if err := c.Once(context.Background(), "broadcast:2026-10-14", time.Hour, fn); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestMemoryOnceReleasesKeyOnError(t *testing.T) {
	c := NewMemory()
	boom := errors.New("boom")
	if err := c.Once(context.Background(), "k", time.Hour, func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	ran := false
	if err := c.Once(context.Background(), "k", time.Hour, func() error { ran = true; return nil }); err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Fatal("expected retry after failed run")
	}
}

func TestMemoryOnceExpires(t *testing.T) {
	c := NewMemory()
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	calls := 0
	fn := func() error { calls++; return nil }
	_ = c.Once(context.Background(), "k", time.Minute, fn)
	now = now.Add(2 * time.Minute)
	_ = c.Once(context.Background(), "k", time.Minute, fn)
	if calls != 2 {
		t.Fatalf("expected key to expire, got %d calls", calls)
	}
}
