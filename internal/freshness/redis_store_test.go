package freshness

import (
	"context"
	"strconv"
	"testing"
	"time"

	"RoboInvestor/internal/model"

	"github.com/alicebob/miniredis/v2"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(context.Background(), mr.Addr(), "", 0, "robo-investor-test")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestRedisStore_RoundTrip(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()

	if _, found, err := s.Load(ctx, "XYZ"); err != nil || found {
		t.Fatalf("expected miss, found=%v err=%v", found, err)
	}
	mod := time.Unix(1700000000, 123456789)
	if err := s.Save(ctx, model.CachedPayload{Ticker: "XYZ", Data: []byte("blob"), ModifiedAt: mod}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := mr.HGet("robo-investor-test:XYZ", fieldData); got != "blob" {
		t.Errorf("data field: got %q", got)
	}
	if got := mr.HGet("robo-investor-test:XYZ", fieldModifiedAt); got != strconv.FormatInt(mod.UnixNano(), 10) {
		t.Errorf("modified_at field: got %q", got)
	}

	got, found, err := s.Load(ctx, "XYZ")
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if got.Ticker != "XYZ" || string(got.Data) != "blob" || !got.ModifiedAt.Equal(mod) {
		t.Errorf("unexpected payload %+v", got)
	}

	later := mod.Add(time.Minute)
	if err := s.Save(ctx, model.CachedPayload{Ticker: "XYZ", Data: []byte("newer"), ModifiedAt: later}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, _, err = s.Load(ctx, "XYZ")
	if err != nil || string(got.Data) != "newer" || !got.ModifiedAt.Equal(later) {
		t.Errorf("overwrite not visible: %+v, %v", got, err)
	}
}

func TestRedisStore_CorruptTimestamp(t *testing.T) {
	s, mr := newRedisStore(t)
	mr.HSet("robo-investor-test:BAD", fieldData, "blob", fieldModifiedAt, "yesterday")
	if _, _, err := s.Load(context.Background(), "BAD"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestRedisStore_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	addr := mr.Addr()
	mr.Close()
	if _, err := NewRedisStore(context.Background(), addr, "", 0, "x"); err == nil {
		t.Fatal("expected ping error")
	}
}

func TestCacheOverRedisStore(t *testing.T) {
	s, _ := newRedisStore(t)
	c, clock := newTestCache(s)
	f := &countingFetcher{}
	ctx := context.Background()

	first, err := c.Get(ctx, "XYZ", 15*time.Minute, f.Fetch)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	clock.Advance(15 * time.Minute)
	second, err := c.Get(ctx, "XYZ", 15*time.Minute, f.Fetch)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if f.calls.Load() != 1 || string(second.Data) != string(first.Data) {
		t.Errorf("fresh read should come from redis, calls=%d", f.calls.Load())
	}
	clock.Advance(time.Nanosecond)
	if _, err := c.Get(ctx, "XYZ", 15*time.Minute, f.Fetch); err != nil {
		t.Fatalf("get: %v", err)
	}
	if f.calls.Load() != 2 {
		t.Errorf("stale read should refetch, calls=%d", f.calls.Load())
	}
}
