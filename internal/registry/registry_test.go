package registry

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"RoboInvestor/internal/model"
	"RoboInvestor/internal/storage"
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "registry.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	r, err := New(db)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return r
}

func TestPutAndList_KeepsInsertionOrder(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()

	if err := r.Put(ctx, model.Instrument{Ticker: "MSFT", Threshold: 400}, model.Instrument{Ticker: "AAPL", Threshold: 180}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := r.Put(ctx, model.Instrument{Ticker: "BRK.B", Threshold: 350}); err != nil {
		t.Fatalf("put: %v", err)
	}
	// Update keeps position.
	if err := r.Put(ctx, model.Instrument{Ticker: "MSFT", Threshold: 410}); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := r.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []model.Instrument{
		{Ticker: "MSFT", Threshold: 410},
		{Ticker: "AAPL", Threshold: 180},
		{Ticker: "BRK.B", Threshold: 350},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestTickersAreCaseSensitive(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()
	if err := r.Put(ctx, model.Instrument{Ticker: "abc", Threshold: 1}, model.Instrument{Ticker: "ABC", Threshold: 2}); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, _ := r.List(ctx)
	if len(got) != 2 {
		t.Errorf("expected 2 distinct instruments, got %+v", got)
	}
}

func TestPut_RejectsEmptyTicker(t *testing.T) {
	r := newRegistry(t)
	if err := r.Put(context.Background(), model.Instrument{Threshold: 1}); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseInstrument(t *testing.T) {
	got, err := ParseInstrument("AAPL:180.5")
	if err != nil || got != (model.Instrument{Ticker: "AAPL", Threshold: 180.5}) {
		t.Errorf("got %+v, %v", got, err)
	}
	for _, bad := range []string{"AAPL", ":10", "AAPL:ten"} {
		if _, err := ParseInstrument(bad); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}
