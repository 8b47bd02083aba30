package typed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	c "github.com/unkn0wn-root/dotstore/codec"
	"github.com/unkn0wn-root/dotstore/provider/lru"
)

type view struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func newTestCache(t *testing.T, loader LoadFunc[view]) *Cache[view] {
	t.Helper()
	tc, err := New[view](Options[view]{
		Namespace: "view",
		Provider:  lru.New(lru.Config{}),
		Codec:     c.JSON[view]{},
		Loader:    loader,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tc
}

func TestSetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	tc := newTestCache(t, nil)
	defer tc.Close(ctx)

	want := view{ID: "1", Title: "hello"}
	if err := tc.Set(ctx, "v:1", want, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := tc.Get(ctx, "v:1")
	if err != nil || !ok || got != want {
		t.Fatalf("Get: ok=%v err=%v got=%v", ok, err, got)
	}
}

func TestGetSelfHealsCorruptPayload(t *testing.T) {
	ctx := context.Background()
	p := lru.New(lru.Config{})
	tc, err := New[view](Options[view]{Namespace: "view", Provider: p, Codec: c.JSON[view]{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer tc.Close(ctx)

	// Foreign bytes under the cache's key.
	if _, err := p.Set(ctx, "view:bad", []byte("not json"), 0, 0); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, ok, err := tc.Get(ctx, "bad"); err != nil || ok {
		t.Fatalf("Get corrupt: ok=%v err=%v", ok, err)
	}
	// Entry deleted, not just skipped.
	if _, ok, _ := p.Get(ctx, "view:bad"); ok {
		t.Fatal("corrupt entry survived self-heal")
	}
}

func TestGetOrLoadCoalesces(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	gate := make(chan struct{})
	tc := newTestCache(t, func(_ context.Context, key string) (view, error) {
		calls.Add(1)
		<-gate
		return view{ID: key, Title: "loaded"}, nil
	})
	defer tc.Close(ctx)

	const n = 8
	var wg sync.WaitGroup
	results := make([]view, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := tc.GetOrLoad(ctx, "k")
			if err != nil {
				t.Errorf("GetOrLoad: %v", err)
			}
			results[i] = v
		}(i)
	}
	time.Sleep(20 * time.Millisecond) // let every goroutine join the flight
	close(gate)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("loader ran %d times, want 1", got)
	}
	for _, v := range results {
		if v.Title != "loaded" {
			t.Fatalf("bad result %v", v)
		}
	}
}

func TestGetOrLoadPropagatesLoaderError(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	tc := newTestCache(t, func(context.Context, string) (view, error) {
		return view{}, boom
	})
	defer tc.Close(ctx)

	if _, err := tc.GetOrLoad(ctx, "k"); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestGetOrLoadWithoutLoaderFails(t *testing.T) {
	ctx := context.Background()
	tc := newTestCache(t, nil)
	defer tc.Close(ctx)
	if _, err := tc.GetOrLoad(ctx, "k"); err == nil {
		t.Fatal("expected error without loader")
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New[view](Options[view]{}); err == nil {
		t.Fatal("expected error for empty options")
	}
	if _, err := New[view](Options[view]{Namespace: "x", Provider: lru.New(lru.Config{})}); err == nil {
		t.Fatal("expected error for missing codec")
	}
}
