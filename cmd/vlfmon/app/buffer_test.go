package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func indexes(results []*BlockResult) []int {
	out := make([]int, len(results))
	for i, r := range results {
		out[i] = r.Index
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBlockBuffer_Ordering(t *testing.T) {
	b, err := NewBlockBuffer(10)
	if err != nil {
		t.Fatalf("Failed to create buffer: %v", err)
	}

	for _, i := range []int{3, 1, 4, 0, 2, 6} {
		if err := b.Insert(&BlockResult{Index: i}); err != nil {
			t.Errorf("Failed to insert block %d: %v", i, err)
		}
	}

	if size := b.Size(); size != 6 {
		t.Errorf("Expected buffer size 6, got %d", size)
	}

	got := indexes(b.Flush())
	if want := []int{0, 1, 2, 3, 4}; !equalInts(got, want) {
		t.Errorf("Expected flushed blocks %v, got %v", want, got)
	}

	// Block 5 is still missing.
	if got := b.Flush(); got != nil {
		t.Errorf("Expected nothing to flush, got %v", indexes(got))
	}

	if err := b.Insert(&BlockResult{Index: 5}); err != nil {
		t.Fatalf("Failed to insert block 5: %v", err)
	}
	got = indexes(b.Flush())
	if want := []int{5, 6}; !equalInts(got, want) {
		t.Errorf("Expected flushed blocks %v, got %v", want, got)
	}
	if released := b.Released(); released != 7 {
		t.Errorf("Expected 7 released blocks, got %d", released)
	}
}

func TestBlockBuffer_InsertErrors(t *testing.T) {
	b, err := NewBlockBuffer(2)
	if err != nil {
		t.Fatalf("Failed to create buffer: %v", err)
	}

	tests := []struct {
		name   string
		result *BlockResult
		ok     bool
	}{
		{"first", &BlockResult{Index: 1}, true},
		{"nil", nil, false},
		{"duplicate", &BlockResult{Index: 1}, false},
		{"head", &BlockResult{Index: 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := b.Insert(tt.result)
			if tt.ok && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("Expected an error")
			}
		})
	}

	if !b.IsFull() {
		t.Error("Expected buffer to be full")
	}

	b.Flush()
	if err := b.Insert(&BlockResult{Index: 0}); err == nil {
		t.Error("Expected released block to be rejected")
	}
}

func TestBlockBuffer_DrainAll(t *testing.T) {
	b, err := NewBlockBuffer(4)
	if err != nil {
		t.Fatalf("Failed to create buffer: %v", err)
	}

	if got := b.DrainAll(); got != nil {
		t.Errorf("Expected nil from empty buffer, got %v", got)
	}

	for _, i := range []int{4, 2} {
		if err := b.Insert(&BlockResult{Index: i}); err != nil {
			t.Fatalf("Failed to insert block %d: %v", i, err)
		}
	}

	got := indexes(b.DrainAll())
	if want := []int{2, 4}; !equalInts(got, want) {
		t.Errorf("Expected drained blocks %v, got %v", want, got)
	}
	if b.Size() != 0 || b.Released() != 5 {
		t.Errorf("Expected empty buffer released up to 5, got size %d released %d", b.Size(), b.Released())
	}
}

func TestBlockBuffer_Concurrent(t *testing.T) {
	const n = 200

	b, err := NewBlockBuffer(n)
	if err != nil {
		t.Fatalf("Failed to create buffer: %v", err)
	}

	var wg sync.WaitGroup
	for i := n - 1; i >= 0; i-- {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := b.Insert(&BlockResult{Index: i}); err != nil {
				t.Errorf("Failed to insert block %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	got := b.Flush()
	if len(got) != n {
		t.Fatalf("Expected %d results, got %d", n, len(got))
	}
	for i, r := range got {
		if r.Index != i {
			t.Fatalf("Result %d has index %d", i, r.Index)
		}
	}
}

func TestBlockBuffer_Wait(t *testing.T) {
	b, err := NewBlockBuffer(2)
	if err != nil {
		t.Fatalf("Failed to create buffer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := b.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled without inserts, got %v", err)
	}

	if err := b.Insert(&BlockResult{Index: 3}); err != nil {
		t.Fatalf("Failed to insert block: %v", err)
	}
	if err := b.Wait(context.Background()); err != nil {
		t.Errorf("Expected Wait to return after an insert, got %v", err)
	}
}

func TestDrainBuffer_HoldsWhileFull(t *testing.T) {
	b, err := NewBlockBuffer(2)
	if err != nil {
		t.Fatalf("Failed to create buffer: %v", err)
	}

	// Block 0 is still being demodulated while later blocks pile up.
	for _, i := range []int{2, 1} {
		if err := b.Insert(&BlockResult{Index: i}); err != nil {
			t.Fatalf("Failed to insert block %d: %v", i, err)
		}
	}

	var mu sync.Mutex
	var consumed []int
	consume := func(_ context.Context, results []*BlockResult) error {
		mu.Lock()
		defer mu.Unlock()
		consumed = append(consumed, indexes(results)...)
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- drainBuffer(context.Background(), b, consume)
	}()

	select {
	case err := <-done:
		t.Fatalf("Expected drain to wait for block 0, returned %v with size %d", err, b.Size())
	case <-time.After(50 * time.Millisecond):
	}

	if err := b.Insert(&BlockResult{Index: 0}); err != nil {
		t.Fatalf("Failed to insert block 0: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Unexpected drain error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Drain did not return after block 0 arrived")
	}

	mu.Lock()
	defer mu.Unlock()
	if want := []int{0, 1, 2}; !equalInts(consumed, want) {
		t.Errorf("Expected consumed blocks %v, got %v", want, consumed)
	}
	if b.Size() != 0 || b.IsFull() {
		t.Errorf("Expected an empty buffer, got size %d", b.Size())
	}
}

func TestDrainBuffer_Cancelled(t *testing.T) {
	b, err := NewBlockBuffer(1)
	if err != nil {
		t.Fatalf("Failed to create buffer: %v", err)
	}
	if err := b.Insert(&BlockResult{Index: 5}); err != nil {
		t.Fatalf("Failed to insert block: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = drainBuffer(ctx, b, func(context.Context, []*BlockResult) error { return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context.DeadlineExceeded, got %v", err)
	}
}

func TestDrainBuffer_ConsumeError(t *testing.T) {
	b, err := NewBlockBuffer(4)
	if err != nil {
		t.Fatalf("Failed to create buffer: %v", err)
	}
	if err := b.Insert(&BlockResult{Index: 0}); err != nil {
		t.Fatalf("Failed to insert block: %v", err)
	}

	failure := errors.New("store closed")
	err = drainBuffer(context.Background(), b, func(context.Context, []*BlockResult) error { return failure })
	if !errors.Is(err, failure) {
		t.Errorf("Expected consume error, got %v", err)
	}
}
