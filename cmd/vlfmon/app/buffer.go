package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/roman-kulish/vlf-monitor/internal/msk"
)

// BlockResult is the demodulation output of one block.
type BlockResult struct {
	Index     int
	Demod     *msk.Result
	DirectDB  float64 // Band-pass RMS level, set by the direct amplitude method
	HasDirect bool
}

type node struct {
	result *BlockResult
	next   *node
}

// BlockBuffer collects block results that finish out of order and releases
// them in block order. Results are kept in a linked list sorted by index.
type BlockBuffer struct {
	capacity int // Number of buffered results above which the buffer is full
	inserted chan struct{}

	mu   sync.Mutex
	head *node
	size int
	next int // Index of the next result to release
}

// NewBlockBuffer creates a buffer that reports full after capacity results
// are waiting. Release starts at block index 0.
func NewBlockBuffer(capacity int) (*BlockBuffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("invalid buffer capacity: %d", capacity)
	}
	return &BlockBuffer{capacity: capacity, inserted: make(chan struct{}, 1)}, nil
}

// Insert adds a result in index order. Results already released or inserted
// twice are rejected.
func (b *BlockBuffer) Insert(result *BlockResult) error {
	if result == nil {
		return fmt.Errorf("cannot insert nil result")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	defer b.notify()

	if result.Index < b.next {
		return fmt.Errorf("block %d already released", result.Index)
	}

	if b.head == nil || result.Index < b.head.result.Index {
		b.head = &node{result: result, next: b.head}
		b.size++
		return nil
	}

	current := b.head
	for {
		if current.result.Index == result.Index {
			return fmt.Errorf("block %d inserted twice", result.Index)
		}
		if current.next == nil || current.next.result.Index > result.Index {
			current.next = &node{result: result, next: current.next}
			b.size++
			return nil
		}
		current = current.next
	}
}

func (b *BlockBuffer) notify() {
	select {
	case b.inserted <- struct{}{}:
	default:
	}
}

// Wait blocks until a result has been inserted since the last Wait returned,
// or ctx is done.
func (b *BlockBuffer) Wait(ctx context.Context) error {
	select {
	case <-b.inserted:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsFull returns true if the buffer has reached its capacity.
func (b *BlockBuffer) IsFull() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.size >= b.capacity
}

// Flush removes and returns the leading run of consecutive results, starting
// at the next unreleased index. It returns nil while that result is missing.
func (b *BlockBuffer) Flush() []*BlockResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	var results []*BlockResult
	for b.head != nil && b.head.result.Index == b.next {
		results = append(results, b.head.result)
		b.head = b.head.next
		b.size--
		b.next++
	}
	return results
}

// DrainAll removes and returns every buffered result in index order, gaps
// included. Release continues after the last drained index.
func (b *BlockBuffer) DrainAll() []*BlockResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.head == nil {
		return nil
	}

	results := make([]*BlockResult, 0, b.size)
	for current := b.head; current != nil; current = current.next {
		results = append(results, current.result)
	}

	b.next = results[len(results)-1].Index + 1
	b.head = nil
	b.size = 0
	return results
}

// Size returns the current number of buffered results.
func (b *BlockBuffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Released returns the number of results handed out so far.
func (b *BlockBuffer) Released() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.next
}
