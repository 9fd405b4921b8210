package source

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// SliceSource serves blocks from an in-memory recording.
type SliceSource struct {
	samples   []float64
	blockSize int

	index int
	err   error
}

func NewSliceSource(samples []float64, blockSize int) (*SliceSource, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("block size must be positive, %d given", blockSize)
	}
	return &SliceSource{samples: samples, blockSize: blockSize, index: -1}, nil
}

func (s *SliceSource) BlockSize() int {
	return s.blockSize
}

func (s *SliceSource) BlockCount() int {
	return len(s.samples) / s.blockSize
}

func (s *SliceSource) Next(ctx context.Context) bool {
	if s.err != nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		s.err = err
		return false
	}
	if s.index+1 >= s.BlockCount() {
		if len(s.samples)%s.blockSize != 0 {
			s.err = ErrShortBlock
		}
		return false
	}
	s.index++
	return true
}

// Current returns a copy of the current block.
func (s *SliceSource) Current() []float64 {
	if s.index < 0 || s.index >= s.BlockCount() {
		return nil
	}
	start := s.index * s.blockSize
	return slices.Clone(s.samples[start : start+s.blockSize])
}

func (s *SliceSource) Index() int {
	return s.index
}

func (s *SliceSource) Error() error {
	if errors.Is(s.err, ErrShortBlock) {
		return nil
	}
	return s.err
}

// Truncated reports whether iteration stopped before a partial block.
func (s *SliceSource) Truncated() bool {
	return errors.Is(s.err, ErrShortBlock)
}

func (s *SliceSource) Reset() error {
	s.index = -1
	s.err = nil
	return nil
}

func (s *SliceSource) Close() error {
	return nil
}
