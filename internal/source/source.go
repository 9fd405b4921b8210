package source

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// ErrShortBlock is recorded when the input ends inside a block. The partial
// block is discarded and iteration stops without reporting a failure.
var ErrShortBlock = errors.New("short trailing block")

const sampleSize = 4 // float32

// Source yields fixed-length blocks of real samples in order.
type Source interface {
	// BlockSize returns the number of samples in every block.
	BlockSize() int

	// BlockCount returns the number of complete blocks available.
	BlockCount() int

	// Next advances to the next block and returns true if one was read, false
	// at the end of input or if an error occurred.
	Next(context.Context) bool

	// Current returns the block read by the last successful call to Next.
	// The slice is owned by the caller once returned.
	Current() []float64

	// Index returns the zero-based index of the current block.
	Index() int

	// Error returns any error that occurred during iteration. A short trailing
	// block is not an error.
	Error() error

	// Reset rewinds the source to the first block.
	Reset() error

	// Close releases any resources associated with the source.
	Close() error
}

// FileSource reads raw little-endian float32 samples from a file.
type FileSource struct {
	path      string
	blockSize int
	samples   int64

	file *os.File
	r    *bufio.Reader
	buf  []byte

	index   int
	current []float64
	err     error
}

// NewFileSource opens path for block reading. blockSize is the number of
// samples per block, usually one second of audio.
func NewFileSource(path string, blockSize int) (*FileSource, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("block size must be positive, %d given", blockSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("reading file info: %w", err)
	}

	return &FileSource{
		path:      path,
		blockSize: blockSize,
		samples:   stat.Size() / sampleSize,
		file:      f,
		r:         bufio.NewReaderSize(f, blockSize*sampleSize),
		buf:       make([]byte, blockSize*sampleSize),
		index:     -1,
	}, nil
}

func (s *FileSource) BlockSize() int {
	return s.blockSize
}

func (s *FileSource) BlockCount() int {
	return int(s.samples / int64(s.blockSize))
}

// Samples returns the number of whole samples in the file.
func (s *FileSource) Samples() int64 {
	return s.samples
}

func (s *FileSource) Next(ctx context.Context) bool {
	if s.err != nil || s.file == nil {
		return false
	}

	select {
	case <-ctx.Done():
		s.err = ctx.Err()
		return false
	default:
	}

	if s.index+1 >= s.BlockCount() {
		if s.samples%int64(s.blockSize) != 0 {
			s.err = ErrShortBlock
		}
		return false
	}

	n, err := io.ReadFull(s.r, s.buf)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		if n > 0 {
			s.err = ErrShortBlock
		}
		return false
	case err != nil:
		s.err = fmt.Errorf("reading block %d: %w", s.index+1, err)
		return false
	}

	s.current = decodeFloat32(s.buf)
	s.index++
	return true
}

func (s *FileSource) Current() []float64 {
	return s.current
}

func (s *FileSource) Index() int {
	return s.index
}

func (s *FileSource) Error() error {
	if s.err != nil && !errors.Is(s.err, ErrShortBlock) {
		return s.err
	}
	return nil
}

// Truncated reports whether iteration stopped on a partial block.
func (s *FileSource) Truncated() bool {
	return errors.Is(s.err, ErrShortBlock)
}

func (s *FileSource) Reset() error {
	if s.file == nil {
		return os.ErrClosed
	}
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding %s: %w", s.path, err)
	}
	s.r.Reset(s.file)
	s.index = -1
	s.current = nil
	s.err = nil
	return nil
}

func (s *FileSource) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.current = nil
	return err
}

func decodeFloat32(p []byte) []float64 {
	out := make([]float64, len(p)/sampleSize)
	for i := range out {
		out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(p[i*sampleSize:])))
	}
	return out
}

// WriteFloat32 encodes samples as raw little-endian float32, the format read by
// FileSource.
func WriteFloat32(w io.Writer, samples []float64) error {
	bw := bufio.NewWriter(w)
	var p [sampleSize]byte
	for _, v := range samples {
		binary.LittleEndian.PutUint32(p[:], math.Float32bits(float32(v)))
		if _, err := bw.Write(p[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

var (
	_ Source = (*FileSource)(nil)
	_ Source = (*SliceSource)(nil)
)
