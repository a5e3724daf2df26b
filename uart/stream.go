package uart

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/arloliu/go-mtp40f/logger"
)

// DefaultBufferSize is the default capacity of the receive buffer in bytes.
const DefaultBufferSize = 256

var (
	// ErrNoData is returned by ReadByte when no byte is buffered.
	ErrNoData = errors.New("uart: no data available")
	// ErrClosed is returned after the stream has been closed.
	ErrClosed = errors.New("uart: stream closed")
)

// Stream adapts a blocking Port to the non-blocking byte interface of mtp40f.Transport.
//
// A background goroutine reads the port into a bounded buffer. Available and ReadByte
// only look at that buffer and never block.
type Stream struct {
	port   Port
	logger logger.Logger

	rx      chan byte
	done    chan struct{}
	wg      sync.WaitGroup
	readErr atomic.Pointer[error]
	closed  atomic.Bool
	once    sync.Once
}

// StreamOption is a functional option for NewStream.
type StreamOption interface {
	apply(*Stream) error
}

type streamOptFunc func(*Stream) error

func (f streamOptFunc) apply(s *Stream) error { return f(s) }

// WithLogger sets the logger of the stream.
func WithLogger(l logger.Logger) StreamOption {
	return streamOptFunc(func(s *Stream) error {
		if l == nil {
			return errors.New("uart: logger must not be nil")
		}
		s.logger = l

		return nil
	})
}

// WithBufferSize sets the capacity of the receive buffer.
func WithBufferSize(n int) StreamOption {
	return streamOptFunc(func(s *Stream) error {
		if n <= 0 {
			return fmt.Errorf("uart: buffer size must be positive, got %d", n)
		}
		s.rx = make(chan byte, n)

		return nil
	})
}

// NewStream starts reading port in the background. The stream owns the port; Close
// closes it.
func NewStream(port Port, opts ...StreamOption) (*Stream, error) {
	if port == nil {
		return nil, errors.New("uart: port is nil")
	}

	s := &Stream{
		port:   port,
		logger: logger.GetLogger(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		if err := opt.apply(s); err != nil {
			return nil, err
		}
	}
	if s.rx == nil {
		s.rx = make(chan byte, DefaultBufferSize)
	}

	s.wg.Add(1)
	go s.readLoop()

	return s, nil
}

func (s *Stream) readLoop() {
	defer s.wg.Done()

	buf := make([]byte, 64)
	for {
		n, err := s.port.Read(buf)
		for _, b := range buf[:n] {
			select {
			case s.rx <- b:
			case <-s.done:
				return
			}
		}

		if err == nil || errors.Is(err, io.EOF) {
			// tarm/serial reports a read timeout as io.EOF.
			select {
			case <-s.done:
				return
			default:
				continue
			}
		}

		if !s.closed.Load() {
			s.logger.Error("uart: read failed", "error", err)
		}
		s.readErr.Store(&err)

		return
	}
}

// Available reports whether a byte can be read without blocking.
func (s *Stream) Available() bool {
	return len(s.rx) > 0
}

// ReadByte returns the next buffered byte. It returns ErrNoData when the buffer is empty,
// or the port's read error once the reader has stopped and the buffer is drained.
func (s *Stream) ReadByte() (byte, error) {
	select {
	case b := <-s.rx:
		return b, nil
	default:
	}

	if s.closed.Load() {
		return 0, ErrClosed
	}
	if err := s.Err(); err != nil {
		return 0, err
	}

	return 0, ErrNoData
}

// Write writes p to the port.
func (s *Stream) Write(p []byte) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}

	return s.port.Write(p)
}

// Flush flushes the port.
func (s *Stream) Flush() error {
	if s.closed.Load() {
		return ErrClosed
	}

	return s.port.Flush()
}

// Err returns the error that stopped the background reader, if any.
func (s *Stream) Err() error {
	if p := s.readErr.Load(); p != nil {
		return *p
	}

	return nil
}

// Close stops the reader and closes the port.
func (s *Stream) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.done)
		// Closing the port unblocks a pending Read.
		err = s.port.Close()
		s.wg.Wait()
	})

	return err
}
