package mtp40f

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/arloliu/go-mtp40f/logger"
)

// Transport is the byte stream the sensor is attached to.
//
// ReadByte is only required to succeed after Available reported true. Neither
// Available nor ReadByte may block.
type Transport interface {
	Available() bool
	ReadByte() (byte, error)
	Write(p []byte) (int, error)
	Flush() error
}

// transactor runs request/response exchanges over a Transport.
//
// This type is NOT goroutine-safe. The caller must ensure only one exchange is active
// at a time; Device does so with its lock.
type transactor struct {
	transport Transport
	clock     Clock
	yield     func()
	timeout   time.Duration
	logger    logger.Logger
	metrics   *DeviceMetrics
}

func newTransactor(t Transport, cfg *DeviceConfig, m *DeviceMetrics) *transactor {
	return &transactor{
		transport: t,
		clock:     cfg.clock,
		yield:     cfg.yield,
		timeout:   cfg.requestTimeout,
		logger:    cfg.logger,
		metrics:   m,
	}
}

// execute sends req and collects exactly respLen response bytes.
//
// The response is returned only when it is complete and its checksum matches; partial
// data is never exposed. When respLen is 0 the exchange completes after the request has
// been flushed.
func (tr *transactor) execute(ctx context.Context, req []byte, respLen int) ([]byte, error) {
	if tr.transport == nil {
		return nil, ErrNoStream
	}

	tr.metrics.incRequestCount()

	resp, err := tr.exchange(ctx, req, respLen)
	if err != nil {
		tr.metrics.incRequestErrCount()
		return nil, err
	}

	return resp, nil
}

func (tr *transactor) exchange(ctx context.Context, req []byte, respLen int) ([]byte, error) {
	if n := tr.drain(); n > 0 {
		tr.logger.Debug("mtp40f: discarded stale input", "bytes", n)
	}

	if err := tr.writeAll(req); err != nil {
		return nil, fmt.Errorf("%w: write request: %w", ErrRequestFailed, err)
	}
	if err := tr.transport.Flush(); err != nil {
		return nil, fmt.Errorf("%w: flush request: %w", ErrRequestFailed, err)
	}

	if respLen == 0 {
		return nil, nil
	}

	resp := make([]byte, respLen)
	timeoutMs := uint32(tr.timeout.Milliseconds()) //nolint:gosec // bounded by MaxRequestTimeout
	start := tr.clock.Millis()
	read := 0

	for read < respLen {
		if tr.clock.Millis()-start > timeoutMs {
			tr.metrics.incTimeoutCount()
			tr.logger.Warn("mtp40f: read timeout", "expected", respLen, "got", read)

			return nil, fmt.Errorf("%w: read timeout after %v, expected %d bytes, got %d",
				ErrRequestFailed, tr.timeout, respLen, read)
		}

		if tr.transport.Available() {
			b, err := tr.transport.ReadByte()
			if err != nil {
				return nil, fmt.Errorf("%w: read response: %w", ErrRequestFailed, err)
			}
			resp[read] = b
			read++

			continue
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrRequestFailed, ctx.Err())
		default:
		}

		tr.yield()
	}

	if err := ValidateResponse(resp); err != nil {
		tr.metrics.incChecksumErrCount()
		tr.logger.Warn("mtp40f: response checksum mismatch", "error", err)

		return nil, err
	}

	return resp, nil
}

// drain discards everything currently buffered on the read side and returns the
// number of discarded bytes.
func (tr *transactor) drain() int {
	n := 0
	for tr.transport.Available() {
		if _, err := tr.transport.ReadByte(); err != nil {
			break
		}
		n++
	}

	return n
}

func (tr *transactor) writeAll(data []byte) error {
	for written := 0; written < len(data); {
		n, err := tr.transport.Write(data[written:])
		written += n

		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
	}

	return nil
}
