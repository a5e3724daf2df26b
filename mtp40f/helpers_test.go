package mtp40f

import (
	"encoding/binary"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/arloliu/go-mtp40f/logger"
)

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	now atomic.Uint32
}

func (c *fakeClock) Millis() uint32 { return c.now.Load() }

func (c *fakeClock) advance(ms uint32) { c.now.Add(ms) }

func (c *fakeClock) set(ms uint32) { c.now.Store(ms) }

// fakeTransport is an in-memory Transport. Every written frame is recorded and passed to
// respond; the reply is queued for reading, either at once or, with dribble set, one
// byte per tick.
type fakeTransport struct {
	mu       sync.Mutex
	rx       []byte
	pending  []byte
	writes   [][]byte
	flushes  int
	dribble  bool
	writeErr error
	respond  func(req []byte) []byte
}

func (ft *fakeTransport) Available() bool {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	return len(ft.rx) > 0
}

func (ft *fakeTransport) ReadByte() (byte, error) {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	if len(ft.rx) == 0 {
		return 0, io.EOF
	}
	b := ft.rx[0]
	ft.rx = ft.rx[1:]

	return b, nil
}

func (ft *fakeTransport) Write(p []byte) (int, error) {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	if ft.writeErr != nil {
		return 0, ft.writeErr
	}

	req := make([]byte, len(p))
	copy(req, p)
	ft.writes = append(ft.writes, req)

	if ft.respond != nil {
		if reply := ft.respond(req); len(reply) > 0 {
			if ft.dribble {
				ft.pending = append(ft.pending, reply...)
			} else {
				ft.rx = append(ft.rx, reply...)
			}
		}
	}

	return len(p), nil
}

func (ft *fakeTransport) Flush() error {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	ft.flushes++

	return nil
}

// tick moves one pending byte to the read side.
func (ft *fakeTransport) tick() {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	if len(ft.pending) > 0 {
		ft.rx = append(ft.rx, ft.pending[0])
		ft.pending = ft.pending[1:]
	}
}

func (ft *fakeTransport) injectStale(b ...byte) {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	ft.rx = append(ft.rx, b...)
}

func (ft *fakeTransport) written() [][]byte {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	out := make([][]byte, len(ft.writes))
	copy(out, ft.writes)

	return out
}

// countCommand returns how many written frames carry the given command code.
func (ft *fakeTransport) countCommand(cmd byte) int {
	n := 0
	for _, w := range ft.written() {
		if len(w) > 4 && w[4] == cmd {
			n++
		}
	}

	return n
}

// simSensor answers requests like an MTP40-F module.
type simSensor struct {
	mu       sync.Mutex
	ppm      uint32
	status   byte
	pressure uint16
	corrupt  bool
	truncate int
	silent   map[byte]bool
}

func newSimSensor() *simSensor {
	return &simSensor{ppm: 400, pressure: 1013, silent: make(map[byte]bool)}
}

func (s *simSensor) respond(req []byte) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	cmd := req[4]
	if s.silent[cmd] {
		return nil
	}

	var payload []byte
	switch cmd {
	case CmdGetGasConcentration:
		payload = make([]byte, 5)
		binary.BigEndian.PutUint32(payload, s.ppm)
		payload[4] = s.status
	case CmdGetAirPressureReference:
		payload = make([]byte, 2)
		binary.BigEndian.PutUint16(payload, s.pressure)
	case CmdCalibrateSinglePoint:
		payload = []byte{0x00}
	case CmdSelfCalibration:
		payload = nil
	default:
		return nil
	}

	resp := (&Frame{Address: DefaultAddress, Command: cmd, Payload: payload}).Pack()
	if s.corrupt {
		resp[len(resp)-1] ^= 0x01
	}
	if s.truncate > 0 && s.truncate < len(resp) {
		resp = resp[:s.truncate]
	}

	return resp
}

// recorder is a Consumer collecting published values.
type recorder struct {
	mu     sync.Mutex
	values []float64
}

func (r *recorder) Publish(v float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.values = append(r.values, v)
}

func (r *recorder) get() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]float64, len(r.values))
	copy(out, r.values)

	return out
}

func discardLogger() logger.Logger {
	return logger.NewSlogWriter(io.Discard, logger.DebugLevel, false, false)
}

// newTestConfig creates a config driven by a fake clock that advances 10ms per yield,
// with warm-up disabled.
func newTestConfig(t *testing.T, ft *fakeTransport, opts ...DeviceOption) (*DeviceConfig, *fakeClock) {
	t.Helper()

	clock := &fakeClock{}
	defaults := []DeviceOption{
		WithClock(clock),
		WithWarmup(0),
		WithLogger(discardLogger()),
		WithYield(func() {
			clock.advance(10)
			if ft != nil {
				ft.tick()
			}
		}),
	}

	cfg, err := NewDeviceConfig(append(defaults, opts...)...)
	if err != nil {
		t.Fatalf("newTestConfig: %v", err)
	}

	return cfg, clock
}

// newTestDevice creates a Device wired to a simulated sensor.
func newTestDevice(t *testing.T, sim *simSensor, opts ...DeviceOption) (*Device, *fakeTransport, *fakeClock) {
	t.Helper()

	ft := &fakeTransport{respond: sim.respond}
	cfg, clock := newTestConfig(t, ft, opts...)

	dev, err := NewDevice(ft, cfg)
	if err != nil {
		t.Fatalf("newTestDevice: %v", err)
	}

	return dev, ft, clock
}
