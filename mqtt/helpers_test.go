package mqtt

import (
	"context"
	"io"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/arloliu/go-mtp40f/logger"
)

type fakeToken struct {
	err     error
	timeout bool
}

func (t *fakeToken) Wait() bool { return !t.timeout }

func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if !t.timeout {
		close(ch)
	}

	return ch
}

func (t *fakeToken) Error() error { return t.err }

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

type publication struct {
	topic    string
	qos      byte
	retained bool
	payload  string
}

// fakeClient records publications and subscriptions.
type fakeClient struct {
	mu         sync.Mutex
	published  []publication
	subscribed map[string]paho.MessageHandler
	subCount   map[string]int
	qos        []byte
	token      *fakeToken
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		subscribed: make(map[string]paho.MessageHandler),
		subCount:   make(map[string]int),
		token:      &fakeToken{},
	}
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()

	var s string
	switch p := payload.(type) {
	case []byte:
		s = string(p)
	case string:
		s = p
	}
	c.published = append(c.published, publication{topic: topic, qos: qos, retained: retained, payload: s})

	return c.token
}

func (c *fakeClient) Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.subscribed[topic] = callback
	c.subCount[topic]++
	c.qos = append(c.qos, qos)

	return c.token
}

// deliver simulates an incoming message on topic.
func (c *fakeClient) deliver(topic, payload string) {
	c.mu.Lock()
	cb := c.subscribed[topic]
	c.mu.Unlock()

	if cb != nil {
		cb(nil, &fakeMessage{topic: topic, payload: []byte(payload)})
	}
}

func (c *fakeClient) publications() []publication {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]publication, len(c.published))
	copy(out, c.published)

	return out
}

func (c *fakeClient) last() publication {
	p := c.publications()
	if len(p) == 0 {
		return publication{}
	}

	return p[len(p)-1]
}

// fakeCalibrator records calibration commands.
type fakeCalibrator struct {
	mu         sync.Mutex
	selfCal    []bool
	calibrated int
	err        error
}

func (f *fakeCalibrator) SetSelfCalibration(_ context.Context, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.selfCal = append(f.selfCal, enabled)

	return nil
}

func (f *fakeCalibrator) Calibrate400ppm(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.calibrated++

	return nil
}

func newTestBridge(prefix string, opts ...Option) (*Bridge, *fakeClient) {
	client := newFakeClient()
	opts = append([]Option{WithLogger(logger.NewSlogWriter(io.Discard, logger.DebugLevel, false, false))}, opts...)

	b, err := NewBridge(client, prefix, opts...)
	if err != nil {
		panic(err)
	}

	return b, client
}
