// Package local is an in-process transport.Coupling for tests and
// single-process demos: publishing on a topic invokes every locally
// registered handler for that topic directly, with no network and no
// serialization round trip beyond the []byte payload itself.
package local

import (
	"context"
	"sync"

	"github.com/ros2go/actionlib/transport"
)

// Bus is a shared switchboard; multiple Couplings attached to the
// same Bus behave like separate clients on one broker, except that
// Unsubscribe on any Coupling removes every handler registered for
// that topic, including those added through other Couplings.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]transport.Handler
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]transport.Handler)}
}

func (b *Bus) publish(topic string, payload []byte) {
	b.mu.RLock()
	hs := append([]transport.Handler(nil), b.handlers[topic]...)
	b.mu.RUnlock()

	for _, h := range hs {
		h(payload)
	}
}

func (b *Bus) subscribe(topic string, handler transport.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)
}

func (b *Bus) unsubscribe(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, topic)
}

// Coupling is one client's view of a Bus.
type Coupling struct {
	bus *Bus
}

var _ transport.Coupling = (*Coupling)(nil)

// New attaches a Coupling to bus.
func New(bus *Bus) *Coupling {
	return &Coupling{bus: bus}
}

func (c *Coupling) Start(ctx context.Context) error { return nil }
func (c *Coupling) Stop(ctx context.Context) error  { return nil }

func (c *Coupling) Publish(ctx context.Context, topic string, payload []byte) error {
	c.bus.publish(topic, payload)
	return nil
}

func (c *Coupling) Subscribe(ctx context.Context, topic string, handler transport.Handler) error {
	c.bus.subscribe(topic, handler)
	return nil
}

func (c *Coupling) Unsubscribe(ctx context.Context, topic string) error {
	c.bus.unsubscribe(topic)
	return nil
}
