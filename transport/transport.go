// Package transport decouples the manager from any particular
// message bus, mirroring the teacher's sio.Couplings split between a
// crew's logic and how its messages actually move.
package transport

import "context"

// Publisher sends a single serialized message on a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Handler processes one inbound message. Implementations must not
// block indefinitely; a slow handler backs up the whole subscription.
type Handler func(payload []byte)

// Subscriber delivers every message published on a topic to handler,
// until Unsubscribe is called or the Subscriber is stopped.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Unsubscribe(ctx context.Context, topic string) error
}

// Coupling bundles the lifecycle and the pub/sub surface a manager
// needs from a transport: start it, use it, stop it. Real transports
// (transport/mqtt) and the in-process transport used by tests
// (transport/local) both implement this.
type Coupling interface {
	Publisher
	Subscriber
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
