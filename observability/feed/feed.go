// Package feed exposes a live view of goal transitions over a
// websocket, so an operator can watch a running client without
// tailing logs. Every connected viewer gets every event; there is no
// replay of history before it connected.
package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ros2go/actionlib/actionmsgs"
)

// Event is one transition, serialized to every connected viewer.
type Event struct {
	Time      time.Time             `json:"time"`
	Action    string                `json:"action"`
	GoalID    string                `json:"goal_id"`
	State     actionmsgs.CommState  `json:"state"`
	Status    actionmsgs.GoalStatus `json:"status"`
	HasResult bool                  `json:"has_result"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Feed fans events out to any number of websocket viewers.
type Feed struct {
	mu      sync.Mutex
	viewers map[*websocket.Conn]struct{}
}

// New returns an empty Feed.
func New() *Feed {
	return &Feed{viewers: make(map[*websocket.Conn]struct{})}
}

// Publish sends ev to every currently connected viewer. A viewer that
// can't keep up is dropped rather than allowed to block the sender.
func (f *Feed) Publish(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for conn := range f.viewers {
		conn.SetWriteDeadline(time.Now().Add(time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(f.viewers, conn)
		}
	}
}

// ServeHTTP upgrades the request to a websocket and registers it as a
// viewer until the connection closes.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	f.mu.Lock()
	f.viewers[conn] = struct{}{}
	f.mu.Unlock()

	// Drain and discard anything the viewer sends; we only push.
	go func() {
		defer func() {
			f.mu.Lock()
			delete(f.viewers, conn)
			f.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Serve starts an HTTP server exposing the feed at "/" until ctx is
// canceled.
func Serve(ctx context.Context, addr string, f *Feed) error {
	srv := &http.Server{Addr: addr, Handler: f}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errc:
		return err
	}
}
