// Package goalid generates GoalIDs that are unique within the
// lifetime of the process that created them.
package goalid

import (
	"fmt"
	"sync"
	"time"

	"github.com/ros2go/actionlib/actionmsgs"
)

// Generator mints GoalIDs of the form "<node>-<counter>-<unixnano>".
// The counter alone already guarantees uniqueness within one
// Generator; the node name and timestamp are included so ids stay
// legible and distinguishable across a fleet of clients sharing a
// broker.
type Generator struct {
	node string
	now  func() time.Time

	mu      sync.Mutex
	counter uint64
}

// New returns a Generator that stamps every id with the given node
// name.
func New(node string) *Generator {
	return &Generator{node: node, now: time.Now}
}

// Generate returns a fresh GoalID stamped with the current time.
func (g *Generator) Generate() actionmsgs.GoalID {
	g.mu.Lock()
	g.counter++
	n := g.counter
	g.mu.Unlock()

	now := g.now()
	return actionmsgs.GoalID{
		ID:    fmt.Sprintf("%s-%d-%d", g.node, n, now.UnixNano()),
		Stamp: now,
	}
}
