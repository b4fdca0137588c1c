package service

import (
	"github.com/dyerandrew14/chatchilllaunch-sub000/internal/core/port"
)

// binding is one registry entry: a live connection plus the single
// room the user currently occupies ("" when not in any room).
type binding struct {
	conn   port.Conn
	roomID string
}

// registry maps user ids to their bindings. It does no locking and no
// business logic; the Matchmaker owns it and serializes all access.
type registry struct {
	bindings map[string]*binding
}

func newRegistry() *registry {
	return &registry{bindings: make(map[string]*binding)}
}

// register binds a connection to a user id, replacing any prior entry.
// Last write wins; the caller handles eviction of the old connection.
func (r *registry) register(userID string, conn port.Conn) {
	r.bindings[userID] = &binding{conn: conn}
}

func (r *registry) lookup(userID string) (*binding, bool) {
	b, ok := r.bindings[userID]
	return b, ok
}

func (r *registry) remove(userID string) {
	delete(r.bindings, userID)
}

func (r *registry) size() int {
	return len(r.bindings)
}
