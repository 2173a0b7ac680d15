package game

import "time"

// registry tracks live connections and their authentication state. At most
// one authenticated connection exists per identity; establishing a second one
// evicts the first (handled by the Manager, which owns the locking).
type registry struct {
	clients    map[Conn]*clientState
	byIdentity map[string]*clientState
}

func newRegistry() *registry {
	return &registry{
		clients:    make(map[Conn]*clientState),
		byIdentity: make(map[string]*clientState),
	}
}

// add admits a new, unauthenticated connection. Idempotent for a known conn.
func (r *registry) add(conn Conn) *clientState {
	if cs, ok := r.clients[conn]; ok {
		return cs
	}
	cs := &clientState{conn: conn, joinedAt: time.Now()}
	r.clients[conn] = cs
	return cs
}

func (r *registry) get(conn Conn) *clientState {
	return r.clients[conn]
}

func (r *registry) byID(identity string) *clientState {
	return r.byIdentity[identity]
}

// bind marks a connection authenticated and indexes it by identity. The
// caller must have evicted any previous holder of the identity first.
func (r *registry) bind(cs *clientState, identity, displayName string) {
	if cs.authenticated && cs.identity != identity && r.byIdentity[cs.identity] == cs {
		delete(r.byIdentity, cs.identity)
	}
	cs.identity = identity
	cs.displayName = displayName
	cs.authenticated = true
	r.byIdentity[identity] = cs
}

// remove deletes all registry state for a connection. Idempotent; returns the
// removed entry, or nil if the connection was unknown.
func (r *registry) remove(conn Conn) *clientState {
	cs, ok := r.clients[conn]
	if !ok {
		return nil
	}
	delete(r.clients, conn)
	if cs.authenticated && r.byIdentity[cs.identity] == cs {
		delete(r.byIdentity, cs.identity)
	}
	return cs
}

// authenticatedCount reports how many identities are currently signed in.
func (r *registry) authenticatedCount() int {
	return len(r.byIdentity)
}
