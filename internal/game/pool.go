package game

import "time"

// waitingEntry is one identity parked in the matchmaking pool.
type waitingEntry struct {
	identity   string
	client     *clientState
	enqueuedAt time.Time
}

// pool is the waiting-for-opponent queue. Entries keep insertion order so the
// oldest waiter is always paired first; opponent selection is never random.
type pool struct {
	entries    []*waitingEntry
	byIdentity map[string]*waitingEntry
}

func newPool() *pool {
	return &pool{byIdentity: make(map[string]*waitingEntry)}
}

func (p *pool) has(identity string) bool {
	_, ok := p.byIdentity[identity]
	return ok
}

func (p *pool) enqueue(cs *clientState) {
	if p.has(cs.identity) {
		return
	}
	e := &waitingEntry{identity: cs.identity, client: cs, enqueuedAt: time.Now()}
	p.entries = append(p.entries, e)
	p.byIdentity[cs.identity] = e
}

// takeOldest removes and returns the oldest waiting entry whose identity
// differs from exclude, or nil when no eligible peer is waiting.
func (p *pool) takeOldest(exclude string) *waitingEntry {
	for i, e := range p.entries {
		if e.identity == exclude {
			continue
		}
		p.entries = append(p.entries[:i], p.entries[i+1:]...)
		delete(p.byIdentity, e.identity)
		return e
	}
	return nil
}

// cancel removes an identity's waiting entry if present. Idempotent.
func (p *pool) cancel(identity string) bool {
	e, ok := p.byIdentity[identity]
	if !ok {
		return false
	}
	delete(p.byIdentity, identity)
	for i, cur := range p.entries {
		if cur == e {
			p.entries = append(p.entries[:i], p.entries[i+1:]...)
			break
		}
	}
	return true
}

func (p *pool) size() int {
	return len(p.entries)
}
