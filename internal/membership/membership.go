// Package membership implements the gossip-style membership and
// failure-detection protocol: join handshake, periodic heartbeat gossip,
// and suspect/remove eviction timers, per spec.md §3 and §4.1.
//
// Grounded directly on the original mp1/MP1Node.cpp (push_member_list,
// ping_handler, update_src_member, nodeLoopOps) and on the teacher's
// cluster/membership.go for the Go map+mutex shape of the member list.
package membership

import (
	"sync"

	"distributed-kvstore/internal/address"
)

// TFail is the advisory initial ping counter from spec.md §4.1. It is
// carried for fidelity to the original (memberNode->pingCounter = TFAIL)
// but, per spec.md, is not used to drive any eviction decision — TRemove
// alone governs eviction.
const TFail = 5

// TRemove is the number of ticks without a heartbeat advance after which a
// member entry is evicted.
const TRemove = 20

// Entry is one member-list record: a node's id/port plus the heartbeat
// counter and the local tick at which that heartbeat was last advanced.
type Entry struct {
	ID        uint32
	Port      uint16
	Heartbeat int64
	Timestamp int64
}

// Addr reconstructs the Address this entry describes.
func (e Entry) Addr() address.Address {
	return address.New(e.ID, e.Port)
}

// List is a node's member list: at most one entry per (id,port), and never
// an entry for the list's own owner.
type List struct {
	mu      sync.RWMutex
	self    address.Address
	entries map[address.Address]Entry
}

func newList(self address.Address) *List {
	return &List{self: self, entries: make(map[address.Address]Entry)}
}

// Get returns the entry for addr, if any.
func (l *List) Get(addr address.Address) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[addr]
	return e, ok
}

// Entries returns a snapshot of every member currently tracked.
func (l *List) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e)
	}
	return out
}

// Len reports how many members are tracked.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// insert adds or overwrites the entry for addr. Inserting an entry for the
// list's own owner is refused (spec.md invariant 2).
func (l *List) insert(addr address.Address, e Entry) {
	if addr.Equal(l.self) {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[addr] = e
}

// remove deletes the entry for addr.
func (l *List) remove(addr address.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, addr)
}
