// Package cluster builds the ring view each node keeps of the group: a
// sorted, deduplicated list of (address, hash) pairs derived from the
// membership list, plus the replica-placement rule that maps a key to the
// three nodes that store it.
//
// Unlike the teacher's original Ring (virtual nodes, sha256, AddNode/
// RemoveNode mutation), spec.md §3/§4.2 describes a plain sorted list of one
// entry per live member — no virtual nodes — rebuilt wholesale from the
// membership list on every tick. Grounded on MP2Node::updateRing and
// MP2Node::findNodes.
package cluster

import (
	"sort"

	"distributed-kvstore/internal/address"
)

// ReplicationFactor is the fixed replica count from spec.md §3 — the spec
// explicitly calls dynamic replication factor a non-goal.
const ReplicationFactor = 3

// Entry is one position on the ring: a member address and its hash.
type Entry struct {
	Addr address.Address
	Hash uint32
}

// Ring is a node's current view of the group, sorted by hash. It is
// immutable once built — a ring change produces a new Ring rather than
// mutating one in place, matching MP2Node::updateRing's "replace wholesale"
// approach.
type Ring struct {
	entries []Entry
}

// Build constructs a Ring from the given set of live member addresses plus
// self, sorted by hash ascending and deduplicated by address.
func Build(self address.Address, members []address.Address) *Ring {
	seen := make(map[address.Address]bool, len(members)+1)
	entries := make([]Entry, 0, len(members)+1)

	add := func(a address.Address) {
		if seen[a] {
			return
		}
		seen[a] = true
		entries = append(entries, Entry{Addr: a, Hash: a.Hash()})
	}

	add(self)
	for _, m := range members {
		add(m)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Hash < entries[j].Hash })
	return &Ring{entries: entries}
}

// Entries returns the ring's (address, hash) pairs in ascending hash order.
func (r *Ring) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len reports how many distinct addresses are on the ring.
func (r *Ring) Len() int {
	return len(r.entries)
}

// Equal reports whether two rings hold the same addresses in the same
// order — the change-detection check MP2Node::updateRing runs before
// deciding whether to trigger stabilization.
func (r *Ring) Equal(other *Ring) bool {
	if other == nil || len(r.entries) != len(other.entries) {
		return false
	}
	for i, e := range r.entries {
		if e.Addr != other.entries[i].Addr {
			return false
		}
	}
	return true
}

// Replicas returns the (up to ReplicationFactor) nodes responsible for key,
// per spec.md §4.2: hash the key to a ring position, then take the first
// ReplicationFactor entries whose hash is >= that position, wrapping around
// the ring when the position falls past the last entry. Returns nil if
// fewer than ReplicationFactor members are on the ring.
func (r *Ring) Replicas(key string) []address.Address {
	n := len(r.entries)
	if n < ReplicationFactor {
		return nil
	}

	pos := address.HashString(key)

	start := 0
	if pos <= r.entries[0].Hash || pos > r.entries[n-1].Hash {
		start = 0
	} else {
		start = sort.Search(n, func(i int) bool { return r.entries[i].Hash >= pos })
	}

	out := make([]address.Address, ReplicationFactor)
	for i := 0; i < ReplicationFactor; i++ {
		out[i] = r.entries[(start+i)%n].Addr
	}
	return out
}
