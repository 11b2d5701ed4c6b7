package replication

import (
	"distributed-kvstore/internal/address"
	"distributed-kvstore/internal/cluster"
	"distributed-kvstore/internal/netsim"
	"distributed-kvstore/internal/store"
)

// Stabilizer re-replicates local keys after the ring changes, so that a
// membership change doesn't leave a key under-replicated or orphaned on a
// node that no longer owns it. Grounded on MP2Node::stabilizationProtocol.
type Stabilizer struct {
	self  address.Address
	net   *netsim.Network
	store *store.Store
}

// NewStabilizer creates a Stabilizer for self.
func NewStabilizer(self address.Address, net *netsim.Network, st *store.Store) *Stabilizer {
	return &Stabilizer{self: self, net: net, store: st}
}

// Run walks every key currently held locally and, using the new ring,
// pushes a silent CREATE to each of that key's current replicas (so a
// newly-joined replica picks the key up). No explicit deletion of now-
// misplaced copies is performed; stale replicas age out through future
// stabilization cycles (spec.md §4.5). Called once per ring change.
func (st *Stabilizer) Run(newRing *cluster.Ring) {
	for key, value := range st.store.Entries() {
		replicas := newRing.Replicas(key)
		if replicas == nil {
			// Too few members to replicate at all yet; keep the key locally
			// until the ring grows.
			continue
		}

		for _, r := range replicas {
			st.net.Send(st.self, r, netsim.Message{
				Kind:    netsim.Create,
				From:    st.self,
				TransID: StableTransID,
				Key:     key,
				Value:   value,
			})
		}
	}
}
