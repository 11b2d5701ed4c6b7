// Package node composes the membership protocol, ring view, and
// replication coordinator/server into the single per-process unit the
// simulation driver advances one tick at a time. Grounded on the overall
// shape of MP1Node/MP2Node's cooperating nodeLoop functions and on the
// teacher's cmd/server/main.go bootstrap for what a running node owns.
package node

import (
	"distributed-kvstore/internal/address"
	"distributed-kvstore/internal/cluster"
	"distributed-kvstore/internal/eventlog"
	"distributed-kvstore/internal/membership"
	"distributed-kvstore/internal/netsim"
	"distributed-kvstore/internal/replication"
	"distributed-kvstore/internal/store"
)

// Node is one simulated participant: its own membership state, its current
// ring view, its local store, and the coordinator/server halves of the
// replication protocol.
type Node struct {
	addr address.Address
	net  *netsim.Network
	log  *eventlog.Sink

	store   *store.Store
	members *membership.Protocol
	coord   *replication.Coordinator
	serv    *replication.Server
	stab    *replication.Stabilizer

	ring *cluster.Ring
}

// New creates a Node at addr, wired to the shared network and event log.
func New(addr address.Address, net *netsim.Network, log *eventlog.Sink) *Node {
	st := store.New()
	return &Node{
		addr:    addr,
		net:     net,
		log:     log,
		store:   st,
		members: membership.New(addr, net, log),
		coord:   replication.NewCoordinator(addr, net, log),
		serv:    replication.NewServer(addr, net, log, st),
		stab:    replication.NewStabilizer(addr, net, st),
	}
}

// Addr returns the node's address.
func (n *Node) Addr() address.Address { return n.addr }

// Store exposes the local store for introspection.
func (n *Node) Store() *store.Store { return n.store }

// Members exposes the membership protocol for introspection.
func (n *Node) Members() *membership.Protocol { return n.members }

// Coordinator exposes the coordinator half of replication so the driver can
// issue client CREATE/READ/UPDATE/DELETE calls against this node.
func (n *Node) Coordinator() *replication.Coordinator { return n.coord }

// Ring returns the node's current ring view, or nil before the first one is
// built.
func (n *Node) Ring() *cluster.Ring { return n.ring }

// Start runs the join handshake. Called once before the first Tick.
func (n *Node) Start(now int64) {
	n.members.Start(now)
}

// Tick advances the node by one simulated tick, in the order fixed by
// spec.md §4.6:
//
//  1. Drain and dispatch every inbound message, routing membership kinds to
//     the membership protocol and replication kinds to the coordinator or
//     server as appropriate.
//  2. Run membership's periodic ops (heartbeat, eviction, gossip send), if
//     this node has joined the group.
//  3. Rebuild the ring from the current member list (whether or not this
//     node has joined yet); if it changed, install it and run stabilization.
//  4. Resolve every open coordinator transaction against the 10-tick
//     timeout / reply-count rule.
func (n *Node) Tick(now int64) {
	if n.net.IsFailed(n.addr) {
		return
	}

	for _, msg := range n.net.Drain(n.addr) {
		n.dispatch(now, msg)
	}

	n.members.Tick(now)

	n.refreshRing(now)

	n.coord.Tick(now)
}

func (n *Node) dispatch(now int64, msg netsim.Message) {
	switch msg.Kind {
	case netsim.JoinReq, netsim.JoinRep, netsim.Ping:
		n.members.HandleMessage(now, msg)
	case netsim.Create, netsim.Read, netsim.Update, netsim.Delete:
		n.serv.HandleMessage(now, msg)
	case netsim.Reply, netsim.ReadReply:
		n.coord.HandleReply(msg)
	}
}

// refreshRing rebuilds the ring from the current member list and, if it
// differs from the installed one, installs it and runs stabilization —
// spec.md §4.5, grounded on MP2Node::updateRing.
func (n *Node) refreshRing(now int64) {
	peers := make([]address.Address, 0, n.members.List().Len())
	for _, e := range n.members.List().Entries() {
		peers = append(peers, e.Addr())
	}

	next := cluster.Build(n.addr, peers)
	if n.ring != nil && n.ring.Equal(next) {
		return
	}

	n.ring = next
	n.coord.SetRing(next)
	n.stab.Run(next)
}
