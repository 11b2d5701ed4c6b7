// Package netsim is the simulated packet-switched network: it delivers
// opaque message values to a per-node inbound queue and is unreliable: a
// send may be dropped or delivered twice. It does not reorder; each inbox
// is drained in send order. It is an external collaborator whose internals the spec does
// not redesign — this is a narrow, workable implementation, not a protocol.
//
// The teacher's replicator.go reached for HTTP + exponential backoff retry
// to paper over an unreliable transport. There is no transport to retry
// against once messages move through an in-process queue instead of a
// socket, so that retry loop has no home here — the membership and
// replication protocols themselves are built to tolerate loss (spec.md §7),
// which is the point of simulating an unreliable network at all.
package netsim

import (
	"math/rand/v2"
	"sync"

	"distributed-kvstore/internal/address"
)

// Kind tags the payload carried by a Message — "polymorphism over message
// kinds" per spec.md §9.
type Kind int

const (
	JoinReq Kind = iota
	JoinRep
	Ping
	Create
	Read
	Update
	Delete
	Reply
	ReadReply
)

// MemberInfo is the wire form of a membership list entry.
type MemberInfo struct {
	ID        uint32
	Port      uint16
	Heartbeat int64
	Timestamp int64
}

// Message is the single wire-format envelope for every message kind in the
// system. Only the fields relevant to Kind are populated; addresses are
// carried by value, never by pointer (spec.md §9 rejects the source's
// raw-pointer-into-a-struct trick as simulator-only and unsafe to
// generalize).
type Message struct {
	Kind    Kind
	From    address.Address
	Members []MemberInfo // JoinReq, JoinRep, Ping

	TransID int64  // Create, Read, Update, Delete, Reply, ReadReply
	Key     string // Create, Read, Update, Delete
	Value   string // Create, Update, ReadReply
	Success bool   // Reply
}

// Network is the shared unreliable transport every node sends through.
// Safe for concurrent use, though the simulation driver in practice calls
// it from a single goroutine per spec.md §5.
type Network struct {
	mu     sync.Mutex
	inbox  map[address.Address][]Message
	rng    *rand.Rand
	dropP  float64 // probability a send is dropped entirely
	dupP   float64 // probability a send is delivered twice
	failed map[address.Address]bool
}

// Config tunes the network's unreliability. Zero-value Config is a
// perfectly reliable network — useful for the round-trip-law tests in
// spec.md §8 that require "no intervening ops and no failures".
type Config struct {
	DropProbability      float64
	DuplicateProbability float64
	Seed                 uint64
}

// New creates a Network. A zero Seed still produces a deterministic
// sequence (rand/v2's default seeding is only random for the package-level
// source, not for an explicit *rand.Rand), which keeps simulation runs
// reproducible for a given seed.
func New(cfg Config) *Network {
	return &Network{
		inbox:  make(map[address.Address][]Message),
		rng:    rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		dropP:  cfg.DropProbability,
		dupP:   cfg.DuplicateProbability,
		failed: make(map[address.Address]bool),
	}
}

// SetFailed marks addr as failed (suppresses delivery to and from it) or
// revives it, mirroring spec.md §7's "self-failed flag set" handling. The
// driver calls this; nodes never flip their own flag.
func (n *Network) SetFailed(addr address.Address, failed bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if failed {
		n.failed[addr] = true
	} else {
		delete(n.failed, addr)
	}
}

// IsFailed reports whether addr is currently marked failed.
func (n *Network) IsFailed(addr address.Address) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.failed[addr]
}

// Send enqueues msg for delivery to to, unless from or to is failed, in
// which case the send is silently suppressed (spec.md §7: "all send/receive
// suppressed until driver clears it").
func (n *Network) Send(from, to address.Address, msg Message) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.failed[from] || n.failed[to] {
		return
	}
	if n.dropP > 0 && n.rng.Float64() < n.dropP {
		return
	}

	n.inbox[to] = append(n.inbox[to], msg)
	if n.dupP > 0 && n.rng.Float64() < n.dupP {
		n.inbox[to] = append(n.inbox[to], msg)
	}
}

// Drain removes and returns every message queued for addr, in delivery
// order. A failed node is never drained by its own Tick, but Drain itself
// does not enforce that — the caller (internal/node) checks its own failed
// flag before calling Drain, matching MP1Node::recvLoop's "if bFailed,
// return false" guard.
func (n *Network) Drain(addr address.Address) []Message {
	n.mu.Lock()
	defer n.mu.Unlock()

	msgs := n.inbox[addr]
	delete(n.inbox, addr)
	return msgs
}
