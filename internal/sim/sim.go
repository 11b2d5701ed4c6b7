// Package sim is the simulation driver: the external "driver / global
// sim clock" collaborator from spec.md §6. It owns the shared simulated
// network and event log, constructs a fixed set of nodes, and advances a
// single global tick counter that every node's Tick method is called
// against in lockstep — spec.md §5's single-threaded, tick-driven execution
// model lives here, not inside any one node.
//
// Grounded on the teacher's cmd/server/main.go for flag-driven
// construction and validation style, generalized from "build one HTTP
// server" to "build and advance N simulated nodes".
package sim

import (
	"fmt"

	"distributed-kvstore/internal/address"
	"distributed-kvstore/internal/eventlog"
	"distributed-kvstore/internal/netsim"
	"distributed-kvstore/internal/node"
)

// Config controls how a Simulation is built.
type Config struct {
	NumNodes             int
	DropProbability      float64
	DuplicateProbability float64
	Seed                 uint64
	EventLogPath         string
}

// Validate mirrors the teacher's "fail fast on bad flags" style
// (cmd/server/main.go's W+R>N check).
func (c Config) Validate() error {
	if c.NumNodes < 1 {
		return fmt.Errorf("num-nodes must be >= 1, got %d", c.NumNodes)
	}
	if c.DropProbability < 0 || c.DropProbability > 1 {
		return fmt.Errorf("drop-probability must be in [0,1], got %f", c.DropProbability)
	}
	if c.DuplicateProbability < 0 || c.DuplicateProbability > 1 {
		return fmt.Errorf("duplicate-probability must be in [0,1], got %f", c.DuplicateProbability)
	}
	if c.EventLogPath == "" {
		return fmt.Errorf("event-log path must not be empty")
	}
	return nil
}

// Simulation owns the network, the event log, the set of nodes, and the
// current tick.
type Simulation struct {
	cfg   Config
	net   *netsim.Network
	log   *eventlog.Sink
	nodes []*node.Node
	tick  int64
}

// New constructs a Simulation: one node per cfg.NumNodes, addressed
// id=1..NumNodes on port 0, with id=1 as the well-known introducer per
// address.Introducer.
func New(cfg Config) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := eventlog.Open(cfg.EventLogPath)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}

	net := netsim.New(netsim.Config{
		DropProbability:      cfg.DropProbability,
		DuplicateProbability: cfg.DuplicateProbability,
		Seed:                 cfg.Seed,
	})

	nodes := make([]*node.Node, cfg.NumNodes)
	for i := 0; i < cfg.NumNodes; i++ {
		nodes[i] = node.New(address.New(uint32(i+1), 0), net, log)
	}

	return &Simulation{cfg: cfg, net: net, log: log, nodes: nodes}, nil
}

// Nodes returns every node in the simulation, in address order.
func (s *Simulation) Nodes() []*node.Node { return s.nodes }

// Tick returns the current global tick counter.
func (s *Simulation) Tick() int64 { return s.tick }

// EventLog exposes the shared event sink, e.g. for a final Checkpoint call.
func (s *Simulation) EventLog() *eventlog.Sink { return s.log }

// Start runs every node's join handshake at tick 0.
func (s *Simulation) Start() {
	for _, n := range s.nodes {
		n.Start(0)
	}
}

// Step advances every node by exactly one tick, in address order — the
// order is arbitrary but fixed, matching spec.md §5's requirement that the
// driver calls each node's entry point "exactly once per tick, in some
// fixed but arbitrary order".
func (s *Simulation) Step() {
	s.tick++
	for _, n := range s.nodes {
		n.Tick(s.tick)
	}
}

// Run advances the simulation by n ticks.
func (s *Simulation) Run(n int) {
	for i := 0; i < n; i++ {
		s.Step()
	}
}

// SetFailed marks the node at index idx (0-based) as failed or revives it.
func (s *Simulation) SetFailed(idx int, failed bool) error {
	if idx < 0 || idx >= len(s.nodes) {
		return fmt.Errorf("node index %d out of range [0,%d)", idx, len(s.nodes))
	}
	s.net.SetFailed(s.nodes[idx].Addr(), failed)
	return nil
}

// Close flushes and closes the shared event log.
func (s *Simulation) Close() error {
	return s.log.Close()
}
