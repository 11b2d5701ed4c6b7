package sim

import (
	"path/filepath"
	"testing"
)

func TestSimulationJoinsAndReplicates(t *testing.T) {
	s, err := New(Config{NumNodes: 3, EventLogPath: filepath.Join(t.TempDir(), "events.ndjson")})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	s.Start()
	s.Run(5)

	for _, n := range s.Nodes() {
		if n.Ring() == nil || n.Ring().Len() != 3 {
			t.Fatalf("node %s expected a full ring by tick 5, got %v", n.Addr(), n.Ring())
		}
	}

	coord := s.Nodes()[0].Coordinator()
	coord.ClientCreate(s.Tick(), "k", "v")
	s.Run(4)

	if coord.OpenCount() != 0 {
		t.Fatalf("expected create transaction to resolve within 4 ticks")
	}
}

func TestSimulationRejectsBadConfig(t *testing.T) {
	if _, err := New(Config{NumNodes: 0, EventLogPath: "x"}); err == nil {
		t.Fatalf("expected an error for num-nodes=0")
	}
	if _, err := New(Config{NumNodes: 3, DropProbability: 2, EventLogPath: "x"}); err == nil {
		t.Fatalf("expected an error for drop-probability out of range")
	}
}

func TestRunScenarioAppliesFailureInjection(t *testing.T) {
	dir := t.TempDir()
	sc := &Scenario{
		NumNodes: 3,
		Ticks:    30,
		Actions: []Action{
			{Tick: 6, CoordIdx: 0, Op: "create", Key: "k", Value: "v"},
			{Tick: 10, NodeIdx: 1, SetFail: true, Fail: true},
		},
	}

	s, err := RunScenario(sc, filepath.Join(dir, "events.ndjson"))
	if err != nil {
		t.Fatalf("RunScenario: %v", err)
	}
	defer s.Close()

	if !s.net.IsFailed(s.Nodes()[1].Addr()) {
		t.Fatalf("expected node 1 to be marked failed")
	}
}
