package replication

import (
	"testing"

	"distributed-kvstore/internal/address"
	"distributed-kvstore/internal/cluster"
	"distributed-kvstore/internal/eventlog"
	"distributed-kvstore/internal/netsim"
	"distributed-kvstore/internal/store"
)

func openTestServerLog(t *testing.T) *eventlog.Sink {
	t.Helper()
	s, err := eventlog.Open(t.TempDir() + "/events.ndjson")
	if err != nil {
		t.Fatalf("eventlog.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStabilizeReplicatesToNewReplica(t *testing.T) {
	net := netsim.New(netsim.Config{})
	a1, a2, a3 := address.New(1, 0), address.New(2, 0), address.New(3, 0)

	st1 := store.New()
	st1.Create("k", "v1")

	stab := NewStabilizer(a1, net, st1)
	newRing := cluster.Build(a1, []address.Address{a1, a2, a3})

	stab.Run(newRing)

	msgs := net.Drain(a2)
	if len(msgs) != 1 {
		t.Fatalf("expected exactly 1 stabilization message to a2, got %d", len(msgs))
	}
	if msgs[0].TransID != StableTransID || msgs[0].Key != "k" || msgs[0].Value != "v1" {
		t.Fatalf("unexpected stabilization message: %+v", msgs[0])
	}

	msgs3 := net.Drain(a3)
	if len(msgs3) != 1 {
		t.Fatalf("expected exactly 1 stabilization message to a3, got %d", len(msgs3))
	}
}

func TestStabilizeKeepsLocalCopyWhenNoLongerOwner(t *testing.T) {
	net := netsim.New(netsim.Config{})
	a1, a2, a3, a4 := address.New(1, 0), address.New(2, 0), address.New(3, 0), address.New(4, 0)

	st1 := store.New()
	st1.Create("k", "v1")
	stab := NewStabilizer(a1, net, st1)

	// a1 is no longer among the ring's members at all, so it can never be
	// among "k"'s replicas. Stabilization must still leave the local copy in
	// place: spec.md §4.5 performs no explicit deletion of now-misplaced
	// copies, and MP2Node::stabilizationProtocol never deletes either.
	newRing := cluster.Build(a1, []address.Address{a2, a3, a4})

	stab.Run(newRing)

	if v, ok := st1.Read("k"); !ok || v != "v1" {
		t.Fatalf("stabilization must not delete the local copy, got ok=%v v=%q", ok, v)
	}
}

func TestServerStableCreateIsSilent(t *testing.T) {
	net := netsim.New(netsim.Config{})
	a1 := address.New(1, 0)
	a2 := address.New(2, 0)
	st := store.New()
	log := openTestServerLog(t)
	serv := NewServer(a1, net, log, st)

	serv.HandleMessage(0, netsim.Message{Kind: netsim.Create, From: a2, TransID: StableTransID, Key: "k", Value: "v"})

	if v, ok := st.Read("k"); !ok || v != "v" {
		t.Fatalf("expected stabilization create to apply, got ok=%v v=%q", ok, v)
	}
	if len(net.Drain(a2)) != 0 {
		t.Fatalf("expected no reply for a stabilization write")
	}
	if len(log.Entries()) != 0 {
		t.Fatalf("expected no log entry for a stabilization write")
	}
}
