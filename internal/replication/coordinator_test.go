package replication

import (
	"testing"

	"distributed-kvstore/internal/address"
	"distributed-kvstore/internal/cluster"
	"distributed-kvstore/internal/eventlog"
	"distributed-kvstore/internal/netsim"
	"distributed-kvstore/internal/store"
)

type harness struct {
	addr  address.Address
	net   *netsim.Network
	log   *eventlog.Sink
	store *store.Store
	coord *Coordinator
	serv  *Server
}

func newTestHarness(t *testing.T, net *netsim.Network, id uint32) *harness {
	t.Helper()
	addr := address.New(id, 0)
	log, err := eventlog.Open(t.TempDir() + "/events.ndjson")
	if err != nil {
		t.Fatalf("eventlog.Open: %v", err)
	}
	t.Cleanup(func() { log.Close() })

	st := store.New()
	return &harness{
		addr:  addr,
		net:   net,
		log:   log,
		store: st,
		coord: NewCoordinator(addr, net, log),
		serv:  NewServer(addr, net, log, st),
	}
}

// threeNodeRing builds identical rings (including self) for 3 harnesses so
// every key has exactly 3 replicas.
func threeNodeRing(hs []*harness) *cluster.Ring {
	addrs := make([]address.Address, len(hs))
	for i, h := range hs {
		addrs[i] = h.addr
	}
	return cluster.Build(addrs[0], addrs)
}

func deliver(h *harness, now int64) {
	for _, msg := range h.net.Drain(h.addr) {
		switch msg.Kind {
		case netsim.Reply, netsim.ReadReply:
			h.coord.HandleReply(msg)
		default:
			h.serv.HandleMessage(now, msg)
		}
	}
}

func TestCreateReadRoundTrip(t *testing.T) {
	net := netsim.New(netsim.Config{})
	hs := []*harness{
		newTestHarness(t, net, 1),
		newTestHarness(t, net, 2),
		newTestHarness(t, net, 3),
	}
	ring := threeNodeRing(hs)
	for _, h := range hs {
		h.coord.SetRing(ring)
	}

	coordinator := hs[0]
	if _, ok := coordinator.coord.ClientCreate(0, "k", "v1"); !ok {
		t.Fatalf("expected dispatch to succeed with 3 replicas")
	}

	for tick := int64(1); tick <= 2; tick++ {
		for _, h := range hs {
			deliver(h, tick)
		}
		coordinator.coord.Tick(tick)
	}
	if coordinator.coord.OpenCount() != 0 {
		t.Fatalf("expected create transaction resolved, still open")
	}

	if _, ok := coordinator.coord.ClientRead(3, "k"); !ok {
		t.Fatalf("expected read dispatch to succeed")
	}
	for tick := int64(4); tick <= 5; tick++ {
		for _, h := range hs {
			deliver(h, tick)
		}
		coordinator.coord.Tick(tick)
	}

	events := coordinator.log.Entries()
	found := false
	for _, e := range events {
		if e.Kind == eventlog.ReadSuccess && e.Value == "v1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a successful read of v1 to be logged, got %+v", events)
	}
}

// TestDeleteThenReadFails covers the round-trip law: delete(k) then read(k)
// must fail.
func TestDeleteThenReadFails(t *testing.T) {
	net := netsim.New(netsim.Config{})
	hs := []*harness{
		newTestHarness(t, net, 1),
		newTestHarness(t, net, 2),
		newTestHarness(t, net, 3),
	}
	ring := threeNodeRing(hs)
	for _, h := range hs {
		h.coord.SetRing(ring)
	}
	coordinator := hs[0]

	coordinator.coord.ClientCreate(0, "k", "v1")
	for tick := int64(1); tick <= 2; tick++ {
		for _, h := range hs {
			deliver(h, tick)
		}
		coordinator.coord.Tick(tick)
	}

	coordinator.coord.ClientDelete(3, "k")
	for tick := int64(4); tick <= 5; tick++ {
		for _, h := range hs {
			deliver(h, tick)
		}
		coordinator.coord.Tick(tick)
	}

	coordinator.coord.ClientRead(6, "k")
	for tick := int64(7); tick <= 8; tick++ {
		for _, h := range hs {
			deliver(h, tick)
		}
		coordinator.coord.Tick(tick)
	}

	found := false
	for _, e := range coordinator.log.Entries() {
		if e.Kind == eventlog.ReadFail {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a failed read after delete")
	}
}

// TestResolveTwoSuccessesShortCircuits mirrors literal scenario S3: 2 of 3
// replies already succeeded, the transaction resolves as a success without
// waiting for the third reply.
func TestResolveTwoSuccessesShortCircuits(t *testing.T) {
	tr := &Transaction{TransID: 1, StartTime: 0, Op: OpCreate, Key: "k", Value: "v"}
	tr.ReplyCount, tr.SuccessCount = 2, 2

	resolved, success := resolve(tr, 1)
	if !resolved || !success {
		t.Fatalf("expected immediate success resolution, got resolved=%v success=%v", resolved, success)
	}
}

// TestResolveTwoFailuresShortCircuits mirrors literal scenario S4: 2
// failures accumulate, the transaction resolves as a failure immediately.
func TestResolveTwoFailuresShortCircuits(t *testing.T) {
	tr := &Transaction{TransID: 1, StartTime: 0, Op: OpCreate, Key: "k", Value: "v"}
	tr.ReplyCount, tr.SuccessCount = 2, 0

	resolved, success := resolve(tr, 1)
	if !resolved || success {
		t.Fatalf("expected immediate failure resolution, got resolved=%v success=%v", resolved, success)
	}
}

// TestResolveTimeout mirrors literal scenario S5: a transaction with too
// few replies resolves as a failure once more than 10 ticks have elapsed.
func TestResolveTimeout(t *testing.T) {
	tr := &Transaction{TransID: 1, StartTime: 0, Op: OpRead, Key: "k"}
	tr.ReplyCount, tr.SuccessCount = 1, 0

	if resolved, _ := resolve(tr, 10); resolved {
		t.Fatalf("expected transaction still open at exactly now-start==10")
	}
	resolved, success := resolve(tr, 11)
	if !resolved || success {
		t.Fatalf("expected timeout failure at now-start==11, got resolved=%v success=%v", resolved, success)
	}
}

// TestSuccessCountNeverExceedsReplyCount covers invariant 4.
func TestSuccessCountNeverExceedsReplyCount(t *testing.T) {
	net := netsim.New(netsim.Config{})
	hs := []*harness{
		newTestHarness(t, net, 1),
		newTestHarness(t, net, 2),
		newTestHarness(t, net, 3),
	}
	ring := threeNodeRing(hs)
	for _, h := range hs {
		h.coord.SetRing(ring)
	}
	coordinator := hs[0]
	coordinator.coord.ClientCreate(0, "k", "v1")

	for tick := int64(1); tick <= 1; tick++ {
		for _, h := range hs {
			deliver(h, tick)
		}
	}
	for _, tr := range coordinator.coord.open {
		if tr.SuccessCount > tr.ReplyCount || tr.ReplyCount > 3 || tr.SuccessCount < 0 {
			t.Fatalf("invariant violated: %+v", tr)
		}
	}
}
