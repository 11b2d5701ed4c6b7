package membership

import (
	"distributed-kvstore/internal/address"
	"distributed-kvstore/internal/eventlog"
	"distributed-kvstore/internal/netsim"
)

// Protocol runs the membership state machine for a single node: join
// handshake, periodic heartbeat gossip, and eviction. It holds no
// goroutines of its own — Tick is called synchronously by the owning node,
// matching spec.md §5's single-threaded, tick-driven scheduling model.
type Protocol struct {
	self address.Address
	net  *netsim.Network
	log  *eventlog.Sink

	list      *List
	inGroup   bool
	heartbeat int64
	pingCtr   int
}

// New creates a membership Protocol for self.
func New(self address.Address, net *netsim.Network, log *eventlog.Sink) *Protocol {
	return &Protocol{
		self:    self,
		net:     net,
		log:     log,
		list:    newList(self),
		pingCtr: TFail,
	}
}

// Self returns the node's own address.
func (p *Protocol) Self() address.Address { return p.self }

// InGroup reports whether this node considers itself part of the group.
func (p *Protocol) InGroup() bool { return p.inGroup }

// Heartbeat returns this node's own current heartbeat counter.
func (p *Protocol) Heartbeat() int64 { return p.heartbeat }

// List exposes the member list for ring construction and introspection.
func (p *Protocol) List() *List { return p.list }

// Start runs the join handshake: the introducer considers itself in-group
// immediately, every other node sends one JOIN_REQ to the introducer.
// Grounded on MP1Node::introduceSelfToGroup.
func (p *Protocol) Start(now int64) {
	if p.self.IsIntroducer() {
		p.inGroup = true
		return
	}
	p.net.Send(p.self, address.Introducer, netsim.Message{
		Kind:    netsim.JoinReq,
		From:    p.self,
		Members: p.snapshotMembers(),
	})
}

// HandleMessage dispatches one inbound message to the appropriate handler.
// Only membership message kinds are accepted; callers (internal/node) route
// replication kinds elsewhere.
func (p *Protocol) HandleMessage(now int64, msg netsim.Message) {
	switch msg.Kind {
	case netsim.JoinReq:
		p.handleJoinReq(now, msg)
	case netsim.JoinRep:
		p.handleJoinRep(now, msg)
	case netsim.Ping:
		p.handlePing(now, msg)
	}
}

// handleJoinReq adds the sender (if new) and replies with our own address
// and member list.
func (p *Protocol) handleJoinReq(now int64, msg netsim.Message) {
	p.observeNew(now, msg.From)
	p.net.Send(p.self, msg.From, netsim.Message{
		Kind:    netsim.JoinRep,
		From:    p.self,
		Members: p.snapshotMembers(),
	})
}

// handleJoinRep marks this node in-group and merges the payload into the
// member list.
func (p *Protocol) handleJoinRep(now int64, msg netsim.Message) {
	p.inGroup = true
	p.observeNew(now, msg.From)
	p.mergeList(now, msg.Members)
}

// handlePing implements the two-step PING handler from spec.md §4.1: a
// source update for the sender, then a list merge for the payload.
func (p *Protocol) handlePing(now int64, msg netsim.Message) {
	p.updateSource(now, msg.From)
	p.mergeList(now, msg.Members)
}

// observeNew inserts addr with a fresh heartbeat if it isn't already known.
// Used by the join handshake, where there is no existing heartbeat to bump.
func (p *Protocol) observeNew(now int64, addr address.Address) {
	if addr.Equal(p.self) {
		return
	}
	if _, ok := p.list.Get(addr); ok {
		return
	}
	p.list.insert(addr, Entry{ID: addr.ID, Port: addr.Port, Heartbeat: 1, Timestamp: now})
	p.log.NodeAdd(now, p.self.String(), addr.String())
}

// updateSource implements PING step 1: if the sender is present, advance
// its heartbeat and timestamp; otherwise insert a fresh entry for it.
func (p *Protocol) updateSource(now int64, src address.Address) {
	if e, ok := p.list.Get(src); ok {
		e.Heartbeat++
		e.Timestamp = now
		p.list.insert(src, e)
		return
	}
	p.observeNew(now, src)
}

// mergeList implements PING step 2: for each incoming entry, either advance
// a matching local entry's heartbeat to the max of the two (updating its
// timestamp only if the heartbeat actually moved), or insert it fresh when
// it isn't stale and isn't self.
func (p *Protocol) mergeList(now int64, incoming []netsim.MemberInfo) {
	for _, e := range incoming {
		addr := address.New(e.ID, e.Port)
		if addr.Equal(p.self) {
			continue
		}

		if local, ok := p.list.Get(addr); ok {
			if e.Heartbeat > local.Heartbeat {
				local.Heartbeat = e.Heartbeat
				local.Timestamp = now
				p.list.insert(addr, local)
			}
			continue
		}

		if now-e.Timestamp < TRemove {
			p.list.insert(addr, Entry{ID: e.ID, Port: e.Port, Heartbeat: e.Heartbeat, Timestamp: now})
			p.log.NodeAdd(now, p.self.String(), addr.String())
		}
	}
}

// Tick runs the periodic gossip ops described in spec.md §4.1: advance our
// own heartbeat, evict timed-out members, then PING every remaining member.
// Does nothing until this node is in-group.
func (p *Protocol) Tick(now int64) {
	if !p.inGroup {
		return
	}

	p.heartbeat++
	p.evict(now)

	members := p.snapshotMembers()
	for _, e := range p.list.Entries() {
		p.net.Send(p.self, e.Addr(), netsim.Message{
			Kind:    netsim.Ping,
			From:    p.self,
			Members: members,
		})
	}
}

// evict removes any entry whose heartbeat has not advanced for TRemove
// ticks, logging a NodeRemove event for each.
func (p *Protocol) evict(now int64) {
	for _, e := range p.list.Entries() {
		if now-e.Timestamp >= TRemove {
			p.list.remove(e.Addr())
			p.log.NodeRemove(now, p.self.String(), e.Addr().String())
		}
	}
}

// snapshotMembers renders the member list in wire form for outbound
// messages.
func (p *Protocol) snapshotMembers() []netsim.MemberInfo {
	entries := p.list.Entries()
	out := make([]netsim.MemberInfo, len(entries))
	for i, e := range entries {
		out[i] = netsim.MemberInfo{ID: e.ID, Port: e.Port, Heartbeat: e.Heartbeat, Timestamp: e.Timestamp}
	}
	return out
}
