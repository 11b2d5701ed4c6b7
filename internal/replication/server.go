package replication

import (
	"distributed-kvstore/internal/address"
	"distributed-kvstore/internal/eventlog"
	"distributed-kvstore/internal/netsim"
	"distributed-kvstore/internal/store"
)

// Server runs the replica-side CRUD handlers for one node: it applies an
// incoming CREATE/READ/UPDATE/DELETE to the local store and replies to the
// coordinator, unless a CREATE or DELETE carries the stabilization sentinel
// id, in which case it applies silently and neither logs nor replies (READ
// and UPDATE always log and reply). Grounded on MP2Node's
// createKeyValue/readKey/updateKeyValue/deletekey and their STABLE special
// casing.
type Server struct {
	self  address.Address
	net   *netsim.Network
	log   *eventlog.Sink
	store *store.Store
}

// NewServer creates a replica-side Server for self, operating on store.
func NewServer(self address.Address, net *netsim.Network, log *eventlog.Sink, st *store.Store) *Server {
	return &Server{self: self, net: net, log: log, store: st}
}

// HandleMessage applies an incoming CRUD message. The coordinator is the
// message's From address; the reply (if any) is sent back there.
func (s *Server) HandleMessage(now int64, msg netsim.Message) {
	switch msg.Kind {
	case netsim.Create:
		s.handleCreate(now, msg)
	case netsim.Read:
		s.handleRead(now, msg)
	case netsim.Update:
		s.handleUpdate(now, msg)
	case netsim.Delete:
		s.handleDelete(now, msg)
	}
}

func (s *Server) isStable(transID int64) bool { return transID == StableTransID }

func (s *Server) handleCreate(now int64, msg netsim.Message) {
	ok := s.store.Create(msg.Key, msg.Value)

	if s.isStable(msg.TransID) {
		// Stabilization write: create-if-absent, no log, no reply —
		// MP2Node::createKeyValue's STABLE branch.
		return
	}

	s.log.Op(now, logKind(OpCreate, ok), s.self.String(), false, msg.TransID, msg.Key, msg.Value)
	s.net.Send(s.self, msg.From, netsim.Message{
		Kind:    netsim.Reply,
		From:    s.self,
		TransID: msg.TransID,
		Success: ok,
	})
}

func (s *Server) handleRead(now int64, msg netsim.Message) {
	value, ok := s.store.Read(msg.Key)

	s.log.Op(now, logKind(OpRead, ok), s.self.String(), false, msg.TransID, msg.Key, value)
	s.net.Send(s.self, msg.From, netsim.Message{
		Kind:    netsim.ReadReply,
		From:    s.self,
		TransID: msg.TransID,
		Value:   value,
		Success: ok,
	})
}

func (s *Server) handleUpdate(now int64, msg netsim.Message) {
	ok := s.store.Update(msg.Key, msg.Value)

	s.log.Op(now, logKind(OpUpdate, ok), s.self.String(), false, msg.TransID, msg.Key, msg.Value)
	s.net.Send(s.self, msg.From, netsim.Message{
		Kind:    netsim.Reply,
		From:    s.self,
		TransID: msg.TransID,
		Success: ok,
	})
}

func (s *Server) handleDelete(now int64, msg netsim.Message) {
	ok := s.store.Delete(msg.Key)

	if s.isStable(msg.TransID) {
		// Stabilization delete: silent, no log, no reply.
		return
	}

	s.log.Op(now, logKind(OpDelete, ok), s.self.String(), false, msg.TransID, msg.Key, "")
	s.net.Send(s.self, msg.From, netsim.Message{
		Kind:    netsim.Reply,
		From:    s.self,
		TransID: msg.TransID,
		Success: ok,
	})
}
