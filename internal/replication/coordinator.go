package replication

import (
	"distributed-kvstore/internal/address"
	"distributed-kvstore/internal/cluster"
	"distributed-kvstore/internal/eventlog"
	"distributed-kvstore/internal/netsim"
)

// Coordinator runs the client-facing half of the replication protocol for
// one node: it allocates transaction ids, fans CREATE/READ/UPDATE/DELETE out
// to the three replicas of a key, and resolves each transaction from the
// replies it accumulates. Grounded on MP2Node's clientCreate/clientRead/
// clientUpdate/clientDelete and checkTransMap.
type Coordinator struct {
	self address.Address
	net  *netsim.Network
	log  *eventlog.Sink
	ring *cluster.Ring

	nextTransID int64
	open        map[int64]*Transaction
}

// NewCoordinator creates a Coordinator for self. SetRing must be called
// before any client call once the node has joined the group.
func NewCoordinator(self address.Address, net *netsim.Network, log *eventlog.Sink) *Coordinator {
	return &Coordinator{
		self: self,
		net:  net,
		log:  log,
		open: make(map[int64]*Transaction),
	}
}

// SetRing installs the node's current ring view. Called by internal/node
// whenever membership produces a new ring, including the very first one.
func (c *Coordinator) SetRing(r *cluster.Ring) {
	c.ring = r
}

// OpenCount reports how many transactions are still awaiting resolution —
// used by tests to check that transactions have resolved.
func (c *Coordinator) OpenCount() int {
	return len(c.open)
}

// dispatch allocates a transaction id, records the Transaction, and sends
// one message with that id to each of the key's current replicas. Returns
// false if the ring does not yet have enough members to place the key
// (spec.md §4.2: fewer than 3 members on the ring yields no replicas).
func (c *Coordinator) dispatch(now int64, op OpKind, key, value string) (int64, bool) {
	if c.ring == nil {
		return 0, false
	}
	replicas := c.ring.Replicas(key)
	if replicas == nil {
		return 0, false
	}

	c.nextTransID++
	id := c.nextTransID
	c.open[id] = &Transaction{TransID: id, StartTime: now, Op: op, Key: key, Value: value}

	for _, r := range replicas {
		c.net.Send(c.self, r, netsim.Message{
			Kind:    netsimKind(op),
			From:    c.self,
			TransID: id,
			Key:     key,
			Value:   value,
		})
	}
	return id, true
}

// ClientCreate starts a replicated CREATE. Returns the transaction id and
// whether it was dispatched.
func (c *Coordinator) ClientCreate(now int64, key, value string) (int64, bool) {
	return c.dispatch(now, OpCreate, key, value)
}

// ClientRead starts a replicated READ.
func (c *Coordinator) ClientRead(now int64, key string) (int64, bool) {
	return c.dispatch(now, OpRead, key, "")
}

// ClientUpdate starts a replicated UPDATE.
func (c *Coordinator) ClientUpdate(now int64, key, value string) (int64, bool) {
	return c.dispatch(now, OpUpdate, key, value)
}

// ClientDelete starts a replicated DELETE.
func (c *Coordinator) ClientDelete(now int64, key string) (int64, bool) {
	return c.dispatch(now, OpDelete, key, "")
}

// HandleReply accumulates one REPLY or READ_REPLY into its transaction. A
// reply for an unknown (already-resolved, or never-issued) transaction id
// is ignored, matching checkMessages' "if trans map doesn't have id, drop".
func (c *Coordinator) HandleReply(msg netsim.Message) {
	t, ok := c.open[msg.TransID]
	if !ok {
		return
	}

	t.ReplyCount++
	if msg.Kind == netsim.ReadReply {
		t.LastReadValue = msg.Value
	}
	if msg.Success {
		t.SuccessCount++
	}
}

// Tick resolves every open transaction against the 5-step rule from
// spec.md §4.3 / MP2Node::checkTransMap, logging the outcome and removing
// resolved transactions from the open set.
func (c *Coordinator) Tick(now int64) {
	for id, t := range c.open {
		resolved, success := resolve(t, now)
		if !resolved {
			continue
		}
		c.log.Op(now, logKind(t.Op, success), c.self.String(), true, t.TransID, t.Key, resolveValue(t, success))
		delete(c.open, id)
	}
}

// resolve implements MP2Node::checkTransMap's four resolving branches (the
// fifth is "leave it open"):
//
//  1. all 3 replicas replied -> success iff at least 2 succeeded
//  2. 2 successes already in -> success, don't wait for the third reply
//  3. 2 failures already in -> failure, don't wait for the third reply
//  4. more than 10 ticks have elapsed since the transaction started -> failure
func resolve(t *Transaction, now int64) (resolved, success bool) {
	switch {
	case t.ReplyCount == 3:
		return true, t.SuccessCount >= 2
	case t.SuccessCount == 2:
		return true, true
	case t.ReplyCount-t.SuccessCount == 2:
		return true, false
	case now-t.StartTime > transactionTimeout:
		return true, false
	default:
		return false, false
	}
}

// resolveValue picks the value to log for a resolved transaction: the
// accumulated read value for a successful READ, otherwise the value the
// client originally submitted.
func resolveValue(t *Transaction, success bool) string {
	if t.Op == OpRead && success {
		return t.LastReadValue
	}
	return t.Value
}
