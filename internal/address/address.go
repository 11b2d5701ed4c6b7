// Package address implements the 6-byte node identity used throughout the
// simulation (4-byte id + 2-byte port) and the stable hash that places an
// address or a key on the consistent-hash ring.
//
// Grounded on the original MP1Node::getJoinAddress / get_address helpers
// (map id/port into a fixed-width byte layout) and on the teacher's
// cluster/hash.go hashing idiom (truncate a cryptographic digest to a
// uint32 ring position).
package address

import (
	"crypto/sha1"
	"encoding/binary"
	"fmt"
)

// RingSize is the modulus of the ring's slot space. Taken from the original
// source's RING_SIZE constant.
const RingSize = 512

// Address is a 6-byte node identity: a 4-byte id and a 2-byte port.
// Equality is byte-wise, matching spec.md's "Equality is byte-wise" rule.
type Address struct {
	ID   uint32
	Port uint16
}

// Introducer is the well-known address every joiner contacts first.
var Introducer = Address{ID: 1, Port: 0}

// New builds an Address from an id and port.
func New(id uint32, port uint16) Address {
	return Address{ID: id, Port: port}
}

// Equal reports whether two addresses carry the same id and port.
func (a Address) Equal(other Address) bool {
	return a.ID == other.ID && a.Port == other.Port
}

// IsIntroducer reports whether a is the well-known introducer address.
func (a Address) IsIntroducer() bool {
	return a.Equal(Introducer)
}

// String renders the address as "id.port" for logs.
func (a Address) String() string {
	return fmt.Sprintf("%d.%d", a.ID, a.Port)
}

// Hash reduces the address's byte-wise identity into a ring position.
func (a Address) Hash() uint32 {
	return HashString(a.String())
}

// HashString hashes an arbitrary string (a serialized address, or a store
// key) into a ring position in [0, RingSize). Any stable, uniform hash
// works here; sha1 truncated to 32 bits follows the teacher's hash.go idiom
// of truncating a digest (sha256 there).
func HashString(s string) uint32 {
	sum := sha1.Sum([]byte(s))
	return binary.BigEndian.Uint32(sum[:4]) % RingSize
}
