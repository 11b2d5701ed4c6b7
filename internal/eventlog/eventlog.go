// Package eventlog is the append-only structured log sink external to the
// core protocols (spec.md §6: "the append-only structured log sink ...
// these expose narrow interfaces; their internals are not redesigned
// here"). It records the events an external checker uses to verify the
// testable properties in spec.md §8: NodeAdd, NodeRemove, and the eight
// {Create,Read,Update,Delete}{Success,Fail} kinds.
//
// Grounded on the teacher's internal/store/wal.go: newline-delimited JSON,
// append-then-fsync durability, a mutex-guarded *os.File. The teacher used
// this shape to make key-value writes crash-safe; here it makes the
// checker's evidence crash-safe instead — same mechanism, new payload.
package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Kind identifies one of the event types the checker consumes.
type Kind string

const (
	NodeAdd    Kind = "NodeAdd"
	NodeRemove Kind = "NodeRemove"

	CreateSuccess Kind = "CreateSuccess"
	CreateFail    Kind = "CreateFail"
	ReadSuccess   Kind = "ReadSuccess"
	ReadFail      Kind = "ReadFail"
	UpdateSuccess Kind = "UpdateSuccess"
	UpdateFail    Kind = "UpdateFail"
	DeleteSuccess Kind = "DeleteSuccess"
	DeleteFail    Kind = "DeleteFail"
)

// Event is one entry in the log. Fields not relevant to a given Kind are
// left zero-valued (e.g. Value is empty for DeleteSuccess).
type Event struct {
	Tick          int64  `json:"tick"`
	Kind          Kind   `json:"kind"`
	Observer      string `json:"observer"`
	Other         string `json:"other,omitempty"` // the added/removed address, for NodeAdd/NodeRemove
	IsCoordinator bool   `json:"is_coordinator,omitempty"`
	TransID       int64  `json:"trans_id,omitempty"`
	Key           string `json:"key,omitempty"`
	Value         string `json:"value,omitempty"`
}

// Sink is a single append-only NDJSON file plus an in-memory mirror used by
// Checkpoint and by in-process checkers that don't want to re-read the
// file.
type Sink struct {
	mu      sync.Mutex
	file    *os.File
	writer  *bufio.Writer
	entries []Event
}

// Open creates or appends to the NDJSON file at path.
func Open(path string) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	return &Sink{file: f, writer: bufio.NewWriter(f)}, nil
}

// append serializes e as JSON, writes it followed by a newline, and fsyncs
// the underlying file — the same "durable before we move on" discipline as
// the teacher's WAL.append.
func (s *Sink) append(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if _, err := s.writer.Write(data); err != nil {
		return err
	}
	if err := s.writer.Flush(); err != nil {
		return err
	}
	if err := s.file.Sync(); err != nil {
		return err
	}
	s.entries = append(s.entries, e)
	return nil
}

// NodeAdd records that observer first added other to its member list.
func (s *Sink) NodeAdd(tick int64, observer, other string) {
	_ = s.append(Event{Tick: tick, Kind: NodeAdd, Observer: observer, Other: other})
}

// NodeRemove records that observer evicted other from its member list.
func (s *Sink) NodeRemove(tick int64, observer, other string) {
	_ = s.append(Event{Tick: tick, Kind: NodeRemove, Observer: observer, Other: other})
}

// Op logs one CRUD outcome. kind must be one of the Create/Read/Update/
// Delete Success/Fail constants.
func (s *Sink) Op(tick int64, kind Kind, observer string, isCoordinator bool, transID int64, key, value string) {
	_ = s.append(Event{
		Tick:          tick,
		Kind:          kind,
		Observer:      observer,
		IsCoordinator: isCoordinator,
		TransID:       transID,
		Key:           key,
		Value:         value,
	})
}

// Entries returns a snapshot of every event appended so far.
func (s *Sink) Entries() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Event, len(s.entries))
	copy(out, s.entries)
	return out
}

// Close flushes and closes the underlying file.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writer.Flush(); err != nil {
		return err
	}
	return s.file.Close()
}
