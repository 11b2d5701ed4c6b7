package eventlog

import (
	"path/filepath"
	"testing"
)

func TestAppendAndReadAll(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.ndjson")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.NodeAdd(1, "2.0", "3.0")
	s.Op(2, CreateSuccess, "2.0", true, 42, "k", "v")
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	entries, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Kind != NodeAdd || entries[0].Other != "3.0" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Kind != CreateSuccess || entries[1].TransID != 42 || entries[1].Value != "v" {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
}

func TestCheckpoint(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "events.ndjson")
	ckptPath := filepath.Join(dir, "checkpoint.json")

	s, err := Open(logPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	s.NodeAdd(1, "2.0", "3.0")
	if err := s.Checkpoint(ckptPath); err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}

	entries := s.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 in-memory entry, got %d", len(entries))
	}
}
