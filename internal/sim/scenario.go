package sim

import (
	"encoding/json"
	"fmt"
	"os"
)

// Action is one scripted event in a Scenario: at tick Tick, either a client
// operation issued against node CoordIdx, or a failure/revival of node
// NodeIdx. Exactly one of (Op, SetFail) should be set; with SetFail, Fail
// says whether the node fails (true) or is revived (false).
//
// This is a narrow, local scenario format with no precedent elsewhere in
// the corpus — plain encoding/json is used rather than reaching for a
// config library the rest of the module doesn't otherwise need.
type Action struct {
	Tick     int64  `json:"tick"`
	CoordIdx int    `json:"coord_idx,omitempty"`
	Op       string `json:"op,omitempty"` // "create" | "read" | "update" | "delete"
	Key      string `json:"key,omitempty"`
	Value    string `json:"value,omitempty"`

	NodeIdx int  `json:"node_idx,omitempty"`
	Fail    bool `json:"fail,omitempty"`
	SetFail bool `json:"set_fail,omitempty"` // true if this action toggles failure state
}

// Scenario is an ordered script of Actions plus how many ticks to run in
// total.
type Scenario struct {
	NumNodes             int      `json:"num_nodes"`
	Ticks                int      `json:"ticks"`
	DropProbability      float64  `json:"drop_probability"`
	DuplicateProbability float64  `json:"duplicate_probability"`
	Seed                 uint64   `json:"seed"`
	Actions              []Action `json:"actions"`
}

// LoadScenario reads and parses a Scenario from a JSON file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var sc Scenario
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	return &sc, nil
}

// RunScenario builds a Simulation from sc, runs its join handshake, and
// then advances tick by tick, applying every Action scheduled for the tick
// just reached before continuing.
func RunScenario(sc *Scenario, eventLogPath string) (*Simulation, error) {
	s, err := New(Config{
		NumNodes:             sc.NumNodes,
		DropProbability:      sc.DropProbability,
		DuplicateProbability: sc.DuplicateProbability,
		Seed:                 sc.Seed,
		EventLogPath:         eventLogPath,
	})
	if err != nil {
		return nil, err
	}
	s.Start()

	byTick := make(map[int64][]Action)
	for _, a := range sc.Actions {
		byTick[a.Tick] = append(byTick[a.Tick], a)
	}

	for t := 0; t < sc.Ticks; t++ {
		s.Step()
		for _, a := range byTick[s.Tick()] {
			if err := s.apply(a); err != nil {
				return s, err
			}
		}
	}
	return s, nil
}

func (s *Simulation) apply(a Action) error {
	if a.SetFail {
		return s.SetFailed(a.NodeIdx, a.Fail)
	}

	if a.CoordIdx < 0 || a.CoordIdx >= len(s.nodes) {
		return fmt.Errorf("coord index %d out of range [0,%d)", a.CoordIdx, len(s.nodes))
	}
	coord := s.nodes[a.CoordIdx].Coordinator()

	switch a.Op {
	case "create":
		coord.ClientCreate(s.tick, a.Key, a.Value)
	case "read":
		coord.ClientRead(s.tick, a.Key)
	case "update":
		coord.ClientUpdate(s.tick, a.Key, a.Value)
	case "delete":
		coord.ClientDelete(s.tick, a.Key)
	default:
		return fmt.Errorf("unknown scenario op %q", a.Op)
	}
	return nil
}
