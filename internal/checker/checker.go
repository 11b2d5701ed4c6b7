// Package checker replays a recorded event log against the testable
// invariants from spec.md §8 that are observable purely from the log:
// well-formed membership add/remove pairing. Coordinator-side CRUD
// resolutions are counted but not checked, since the log records each
// outcome and not its reply or success counts. It is the external
// "checker" tooling the log sink exists to serve.
package checker

import (
	"fmt"

	"distributed-kvstore/internal/eventlog"
)

// Violation is one invariant breach found while replaying a log.
type Violation struct {
	Tick   int64
	Rule   string
	Detail string
}

// Report summarizes a replay: every violation found, plus basic counters
// useful for a human skimming CLI output.
type Report struct {
	Violations  []Violation
	NodeAdds    int
	NodeRemoves int
	Resolved    int
}

// OK reports whether the log contained no violations.
func (r Report) OK() bool { return len(r.Violations) == 0 }

// Check replays events in order and returns a Report.
func Check(events []eventlog.Event) Report {
	var r Report
	present := make(map[string]bool) // observer+"/"+other -> currently tracked

	for _, e := range events {
		switch e.Kind {
		case eventlog.NodeAdd:
			r.NodeAdds++
			key := e.Observer + "/" + e.Other
			if present[key] {
				r.Violations = append(r.Violations, Violation{
					Tick: e.Tick, Rule: "no-duplicate-add",
					Detail: fmt.Sprintf("%s added %s again without an intervening NodeRemove", e.Observer, e.Other),
				})
			}
			present[key] = true

		case eventlog.NodeRemove:
			r.NodeRemoves++
			key := e.Observer + "/" + e.Other
			if !present[key] {
				r.Violations = append(r.Violations, Violation{
					Tick: e.Tick, Rule: "remove-without-add",
					Detail: fmt.Sprintf("%s removed %s without ever having added it", e.Observer, e.Other),
				})
			}
			present[key] = false

		case eventlog.CreateSuccess, eventlog.CreateFail, eventlog.ReadSuccess, eventlog.ReadFail,
			eventlog.UpdateSuccess, eventlog.UpdateFail, eventlog.DeleteSuccess, eventlog.DeleteFail:
			if e.IsCoordinator {
				r.Resolved++
			}
		}
	}

	return r
}
