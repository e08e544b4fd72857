package policy

import "github.com/tarmor/tarmor/internal/types"

// Decision is the outcome of evaluating one entry. Exactly one of the two
// shapes holds: admitted (Violation nil, Path and Action populated) or
// rejected (Violation set).
type Decision struct {
	Entry     types.RawEntry
	Path      NormalizedPath
	Action    Action
	Violation *Violation
}

// Admitted reports whether the entry passed every policy check.
func (d Decision) Admitted() bool { return d.Violation == nil }

// Engine orchestrates normalization, link resolution, and quota tracking for
// one operation. Evaluation is strictly sequential: hardlink validation
// depends on the set of entries admitted so far, so entries must be fed in
// archive order. The engine performs no I/O.
type Engine struct {
	cfg      Config
	tracker  *Tracker
	admitted map[string]struct{}
}

// NewEngine returns an engine with fresh quota state for one operation.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:      cfg,
		tracker:  NewTracker(),
		admitted: make(map[string]struct{}),
	}
}

// Config returns the policy configuration the engine enforces.
func (e *Engine) Config() Config { return e.cfg }

// Tracker exposes the quota counters, for reporting.
func (e *Engine) Tracker() *Tracker { return e.tracker }

// Evaluate runs the full policy over one raw entry: path normalization, link
// resolution, then quota commit. It is the single decision-making entry
// point for both real runs and dry runs, so a plan always predicts real
// execution exactly.
func (e *Engine) Evaluate(entry types.RawEntry) Decision {
	path, v := Normalize(entry.Path, e.cfg)
	if v != nil {
		return Decision{Entry: entry, Violation: v}
	}
	if path.IsRoot() && entry.Type != types.EntryDir {
		// Only a directory entry may name the root; extracting it is a
		// no-op mkdir, but a root file or link has nowhere valid to land.
		return Decision{Entry: entry, Violation: &Violation{Kind: ViolationInvalidPath, Path: entry.Path}}
	}

	action, v := ResolveLink(entry, path, e.cfg, e.isAdmitted)
	if v != nil {
		return Decision{Entry: entry, Violation: v}
	}

	size := entry.Size
	if entry.Type != types.EntryFile {
		// Directories and links carry no content.
		size = 0
	}
	if v := e.tracker.CheckAndCommit(e.cfg, path.String(), size, path.Depth()); v != nil {
		return Decision{Entry: entry, Violation: v}
	}

	e.admitted[path.String()] = struct{}{}
	return Decision{Entry: entry, Path: path, Action: action}
}

func (e *Engine) isAdmitted(path string) bool {
	_, ok := e.admitted[path]
	return ok
}
