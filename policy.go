package builder

import "fmt"

// RejectReason says why a connection was refused.
type RejectReason string

const (
	RejectUnknownEndpoint RejectReason = "unknown-endpoint"
	RejectSelfLoop        RejectReason = "self-loop"
	RejectDuplicate       RejectReason = "duplicate"
	RejectCycle           RejectReason = "cycle"
)

// Rejection is returned by Editor.Connect when the policy refuses a connection.
type Rejection struct {
	Reason  RejectReason
	Request ConnectionRequest
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("builder: connection %s -> %s rejected: %s", r.Request.Source, r.Request.Target, r.Reason)
}

// Unwrap maps cycle rejections onto ErrCycleDetected and unknown endpoints onto
// ErrDanglingConnection so callers can use errors.Is.
func (r *Rejection) Unwrap() error {
	switch r.Reason {
	case RejectCycle:
		return ErrCycleDetected
	case RejectUnknownEndpoint:
		return ErrDanglingConnection
	}
	return nil
}

// ConnectionPolicy decides which connections Editor.Connect accepts.
type ConnectionPolicy struct {
	AllowDangling   bool
	AllowSelfLoops  bool
	AllowDuplicates bool
	AllowCycles     bool
}

// DefaultPolicy refuses dangling endpoints and self loops. Parallel connections
// between the same pair are allowed because modules may expose several channels.
var DefaultPolicy = ConnectionPolicy{AllowDuplicates: true, AllowCycles: true}

// StrictPolicy additionally refuses duplicates and cycles.
var StrictPolicy = ConnectionPolicy{}

// Check validates req against the modules and connections already in w.
func (p ConnectionPolicy) Check(w *Workflow, req ConnectionRequest) error {
	reject := func(reason RejectReason) error {
		return &Rejection{Reason: reason, Request: req}
	}

	if !p.AllowDangling && (indexOfModule(w.Modules, req.Source) < 0 || indexOfModule(w.Modules, req.Target) < 0) {
		return reject(RejectUnknownEndpoint)
	}
	if !p.AllowSelfLoops && req.Source == req.Target {
		return reject(RejectSelfLoop)
	}
	if !p.AllowDuplicates {
		for _, c := range w.Connections {
			if c.Source == req.Source && c.Target == req.Target &&
				c.SourceHandle == req.SourceHandle && c.TargetHandle == req.TargetHandle {
				return reject(RejectDuplicate)
			}
		}
	}
	if !p.AllowCycles {
		edges := append(append([]Connection{}, w.Connections...), Connection{Source: req.Source, Target: req.Target})
		if err := validateAcyclic(w.Modules, edges); err != nil {
			return reject(RejectCycle)
		}
	}
	return nil
}

// ValidateGraph checks that every connection references a module of w, that
// module ids are present and unique, that non-empty connection ids are unique
// and that every module type exists in catalog. Empty connection ids are left
// for the store to fill. When acyclic is set it also rejects cycles.
func ValidateGraph(w *Workflow, catalog *Catalog, acyclic bool) error {
	seen := make(map[string]bool, len(w.Modules))
	for _, m := range w.Modules {
		if m.ID == "" {
			return fmt.Errorf("%w: type %q", ErrMissingModuleID, m.Type)
		}
		if seen[m.ID] {
			return fmt.Errorf("%w: %q", ErrDuplicateModuleID, m.ID)
		}
		seen[m.ID] = true
		if catalog != nil {
			if _, ok := catalog.Lookup(m.Type); !ok {
				return fmt.Errorf("%w: %q", ErrUnknownModuleType, m.Type)
			}
		}
	}
	connIDs := make(map[string]bool, len(w.Connections))
	for _, c := range w.Connections {
		if c.ID != "" {
			if connIDs[c.ID] {
				return fmt.Errorf("%w: %q", ErrDuplicateConnectionID, c.ID)
			}
			connIDs[c.ID] = true
		}
		if !seen[c.Source] || !seen[c.Target] {
			return fmt.Errorf("%w: %s (%s -> %s)", ErrDanglingConnection, c.ID, c.Source, c.Target)
		}
	}
	if acyclic {
		return validateAcyclic(w.Modules, w.Connections)
	}
	return nil
}

// validateAcyclic checks that the connections don't form a cycle using DFS.
func validateAcyclic(modules []ModuleInstance, connections []Connection) error {
	adj := make(map[string][]string)
	for _, c := range connections {
		adj[c.Source] = append(adj[c.Source], c.Target)
	}

	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)

	// Iterate modules in order so the walk is deterministic.
	order := make([]string, 0, len(modules))
	state := make(map[string]int)
	add := func(id string) {
		if _, ok := state[id]; !ok {
			state[id] = unvisited
			order = append(order, id)
		}
	}
	for _, m := range modules {
		add(m.ID)
	}
	// Also include modules referenced only by connections.
	for _, c := range connections {
		add(c.Source)
		add(c.Target)
	}

	var dfs func(id string) bool
	dfs = func(id string) bool {
		state[id] = visiting
		for _, next := range adj[id] {
			switch state[next] {
			case visiting:
				return true
			case unvisited:
				if dfs(next) {
					return true
				}
			}
		}
		state[id] = visited
		return false
	}

	for _, id := range order {
		if state[id] == unvisited && dfs(id) {
			return ErrCycleDetected
		}
	}
	return nil
}

func indexOfModule(modules []ModuleInstance, id string) int {
	for i := range modules {
		if modules[i].ID == id {
			return i
		}
	}
	return -1
}
