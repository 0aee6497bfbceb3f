package builder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultWorkflowName is the name given to a fresh workflow.
const DefaultWorkflowName = "Untitled Workflow"

// ErrSaveInProgress is returned by Save while another save is in flight.
var ErrSaveInProgress = errors.New("builder: save already in progress")

// ModulePatch holds the fields UpdateModule merges into an instance.
// Nil fields are left untouched; Config replaces the whole map.
type ModulePatch struct {
	Name        *string
	Description *string
	Config      map[string]any
	Position    *Position
}

// Saver sends a workflow payload to the backend.
type Saver interface {
	Save(ctx context.Context, p Payload) (json.RawMessage, error)
}

// Editor is the single source of truth for a workflow being authored.
// It is owned by one goroutine; only Saving may be read concurrently.
type Editor struct {
	catalog *Catalog
	wf      Workflow
	policy  ConnectionPolicy
	now     func() time.Time
	newID   func() string
	log     zerolog.Logger
	saving  atomic.Bool
}

// Option configures an Editor.
type Option func(*Editor)

// WithClock overrides the time source used for ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Editor) { e.now = now }
}

// WithIDGenerator overrides the generator used for connection and workflow ids.
// Connection ids already in use are retried a few times and then suffixed.
func WithIDGenerator(gen func() string) Option {
	return func(e *Editor) { e.newID = gen }
}

// WithPolicy sets the policy Connect enforces.
func WithPolicy(p ConnectionPolicy) Option {
	return func(e *Editor) { e.policy = p }
}

// WithLogger sets the logger. The global zerolog logger is used otherwise.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Editor) { e.log = l }
}

// WithWorkflow starts the editor from a previously serialized workflow.
func WithWorkflow(w Workflow) Option {
	return func(e *Editor) { e.wf = w.Clone() }
}

// NewEditor returns an editor over an empty workflow unless WithWorkflow is given.
func NewEditor(catalog *Catalog, opts ...Option) *Editor {
	e := &Editor{
		catalog: catalog,
		policy:  DefaultPolicy,
		now:     time.Now,
		newID:   uuid.NewString,
		log:     log.Logger,
	}
	for _, o := range opts {
		o(e)
	}
	if e.wf.ID == "" {
		ts := e.now()
		e.wf.ID = e.newID()
		if e.wf.Name == "" {
			e.wf.Name = DefaultWorkflowName
		}
		if e.wf.CreatedAt.IsZero() {
			e.wf.CreatedAt = ts
		}
		if e.wf.UpdatedAt.IsZero() {
			e.wf.UpdatedAt = ts
		}
	}
	if e.wf.Modules == nil {
		e.wf.Modules = []ModuleInstance{}
	}
	if e.wf.Connections == nil {
		e.wf.Connections = []Connection{}
	}
	return e
}

// Catalog returns the catalog the editor instantiates modules from.
func (e *Editor) Catalog() *Catalog { return e.catalog }

// Workflow returns a deep copy of the current workflow.
func (e *Editor) Workflow() Workflow { return e.wf.Clone() }

// Payload returns the save body for the current workflow.
func (e *Editor) Payload() Payload { return e.wf.Payload() }

// Module returns a copy of the instance with the given id.
func (e *Editor) Module(id string) (ModuleInstance, bool) {
	i := indexOfModule(e.wf.Modules, id)
	if i < 0 {
		return ModuleInstance{}, false
	}
	return e.wf.Modules[i].Clone(), true
}

// Modules returns copies of the placed instances in order.
func (e *Editor) Modules() []ModuleInstance { return e.wf.Clone().Modules }

// Connections returns the connections in order.
func (e *Editor) Connections() []Connection {
	return append([]Connection{}, e.wf.Connections...)
}

// SetName renames the workflow.
func (e *Editor) SetName(name string) {
	e.wf.Name = name
	e.touch()
}

// SetDescription replaces the workflow description.
func (e *Editor) SetDescription(desc string) {
	e.wf.Description = desc
	e.touch()
}

// AddModule instantiates the template for moduleType at pos and appends it.
// Unknown types are ignored and reported with ok == false.
func (e *Editor) AddModule(moduleType string, pos Position) (ModuleInstance, bool) {
	tpl, ok := e.catalog.Lookup(moduleType)
	if !ok {
		e.log.Debug().Str("moduleType", moduleType).Msg("ignoring unknown module type")
		return ModuleInstance{}, false
	}

	p := pos
	m := ModuleInstance{
		ID:          e.moduleID(moduleType),
		Type:        tpl.Type,
		Name:        tpl.Name,
		Description: tpl.Description,
		Category:    tpl.Category,
		Config:      cloneConfig(tpl.DefaultConfig),
		Position:    &p,
	}
	e.wf.Modules = append(e.wf.Modules, m)
	e.touch()
	return m.Clone(), true
}

// UpdateModule merges patch into the instance with the given id. It reports
// false and changes nothing if the id is unknown.
func (e *Editor) UpdateModule(id string, patch ModulePatch) bool {
	i := indexOfModule(e.wf.Modules, id)
	if i < 0 {
		return false
	}
	m := &e.wf.Modules[i]
	if patch.Name != nil {
		m.Name = *patch.Name
	}
	if patch.Description != nil {
		m.Description = *patch.Description
	}
	if patch.Config != nil {
		m.Config = cloneConfig(patch.Config)
	}
	if patch.Position != nil {
		p := *patch.Position
		m.Position = &p
	}
	e.touch()
	return true
}

// DeleteModule removes the instance and every connection touching it.
func (e *Editor) DeleteModule(id string) bool {
	i := indexOfModule(e.wf.Modules, id)
	if i < 0 {
		return false
	}
	e.wf.Modules = append(e.wf.Modules[:i:i], e.wf.Modules[i+1:]...)

	kept := e.wf.Connections[:0:0]
	for _, c := range e.wf.Connections {
		if c.Source != id && c.Target != id {
			kept = append(kept, c)
		}
	}
	e.wf.Connections = kept
	e.touch()
	return true
}

// CreateConnection appends a connection with a fresh id. It does not validate
// endpoints, duplicates or self loops; use Connect for that.
func (e *Editor) CreateConnection(req ConnectionRequest) Connection {
	c := Connection{
		ID:           e.connectionID(),
		Source:       req.Source,
		Target:       req.Target,
		SourceHandle: req.SourceHandle,
		TargetHandle: req.TargetHandle,
	}
	e.wf.Connections = append(e.wf.Connections, c)
	e.touch()
	return c
}

// Connect checks req against the editor's policy and creates the connection.
// Refusals are returned as *Rejection and leave the graph untouched.
func (e *Editor) Connect(req ConnectionRequest) (Connection, error) {
	if err := e.policy.Check(&e.wf, req); err != nil {
		e.log.Debug().Err(err).Msg("connection rejected")
		return Connection{}, err
	}
	return e.CreateConnection(req), nil
}

// DeleteConnection removes a single connection.
func (e *Editor) DeleteConnection(id string) bool {
	for i, c := range e.wf.Connections {
		if c.ID == id {
			e.wf.Connections = append(e.wf.Connections[:i:i], e.wf.Connections[i+1:]...)
			e.touch()
			return true
		}
	}
	return false
}

// Load replaces the current workflow with w.
func (e *Editor) Load(w Workflow) {
	e.wf = w.Clone()
	if e.wf.Modules == nil {
		e.wf.Modules = []ModuleInstance{}
	}
	if e.wf.Connections == nil {
		e.wf.Connections = []Connection{}
	}
}

// Saving reports whether a Save call is in flight.
func (e *Editor) Saving() bool { return e.saving.Load() }

// Save sends the current payload through s. On failure the graph is left as
// is so the caller can retry.
func (e *Editor) Save(ctx context.Context, s Saver) (json.RawMessage, error) {
	if !e.saving.CompareAndSwap(false, true) {
		return nil, ErrSaveInProgress
	}
	defer e.saving.Store(false)

	body, err := s.Save(ctx, e.Payload())
	if err != nil {
		e.log.Error().Err(err).Str("workflow", e.wf.Name).Msg("failed to save workflow")
		return nil, err
	}
	e.log.Info().Str("workflow", e.wf.Name).Int("modules", len(e.wf.Modules)).
		Int("connections", len(e.wf.Connections)).Msg("workflow saved")
	return body, nil
}

func (e *Editor) touch() {
	e.wf.UpdatedAt = e.now()
}

// moduleID derives an id from the type and the current time, adding a suffix
// when the same type is dropped twice within one millisecond.
func (e *Editor) moduleID(moduleType string) string {
	base := fmt.Sprintf("%s-%d", moduleType, e.now().UnixMilli())
	id := base
	for n := 2; indexOfModule(e.wf.Modules, id) >= 0; n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	return id
}

// maxIDAttempts bounds how often connectionID asks the generator for a fresh id
// before it falls back to suffixing the last one.
const maxIDAttempts = 8

func (e *Editor) connectionID() string {
	var id string
	for range maxIDAttempts {
		id = e.newID()
		if !e.hasConnection(id) {
			return id
		}
	}
	base := id
	for n := 2; e.hasConnection(id); n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	return id
}

func (e *Editor) hasConnection(id string) bool {
	for _, c := range e.wf.Connections {
		if c.ID == id {
			return true
		}
	}
	return false
}
