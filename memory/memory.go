// Package memory keeps workflows and revocations in process memory. It backs
// the server when no database is configured and is used by tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meikuraledutech/builder"
)

type record struct {
	wf       builder.Workflow
	status   string
	endpoint string
}

// Store implements builder.Store in memory.
type Store struct {
	mu        sync.RWMutex
	workflows map[string]*record
	now       func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{workflows: make(map[string]*record), now: time.Now}
}

// CreateSchema is a no-op.
func (s *Store) CreateSchema(ctx context.Context) error { return nil }

// DropSchema removes every workflow.
func (s *Store) DropSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workflows = make(map[string]*record)
	return nil
}

// SaveWorkflow stores w, replacing any workflow with the same id. A workflow
// without an id gets a fresh UUID.
func (s *Store) SaveWorkflow(ctx context.Context, w *builder.Workflow) (*builder.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	now := s.now()
	if prev, ok := s.workflows[w.ID]; ok {
		w.CreatedAt = prev.wf.CreatedAt
	} else if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	w.UpdatedAt = now
	for i := range w.Connections {
		if w.Connections[i].ID == "" {
			w.Connections[i].ID = uuid.NewString()
		}
	}
	s.workflows[w.ID] = &record{wf: w.Clone(), status: "active"}
	return w, nil
}

// GetWorkflow returns nil, nil if the workflow does not exist.
func (s *Store) GetWorkflow(ctx context.Context, workflowID string) (*builder.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.workflows[workflowID]
	if !ok {
		return nil, nil
	}
	w := r.wf.Clone()
	return &w, nil
}

// ListWorkflows returns summaries ordered by creation time.
func (s *Store) ListWorkflows(ctx context.Context) ([]builder.WorkflowSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []builder.WorkflowSummary{}
	for _, r := range s.workflows {
		out = append(out, builder.WorkflowSummary{
			ID:              r.wf.ID,
			Name:            r.wf.Name,
			Description:     r.wf.Description,
			Status:          r.status,
			Endpoint:        r.endpoint,
			ModuleCount:     len(r.wf.Modules),
			ConnectionCount: len(r.wf.Connections),
			CreatedAt:       r.wf.CreatedAt,
			UpdatedAt:       r.wf.UpdatedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// DeleteWorkflow removes a workflow. No error if it doesn't exist.
func (s *Store) DeleteWorkflow(ctx context.Context, workflowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.workflows, workflowID)
	return nil
}

// ListModules returns an empty slice (not nil) if none found.
func (s *Store) ListModules(ctx context.Context, workflowID string) ([]builder.ModuleInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.workflows[workflowID]
	if !ok {
		return []builder.ModuleInstance{}, nil
	}
	return r.wf.Clone().Modules, nil
}

// DeleteModule removes a module and its connections. No error if it doesn't exist.
func (s *Store) DeleteModule(ctx context.Context, workflowID, moduleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.workflows[workflowID]
	if !ok {
		return nil
	}
	ed := builder.NewEditor(nil, builder.WithWorkflow(r.wf), builder.WithClock(s.now))
	if ed.DeleteModule(moduleID) {
		r.wf = ed.Workflow()
	}
	return nil
}

// ListConnections returns an empty slice (not nil) if none found.
func (s *Store) ListConnections(ctx context.Context, workflowID string) ([]builder.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.workflows[workflowID]
	if !ok {
		return []builder.Connection{}, nil
	}
	return append([]builder.Connection{}, r.wf.Connections...), nil
}

// DeleteConnection removes one connection. No error if it doesn't exist.
func (s *Store) DeleteConnection(ctx context.Context, workflowID, connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.workflows[workflowID]
	if !ok {
		return nil
	}
	ed := builder.NewEditor(nil, builder.WithWorkflow(r.wf), builder.WithClock(s.now))
	if ed.DeleteConnection(connectionID) {
		r.wf = ed.Workflow()
	}
	return nil
}
