package builder

import (
	"context"
	"errors"
)

var (
	ErrCycleDetected         = errors.New("builder: cycle detected, graph is not acyclic")
	ErrWorkflowNotFound      = errors.New("builder: workflow not found")
	ErrModuleNotFound        = errors.New("builder: module not found")
	ErrUnknownModuleType     = errors.New("builder: unknown module type")
	ErrDuplicateModuleID     = errors.New("builder: duplicate module id")
	ErrMissingModuleID       = errors.New("builder: module has no id")
	ErrDuplicateConnectionID = errors.New("builder: duplicate connection id")
	ErrDanglingConnection    = errors.New("builder: connection references a missing module")
)

// Store defines the contract for persisting and retrieving workflows.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// Workflow (bulk operations)
	SaveWorkflow(ctx context.Context, w *Workflow) (*Workflow, error)
	GetWorkflow(ctx context.Context, workflowID string) (*Workflow, error)
	ListWorkflows(ctx context.Context) ([]WorkflowSummary, error)
	DeleteWorkflow(ctx context.Context, workflowID string) error

	// Modules
	ListModules(ctx context.Context, workflowID string) ([]ModuleInstance, error)
	DeleteModule(ctx context.Context, workflowID, moduleID string) error

	// Connections
	ListConnections(ctx context.Context, workflowID string) ([]Connection, error)
	DeleteConnection(ctx context.Context, workflowID, connectionID string) error
}
