package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/meikuraledutech/builder"
)

// SaveWorkflow saves a full workflow (modules + connections) in one transaction.
// A workflow without an ID gets an auto-generated UUID. Existing modules and
// connections of the workflow are replaced. Returns the workflow with ID and
// timestamps filled in.
func (s *PGStore) SaveWorkflow(ctx context.Context, w *builder.Workflow) (*builder.Workflow, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("builder: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	now := s.now()
	err = tx.QueryRow(ctx, `
		INSERT INTO workflows (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (id) DO UPDATE
		   SET name = EXCLUDED.name, description = EXCLUDED.description, updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at`,
		w.ID, w.Name, w.Description, now,
	).Scan(&w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("builder: upsert workflow: %w", err)
	}

	// Replace semantics: connections go first so the module FKs never dangle.
	if _, err := tx.Exec(ctx, `DELETE FROM workflow_connections WHERE workflow_id = $1`, w.ID); err != nil {
		return nil, fmt.Errorf("builder: delete connections: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM workflow_modules WHERE workflow_id = $1`, w.ID); err != nil {
		return nil, fmt.Errorf("builder: delete modules: %w", err)
	}

	for i, m := range w.Modules {
		cfg, err := json.Marshal(configOrEmpty(m.Config))
		if err != nil {
			return nil, fmt.Errorf("builder: encode config of %s: %w", m.ID, err)
		}
		var x, y *float64
		if m.Position != nil {
			x, y = &m.Position.X, &m.Position.Y
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO workflow_modules (workflow_id, id, seq, type, name, description, category, config, pos_x, pos_y)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			w.ID, m.ID, i, m.Type, m.Name, m.Description, m.Category, cfg, x, y,
		); err != nil {
			return nil, fmt.Errorf("builder: insert module %s: %w", m.ID, err)
		}
	}

	for i := range w.Connections {
		c := &w.Connections[i]
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO workflow_connections (workflow_id, id, seq, source_id, target_id, source_handle, target_handle)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			w.ID, c.ID, i, c.Source, c.Target, c.SourceHandle, c.TargetHandle,
		); err != nil {
			return nil, fmt.Errorf("builder: insert connection %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("builder: commit: %w", err)
	}
	return w, nil
}

// GetWorkflow retrieves a full workflow (modules + connections) by its ID.
// Returns nil, nil if the workflow doesn't exist.
func (s *PGStore) GetWorkflow(ctx context.Context, workflowID string) (*builder.Workflow, error) {
	w := &builder.Workflow{}
	err := s.db.QueryRow(ctx,
		`SELECT id, name, description, created_at, updated_at FROM workflows WHERE id = $1`, workflowID,
	).Scan(&w.ID, &w.Name, &w.Description, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("builder: get workflow: %w", err)
	}

	if w.Modules, err = s.ListModules(ctx, workflowID); err != nil {
		return nil, err
	}
	if w.Connections, err = s.ListConnections(ctx, workflowID); err != nil {
		return nil, err
	}
	return w, nil
}

// ListWorkflows returns a summary row per workflow, ordered by created_at.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListWorkflows(ctx context.Context) ([]builder.WorkflowSummary, error) {
	rows, err := s.db.Query(ctx, `
		SELECT w.id, w.name, w.description, w.status, w.endpoint, w.created_at, w.updated_at,
		       (SELECT count(*) FROM workflow_modules m WHERE m.workflow_id = w.id),
		       (SELECT count(*) FROM workflow_connections c WHERE c.workflow_id = w.id)
		  FROM workflows w
		 ORDER BY w.created_at, w.id`)
	if err != nil {
		return nil, fmt.Errorf("builder: list workflows: %w", err)
	}
	defer rows.Close()

	out := []builder.WorkflowSummary{}
	for rows.Next() {
		var ws builder.WorkflowSummary
		if err := rows.Scan(&ws.ID, &ws.Name, &ws.Description, &ws.Status, &ws.Endpoint,
			&ws.CreatedAt, &ws.UpdatedAt, &ws.ModuleCount, &ws.ConnectionCount); err != nil {
			return nil, fmt.Errorf("builder: scan workflow: %w", err)
		}
		out = append(out, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("builder: rows workflows: %w", err)
	}
	return out, nil
}

// DeleteWorkflow removes a workflow; its modules and connections are
// cascade-deleted by the DB. No error if the workflowID doesn't exist.
func (s *PGStore) DeleteWorkflow(ctx context.Context, workflowID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM workflows WHERE id = $1`, workflowID); err != nil {
		return fmt.Errorf("builder: delete workflow: %w", err)
	}
	return nil
}

func configOrEmpty(cfg map[string]any) map[string]any {
	if cfg == nil {
		return map[string]any{}
	}
	return cfg
}
