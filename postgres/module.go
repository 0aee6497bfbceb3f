package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meikuraledutech/builder"
)

// ListModules returns all modules of a workflow in canvas order.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListModules(ctx context.Context, workflowID string) ([]builder.ModuleInstance, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, type, name, description, category, config, pos_x, pos_y
		   FROM workflow_modules WHERE workflow_id = $1 ORDER BY seq`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("builder: list modules: %w", err)
	}
	defer rows.Close()

	modules := []builder.ModuleInstance{}
	for rows.Next() {
		var (
			m    builder.ModuleInstance
			cfg  []byte
			x, y *float64
		)
		if err := rows.Scan(&m.ID, &m.Type, &m.Name, &m.Description, &m.Category, &cfg, &x, &y); err != nil {
			return nil, fmt.Errorf("builder: scan module: %w", err)
		}
		if err := json.Unmarshal(cfg, &m.Config); err != nil {
			return nil, fmt.Errorf("builder: decode config of %s: %w", m.ID, err)
		}
		if x != nil && y != nil {
			m.Position = &builder.Position{X: *x, Y: *y}
		}
		modules = append(modules, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("builder: rows modules: %w", err)
	}
	return modules, nil
}

// DeleteModule deletes a module by its ID within a workflow.
// Connections touching it are cascade-deleted by the DB.
// No error if the module doesn't exist.
func (s *PGStore) DeleteModule(ctx context.Context, workflowID, moduleID string) error {
	ct, err := s.db.Exec(ctx,
		`DELETE FROM workflow_modules WHERE workflow_id = $1 AND id = $2`, workflowID, moduleID)
	if err != nil {
		return fmt.Errorf("builder: delete module: %w", err)
	}
	if ct.RowsAffected() > 0 {
		return s.touch(ctx, workflowID)
	}
	return nil
}

func (s *PGStore) touch(ctx context.Context, workflowID string) error {
	if _, err := s.db.Exec(ctx, `UPDATE workflows SET updated_at = $1 WHERE id = $2`, s.now(), workflowID); err != nil {
		return fmt.Errorf("builder: touch workflow: %w", err)
	}
	return nil
}
