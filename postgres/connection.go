package postgres

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/builder"
)

// ListConnections returns all connections of a workflow in creation order.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListConnections(ctx context.Context, workflowID string) ([]builder.Connection, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, source_id, target_id, source_handle, target_handle
		   FROM workflow_connections WHERE workflow_id = $1 ORDER BY seq`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("builder: list connections: %w", err)
	}
	defer rows.Close()

	connections := []builder.Connection{}
	for rows.Next() {
		var c builder.Connection
		if err := rows.Scan(&c.ID, &c.Source, &c.Target, &c.SourceHandle, &c.TargetHandle); err != nil {
			return nil, fmt.Errorf("builder: scan connection: %w", err)
		}
		connections = append(connections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("builder: rows connections: %w", err)
	}
	return connections, nil
}

// DeleteConnection deletes a connection by its ID within a workflow.
// No error if the connection doesn't exist.
func (s *PGStore) DeleteConnection(ctx context.Context, workflowID, connectionID string) error {
	ct, err := s.db.Exec(ctx,
		`DELETE FROM workflow_connections WHERE workflow_id = $1 AND id = $2`, workflowID, connectionID)
	if err != nil {
		return fmt.Errorf("builder: delete connection: %w", err)
	}
	if ct.RowsAffected() > 0 {
		return s.touch(ctx, workflowID)
	}
	return nil
}
