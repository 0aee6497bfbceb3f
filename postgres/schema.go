package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS workflows (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL DEFAULT 'active',
    endpoint    TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS workflow_modules (
    workflow_id TEXT NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
    id          TEXT NOT NULL,
    seq         INTEGER NOT NULL,
    type        TEXT NOT NULL,
    name        TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    category    TEXT NOT NULL DEFAULT '',
    config      JSONB NOT NULL DEFAULT '{}',
    pos_x       DOUBLE PRECISION,
    pos_y       DOUBLE PRECISION,
    PRIMARY KEY (workflow_id, id)
);

CREATE TABLE IF NOT EXISTS workflow_connections (
    workflow_id   TEXT NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
    id            TEXT NOT NULL,
    seq           INTEGER NOT NULL,
    source_id     TEXT NOT NULL,
    target_id     TEXT NOT NULL,
    source_handle TEXT NOT NULL DEFAULT '',
    target_handle TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (workflow_id, id),
    FOREIGN KEY (workflow_id, source_id) REFERENCES workflow_modules(workflow_id, id) ON DELETE CASCADE,
    FOREIGN KEY (workflow_id, target_id) REFERENCES workflow_modules(workflow_id, id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_workflow_modules_seq     ON workflow_modules(workflow_id, seq);
CREATE INDEX IF NOT EXISTS idx_workflow_connections_seq ON workflow_connections(workflow_id, seq);
`

// CreateSchema creates the workflow tables if they don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the workflow tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS workflow_connections, workflow_modules, workflows CASCADE;`)
	return err
}
