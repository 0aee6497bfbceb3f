package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/builder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ builder.Store = (*PGStore)(nil)

// newTestStore connects to TEST_DATABASE_URL and recreates the schema.
func newTestStore(t *testing.T) *PGStore {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s := New(pool)
	require.NoError(t, s.DropSchema(ctx))
	require.NoError(t, s.CreateSchema(ctx))
	return s
}

func sampleWorkflow() *builder.Workflow {
	return &builder.Workflow{
		Name:        "Support triage",
		Description: "route tickets",
		Modules: []builder.ModuleInstance{
			{ID: "a", Type: "sentiment-analysis", Name: "A", Config: map[string]any{"model": "bert", "threshold": 0.7}, Position: &builder.Position{X: 10, Y: 20}},
			{ID: "b", Type: "webhook", Name: "B", Config: map[string]any{"url": "https://example.com", "method": "POST"}, Position: &builder.Position{X: 300, Y: 20}},
			{ID: "c", Type: "database-store", Name: "C", Config: map[string]any{"table": "t"}},
		},
		Connections: []builder.Connection{
			{ID: "ab", Source: "a", Target: "b", SourceHandle: "output", TargetHandle: "input"},
			{ID: "bc", Source: "b", Target: "c"},
		},
	}
}

func TestPGStore_SaveAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saved, err := s.SaveWorkflow(ctx, sampleWorkflow())
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)

	got, err := s.GetWorkflow(ctx, saved.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "Support triage", got.Name)
	require.Len(t, got.Modules, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{got.Modules[0].ID, got.Modules[1].ID, got.Modules[2].ID})
	assert.Equal(t, &builder.Position{X: 10, Y: 20}, got.Modules[0].Position)
	assert.Nil(t, got.Modules[2].Position)
	assert.Equal(t, 0.7, got.Modules[0].Config["threshold"])
	require.Len(t, got.Connections, 2)
	assert.Equal(t, "output", got.Connections[0].SourceHandle)

	t.Run("MissingWorkflowIsNil", func(t *testing.T) {
		got, err := s.GetWorkflow(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("SaveReplacesGraph", func(t *testing.T) {
		w := sampleWorkflow()
		w.ID = saved.ID
		w.Modules = w.Modules[:1]
		w.Connections = nil
		_, err := s.SaveWorkflow(ctx, w)
		require.NoError(t, err)

		mods, err := s.ListModules(ctx, saved.ID)
		require.NoError(t, err)
		assert.Len(t, mods, 1)
		conns, err := s.ListConnections(ctx, saved.ID)
		require.NoError(t, err)
		assert.Empty(t, conns)
	})
}

func TestPGStore_DeleteModuleCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saved, err := s.SaveWorkflow(ctx, sampleWorkflow())
	require.NoError(t, err)

	require.NoError(t, s.DeleteModule(ctx, saved.ID, "b"))

	conns, err := s.ListConnections(ctx, saved.ID)
	require.NoError(t, err)
	assert.Empty(t, conns)

	list, err := s.ListWorkflows(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].ModuleCount)
	assert.Equal(t, 0, list[0].ConnectionCount)

	require.NoError(t, s.DeleteWorkflow(ctx, saved.ID))
	got, err := s.GetWorkflow(ctx, saved.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
