package db

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KimiAn12/StartUpIdea/internal/shared/telemetry"
)

func TestRunMigrationsWithoutDatabase(t *testing.T) {
	assert.NoError(t, RunMigrations(context.Background(), nil))
}

func TestEmbeddedSchemaGuardsAnalysisLifecycle(t *testing.T) {
	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	raw, err := fs.ReadFile(migrationFiles, "migrations/00001_init.sql")
	require.NoError(t, err)
	schema := string(raw)

	assert.True(t, strings.HasPrefix(schema, "-- +goose Up"))
	assert.Contains(t, schema, "-- +goose Down")
	assert.Contains(t, schema, "CREATE UNIQUE INDEX document_analyses_inflight_key")
	assert.Contains(t, schema, "ON DELETE CASCADE")
	assert.Contains(t, schema, "documents_text_iff_completed")
}

func TestGooseLoggerWritesThroughTelemetry(t *testing.T) {
	var buf bytes.Buffer
	telemetry.Configure(&buf, "info")
	t.Cleanup(func() { telemetry.Configure(os.Stdout, "info") })

	gooseLogger{}.Printf("OK   %s (%v)\n", "00001_init.sql", "12ms")
	assert.Contains(t, buf.String(), `"msg":"db.migration"`)
	assert.Contains(t, buf.String(), `"detail":"OK   00001_init.sql (12ms)"`)

	assert.PanicsWithValue(t, "goose: no migrations", func() {
		gooseLogger{}.Fatalf("no migrations")
	})
	assert.Contains(t, buf.String(), `"msg":"db.migration_fatal"`)
}
