package builder

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/sqldef/schemadir/database"
	"github.com/sqldef/schemadir/layout"
	"github.com/sqldef/schemadir/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sqlImporter struct {
	db      *sql.DB
	dataDir string
	// tables seen when the import ran
	tables int
}

func (i *sqlImporter) ImportData(ctx context.Context, dataDir string) error {
	i.dataDir = dataDir
	if err := i.db.QueryRowContext(ctx, "SELECT count(*) FROM sqlite_master WHERE type = 'table'").Scan(&i.tables); err != nil {
		return err
	}
	_, err := i.db.ExecContext(ctx, "INSERT INTO customers (id) VALUES (42)")
	return err
}

func openBuildTarget(t *testing.T) (*sql.DB, *database.SQLExecutor) {
	t.Helper()
	db := testutil.OpenSQLite(t)
	executor := database.NewSQLExecutor(db, 0)
	t.Cleanup(func() { executor.Close() })
	return db, executor
}

func TestCreateFromDir(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"props.sql":                   "PRAGMA user_version = 7\nGO\n",
		"views/recent.sql":            "CREATE VIEW recent AS SELECT * FROM orders\nGO\n",
		"tables/orders.sql":           "CREATE TABLE orders (id int, customer_id int)\nGO\n",
		"tables/customers.sql":        "CREATE TABLE customers (id int PRIMARY KEY)\nGO\n",
		"permissions/grants.sql":      "CREATE TABLE grants AS SELECT name FROM sqlite_master WHERE name = 'recent'\nGO\n",
		"after_data/snapshot.sql":     "CREATE TABLE snapshot AS SELECT * FROM customers\nGO\n",
		"foreign_keys/orders.sql":     "CREATE INDEX ix_orders_customer ON orders (customer_id)\nGO\n",
		"data/customers.tsv":          "42\r\n",
		"users/ignored_by_config.sql": "SELECT * FROM missing\nGO\n",
	})

	db, executor := openBuildTarget(t)
	importer := &sqlImporter{db: db}
	categories, err := layout.NewCategories([]string{layout.Users})
	require.NoError(t, err)
	b := &Builder{
		Dir:        dir,
		Categories: categories,
		Executor:   executor,
		Importer:   importer,
	}
	require.NoError(t, b.CreateFromDir(context.Background()))

	// data is imported after stages 0 and 1
	assert.Equal(t, filepath.Join(dir, "data"), importer.dataDir)
	assert.Equal(t, 2, importer.tables)

	var version int
	require.NoError(t, db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, 7, version)

	var id int
	require.NoError(t, db.QueryRow("SELECT id FROM snapshot").Scan(&id))
	assert.Equal(t, 42, id)

	var grants int
	require.NoError(t, db.QueryRow("SELECT count(*) FROM grants").Scan(&grants))
	assert.Equal(t, 1, grants)
}

func TestCreateFromDirAbortsStage(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"tables/a.sql": "CREATE TABLE a (id int)\nGO\n",
		"views/v.sql":  "CREATE VIEW v AS SELECT * FROM missing\nGO\nSELECT * FROM v\nGO\n",
	})

	_, executor := openBuildTarget(t)
	b := &Builder{Dir: dir, Categories: layout.DefaultCategories(), Executor: executor}
	err := b.CreateFromDir(context.Background())

	var abortErr *StageAbortError
	require.True(t, errors.As(err, &abortErr), "unexpected error: %v", err)
	assert.Equal(t, 1, abortErr.Stage)
	require.Len(t, abortErr.Errors, 1)
	assert.Equal(t, filepath.Join(dir, "views", "v.sql"), abortErr.Errors[0].Path)
}

func TestCreateFromDirPropsFailure(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"props.sql":    "ALTER DATABASE nothing\nGO\n",
		"tables/a.sql": "CREATE TABLE a (id int)\nGO\n",
	})

	_, executor := openBuildTarget(t)
	b := &Builder{Dir: dir, Categories: layout.DefaultCategories(), Executor: executor}
	err := b.CreateFromDir(context.Background())

	var fileErr *SQLFileError
	require.True(t, errors.As(err, &fileErr), "unexpected error: %v", err)
	assert.Equal(t, filepath.Join(dir, "props.sql"), fileErr.Path)
	var batchErr *database.BatchError
	assert.True(t, errors.As(err, &batchErr))
}

func TestCreateFromDirRunsStagesOnNewSession(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"props.sql":         "CREATE TEMP TABLE session_state (id int)\nGO\n",
		"tables/orders.sql": "CREATE TABLE orders AS SELECT * FROM session_state\nGO\n",
	})

	_, executor := openBuildTarget(t)
	b := &Builder{Dir: dir, Categories: layout.DefaultCategories(), Executor: executor}
	err := b.CreateFromDir(context.Background())

	// the temp table lives only in the session props.sql ran on
	var abortErr *StageAbortError
	require.True(t, errors.As(err, &abortErr), "unexpected error: %v", err)
	assert.Equal(t, 1, abortErr.Stage)
	assert.Contains(t, err.Error(), "session_state")
}
