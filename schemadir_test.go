package schemadir

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sqldef/schemadir/database"
	"github.com/sqldef/schemadir/layout"
	"github.com/sqldef/schemadir/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDryRun(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, layout.Tables), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, layout.Roles), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, layout.Tables, "dbo.orders.sql"),
		[]byte("CREATE TABLE [dbo].[orders] ([id] [int] NOT NULL)\r\nGO\r\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, layout.Roles, "auditor.sql"),
		[]byte("CREATE ROLE [auditor] AUTHORIZATION [dbo]\r\nGO\r\n"), 0o644))

	categories, err := layout.NewCategories(nil)
	require.NoError(t, err)

	var out bytes.Buffer
	options := &Options{Dir: dir, Categories: categories, DryRun: true}
	err = Create(context.Background(), database.Config{DbName: "shop"}, options, database.WriterLogger{W: &out})
	require.NoError(t, err)

	output := out.String()
	assert.Contains(t, output, "-- dry run --")
	roleAt := bytes.Index(out.Bytes(), []byte("CREATE ROLE [auditor]"))
	tableAt := bytes.Index(out.Bytes(), []byte("CREATE TABLE [dbo].[orders]"))
	require.GreaterOrEqual(t, roleAt, 0)
	require.GreaterOrEqual(t, tableAt, 0)
	assert.Less(t, roleAt, tableAt)
}

func TestCreateMissingDir(t *testing.T) {
	options := &Options{Dir: filepath.Join(t.TempDir(), "missing"), DryRun: true}
	err := Create(context.Background(), database.Config{DbName: "shop"}, options, database.NullLogger{})
	assert.Error(t, err)
}

func TestDataTables(t *testing.T) {
	db := model.NewDatabase("shop")
	db.Tables = []*model.Table{
		model.NewTable("dbo", "lookup_country"),
		model.NewTable("dbo", "lookup_currency"),
		model.NewTable("dbo", "orders"),
	}

	tables, err := (&Options{}).dataTables(db)
	require.NoError(t, err)
	assert.Empty(t, tables)

	tables, err = (&Options{DataTables: "^lookup_", DataTablesExclude: "currency$"}).dataTables(db)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "lookup_country", tables[0].Name)

	tables, err = (&Options{DataTablesExclude: "^lookup_"}).dataTables(db)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "orders", tables[0].Name)

	_, err = (&Options{DataTables: "("}).dataTables(db)
	assert.Error(t, err)
}

func TestObjectCounts(t *testing.T) {
	db := model.NewDatabase("shop")
	db.Tables = []*model.Table{model.NewTable("dbo", "orders")}
	db.Roles = []*model.Role{{Name: "auditor"}}

	counts := objectCounts(db)
	assert.Equal(t, 1, counts[layout.Tables])
	assert.Equal(t, 1, counts[layout.Roles])
	assert.Equal(t, 0, counts[layout.Views])
}
