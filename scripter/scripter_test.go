package scripter

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sqldef/schemadir/layout"
	"github.com/sqldef/schemadir/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDatabase() *model.Database {
	db := model.NewDatabase("Shop")
	db.FindProp("ANSI_NULLS").Value = "ON"

	customers := model.NewTable("dbo", "Customers")
	customers.Columns = []*model.Column{
		{Name: "Id", Type: "int", Position: 1, Identity: &model.Identity{Seed: "1", Increment: "1"}},
		{Name: "Name", Type: "nvarchar", Length: 50, Position: 2},
	}
	customers.AddConstraint(&model.Constraint{Name: "PK_Customers", Type: model.PrimaryKey, Columns: []model.ConstraintColumn{{Name: "Id"}}})

	orders := model.NewTable("sales", "Orders")
	qty := &model.Column{Name: "Qty", Type: "int", Position: 2}
	qty.Default = &model.Default{Table: orders, Column: qty, Name: "DF_Orders_Qty", Value: "((1))"}
	orders.Columns = []*model.Column{
		{Name: "Id", Type: "int", Position: 1},
		qty,
		{Name: "CustomerId", Type: "int", Position: 3},
	}
	orders.AddConstraint(model.NewCheckConstraint("CK_Orders_Qty", false, false, "([Qty]>(0))"))

	fk2 := model.NewForeignKey("FK_Orders_Z")
	fk2.Table = orders
	fk2.Columns = []string{"CustomerId"}
	fk2.RefTable = customers
	fk2.RefColumns = []string{"Id"}
	fk1 := model.NewForeignKey("FK_Orders_A")
	fk1.Table = orders
	fk1.Columns = []string{"CustomerId"}
	fk1.RefTable = customers
	fk1.RefColumns = []string{"Id"}

	db.Tables = []*model.Table{customers, orders}
	db.ForeignKeys = []*model.ForeignKey{fk2, fk1}
	db.Schemas = []*model.Schema{{Name: "sales", PrincipalName: "dbo"}}
	db.Routines = []*model.Routine{
		{Name: "GetOrders", Owner: "dbo", Kind: model.Procedure, Text: "CREATE PROCEDURE GetOrders AS SELECT 1"},
		{Name: "vOrders", Owner: "sales", Kind: model.View, Text: "CREATE VIEW sales.vOrders AS SELECT 1 AS x"},
	}
	db.Roles = []*model.Role{{Name: "reader"}}
	return db
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	db := sampleDatabase()
	w := NewWriter(dir, layout.DefaultCategories(), nil)
	require.NoError(t, w.Write(db))

	orders := db.Tables[1]
	assert.Equal(t, db.Tables[0].ScriptCreate()+"\r\nGO\r\n", readFile(t, filepath.Join(dir, "tables", "Customers.sql")))
	assert.FileExists(t, filepath.Join(dir, "tables", "sales.Orders.sql"))
	assert.Equal(t, orders.CheckConstraints()[0].ScriptCreate()+"\r\nGO\r\n", readFile(t, filepath.Join(dir, "check_constraints", "sales.Orders.sql")))
	assert.Equal(t, orders.Defaults()[0].ScriptCreate()+"\r\nGO\r\n", readFile(t, filepath.Join(dir, "defaults", "sales.Orders.sql")))
	assert.FileExists(t, filepath.Join(dir, "schemas", "sales.sql"))
	assert.FileExists(t, filepath.Join(dir, "procedures", "GetOrders.sql"))
	assert.FileExists(t, filepath.Join(dir, "views", "sales.vOrders.sql"))
	assert.FileExists(t, filepath.Join(dir, "roles", "reader.sql"))

	// both foreign keys land in the table's file, sorted by name
	fks := readFile(t, filepath.Join(dir, "foreign_keys", "sales.Orders.sql"))
	assert.Equal(t, db.ForeignKeys[1].ScriptCreate()+"\r\nGO\r\n"+db.ForeignKeys[0].ScriptCreate()+"\r\nGO\r\n", fks)

	props := readFile(t, filepath.Join(dir, "props.sql"))
	assert.Contains(t, props, "DECLARE @DB VARCHAR(255)")
	assert.Contains(t, props, "ANSI_NULLS ON")
	assert.NotContains(t, props, "ARITHABORT")

	// empty collections create no directory
	assert.NoDirExists(t, filepath.Join(dir, "users"))
	assert.NoDirExists(t, filepath.Join(dir, "synonyms"))
}

func TestWriteReplacesPreviousFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "tables"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tables", "Dropped.sql"), []byte("CREATE TABLE Dropped (id int)"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "after_data"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "after_data", "seed.sql"), []byte("SELECT 1"), 0644))

	db := sampleDatabase()
	w := NewWriter(dir, layout.DefaultCategories(), nil)
	require.NoError(t, w.Write(db))
	// writing twice must not append to the files of the first run
	require.NoError(t, w.Write(db))

	assert.NoFileExists(t, filepath.Join(dir, "tables", "Dropped.sql"))
	assert.FileExists(t, filepath.Join(dir, "after_data", "seed.sql"))
	assert.Equal(t, db.Tables[0].ScriptCreate()+"\r\nGO\r\n", readFile(t, filepath.Join(dir, "tables", "Customers.sql")))
}

func TestWriteSkipsExcludedCategories(t *testing.T) {
	dir := t.TempDir()
	categories, err := layout.NewCategories([]string{layout.Props, layout.ForeignKeys, layout.Procedures})
	require.NoError(t, err)

	require.NoError(t, NewWriter(dir, categories, nil).Write(sampleDatabase()))

	assert.NoFileExists(t, filepath.Join(dir, "props.sql"))
	assert.NoDirExists(t, filepath.Join(dir, "foreign_keys"))
	assert.NoDirExists(t, filepath.Join(dir, "procedures"))
	assert.DirExists(t, filepath.Join(dir, "tables"))
}

type fakeExporter map[string]string

func (f fakeExporter) ExportData(ctx context.Context, t *model.Table, w io.Writer) error {
	rows, ok := f[t.Name]
	if !ok {
		return fmt.Errorf("no such table %s", t.Name)
	}
	_, err := io.WriteString(w, rows)
	return err
}

func TestWriteData(t *testing.T) {
	db := sampleDatabase()
	exporter := fakeExporter{
		"Customers": "1\tAlice\r\n2\tBob\r\n",
		"Orders":    "",
	}

	for _, concurrency := range []int{0, 2, -1} {
		t.Run(fmt.Sprintf("concurrency %d", concurrency), func(t *testing.T) {
			dir := t.TempDir()
			w := NewWriter(dir, layout.DefaultCategories(), nil)
			require.NoError(t, w.WriteData(context.Background(), exporter, db.Tables, concurrency))

			assert.Equal(t, "1\tAlice\r\n2\tBob\r\n", readFile(t, filepath.Join(dir, "data", "Customers.tsv")))
			assert.NoFileExists(t, filepath.Join(dir, "data", "sales.Orders.tsv"))
		})
	}

	t.Run("export failure", func(t *testing.T) {
		w := NewWriter(t.TempDir(), layout.DefaultCategories(), nil)
		err := w.WriteData(context.Background(), fakeExporter{}, db.Tables, 0)
		assert.ErrorContains(t, err, "failed to export data from [dbo].[Customers]")
	})
}
