package diff

import (
	"strings"
	"testing"

	"github.com/sqldef/schemadir/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func customersTable() *model.Table {
	t := model.NewTable("dbo", "customers")
	t.Columns = []*model.Column{
		{Name: "id", Type: "int", Position: 1},
		{Name: "name", Type: "nvarchar", Length: 100, Nullable: true, Position: 2},
	}
	t.AddConstraint(&model.Constraint{Name: "PK_customers", Type: model.PrimaryKey, IndexType: "CLUSTERED",
		Columns: []model.ConstraintColumn{{Name: "id"}}})
	return t
}

func snapshot() *model.Database {
	db := model.NewDatabase("shop")
	db.FindProp("RECOVERY").Value = "SIMPLE"

	customers := customersTable()
	orders := model.NewTable("dbo", "orders")
	orders.Columns = []*model.Column{
		{Name: "id", Type: "int", Position: 1},
		{Name: "customer_id", Type: "int", Position: 2},
	}
	db.Tables = []*model.Table{customers, orders}

	idList := model.NewTable("dbo", "id_list")
	idList.IsType = true
	idList.Columns = []*model.Column{{Name: "id", Type: "int", Position: 1}}
	db.TableTypes = []*model.Table{idList}

	fk := model.NewForeignKey("FK_orders_customers")
	fk.Table = orders
	fk.Columns = []string{"customer_id"}
	fk.RefTable = customers
	fk.RefColumns = []string{"id"}
	db.ForeignKeys = []*model.ForeignKey{fk}

	db.Routines = []*model.Routine{
		{Name: "recent", Owner: "dbo", Kind: model.View, Text: "CREATE VIEW recent AS SELECT 1 AS one"},
	}
	db.Users = []*model.SQLUser{model.NewSQLUser("app", "dbo")}
	db.Synonyms = []*model.Synonym{{Name: "o", Owner: "dbo", BaseObjectName: "[dbo].[orders]"}}
	db.Permissions = []*model.Permission{{UserName: "app", ObjectOwner: "dbo", ObjectName: "orders", PermissionName: "SELECT"}}
	return db
}

func TestCompareIdentical(t *testing.T) {
	d := Compare(snapshot(), snapshot())
	assert.False(t, d.IsDiff())
	assert.Equal(t, "Databases are identical.\n", d.Report())
	assert.Equal(t, "", d.Script())
}

func TestCompareAddedAndDeleted(t *testing.T) {
	source := snapshot()
	target := snapshot()
	source.Tables = append(source.Tables, model.NewTable("dbo", "invoices"))
	target.Routines = append(target.Routines, &model.Routine{Name: "old", Owner: "dbo", Kind: model.Procedure, Text: "CREATE PROCEDURE old AS SELECT 1"})
	target.Synonyms = nil

	d := Compare(source, target)
	require.True(t, d.IsDiff())
	require.Len(t, d.TablesAdded, 1)
	assert.Equal(t, "invoices", d.TablesAdded[0].Name)
	require.Len(t, d.RoutinesDeleted, 1)
	assert.Equal(t, "old", d.RoutinesDeleted[0].Name)
	require.Len(t, d.SynonymsAdded, 1)
	assert.Empty(t, d.TablesDeleted)
	assert.Empty(t, d.RoutinesAdded)

	// the reverse comparison swaps added and deleted
	r := Compare(target, source)
	assert.Len(t, r.TablesDeleted, 1)
	assert.Len(t, r.RoutinesAdded, 1)
	assert.Len(t, r.SynonymsDeleted, 1)
}

func TestCompareProps(t *testing.T) {
	source := snapshot()
	target := snapshot()
	source.FindProp("RECOVERY").Value = "FULL"

	d := Compare(source, target)
	require.Len(t, d.PropsChanged, 1)
	assert.Equal(t, "RECOVERY", d.PropsChanged[0].Name)
	assert.Contains(t, d.Report(), `RECOVERY: "SIMPLE" -> "FULL"`)

	// a property unknown to the target counts as changed
	target.Props = target.Props[:1]
	assert.NotEmpty(t, Compare(source, target).PropsChanged)
}

func TestCompareTables(t *testing.T) {
	source := snapshot()
	target := snapshot()
	customers := source.FindTable("customers", "dbo", false)
	customers.Columns[1].Length = 200
	customers.Columns = append(customers.Columns, &model.Column{Name: "email", Type: "varchar", Length: 320, Nullable: true, Position: 3})
	orders := target.FindTable("orders", "dbo", false)
	orders.Columns = append(orders.Columns, &model.Column{Name: "legacy", Type: "bit", Position: 3})

	d := Compare(source, target)
	require.Len(t, d.TablesDiff, 2)

	customersDiff := d.TablesDiff[0]
	assert.Equal(t, "customers", customersDiff.Source.Name)
	require.Len(t, customersDiff.ColumnsAdded, 1)
	assert.Equal(t, "email", customersDiff.ColumnsAdded[0].Name)
	require.Len(t, customersDiff.ColumnsDiff, 1)
	assert.Equal(t, "name", customersDiff.ColumnsDiff[0].Source.Name)

	ordersDiff := d.TablesDiff[1]
	require.Len(t, ordersDiff.ColumnsDropped, 1)
	assert.Equal(t, "legacy", ordersDiff.ColumnsDropped[0].Name)

	report := d.Report()
	assert.Contains(t, report, "Tables changed:\n  [dbo].[customers]\n    column [email] added\n    column [name] changed\n")
	assert.Contains(t, report, "    column [legacy] dropped\n")

	script := d.Script()
	assert.Contains(t, script, "ALTER TABLE [dbo].[customers] ADD [email] [varchar](320) NULL\nGO\n")
	assert.Contains(t, script, "ALTER TABLE [dbo].[customers] ALTER COLUMN [name] [nvarchar](200) NULL\nGO\n")
	assert.Contains(t, script, "ALTER TABLE [dbo].[orders] DROP COLUMN [legacy]\nGO\n")
}

func TestCompareColumnPosition(t *testing.T) {
	source := customersTable()
	target := customersTable()
	source.Columns[0].Position, source.Columns[1].Position = 2, 1

	d := CompareTables(source, target)
	require.Len(t, d.ColumnsDiff, 2)
	assert.True(t, d.ColumnsDiff[0].OnlyPositionChanged())
	assert.Equal(t, []string{"column [id] moved from position 1 to 2", "column [name] moved from position 2 to 1"}, d.reportLines())
	for _, statement := range d.Script() {
		assert.True(t, strings.HasPrefix(statement, "-- "), statement)
	}
}

func TestCompareSystemNamedDefaults(t *testing.T) {
	source := customersTable()
	target := customersTable()
	source.Columns[1].Default = &model.Default{Table: source, Column: source.Columns[1], Name: "DF__customers__name__1A2B", Value: "(N'')", IsSystemNamed: true}
	target.Columns[1].Default = &model.Default{Table: target, Column: target.Columns[1], Name: "DF__customers__name__9F8E", Value: "(N'')", IsSystemNamed: true}
	assert.False(t, CompareTables(source, target).IsDiff())

	target.Columns[1].Default.Value = "(N'unknown')"
	d := CompareTables(source, target)
	require.Len(t, d.ColumnsDiff, 1)
	assert.Equal(t, []string{
		"ALTER TABLE [dbo].[customers] DROP CONSTRAINT [DF__customers__name__9F8E]",
		"ALTER TABLE [dbo].[customers] ALTER COLUMN [name] [nvarchar](100) NULL",
		"ALTER TABLE [dbo].[customers] ADD DEFAULT (N'') FOR [name]",
	}, d.Script())
}

func TestCompareConstraints(t *testing.T) {
	source := customersTable()
	target := customersTable()
	source.FindConstraint("PK_customers").IndexType = "NONCLUSTERED"
	source.AddConstraint(&model.Constraint{Name: "IX_customers_name", Type: model.Index, Columns: []model.ConstraintColumn{{Name: "name"}}})

	d := CompareTables(source, target)
	require.Len(t, d.ConstraintsChanged, 1)
	require.Len(t, d.ConstraintsAdded, 1)
	assert.Equal(t, []string{
		"ALTER TABLE [dbo].[customers] DROP CONSTRAINT [PK_customers]",
		"ALTER TABLE [dbo].[customers] ADD CONSTRAINT [PK_customers] PRIMARY KEY NONCLUSTERED ([id])",
		"CREATE INDEX [IX_customers_name] ON [dbo].[customers] ([name])",
	}, d.Script())
}

func TestCompareTableTypes(t *testing.T) {
	source := snapshot()
	target := snapshot()
	source.TableTypes[0].Columns[0].Type = "bigint"

	d := Compare(source, target)
	assert.Empty(t, d.TablesDiff)
	require.Len(t, d.TableTypesDiff, 1)
	assert.Contains(t, d.Report(), "Table types changed (must be recreated):\n  [dbo].[id_list]\n")
	assert.Contains(t, d.Script(), "DROP TYPE [dbo].[id_list]\nGO\nCREATE TYPE [dbo].[id_list] AS TABLE (")
}

func TestCompareRoutineWhitespace(t *testing.T) {
	source := snapshot()
	target := snapshot()
	source.Routines[0].Text = "\r\n  CREATE VIEW recent AS SELECT 1 AS one\r\n\r\n"
	assert.False(t, Compare(source, target).IsDiff())

	for name, text := range map[string]string{
		"inner whitespace": "CREATE VIEW recent AS  SELECT 1 AS one",
		"inner newline":    "CREATE VIEW recent AS\nSELECT 1 AS one",
		"case":             "create view recent AS SELECT 1 AS one",
	} {
		t.Run(name, func(t *testing.T) {
			changed := snapshot()
			changed.Routines[0].Text = text
			d := Compare(changed, target)
			require.Len(t, d.RoutinesDiff, 1)
			assert.Equal(t, "recent", d.RoutinesDiff[0].Name)
		})
	}

	source.Routines[0].Text = "CREATE VIEW recent AS SELECT 2 AS two"
	d := Compare(source, target)
	require.Len(t, d.RoutinesDiff, 1)
	assert.Contains(t, d.Report(), "Routines changed:\n  [dbo].[recent]\n")
	assert.Contains(t, d.Script(), "DROP VIEW [dbo].[recent]\nGO\n")
}

func TestCompareForeignKeys(t *testing.T) {
	source := snapshot()
	target := snapshot()
	source.ForeignKeys[0].OnDelete = "CASCADE"

	d := Compare(source, target)
	require.Len(t, d.ForeignKeysDiff, 1)
	assert.Contains(t, d.Report(), "Foreign keys changed:\n  [dbo].[orders].[FK_orders_customers]\n")

	// drops come first and creates last
	script := d.Script()
	drop := strings.Index(script, "ALTER TABLE [dbo].[orders] DROP CONSTRAINT [FK_orders_customers]")
	create := strings.Index(script, "ADD CONSTRAINT [FK_orders_customers]")
	require.GreaterOrEqual(t, drop, 0)
	assert.Greater(t, create, drop)
}

func TestCompareSynonymsAndPermissions(t *testing.T) {
	source := snapshot()
	target := snapshot()
	source.Synonyms[0].BaseObjectName = "[dbo].[customers]"
	source.Permissions = append(source.Permissions, &model.Permission{UserName: "app", ObjectOwner: "dbo", ObjectName: "customers", PermissionName: "SELECT"})
	target.Users = append(target.Users, model.NewSQLUser("legacy", "dbo"))

	d := Compare(source, target)
	assert.Len(t, d.SynonymsDiff, 1)
	assert.Len(t, d.PermissionsAdded, 1)
	assert.Len(t, d.UsersDeleted, 1)

	report := d.Report()
	assert.Contains(t, report, "Synonyms changed:\n  [dbo].[o]\n")
	assert.Contains(t, report, "Permissions added:\n  dbo.customers.SELECT.app\n")
	assert.Contains(t, report, "Users deleted:\n  [legacy]\n")
	assert.Contains(t, d.Script(), "DROP USER [legacy]\nGO\n")
}
