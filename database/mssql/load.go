package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/sqldef/schemadir/model"
	"github.com/sqldef/schemadir/util"
)

// CatalogQueryError is a catalog query the server could not answer. Load
// recovers from it for categories older servers do not have.
type CatalogQueryError struct {
	Category string
	Err      error
}

func (e *CatalogQueryError) Error() string {
	return fmt.Sprintf("failed to load %s: %s", e.Category, e.Err)
}

func (e *CatalogQueryError) Unwrap() error {
	return e.Err
}

type loader struct {
	ctx context.Context
	db  *sql.DB
	out *model.Database

	views map[string]*model.Table
}

type loadStep struct {
	category string
	load     func() error

	// optional steps log a warning and leave their category empty on failure
	optional bool
	reset    func(db *model.Database)
}

// Load reads the full definition of the database db is connected to.
func Load(ctx context.Context, db *sql.DB, name string) (*model.Database, error) {
	l := &loader{
		ctx:   ctx,
		db:    db,
		out:   model.NewDatabase(name),
		views: map[string]*model.Table{},
	}

	steps := []loadStep{
		{category: "props", load: l.loadProps},
		{category: "schemas", load: l.loadSchemas},
		{category: "tables", load: l.loadTables},
		{category: "table types", load: l.loadTableTypes, optional: true, reset: clearTableTypes},
		{category: "user defined types", load: l.loadUserDefinedTypes},
		{category: "columns", load: l.loadColumns},
		{category: "table type columns", load: l.loadTableTypeColumns, optional: true, reset: clearTableTypes},
		{category: "identities", load: l.loadColumnIdentities},
		{category: "defaults", load: l.loadColumnDefaults},
		{category: "computed columns", load: l.loadColumnComputes},
		{category: "constraints", load: l.loadConstraintsAndIndexes},
		{category: "check constraints", load: l.loadCheckConstraints},
		{category: "foreign keys", load: l.loadForeignKeys},
		{category: "routines", load: l.loadRoutines},
		{category: "xml schema collections", load: l.loadXMLSchemas, optional: true, reset: clearXMLSchemas},
		{category: "assemblies", load: l.loadAssemblies, optional: true, reset: clearAssemblies},
		{category: "users", load: l.loadUsers},
		{category: "logins", load: l.loadLogins, optional: true, reset: clearLogins},
		{category: "synonyms", load: l.loadSynonyms},
		{category: "roles", load: l.loadRoles},
		{category: "permissions", load: l.loadPermissions},
	}
	if err := runSteps(ctx, l.out, steps); err != nil {
		return nil, err
	}
	return l.out, nil
}

// runSteps stops at the first failing required step. A failing optional step
// is reset so its category comes back empty rather than partially loaded.
func runSteps(ctx context.Context, out *model.Database, steps []loadStep) error {
	for _, step := range steps {
		slog.Debug("Loading catalog", "category", step.category)
		if err := step.load(); err != nil {
			queryErr := &CatalogQueryError{Category: step.category, Err: err}
			if !step.optional || ctx.Err() != nil {
				return queryErr
			}
			if step.reset != nil {
				step.reset(out)
			}
			slog.Warn("assumed not supported by this server version, ignored", "error", queryErr)
		}
	}
	return nil
}

// Table types without their columns would script as empty types.
func clearTableTypes(db *model.Database) {
	db.TableTypes = nil
}

func clearXMLSchemas(db *model.Database) {
	db.Routines = slices.DeleteFunc(db.Routines, func(r *model.Routine) bool {
		return r.Kind == model.XMLSchemaCollection
	})
}

func clearAssemblies(db *model.Database) {
	db.Assemblies = nil
}

func clearLogins(db *model.Database) {
	for _, u := range db.Users {
		u.PasswordHash = nil
	}
}

func (l *loader) query(query string, scan func(rows *sql.Rows) error, args ...any) error {
	rows, err := l.db.QueryContext(l.ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (l *loader) setProp(name string, value string) {
	if p := l.out.FindProp(name); p != nil {
		p.Value = value
	}
}

func onOff(v sql.NullBool) string {
	if !v.Valid {
		return ""
	}
	if v.Bool {
		return "ON"
	}
	return "OFF"
}

func (l *loader) loadProps() error {
	return l.query(`SELECT
	[compatibility_level],
	[collation_name],
	[is_auto_close_on],
	[is_auto_shrink_on],
	[snapshot_isolation_state],
	[is_read_committed_snapshot_on],
	[recovery_model_desc],
	[page_verify_option_desc],
	[is_auto_create_stats_on],
	[is_auto_update_stats_on],
	[is_auto_update_stats_async_on],
	[is_ansi_null_default_on],
	[is_ansi_nulls_on],
	[is_ansi_padding_on],
	[is_ansi_warnings_on],
	[is_arithabort_on],
	[is_concat_null_yields_null_on],
	[is_numeric_roundabort_on],
	[is_quoted_identifier_on],
	[is_recursive_triggers_on],
	[is_cursor_close_on_commit_on],
	[is_local_cursor_default],
	[is_trustworthy_on],
	[is_db_chaining_on],
	[is_parameterization_forced],
	[is_date_correlation_on]
FROM sys.databases
WHERE name = @p1`, func(rows *sql.Rows) error {
		var compatibility, snapshotIsolation sql.NullInt64
		var collation, recovery, pageVerify sql.NullString
		var autoClose, autoShrink, readCommittedSnapshot, autoCreateStats, autoUpdateStats, autoUpdateStatsAsync,
			ansiNullDefault, ansiNulls, ansiPadding, ansiWarnings, arithAbort, concatNull, numericRoundAbort,
			quotedIdentifier, recursiveTriggers, cursorCloseOnCommit, localCursorDefault, trustworthy,
			dbChaining, parameterizationForced, dateCorrelation sql.NullBool
		err := rows.Scan(&compatibility, &collation, &autoClose, &autoShrink, &snapshotIsolation, &readCommittedSnapshot,
			&recovery, &pageVerify, &autoCreateStats, &autoUpdateStats, &autoUpdateStatsAsync, &ansiNullDefault,
			&ansiNulls, &ansiPadding, &ansiWarnings, &arithAbort, &concatNull, &numericRoundAbort, &quotedIdentifier,
			&recursiveTriggers, &cursorCloseOnCommit, &localCursorDefault, &trustworthy, &dbChaining,
			&parameterizationForced, &dateCorrelation)
		if err != nil {
			return err
		}

		if compatibility.Valid {
			l.setProp("COMPATIBILITY_LEVEL", fmt.Sprint(compatibility.Int64))
		}
		l.setProp("COLLATE", collation.String)
		l.setProp("AUTO_CLOSE", onOff(autoClose))
		l.setProp("AUTO_SHRINK", onOff(autoShrink))
		if snapshotIsolation.Valid {
			// 0 is off and 2 is turning off
			l.setProp("ALLOW_SNAPSHOT_ISOLATION", onOff(sql.NullBool{Valid: true, Bool: snapshotIsolation.Int64 != 0 && snapshotIsolation.Int64 != 2}))
		}
		l.setProp("READ_COMMITTED_SNAPSHOT", onOff(readCommittedSnapshot))
		l.setProp("RECOVERY", recovery.String)
		l.setProp("PAGE_VERIFY", pageVerify.String)
		l.setProp("AUTO_CREATE_STATISTICS", onOff(autoCreateStats))
		l.setProp("AUTO_UPDATE_STATISTICS", onOff(autoUpdateStats))
		l.setProp("AUTO_UPDATE_STATISTICS_ASYNC", onOff(autoUpdateStatsAsync))
		l.setProp("ANSI_NULL_DEFAULT", onOff(ansiNullDefault))
		l.setProp("ANSI_NULLS", onOff(ansiNulls))
		l.setProp("ANSI_PADDING", onOff(ansiPadding))
		l.setProp("ANSI_WARNINGS", onOff(ansiWarnings))
		l.setProp("ARITHABORT", onOff(arithAbort))
		l.setProp("CONCAT_NULL_YIELDS_NULL", onOff(concatNull))
		l.setProp("NUMERIC_ROUNDABORT", onOff(numericRoundAbort))
		l.setProp("QUOTED_IDENTIFIER", onOff(quotedIdentifier))
		l.setProp("RECURSIVE_TRIGGERS", onOff(recursiveTriggers))
		l.setProp("CURSOR_CLOSE_ON_COMMIT", onOff(cursorCloseOnCommit))
		if localCursorDefault.Valid {
			if localCursorDefault.Bool {
				l.setProp("CURSOR_DEFAULT", "LOCAL")
			} else {
				l.setProp("CURSOR_DEFAULT", "GLOBAL")
			}
		}
		l.setProp("TRUSTWORTHY", onOff(trustworthy))
		l.setProp("DB_CHAINING", onOff(dbChaining))
		if parameterizationForced.Valid {
			if parameterizationForced.Bool {
				l.setProp("PARAMETERIZATION", "FORCED")
			} else {
				l.setProp("PARAMETERIZATION", "SIMPLE")
			}
		}
		l.setProp("DATE_CORRELATION_OPTIMIZATION", onOff(dateCorrelation))
		return nil
	}, l.out.Name)
}

func (l *loader) loadSchemas() error {
	return l.query(`SELECT s.name, p.name
FROM sys.schemas s
INNER JOIN sys.database_principals p ON s.principal_id = p.principal_id
WHERE s.schema_id < 16384
AND s.name NOT IN ('dbo', 'guest', 'sys', 'INFORMATION_SCHEMA')
ORDER BY s.schema_id`, func(rows *sql.Rows) error {
		schema := &model.Schema{}
		if err := rows.Scan(&schema.Name, &schema.PrincipalName); err != nil {
			return err
		}
		l.out.Schemas = append(l.out.Schemas, schema)
		return nil
	})
}

func (l *loader) loadTables() error {
	return l.query(`SELECT TABLE_SCHEMA, TABLE_NAME
FROM INFORMATION_SCHEMA.TABLES
WHERE TABLE_TYPE = 'BASE TABLE'`, func(rows *sql.Rows) error {
		var schema, name string
		if err := rows.Scan(&schema, &name); err != nil {
			return err
		}
		l.out.Tables = append(l.out.Tables, model.NewTable(schema, name))
		return nil
	})
}

func (l *loader) loadTableTypes() error {
	return l.query(`SELECT s.name, tt.name
FROM sys.table_types tt
INNER JOIN sys.schemas s ON tt.schema_id = s.schema_id
WHERE tt.is_user_defined = 1
ORDER BY s.name, tt.name`, func(rows *sql.Rows) error {
		var schema, name string
		if err := rows.Scan(&schema, &name); err != nil {
			return err
		}
		t := model.NewTable(schema, name)
		t.IsType = true
		l.out.TableTypes = append(l.out.TableTypes, t)
		return nil
	})
}

func (l *loader) loadUserDefinedTypes() error {
	return l.query(`SELECT s.name, t.name, tt.name, t.max_length, t.is_nullable
FROM sys.types t
INNER JOIN sys.schemas s ON s.schema_id = t.schema_id
INNER JOIN sys.types tt ON t.system_type_id = tt.user_type_id
WHERE t.is_user_defined = 1
AND t.is_table_type = 0`, func(rows *sql.Rows) error {
		udt := &model.UserDefinedType{}
		if err := rows.Scan(&udt.Owner, &udt.Name, &udt.BaseTypeName, &udt.MaxLength, &udt.Nullable); err != nil {
			return err
		}
		l.out.UserDefinedTypes = append(l.out.UserDefinedTypes, udt)
		return nil
	})
}

func (l *loader) loadColumns() error {
	return l.scanColumns(`SELECT
	t.TABLE_SCHEMA,
	c.TABLE_NAME,
	c.COLUMN_NAME,
	c.DATA_TYPE,
	c.ORDINAL_POSITION,
	c.IS_NULLABLE,
	c.CHARACTER_MAXIMUM_LENGTH,
	c.NUMERIC_PRECISION,
	c.NUMERIC_SCALE,
	CASE WHEN COLUMNPROPERTY(OBJECT_ID(QUOTENAME(c.TABLE_SCHEMA) + '.' + QUOTENAME(c.TABLE_NAME)), c.COLUMN_NAME, 'IsRowGuidCol') = 1 THEN 'YES' ELSE 'NO' END
FROM INFORMATION_SCHEMA.COLUMNS c
INNER JOIN INFORMATION_SCHEMA.TABLES t
	ON t.TABLE_NAME = c.TABLE_NAME
	AND t.TABLE_SCHEMA = c.TABLE_SCHEMA
	AND t.TABLE_CATALOG = c.TABLE_CATALOG
WHERE t.TABLE_TYPE = 'BASE TABLE'
ORDER BY t.TABLE_SCHEMA, c.TABLE_NAME, c.ORDINAL_POSITION`, false)
}

func (l *loader) loadTableTypeColumns() error {
	return l.scanColumns(`SELECT
	s.name,
	tt.name,
	c.name,
	t.name,
	c.column_id,
	CASE WHEN c.is_nullable = 1 THEN 'YES' ELSE 'NO' END,
	CASE WHEN t.name IN ('nchar', 'nvarchar') AND c.max_length > 0 THEN CAST(c.max_length AS int) / 2 ELSE CAST(c.max_length AS int) END,
	c.precision,
	CAST(c.scale AS int),
	CASE WHEN c.is_rowguidcol = 1 THEN 'YES' ELSE 'NO' END
FROM sys.columns c
INNER JOIN sys.table_types tt ON tt.type_table_object_id = c.object_id
INNER JOIN sys.schemas s ON tt.schema_id = s.schema_id
INNER JOIN sys.types t ON t.system_type_id = c.system_type_id AND t.user_type_id = c.user_type_id
WHERE tt.is_user_defined = 1
ORDER BY s.name, tt.name, c.column_id`, true)
}

func (l *loader) scanColumns(query string, isType bool) error {
	var table *model.Table
	return l.query(query, func(rows *sql.Rows) error {
		var schema, tableName, nullable, rowGuid string
		var length, precision, scale sql.NullInt64
		c := &model.Column{}
		if err := rows.Scan(&schema, &tableName, &c.Name, &c.Type, &c.Position, &nullable, &length, &precision, &scale, &rowGuid); err != nil {
			return err
		}
		c.Nullable = nullable == "YES"
		c.IsRowGuid = rowGuid == "YES"

		switch c.Type {
		case "binary", "char", "nchar", "nvarchar", "varbinary", "varchar":
			c.Length = int(length.Int64)
		case "decimal", "numeric":
			c.Precision = int(precision.Int64)
			c.Scale = int(scale.Int64)
		}

		if table == nil || table.Name != tableName || table.Owner != schema {
			table = l.out.FindTable(tableName, schema, isType)
		}
		if table == nil {
			return fmt.Errorf("column %s of unknown table %s", c.Name, model.QualifiedName(schema, tableName))
		}
		table.Columns = append(table.Columns, c)
		return nil
	})
}

func (l *loader) findColumn(schema, tableName, column string, isType bool) *model.Column {
	t := l.out.FindTable(tableName, schema, isType)
	if t == nil {
		return nil
	}
	return t.FindColumn(column)
}

func (l *loader) loadColumnIdentities() error {
	return l.query(`SELECT s.name, t.name, c.name, CAST(i.seed_value AS varchar(40)), CAST(i.increment_value AS varchar(40))
FROM sys.tables t
INNER JOIN sys.columns c ON c.object_id = t.object_id
INNER JOIN sys.identity_columns i ON i.object_id = c.object_id AND i.column_id = c.column_id
INNER JOIN sys.schemas s ON s.schema_id = t.schema_id`, func(rows *sql.Rows) error {
		var schema, tableName, column string
		identity := &model.Identity{}
		if err := rows.Scan(&schema, &tableName, &column, &identity.Seed, &identity.Increment); err != nil {
			return err
		}
		c := l.findColumn(schema, tableName, column, false)
		if c == nil {
			return fmt.Errorf("%s: identity column %s not found", model.QualifiedName(schema, tableName), column)
		}
		c.Identity = identity
		return nil
	})
}

func (l *loader) loadColumnDefaults() error {
	return l.query(`SELECT s.name, t.name, c.name, d.name, d.definition, d.is_system_named, CAST(0 AS bit)
FROM sys.tables t
INNER JOIN sys.columns c ON c.object_id = t.object_id
INNER JOIN sys.default_constraints d ON c.column_id = d.parent_column_id AND d.parent_object_id = c.object_id
INNER JOIN sys.schemas s ON s.schema_id = t.schema_id
UNION ALL
SELECT s.name, tt.name, c.name, d.name, d.definition, d.is_system_named, CAST(1 AS bit)
FROM sys.table_types tt
INNER JOIN sys.columns c ON c.object_id = tt.type_table_object_id
INNER JOIN sys.default_constraints d ON c.column_id = d.parent_column_id AND d.parent_object_id = c.object_id
INNER JOIN sys.schemas s ON s.schema_id = tt.schema_id`, func(rows *sql.Rows) error {
		var schema, tableName, column string
		var isType bool
		d := &model.Default{}
		if err := rows.Scan(&schema, &tableName, &column, &d.Name, &d.Value, &d.IsSystemNamed, &isType); err != nil {
			return err
		}
		t := l.out.FindTable(tableName, schema, isType)
		if t == nil {
			return nil
		}
		if c := t.FindColumn(column); c != nil {
			d.Table = t
			d.Column = c
			c.Default = d
		}
		return nil
	})
}

func (l *loader) loadColumnComputes() error {
	return l.query(`SELECT OBJECT_SCHEMA_NAME(t.object_id), OBJECT_NAME(t.object_id), cc.name, cc.definition, cc.is_persisted, CAST(0 AS bit)
FROM sys.computed_columns cc
INNER JOIN sys.tables t ON cc.object_id = t.object_id
UNION ALL
SELECT SCHEMA_NAME(tt.schema_id), tt.name, cc.name, cc.definition, cc.is_persisted, CAST(1 AS bit)
FROM sys.computed_columns cc
INNER JOIN sys.table_types tt ON cc.object_id = tt.type_table_object_id`, func(rows *sql.Rows) error {
		var schema, tableName, column, definition string
		var persisted, isType bool
		if err := rows.Scan(&schema, &tableName, &column, &definition, &persisted, &isType); err != nil {
			return err
		}
		if c := l.findColumn(schema, tableName, column, isType); c != nil {
			c.Computed = definition
			c.Persisted = persisted
		}
		return nil
	})
}

func (l *loader) loadConstraintsAndIndexes() error {
	return l.query(`SELECT
	s.name,
	t.name,
	t.baseType,
	i.name,
	c.name,
	i.is_primary_key,
	i.is_unique_constraint,
	i.is_unique,
	i.type_desc,
	i.filter_definition,
	ISNULL(ic.is_included_column, 0),
	ic.is_descending_key
FROM (
	SELECT object_id, name, schema_id, 'T' AS baseType FROM sys.tables
	UNION
	SELECT object_id, name, schema_id, 'V' AS baseType FROM sys.views
	UNION
	SELECT type_table_object_id, name, schema_id, 'TVT' AS baseType FROM sys.table_types
) t
INNER JOIN sys.indexes i ON i.object_id = t.object_id
INNER JOIN sys.index_columns ic ON ic.object_id = t.object_id AND ic.index_id = i.index_id
INNER JOIN sys.columns c ON c.object_id = t.object_id AND c.column_id = ic.column_id
INNER JOIN sys.schemas s ON s.schema_id = t.schema_id
WHERE i.type_desc != 'HEAP'
ORDER BY s.name, t.name, i.name, ic.key_ordinal, ic.index_column_id`, func(rows *sql.Rows) error {
		var schema, tableName, baseType, indexName, column, typeDesc string
		var primary, uniqueConstraint, unique, included, descending bool
		var filter sql.NullString
		if err := rows.Scan(&schema, &tableName, &baseType, &indexName, &column, &primary, &uniqueConstraint, &unique, &typeDesc, &filter, &included, &descending); err != nil {
			return err
		}

		var t *model.Table
		if baseType == "V" {
			t = l.viewTable(schema, tableName)
		} else {
			t = l.out.FindTable(tableName, schema, baseType == "TVT")
		}
		if t == nil {
			return nil
		}

		c := t.FindConstraint(indexName)
		if c == nil {
			c = &model.Constraint{Name: indexName}
			t.AddConstraint(c)
			if baseType == "V" {
				l.out.ViewIndexes = append(l.out.ViewIndexes, c)
			}
		}

		c.IndexType = typeDesc
		c.Unique = unique
		c.Filter = filter.String
		if included {
			c.IncludedColumns = append(c.IncludedColumns, column)
		} else {
			c.Columns = append(c.Columns, model.ConstraintColumn{Name: column, Descending: descending})
		}

		switch {
		case primary:
			c.Type = model.PrimaryKey
		case uniqueConstraint:
			c.Type = model.Unique
		default:
			c.Type = model.Index
		}
		return nil
	})
}

// viewTable stands in for an indexed view so that its indexes have a table
// to point at.
func (l *loader) viewTable(schema, name string) *model.Table {
	key := schema + "." + name
	t, ok := l.views[key]
	if !ok {
		t = model.NewTable(schema, name)
		l.views[key] = t
	}
	return t
}

func (l *loader) loadCheckConstraints() error {
	return l.query(`SELECT
	OBJECT_NAME(o.object_id) AS constraint_name,
	SCHEMA_NAME(t.schema_id) AS table_schema,
	OBJECT_NAME(o.parent_object_id) AS table_name,
	CAST(0 AS bit),
	CAST(OBJECTPROPERTY(o.object_id, 'CnstIsNotRepl') AS bit),
	cc.definition,
	cc.is_system_named
FROM sys.objects o
INNER JOIN sys.check_constraints cc ON cc.object_id = o.object_id
INNER JOIN sys.tables t ON t.object_id = o.parent_object_id
WHERE o.type_desc = 'CHECK_CONSTRAINT'
UNION ALL
SELECT
	OBJECT_NAME(o.object_id),
	SCHEMA_NAME(tt.schema_id),
	tt.name,
	CAST(1 AS bit),
	CAST(OBJECTPROPERTY(o.object_id, 'CnstIsNotRepl') AS bit),
	cc.definition,
	cc.is_system_named
FROM sys.objects o
INNER JOIN sys.check_constraints cc ON cc.object_id = o.object_id
INNER JOIN sys.table_types tt ON tt.type_table_object_id = o.parent_object_id
WHERE o.type_desc = 'CHECK_CONSTRAINT'
ORDER BY table_schema, table_name, constraint_name`, func(rows *sql.Rows) error {
		var name, schema, tableName, definition string
		var isType, notForReplication, systemNamed bool
		if err := rows.Scan(&name, &schema, &tableName, &isType, &notForReplication, &definition, &systemNamed); err != nil {
			return err
		}
		if t := l.out.FindTable(tableName, schema, isType); t != nil {
			t.AddConstraint(model.NewCheckConstraint(name, notForReplication, systemNamed, definition))
		}
		return nil
	})
}

func (l *loader) loadForeignKeys() error {
	err := l.query(`SELECT TABLE_SCHEMA, TABLE_NAME, CONSTRAINT_NAME
FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS
WHERE CONSTRAINT_TYPE = 'FOREIGN KEY'`, func(rows *sql.Rows) error {
		var schema, tableName, name string
		if err := rows.Scan(&schema, &tableName, &name); err != nil {
			return err
		}
		t := l.out.FindTable(tableName, schema, false)
		if t == nil {
			return nil
		}
		fk := model.NewForeignKey(name)
		fk.Table = t
		l.out.ForeignKeys = append(l.out.ForeignKeys, fk)
		return nil
	})
	if err != nil {
		return err
	}

	err = l.query(`SELECT rc.CONSTRAINT_NAME, OBJECT_SCHEMA_NAME(fk.parent_object_id), rc.UPDATE_RULE, rc.DELETE_RULE, fk.is_disabled, fk.is_system_named
FROM INFORMATION_SCHEMA.REFERENTIAL_CONSTRAINTS rc
INNER JOIN sys.foreign_keys fk ON rc.CONSTRAINT_NAME = fk.name AND rc.CONSTRAINT_SCHEMA = OBJECT_SCHEMA_NAME(fk.parent_object_id)`, func(rows *sql.Rows) error {
		var name, schema, onUpdate, onDelete string
		var disabled, systemNamed bool
		if err := rows.Scan(&name, &schema, &onUpdate, &onDelete, &disabled, &systemNamed); err != nil {
			return err
		}
		if fk := l.out.FindForeignKey(name, schema); fk != nil {
			fk.OnUpdate = onUpdate
			fk.OnDelete = onDelete
			fk.Check = !disabled
			fk.IsSystemNamed = systemNamed
		}
		return nil
	})
	if err != nil {
		return err
	}

	return l.query(`SELECT
	fk.name,
	OBJECT_SCHEMA_NAME(fk.parent_object_id),
	c1.name,
	OBJECT_SCHEMA_NAME(fk.referenced_object_id),
	OBJECT_NAME(fk.referenced_object_id),
	c2.name
FROM sys.foreign_keys fk
INNER JOIN sys.foreign_key_columns fkc ON fkc.constraint_object_id = fk.object_id
INNER JOIN sys.columns c1 ON fkc.parent_column_id = c1.column_id AND fkc.parent_object_id = c1.object_id
INNER JOIN sys.columns c2 ON fkc.referenced_column_id = c2.column_id AND fkc.referenced_object_id = c2.object_id
ORDER BY fk.name, fkc.constraint_column_id`, func(rows *sql.Rows) error {
		var name, schema, column, refSchema, refTable, refColumn string
		if err := rows.Scan(&name, &schema, &column, &refSchema, &refTable, &refColumn); err != nil {
			return err
		}
		fk := l.out.FindForeignKey(name, schema)
		if fk == nil {
			return nil
		}
		fk.Columns = append(fk.Columns, column)
		fk.RefColumns = append(fk.RefColumns, refColumn)
		if fk.RefTable == nil {
			fk.RefTable = l.out.FindTable(refTable, refSchema, false)
		}
		return nil
	})
}

var routineKinds = map[string]model.RoutineKind{
	"SQL_STORED_PROCEDURE":             model.Procedure,
	"SQL_TRIGGER":                      model.Trigger,
	"SQL_SCALAR_FUNCTION":              model.Function,
	"SQL_INLINE_TABLE_VALUED_FUNCTION": model.Function,
	"SQL_TABLE_VALUED_FUNCTION":        model.Function,
	"VIEW":                             model.View,
}

func (l *loader) loadRoutines() error {
	return l.query(`SELECT
	s.name,
	o.name,
	o.type_desc,
	m.definition,
	m.uses_ansi_nulls,
	m.uses_quoted_identifier,
	ISNULL(s2.name, s3.name),
	ISNULL(t.name, v.name),
	tr.is_disabled
FROM sys.sql_modules m
INNER JOIN sys.objects o ON m.object_id = o.object_id
INNER JOIN sys.schemas s ON s.schema_id = o.schema_id
LEFT JOIN sys.triggers tr ON m.object_id = tr.object_id
LEFT JOIN sys.tables t ON tr.parent_id = t.object_id
LEFT JOIN sys.views v ON tr.parent_id = v.object_id
LEFT JOIN sys.schemas s2 ON s2.schema_id = t.schema_id
LEFT JOIN sys.schemas s3 ON s3.schema_id = v.schema_id
WHERE OBJECTPROPERTY(o.object_id, 'IsMSShipped') = 0`, func(rows *sql.Rows) error {
		var typeDesc string
		var definition, tableSchema, tableName sql.NullString
		var disabled sql.NullBool
		r := &model.Routine{}
		if err := rows.Scan(&r.Owner, &r.Name, &typeDesc, &definition, &r.AnsiNull, &r.QuotedID, &tableSchema, &tableName, &disabled); err != nil {
			return err
		}
		kind, ok := routineKinds[typeDesc]
		if !ok {
			slog.Debug("Skipping module of unknown type", "name", r.Name, "type", typeDesc)
			return nil
		}
		r.Kind = kind
		r.Text = definition.String
		if kind == model.Trigger {
			r.RelatedTableSchema = tableSchema.String
			r.RelatedTableName = tableName.String
			r.Disabled = disabled.Bool
		}
		l.out.Routines = append(l.out.Routines, r)
		return nil
	})
}

func (l *loader) loadXMLSchemas() error {
	return l.query(`SELECT s.name, x.name, CAST(XML_SCHEMA_NAMESPACE(s.name, x.name) AS nvarchar(max))
FROM sys.xml_schema_collections x
INNER JOIN sys.schemas s ON s.schema_id = x.schema_id
WHERE s.name != 'sys'`, func(rows *sql.Rows) error {
		var definition string
		r := &model.Routine{Kind: model.XMLSchemaCollection}
		if err := rows.Scan(&r.Owner, &r.Name, &definition); err != nil {
			return err
		}
		r.Text = fmt.Sprintf("CREATE XML SCHEMA COLLECTION %s.%s AS %s", r.Owner, r.Name, model.StringLiteral(definition))
		l.out.Routines = append(l.out.Routines, r)
		return nil
	})
}

func (l *loader) loadAssemblies() error {
	var assembly *model.SQLAssembly
	return l.query(`SELECT a.name, a.permission_set_desc, af.name, af.content
FROM sys.assemblies a
INNER JOIN sys.assembly_files af ON a.assembly_id = af.assembly_id
WHERE a.is_user_defined = 1
ORDER BY a.name, af.file_id`, func(rows *sql.Rows) error {
		var name, permissionSet string
		file := model.AssemblyFile{}
		if err := rows.Scan(&name, &permissionSet, &file.Name, &file.Content); err != nil {
			return err
		}
		if assembly == nil || assembly.Name != name {
			assembly = &model.SQLAssembly{Name: name, PermissionSet: permissionSet}
			l.out.Assemblies = append(l.out.Assemblies, assembly)
		}
		assembly.Files = append(assembly.Files, file)
		return nil
	})
}

func (l *loader) loadUsers() error {
	var user *model.SQLUser
	return l.query(`SELECT dp.name, USER_NAME(drm.role_principal_id), dp.default_schema_name
FROM sys.database_principals dp
LEFT OUTER JOIN sys.database_role_members drm ON dp.principal_id = drm.member_principal_id
WHERE (dp.type_desc = 'SQL_USER' OR dp.type_desc = 'WINDOWS_USER')
AND dp.sid NOT IN (0x00, 0x01) AND dp.name NOT IN ('dbo', 'guest')
AND dp.is_fixed_role = 0
ORDER BY dp.name`, func(rows *sql.Rows) error {
		var name string
		var role, defaultSchema sql.NullString
		if err := rows.Scan(&name, &role, &defaultSchema); err != nil {
			return err
		}
		if user == nil || user.Name != name {
			user = model.NewSQLUser(name, defaultSchema.String)
			l.out.Users = append(l.out.Users, user)
		}
		if role.Valid {
			user.AddRole(role.String)
		}
		return nil
	})
}

func (l *loader) loadLogins() error {
	return l.query(`SELECT sp.name, sl.password_hash
FROM sys.server_principals sp
INNER JOIN sys.sql_logins sl ON sp.principal_id = sl.principal_id AND sp.type_desc = 'SQL_LOGIN'
WHERE sp.name NOT LIKE '##%##'
AND sp.name != 'SA'
ORDER BY sp.name`, func(rows *sql.Rows) error {
		var name string
		var hash []byte
		if err := rows.Scan(&name, &hash); err != nil {
			return err
		}
		if u := l.out.FindUser(name); u != nil && hash != nil {
			u.PasswordHash = hash
		}
		return nil
	})
}

func (l *loader) loadSynonyms() error {
	return l.query(`SELECT OBJECT_SCHEMA_NAME(object_id), name, base_object_name FROM sys.synonyms`, func(rows *sql.Rows) error {
		s := &model.Synonym{}
		if err := rows.Scan(&s.Owner, &s.Name, &s.BaseObjectName); err != nil {
			return err
		}
		l.out.Synonyms = append(l.out.Synonyms, s)
		return nil
	})
}

// builtinRoles exist in every database and are never scripted.
var builtinRoles = []string{
	"db_accessadmin",
	"db_backupoperator",
	"db_datareader",
	"db_datawriter",
	"db_ddladmin",
	"db_denydatareader",
	"db_denydatawriter",
	"db_owner",
	"db_securityadmin",
	"public",
}

func (l *loader) loadRoles() error {
	quoted := util.TransformSlice(builtinRoles, func(role string) string { return "'" + role + "'" })
	return l.query(`SELECT name FROM sys.database_principals WHERE type = 'R' AND name NOT IN (`+strings.Join(quoted, ", ")+`)`, func(rows *sql.Rows) error {
		r := &model.Role{}
		if err := rows.Scan(&r.Name); err != nil {
			return err
		}
		l.out.Roles = append(l.out.Roles, r)
		return nil
	})
}

func (l *loader) loadPermissions() error {
	return l.query(`SELECT u.name, OBJECT_SCHEMA_NAME(o.id), o.name, p.permission_name
FROM sys.database_permissions p
INNER JOIN sys.sysusers u ON p.grantee_principal_id = u.uid
INNER JOIN sys.sysobjects o ON p.major_id = o.id`, func(rows *sql.Rows) error {
		p := &model.Permission{}
		if err := rows.Scan(&p.UserName, &p.ObjectOwner, &p.ObjectName, &p.PermissionName); err != nil {
			return err
		}
		l.out.Permissions = append(l.out.Permissions, p)
		return nil
	})
}
