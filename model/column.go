package model

import (
	"fmt"
	"strings"
)

// Column belongs to exactly one Table. Position is 1-based and is both the
// physical order and the basis for detecting reordering.
type Column struct {
	Name      string
	Type      string
	Length    int // -1 means max
	Precision int
	Scale     int
	Nullable  bool
	Position  int
	IsRowGuid bool

	Identity *Identity
	Default  *Default

	Computed  string
	Persisted bool
}

type Identity struct {
	Seed      string
	Increment string
}

func (i *Identity) Script() string {
	return fmt.Sprintf("IDENTITY (%s,%s)", i.Seed, i.Increment)
}

// TypeName renders the SQL type with its facet.
func (c *Column) TypeName() string {
	switch c.Type {
	case "binary", "char", "nchar", "nvarchar", "varbinary", "varchar":
		if c.Length == -1 {
			return QuoteName(c.Type) + "(max)"
		}
		return fmt.Sprintf("%s(%d)", QuoteName(c.Type), c.Length)
	case "decimal", "numeric":
		return fmt.Sprintf("%s(%d,%d)", QuoteName(c.Type), c.Precision, c.Scale)
	default:
		return QuoteName(c.Type)
	}
}

// ScriptCreate renders the column definition. Defaults are inlined only for
// table types, which cannot receive them afterwards.
func (c *Column) ScriptCreate(inlineDefault bool) string {
	if c.Computed != "" {
		s := fmt.Sprintf("%s AS %s", QuoteName(c.Name), c.Computed)
		if c.Persisted {
			s += " PERSISTED"
		}
		return s
	}

	parts := []string{QuoteName(c.Name), c.TypeName()}
	if c.Nullable {
		parts = append(parts, "NULL")
	} else {
		parts = append(parts, "NOT NULL")
	}
	if c.Identity != nil {
		parts = append(parts, c.Identity.Script())
	}
	if c.IsRowGuid {
		parts = append(parts, "ROWGUIDCOL")
	}
	if inlineDefault && c.Default != nil {
		parts = append(parts, c.Default.ScriptInline())
	}
	return strings.Join(parts, " ")
}

// ScriptAlter renders the ALTER COLUMN clause for an existing column.
func (c *Column) ScriptAlter(t *Table) string {
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s", t.QualifiedName(), c.ScriptCreate(false))
}

// Default is a column default constraint. It is scripted into the owning table's
// file under the defaults category.
type Default struct {
	Table         *Table
	Column        *Column
	Name          string
	Value         string
	IsSystemNamed bool
}

var _ Scriptable = (*Default)(nil)

func (d *Default) scriptable() {}

// ScriptInline renders the constraint clause as written in a column definition.
func (d *Default) ScriptInline() string {
	if d.IsSystemNamed {
		return "DEFAULT " + d.Value
	}
	return fmt.Sprintf("CONSTRAINT %s DEFAULT %s", QuoteName(d.Name), d.Value)
}

func (d *Default) ScriptCreate() string {
	return fmt.Sprintf("ALTER TABLE %s ADD %s FOR %s", d.Table.QualifiedName(), d.ScriptInline(), QuoteName(d.Column.Name))
}

func (d *Default) ScriptDrop() string {
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", d.Table.QualifiedName(), QuoteName(d.Name))
}
