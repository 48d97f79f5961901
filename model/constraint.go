package model

import (
	"fmt"
	"strings"
)

type ConstraintType string

const (
	PrimaryKey ConstraintType = "PRIMARY KEY"
	Unique     ConstraintType = "UNIQUE"
	Index      ConstraintType = "INDEX"
	Check      ConstraintType = "CHECK"
)

type ConstraintColumn struct {
	Name       string
	Descending bool
}

func (c ConstraintColumn) Script() string {
	if c.Descending {
		return QuoteName(c.Name) + " DESC"
	}
	return QuoteName(c.Name)
}

// Constraint covers primary keys, unique constraints, indexes and CHECK
// constraints. Indexes on views have a Table standing in for the view and are
// held in Database.ViewIndexes.
type Constraint struct {
	Name              string
	Table             *Table
	Type              ConstraintType
	IndexType         string // CLUSTERED, NONCLUSTERED, ...
	Columns           []ConstraintColumn
	IncludedColumns   []string
	Filter            string
	Unique            bool
	NotForReplication bool
	IsSystemNamed     bool
	CheckExpression   string
}

var _ Scriptable = (*Constraint)(nil)

func NewCheckConstraint(name string, notForReplication, isSystemNamed bool, expression string) *Constraint {
	return &Constraint{
		Name:              name,
		Type:              Check,
		NotForReplication: notForReplication,
		IsSystemNamed:     isSystemNamed,
		CheckExpression:   expression,
	}
}

func (c *Constraint) scriptable() {}

func (c *Constraint) columnList() string {
	cols := make([]string, len(c.Columns))
	for i, col := range c.Columns {
		cols[i] = col.Script()
	}
	return strings.Join(cols, ", ")
}

func (c *Constraint) clustering() string {
	switch c.IndexType {
	case "CLUSTERED", "NONCLUSTERED":
		return " " + c.IndexType
	}
	return ""
}

func (c *Constraint) scriptInline() string {
	switch c.Type {
	case Check:
		s := fmt.Sprintf("CONSTRAINT %s CHECK", QuoteName(c.Name))
		if c.NotForReplication {
			s += " NOT FOR REPLICATION"
		}
		return s + " " + c.CheckExpression
	case Index:
		s := fmt.Sprintf("INDEX %s", QuoteName(c.Name))
		if c.Unique {
			s += " UNIQUE"
		}
		return s + c.clustering() + " (" + c.columnList() + ")"
	default:
		return fmt.Sprintf("CONSTRAINT %s %s%s (%s)", QuoteName(c.Name), c.Type, c.clustering(), c.columnList())
	}
}

// ScriptCreate renders a standalone statement creating the constraint.
func (c *Constraint) ScriptCreate() string {
	switch c.Type {
	case Index:
		var b strings.Builder
		b.WriteString("CREATE")
		if c.Unique {
			b.WriteString(" UNIQUE")
		}
		b.WriteString(c.clustering())
		fmt.Fprintf(&b, " INDEX %s ON %s (%s)", QuoteName(c.Name), c.Table.QualifiedName(), c.columnList())
		if len(c.IncludedColumns) > 0 {
			included := make([]string, len(c.IncludedColumns))
			for i, name := range c.IncludedColumns {
				included[i] = QuoteName(name)
			}
			fmt.Fprintf(&b, " INCLUDE (%s)", strings.Join(included, ", "))
		}
		if c.Filter != "" {
			fmt.Fprintf(&b, " WHERE %s", c.Filter)
		}
		return b.String()
	case Check:
		return fmt.Sprintf("ALTER TABLE %s WITH CHECK ADD %s", c.Table.QualifiedName(), c.scriptInline())
	default:
		return fmt.Sprintf("ALTER TABLE %s ADD %s", c.Table.QualifiedName(), c.scriptInline())
	}
}

func (c *Constraint) ScriptDrop() string {
	if c.Type == Index {
		return fmt.Sprintf("DROP INDEX %s ON %s", QuoteName(c.Name), c.Table.QualifiedName())
	}
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", c.Table.QualifiedName(), QuoteName(c.Name))
}
